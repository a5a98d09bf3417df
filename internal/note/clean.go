package note

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanLabel trims a folder label and collapses internal whitespace.
// Case is preserved: folders are shown as typed.
func CleanLabel(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CleanOptional trims an optional string; nil or blank becomes nil.
func CleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// CleanFolder returns the cleaned folder label, or nil when blank.
func CleanFolder(s *string) *string {
	if s == nil {
		return nil
	}
	label := CleanLabel(*s)
	if label == "" {
		return nil
	}
	return &label
}

// IsBlank reports whether both title and content are empty after trimming.
func IsBlank(title, content string) bool {
	return strings.TrimSpace(title) == "" && strings.TrimSpace(content) == ""
}

// CountChars returns the character count of title plus content as runes (not bytes).
func CountChars(title, content string) int {
	return utf8.RuneCountInString(title) + utf8.RuneCountInString(content)
}

// ContainsFold reports whether s contains substr, ignoring case.
// Uses Unicode lowering, so "ÉTÉ" matches "été".
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Matches reports whether query is a case-insensitive substring of the title or content.
func (n *Note) Matches(query string) bool {
	return ContainsFold(n.Title, query) || ContainsFold(n.Content, query)
}
