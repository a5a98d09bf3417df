package note

import "strings"

// EncodeImageURIs joins attachment references for storage.
// Entries are trimmed and blanks dropped; nothing left encodes to nil (NULL).
func EncodeImageURIs(uris []string) *string {
	cleaned := CleanList(uris)
	if len(cleaned) == 0 {
		return nil
	}
	joined := strings.Join(cleaned, ",")
	return &joined
}

// DecodeImageURIs is the inverse of EncodeImageURIs.
// NULL, empty and comma-only values decode to nil.
func DecodeImageURIs(s *string) []string {
	if s == nil {
		return nil
	}
	return CleanList(strings.Split(*s, ","))
}

// CleanList trims entries and drops empty ones. Returns nil when nothing remains.
func CleanList(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
