package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/hpungsan/jot/internal/errors"
)

// checkBackupPath vets a YAML backup location before export or import.
// The path may not climb out with "..", and neither the file nor its
// directory may be a symlink. When mustExist is set the file has to be there.
func checkBackupPath(path string, mustExist bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if hasParentRef(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	if ext := strings.ToLower(filepath.Ext(abs)); ext != ".yaml" && ext != ".yml" {
		return errors.NewInvalidRequest("path must have .yaml or .yml extension")
	}

	if isSymlink(filepath.Dir(abs)) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if mustExist {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	return nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// hasParentRef reports whether any element of path is "..".
// Both separators are checked so Windows-style input is caught everywhere.
func hasParentRef(path string) bool {
	normalized := strings.ReplaceAll(filepath.ToSlash(path), `\`, "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// backupFileName names a default export: "<folder slug>-<timestamp>.yaml",
// or "notes-<timestamp>.yaml" when no folder is given.
func backupFileName(folder string, at time.Time) string {
	return fmt.Sprintf("%s-%s.yaml", folderSlug(folder), at.Format("2006-01-02T150405"))
}

// folderSlug lowercases a folder label and collapses every run of
// characters other than letters and digits into a single "-".
func folderSlug(folder string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folder) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "notes"
	}
	return slug
}
