package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/note"
)

// BackupVersion is the version written to and accepted from backup files.
const BackupVersion = 1

// Backup is the YAML document written by Export and read by Import.
type Backup struct {
	Version    int         `yaml:"version"`
	ExportedAt int64       `yaml:"exported_at"`
	Notes      []note.Note `yaml:"notes"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path           string // optional, default: <exports dir>/<folder or "notes">-<timestamp>.yaml
	Folder         string // optional filter by folder
	IncludeTrashed bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes notes to a YAML backup file.
// The file is written to a temp path and renamed into place, so an existing
// backup survives a failed export.
func (r *Repository) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	now := r.now()
	exportedAt := now.UnixMilli()

	exportPath := input.Path
	if exportPath == "" {
		if r.exportsDir == "" {
			return nil, errors.NewInvalidRequest("path is required")
		}
		exportPath = filepath.Join(r.exportsDir, backupFileName(note.CleanLabel(input.Folder), now))
	}

	if err := checkBackupPath(exportPath, false); err != nil {
		return nil, err
	}

	notes, err := r.exportNotes(ctx, input)
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(&Backup{
		Version:    BackupVersion,
		ExportedAt: exportedAt,
		Notes:      notes,
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}
	if err := writeFileAtomic(exportPath, data); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Count:      len(notes),
		ExportedAt: exportedAt,
	}, nil
}

// exportNotes collects active notes, then trashed ones when requested.
func (r *Repository) exportNotes(ctx context.Context, input ExportInput) ([]note.Note, error) {
	filter := db.Filter{Folder: note.CleanLabel(input.Folder)}
	notes, err := db.List(ctx, r.db, filter)
	if err != nil {
		return nil, err
	}
	if input.IncludeTrashed {
		filter.Trashed = true
		trashed, err := db.List(ctx, r.db, filter)
		if err != nil {
			return nil, err
		}
		notes = append(notes, trashed...)
	}
	return notes, nil
}

func writeFileAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	// Clean up temp file on failure (original file is preserved)
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
