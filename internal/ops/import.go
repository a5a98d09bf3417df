package ops

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/note"
)

// ImportMode controls id handling during import.
type ImportMode string

const (
	ImportModeAppend  ImportMode = "append"  // every note gets a fresh id
	ImportModeReplace ImportMode = "replace" // keep ids; an existing note with the same id is overwritten
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: append
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int     `json:"imported"`
	IDs      []int64 `json:"ids"`
}

// Import reads a YAML backup and writes every note in one transaction.
// Any invalid note aborts the whole import.
func (r *Repository) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeAppend
	}
	if input.Mode != ImportModeAppend && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: append, replace")
	}
	if err := checkBackupPath(input.Path, true); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	backup, err := parseBackup(file)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(backup.Notes))
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		for i := range backup.Notes {
			n := backup.Notes[i]
			if err := r.prepareImported(&n, i, input.Mode); err != nil {
				return err
			}
			id, err := db.Insert(ctx, tx, &n)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		r.publish(events.Imported, ids...)
	}
	return &ImportOutput{Imported: len(ids), IDs: ids}, nil
}

// parseBackup decodes and checks the backup header.
func parseBackup(rd io.Reader) (*Backup, error) {
	var backup Backup
	if err := yaml.NewDecoder(rd).Decode(&backup); err != nil {
		if err == io.EOF {
			return nil, errors.NewInvalidRequest("import file is empty")
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid backup file: %v", err))
	}
	if backup.Version != BackupVersion {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported backup version %d (want %d)", backup.Version, BackupVersion))
	}
	return &backup, nil
}

// prepareImported cleans one imported note and fills missing timestamps.
func (r *Repository) prepareImported(n *note.Note, index int, mode ImportMode) error {
	if mode == ImportModeAppend {
		n.ID = 0
	} else if n.ID < 0 {
		return errors.NewInvalidRequest(fmt.Sprintf("note %d: id must not be negative", index))
	}

	n.Folder = note.CleanFolder(n.Folder)
	n.ImageURIs = note.CleanList(n.ImageURIs)
	n.AudioFilePath = note.CleanOptional(n.AudioFilePath)
	n.TextFormatting = emptyToNil(n.TextFormatting)

	rec, err := parseRecurrence(string(n.ReminderRecurrence))
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("note %d: %s", index, errors.As(err).Message))
	}
	n.ReminderRecurrence = rec
	if n.ReminderDateTime == nil {
		n.ReminderRecurrence = note.RecurrenceNone
	}

	if err := r.validate(n); err != nil {
		if jErr := errors.As(err); jErr.Code != errors.ErrInternal {
			return errors.NewInvalidRequest(fmt.Sprintf("note %d: %s", index, jErr.Message))
		}
		return err
	}

	if n.CreatedAt == 0 {
		n.CreatedAt = r.now().UnixMilli()
	}
	if n.ModifiedAt < n.CreatedAt {
		n.ModifiedAt = n.CreatedAt
	}
	return nil
}
