package ops

import (
	"context"
	"fmt"
	"math"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/events"
)

// EmptyTrashInput contains parameters for the EmptyTrash operation.
type EmptyTrashInput struct {
	OlderThanDays *int `json:"older_than_days,omitempty"` // only purge notes trashed more than N days ago
}

// EmptyTrashOutput contains the result of the EmptyTrash operation.
type EmptyTrashOutput struct {
	Purged  int     `json:"purged"`
	IDs     []int64 `json:"ids"`
	Message string  `json:"message"`
}

// DeleteOutput contains the result of the PermanentlyDelete operation.
type DeleteOutput struct {
	ID     int64 `json:"id"`
	Purged bool  `json:"purged"`
}

// maxTrashAgeDays bounds the older-than window. Nothing can have been
// trashed earlier, so larger values purge nothing.
const maxTrashAgeDays = 3_650_000

// EmptyTrash permanently removes trashed notes.
func (r *Repository) EmptyTrash(ctx context.Context, input EmptyTrashInput) (*EmptyTrashOutput, error) {
	var cutoff *int64
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must not be negative")
		}
		c := int64(math.MinInt64)
		if days := *input.OlderThanDays; days <= maxTrashAgeDays {
			c = r.now().AddDate(0, 0, -days).UnixMilli()
		}
		cutoff = &c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := db.PurgeTrashed(ctx, r.db, cutoff)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}

	if len(ids) > 0 {
		r.publish(events.Purged, ids...)
	}
	return &EmptyTrashOutput{
		Purged:  len(ids),
		IDs:     ids,
		Message: formatPurgeMessage(len(ids), input.OlderThanDays),
	}, nil
}

// PermanentlyDelete removes a note, active or trashed, for good.
// An unknown id is a no-op reported as Purged=false.
func (r *Repository) PermanentlyDelete(ctx context.Context, id int64) (*DeleteOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	purged, err := db.Purge(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if purged {
		r.publish(events.Purged, id)
	}
	return &DeleteOutput{ID: id, Purged: purged}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		if olderThanDays != nil {
			return fmt.Sprintf("No notes trashed more than %d days ago", *olderThanDays)
		}
		return "Trash is already empty"
	}

	noteWord := "note"
	if count > 1 {
		noteWord = "notes"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, noteWord)
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (trashed more than %d days ago)", *olderThanDays)
	}
	return msg
}
