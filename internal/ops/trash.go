package ops

import (
	"context"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/events"
)

// TrashOutput contains the result of the Trash and Restore operations.
type TrashOutput struct {
	ID      int64  `json:"id"`
	Changed bool   `json:"changed"`
	Status  string `json:"status,omitempty"`
}

// Trash moves a note to the trash. The trash time is recorded in modifiedAt.
// Unknown ids and notes already in the trash are left alone (Changed=false).
func (r *Repository) Trash(ctx context.Context, id int64) (*TrashOutput, error) {
	return r.setTrashed(ctx, id, true)
}

// Restore moves a trashed note back to the active list.
// Unknown ids and active notes are left alone (Changed=false).
func (r *Repository) Restore(ctx context.Context, id int64) (*TrashOutput, error) {
	return r.setTrashed(ctx, id, false)
}

func (r *Repository) setTrashed(ctx context.Context, id int64, trashed bool) (*TrashOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := db.GetByID(ctx, r.db, id)
	if isNotFound(err) {
		return &TrashOutput{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	if n.IsDeleted == trashed {
		return &TrashOutput{ID: id, Status: n.Status()}, nil
	}

	changed, err := db.SetTrashed(ctx, r.db, id, trashed, r.stamp(n.ModifiedAt))
	if err != nil {
		return nil, err
	}
	if !changed {
		return &TrashOutput{ID: id}, nil
	}

	n.IsDeleted = trashed
	typ := events.Restored
	if trashed {
		typ = events.Trashed
	}
	r.publish(typ, id)
	return &TrashOutput{ID: id, Changed: true, Status: n.Status()}, nil
}
