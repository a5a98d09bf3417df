package ops

import (
	"context"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/events"
)

// ToggleOutput contains the result of the ToggleTaskCompletion operation.
type ToggleOutput struct {
	ID          int64 `json:"id"`
	Changed     bool  `json:"changed"`
	IsCompleted bool  `json:"is_completed"`
}

// ToggleTaskCompletion flips the completion flag of a task.
// Plain notes and unknown ids are left alone (Changed=false).
func (r *Repository) ToggleTaskCompletion(ctx context.Context, id int64) (*ToggleOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := db.GetByID(ctx, r.db, id)
	if isNotFound(err) {
		return &ToggleOutput{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	if !n.IsTask {
		return &ToggleOutput{ID: id, IsCompleted: n.IsCompleted}, nil
	}

	n.IsCompleted = !n.IsCompleted
	n.ModifiedAt = r.stamp(n.ModifiedAt)
	if _, err := db.Update(ctx, r.db, n); err != nil {
		return nil, err
	}

	r.publish(events.Updated, id)
	return &ToggleOutput{ID: id, Changed: true, IsCompleted: n.IsCompleted}, nil
}
