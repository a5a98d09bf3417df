package ops

import (
	"context"
	"time"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/note"
)

// AdvanceOutput contains the result of the AdvanceReminder operation.
type AdvanceOutput struct {
	ID      int64  `json:"id"`
	Changed bool   `json:"changed"`
	Next    *int64 `json:"next,omitempty"` // nil when the reminder was cleared
}

// DueReminders returns active notes whose reminder is at or before the given time.
func (r *Repository) DueReminders(ctx context.Context, before time.Time) ([]note.Note, error) {
	return db.ListDueReminders(ctx, r.db, before.UnixMilli())
}

// AdvanceReminder moves a fired reminder forward. Recurring reminders move to
// the first occurrence after firedAt; one-shot reminders are cleared.
// modifiedAt is left untouched: firing a reminder does not edit the note.
func (r *Repository) AdvanceReminder(ctx context.Context, id int64, firedAt time.Time) (*AdvanceOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := db.GetByID(ctx, r.db, id)
	if isNotFound(err) {
		return &AdvanceOutput{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	if n.ReminderDateTime == nil {
		return &AdvanceOutput{ID: id}, nil
	}

	var next *int64
	if t, ok := n.ReminderRecurrence.NextAfter(time.UnixMilli(*n.ReminderDateTime), firedAt); ok {
		ms := t.UnixMilli()
		next = &ms
	}

	changed, err := db.SetReminder(ctx, r.db, id, next, n.ReminderRecurrence)
	if err != nil {
		return nil, err
	}
	if changed {
		r.publish(events.Updated, id)
	}
	return &AdvanceOutput{ID: id, Changed: changed, Next: next}, nil
}
