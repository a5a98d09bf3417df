package ops

import (
	"context"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/note"
)

// EditInput contains parameters for the Edit operation.
// Nil fields are left unchanged. For optional fields an empty string, a zero
// timestamp or an empty (non-nil) slice clears the value.
type EditInput struct {
	ID int64 `json:"id"`

	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`

	Folder      *string `json:"folder,omitempty"`
	IsTask      *bool   `json:"is_task,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
	DueDate     *int64  `json:"due_date,omitempty"`

	ImageURIs      []string `json:"image_uris,omitempty"`
	TextFormatting *string  `json:"text_formatting,omitempty"`
	AudioFilePath  *string  `json:"audio_file_path,omitempty"`

	ReminderDateTime   *int64  `json:"reminder_date_time,omitempty"`
	ReminderRecurrence *string `json:"reminder_recurrence,omitempty"`
}

// EditOutput contains the result of the Edit operation.
type EditOutput struct {
	ID      int64      `json:"id"`
	Updated bool       `json:"updated"`
	Note    *note.Note `json:"note,omitempty"`
}

// Edit merges the given fields into an existing note, active or trashed,
// and refreshes modifiedAt. An unknown id is a no-op reported as Updated=false.
func (r *Repository) Edit(ctx context.Context, input EditInput) (*EditOutput, error) {
	if input.ID <= 0 {
		return nil, errors.NewInvalidRequest("id is required")
	}

	var recurrence *note.Recurrence
	if input.ReminderRecurrence != nil {
		rec, err := parseRecurrence(*input.ReminderRecurrence)
		if err != nil {
			return nil, err
		}
		recurrence = &rec
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := db.GetByID(ctx, r.db, input.ID)
	if isNotFound(err) {
		return &EditOutput{ID: input.ID, Updated: false}, nil
	}
	if err != nil {
		return nil, err
	}

	merged := *existing
	applyEdit(&merged, input, recurrence)
	if err := r.validate(&merged); err != nil {
		return nil, err
	}
	merged.ModifiedAt = r.stamp(existing.ModifiedAt)

	updated, err := db.Update(ctx, r.db, &merged)
	if err != nil {
		return nil, err
	}
	if !updated {
		return &EditOutput{ID: input.ID, Updated: false}, nil
	}

	r.publish(events.Updated, input.ID)
	return &EditOutput{ID: input.ID, Updated: true, Note: &merged}, nil
}

func applyEdit(n *note.Note, input EditInput, recurrence *note.Recurrence) {
	if input.Title != nil {
		n.Title = *input.Title
	}
	if input.Content != nil {
		n.Content = *input.Content
	}
	if input.Folder != nil {
		n.Folder = note.CleanFolder(input.Folder)
	}
	if input.IsTask != nil {
		n.IsTask = *input.IsTask
	}
	if input.IsCompleted != nil {
		n.IsCompleted = *input.IsCompleted
	}
	if input.DueDate != nil {
		n.DueDate = zeroToNil(input.DueDate)
	}
	if input.ImageURIs != nil {
		n.ImageURIs = note.CleanList(input.ImageURIs)
	}
	if input.TextFormatting != nil {
		n.TextFormatting = emptyToNil(input.TextFormatting)
	}
	if input.AudioFilePath != nil {
		n.AudioFilePath = note.CleanOptional(input.AudioFilePath)
	}
	if input.ReminderDateTime != nil {
		n.ReminderDateTime = zeroToNil(input.ReminderDateTime)
		// Clearing the time drops the recurrence unless one is given explicitly
		if n.ReminderDateTime == nil && recurrence == nil {
			n.ReminderRecurrence = note.RecurrenceNone
		}
	}
	if recurrence != nil {
		n.ReminderRecurrence = *recurrence
	}
}

func zeroToNil(v *int64) *int64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}
