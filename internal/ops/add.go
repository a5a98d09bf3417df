package ops

import (
	"context"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/note"
)

// AddInput contains parameters for the Add operation.
// Only one of Title or Content needs to be non-blank.
type AddInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`

	Folder      *string `json:"folder,omitempty"` // blank means unfiled
	IsTask      bool    `json:"is_task,omitempty"`
	IsCompleted bool    `json:"is_completed,omitempty"`
	DueDate     *int64  `json:"due_date,omitempty"`

	ImageURIs      []string `json:"image_uris,omitempty"`
	TextFormatting *string  `json:"text_formatting,omitempty"`
	AudioFilePath  *string  `json:"audio_file_path,omitempty"`

	ReminderDateTime   *int64 `json:"reminder_date_time,omitempty"`
	ReminderRecurrence string `json:"reminder_recurrence,omitempty"` // Daily, Weekly, Monthly, Yearly
}

// AddOutput contains the result of the Add operation.
type AddOutput struct {
	ID   int64      `json:"id"`
	Note *note.Note `json:"note"`
}

// Add creates a note, stamping createdAt and modifiedAt with the same time.
func (r *Repository) Add(ctx context.Context, input AddInput) (*AddOutput, error) {
	recurrence, err := parseRecurrence(input.ReminderRecurrence)
	if err != nil {
		return nil, err
	}

	n := &note.Note{
		Title:              input.Title,
		Content:            input.Content,
		Folder:             note.CleanFolder(input.Folder),
		IsTask:             input.IsTask,
		IsCompleted:        input.IsCompleted,
		DueDate:            input.DueDate,
		ImageURIs:          note.CleanList(input.ImageURIs),
		TextFormatting:     emptyToNil(input.TextFormatting),
		AudioFilePath:      note.CleanOptional(input.AudioFilePath),
		ReminderDateTime:   input.ReminderDateTime,
		ReminderRecurrence: recurrence,
	}
	if err := r.validate(n); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.stamp(0)
	n.CreatedAt = now
	n.ModifiedAt = now

	id, err := db.Insert(ctx, r.db, n)
	if err != nil {
		return nil, err
	}
	n.ID = id

	r.publish(events.Created, id)
	return &AddOutput{ID: id, Note: n}, nil
}

// emptyToNil returns nil for a nil or empty string. Whitespace is kept.
func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
