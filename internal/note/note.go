package note

// Note is a user-authored record: either a plain note or a task.
// Timestamps are Unix epoch milliseconds.
type Note struct {
	// ID is assigned by the store on insert and never reused
	ID int64 `json:"id" yaml:"id"`

	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`

	// Folder is a free-text label; nil means unfiled
	Folder *string `json:"folder,omitempty" yaml:"folder,omitempty"`

	IsTask bool `json:"is_task" yaml:"is_task"`

	// IsCompleted and DueDate are only meaningful when IsTask is true
	IsCompleted bool   `json:"is_completed" yaml:"is_completed"`
	DueDate     *int64 `json:"due_date,omitempty" yaml:"due_date,omitempty"`

	// IsDeleted marks the note as trashed; ModifiedAt then holds the trash time
	IsDeleted bool `json:"is_deleted" yaml:"is_deleted"`

	CreatedAt  int64 `json:"created_at" yaml:"created_at"`
	ModifiedAt int64 `json:"modified_at" yaml:"modified_at"`

	// ImageURIs is in display order (stored comma-joined)
	ImageURIs []string `json:"image_uris,omitempty" yaml:"image_uris,omitempty"`

	// TextFormatting is opaque formatting metadata owned by the presentation layer
	TextFormatting *string `json:"text_formatting,omitempty" yaml:"text_formatting,omitempty"`

	ReminderDateTime   *int64     `json:"reminder_date_time,omitempty" yaml:"reminder_date_time,omitempty"`
	ReminderRecurrence Recurrence `json:"reminder_recurrence,omitempty" yaml:"reminder_recurrence,omitempty"`

	AudioFilePath *string `json:"audio_file_path,omitempty" yaml:"audio_file_path,omitempty"`
}

// Status returns "trashed" for soft-deleted notes and "active" otherwise.
func (n *Note) Status() string {
	if n.IsDeleted {
		return "trashed"
	}
	return "active"
}

// Kind returns "task" or "note".
func (n *Note) Kind() string {
	if n.IsTask {
		return "task"
	}
	return "note"
}

// FolderName returns the folder label or "" when unfiled.
func (n *Note) FolderName() string {
	if n.Folder == nil {
		return ""
	}
	return *n.Folder
}

// Bounds of a user-supplied timestamp: years 1 through 9999 UTC.
const (
	MinTimestamp int64 = -62_135_596_800_000
	MaxTimestamp int64 = 253_402_300_799_999
)

// ValidTimestamp reports whether ms lies within [MinTimestamp, MaxTimestamp].
func ValidTimestamp(ms int64) bool {
	return ms >= MinTimestamp && ms <= MaxTimestamp
}
