package mcp

import "github.com/mark3labs/mcp-go/mcp"

var statusProp = mcp.WithString("status",
	mcp.Description("active (default) or trashed"),
	mcp.Enum("active", "trashed"),
)

var kindProp = mcp.WithString("kind",
	mcp.Description("note or task; omit for both"),
	mcp.Enum("note", "task"),
)

var idProp = mcp.WithNumber("id",
	mcp.Required(),
	mcp.Description("Note id"),
)

var addToolDef = mcp.NewTool("note_add",
	mcp.WithDescription("Create a note or task. Title or content must be non-blank."),
	mcp.WithString("title", mcp.Description("Note title")),
	mcp.WithString("content", mcp.Description("Note body")),
	mcp.WithString("folder", mcp.Description("Folder label; blank means unfiled")),
	mcp.WithBoolean("is_task", mcp.Description("Create a task instead of a plain note")),
	mcp.WithBoolean("is_completed", mcp.Description("Initial completion state of a task")),
	mcp.WithNumber("due_date", mcp.Description("Task due date, epoch milliseconds")),
	mcp.WithArray("image_uris", mcp.Description("Attached image references"), mcp.WithStringItems()),
	mcp.WithString("text_formatting", mcp.Description("Opaque formatting metadata")),
	mcp.WithString("audio_file_path", mcp.Description("Attached audio recording")),
	mcp.WithNumber("reminder_date_time", mcp.Description("Reminder time, epoch milliseconds")),
	mcp.WithString("reminder_recurrence",
		mcp.Description("Repeat rule; requires reminder_date_time"),
		mcp.Enum("Daily", "Weekly", "Monthly", "Yearly"),
	),
)

var editToolDef = mcp.NewTool("note_edit",
	mcp.WithDescription("Update fields of a note. Omitted fields are unchanged; an empty string, 0 or [] clears an optional field. A missing id is reported as updated=false."),
	idProp,
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("content", mcp.Description("New body")),
	mcp.WithString("folder", mcp.Description("New folder; empty clears it")),
	mcp.WithBoolean("is_task", mcp.Description("Turn into a task or a plain note")),
	mcp.WithBoolean("is_completed", mcp.Description("Task completion")),
	mcp.WithNumber("due_date", mcp.Description("Due date in epoch milliseconds; 0 clears it")),
	mcp.WithArray("image_uris", mcp.Description("Replaces the image list; [] clears it"), mcp.WithStringItems()),
	mcp.WithString("text_formatting", mcp.Description("Formatting metadata; empty clears it")),
	mcp.WithString("audio_file_path", mcp.Description("Audio path; empty clears it")),
	mcp.WithNumber("reminder_date_time", mcp.Description("Reminder time in epoch milliseconds; 0 clears the reminder")),
	mcp.WithString("reminder_recurrence", mcp.Description("Daily, Weekly, Monthly, Yearly or empty for none")),
)

var getToolDef = mcp.NewTool("note_get",
	mcp.WithDescription("Fetch one note by id, active or trashed."),
	mcp.WithReadOnlyHintAnnotation(true),
	idProp,
)

var listToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List notes, most recently modified first."),
	mcp.WithReadOnlyHintAnnotation(true),
	statusProp,
	mcp.WithString("folder", mcp.Description("Only notes in this folder")),
	kindProp,
	mcp.WithNumber("limit", mcp.Description("Maximum items; 0 means all")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var searchToolDef = mcp.NewTool("note_search",
	mcp.WithDescription("Case-insensitive substring search over title and content. A blank query lists every note in the status."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Description("Text to look for")),
	statusProp,
	mcp.WithString("folder", mcp.Description("Only notes in this folder")),
	kindProp,
	mcp.WithNumber("limit", mcp.Description("Maximum items; 0 means all")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var trashToolDef = mcp.NewTool("note_trash",
	mcp.WithDescription("Move a note to the trash. It can be restored until the trash is emptied."),
	idProp,
)

var restoreToolDef = mcp.NewTool("note_restore",
	mcp.WithDescription("Move a trashed note back to the active list."),
	idProp,
)

var deleteToolDef = mcp.NewTool("note_delete",
	mcp.WithDescription("Permanently delete a note. This cannot be undone."),
	mcp.WithDestructiveHintAnnotation(true),
	idProp,
)

var emptyTrashToolDef = mcp.NewTool("note_empty_trash",
	mcp.WithDescription("Permanently delete trashed notes. This cannot be undone."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithNumber("older_than_days", mcp.Description("Only notes trashed more than this many days ago")),
)

var toggleToolDef = mcp.NewTool("note_toggle",
	mcp.WithDescription("Flip the completion state of a task. Plain notes are left unchanged."),
	idProp,
)

var foldersToolDef = mcp.NewTool("note_folders",
	mcp.WithDescription("List the distinct folder labels in use."),
	mcp.WithReadOnlyHintAnnotation(true),
)
