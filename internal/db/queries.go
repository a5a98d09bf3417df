package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/note"
)

// Kind filters for List.
const (
	KindAny  = ""
	KindNote = "note"
	KindTask = "task"
)

// Filter narrows List and Search results.
type Filter struct {
	// Trashed selects the trash instead of active notes
	Trashed bool

	// Folder limits results to one folder label; "" means any folder
	Folder string

	// Kind is KindAny, KindNote or KindTask
	Kind string
}

const noteColumns = `
	id, title, content, created_at, modified_at, folder,
	is_task, is_completed, due_date, is_deleted,
	image_uris, text_formatting, reminder_date_time, reminder_recurrence,
	audio_file_path
`

// Insert stores a note and returns its id.
// A zero ID lets the store assign the next id. A non-zero ID replaces any
// existing row with that id (last write wins).
func Insert(ctx context.Context, q Querier, n *note.Note) (int64, error) {
	verb := "INSERT"
	args := noteArgs(n)
	cols := noteColumns
	placeholders := "?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?"

	if n.ID > 0 {
		verb = "INSERT OR REPLACE"
		args = append([]any{n.ID}, args...)
		placeholders = "?, " + placeholders
	} else {
		cols = strings.Replace(cols, "id, ", "", 1)
	}

	query := verb + " INTO notes (" + cols + ") VALUES (" + placeholders + ")"

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	if n.ID > 0 {
		return n.ID, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return id, nil
}

// Update replaces every mutable field of the note with the given id.
// Returns false, without error, when no such note exists.
func Update(ctx context.Context, q Querier, n *note.Note) (bool, error) {
	query := `
		UPDATE notes SET
			title = ?, content = ?, created_at = ?, modified_at = ?, folder = ?,
			is_task = ?, is_completed = ?, due_date = ?, is_deleted = ?,
			image_uris = ?, text_formatting = ?, reminder_date_time = ?,
			reminder_recurrence = ?, audio_file_path = ?
		WHERE id = ?
	`
	args := append(noteArgs(n), n.ID)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affected(res)
}

// GetByID retrieves a note, active or trashed, by id.
func GetByID(ctx context.Context, q Querier, id int64) (*note.Note, error) {
	query := "SELECT " + noteColumns + " FROM notes WHERE id = ?"

	n, err := scanNote(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return n, nil
}

// SetTrashed moves a note into or out of the trash and stamps modified_at.
// Returns false when no such note exists.
func SetTrashed(ctx context.Context, q Querier, id int64, trashed bool, modifiedAt int64) (bool, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE notes SET is_deleted = ?, modified_at = ? WHERE id = ?",
		trashed, modifiedAt, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affected(res)
}

// Purge permanently removes a note regardless of its status.
// Returns false when no such note exists.
func Purge(ctx context.Context, q Querier, id int64) (bool, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affected(res)
}

// PurgeTrashed permanently removes trashed notes and returns their ids.
// If olderThan is set, only notes trashed before that time (ms) are removed.
func PurgeTrashed(ctx context.Context, q Querier, olderThan *int64) ([]int64, error) {
	query := "DELETE FROM notes WHERE is_deleted = 1"
	var args []any
	if olderThan != nil {
		query += " AND modified_at < ?"
		args = append(args, *olderThan)
	}
	query += " RETURNING id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ids, nil
}

// List returns notes matching filter, most recently modified first.
func List(ctx context.Context, q Querier, filter Filter) ([]note.Note, error) {
	query := "SELECT " + noteColumns + " FROM notes WHERE is_deleted = ?"
	args := []any{filter.Trashed}

	if filter.Folder != "" {
		query += " AND folder = ?"
		args = append(args, filter.Folder)
	}
	switch filter.Kind {
	case KindNote:
		query += " AND is_task = 0"
	case KindTask:
		query += " AND is_task = 1"
	case KindAny:
	default:
		return nil, errors.NewInvalidRequest("kind must be one of: note, task")
	}
	query += " ORDER BY modified_at DESC, id DESC"

	return queryNotes(ctx, q, query, args...)
}

// ListActive returns all notes outside the trash.
func ListActive(ctx context.Context, q Querier) ([]note.Note, error) {
	return List(ctx, q, Filter{})
}

// ListTrashed returns all notes in the trash.
func ListTrashed(ctx context.Context, q Querier) ([]note.Note, error) {
	return List(ctx, q, Filter{Trashed: true})
}

// Search returns notes matching filter whose title or content contains query,
// ignoring case. SQLite's LIKE only folds ASCII, so matching happens here.
// An empty query returns the filtered list unchanged.
func Search(ctx context.Context, q Querier, query string, filter Filter) ([]note.Note, error) {
	notes, err := List(ctx, q, filter)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return notes, nil
	}

	matched := make([]note.Note, 0, len(notes))
	for i := range notes {
		if notes[i].Matches(query) {
			matched = append(matched, notes[i])
		}
	}
	return matched, nil
}

// ListFolders returns the distinct folder labels in ascending order.
// Trashed notes still contribute their folder.
func ListFolders(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT DISTINCT folder FROM notes WHERE folder IS NOT NULL ORDER BY folder ASC")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	folders := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, errors.NewInternal(err)
		}
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return folders, nil
}

// ListDueReminders returns active notes whose reminder is at or before the given time,
// earliest first.
func ListDueReminders(ctx context.Context, q Querier, before int64) ([]note.Note, error) {
	query := "SELECT " + noteColumns + ` FROM notes
		WHERE is_deleted = 0 AND reminder_date_time IS NOT NULL AND reminder_date_time <= ?
		ORDER BY reminder_date_time ASC, id ASC`
	return queryNotes(ctx, q, query, before)
}

// SetReminder sets or clears (at == nil) a note's reminder without touching modified_at.
// Returns false when no such note exists.
func SetReminder(ctx context.Context, q Querier, id int64, at *int64, recurrence note.Recurrence) (bool, error) {
	if at == nil {
		recurrence = note.RecurrenceNone
	}
	res, err := q.ExecContext(ctx,
		"UPDATE notes SET reminder_date_time = ?, reminder_recurrence = ? WHERE id = ?",
		toNullInt64(at), toNullString(recurrenceString(recurrence)), id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return affected(res)
}

// noteArgs returns the column values for every column except id, in noteColumns order.
func noteArgs(n *note.Note) []any {
	return []any{
		n.Title, n.Content, n.CreatedAt, n.ModifiedAt, toNullString(n.Folder),
		n.IsTask, n.IsCompleted, toNullInt64(n.DueDate), n.IsDeleted,
		toNullString(note.EncodeImageURIs(n.ImageURIs)), toNullString(n.TextFormatting),
		toNullInt64(n.ReminderDateTime), toNullString(recurrenceString(n.ReminderRecurrence)),
		toNullString(n.AudioFilePath),
	}
}

func queryNotes(ctx context.Context, q Querier, query string, args ...any) ([]note.Note, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	notes := []note.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return notes, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanNote scans a row into a Note.
func scanNote(row scanner) (*note.Note, error) {
	var n note.Note
	var (
		folder, imageURIs, formatting, recurrence, audio sql.NullString
		dueDate, reminderAt                              sql.NullInt64
	)

	err := row.Scan(
		&n.ID, &n.Title, &n.Content, &n.CreatedAt, &n.ModifiedAt, &folder,
		&n.IsTask, &n.IsCompleted, &dueDate, &n.IsDeleted,
		&imageURIs, &formatting, &reminderAt, &recurrence,
		&audio,
	)
	if err != nil {
		return nil, err
	}

	n.Folder = fromNullString(folder)
	n.DueDate = fromNullInt64(dueDate)
	n.ImageURIs = note.DecodeImageURIs(fromNullString(imageURIs))
	n.TextFormatting = fromNullString(formatting)
	n.ReminderDateTime = fromNullInt64(reminderAt)
	n.AudioFilePath = fromNullString(audio)
	if recurrence.Valid {
		// Unknown stored values degrade to no recurrence
		if r, err := note.ParseRecurrence(recurrence.String); err == nil {
			n.ReminderRecurrence = r
		}
	}

	return &n, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

func recurrenceString(r note.Recurrence) *string {
	if r == note.RecurrenceNone {
		return nil
	}
	s := string(r)
	return &s
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt64(nv sql.NullInt64) *int64 {
	if !nv.Valid {
		return nil
	}
	return &nv.Int64
}
