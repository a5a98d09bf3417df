package ops

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/note"
)

// Note statuses accepted by List and Search.
const (
	StatusActive  = "active"
	StatusTrashed = "trashed"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Repository is the command and query surface over the note store.
// Mutations are serialized so that existence checks and the following write
// see the same state. Every successful mutation publishes one event.
type Repository struct {
	db         *sql.DB
	publisher  events.Publisher
	cfg        *config.Config
	exportsDir string
	now        func() time.Time

	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithConfig sets limits such as the maximum note size.
func WithConfig(cfg *config.Config) Option {
	return func(r *Repository) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithExportsDir sets the directory used for default export paths.
func WithExportsDir(dir string) Option {
	return func(r *Repository) {
		r.exportsDir = dir
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a Repository. A nil publisher discards events.
func NewRepository(database *sql.DB, publisher events.Publisher, opts ...Option) *Repository {
	if publisher == nil {
		publisher = events.Nop{}
	}
	r := &Repository{
		db:        database,
		publisher: publisher,
		cfg:       config.DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// stamp returns the current time in ms, forced past prev so that
// modified_at strictly increases even within one millisecond.
func (r *Repository) stamp(prev int64) int64 {
	now := r.now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}

func (r *Repository) publish(typ events.Type, ids ...int64) {
	r.publisher.Publish(events.New(typ, ids...))
}

// validate checks a complete note before it reaches the store.
func (r *Repository) validate(n *note.Note) error {
	if note.IsBlank(n.Title, n.Content) {
		return errors.NewEmptyNote()
	}
	if chars := note.CountChars(n.Title, n.Content); r.cfg.NoteMaxChars > 0 && chars > r.cfg.NoteMaxChars {
		return errors.NewNoteTooLarge(r.cfg.NoteMaxChars, chars)
	}
	if n.ReminderRecurrence != note.RecurrenceNone && n.ReminderDateTime == nil {
		return errors.NewInvalidRequest("reminder_recurrence requires reminder_date_time")
	}
	if n.DueDate != nil && !note.ValidTimestamp(*n.DueDate) {
		return errors.NewInvalidRequest("due_date must fall between years 1 and 9999")
	}
	if n.ReminderDateTime != nil && !note.ValidTimestamp(*n.ReminderDateTime) {
		return errors.NewInvalidRequest("reminder_date_time must fall between years 1 and 9999")
	}
	return nil
}

func parseRecurrence(s string) (note.Recurrence, error) {
	r, err := note.ParseRecurrence(s)
	if err != nil {
		return note.RecurrenceNone, errors.NewInvalidRequest(err.Error())
	}
	return r, nil
}

// ParseKind normalizes a kind filter. Blank means any kind.
func ParseKind(kind string) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case db.KindAny, db.KindNote, db.KindTask:
		return kind, nil
	}
	return "", errors.NewInvalidRequest("kind must be one of: note, task")
}

// statusFilter converts a status name into a store filter.
func statusFilter(status, folder, kind string) (db.Filter, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return db.Filter{}, err
	}
	filter := db.Filter{Folder: note.CleanLabel(folder), Kind: k}
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", StatusActive:
	case StatusTrashed:
		filter.Trashed = true
	default:
		return db.Filter{}, errors.NewInvalidRequest("status must be one of: active, trashed")
	}
	return filter, nil
}

// paginate slices items by limit and offset. A zero limit returns everything.
func paginate(items []note.Note, limit, offset int) ([]note.Note, Pagination, error) {
	if limit < 0 || offset < 0 {
		return nil, Pagination{}, errors.NewInvalidRequest("limit and offset must not be negative")
	}

	total := len(items)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return items[offset:end], Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}, nil
}

// isNotFound reports whether err is the store's not-found error.
func isNotFound(err error) bool {
	return errors.Is(err, errors.ErrNotFound)
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
