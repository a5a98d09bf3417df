// Package live keeps a filtered view of the note store up to date.
//
// A Controller holds the current search text, status, folder and kind. It re-runs its
// query whenever the store changes or the filter changes, and pushes the
// result to every subscriber. A filter change cancels any query still in
// flight, so observers only ever see results for the latest filter.
package live

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/note"
	"github.com/hpungsan/jot/internal/ops"
)

// Repository is the part of ops.Repository the controller uses.
type Repository interface {
	Search(ctx context.Context, input ops.SearchInput) (*ops.SearchOutput, error)
	Folders(ctx context.Context) ([]string, error)

	Add(ctx context.Context, input ops.AddInput) (*ops.AddOutput, error)
	Edit(ctx context.Context, input ops.EditInput) (*ops.EditOutput, error)
	Trash(ctx context.Context, id int64) (*ops.TrashOutput, error)
	Restore(ctx context.Context, id int64) (*ops.TrashOutput, error)
	EmptyTrash(ctx context.Context, input ops.EmptyTrashInput) (*ops.EmptyTrashOutput, error)
	PermanentlyDelete(ctx context.Context, id int64) (*ops.DeleteOutput, error)
	ToggleTaskCompletion(ctx context.Context, id int64) (*ops.ToggleOutput, error)
}

// Filter selects the notes shown.
type Filter struct {
	Query  string `json:"query"`
	Status string `json:"status"`
	Folder string `json:"folder,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// State is one derived view of the store.
type State struct {
	// Seq increases with every emitted state
	Seq     uint64      `json:"seq"`
	Filter  Filter      `json:"filter"`
	Notes   []note.Note `json:"notes"`
	Folders []string    `json:"folders"`

	// Error is set when the derivation failed; Notes is then empty
	Error string `json:"error,omitempty"`
}

// Controller derives State from the store and the current filter.
type Controller struct {
	repo   Repository
	bus    events.Subscriber
	logger zerolog.Logger

	// trigger holds at most one pending refresh request
	trigger chan struct{}

	mu       sync.Mutex
	filter   Filter
	gen      uint64
	cancel   context.CancelFunc
	current  *State
	seq      uint64
	subs     map[int]chan State
	nextSub  int
	finished bool
}

// New creates a controller showing active notes with no search text.
func New(repo Repository, bus events.Subscriber, logger zerolog.Logger) *Controller {
	return &Controller{
		repo:    repo,
		bus:     bus,
		logger:  logger.With().Str("component", "live").Logger(),
		trigger: make(chan struct{}, 1),
		filter:  Filter{Status: ops.StatusActive},
		subs:    make(map[int]chan State),
	}
}

// Run derives the first state, then re-derives after every store change and
// filter change until ctx is done. Subscriber channels are closed on return.
func (c *Controller) Run(ctx context.Context) error {
	changes, unsubscribe := c.bus.Subscribe()
	defer unsubscribe()
	defer c.finish()

	c.refresh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-changes:
			if !ok {
				// Bus closed; filter changes still work
				changes = nil
				continue
			}
			c.logger.Debug().Str("event_id", e.ID).Str("type", string(e.Type)).Msg("store changed")
			c.refresh()
		case <-c.trigger:
			c.derive(ctx)
		}
	}
}

// Subscribe returns a channel of states and a func to stop receiving them.
// The channel holds only the newest undelivered state. If a state has
// already been derived, it is delivered immediately.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.finished {
		close(ch)
		return ch, func() {}
	}
	if c.current != nil {
		ch <- *c.current
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Current returns the latest state and whether one has been derived yet.
func (c *Controller) Current() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return State{}, false
	}
	return *c.current, true
}

// Filter returns the current filter.
func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// UpdateSearchQuery replaces the search text. Any derivation still running
// for the previous text is cancelled and its result dropped.
func (c *Controller) UpdateSearchQuery(query string) {
	c.setFilter(func(f *Filter) { f.Query = query })
}

// SetStatus switches between active and trashed notes.
func (c *Controller) SetStatus(status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != ops.StatusActive && status != ops.StatusTrashed {
		return errors.NewInvalidRequest("status must be one of: active, trashed")
	}
	c.setFilter(func(f *Filter) { f.Status = status })
	return nil
}

// SetScope narrows the view to a folder and a kind ("note" or "task").
// Blank values match everything.
func (c *Controller) SetScope(folder, kind string) error {
	kind, err := ops.ParseKind(kind)
	if err != nil {
		return err
	}
	folder = strings.TrimSpace(folder)
	c.setFilter(func(f *Filter) {
		f.Folder = folder
		f.Kind = kind
	})
	return nil
}

func (c *Controller) setFilter(update func(*Filter)) {
	c.mu.Lock()
	update(&c.filter)
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.refresh()
}

// refresh requests a derivation without blocking.
func (c *Controller) refresh() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// derive runs the current query and emits its result unless the filter
// changed in the meantime.
func (c *Controller) derive(ctx context.Context) {
	c.mu.Lock()
	gen := c.gen
	filter := c.filter
	dctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	state := State{Filter: filter}
	notes, folders, err := c.query(dctx, filter)
	if err != nil {
		jErr := errors.As(err)
		state.Error = jErr.Message
		state.Notes = []note.Note{}
		state.Folders = []string{}
	} else {
		state.Notes = notes
		state.Folders = folders
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.logger.Debug().Str("query", filter.Query).Msg("discarding stale result")
		return
	}
	c.cancel = nil
	if err != nil {
		c.logger.Error().Err(err).Str("query", filter.Query).Msg("derive failed")
	}

	c.seq++
	state.Seq = c.seq
	c.current = &state
	for _, ch := range c.subs {
		offer(ch, state)
	}
}

func (c *Controller) query(ctx context.Context, filter Filter) ([]note.Note, []string, error) {
	out, err := c.repo.Search(ctx, ops.SearchInput{
		Query:  filter.Query,
		Status: filter.Status,
		Folder: filter.Folder,
		Kind:   filter.Kind,
	})
	if err != nil {
		return nil, nil, err
	}
	folders, err := c.repo.Folders(ctx)
	if err != nil {
		return nil, nil, err
	}
	return out.Items, folders, nil
}

// offer puts s in ch, replacing an undelivered state. Callers hold c.mu,
// so offer is the only sender.
func offer(ch chan State, s State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finished = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// AddNote creates a note.
func (c *Controller) AddNote(ctx context.Context, input ops.AddInput) (*ops.AddOutput, error) {
	return c.repo.Add(ctx, input)
}

// EditNote updates a note.
func (c *Controller) EditNote(ctx context.Context, input ops.EditInput) (*ops.EditOutput, error) {
	return c.repo.Edit(ctx, input)
}

// Trash moves a note to the trash.
func (c *Controller) Trash(ctx context.Context, id int64) (*ops.TrashOutput, error) {
	return c.repo.Trash(ctx, id)
}

// Restore moves a note out of the trash.
func (c *Controller) Restore(ctx context.Context, id int64) (*ops.TrashOutput, error) {
	return c.repo.Restore(ctx, id)
}

// EmptyTrash permanently removes trashed notes.
func (c *Controller) EmptyTrash(ctx context.Context, input ops.EmptyTrashInput) (*ops.EmptyTrashOutput, error) {
	return c.repo.EmptyTrash(ctx, input)
}

// PermanentlyDelete removes a note for good.
func (c *Controller) PermanentlyDelete(ctx context.Context, id int64) (*ops.DeleteOutput, error) {
	return c.repo.PermanentlyDelete(ctx, id)
}

// ToggleTaskCompletion flips a task's completion flag.
func (c *Controller) ToggleTaskCompletion(ctx context.Context, id int64) (*ops.ToggleOutput, error) {
	return c.repo.ToggleTaskCompletion(ctx, id)
}

// ListFolders returns the distinct folder labels.
func (c *Controller) ListFolders(ctx context.Context) ([]string, error) {
	return c.repo.Folders(ctx)
}
