package live_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/live"
	"github.com/hpungsan/jot/internal/ops"
)

const waitTimeout = 5 * time.Second

type fixture struct {
	db   *sql.DB
	repo *ops.Repository
	ctl  *live.Controller
	done chan error
}

// start wires a real store, bus and controller. wrap lets a test put a
// fake in front of the repository.
func start(t *testing.T, wrap func(*ops.Repository) live.Repository) *fixture {
	t.Helper()

	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	bus := events.NewBus(16, zerolog.Nop())
	t.Cleanup(bus.Close)

	repo := ops.NewRepository(database, bus)
	var lr live.Repository = repo
	if wrap != nil {
		lr = wrap(repo)
	}

	ctl := live.New(lr, bus, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &fixture{db: database, repo: repo, ctl: ctl, done: done}
}

// waitFor reads states until match returns true.
func waitFor(t *testing.T, ch <-chan live.State, match func(live.State) bool) live.State {
	t.Helper()
	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()
	for {
		select {
		case s, ok := <-ch:
			require.True(t, ok, "state channel closed")
			if match(s) {
				return s
			}
		case <-timer.C:
			t.Fatal("timed out waiting for state")
		}
	}
}

func titles(s live.State) []string {
	out := make([]string, 0, len(s.Notes))
	for _, n := range s.Notes {
		out = append(out, n.Title)
	}
	return out
}

func TestController_InitialState(t *testing.T) {
	f := start(t, nil)

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()

	s := waitFor(t, ch, func(live.State) bool { return true })
	require.Equal(t, live.Filter{Status: ops.StatusActive}, s.Filter)
	require.Empty(t, s.Notes)
	require.NotNil(t, s.Notes)
	require.Empty(t, s.Error)
}

func TestController_FollowsStoreChanges(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()

	out, err := f.ctl.AddNote(ctx, ops.AddInput{Title: "Buy milk", IsTask: true, Folder: strPtr("Errands")})
	require.NoError(t, err)

	s := waitFor(t, ch, func(s live.State) bool { return len(s.Notes) == 1 })
	require.Equal(t, "Buy milk", s.Notes[0].Title)
	require.Equal(t, []string{"Errands"}, s.Folders)

	_, err = f.ctl.ToggleTaskCompletion(ctx, out.ID)
	require.NoError(t, err)
	waitFor(t, ch, func(s live.State) bool { return len(s.Notes) == 1 && s.Notes[0].IsCompleted })

	_, err = f.ctl.Trash(ctx, out.ID)
	require.NoError(t, err)
	waitFor(t, ch, func(s live.State) bool { return len(s.Notes) == 0 })

	require.NoError(t, f.ctl.SetStatus("trashed"))
	s = waitFor(t, ch, func(s live.State) bool { return s.Filter.Status == ops.StatusTrashed })
	require.Equal(t, []string{"Buy milk"}, titles(s))

	_, err = f.ctl.Restore(ctx, out.ID)
	require.NoError(t, err)
	waitFor(t, ch, func(s live.State) bool { return s.Filter.Status == ops.StatusTrashed && len(s.Notes) == 0 })
}

func TestController_SearchQuery(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	_, err := f.ctl.AddNote(ctx, ops.AddInput{Title: "Grocery list", Content: "milk, eggs"})
	require.NoError(t, err)
	_, err = f.ctl.AddNote(ctx, ops.AddInput{Title: "Ideas"})
	require.NoError(t, err)

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()

	f.ctl.UpdateSearchQuery("MILK")
	s := waitFor(t, ch, func(s live.State) bool { return s.Filter.Query == "MILK" })
	require.Equal(t, []string{"Grocery list"}, titles(s))

	f.ctl.UpdateSearchQuery("  ")
	s = waitFor(t, ch, func(s live.State) bool { return s.Filter.Query == "  " })
	require.Len(t, s.Notes, 2)
}

func TestController_LatestQueryWins(t *testing.T) {
	var fake *blockingRepo
	f := start(t, func(r *ops.Repository) live.Repository {
		fake = &blockingRepo{Repository: r, started: make(chan struct{})}
		return fake
	})
	_, err := f.repo.Add(context.Background(), ops.AddInput{Title: "fast result"})
	require.NoError(t, err)

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()
	waitFor(t, ch, func(live.State) bool { return true })

	f.ctl.UpdateSearchQuery("slow")
	select {
	case <-fake.started:
	case <-time.After(waitTimeout):
		t.Fatal("slow search never started")
	}
	f.ctl.UpdateSearchQuery("fast")

	s := waitFor(t, ch, func(s live.State) bool {
		require.NotEqual(t, "slow", s.Filter.Query, "stale result emitted")
		return s.Filter.Query == "fast"
	})
	require.Equal(t, []string{"fast result"}, titles(s))
	require.True(t, fake.wasCancelled())
}

func TestController_NewSubscriberGetsCurrentState(t *testing.T) {
	f := start(t, nil)

	_, err := f.ctl.AddNote(context.Background(), ops.AddInput{Title: "first"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, ok := f.ctl.Current()
		return ok && len(s.Notes) == 1
	}, waitTimeout, 10*time.Millisecond)

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()

	select {
	case s := <-ch:
		require.Equal(t, []string{"first"}, titles(s))
	default:
		t.Fatal("no state delivered on subscribe")
	}
}

func TestController_SlowSubscriberSeesLatest(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()

	for _, title := range []string{"a", "b", "c"} {
		_, err := f.ctl.AddNote(ctx, ops.AddInput{Title: title})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool {
		s, ok := f.ctl.Current()
		return ok && len(s.Notes) == 3
	}, waitTimeout, 10*time.Millisecond)

	// Nothing was read so far, yet the buffered state is already the newest
	s := <-ch
	require.Len(t, s.Notes, 3)
}

func TestController_StorageFailure(t *testing.T) {
	f := start(t, nil)

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()
	waitFor(t, ch, func(live.State) bool { return true })

	require.NoError(t, f.db.Close())
	f.ctl.UpdateSearchQuery("anything")

	s := waitFor(t, ch, func(s live.State) bool { return s.Filter.Query == "anything" })
	require.NotEmpty(t, s.Error)
	require.Empty(t, s.Notes)
}

func TestController_Scope(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	_, err := f.ctl.AddNote(ctx, ops.AddInput{Title: "Poem", Folder: strPtr("Writing")})
	require.NoError(t, err)
	_, err = f.ctl.AddNote(ctx, ops.AddInput{Title: "Edit draft", IsTask: true, Folder: strPtr("Writing")})
	require.NoError(t, err)
	_, err = f.ctl.AddNote(ctx, ops.AddInput{Title: "Groceries", IsTask: true, Folder: strPtr("Home")})
	require.NoError(t, err)

	ch, unsubscribe := f.ctl.Subscribe()
	defer unsubscribe()

	require.NoError(t, f.ctl.SetScope(" Writing ", ""))
	s := waitFor(t, ch, func(s live.State) bool { return s.Filter.Folder == "Writing" && s.Filter.Kind == "" })
	require.ElementsMatch(t, []string{"Poem", "Edit draft"}, titles(s))
	require.ElementsMatch(t, []string{"Home", "Writing"}, s.Folders)

	require.NoError(t, f.ctl.SetScope("", "TASK"))
	s = waitFor(t, ch, func(s live.State) bool { return s.Filter.Folder == "" && s.Filter.Kind == "task" })
	require.ElementsMatch(t, []string{"Edit draft", "Groceries"}, titles(s))

	// new notes outside the scope do not show up
	_, err = f.ctl.AddNote(ctx, ops.AddInput{Title: "Haiku"})
	require.NoError(t, err)
	_, err = f.ctl.AddNote(ctx, ops.AddInput{Title: "Call plumber", IsTask: true})
	require.NoError(t, err)
	s = waitFor(t, ch, func(s live.State) bool { return len(s.Notes) == 3 })
	require.ElementsMatch(t, []string{"Call plumber", "Edit draft", "Groceries"}, titles(s))
}

func TestController_SetScopeInvalidKind(t *testing.T) {
	f := start(t, nil)
	require.NoError(t, f.ctl.SetScope("Work", "note"))
	require.Error(t, f.ctl.SetScope("Home", "reminder"))
	require.Equal(t, live.Filter{Status: ops.StatusActive, Folder: "Work", Kind: "note"}, f.ctl.Filter())
}

func TestController_SetStatusInvalid(t *testing.T) {
	f := start(t, nil)
	require.Error(t, f.ctl.SetStatus("archived"))
	require.Equal(t, ops.StatusActive, f.ctl.Filter().Status)
}

func TestController_Passthroughs(t *testing.T) {
	f := start(t, nil)
	ctx := context.Background()

	a, err := f.ctl.AddNote(ctx, ops.AddInput{Title: "a", Folder: strPtr("Work")})
	require.NoError(t, err)
	b, err := f.ctl.AddNote(ctx, ops.AddInput{Title: "b"})
	require.NoError(t, err)

	edited, err := f.ctl.EditNote(ctx, ops.EditInput{ID: a.ID, Title: strPtr("a2")})
	require.NoError(t, err)
	require.True(t, edited.Updated)

	folders, err := f.ctl.ListFolders(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Work"}, folders)

	_, err = f.ctl.Trash(ctx, b.ID)
	require.NoError(t, err)
	emptied, err := f.ctl.EmptyTrash(ctx, ops.EmptyTrashInput{})
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID}, emptied.IDs)

	deleted, err := f.ctl.PermanentlyDelete(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, deleted.Purged)
}

func TestController_RunClosesSubscribers(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	bus := events.NewBus(4, zerolog.Nop())
	defer bus.Close()
	ctl := live.New(ops.NewRepository(database, bus), bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctl.Run(ctx) }()

	ch, unsubscribe := ctl.Subscribe()
	defer unsubscribe()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	timer := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				late, _ := ctl.Subscribe()
				_, open := <-late
				require.False(t, open)
				return
			}
		case <-timer:
			t.Fatal("subscriber channel not closed")
		}
	}
}

// blockingRepo holds a search for "slow" until its context is cancelled.
type blockingRepo struct {
	*ops.Repository
	started chan struct{}
	once    sync.Once

	mu        sync.Mutex
	cancelled bool
}

func (b *blockingRepo) Search(ctx context.Context, input ops.SearchInput) (*ops.SearchOutput, error) {
	if input.Query != "slow" {
		return b.Repository.Search(ctx, input)
	}
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()

	b.mu.Lock()
	b.cancelled = true
	b.mu.Unlock()
	return nil, ctx.Err()
}

func (b *blockingRepo) wasCancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

func strPtr(s string) *string { return &s }
