package reminder

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/note"
	"github.com/hpungsan/jot/internal/ops"
)

type recordingNotifier struct {
	mu    sync.Mutex
	fired []int64
	fail  map[int64]bool
}

func (r *recordingNotifier) Notify(_ context.Context, n note.Note, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[n.ID] {
		return fmt.Errorf("device unavailable")
	}
	r.fired = append(r.fired, n.ID)
	return nil
}

func (r *recordingNotifier) ids() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.fired...)
}

func setupRepo(t *testing.T) *ops.Repository {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return ops.NewRepository(database, nil)
}

func addReminder(t *testing.T, r *ops.Repository, title string, at time.Time, recurrence string) int64 {
	t.Helper()
	ms := at.UnixMilli()
	out, err := r.Add(context.Background(), ops.AddInput{
		Title:              title,
		ReminderDateTime:   &ms,
		ReminderRecurrence: recurrence,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return out.ID
}

func TestTick(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	once := addReminder(t, repo, "call back", now.Add(-time.Hour), "")
	daily := addReminder(t, repo, "stretch", now.Add(-2*time.Hour), "Daily")
	later := addReminder(t, repo, "later", now.Add(time.Hour), "")

	trashed := addReminder(t, repo, "trashed", now.Add(-time.Hour), "")
	if _, err := repo.Trash(ctx, trashed); err != nil {
		t.Fatalf("Trash() error = %v", err)
	}

	notifier := &recordingNotifier{}
	s := New(repo, notifier, zerolog.Nop(), WithClock(func() time.Time { return now }))

	fired, err := s.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if fired != 2 {
		t.Errorf("fired = %d, want 2", fired)
	}
	got := notifier.ids()
	if len(got) != 2 || got[0] != daily || got[1] != once {
		t.Errorf("notified %v, want [%d %d] in due order", got, daily, once)
	}

	n, _ := repo.Get(ctx, once)
	if n.ReminderDateTime != nil {
		t.Errorf("one-shot reminder not cleared: %v", *n.ReminderDateTime)
	}
	n, _ = repo.Get(ctx, daily)
	wantNext := now.Add(-2 * time.Hour).AddDate(0, 0, 1).UnixMilli()
	if n.ReminderDateTime == nil || *n.ReminderDateTime != wantNext {
		t.Errorf("daily next = %v, want %d", n.ReminderDateTime, wantNext)
	}
	n, _ = repo.Get(ctx, later)
	if n.ReminderDateTime == nil {
		t.Error("future reminder was cleared")
	}

	// Nothing is due anymore
	fired, err = s.Tick(ctx)
	if err != nil || fired != 0 {
		t.Errorf("second Tick() = %d, %v; want 0, nil", fired, err)
	}
	if len(notifier.ids()) != 2 {
		t.Errorf("reminders fired twice: %v", notifier.ids())
	}
}

func TestTick_NotifyFailureRetries(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	id := addReminder(t, repo, "flaky", now.Add(-time.Minute), "")
	notifier := &recordingNotifier{fail: map[int64]bool{id: true}}
	s := New(repo, notifier, zerolog.Nop(), WithClock(func() time.Time { return now }))

	fired, err := s.Tick(ctx)
	if err != nil || fired != 0 {
		t.Fatalf("Tick() = %d, %v; want 0, nil", fired, err)
	}
	n, _ := repo.Get(ctx, id)
	if n.ReminderDateTime == nil {
		t.Fatal("reminder advanced despite failed notification")
	}

	notifier.fail = nil
	fired, _ = s.Tick(ctx)
	if fired != 1 {
		t.Errorf("retry fired = %d, want 1", fired)
	}
}

func TestStart(t *testing.T) {
	repo := setupRepo(t)
	s := New(repo, nil, zerolog.Nop())

	if err := s.Start(context.Background(), "not a schedule"); err == nil {
		t.Error("Start() with invalid spec should fail")
	}

	if err := s.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background(), "@every 1h"); err == nil {
		t.Error("second Start() should fail")
	}
	s.Stop()
	s.Stop()
}

func TestLogNotifier(t *testing.T) {
	at := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC).UnixMilli()
	n := note.Note{ID: 7, Title: "Dentist", ReminderDateTime: &at, ReminderRecurrence: note.RecurrenceYearly}

	var buf bytes.Buffer
	l := LogNotifier{Logger: zerolog.New(&buf)}
	if err := l.Notify(context.Background(), n, time.Now()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"note_id":7`, `"title":"Dentist"`, `"recurrence":"Yearly"`, `"message":"reminder"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %s missing %s", out, want)
		}
	}
}
