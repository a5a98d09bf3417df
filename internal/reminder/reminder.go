// Package reminder fires due note reminders on a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hpungsan/jot/internal/note"
	"github.com/hpungsan/jot/internal/ops"
)

// Repository is the part of ops.Repository the scheduler uses.
type Repository interface {
	DueReminders(ctx context.Context, before time.Time) ([]note.Note, error)
	AdvanceReminder(ctx context.Context, id int64, firedAt time.Time) (*ops.AdvanceOutput, error)
}

// Notifier delivers a fired reminder.
type Notifier interface {
	Notify(ctx context.Context, n note.Note, firedAt time.Time) error
}

// LogNotifier writes fired reminders to a logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify logs the reminder at info level.
func (l LogNotifier) Notify(_ context.Context, n note.Note, firedAt time.Time) error {
	evt := l.Logger.Info().
		Int64("note_id", n.ID).
		Str("title", n.Title).
		Time("fired_at", firedAt)
	if n.ReminderDateTime != nil {
		evt = evt.Time("due", time.UnixMilli(*n.ReminderDateTime))
	}
	if n.ReminderRecurrence != note.RecurrenceNone {
		evt = evt.Str("recurrence", string(n.ReminderRecurrence))
	}
	evt.Msg("reminder")
	return nil
}

// Scheduler runs Tick on a cron schedule.
type Scheduler struct {
	repo     Repository
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a scheduler. A nil notifier logs reminders.
func New(repo Repository, notifier Notifier, logger zerolog.Logger, opts ...Option) *Scheduler {
	logger = logger.With().Str("component", "reminder").Logger()
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	s := &Scheduler{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules Tick with the given cron spec (standard five fields or a
// descriptor such as "@every 1m"). Overlapping ticks are skipped.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("reminder scheduler already started")
	}

	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error().Err(err).Msg("reminder tick failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info().Str("schedule", spec).Msg("reminder scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info().Msg("reminder scheduler stopped")
}

// Tick fires every reminder due at or before now and advances it.
// A reminder whose notification fails stays due and is retried next tick.
// Returns the number of reminders fired.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.repo.DueReminders(ctx, now)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, n := range due {
		if err := s.notifier.Notify(ctx, n, now); err != nil {
			s.logger.Warn().Err(err).Int64("note_id", n.ID).Msg("notify failed")
			continue
		}
		if _, err := s.repo.AdvanceReminder(ctx, n.ID, now); err != nil {
			return fired, err
		}
		fired++
	}

	if fired > 0 {
		s.logger.Debug().Int("fired", fired).Msg("reminders fired")
	}
	return fired, nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
