package note

import (
	"fmt"
	"strings"
	"time"
)

// Recurrence is the repeat rule of a reminder. The zero value means none.
type Recurrence string

const (
	RecurrenceNone    Recurrence = ""
	RecurrenceDaily   Recurrence = "Daily"
	RecurrenceWeekly  Recurrence = "Weekly"
	RecurrenceMonthly Recurrence = "Monthly"
	RecurrenceYearly  Recurrence = "Yearly"
)

// ParseRecurrence accepts the canonical names case-insensitively.
// Blank input yields RecurrenceNone.
func ParseRecurrence(s string) (Recurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return RecurrenceNone, nil
	case "daily":
		return RecurrenceDaily, nil
	case "weekly":
		return RecurrenceWeekly, nil
	case "monthly":
		return RecurrenceMonthly, nil
	case "yearly":
		return RecurrenceYearly, nil
	}
	return RecurrenceNone, fmt.Errorf("unknown recurrence %q (want Daily, Weekly, Monthly or Yearly)", s)
}

// Next returns the occurrence following t. ok is false for RecurrenceNone.
// Months and years use calendar arithmetic (time.AddDate).
func (r Recurrence) Next(t time.Time) (next time.Time, ok bool) {
	switch r {
	case RecurrenceDaily:
		return t.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return t.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return t.AddDate(0, 1, 0), true
	case RecurrenceYearly:
		return t.AddDate(1, 0, 0), true
	}
	return t, false
}

// NextAfter advances t by r until it is strictly after now.
// Missed occurrences are skipped, not replayed. The bulk of the gap is
// crossed in one calendar jump, so a stale t costs no more than a recent one.
func (r Recurrence) NextAfter(t, now time.Time) (time.Time, bool) {
	next, ok := r.Next(t)
	if !ok {
		return t, false
	}
	if n := r.periodsBetween(t, now) - 2; n > 1 {
		next = r.advance(t, n)
	}
	for !next.After(now) {
		next, _ = r.Next(next)
	}
	return next, true
}

// periodsBetween approximates how many whole periods of r fit from t to now.
// Durations are not used: they overflow past roughly 292 years.
func (r Recurrence) periodsBetween(t, now time.Time) int64 {
	switch r {
	case RecurrenceDaily:
		return (now.Unix() - t.Unix()) / 86400
	case RecurrenceWeekly:
		return (now.Unix() - t.Unix()) / (7 * 86400)
	case RecurrenceMonthly:
		return int64(now.Year()-t.Year())*12 + int64(now.Month()-t.Month())
	case RecurrenceYearly:
		return int64(now.Year() - t.Year())
	}
	return 0
}

// advance returns t moved forward by n periods of r.
func (r Recurrence) advance(t time.Time, n int64) time.Time {
	switch r {
	case RecurrenceDaily:
		return t.AddDate(0, 0, int(n))
	case RecurrenceWeekly:
		return t.AddDate(0, 0, int(7*n))
	case RecurrenceMonthly:
		return t.AddDate(0, int(n), 0)
	case RecurrenceYearly:
		return t.AddDate(int(n), 0, 0)
	}
	return t
}
