package note

import (
	"reflect"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestImageURIs_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		encoded *string
		decoded []string
	}{
		{
			name:    "two entries",
			input:   []string{"a", "b"},
			encoded: strPtr("a,b"),
			decoded: []string{"a", "b"},
		},
		{
			name:    "entries are trimmed",
			input:   []string{"  file:///a.png ", "content://b"},
			encoded: strPtr("file:///a.png,content://b"),
			decoded: []string{"file:///a.png", "content://b"},
		},
		{
			name:    "blank entries dropped",
			input:   []string{"a", "", "  ", "b"},
			encoded: strPtr("a,b"),
			decoded: []string{"a", "b"},
		},
		{
			name:    "nil list",
			input:   nil,
			encoded: nil,
			decoded: nil,
		},
		{
			name:    "empty list",
			input:   []string{},
			encoded: nil,
			decoded: nil,
		},
		{
			name:    "all blank",
			input:   []string{" ", ""},
			encoded: nil,
			decoded: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeImageURIs(tt.input)
			if (encoded == nil) != (tt.encoded == nil) {
				t.Fatalf("EncodeImageURIs(%q) = %v, want %v", tt.input, encoded, tt.encoded)
			}
			if encoded != nil && *encoded != *tt.encoded {
				t.Errorf("EncodeImageURIs(%q) = %q, want %q", tt.input, *encoded, *tt.encoded)
			}

			decoded := DecodeImageURIs(encoded)
			if !reflect.DeepEqual(decoded, tt.decoded) {
				t.Errorf("DecodeImageURIs(%v) = %#v, want %#v", encoded, decoded, tt.decoded)
			}
		})
	}
}

func TestDecodeImageURIs_StoredValues(t *testing.T) {
	tests := []struct {
		stored string
		want   []string
	}{
		{"", nil},
		{",,,", nil},
		{" a , ,b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		got := DecodeImageURIs(&tt.stored)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DecodeImageURIs(%q) = %#v, want %#v", tt.stored, got, tt.want)
		}
	}
}

func TestParseRecurrence(t *testing.T) {
	tests := []struct {
		input   string
		want    Recurrence
		wantErr bool
	}{
		{"", RecurrenceNone, false},
		{"  ", RecurrenceNone, false},
		{"Daily", RecurrenceDaily, false},
		{"weekly", RecurrenceWeekly, false},
		{"MONTHLY", RecurrenceMonthly, false},
		{" Yearly ", RecurrenceYearly, false},
		{"hourly", RecurrenceNone, true},
	}

	for _, tt := range tests {
		got, err := ParseRecurrence(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRecurrence(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRecurrence(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRecurrence_Next(t *testing.T) {
	base := time.Date(2026, time.January, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		r    Recurrence
		want time.Time
		ok   bool
	}{
		{RecurrenceDaily, time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC), true},
		{RecurrenceWeekly, time.Date(2026, time.February, 7, 9, 0, 0, 0, time.UTC), true},
		// AddDate normalizes Feb 31 to Mar 3
		{RecurrenceMonthly, time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC), true},
		{RecurrenceYearly, time.Date(2027, time.January, 31, 9, 0, 0, 0, time.UTC), true},
		{RecurrenceNone, base, false},
	}

	for _, tt := range tests {
		got, ok := tt.r.Next(base)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("%q.Next() = %v, %v; want %v, %v", tt.r, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRecurrence_NextAfterSkipsMissed(t *testing.T) {
	fired := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)

	got, ok := RecurrenceDaily.NextAfter(fired, now)
	if !ok {
		t.Fatal("NextAfter() ok = false")
	}
	want := time.Date(2026, time.March, 5, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextAfter() = %v, want %v", got, want)
	}

	if _, ok := RecurrenceNone.NextAfter(fired, now); ok {
		t.Error("NextAfter() on none should report ok = false")
	}
}

func TestRecurrence_NextAfterDistantPast(t *testing.T) {
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	starts := []time.Time{
		time.UnixMilli(MinTimestamp).UTC(),
		time.UnixMilli(-1 << 60).UTC(),
		time.Date(1970, time.January, 31, 8, 30, 0, 0, time.UTC),
	}

	for _, r := range []Recurrence{RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly} {
		for _, start := range starts {
			got, ok := r.NextAfter(start, now)
			if !ok {
				t.Fatalf("%q.NextAfter(%v) ok = false", r, start)
			}
			if !got.After(now) {
				t.Errorf("%q.NextAfter(%v) = %v, not after now", r, start, got)
			}
			// no more than one period past now
			if prev := r.advance(got, -1); prev.After(now) {
				t.Errorf("%q.NextAfter(%v) = %v, skipped an occurrence at %v", r, start, got, prev)
			}
			if got.Hour() != start.Hour() || got.Minute() != start.Minute() {
				t.Errorf("%q.NextAfter(%v) = %v, time of day changed", r, start, got)
			}
		}
	}
}

func TestRecurrence_NextAfterMatchesStepping(t *testing.T) {
	start := time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

	for _, r := range []Recurrence{RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly} {
		want, _ := r.Next(start)
		for !want.After(now) {
			want, _ = r.Next(want)
		}
		got, _ := r.NextAfter(start, now)
		if !got.Equal(want) {
			t.Errorf("%q.NextAfter() = %v, want %v", r, got, want)
		}
	}
}

func TestValidTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want bool
	}{
		{0, true},
		{1_800_000_000_000, true},
		{MinTimestamp, true},
		{MaxTimestamp, true},
		{MinTimestamp - 1, false},
		{MaxTimestamp + 1, false},
		{-1 << 60, false},
	}

	for _, tt := range tests {
		if got := ValidTimestamp(tt.ms); got != tt.want {
			t.Errorf("ValidTimestamp(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestCleanFolder(t *testing.T) {
	tests := []struct {
		name  string
		input *string
		want  *string
	}{
		{"nil", nil, nil},
		{"blank", strPtr("   "), nil},
		{"trimmed", strPtr("  Work  "), strPtr("Work")},
		{"collapse whitespace", strPtr("Side\t  Projects"), strPtr("Side Projects")},
		{"case preserved", strPtr("Groceries"), strPtr("Groceries")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanFolder(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("CleanFolder() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("CleanFolder() = %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank("", "") {
		t.Error("IsBlank(\"\", \"\") = false")
	}
	if !IsBlank("  ", "\n\t") {
		t.Error("whitespace-only title and content should be blank")
	}
	if IsBlank("Buy milk", "") {
		t.Error("title-only note should not be blank")
	}
	if IsBlank("", "body") {
		t.Error("content-only note should not be blank")
	}
}

func TestNote_Matches(t *testing.T) {
	n := &Note{Title: "Buy Milk", Content: "Été au marché"}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"milk", true},
		{"BUY", true},
		{"été", true},
		{"ÉTÉ", true},
		{"bread", false},
	}

	for _, tt := range tests {
		if got := n.Matches(tt.query); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestNote_Accessors(t *testing.T) {
	n := &Note{}
	if n.Status() != "active" || n.Kind() != "note" || n.FolderName() != "" {
		t.Errorf("zero note: status=%q kind=%q folder=%q", n.Status(), n.Kind(), n.FolderName())
	}

	n = &Note{IsDeleted: true, IsTask: true, Folder: strPtr("Home")}
	if n.Status() != "trashed" || n.Kind() != "task" || n.FolderName() != "Home" {
		t.Errorf("trashed task: status=%q kind=%q folder=%q", n.Status(), n.Kind(), n.FolderName())
	}
}
