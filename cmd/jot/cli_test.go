package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/logging"
	"github.com/hpungsan/jot/internal/note"
	"github.com/hpungsan/jot/internal/ops"
)

// setupTestEnv wires a repository over a temp database.
func setupTestEnv(t *testing.T) *appEnv {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	logger := logging.Nop()
	bus := events.NewBus(cfg.EventBuffer, logger)
	t.Cleanup(bus.Close)

	return &appEnv{
		repo:   ops.NewRepository(database, bus, ops.WithConfig(cfg), ops.WithExportsDir(db.ExportsDir(tmpDir))),
		bus:    bus,
		cfg:    cfg,
		logger: logger,
	}
}

// runCLI runs the app with args and returns what it wrote to stdout.
func runCLI(t *testing.T, env *appEnv, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := newCLIApp(env).Run(append([]string{"jot"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), runErr
}

func mustRun(t *testing.T, env *appEnv, out any, args ...string) {
	t.Helper()
	stdout, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("jot %s failed: %v", strings.Join(args, " "), err)
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
}

func addNote(t *testing.T, env *appEnv, args ...string) int64 {
	t.Helper()
	var output ops.AddOutput
	mustRun(t, env, &output, append([]string{"add"}, args...)...)
	return output.ID
}

func TestCLIAdd(t *testing.T) {
	env := setupTestEnv(t)

	var output ops.AddOutput
	mustRun(t, env, &output, "add",
		"--title=Groceries", "--content=milk, eggs", "--folder=home",
		"--task", "--due=2026-07-01", "--images=a.png, b.png",
		"--remind-at=1767225600000", "--repeat=weekly")

	if output.ID <= 0 {
		t.Fatalf("expected positive id, got %d", output.ID)
	}
	n := output.Note
	if n.Title != "Groceries" || n.Content != "milk, eggs" {
		t.Errorf("unexpected title/content: %q / %q", n.Title, n.Content)
	}
	if n.Folder == nil || *n.Folder != "home" {
		t.Errorf("expected folder=home, got %v", n.Folder)
	}
	if !n.IsTask {
		t.Error("expected is_task=true")
	}
	if n.DueDate == nil {
		t.Error("expected due date to be set")
	}
	if len(n.ImageURIs) != 2 || n.ImageURIs[1] != "b.png" {
		t.Errorf("expected 2 images, got %v", n.ImageURIs)
	}
	if n.ReminderDateTime == nil || *n.ReminderDateTime != 1767225600000 {
		t.Errorf("unexpected reminder: %v", n.ReminderDateTime)
	}
	if n.ReminderRecurrence != note.RecurrenceWeekly {
		t.Errorf("expected Weekly, got %q", n.ReminderRecurrence)
	}
}

func TestCLIAddFromStdin(t *testing.T) {
	env := setupTestEnv(t)

	oldStdin := os.Stdin
	stdinR, stdinW, _ := os.Pipe()
	os.Stdin = stdinR
	defer func() { os.Stdin = oldStdin }()

	go func() {
		_, _ = stdinW.WriteString("  piped body\n")
		stdinW.Close()
	}()

	var output ops.AddOutput
	mustRun(t, env, &output, "add", "--content=-")

	if output.Note.Content != "piped body" {
		t.Errorf("expected trimmed stdin content, got %q", output.Note.Content)
	}
}

func TestCLIEdit(t *testing.T) {
	env := setupTestEnv(t)
	id := addNote(t, env, "--title=Draft", "--content=body", "--folder=work", "--images=x.png")

	var output ops.EditOutput
	mustRun(t, env, &output, "edit", "--title=Final", "--folder=", "--images=", strconv.FormatInt(id, 10))

	if !output.Updated {
		t.Fatal("expected updated=true")
	}
	if output.Note.Title != "Final" {
		t.Errorf("expected title=Final, got %q", output.Note.Title)
	}
	if output.Note.Content != "body" {
		t.Errorf("content should be untouched, got %q", output.Note.Content)
	}
	if output.Note.Folder != nil {
		t.Errorf("expected folder cleared, got %q", *output.Note.Folder)
	}
	if len(output.Note.ImageURIs) != 0 {
		t.Errorf("expected images cleared, got %v", output.Note.ImageURIs)
	}

	t.Run("unknown id is a no-op", func(t *testing.T) {
		var out ops.EditOutput
		mustRun(t, env, &out, "edit", "--title=x", "999")
		if out.Updated {
			t.Error("expected updated=false")
		}
	})
}

func TestCLIShowListSearch(t *testing.T) {
	env := setupTestEnv(t)
	a := addNote(t, env, "--title=Café plans", "--folder=travel")
	addNote(t, env, "--title=Buy milk", "--task")

	var n note.Note
	mustRun(t, env, &n, "show", strconv.FormatInt(a, 10))
	if n.Title != "Café plans" {
		t.Errorf("expected show to return note %d, got %q", a, n.Title)
	}

	var list ops.ListOutput
	mustRun(t, env, &list, "list")
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(list.Items))
	}
	if list.Items[0].Title != "Buy milk" {
		t.Errorf("expected newest first, got %q", list.Items[0].Title)
	}

	mustRun(t, env, &list, "list", "--kind=task")
	if len(list.Items) != 1 || !list.Items[0].IsTask {
		t.Errorf("expected only the task, got %+v", list.Items)
	}

	var search ops.SearchOutput
	mustRun(t, env, &search, "search", "CAFÉ")
	if len(search.Items) != 1 || search.Items[0].ID != a {
		t.Errorf("expected case-insensitive match on note %d, got %+v", a, search.Items)
	}

	var folders struct {
		Folders []string `json:"folders"`
	}
	mustRun(t, env, &folders, "folders")
	if len(folders.Folders) != 1 || folders.Folders[0] != "travel" {
		t.Errorf("expected [travel], got %v", folders.Folders)
	}
}

func TestCLITrashLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	id := addNote(t, env, "--title=Old")
	idStr := strconv.FormatInt(id, 10)

	mustRun(t, env, nil, "trash", idStr)

	var list ops.ListOutput
	mustRun(t, env, &list, "list", "--trashed")
	if len(list.Items) != 1 || list.Items[0].ID != id {
		t.Fatalf("expected note in trash, got %+v", list.Items)
	}

	mustRun(t, env, nil, "restore", idStr)
	mustRun(t, env, &list, "list")
	if len(list.Items) != 1 {
		t.Fatalf("expected restored note to be active, got %d", len(list.Items))
	}

	mustRun(t, env, nil, "trash", idStr)
	var purge ops.EmptyTrashOutput
	mustRun(t, env, &purge, "empty-trash")
	if purge.Purged != 1 {
		t.Errorf("expected 1 purged, got %d", purge.Purged)
	}

	if _, err := runCLI(t, env, "show", idStr); err == nil {
		t.Error("expected show of purged note to fail")
	}
}

func TestCLIDeleteAndToggle(t *testing.T) {
	env := setupTestEnv(t)
	task := addNote(t, env, "--title=Task", "--task")

	var toggled ops.ToggleOutput
	mustRun(t, env, &toggled, "toggle", strconv.FormatInt(task, 10))
	if !toggled.IsCompleted {
		t.Error("expected task to be completed after toggle")
	}

	var del ops.DeleteOutput
	mustRun(t, env, &del, "delete", strconv.FormatInt(task, 10))
	if !del.Purged {
		t.Error("expected purged=true")
	}
}

func TestCLIExportImport(t *testing.T) {
	env := setupTestEnv(t)
	addNote(t, env, "--title=One", "--folder=a")
	addNote(t, env, "--title=Two", "--folder=b")

	path := filepath.Join(t.TempDir(), "backup.yaml")
	var exported ops.ExportOutput
	mustRun(t, env, &exported, "export", "--path="+path)
	if exported.Count != 2 {
		t.Fatalf("expected 2 exported, got %d", exported.Count)
	}

	other := setupTestEnv(t)
	var imported ops.ImportOutput
	mustRun(t, other, &imported, "import", path)
	if imported.Imported != 2 {
		t.Errorf("expected 2 imported, got %d", imported.Imported)
	}

	if _, err := runCLI(t, other, "import", "--mode=merge", path); err == nil {
		t.Error("expected invalid mode to fail")
	}
}

func TestCLIRemindOnce(t *testing.T) {
	env := setupTestEnv(t)
	past := time.Now().Add(-time.Hour).UnixMilli()
	addNote(t, env, "--title=Call", "--remind-at="+strconv.FormatInt(past, 10))

	var out struct {
		Fired int `json:"fired"`
	}
	mustRun(t, env, &out, "remind", "--once")
	if out.Fired != 1 {
		t.Errorf("expected 1 fired, got %d", out.Fired)
	}

	mustRun(t, env, &out, "remind", "--once")
	if out.Fired != 0 {
		t.Errorf("one-shot reminder should not fire twice, got %d", out.Fired)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"show not found", []string{"show", "42"}},
		{"missing id", []string{"trash"}},
		{"non-numeric id", []string{"restore", "abc"}},
		{"blank note", []string{"add", "--title=  ", "--content="}},
		{"invalid time", []string{"add", "--title=x", "--due=tomorrow"}},
		{"invalid recurrence", []string{"add", "--title=x", "--repeat=hourly"}},
		{"invalid duration", []string{"empty-trash", "--older-than=invalid"}},
		{"invalid kind", []string{"list", "--kind=memo"}},
		{"import without path", []string{"import"}},
		{"invalid schedule", []string{"remind", "--schedule=not a spec"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cli.Exit writes to stderr, so just verify the error is returned
			if _, err := runCLI(t, env, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"jot"}, expected: false},
		{name: "add command", args: []string{"jot", "add"}, expected: true},
		{name: "serve command", args: []string{"jot", "serve"}, expected: true},
		{name: "mcp command", args: []string{"jot", "mcp"}, expected: true},
		{name: "help flag", args: []string{"jot", "--help"}, expected: true},
		{name: "short version flag", args: []string{"jot", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"jot", "--unknown"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if got := isCLIMode(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"jot"}, expected: false},
		{name: "help flag", args: []string{"jot", "--help"}, expected: true},
		{name: "short help flag", args: []string{"jot", "-h"}, expected: true},
		{name: "version flag", args: []string{"jot", "--version"}, expected: true},
		{name: "help subcommand", args: []string{"jot", "help"}, expected: true},
		{name: "add command is not help", args: []string{"jot", "add"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if got := isHelpOrVersion(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"7d", 7, false},
		{"0d", 0, false},
		{"30d", 30, false},
		{"7", 0, true},
		{"7h", 0, true},
		{"-1d", 0, true},
		{"xd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	rfc := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	local := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)

	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1767225600000", 1767225600000, false},
		{"2026-03-01T09:30:00Z", rfc.UnixMilli(), false},
		{"2026-03-01 09:30", local.UnixMilli(), false},
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local).UnixMilli(), false},
		{"next tuesday", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseTime(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	if got := parseList(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := parseList(" , ,"); got != nil {
		t.Errorf("expected nil for blank entries, got %v", got)
	}
	got := parseList("a.png, b.png,,c.png ")
	if len(got) != 3 || got[0] != "a.png" || got[2] != "c.png" {
		t.Errorf("unexpected list: %v", got)
	}
}

// TestReadStdinWithLimit tests the readStdin function respects size limits.
func TestReadStdinWithLimit(t *testing.T) {
	withStdin := func(t *testing.T, content string) {
		t.Helper()
		r, w, err := os.Pipe()
		if err != nil {
			t.Fatalf("Failed to create pipe: %v", err)
		}
		go func() {
			_, _ = w.WriteString(content)
			w.Close()
		}()
		oldStdin := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = oldStdin })
	}

	t.Run("within limit", func(t *testing.T) {
		withStdin(t, "small content")
		result, err := readStdin(1000)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "small content" {
			t.Errorf("expected %q, got %q", "small content", result)
		}
	})

	t.Run("exceeds limit", func(t *testing.T) {
		withStdin(t, strings.Repeat("x", 100))
		if _, err := readStdin(50); err == nil {
			t.Error("expected error for content exceeding limit, got nil")
		}
	})
}
