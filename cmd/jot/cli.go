package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/errors"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/ops"
	"github.com/hpungsan/jot/internal/reminder"
	"github.com/hpungsan/jot/internal/web"
)

// appEnv carries the wired dependencies shared by every command.
// It is nil for --help and --version, so commands only touch it in Action.
type appEnv struct {
	repo   *ops.Repository
	bus    *events.Bus
	cfg    *config.Config
	logger zerolog.Logger
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "jot",
		Usage:   "Local notes and tasks",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(env),
			editCmd(env),
			showCmd(env),
			listCmd(env),
			searchCmd(env),
			trashCmd(env),
			restoreCmd(env),
			deleteCmd(env),
			emptyTrashCmd(env),
			toggleCmd(env),
			foldersCmd(env),
			exportCmd(env),
			importCmd(env),
			remindCmd(env),
			serveCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// noteFlags are shared by add and edit.
func noteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title"},
		&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Note content (\"-\" reads stdin)"},
		&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Folder label (empty for unfiled)"},
		&cli.BoolFlag{Name: "task", Usage: "Make the note a task"},
		&cli.BoolFlag{Name: "completed", Usage: "Mark the task completed"},
		&cli.StringFlag{Name: "due", Usage: "Task due date (RFC 3339, YYYY-MM-DD[ HH:MM] or epoch ms)"},
		&cli.StringFlag{Name: "remind-at", Usage: "Reminder time (same formats as --due)"},
		&cli.StringFlag{Name: "repeat", Usage: "Reminder recurrence: Daily|Weekly|Monthly|Yearly"},
		&cli.StringFlag{Name: "images", Usage: "Comma-separated image URIs"},
		&cli.StringFlag{Name: "audio", Usage: "Audio file path"},
		&cli.StringFlag{Name: "formatting", Usage: "Opaque text formatting metadata"},
	}
}

func addCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Create a note (content from --content or stdin)",
		Flags: noteFlags(),
		Action: func(c *cli.Context) error {
			content, err := contentArg(c, env.cfg)
			if err != nil {
				return outputError(err)
			}

			input := ops.AddInput{
				Title:              c.String("title"),
				Content:            content,
				IsTask:             c.Bool("task"),
				IsCompleted:        c.Bool("completed"),
				ImageURIs:          parseList(c.String("images")),
				ReminderRecurrence: c.String("repeat"),
			}
			if c.IsSet("folder") {
				input.Folder = stringPtr(c.String("folder"))
			}
			if c.IsSet("audio") {
				input.AudioFilePath = stringPtr(c.String("audio"))
			}
			if c.IsSet("formatting") {
				input.TextFormatting = stringPtr(c.String("formatting"))
			}
			if input.DueDate, err = timeFlag(c, "due"); err != nil {
				return outputError(err)
			}
			if input.ReminderDateTime, err = timeFlag(c, "remind-at"); err != nil {
				return outputError(err)
			}

			output, err := env.repo.Add(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func editCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a note; only the given flags change (empty values clear optional fields)",
		ArgsUsage: "<id>",
		Flags:     noteFlags(),
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.EditInput{ID: id}
			if c.IsSet("title") {
				input.Title = stringPtr(c.String("title"))
			}
			if c.IsSet("content") {
				content, err := contentArg(c, env.cfg)
				if err != nil {
					return outputError(err)
				}
				input.Content = &content
			}
			if c.IsSet("folder") {
				input.Folder = stringPtr(c.String("folder"))
			}
			if c.IsSet("task") {
				input.IsTask = boolPtr(c.Bool("task"))
			}
			if c.IsSet("completed") {
				input.IsCompleted = boolPtr(c.Bool("completed"))
			}
			if c.IsSet("images") {
				input.ImageURIs = parseList(c.String("images"))
				if input.ImageURIs == nil {
					input.ImageURIs = []string{}
				}
			}
			if c.IsSet("audio") {
				input.AudioFilePath = stringPtr(c.String("audio"))
			}
			if c.IsSet("formatting") {
				input.TextFormatting = stringPtr(c.String("formatting"))
			}
			if c.IsSet("repeat") {
				input.ReminderRecurrence = stringPtr(c.String("repeat"))
			}
			if input.DueDate, err = clearableTimeFlag(c, "due"); err != nil {
				return outputError(err)
			}
			if input.ReminderDateTime, err = clearableTimeFlag(c, "remind-at"); err != nil {
				return outputError(err)
			}

			output, err := env.repo.Edit(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a note by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			n, err := env.repo.Get(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(n)
		},
	}
}

// filterFlags are shared by list and search.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "trashed", Usage: "Show trashed notes instead of active ones"},
		&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Filter by folder"},
		&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Filter by kind: note|task"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Max results (0 for all)"},
		&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Skip N results"},
	}
}

func statusFlag(c *cli.Context) string {
	if c.Bool("trashed") {
		return ops.StatusTrashed
	}
	return ops.StatusActive
}

func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes, most recently modified first",
		Flags: filterFlags(),
		Action: func(c *cli.Context) error {
			output, err := env.repo.List(c.Context, ops.ListInput{
				Status: statusFlag(c),
				Folder: c.String("folder"),
				Kind:   c.String("kind"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search titles and content, ignoring case",
		ArgsUsage: "<query...>",
		Flags:     filterFlags(),
		Action: func(c *cli.Context) error {
			output, err := env.repo.Search(c.Context, ops.SearchInput{
				Query:  strings.Join(c.Args().Slice(), " "),
				Status: statusFlag(c),
				Folder: c.String("folder"),
				Kind:   c.String("kind"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// idCmd builds a command that runs a single-note operation by id.
func idCmd(name, usage string, run func(ctx context.Context, id int64) (any, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := run(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func trashCmd(env *appEnv) *cli.Command {
	return idCmd("trash", "Move a note to the trash", func(ctx context.Context, id int64) (any, error) {
		return env.repo.Trash(ctx, id)
	})
}

func restoreCmd(env *appEnv) *cli.Command {
	return idCmd("restore", "Restore a note from the trash", func(ctx context.Context, id int64) (any, error) {
		return env.repo.Restore(ctx, id)
	})
}

func deleteCmd(env *appEnv) *cli.Command {
	return idCmd("delete", "Permanently delete a note", func(ctx context.Context, id int64) (any, error) {
		return env.repo.PermanentlyDelete(ctx, id)
	})
}

func toggleCmd(env *appEnv) *cli.Command {
	return idCmd("toggle", "Flip a task between open and completed", func(ctx context.Context, id int64) (any, error) {
		return env.repo.ToggleTaskCompletion(ctx, id)
	})
}

func emptyTrashCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "empty-trash",
		Usage: "Permanently delete trashed notes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only notes trashed longer ago than this (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			var input ops.EmptyTrashInput
			if s := c.String("older-than"); s != "" {
				days, err := parseDuration(s)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}
			output, err := env.repo.EmptyTrash(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func foldersCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "folders",
		Usage: "List distinct folder labels",
		Action: func(c *cli.Context) error {
			folders, err := env.repo.Folders(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"folders": folders})
		},
	}
}

func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export notes to a YAML backup",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output path (default: exports dir)"},
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Only export this folder"},
			&cli.BoolFlag{Name: "include-trashed", Usage: "Include trashed notes"},
		},
		Action: func(c *cli.Context) error {
			output, err := env.repo.Export(c.Context, ops.ExportInput{
				Path:           c.String("path"),
				Folder:         c.String("folder"),
				IncludeTrashed: c.Bool("include-trashed"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import notes from a YAML backup",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "append", Usage: "Import mode: append|replace"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return outputError(errors.NewInvalidRequest("backup path is required"))
			}
			output, err := env.repo.Import(c.Context, ops.ImportInput{
				Path: path,
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func remindCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Fire due reminders on a schedule",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Fire due reminders once and exit"},
			&cli.StringFlag{Name: "schedule", Usage: "Cron spec (default: reminder_schedule from config)"},
		},
		Action: func(c *cli.Context) error {
			sched := reminder.New(env.repo, nil, env.logger)

			if c.Bool("once") {
				fired, err := sched.Tick(c.Context)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"fired": fired})
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			spec := c.String("schedule")
			if spec == "" {
				spec = env.cfg.ReminderSchedule
			}
			if err := sched.Start(ctx, spec); err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
}

func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default: web_bind from config)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default: web_port from config)"},
			&cli.BoolFlag{Name: "no-reminders", Usage: "Do not run the reminder scheduler alongside the UI"},
		},
		Action: func(c *cli.Context) error {
			cfg := *env.cfg
			if c.IsSet("bind") {
				cfg.WebBind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.WebPort = c.Int("port")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !c.Bool("no-reminders") {
				sched := reminder.New(env.repo, nil, env.logger)
				if err := sched.Start(ctx, cfg.ReminderSchedule); err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				defer sched.Stop()
			}

			srv, err := web.NewServer(env.repo, env.bus, &cfg, Version, env.logger)
			if err != nil {
				return outputError(err)
			}
			if err := web.Run(ctx, srv, env.logger); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools over stdio",
		Action: func(_ *cli.Context) error {
			return runMCP(env)
		},
	}
}

// outputJSON writes JSON output to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	jErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", jErr.Code, jErr.Message), 1)
}

// idArg parses the first positional argument as a note id.
func idArg(c *cli.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest("note id must be a positive integer")
	}
	return id, nil
}

// contentArg returns --content, reading stdin when it is "-" or when the
// flag is absent and input is piped.
func contentArg(c *cli.Context, cfg *config.Config) (string, error) {
	fromStdin := c.String("content") == "-" || (!c.IsSet("content") && stdinHasData())
	if !fromStdin {
		return c.String("content"), nil
	}
	// Four bytes per character covers any UTF-8 input within the note limit
	return readStdin(int64(cfg.NoteMaxChars) * 4)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads stdin, refusing input larger than limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseList splits a comma-separated string, dropping blank entries.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			items = append(items, t)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}

// parseTime accepts epoch milliseconds, RFC 3339, or "2006-01-02 15:04" and
// "2006-01-02" in local time.
func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid time %q (want RFC 3339, YYYY-MM-DD[ HH:MM] or epoch ms)", s))
}

// timeFlag returns nil when the flag is unset or empty.
func timeFlag(c *cli.Context, name string) (*int64, error) {
	s := c.String(name)
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	ms, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &ms, nil
}

// clearableTimeFlag maps an explicitly empty flag to 0, which edit treats as clear.
func clearableTimeFlag(c *cli.Context, name string) (*int64, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	if strings.TrimSpace(c.String(name)) == "" {
		var zero int64
		return &zero, nil
	}
	return timeFlag(c, name)
}

func stringPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
