package main

import (
	"fmt"
	"os"

	"github.com/hpungsan/jot/internal/config"
	"github.com/hpungsan/jot/internal/db"
	"github.com/hpungsan/jot/internal/events"
	"github.com/hpungsan/jot/internal/logging"
	"github.com/hpungsan/jot/internal/mcp"
	"github.com/hpungsan/jot/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"add": true, "edit": true, "show": true, "list": true, "search": true,
	"trash": true, "restore": true, "delete": true, "empty-trash": true,
	"toggle": true, "folders": true,
	"export": true, "import": true,
	"remind": true, "serve": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
       _       _
      (_) ___ | |_
      | |/ _ \| __|
      | | (_) | |_
     _/ |\___/ \__|
    |__/

  Local notes and tasks

  Usage: jot <command> [options]
         jot --help

  MCP server mode requires piped input.`)
}

// fail reports an error on stderr and returns the process exit code.
func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return 1
}

func main() {
	os.Exit(run())
}

// run executes jot for os.Args and returns the exit code.
// Deferred cleanup has completed by the time it returns.
func run() int {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return 0
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			return fail("%v", err)
		}
		return 0
	}

	// A missing .env is fine
	_ = config.LoadDotEnv(".env")

	baseDir, err := config.BaseDir()
	if err != nil {
		return fail("could not determine data directory: %v", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		return fail("failed to load config: %v", err)
	}

	logger := logging.Stderr(cfg.LogLevel)

	database, err := db.Init(baseDir)
	if err != nil {
		return fail("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	bus := events.NewBus(cfg.EventBuffer, logger)
	defer bus.Close()

	env := &appEnv{
		repo: ops.NewRepository(database, bus,
			ops.WithConfig(cfg),
			ops.WithExportsDir(db.ExportsDir(baseDir)),
		),
		bus:    bus,
		cfg:    cfg,
		logger: logger,
	}

	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.Run(os.Args); err != nil {
			return fail("%v", err)
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'jot --help' for usage.\n")
		return 1
	}

	if err := runMCP(env); err != nil {
		return fail("%v", err)
	}
	return 0
}

// runMCP serves the MCP tools over stdio.
func runMCP(env *appEnv) error {
	if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
		env.logger.Warn().Strs("tools", unknown).Msg("ignoring unknown disabled_tools entries")
	}
	return mcp.Run(env.repo, env.cfg, Version)
}
