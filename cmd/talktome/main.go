package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/teamtalk/talktome/internal/config"
	"github.com/teamtalk/talktome/internal/db"
	"github.com/teamtalk/talktome/internal/logger"
	"github.com/teamtalk/talktome/internal/openai"
	"github.com/teamtalk/talktome/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "mcp": true, "record": true,
	"folders": true, "meetings": true, "transcript": true, "ics": true,
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
	// Global flags precede the subcommand.
	if arg == "--home" || len(arg) > 7 && arg[:7] == "--home=" {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _ _    _
  | |_ __ _| | | _| |_ ___   _ __ ___   ___
  | __/ _' | | |/ / __/ _ \ | '_ ' _ \ / _ \
  | || (_| | |   <| || (_) || | | | | |  __/
   \__\__,_|_|_|\_\\__\___/ |_| |_| |_|\___|

  Meeting notes: record, transcribe, summarize

  Usage: talktome <command> [options]
         talktome serve
         talktome --help

  MCP server mode requires piped input.`)
}

// appEnv holds the process-wide dependencies shared by commands. Fields are
// filled lazily so that help and record run without a database.
type appEnv struct {
	home string
	cfg  *config.Config
	log  zerolog.Logger
	db   *sql.DB
	gw   ops.Gateway
}

// load reads .env and config and builds the logger.
func (e *appEnv) load(home string) error {
	if e.cfg != nil {
		return nil
	}
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not determine home directory: %w", err)
		}
		home = filepath.Join(userHome, ".talktome")
	}
	e.home = home

	if err := config.LoadDotEnv("."); err != nil {
		return err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.log = log
	if e.gw == nil {
		e.gw = openai.New(openai.OptionsFromConfig(cfg))
	}
	return nil
}

// openDB initializes the database under the home directory.
func (e *appEnv) openDB() error {
	if e.db != nil {
		return nil
	}
	database, err := db.Init(e.home)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, e.cfg)
	e.db = database
	return nil
}

func (e *appEnv) close() {
	if e.db != nil {
		e.db.Close()
		e.db = nil
	}
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	args := os.Args
	if !isCLIMode() {
		// Unknown argument + terminal → show error (don't start MCP server)
		if len(os.Args) >= 2 && isTerminal() {
			fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
			fmt.Fprintf(os.Stderr, "Run 'talktome --help' for usage.\n")
			os.Exit(1)
		}
		// MCP server mode (default)
		args = []string{os.Args[0], "mcp"}
	}

	env := &appEnv{}
	defer env.close()

	app := newCLIApp(env)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		env.close()
		os.Exit(1)
	}
}
