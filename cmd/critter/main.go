package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/engine"
	"github.com/hpungsan/critter/internal/mcp"
	"github.com/hpungsan/critter/internal/telemetry"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"status": true, "list": true, "seen": true, "photo": true,
	"open": true, "eggs": true, "hatch": true, "warm": true,
	"evolve": true, "breed": true, "cooldowns": true, "recycle": true,
	"buy": true, "export": true, "import": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
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

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
            _  _    _
   ___ _ _ (_)| |_ | |_  ___  _ _
  / __| '_|| ||  _||  _|/ -_)| '_|
  \___|_|  |_| \__| \__|\___||_|

  Collect, hatch, breed and evolve creatures

  Usage: critter <command> [options]
         critter --help

  MCP server mode requires piped input.`)
}

// baseDir returns CRITTER_HOME, or ~/.critter when it is unset.
func baseDir(e config.Env) (string, error) {
	if e.Home != "" {
		return e.Home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".critter"), nil
}

// loadConfig reads config.json from dir, overlays the environment, and
// validates the result.
func loadConfig(dir string, e config.Env) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg = config.ApplyEnv(cfg, e)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown disabled_tools: %s\n", strings.Join(unknown, ", "))
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		fmt.Fprintf(os.Stderr, "warning: unknown disabled_types: %s\n", strings.Join(unknown, ", "))
	}
	return cfg, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening the game
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'critter --help' for usage.\n")
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run opens the game, dispatches to the CLI or the MCP server, and saves
// the game on the way out.
func run() (err error) {
	ctx := context.Background()

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	dir, err := baseDir(env)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, env)
	if err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(ctx, env)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	// stdout carries JSON results or the MCP protocol; logs go to stderr.
	logger := log.New(os.Stderr, "critter: ", log.LstdFlags)

	eng, err := engine.Open(ctx, dir, cfg, engine.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open game: %w", err)
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to save game: %w", cerr)
		}
	}()

	// CLI mode: known subcommand
	if isCLIMode() {
		return newCLIApp(eng, logger).Run(os.Args)
	}

	// MCP server mode (default). Timers keep capsules regenerating and the
	// game autosaving while the session is open.
	if err := eng.Start(ctx); err != nil {
		return err
	}
	return mcp.Run(eng.Presenter(), cfg, Version)
}
