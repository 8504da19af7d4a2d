package main

import (
	"fmt"
	"os"

	"github.com/hpungsan/workboard/internal/config"
	"github.com/hpungsan/workboard/internal/logger"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"add": true, "board": true, "due-soon": true, "urgent": true,
	"clear-highlight": true, "dismiss": true, "chat": true,
	"export": true, "import": true,
	"serve": true, "mcp": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
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
  __      __       _   _                      _
  \ \    / /__ _ _| |_| |__  ___  __ _ _ _ __| |
   \ \/\/ / _ \ '_| / / '_ \/ _ \/ _' | '_/ _' |
    \_/\_/\___/_| |_\_\_.__/\___/\__,_|_| \__,_|

  Student workboard with an assignment assistant

  Usage: workboard <command> [options]
         workboard --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode(os.Args) && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'workboard --help' for usage.\n")
		os.Exit(1)
	}

	if err := config.LoadDotEnv("."); err != nil {
		fatal("failed to load .env: %v", err)
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	cfg = config.ApplyEnv(cfg, os.Getenv)

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fatal("%v", err)
	}
	defer log.Sync()

	rt, err := newRuntime(baseDir, cfg, log)
	if err != nil {
		fatal("%v", err)
	}
	defer rt.Close()

	// CLI mode: known subcommand
	if isCLIMode(os.Args) {
		app := newCLIApp(rt)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			rt.Close()
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if err := rt.serveMCP(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		rt.Close()
		os.Exit(1)
	}
}
