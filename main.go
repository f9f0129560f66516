package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

const (
	Version = "1.0.0"
	AppName = "Mood Journal Server"
)

// envLoaded records whether a .env file was read at startup
var envLoaded bool

func main() {
	envLoaded = loadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEnv reads .env from the working directory when present
func loadEnv() bool {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
		return false
	}
	return true
}

// newCommand builds the command tree. Running without a subcommand serves.
func newCommand() *cli.Command {
	serve := serveCommand()

	return &cli.Command{
		Name:    "moodjournal",
		Usage:   AppName + ": diary, accounts and a memory game over REST, WebSocket and MCP",
		Version: Version,
		Flags:   append(globalFlags(), serveFlags()...),
		Action:  serve.Action,
		Commands: []*cli.Command{
			serve,
			mcpCommand(),
			validateCommand(),
			analyzeCommand(),
			autoplayCommand(),
		},
	}
}

// globalFlags are shared by every command
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "config-dir",
			Value:   "configs",
			Usage:   "Directory containing game presets",
			Sources: cli.EnvVars("CONFIG_DIR"),
		},
		&cli.StringFlag{
			Name:    "store",
			Value:   "memory",
			Usage:   "Storage driver: memory, file, sqlite or postgres",
			Sources: cli.EnvVars("STORE_DRIVER"),
		},
		&cli.StringFlag{
			Name:    "store-dsn",
			Usage:   "Directory (file), database path (sqlite) or connection string (postgres)",
			Sources: cli.EnvVars("STORE_DSN"),
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "Enable debug logging",
			Sources: cli.EnvVars("DEBUG"),
		},
		&cli.BoolFlag{
			Name:    "log-console",
			Usage:   "Write human readable logs instead of JSON",
			Sources: cli.EnvVars("LOG_CONSOLE"),
		},
	}
}
