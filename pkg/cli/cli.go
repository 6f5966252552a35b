// Package cli provides the command-line interface for imtest.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/imtest/pkg/config"
	"github.com/devicelab-dev/imtest/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to imtest.yaml (default: ./imtest.yaml if present)",
		EnvVars: []string{"IMTEST_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"IMTEST_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Write the process log as JSON lines to this file",
		EnvVars: []string{"IMTEST_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:    "save-log",
		Usage:   "Write the process log to <home>/logs (ignored with --log-file)",
		EnvVars: []string{"IMTEST_SAVE_LOG"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "imtest",
		Usage:   "Automated GUI tests for immediate-mode applications",
		Version: Version,
		Description: `imtest drives an immediate-mode GUI frame by frame, injecting
mouse and keyboard input to run registered tests.

Examples:
  imtest run
  imtest run tests/*.js --filter menus
  imtest run --speed normal --output ./reports --junit
  imtest --save-log run tests/
  imtest list --group all`,
		Flags:  GlobalFlags,
		Before: setupLogging,
		After: func(*cli.Context) error {
			logger.Close()
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			listCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) error {
	if c.Bool("no-ansi") {
		colorsEnabled = false
	}
	if path := c.String("log-file"); path != "" {
		return logger.Init(path)
	}
	if c.Bool("save-log") {
		path, err := config.NewLogFile(time.Now())
		if err != nil {
			return err
		}
		return logger.Init(path)
	}
	if c.Bool("verbose") {
		return logger.InitConsole("debug")
	}
	return nil
}
