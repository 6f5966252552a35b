package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/imtest/pkg/config"
	"github.com/devicelab-dev/imtest/pkg/engine"
	"github.com/devicelab-dev/imtest/pkg/executor"
	"github.com/devicelab-dev/imtest/pkg/logger"
	"github.com/devicelab-dev/imtest/pkg/report"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run GUI tests against the built-in demo application",
	ArgsUsage: "[script.js|flow.yaml|dir]...",
	Description: `Run the built-in test suite, JavaScript test scripts and YAML flows.

Scripts come from the arguments and from the "scripts" globs of
imtest.yaml. Files ending in .yaml or .yml are validated and registered
as flows; anything else is loaded as JavaScript. Without any script the
built-in suite runs.

Reports are generated in the output directory:
  - Default: <home>/reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/ (no timestamp subfolder)

Examples:
  imtest run
  imtest run tests/menus.js tests/windows.js
  imtest run tests/*.js --builtin --filter "menus,-recent"
  imtest run flows/ --include-tags smoke --exclude-tags slow
  imtest run tests/ --watch`,
	Flags: []cli.Flag{
		// Selection
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Comma-separated test filter (-term excludes, ^term anchors)",
			EnvVars: []string{"IMTEST_FILTER"},
		},
		&cli.StringFlag{
			Name:  "group",
			Usage: "Test group: tests, perfs or all",
		},
		&cli.BoolFlag{
			Name:  "builtin",
			Usage: "Also run the built-in demo suite when scripts are given",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only register flows with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Skip flows with these tags",
		},

		// Script variables
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Script variables (KEY=VALUE)",
		},

		// Execution
		&cli.StringFlag{
			Name:    "speed",
			Usage:   "Run speed: fast, normal or cinematic",
			EnvVars: []string{"IMTEST_RUN_SPEED"},
		},
		&cli.BoolFlag{
			Name:  "stop-on-error",
			Usage: "Stop the queue after the first failed test",
		},
		&cli.IntFlag{
			Name:  "max-frames",
			Usage: "Abort the run after this many frames (0 = default)",
		},

		// Output
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for reports (default: <home>/reports)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --output)",
		},
		&cli.BoolFlag{
			Name:  "junit",
			Usage: "Also write junit.xml",
		},
		&cli.BoolFlag{
			Name:  "no-report",
			Usage: "Don't write any report files",
		},

		// Watch mode
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "Re-run when a script changes",
		},
	},
	Action: runTests,
}

// RunConfig holds the complete test run configuration.
type RunConfig struct {
	// Selection
	Scripts     []string
	Builtin     bool
	Filter      string
	Group       engine.TestGroup
	IncludeTags []string
	ExcludeTags []string

	// Script variables
	Env map[string]string

	// Execution
	RunSpeed    string
	StopOnError bool
	MaxFrames   int

	// Output
	OutputDir  string // Final resolved output directory, empty for no report
	OutputBase string // --output as given
	Flatten    bool
	JUnit      bool

	Watch     bool
	Workspace *config.Config
	BaseDir   string // Directory the workspace config was read from
}

func runTests(c *cli.Context) error {
	cfg, err := buildRunConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch {
		return watchAndRun(ctx, cfg)
	}

	result, err := executeRun(ctx, cfg)
	if err != nil {
		return err
	}
	if result.FailedTests > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// buildRunConfig merges imtest.yaml with the command line. Flags win.
func buildRunConfig(c *cli.Context) (*RunConfig, error) {
	ws, baseDir, err := loadWorkspace(getString(c, "config"))
	if err != nil {
		return nil, err
	}

	scripts, err := ws.ResolveScripts(baseDir)
	if err != nil {
		return nil, err
	}
	for _, arg := range c.Args().Slice() {
		expanded, err := expandScriptArg(arg)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, expanded...)
	}

	if c.IsSet("group") {
		ws.Group = c.String("group")
	}
	group, err := ws.TestGroup()
	if err != nil {
		return nil, err
	}

	filter := ws.Filter
	if c.IsSet("filter") {
		filter = c.String("filter")
	}

	env := make(map[string]string)
	for k, v := range ws.Env {
		env[k] = v
	}
	for k, v := range parseEnvVars(c.StringSlice("env")) {
		env[k] = v // CLI overrides workspace config
	}

	includeTags, excludeTags := ws.IncludeTags, ws.ExcludeTags
	if c.IsSet("include-tags") {
		includeTags = c.StringSlice("include-tags")
	}
	if c.IsSet("exclude-tags") {
		excludeTags = c.StringSlice("exclude-tags")
	}

	cfg := &RunConfig{
		Scripts:     scripts,
		Builtin:     len(scripts) == 0 || c.Bool("builtin"),
		IncludeTags: includeTags,
		ExcludeTags: excludeTags,
		Filter:      filter,
		Group:       group,
		Env:         env,
		RunSpeed:    c.String("speed"),
		StopOnError: c.Bool("stop-on-error") || ws.StopOnError,
		MaxFrames:   c.Int("max-frames"),
		JUnit:       c.Bool("junit") || ws.JUnit,
		Watch:       c.Bool("watch"),
		Workspace:   ws,
		BaseDir:     baseDir,
	}
	if cfg.Watch && len(cfg.Scripts) == 0 {
		return nil, fmt.Errorf("--watch requires at least one script")
	}

	if !c.Bool("no-report") {
		output := c.String("output")
		if output == "" {
			output = ws.Output
		}
		cfg.OutputBase, cfg.Flatten = output, c.Bool("flatten")
		cfg.OutputDir, err = resolveOutputDir(output, cfg.Flatten)
		if err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadWorkspace loads the config named by path, or looks for imtest.yaml
// in the working directory.
func loadWorkspace(path string) (*config.Config, string, error) {
	if path != "" {
		ws, err := config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		return ws, filepath.Dir(path), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	ws, err := config.LoadFromDir(cwd)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	return ws, cwd, nil
}

// scriptPatterns are the files a directory argument expands to.
var scriptPatterns = []string{"*.js", "*.yaml", "*.yml"}

// expandScriptArg turns a directory argument into the scripts and flows it
// holds.
func expandScriptArg(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", arg, err)
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}
	var files []string
	for _, pattern := range scriptPatterns {
		matches, err := filepath.Glob(filepath.Join(arg, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .js scripts or .yaml flows in %s", arg)
	}
	return files, nil
}

// resolveOutputDir determines the output directory based on flags.
// - No --output: <home>/reports/<timestamp>/
// - --output given: <output>/<timestamp>/
// - --output + --flatten: <output>/ (error if --output not given)
func resolveOutputDir(output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}

	baseDir := output
	if baseDir == "" {
		baseDir = config.GetReportsDir()
	}

	if flatten {
		return filepath.Clean(baseDir), nil
	}

	// Create timestamp-based subfolder
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(baseDir, timestamp), nil
}

// executeRun runs one batch in a fresh session and prints the results.
func executeRun(ctx context.Context, cfg *RunConfig) (*executor.RunResult, error) {
	s, err := newSession(cfg)
	if err != nil {
		return nil, err
	}
	defer s.close()

	runner := executor.New(s.engine, s.ui, s.app.Draw, executor.RunnerConfig{
		OutputDir:     cfg.OutputDir,
		JUnit:         cfg.JUnit,
		Filter:        cfg.Filter,
		Group:         cfg.Group,
		StopOnFail:    cfg.StopOnError,
		MaxFrames:     cfg.MaxFrames,
		Host:          s.host(),
		CI:            detectCI(),
		RunnerVersion: Version,
		OnTestStart:   onTestStart,
		OnTestEnd:     onTestEnd,
	})

	logger.Info("run started: %d scripts, builtin=%v, filter=%q", len(cfg.Scripts), cfg.Builtin, cfg.Filter)
	result, err := runner.Run(ctx)
	if errors.Is(err, executor.ErrNoTests) {
		return nil, fmt.Errorf("no test matches filter %q in group %s", cfg.Filter, cfg.Group)
	}
	if result != nil {
		printSummary(result)
		if cfg.OutputDir != "" {
			fmt.Printf("  Report: %s\n\n", cfg.OutputDir)
		}
	}
	return result, err
}

// detectCI reads build information from well-known CI environment
// variables. It returns nil outside CI.
func detectCI() *report.CI {
	switch {
	case os.Getenv("GITHUB_ACTIONS") == "true":
		ci := &report.CI{
			Provider: "github",
			BuildID:  os.Getenv("GITHUB_RUN_ID"),
			Branch:   os.Getenv("GITHUB_REF_NAME"),
			Commit:   os.Getenv("GITHUB_SHA"),
		}
		if server, repo := os.Getenv("GITHUB_SERVER_URL"), os.Getenv("GITHUB_REPOSITORY"); server != "" && repo != "" {
			ci.BuildURL = fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, ci.BuildID)
		}
		return ci
	case os.Getenv("GITLAB_CI") == "true":
		return &report.CI{
			Provider: "gitlab",
			BuildID:  os.Getenv("CI_PIPELINE_ID"),
			BuildURL: os.Getenv("CI_PIPELINE_URL"),
			Branch:   os.Getenv("CI_COMMIT_REF_NAME"),
			Commit:   os.Getenv("CI_COMMIT_SHA"),
		}
	case os.Getenv("CI") != "":
		return &report.CI{Provider: "generic"}
	}
	return nil
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}

// getString reads a flag from the command or, for global flags, from the
// parent context.
func getString(c *cli.Context, name string) string {
	for _, ctx := range c.Lineage() {
		if ctx != nil && ctx.IsSet(name) {
			return ctx.String(name)
		}
	}
	return c.String(name)
}
