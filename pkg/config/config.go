// Package config handles configuration for imtest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
)

// FileNames are looked up in order by LoadFromDir.
var FileNames = []string{"imtest.yaml", "imtest.yml"}

// Config represents the workspace configuration (imtest.yaml).
type Config struct {
	// Test selection
	Scripts     []string `yaml:"scripts"`     // Glob patterns for .js scripts and .yaml flows
	Filter      string   `yaml:"filter"`      // Test filter, see engine.Test.PassFilter
	Group       string   `yaml:"group"`       // tests, perfs or all
	IncludeTags []string `yaml:"includeTags"` // Flows must carry one of these tags
	ExcludeTags []string `yaml:"excludeTags"` // Flows carrying any of these tags are skipped

	// Script variables
	Env map[string]string `yaml:"env"`

	// Execution settings
	RunSpeed       string   `yaml:"runSpeed"` // fast, normal, cinematic
	StopOnError    bool     `yaml:"stopOnError"`
	BreakOnError   bool     `yaml:"breakOnError"`
	KeepGuiFunc    bool     `yaml:"keepGuiFunc"`
	IsolatedCtx    bool     `yaml:"isolatedContext"`
	LogToTTY       bool     `yaml:"logToTTY"`
	Verbose        string   `yaml:"verbose"`        // Level mirrored to the process log
	VerboseOnError string   `yaml:"verboseOnError"` // Level kept for failed tests
	FixedDeltaTime *float64 `yaml:"fixedDeltaTime"` // Seconds per frame

	// Simulated input
	MouseSpeed          *float64 `yaml:"mouseSpeed"`
	MouseWobble         *float64 `yaml:"mouseWobble"`
	ScrollSpeed         *float64 `yaml:"scrollSpeed"`
	TypingSpeed         *float64 `yaml:"typingSpeed"`
	ActionDelayShort    *float64 `yaml:"actionDelayShort"`
	ActionDelayStandard *float64 `yaml:"actionDelayStandard"`

	Watchdog Watchdog `yaml:"watchdog"`

	// Output
	Output string `yaml:"output"` // Report directory
	JUnit  bool   `yaml:"junit"`
}

// Watchdog holds the watchdog thresholds in seconds.
type Watchdog struct {
	Warning  *float64 `yaml:"warning"`
	KillTest *float64 `yaml:"killTest"`
	KillApp  *float64 `yaml:"killApp"`
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return &cfg, nil
}

// LoadFromDir looks for imtest.yaml or imtest.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range FileNames {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return empty config
	return &Config{}, nil
}

// ParseRunSpeed accepts the speed names, with or without a "run-" prefix.
func ParseRunSpeed(name string) (core.RunSpeed, error) {
	s, ok := core.ParseRunSpeed(strings.TrimPrefix(strings.ToLower(name), "run-"))
	if !ok {
		return s, core.ErrInvalidConfig.WithMessagef("unknown run speed %q", name)
	}
	return s, nil
}

// ParseVerbose converts a verbose level name.
func ParseVerbose(name string) (core.VerboseLevel, error) {
	l, ok := core.ParseVerboseLevel(strings.ToLower(name))
	if !ok {
		return l, core.ErrInvalidConfig.WithMessagef("unknown verbose level %q", name)
	}
	return l, nil
}

// TestGroup returns the configured group, defaulting to functional tests.
func (c *Config) TestGroup() (engine.TestGroup, error) {
	if c.Group == "" {
		return engine.GroupTests, nil
	}
	g, ok := engine.ParseGroup(c.Group)
	if !ok {
		return g, core.ErrInvalidConfig.WithMessagef("unknown test group %q", c.Group)
	}
	return g, nil
}

// Apply copies every option that is set onto io.
func (c *Config) Apply(io *engine.IO) error {
	if c.RunSpeed != "" {
		s, err := ParseRunSpeed(c.RunSpeed)
		if err != nil {
			return err
		}
		io.ConfigRunSpeed = s
	}
	if c.Verbose != "" {
		l, err := ParseVerbose(c.Verbose)
		if err != nil {
			return err
		}
		io.ConfigVerboseLevel = l
	}
	if c.VerboseOnError != "" {
		l, err := ParseVerbose(c.VerboseOnError)
		if err != nil {
			return err
		}
		io.ConfigVerboseLevelOnError = l
	}

	io.ConfigStopOnError = io.ConfigStopOnError || c.StopOnError
	io.ConfigBreakOnError = io.ConfigBreakOnError || c.BreakOnError
	io.ConfigKeepGuiFunc = io.ConfigKeepGuiFunc || c.KeepGuiFunc
	io.ConfigRunInIsolatedContext = io.ConfigRunInIsolatedContext || c.IsolatedCtx
	io.ConfigLogToTTY = io.ConfigLogToTTY || c.LogToTTY

	for _, f := range []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"fixedDeltaTime", c.FixedDeltaTime, &io.ConfigFixedDeltaTime},
		{"mouseSpeed", c.MouseSpeed, &io.MouseSpeed},
		{"mouseWobble", c.MouseWobble, &io.MouseWobble},
		{"scrollSpeed", c.ScrollSpeed, &io.ScrollSpeed},
		{"typingSpeed", c.TypingSpeed, &io.TypingSpeed},
		{"actionDelayShort", c.ActionDelayShort, &io.ActionDelayShort},
		{"actionDelayStandard", c.ActionDelayStandard, &io.ActionDelayStandard},
		{"watchdog.warning", c.Watchdog.Warning, &io.ConfigWatchdogWarning},
		{"watchdog.killTest", c.Watchdog.KillTest, &io.ConfigWatchdogKillTest},
		{"watchdog.killApp", c.Watchdog.KillApp, &io.ConfigWatchdogKillApp},
	} {
		if f.src == nil {
			continue
		}
		if *f.src < 0 {
			return core.ErrInvalidConfig.WithMessagef("%s must not be negative, got %g", f.name, *f.src)
		}
		*f.dst = *f.src
	}
	return nil
}

// ResolveScripts expands the script globs relative to dir. Patterns that
// match nothing are ignored; duplicates are removed.
func (c *Config) ResolveScripts(dir string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range c.Scripts {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(dir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, core.ErrInvalidConfig.WithMessagef("bad script pattern %q", pattern).WithCause(err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}
