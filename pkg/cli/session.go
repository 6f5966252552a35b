package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devicelab-dev/imtest/pkg/config"
	"github.com/devicelab-dev/imtest/pkg/demo"
	"github.com/devicelab-dev/imtest/pkg/engine"
	"github.com/devicelab-dev/imtest/pkg/flow"
	"github.com/devicelab-dev/imtest/pkg/headless"
	"github.com/devicelab-dev/imtest/pkg/jsengine"
	"github.com/devicelab-dev/imtest/pkg/logger"
	"github.com/devicelab-dev/imtest/pkg/report"
	"github.com/devicelab-dev/imtest/pkg/validator"
)

// session is one engine bound to the headless demo application, with the
// requested tests registered.
type session struct {
	ui     *headless.Context
	engine *engine.Engine
	app    *demo.App
	js     *jsengine.Engine
}

func newSession(cfg *RunConfig) (*session, error) {
	e := engine.New()
	if cfg.Workspace != nil {
		if err := cfg.Workspace.Apply(&e.IO); err != nil {
			return nil, err
		}
	}
	if cfg.RunSpeed != "" {
		speed, err := config.ParseRunSpeed(cfg.RunSpeed)
		if err != nil {
			return nil, err
		}
		e.IO.ConfigRunSpeed = speed
	}

	ui := headless.New()
	e.IO.ScreenCaptureFunc = ui.Capture
	ui.SetHooks(e)
	if err := e.Start(ui); err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &session{ui: ui, engine: e, app: demo.New(ui)}
	if cfg.Builtin {
		demo.Register(e, s.app)
	}

	scripts, flows := splitScripts(cfg.Scripts)

	s.js = jsengine.New(e)
	s.js.SetVariables(cfg.Env)
	if err := s.js.LoadFiles(scripts); err != nil {
		s.close()
		return nil, err
	}
	if err := s.registerFlows(flows, cfg); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// registerFlows validates the YAML flows as one set and registers the ones
// that pass the tag filters.
func (s *session) registerFlows(paths []string, cfg *RunConfig) error {
	if len(paths) == 0 {
		return nil
	}
	result := validator.New(cfg.IncludeTags, cfg.ExcludeTags).ValidateAll(paths)
	if err := result.Err(); err != nil {
		return err
	}
	for _, f := range result.Flows {
		if _, err := flow.Register(s.engine, f, cfg.Env); err != nil {
			return err
		}
	}
	if skipped := len(paths) - len(result.Files); skipped > 0 {
		logger.Info("%d flow(s) skipped by tag filters", skipped)
	}
	return nil
}

// splitScripts separates YAML flows from JavaScript files. Workspace config
// files are never treated as flows.
func splitScripts(paths []string) (scripts, flows []string) {
	for _, p := range paths {
		switch {
		case isConfigFile(p):
			continue
		case flow.IsFlowFile(p):
			flows = append(flows, p)
		default:
			scripts = append(scripts, p)
		}
	}
	return scripts, flows
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range config.FileNames {
		if base == name {
			return true
		}
	}
	return false
}

func (s *session) host() report.Host {
	name, _ := os.Hostname()
	size := s.ui.IO().DisplaySize
	return report.Host{
		Name:        name,
		GUI:         "headless",
		DisplaySize: fmt.Sprintf("%.0fx%.0f", size.X, size.Y),
	}
}

func (s *session) close() {
	s.js.Close()
	s.engine.Stop()
}
