// Package flow parses YAML test files: an optional header document followed
// by a list of GUI steps, registered with the engine as regular tests.
package flow

import (
	"path/filepath"
	"strings"
)

// DefaultCategory is used when a flow header names no category.
const DefaultCategory = "flows"

// Flow represents a parsed YAML test file.
type Flow struct {
	SourcePath string // Path to the source file
	Config     Config // Header document
	Steps      []Step // Steps to execute
}

// Config represents the flow header.
type Config struct {
	Name     string            `yaml:"name"`
	Category string            `yaml:"category"`
	Group    string            `yaml:"group"`
	Tags     []string          `yaml:"tags"`
	Ref      string            `yaml:"ref"` // Base reference set before the first step
	NoWarmUp bool              `yaml:"noWarmUp"`
	Env      map[string]string `yaml:"env"`
	Setup    []Step            `yaml:"-"` // Runs before the GUI warm-up frames
}

// TestName returns the name the flow registers under: the header name, or
// the file name without its extension.
func (f *Flow) TestName() string {
	if f.Config.Name != "" {
		return f.Config.Name
	}
	base := filepath.Base(f.SourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TestCategory returns the header category or DefaultCategory.
func (f *Flow) TestCategory() string {
	if f.Config.Category != "" {
		return f.Config.Category
	}
	return DefaultCategory
}
