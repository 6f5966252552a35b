// Package validator validates YAML test files before they are registered.
// It parses every file upfront, resolves runFlow references and reports
// cycles, unknown groups and duplicate test names.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/imtest/pkg/engine"
	"github.com/devicelab-dev/imtest/pkg/flow"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Files lists the test files to register, in discovery order.
	Files []string
	// Flows holds the parsed flow of each entry in Files.
	Flows []*flow.Flow
	// Dependencies lists files reached only through runFlow.
	Dependencies []string
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Err joins every validation error into one, or returns nil.
func (r *Result) Err() error {
	if r.IsValid() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%d invalid test file(s):\n  %s", len(r.Errors), strings.Join(msgs, "\n  "))
}

// Validator validates flow files.
type Validator struct {
	includeTags []string
	excludeTags []string
}

// New creates a new Validator.
func New(includeTags, excludeTags []string) *Validator {
	return &Validator{
		includeTags: includeTags,
		excludeTags: excludeTags,
	}
}

// validation carries state shared across the files of one Validate call.
type validation struct {
	result    *Result
	validated map[string]bool
	topLevel  map[string]bool
	names     map[string]string // test full name -> file
}

// Validate validates a file or directory.
func (v *Validator) Validate(path string) *Result {
	return v.ValidateAll([]string{path})
}

// ValidateAll validates every file or directory in paths as one set, so
// duplicate test names across them are reported.
func (v *Validator) ValidateAll(paths []string) *Result {
	st := &validation{
		result:    &Result{},
		validated: make(map[string]bool),
		topLevel:  make(map[string]bool),
		names:     make(map[string]string),
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			st.result.Errors = append(st.result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("cannot access: %v", err),
			})
			continue
		}

		files := []string{path}
		if info.IsDir() {
			files, err = collectFlowFiles(path)
			if err != nil {
				st.result.Errors = append(st.result.Errors, &ValidationError{
					File:    path,
					Message: fmt.Sprintf("failed to scan directory: %v", err),
				})
				continue
			}
		}

		for _, file := range files {
			v.validateFile(st, filepath.Clean(file), nil)
		}
	}

	// A file first reached through runFlow and later listed directly is a
	// test, not a dependency.
	deps := st.result.Dependencies[:0]
	for _, dep := range st.result.Dependencies {
		if !st.topLevel[dep] {
			deps = append(deps, dep)
		}
	}
	st.result.Dependencies = deps

	return st.result
}

// collectFlowFiles finds all .yaml/.yml files in a directory.
func collectFlowFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if flow.IsFlowFile(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// validateFile validates a single file and its runFlow dependencies.
func (v *Validator) validateFile(st *validation, filePath string, chain []string) {
	result := st.result

	// Check for circular dependency
	for _, ancestor := range chain {
		if ancestor == filePath {
			cycle := append(append([]string{}, chain...), filePath)
			result.Errors = append(result.Errors, &ValidationError{
				File:    filePath,
				Message: fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
			})
			return
		}
	}

	isTop := len(chain) == 0
	if st.validated[filePath] && (!isTop || st.topLevel[filePath]) {
		return
	}

	f, err := flow.ParseFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    filePath,
			Message: fmt.Sprintf("parse error: %v", err),
		})
		return
	}

	// Tag filters apply to top-level files only, not runFlow targets
	if isTop && !flow.ShouldIncludeFlow(f, v.includeTags, v.excludeTags) {
		return
	}

	if isTop {
		if !v.checkTest(st, f) {
			return
		}
		st.topLevel[filePath] = true
		result.Files = append(result.Files, filePath)
		result.Flows = append(result.Flows, f)
	} else {
		result.Dependencies = append(result.Dependencies, filePath)
	}
	if st.validated[filePath] {
		return
	}
	st.validated[filePath] = true

	newChain := append(append([]string{}, chain...), filePath)
	v.validateRunFlowSteps(st, f.Steps, filePath, newChain)
	v.validateRunFlowSteps(st, f.Config.Setup, filePath, newChain)
}

// checkTest verifies the header of a file registered as a test.
func (v *Validator) checkTest(st *validation, f *flow.Flow) bool {
	if f.Config.Group != "" {
		if g, ok := engine.ParseGroup(f.Config.Group); !ok || g == engine.GroupUnknown {
			st.result.Errors = append(st.result.Errors, &ValidationError{
				File:    f.SourcePath,
				Message: fmt.Sprintf("unknown group %q", f.Config.Group),
			})
			return false
		}
	}

	name := f.TestCategory() + "/" + f.TestName()
	if other, ok := st.names[name]; ok {
		st.result.Errors = append(st.result.Errors, &ValidationError{
			File:    f.SourcePath,
			Message: fmt.Sprintf("test %s already defined in %s", name, other),
		})
		return false
	}
	st.names[name] = f.SourcePath
	return true
}

// validateRunFlowSteps finds and validates runFlow references in steps.
func (v *Validator) validateRunFlowSteps(st *validation, steps []flow.Step, parentFile string, chain []string) {
	parentDir := filepath.Dir(parentFile)

	for _, step := range steps {
		switch s := step.(type) {
		case *flow.RunFlowStep:
			if s.File != "" && !strings.Contains(s.File, "${") {
				refPath := resolveFilePath(parentDir, s.File)
				if _, err := os.Stat(refPath); err != nil && s.Optional {
					continue
				}
				v.validateFile(st, refPath, chain)
			}
			v.validateRunFlowSteps(st, s.Steps, parentFile, chain)

		case *flow.RepeatStep:
			v.validateRunFlowSteps(st, s.Steps, parentFile, chain)
		}
	}
}

// resolveFilePath resolves a file path relative to a base directory.
func resolveFilePath(baseDir, filePath string) string {
	if filepath.IsAbs(filePath) {
		return filepath.Clean(filePath)
	}
	return filepath.Join(baseDir, filePath)
}
