package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
)

// BuilderConfig contains configuration for building the report skeleton.
type BuilderConfig struct {
	OutputDir     string // Base output directory for reports
	Host          Host   // Application information
	CI            *CI    // CI/CD information (optional)
	RunnerVersion string
	RunSpeed      core.RunSpeed
	Filter        string
}

// BuildSkeleton creates the initial report structure from the queued tests.
// All tests are set to "pending" status.
func BuildSkeleton(tests []*engine.Test, cfg BuilderConfig) (*Index, []TestDetail) {
	now := time.Now()

	index := &Index{
		Version:     Version,
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Host:        cfg.Host,
		CI:          cfg.CI,
		Runner: RunnerInfo{
			Version:  cfg.RunnerVersion,
			RunSpeed: cfg.RunSpeed.String(),
			Filter:   cfg.Filter,
		},
		Summary: Summary{
			Total:   len(tests),
			Pending: len(tests),
		},
		Tests: make([]TestEntry, len(tests)),
	}

	details := make([]TestDetail, len(tests))
	for i, t := range tests {
		id := TestID(i)
		index.Tests[i] = TestEntry{
			Index:      i,
			ID:         id,
			Category:   t.Category,
			Name:       t.Name,
			SourceFile: t.SourceFile,
			SourceLine: t.SourceLine,
			DataFile:   filepath.Join("tests", id+".json"),
			AssetsDir:  filepath.Join("assets", id),
			Status:     StatusPending,
		}
		details[i] = TestDetail{
			ID:         id,
			Category:   t.Category,
			Name:       t.Name,
			SourceFile: t.SourceFile,
			SourceLine: t.SourceLine,
			Status:     StatusPending,
			Log:        []LogEntry{},
		}
	}
	return index, details
}

// TestID returns the report ID of the i-th queued test.
func TestID(i int) string {
	return fmt.Sprintf("test-%03d", i)
}

// WriteSkeleton writes the initial skeleton to disk.
// Creates report.json and all test detail files with pending status.
func WriteSkeleton(outputDir string, index *Index, details []TestDetail) error {
	if err := ensureDir(filepath.Join(outputDir, "tests")); err != nil {
		return fmt.Errorf("create tests dir: %w", err)
	}
	if err := ensureDir(filepath.Join(outputDir, "assets")); err != nil {
		return fmt.Errorf("create assets dir: %w", err)
	}

	for _, d := range details {
		path := filepath.Join(outputDir, "tests", d.ID+".json")
		if err := atomicWriteJSON(path, d); err != nil {
			return fmt.Errorf("write test %s: %w", d.ID, err)
		}
	}

	if err := atomicWriteJSON(filepath.Join(outputDir, "report.json"), index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// logEntries converts a test log, keeping lines at or below maxLevel.
func logEntries(log *engine.TestLog, maxLevel core.VerboseLevel) []LogEntry {
	entries := make([]LogEntry, 0, len(log.Lines))
	for n, ln := range log.Lines {
		if ln.Level > maxLevel {
			continue
		}
		entries = append(entries, LogEntry{Level: ln.Level.String(), Text: log.Line(n)})
	}
	return entries
}

func logSummary(log *engine.TestLog) LogSummary {
	return LogSummary{
		Errors:   log.CountPerLevel[core.VerboseError],
		Warnings: log.CountPerLevel[core.VerboseWarning],
		Lines:    len(log.Lines),
	}
}

func convertErrors(errs []*core.ExecutionError) []Error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]Error, len(errs))
	for i, e := range errs {
		out[i] = Error{
			Type:    e.Category.String(),
			Code:    e.Code,
			Message: e.Message,
			File:    e.File,
			Line:    e.Line,
		}
	}
	return out
}
