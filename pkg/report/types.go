// Package report provides JSON-based test reporting with real-time updates.
//
// Architecture:
//   - report.json: Main index file (small, frequently updated, mutex-protected)
//   - tests/test-XXX.json: Per-test detail files (log, errors, attachments)
//   - assets/test-XXX/: Per-test artifacts (screenshots)
//   - junit.xml: Optional JUnit export written once the run ends
//
// The index file serves as single source of truth for status and change tracking.
// Consumers poll report.json and only fetch changed test details as needed.
package report

import (
	"time"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped
}

// StatusOf maps an engine test status to a report status. Tests that never
// ran or were aborted are reported as skipped.
func StatusOf(s core.TestStatus) Status {
	switch s {
	case core.StatusSuccess:
		return StatusPassed
	case core.StatusError:
		return StatusFailed
	case core.StatusRunning, core.StatusSuspended:
		return StatusRunning
	case core.StatusQueued:
		return StatusPending
	default:
		return StatusSkipped
	}
}

// ============================================================================
// INDEX (report.json)
// ============================================================================

// Index is the main report file that binds everything together.
// It contains minimal info for efficient polling and change detection.
type Index struct {
	Version     string      `json:"version"`
	UpdateSeq   uint64      `json:"updateSeq"`
	Status      Status      `json:"status"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	LastUpdated time.Time   `json:"lastUpdated"`
	Host        Host        `json:"host"`
	CI          *CI         `json:"ci,omitempty"`
	Runner      RunnerInfo  `json:"runner"`
	Summary     Summary     `json:"summary"`
	Tests       []TestEntry `json:"tests"`
}

// Host describes the application the tests ran against.
type Host struct {
	Name        string `json:"name"`
	GUI         string `json:"gui"` // GUI backend, e.g. headless
	DisplaySize string `json:"displaySize,omitempty"`
}

// CI contains CI/CD build information.
type CI struct {
	Provider string `json:"provider,omitempty"`
	BuildID  string `json:"buildId,omitempty"`
	BuildURL string `json:"buildUrl,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Commit   string `json:"commit,omitempty"`
}

// RunnerInfo contains imtest information.
type RunnerInfo struct {
	Version  string `json:"version"`
	RunSpeed string `json:"runSpeed"`
	Filter   string `json:"filter,omitempty"`
}

// Summary contains aggregated counts.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// TestEntry is the index entry for a test (minimal info).
type TestEntry struct {
	Index       int        `json:"index"` // Queue position
	ID          string     `json:"id"`
	Category    string     `json:"category"`
	Name        string     `json:"name"`
	SourceFile  string     `json:"sourceFile,omitempty"`
	SourceLine  int        `json:"sourceLine,omitempty"`
	DataFile    string     `json:"dataFile"`  // Path to test detail JSON
	AssetsDir   string     `json:"assetsDir"` // Path to assets directory
	Status      Status     `json:"status"`
	UpdateSeq   uint64     `json:"updateSeq"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Duration    *int64     `json:"duration,omitempty"` // milliseconds
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Log         LogSummary `json:"log"`
	Error       *string    `json:"error,omitempty"`
}

// LogSummary counts test log lines per severity.
type LogSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Lines    int `json:"lines"`
}

// ============================================================================
// TEST DETAIL (tests/test-XXX.json)
// ============================================================================

// TestDetail contains full test execution details.
type TestDetail struct {
	ID          string            `json:"id"`
	Category    string            `json:"category"`
	Name        string            `json:"name"`
	SourceFile  string            `json:"sourceFile,omitempty"`
	SourceLine  int               `json:"sourceLine,omitempty"`
	Status      Status            `json:"status"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     *time.Time        `json:"endTime,omitempty"`
	Duration    *int64            `json:"duration,omitempty"` // milliseconds
	Frames      int               `json:"frames"`
	Log         []LogEntry        `json:"log"`
	Errors      []Error           `json:"errors,omitempty"`
	Attachments []core.Attachment `json:"attachments,omitempty"`
}

// LogEntry is one line of the test log.
type LogEntry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Error contains error details.
type Error struct {
	Type    string `json:"type"` // assertion, item_not_found, timeout, aborted, config, scroll, panic
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ============================================================================
// UPDATE TYPES
// ============================================================================

// TestUpdate contains the fields to update in index for a test.
type TestUpdate struct {
	Status    Status
	StartTime *time.Time
	EndTime   *time.Time
	Duration  *int64
	Log       LogSummary
	Error     *string
}
