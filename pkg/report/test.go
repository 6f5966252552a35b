package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
)

// TestWriter writes updates for a single test.
// Tests run one at a time, so no locking is needed here.
type TestWriter struct {
	test      *TestDetail
	path      string
	assetsDir string
	index     *IndexWriter
	logLevel  core.VerboseLevel
}

// NewTestWriter creates a new TestWriter for a test. Log lines above
// logLevel are left out of the detail file.
func NewTestWriter(detail *TestDetail, outputDir string, index *IndexWriter, logLevel core.VerboseLevel) *TestWriter {
	assetsDir := filepath.Join(outputDir, "assets", detail.ID)
	ensureDir(assetsDir)

	return &TestWriter{
		test:      detail,
		path:      filepath.Join(outputDir, "tests", detail.ID+".json"),
		assetsDir: assetsDir,
		index:     index,
		logLevel:  logLevel,
	}
}

// AssetsDir is the absolute directory screenshots of this test go to.
func (w *TestWriter) AssetsDir() string { return w.assetsDir }

// Start marks the test as started.
func (w *TestWriter) Start() {
	now := time.Now()
	w.test.StartTime = now
	w.test.Status = StatusRunning

	w.flush()
	w.index.UpdateTest(w.test.ID, &TestUpdate{
		Status:    StatusRunning,
		StartTime: &now,
	})
}

// End records the outcome of t and marks the test as complete.
func (w *TestWriter) End(t *engine.Test) {
	now := time.Now()
	out := &t.Output

	w.test.Status = StatusOf(out.Status)
	w.test.EndTime = &now
	if !w.test.StartTime.IsZero() {
		duration := now.Sub(w.test.StartTime).Milliseconds()
		w.test.Duration = &duration
	}
	w.test.Frames = out.Frames

	level := w.logLevel
	if out.Status == core.StatusError {
		level = core.VerboseTrace
	}
	w.test.Log = logEntries(&out.Log, level)
	w.test.Errors = convertErrors(out.Errors)
	w.test.Attachments = w.relativeAttachments(out.Attachments)

	w.flush()

	var errMsg *string
	if len(w.test.Errors) > 0 {
		errMsg = &w.test.Errors[0].Message
	}
	w.index.UpdateTest(w.test.ID, &TestUpdate{
		Status:   w.test.Status,
		EndTime:  &now,
		Duration: w.test.Duration,
		Log:      logSummary(&out.Log),
		Error:    errMsg,
	})
}

// SaveLog writes the complete log of t next to the screenshots and
// returns its path relative to the report directory.
func (w *TestWriter) SaveLog(t *engine.Test) (string, error) {
	filename := "test.log"
	if err := os.WriteFile(filepath.Join(w.assetsDir, filename), []byte(t.Output.Log.String()), 0o644); err != nil {
		return "", fmt.Errorf("save log: %w", err)
	}
	return filepath.Join("assets", w.test.ID, filename), nil
}

// GetTestDetail returns the current test detail (for reading).
func (w *TestWriter) GetTestDetail() *TestDetail {
	return w.test
}

// relativeAttachments rewrites attachment paths under the report directory
// so the report can be moved as a whole.
func (w *TestWriter) relativeAttachments(in []core.Attachment) []core.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]core.Attachment, len(in))
	for i, a := range in {
		if rel, err := filepath.Rel(w.assetsDir, a.Path); err == nil && filepath.IsLocal(rel) {
			a.Path = filepath.Join("assets", w.test.ID, rel)
		}
		out[i] = a
	}
	return out
}

// flush writes the test detail to disk.
func (w *TestWriter) flush() {
	atomicWriteJSON(w.path, w.test)
}
