// Package executor drives a GUI host frame by frame while the engine runs
// its queued tests, connecting test outcomes to reports.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
	"github.com/devicelab-dev/imtest/pkg/logger"
	"github.com/devicelab-dev/imtest/pkg/report"
)

// DefaultMaxFrames bounds a run when RunnerConfig.MaxFrames is zero.
const DefaultMaxFrames = 1_000_000

// abortGraceFrames is how long an aborted run may take to unwind.
const abortGraceFrames = 600

// ErrNoTests is returned when the filter matches no registered test.
var ErrNoTests = errors.New("no tests match filter")

// ErrFrameBudget is returned when tests are still running after MaxFrames.
var ErrFrameBudget = errors.New("frame budget exhausted")

// FrameDriver is the GUI host loop. Frame runs one complete frame, calling
// draw between the new-frame and end-frame hooks.
// Implementations: headless.Context.
type FrameDriver interface {
	Frame(draw func())
}

// RunnerConfig configures the test runner.
type RunnerConfig struct {
	OutputDir  string // Report output directory, empty for no report
	JUnit      bool   // Also write junit.xml
	Filter     string
	Group      engine.TestGroup
	RunFlags   core.RunFlags
	StopOnFail bool // Stop the queue on first failure
	MaxFrames  int  // 0 = DefaultMaxFrames

	// Host info for reports
	Host          report.Host
	CI            *report.CI
	RunnerVersion string

	// Live progress callbacks, called on the test coroutine
	OnTestStart func(idx, total int, t *engine.Test)
	OnTestEnd   func(idx, total int, t *engine.Test)
}

// RunResult contains the outcome of a test run.
type RunResult struct {
	Status       report.Status
	TotalTests   int
	PassedTests  int
	FailedTests  int
	SkippedTests int
	Frames       int
	Duration     int64 // Total duration in milliseconds
	TestResults  []TestResult
}

// TestResult contains the outcome of a single test.
type TestResult struct {
	ID       string
	Name     string // category/name
	Status   report.Status
	Duration int64
	Frames   int
	Error    string
}

// Runner pumps frames of a GUI host until the engine drained its queue.
type Runner struct {
	config RunnerConfig
	engine *engine.Engine
	host   FrameDriver
	draw   func()
}

// New creates a new Runner. draw submits the application GUI each frame;
// it may be nil when tests bring their own GuiFunc.
func New(e *engine.Engine, host FrameDriver, draw func(), cfg RunnerConfig) *Runner {
	return &Runner{
		config: cfg,
		engine: e,
		host:   host,
		draw:   draw,
	}
}

// Run queues the matching tests, runs them and writes the report.
// Cancelling ctx aborts the run; the remaining tests are reported skipped.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	e := r.engine
	if r.config.StopOnFail {
		e.IO.ConfigStopOnError = true
	}

	if n := e.QueueTests(r.config.Group, r.config.Filter, r.config.RunFlags); n == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoTests, r.config.Filter)
	}
	tests := append([]*engine.Test(nil), e.LastBatch()...)

	var indexWriter *report.IndexWriter
	var details []report.TestDetail
	if r.config.OutputDir != "" {
		var index *report.Index
		index, details = report.BuildSkeleton(tests, report.BuilderConfig{
			OutputDir:     r.config.OutputDir,
			Host:          r.config.Host,
			CI:            r.config.CI,
			RunnerVersion: r.config.RunnerVersion,
			RunSpeed:      e.IO.ConfigRunSpeed,
			Filter:        r.config.Filter,
		})
		if err := report.WriteSkeleton(r.config.OutputDir, index, details); err != nil {
			return nil, err
		}
		indexWriter = report.NewIndexWriter(r.config.OutputDir, index)
		defer indexWriter.Close()
		indexWriter.Start()
	}

	restore := r.installHooks(tests, details, indexWriter)
	defer restore()

	start := time.Now()
	frames, runErr := r.pump(ctx)

	if indexWriter != nil {
		indexWriter.End()
		if r.config.JUnit {
			indexWriter.Close()
			if err := report.GenerateJUnit(r.config.OutputDir); err != nil {
				logger.Warn("junit export failed: %v", err)
			}
		}
	}

	result := buildRunResult(tests)
	result.Frames = frames
	result.Duration = time.Since(start).Milliseconds()
	return result, runErr
}

// installHooks wires the engine test callbacks to the report writers and
// the progress callbacks. The returned func restores the previous hooks.
func (r *Runner) installHooks(tests []*engine.Test, details []report.TestDetail, iw *report.IndexWriter) func() {
	e := r.engine
	prevStart, prevEnd := e.OnTestStart, e.OnTestEnd
	prevArtifacts := e.IO.ArtifactsDir

	positions := make(map[*engine.Test]int, len(tests))
	for i, t := range tests {
		positions[t] = i
	}
	var writer *report.TestWriter

	e.OnTestStart = func(t *engine.Test) {
		idx := positions[t]
		if iw != nil {
			writer = report.NewTestWriter(&details[idx], r.config.OutputDir, iw, e.IO.ConfigVerboseLevelOnError)
			writer.Start()
			e.IO.ArtifactsDir = writer.AssetsDir()
		}
		if r.config.OnTestStart != nil {
			r.config.OnTestStart(idx, len(tests), t)
		}
		if prevStart != nil {
			prevStart(t)
		}
	}
	e.OnTestEnd = func(t *engine.Test) {
		idx := positions[t]
		if writer != nil {
			if t.Output.Status == core.StatusError {
				if _, err := writer.SaveLog(t); err != nil {
					logger.Warn("%v", err)
				}
			}
			writer.End(t)
			writer = nil
		}
		if r.config.OnTestEnd != nil {
			r.config.OnTestEnd(idx, len(tests), t)
		}
		if prevEnd != nil {
			prevEnd(t)
		}
	}

	return func() {
		e.OnTestStart, e.OnTestEnd = prevStart, prevEnd
		e.IO.ArtifactsDir = prevArtifacts
	}
}

// pump runs frames until the queue is drained, the context is cancelled
// or the frame budget is exhausted.
func (r *Runner) pump(ctx context.Context) (int, error) {
	e := r.engine
	maxFrames := r.config.MaxFrames
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}

	frames := 0
	aborted := false
	var err error
	for e.IsRunningTests() {
		if !aborted {
			switch {
			case ctx.Err() != nil:
				logger.Info("run cancelled, aborting remaining tests")
				err = ctx.Err()
				aborted = true
				e.Abort()
			case frames >= maxFrames:
				logger.Warn("frame budget of %d frames exhausted, aborting", maxFrames)
				err = fmt.Errorf("%w after %d frames", ErrFrameBudget, frames)
				aborted = true
				e.Abort()
			}
			if aborted {
				maxFrames = frames + abortGraceFrames
			}
		} else if frames >= maxFrames {
			return frames, err
		}
		r.host.Frame(r.draw)
		frames++
	}
	// One more frame so the coroutine returns to its idle loop.
	r.host.Frame(r.draw)
	return frames + 1, err
}

// buildRunResult aggregates test outcomes into a run result.
func buildRunResult(tests []*engine.Test) *RunResult {
	result := &RunResult{
		TotalTests:  len(tests),
		TestResults: make([]TestResult, len(tests)),
	}

	for i, t := range tests {
		out := &t.Output
		tr := TestResult{
			ID:       report.TestID(i),
			Name:     t.FullName(),
			Status:   report.StatusOf(out.Status),
			Duration: out.Duration().Milliseconds(),
			Frames:   out.Frames,
		}
		if len(out.Errors) > 0 {
			tr.Error = out.Errors[0].Message
		}
		result.TestResults[i] = tr

		switch tr.Status {
		case report.StatusPassed:
			result.PassedTests++
		case report.StatusFailed:
			result.FailedTests++
		default:
			result.SkippedTests++
		}
	}

	if result.FailedTests > 0 {
		result.Status = report.StatusFailed
	} else {
		result.Status = report.StatusPassed // All passed or skipped
	}
	return result
}
