// Package engine runs GUI tests against an immediate-mode GUI library.
//
// The GUI library calls the Engine hooks while it processes each frame.
// From PostNewFrame the engine resumes a single coroutine that pops queued
// tests and runs their TestFunc. A TestFunc drives the GUI through a
// Context and yields once per frame so the library can process the input
// it injected.
package engine

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/coroutine"
	"github.com/devicelab-dev/imtest/pkg/input"
	"github.com/devicelab-dev/imtest/pkg/locate"
	"github.com/devicelab-dev/imtest/pkg/logger"
)

// hostEscAbortDelay is how long Escape must be held on the real keyboard
// to abort a run.
const hostEscAbortDelay = 0.20

// errTestKilled unwinds a TestFunc after the watchdog gave up on it.
var errTestKilled = errors.New("test killed by watchdog")

type runTask struct {
	test  *Test
	flags core.RunFlags
}

// Engine owns the registered tests, the run queue, the locate task pool,
// the simulated input and the test coroutine. It is bound to one GUI
// context at a time and is not safe for concurrent use.
type Engine struct {
	IO IO

	// Called on the test coroutine around every test run.
	OnTestStart func(t *Test)
	OnTestEnd   func(t *Test)

	ui     core.GUIContext
	tests  []*Test
	queue  []runTask
	batch  []*Test
	pool   *locate.Pool
	inputs input.State
	co     *coroutine.Coroutine

	ctx     *Context     // Test currently running
	keptGui *Context     // Last test, when ConfigKeepGuiFunc is set
	running atomic.Value // string; name of ctx's test, safe to read off the coroutine

	started    bool
	shouldExit bool
	abort      bool

	frameCount      int
	simEscDown      bool
	hostEscDuration float64
	stallExempt     bool
}

// New creates an engine with the default configuration.
func New() *Engine {
	return &Engine{
		IO:   DefaultIO(),
		pool: locate.NewPool(),
	}
}

// Start binds the engine to ui. The GUI library must forward its hooks to
// the engine from then on.
func (e *Engine) Start(ui core.GUIContext) error {
	if e.started {
		return fmt.Errorf("engine already started")
	}
	if ui == nil {
		return fmt.Errorf("engine: nil GUI context")
	}

	e.ui = ui
	e.started = true
	e.shouldExit = false
	e.abort = false
	e.co = coroutine.New("imtest", e.coroutineMain)
	e.co.OnStall = e.onStall
	e.applyStallTimeout()
	e.inputs.Sync(ui.IO())

	if e.IO.ConfigRunInIsolatedContext {
		logger.Warn("isolated context is not supported, tests share the bound GUI context")
	}
	logger.Debug("engine started, %d tests registered", len(e.tests))
	return nil
}

// Stop aborts any running test, stops the coroutine and unbinds the GUI
// context. Tests still queued end with StatusUnknown.
func (e *Engine) Stop() {
	if !e.started {
		return
	}

	e.Abort()
	e.shouldExit = true
	e.co.Stop()

	for _, task := range e.queue {
		task.test.Output.Status = core.StatusUnknown
	}
	e.queue = nil
	e.keptGui = nil
	e.pool.Clear()
	e.IO.IsRunningTests = false
	e.started = false
	e.ui = nil
	logger.Debug("engine stopped")
}

// Started reports whether the engine is bound to a GUI context.
func (e *Engine) Started() bool { return e.started }

// UI returns the bound GUI context.
func (e *Engine) UI() core.GUIContext { return e.ui }

// Pool returns the locate task pool.
func (e *Engine) Pool() *locate.Pool { return e.pool }

// Inputs returns the simulated input state.
func (e *Engine) Inputs() *input.State { return &e.inputs }

// FrameCount returns the GUI frame count seen by the last PostNewFrame.
func (e *Engine) FrameCount() int { return e.frameCount }

// CurrentTest returns the test being run, or nil.
func (e *Engine) CurrentTest() *Test {
	if e.ctx == nil {
		return nil
	}
	return e.ctx.Test
}

// ----------------------------------------------------------------------------
// Registry and queue
// ----------------------------------------------------------------------------

// RegisterTest adds a test. The caller's source location is recorded for
// diagnostics.
func (e *Engine) RegisterTest(category, name string) *Test {
	t := &Test{
		Category: category,
		Name:     name,
		Group:    GroupTests,
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		t.SourceFile = file
		t.SourceLine = line
	}
	e.tests = append(e.tests, t)
	return t
}

// Tests returns every registered test in registration order.
func (e *Engine) Tests() []*Test {
	return e.tests
}

// FindTest returns the test whose name or "category/name" equals name.
func (e *Engine) FindTest(name string) *Test {
	for _, t := range e.tests {
		if t.Name == name || t.FullName() == name {
			return t
		}
	}
	return nil
}

// QueueTest appends t to the run queue unless it is already queued.
func (e *Engine) QueueTest(t *Test, flags core.RunFlags) {
	if e.isQueued(t) {
		return
	}
	if len(e.queue) == 0 && !e.IO.IsRunningTests {
		e.batch = e.batch[:0]
	}
	t.Output.Status = core.StatusQueued
	e.queue = append(e.queue, runTask{test: t, flags: flags})
	e.batch = append(e.batch, t)
}

// QueueTests queues every test of group passing filter and returns how
// many were queued. GroupUnknown matches all groups.
func (e *Engine) QueueTests(group TestGroup, filter string, flags core.RunFlags) int {
	n := 0
	for _, t := range e.tests {
		if group != GroupUnknown && t.Group != group {
			continue
		}
		if !t.PassFilter(filter) {
			continue
		}
		e.QueueTest(t, flags)
		n++
	}
	return n
}

// IsTestQueueEmpty reports whether no test is waiting to run.
func (e *Engine) IsTestQueueEmpty() bool {
	return len(e.queue) == 0
}

// IsRunningTests reports whether a batch is in progress.
func (e *Engine) IsRunningTests() bool {
	return e.IO.IsRunningTests || len(e.queue) > 0
}

// Abort stops the current test and skips the rest of the queue. It may
// be called from the frame driver or from a test.
func (e *Engine) Abort() {
	e.abort = true
	if e.ctx != nil {
		e.ctx.abort = true
	}
}

// ResumeSuspended resumes a test halted by Context.SuspendTestFunc.
func (e *Engine) ResumeSuspended() bool {
	if e.ctx == nil || e.ctx.Test.Output.Status != core.StatusSuspended {
		return false
	}
	e.ctx.Test.Output.Status = core.StatusRunning
	return true
}

// StepSuspended resumes a suspended test until its next yield.
func (e *Engine) StepSuspended() bool {
	if !e.ResumeSuspended() {
		return false
	}
	e.ctx.stepping = true
	return true
}

// ResultSummary counts the outcome of the last batch of queued tests.
func (e *Engine) ResultSummary() core.Summary {
	var s core.Summary
	for _, t := range e.batch {
		s.Add(t.Output.Status)
	}
	return s
}

// LastBatch returns the tests queued for the last run.
func (e *Engine) LastBatch() []*Test {
	return e.batch
}

func (e *Engine) isQueued(t *Test) bool {
	for _, task := range e.queue {
		if task.test == t {
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Hooks called by the GUI library
// ----------------------------------------------------------------------------

// PreNewFrame injects the simulated input while a test drives the GUI and
// mirrors the real input otherwise.
func (e *Engine) PreNewFrame(ui core.GUIContext) {
	if !e.started || ui != e.ui {
		return
	}
	io := ui.IO()

	if e.IO.ConfigFixedDeltaTime > 0 {
		io.DeltaTime = e.IO.ConfigFixedDeltaTime
	}

	// Holding Escape on the real keyboard aborts the run.
	if io.KeysDown[core.KeyEscape] && !e.simEscDown {
		e.hostEscDuration += io.DeltaTime
	} else {
		e.hostEscDuration = 0
	}
	if e.hostEscDuration >= hostEscAbortDelay && e.IsRunningTests() && !e.abort {
		logger.Warn("aborting tests: Escape held")
		e.Abort()
	}

	if e.overridingInput() {
		for _, ev := range e.inputs.Queue {
			if ev.Type == input.EventKey && ev.Chord.Key() == core.KeyEscape {
				e.simEscDown = ev.Down
			}
		}
		e.inputs.Apply(io)
	} else {
		e.inputs.Sync(io)
	}
}

// PostNewFrame collects stale locate tasks, updates the watchdog, resumes
// the test coroutine and then runs the active GuiFunc.
func (e *Engine) PostNewFrame(ui core.GUIContext) {
	if !e.started || ui != e.ui {
		return
	}

	e.frameCount = ui.FrameCount()
	e.pool.GC(e.frameCount)

	if ctx := e.ctx; ctx != nil && ctx.Test.Output.Status != core.StatusSuspended {
		ctx.RunningTime += ui.IO().DeltaTime
		e.updateWatchdog(ctx)
	}

	e.stallExempt = e.ctx != nil && e.ctx.RunFlags.Has(core.RunFlagManualRun)
	e.applyStallTimeout()
	if !e.co.Done() {
		e.co.Run()
	}

	e.runGuiFunc()
}

// ItemAdd forwards item layout to the locate task pool.
func (e *Engine) ItemAdd(ui core.GUIContext, rect core.Rect, id core.ID) {
	if !e.started || ui != e.ui {
		return
	}
	e.pool.ItemAdd(ui.FrameCount(), ui.CurrentWindow(), id, rect)
}

// ItemInfo forwards item status to the locate task pool.
func (e *Engine) ItemInfo(ui core.GUIContext, id core.ID, label string, flags core.ItemStatusFlags) {
	if !e.started || ui != e.ui {
		return
	}
	e.pool.ItemInfo(ui.FrameCount(), ui.CurrentWindow(), id, label, flags)
}

func (e *Engine) overridingInput() bool {
	return e.ctx != nil && !e.ctx.RunFlags.Has(core.RunFlagGuiFuncOnly)
}

// ----------------------------------------------------------------------------
// Test coroutine
// ----------------------------------------------------------------------------

func (e *Engine) coroutineMain() {
	for !e.shouldExit {
		e.processQueue()
		e.co.Yield()
	}
}

func (e *Engine) processQueue() {
	if len(e.queue) == 0 {
		return
	}

	e.IO.IsRunningTests = true
	logger.Info("running %d tests", len(e.queue))
	start := time.Now()

	for len(e.queue) > 0 {
		task := e.queue[0]
		e.queue = e.queue[1:]

		if e.abort {
			task.test.Output.Status = core.StatusUnknown
			continue
		}
		e.runTest(task.test, task.flags)
	}

	e.abort = false
	e.IO.IsRunningTests = false

	s := e.ResultSummary()
	logger.Info("tests result: %d/%d passed in %s", s.Success, s.Total, time.Since(start).Round(time.Millisecond))
}

func (e *Engine) runTest(test *Test, flags core.RunFlags) {
	ctx := newContext(e, test, flags)
	e.ctx = ctx
	e.running.Store(test.Name)
	e.keptGui = nil
	test.Output.reset()
	test.Output.Status = core.StatusRunning
	test.Output.StartTime = time.Now()

	defer e.finishTest(ctx)

	if e.OnTestStart != nil {
		e.OnTestStart(test)
	}

	ctx.LogInfo("----------------------------------------------------------------------")
	ctx.LogInfo("Test: %s..", test)

	e.inputs.Clear()
	ctx.ActiveFunc = ActiveFuncTest

	e.callTestFunc(ctx, func() {
		if test.SetupFunc != nil {
			test.SetupFunc(ctx)
		}
		if !test.Flags.Has(core.TestFlagNoGuiWarmUp) {
			ctx.Yield()
			ctx.Yield()
		}

		switch {
		case flags.Has(core.RunFlagGuiFuncOnly):
			ctx.yieldUntilFinished()
		case test.TestFunc != nil:
			test.TestFunc(ctx)
		case test.Flags.Has(core.TestFlagNoAutoFinish):
			ctx.yieldUntilFinished()
		}
	})
	ctx.killed = false
	ctx.stepping = false

	e.recoverGuiState(ctx)
	e.reconcileStatus(ctx)

	// Give the GUI a few frames without the GuiFunc so the next test does
	// not inherit hovered or active items.
	ctx.RunFlags |= core.RunFlagGuiFuncDisable
	for i := 0; i < 3; i++ {
		ctx.yieldRaw()
	}
}

// callTestFunc runs fn, turning a panic into a test error.
func (e *Engine) callTestFunc(ctx *Context, fn func()) {
	defer func() {
		r := recover()
		if r == nil || r == errTestKilled {
			return
		}
		ctx.recordPanic(r, debug.Stack())
	}()
	fn()
}

// recoverGuiState cleans up state a test may leave behind.
func (e *Engine) recoverGuiState(ctx *Context) {
	if e.inputs.MouseButtons != 0 || len(e.inputs.Queue) > 0 {
		e.inputs.Clear()
		ctx.yieldRaw()
	}
	if n := e.ui.OpenPopupCount(); n > 0 {
		if !ctx.Test.Flags.Has(core.TestFlagNoRecoveryWarnings) {
			ctx.LogWarning("Recovered from %d open popups.", n)
		}
		e.ui.ClosePopupToLevel(0)
	}
}

func (e *Engine) reconcileStatus(ctx *Context) {
	out := &ctx.Test.Output
	if out.Status == core.StatusRunning || out.Status == core.StatusSuspended {
		out.Status = core.StatusSuccess
	}
	if ctx.abort && out.Status != core.StatusError {
		out.Status = core.StatusUnknown
	}

	switch out.Status {
	case core.StatusSuccess:
		ctx.LogInfo("Success.")
	case core.StatusUnknown:
		ctx.LogWarning("Aborted.")
	case core.StatusError:
		ctx.LogInfo("Error.")
	}
}

// finishTest runs even when the coroutine is stopped mid-test.
func (e *Engine) finishTest(ctx *Context) {
	out := &ctx.Test.Output
	if !out.Status.IsTerminal() {
		e.reconcileStatus(ctx)
	}
	out.EndTime = time.Now()
	out.Frames = ctx.FrameCount
	ctx.ActiveFunc = ActiveFuncNone

	if out.Status == core.StatusError && e.IO.ConfigLogToTTY {
		lines := out.Log.Extract(e.IO.ConfigVerboseLevel+1, e.IO.ConfigVerboseLevelOnError)
		if lines != "" {
			logger.Info("log of failed test %s:\n%s", ctx.Test, lines)
		}
	}

	if e.OnTestEnd != nil {
		e.OnTestEnd(ctx.Test)
	}

	e.ctx = nil
	e.running.Store("")
	if e.IO.ConfigKeepGuiFunc && ctx.Test.GuiFunc != nil {
		ctx.RunFlags &^= core.RunFlagGuiFuncDisable
		e.keptGui = ctx
	}
}

func (e *Engine) runGuiFunc() {
	ctx := e.ctx
	if ctx == nil {
		ctx = e.keptGui
	}
	if ctx == nil || ctx.Test.GuiFunc == nil || ctx.RunFlags.Has(core.RunFlagGuiFuncDisable) {
		return
	}

	prev := ctx.ActiveFunc
	ctx.ActiveFunc = ActiveFuncGui
	defer func() {
		ctx.ActiveFunc = prev
		if r := recover(); r != nil {
			if ctx == e.keptGui {
				logger.Error("GuiFunc of %s panicked: %v", ctx.Test, r)
				e.keptGui = nil
				return
			}
			ctx.recordPanic(r, debug.Stack())
			ctx.RunFlags |= core.RunFlagGuiFuncDisable
		}
	}()

	ctx.Test.GuiFunc(ctx)
	ctx.FirstGuiFrame = false
}

func (o *TestOutput) reset() {
	o.Status = core.StatusUnknown
	o.Log.Clear()
	o.Errors = nil
	o.Attachments = nil
	o.StartTime = time.Time{}
	o.EndTime = time.Time{}
	o.Frames = 0
}
