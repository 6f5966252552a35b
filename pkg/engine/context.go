package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/input"
	"github.com/devicelab-dev/imtest/pkg/logger"
)

// ActiveFunc tells which of the test functions is executing.
type ActiveFunc int

// ActiveFunc values
const (
	ActiveFuncNone ActiveFunc = iota
	ActiveFuncGui             // GuiFunc, on the frame driver
	ActiveFuncTest            // SetupFunc or TestFunc, on the test coroutine
)

var errYieldFromGui = errors.New("engine: yield called from GuiFunc")

// GenericVars is scratch storage shared by the GuiFunc and TestFunc of a
// test. It is zeroed before every run.
type GenericVars struct {
	Step   int
	Count  int
	DockID core.ID
	Width  float64
	Height float64
	Pos    core.Vec2
	Size   core.Vec2
	Bool1  bool
	Bool2  bool
	Int1   int
	Int2   int
	Float1 float64
	Float2 float64
	Str1   string
	Str2   string
	ID     core.ID
}

// Context is handed to every function of a running test. Its methods are
// the automation API: each action injects input, yields until the GUI has
// processed it, and records failures in the test log instead of returning
// errors.
type Context struct {
	Test        *Test
	UI          core.GUIContext
	EngineIO    *IO
	Inputs      *input.State
	GenericVars GenericVars
	Vars        any // Created by Test.NewVars

	RunFlags core.RunFlags
	OpFlags  core.OpFlags // Or'ed into the flags of every operation

	FrameCount    int     // Frames since the test started
	FirstGuiFrame bool    // True during the first GuiFunc call
	RunningTime   float64 // Simulated seconds since the test started
	ActiveFunc    ActiveFunc

	engine      *Engine
	inputMode   core.InputSource
	refStr      string
	refID       core.ID
	actionDepth int

	abort    bool
	killed   bool
	stepping bool

	watchdogWarned bool
	watchdogKilled bool
	watchdogExited bool
}

func newContext(e *Engine, test *Test, flags core.RunFlags) *Context {
	c := &Context{
		Test:          test,
		UI:            e.ui,
		EngineIO:      &e.IO,
		Inputs:        &e.inputs,
		RunFlags:      flags,
		FirstGuiFrame: true,
		engine:        e,
		inputMode:     core.InputSourceMouse,
	}
	if test.NewVars != nil {
		c.Vars = test.NewVars()
	}
	return c
}

// Engine returns the engine running the test.
func (c *Context) Engine() *Engine { return c.engine }

// IsError reports whether the test failed or was aborted. Actions are
// no-ops once it returns true.
func (c *Context) IsError() bool {
	return c.Test.Output.Status == core.StatusError || c.abort
}

// IsAborted reports whether the run was aborted.
func (c *Context) IsAborted() bool {
	return c.abort || c.engine.abort
}

// IsFast reports whether simulated delays are skipped.
func (c *Context) IsFast() bool {
	return c.engine.IO.ConfigRunSpeed == core.RunSpeedFast
}

// IsGuiFuncOnly reports whether the test runs without a TestFunc.
func (c *Context) IsGuiFuncOnly() bool {
	return c.RunFlags.Has(core.RunFlagGuiFuncOnly)
}

// ----------------------------------------------------------------------------
// Logging
// ----------------------------------------------------------------------------

// LogEx appends a line to the test log at level.
func (c *Context) LogEx(level core.VerboseLevel, format string, args ...any) {
	line := formatLogLine(c.FrameCount, c.actionDepth, format, args...)
	c.Test.Output.Log.Add(level, line)

	io := &c.engine.IO
	if !io.ConfigLogToTTY || level > io.ConfigVerboseLevel {
		return
	}
	switch level {
	case core.VerboseError:
		logger.Error("%s", line)
	case core.VerboseWarning:
		logger.Warn("%s", line)
	case core.VerboseInfo:
		logger.Info("%s", line)
	default:
		logger.Debug("%s", line)
	}
}

// LogDebug logs at VerboseDebug.
func (c *Context) LogDebug(format string, args ...any) { c.LogEx(core.VerboseDebug, format, args...) }

// LogInfo logs at VerboseInfo.
func (c *Context) LogInfo(format string, args ...any) { c.LogEx(core.VerboseInfo, format, args...) }

// LogWarning logs at VerboseWarning.
func (c *Context) LogWarning(format string, args ...any) {
	c.LogEx(core.VerboseWarning, format, args...)
}

// LogError logs at VerboseError. It does not fail the test; see Errorf.
func (c *Context) LogError(format string, args ...any) { c.LogEx(core.VerboseError, format, args...) }

// pushAction indents the log lines of nested actions. Use as
// defer c.pushAction()().
func (c *Context) pushAction() func() {
	c.actionDepth++
	return func() { c.actionDepth-- }
}

// ----------------------------------------------------------------------------
// Failures
// ----------------------------------------------------------------------------

// Check fails the test when result is false. expr describes the check in
// the log.
func (c *Context) Check(result bool, expr string) bool {
	file, line := callerLocation()
	c.engine.Check(file, line, CheckNone, result, expr)
	return result
}

// CheckSilent is Check without the log line on success.
func (c *Context) CheckSilent(result bool, expr string) bool {
	file, line := callerLocation()
	c.engine.Check(file, line, CheckSilentSuccess, result, expr)
	return result
}

// CheckEqual fails the test when got != want.
func (c *Context) CheckEqual(got, want any, what string) bool {
	file, line := callerLocation()
	ok := got == want
	expr := fmt.Sprintf("%s == %v", what, want)
	if !ok {
		expr = fmt.Sprintf("%s: got %v, want %v", what, got, want)
	}
	c.engine.Check(file, line, CheckNone, ok, expr)
	return ok
}

// Errorf fails the test with a formatted message.
func (c *Context) Errorf(format string, args ...any) {
	file, line := callerLocation()
	c.engine.Error(file, line, CheckNone, format, args...)
}

// recordError flips the test to Error and keeps err for the report.
func (c *Context) recordError(err *core.ExecutionError) {
	c.Test.Output.Errors = append(c.Test.Output.Errors, err)
	c.Test.Output.Status = core.StatusError
}

// fail logs msg and records err with msg and the caller location.
func (c *Context) fail(err *core.ExecutionError, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	file, line := callerLocation()
	c.LogError("%s", msg)
	c.recordError(err.WithMessage(msg).WithLocation(filepath.Base(file), line))
	c.engine.afterError(c)
}

func (c *Context) recordPanic(r any, stack []byte) {
	msg := fmt.Sprint(r)
	if err, ok := r.(error); ok {
		msg = err.Error()
	}
	c.LogError("Panic: %s", msg)
	c.LogEx(core.VerboseDebug, "%s", strings.TrimSpace(string(stack)))
	c.recordError(core.ErrPanic.WithMessagef("panic: %s", msg).WithDetails(map[string]any{"stack": string(stack)}))
}

// ----------------------------------------------------------------------------
// Yielding
// ----------------------------------------------------------------------------

// Yield hands control back to the frame driver for one frame. It must
// only be called from SetupFunc or TestFunc.
func (c *Context) Yield() {
	if c.ActiveFunc != ActiveFuncTest {
		panic(errYieldFromGui)
	}
	c.yieldRaw()
}

func (c *Context) yieldRaw() {
	c.engine.co.Yield()
	c.FrameCount++

	if c.killed {
		panic(errTestKilled)
	}
	if c.stepping {
		c.stepping = false
		c.Test.Output.Status = core.StatusSuspended
		c.waitSuspended()
	}
}

// yieldSettle yields until input queued before the call has been seen by
// a whole frame, GuiFunc included. Queued input reaches the GUI on the next
// frame, whose GuiFunc runs after the test resumes.
func (c *Context) yieldSettle() {
	c.Yield()
	c.Yield()
}

// YieldFrames yields count times.
func (c *Context) YieldFrames(count int) {
	for n := 0; n < count && !c.IsAborted(); n++ {
		c.Yield()
	}
}

// yieldUntilFinished keeps the GuiFunc running until Finish or abort.
func (c *Context) yieldUntilFinished() {
	for !c.IsAborted() {
		st := c.Test.Output.Status
		if st != core.StatusRunning && st != core.StatusSuspended {
			return
		}
		c.Yield()
	}
}

// Sleep waits for the given simulated time. In fast mode it yields once.
func (c *Context) Sleep(seconds float64) {
	if c.IsError() {
		return
	}
	if c.IsFast() {
		c.Yield()
		return
	}
	c.SleepNoSkip(seconds)
}

// SleepNoSkip waits for the given simulated time regardless of run speed.
func (c *Context) SleepNoSkip(seconds float64) {
	for seconds > 0 && !c.IsAborted() {
		c.Yield()
		seconds -= c.deltaTime()
	}
}

// SleepShort waits for IO.ActionDelayShort.
func (c *Context) SleepShort() { c.Sleep(c.engine.IO.ActionDelayShort) }

// SleepStandard waits for IO.ActionDelayStandard.
func (c *Context) SleepStandard() { c.Sleep(c.engine.IO.ActionDelayStandard) }

func (c *Context) deltaTime() float64 {
	dt := c.UI.IO().DeltaTime
	if dt <= 0 {
		dt = 1.0 / 60.0
	}
	return dt
}

// Finish ends a test that has no TestFunc, typically from its GuiFunc.
// Only a running test is affected.
func (c *Context) Finish(status core.TestStatus) {
	if c.IsGuiFuncOnly() {
		return
	}
	if c.Test.Output.Status == core.StatusRunning {
		c.Test.Output.Status = status
	}
}

// SuspendTestFunc halts the test until Engine.ResumeSuspended or
// Engine.StepSuspended is called. The GUI keeps running meanwhile.
func (c *Context) SuspendTestFunc() {
	if c.IsError() {
		return
	}
	file, line := callerLocation()
	c.LogWarning("SuspendTestFunc() at %s:%d", filepath.Base(file), line)
	c.Test.Output.Status = core.StatusSuspended
	c.waitSuspended()
}

func (c *Context) waitSuspended() {
	for c.Test.Output.Status == core.StatusSuspended && !c.IsAborted() {
		c.engine.co.Yield()
		if c.killed {
			panic(errTestKilled)
		}
	}
}

// SetInputMode selects whether item actions use the mouse or keyboard
// navigation.
func (c *Context) SetInputMode(mode core.InputSource) {
	c.LogDebug("SetInputMode %d", mode)
	c.inputMode = mode
	if mode == core.InputSourceNav {
		// Leave any hovered item so navigation highlights are not mixed with
		// mouse hover.
		c.Inputs.MousePos = core.Vec2{X: -1e9, Y: -1e9}
		c.Yield()
	}
}

// ----------------------------------------------------------------------------
// Screenshots
// ----------------------------------------------------------------------------

// CaptureScreenshot captures the windows named by refs (the reference
// window when empty) through IO.ScreenCaptureFunc and attaches the image
// to the test output.
func (c *Context) CaptureScreenshot(label string, refs ...string) bool {
	if c.IsError() {
		return false
	}
	defer c.pushAction()()

	capture := c.engine.IO.ScreenCaptureFunc
	if capture == nil {
		c.LogWarning("CaptureScreenshot: no ScreenCaptureFunc configured")
		return false
	}

	req := core.CaptureRequest{Label: label}
	if len(refs) == 0 && c.refStr != "" {
		refs = []string{""}
	}
	for _, ref := range refs {
		w := c.GetWindowByRef(ref)
		if w == nil {
			c.fail(core.ErrWindowNotFound, "CaptureScreenshot: unable to find window '%s'", c.describeRef(ref))
			return false
		}
		req.Windows = append(req.Windows, w)
		if req.Rect.IsEmpty() {
			req.Rect = w.Rect()
		} else {
			req.Rect = unionRect(req.Rect, w.Rect())
		}
	}
	if len(req.Windows) == 0 {
		req.Rect = core.Rect{Max: c.UI.IO().DisplaySize}
	}

	c.Yield()
	data, err := capture(req)
	if err != nil {
		c.LogWarning("CaptureScreenshot: %v", err)
		return false
	}

	name := fmt.Sprintf("%s_%s_%04d.png", sanitizeFileName(c.Test.Name), sanitizeFileName(label), c.FrameCount)
	// Without ArtifactsDir only the in-memory image is kept.
	path := ""
	if dir := c.engine.IO.ArtifactsDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.LogWarning("CaptureScreenshot: %v", err)
			return false
		}
		path = filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			c.LogWarning("CaptureScreenshot: %v", err)
			return false
		}
	}
	c.Test.Output.Attachments = append(c.Test.Output.Attachments, core.NewScreenshotAttachment(path, data))
	c.LogInfo("Captured screenshot '%s' (%d bytes)", name, len(data))
	return true
}

func unionRect(a, b core.Rect) core.Rect {
	return core.Rect{
		Min: core.Vec2{X: min(a.Min.X, b.Min.X), Y: min(a.Min.Y, b.Min.Y)},
		Max: core.Vec2{X: max(a.Max.X, b.Max.X), Y: max(a.Max.Y, b.Max.Y)},
	}
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
