package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// CheckFlags tune Check and Error.
type CheckFlags uint32

const (
	CheckSilentSuccess CheckFlags = 1 << iota // Don't log passing checks

	CheckNone CheckFlags = 0
)

// Check records the outcome of an assertion made at file:line for the
// current test. It returns true when the caller should break into a
// debugger.
func (e *Engine) Check(file string, line int, flags CheckFlags, result bool, expr string) bool {
	ctx := e.ctx
	if ctx == nil {
		return false
	}
	file = filepath.Base(file)

	if result {
		if flags&CheckSilentSuccess == 0 {
			ctx.LogDebug("OK %s:%d '%s'", file, line, expr)
		}
		return false
	}

	ctx.LogError("KO %s:%d '%s'", file, line, expr)
	ctx.recordError(core.ErrCheckFailed.WithMessagef("check failed: %s", expr).WithLocation(file, line))
	return e.afterError(ctx)
}

// Error records an explicit failure raised at file:line.
func (e *Engine) Error(file string, line int, flags CheckFlags, format string, args ...any) bool {
	ctx := e.ctx
	if ctx == nil {
		return false
	}
	msg := fmt.Sprintf(format, args...)
	file = filepath.Base(file)

	ctx.LogError("Error %s:%d '%s'", file, line, msg)
	ctx.recordError(core.ErrUserError.WithMessage(msg).WithLocation(file, line))
	return e.afterError(ctx)
}

func (e *Engine) afterError(ctx *Context) bool {
	if e.IO.ConfigStopOnError && !ctx.RunFlags.Has(core.RunFlagNoStopOnError) {
		e.abort = true
	}
	if e.IO.ConfigBreakOnError {
		if e.IO.OnBreak != nil {
			e.IO.OnBreak(ctx.Test)
		}
		return true
	}
	return false
}

// callerLocation returns the first caller outside this package's
// non-test files.
func callerLocation() (string, int) {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !isEngineFrame(f) {
			return f.File, f.Line
		}
		if !more {
			return f.File, f.Line
		}
	}
}

func isEngineFrame(f runtime.Frame) bool {
	if strings.HasSuffix(f.File, "_test.go") {
		return false
	}
	return strings.Contains(f.Function, "imtest/pkg/engine.")
}
