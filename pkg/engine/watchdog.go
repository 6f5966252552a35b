package engine

import (
	"time"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/logger"
)

// updateWatchdog escalates on the simulated running time of the current
// test: a warning, then a forced failure, then a process exit.
func (e *Engine) updateWatchdog(ctx *Context) {
	if ctx.RunFlags.Has(core.RunFlagManualRun) {
		return
	}

	t := ctx.RunningTime
	if !ctx.watchdogWarned && e.IO.ConfigWatchdogWarning > 0 && t > e.IO.ConfigWatchdogWarning {
		ctx.watchdogWarned = true
		ctx.LogWarning("[Watchdog] Running time for '%s' is >%.f seconds, may be excessive.", ctx.Test.Name, e.IO.ConfigWatchdogWarning)
	}
	if !ctx.watchdogKilled && e.IO.ConfigWatchdogKillTest > 0 && t > e.IO.ConfigWatchdogKillTest {
		ctx.watchdogKilled = true
		ctx.LogError("[Watchdog] Running time for '%s' is >%.f seconds, aborting.", ctx.Test.Name, e.IO.ConfigWatchdogKillTest)
		ctx.recordError(core.ErrWatchdogKillTest.WithMessagef("test exceeded %.f seconds", e.IO.ConfigWatchdogKillTest))
		ctx.killed = true
	}
	if !ctx.watchdogExited && e.IO.ConfigWatchdogKillApp > 0 && t > e.IO.ConfigWatchdogKillApp {
		ctx.watchdogExited = true
		ctx.LogError("[Watchdog] Emergency process exit as the test didn't return.")
		e.exit(ctx.Test.Name)
	}
}

// applyStallTimeout arms wall-clock stall detection on the coroutine. A
// TestFunc that never yields cannot be reached by updateWatchdog.
func (e *Engine) applyStallTimeout() {
	if e.co == nil {
		return
	}
	if e.stallExempt || e.IO.ConfigWatchdogKillApp <= 0 {
		e.co.StallTimeout = 0
		return
	}
	e.co.StallTimeout = time.Duration(e.IO.ConfigWatchdogKillApp * float64(time.Second))
}

// onStall runs on the frame driver while the coroutine is still running,
// so it must not touch e.ctx.
func (e *Engine) onStall(name string, waited time.Duration) {
	if e.stallExempt {
		return
	}
	test, _ := e.running.Load().(string)
	if test == "" {
		test = "<none>"
	}
	logger.Error("[Watchdog] coroutine %s has not yielded for %s while running %s", name, waited.Round(time.Millisecond), test)
	e.exit(test)
}

func (e *Engine) exit(test string) {
	logger.Error("emergency exit: %v (%s)", core.ErrWatchdogKillApp, test)
	logger.Close()
	if e.IO.ExitFunc != nil {
		e.IO.ExitFunc(1)
	}
}
