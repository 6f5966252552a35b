package engine

import (
	"os"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// IO holds the engine configuration and a few outputs the host can read.
type IO struct {
	// Run options
	ConfigRunSpeed             core.RunSpeed
	ConfigRunInIsolatedContext bool // Accepted for compatibility; tests always share the bound GUI context
	ConfigStopOnError          bool // Abort the queue after the first error
	ConfigBreakOnError         bool // Call OnBreak when a check fails
	ConfigKeepGuiFunc          bool // Keep calling the last test's GuiFunc once the queue is drained
	ConfigLogToTTY             bool // Mirror test log lines to the process logger

	ConfigVerboseLevel        core.VerboseLevel // Lines at or below this level are mirrored
	ConfigVerboseLevelOnError core.VerboseLevel // Level used when dumping the log of a failed test

	// Simulated input speeds
	MouseSpeed  float64 // Pixels per second
	MouseWobble float64 // Amplitude of the curve applied to mouse paths, 0 for straight lines
	ScrollSpeed float64 // Pixels per second
	TypingSpeed float64 // Characters per second

	ActionDelayShort    float64 // Seconds, used by SleepShort
	ActionDelayStandard float64 // Seconds, used by SleepStandard

	// ConfigFixedDeltaTime overrides the GUI library's DeltaTime when > 0.
	ConfigFixedDeltaTime float64

	// Watchdog thresholds, in seconds of simulated test time.
	ConfigWatchdogWarning  float64
	ConfigWatchdogKillTest float64
	ConfigWatchdogKillApp  float64

	// ScreenCaptureFunc encodes screenshots for Context.CaptureScreenshot.
	ScreenCaptureFunc core.ScreenCaptureFunc
	ArtifactsDir      string

	// OnBreak is called when ConfigBreakOnError is set and a check fails.
	OnBreak func(t *Test)

	// ExitFunc terminates the process when the watchdog gives up.
	ExitFunc func(code int)

	// Outputs
	IsRunningTests bool
}

// DefaultIO returns the default configuration.
func DefaultIO() IO {
	return IO{
		ConfigRunSpeed:            core.RunSpeedFast,
		ConfigVerboseLevel:        core.VerboseWarning,
		ConfigVerboseLevelOnError: core.VerboseInfo,

		MouseSpeed:  600,
		MouseWobble: 0.25,
		ScrollSpeed: 1400,
		TypingSpeed: 20,

		ActionDelayShort:    0.15,
		ActionDelayStandard: 0.40,

		ConfigWatchdogWarning:  15,
		ConfigWatchdogKillTest: 30,
		ConfigWatchdogKillApp:  35,

		ExitFunc: os.Exit,
	}
}
