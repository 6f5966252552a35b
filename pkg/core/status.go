package core

// TestStatus represents the execution status of a test
type TestStatus int

const (
	StatusUnknown   TestStatus = iota // Never ran, or aborted
	StatusSuccess                     // Completed without error
	StatusQueued                      // Waiting in the run queue
	StatusRunning                     // Currently executing
	StatusError                       // A check failed or an item could not be located
	StatusSuspended                   // Halted for interactive stepping
)

// String returns the string representation of TestStatus
func (s TestStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusSuccess:
		return "success"
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusError:
		return "error"
	case StatusSuspended:
		return "suspended"
	default:
		return "invalid"
	}
}

// IsTerminal returns true if the status is a final state
func (s TestStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusUnknown:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the test completed without error
func (s TestStatus) IsSuccess() bool {
	return s == StatusSuccess
}

// VerboseLevel is the severity attached to a test log line. Lower values
// are more important.
type VerboseLevel int

const (
	VerboseSilent VerboseLevel = iota
	VerboseError
	VerboseWarning
	VerboseInfo
	VerboseDebug
	VerboseTrace
	VerboseCount
)

// String returns the string representation of VerboseLevel
func (l VerboseLevel) String() string {
	switch l {
	case VerboseSilent:
		return "silent"
	case VerboseError:
		return "error"
	case VerboseWarning:
		return "warning"
	case VerboseInfo:
		return "info"
	case VerboseDebug:
		return "debug"
	case VerboseTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseVerboseLevel converts a name produced by String back to a level.
func ParseVerboseLevel(name string) (VerboseLevel, bool) {
	for l := VerboseSilent; l < VerboseCount; l++ {
		if l.String() == name {
			return l, true
		}
	}
	return VerboseInfo, false
}

// RunSpeed controls how simulated input is paced.
type RunSpeed int

const (
	RunSpeedFast      RunSpeed = iota // Teleport the mouse, skip sleeps
	RunSpeedNormal                    // Interpolate movements at the configured speeds
	RunSpeedCinematic                 // Normal, plus a pause before each action
)

// String returns the string representation of RunSpeed
func (s RunSpeed) String() string {
	switch s {
	case RunSpeedFast:
		return "fast"
	case RunSpeedNormal:
		return "normal"
	case RunSpeedCinematic:
		return "cinematic"
	default:
		return "unknown"
	}
}

// ParseRunSpeed converts a name produced by String back to a speed.
func ParseRunSpeed(name string) (RunSpeed, bool) {
	for _, s := range []RunSpeed{RunSpeedFast, RunSpeedNormal, RunSpeedCinematic} {
		if s.String() == name {
			return s, true
		}
	}
	return RunSpeedFast, false
}
