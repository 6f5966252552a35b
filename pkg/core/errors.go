package core

import (
	"fmt"
)

// ErrorCategory classifies the type of failure recorded against a test
type ErrorCategory int

const (
	ErrCategoryNone         ErrorCategory = iota // No error
	ErrCategoryAssertion                         // A check evaluated to false or an explicit error was raised
	ErrCategoryItemNotFound                      // A reference could not be resolved to a live item or window
	ErrCategoryTimeout                           // Watchdog fired
	ErrCategoryAborted                           // Run was aborted
	ErrCategoryConfig                            // Invalid configuration or registration
	ErrCategoryScroll                            // Scroll position did not converge
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryItemNotFound:
		return "item_not_found"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryAborted:
		return "aborted"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string         // Machine-readable code: item_not_found, check_failed, etc.
	Message  string         // Human-readable message
	File     string         // Source location of the failing call, when known
	Line     int            //
	Details  map[string]any // Additional context
	Cause    error          // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same category and code, so sentinel values can be
// compared with errors.Is after WithMessage/WithLocation copies.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	c := *e
	c.Cause = cause
	return &c
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	c := *e
	c.Message = msg
	return &c
}

// WithMessagef returns a copy of the error with a formatted message
func (e *ExecutionError) WithMessagef(format string, args ...any) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithLocation returns a copy of the error pointing at a source location
func (e *ExecutionError) WithLocation(file string, line int) *ExecutionError {
	c := *e
	c.File = file
	c.Line = line
	return &c
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]any) *ExecutionError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	c := *e
	c.Details = merged
	return &c
}

// Predefined errors
var (
	// Assertion errors
	ErrCheckFailed = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "check_failed",
		Message:  "check failed",
	}
	ErrUserError = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "error",
		Message:  "error raised by test",
	}
	ErrPanic = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "panic",
		Message:  "test function panicked",
	}

	// Lookup errors
	ErrItemNotFound = &ExecutionError{
		Category: ErrCategoryItemNotFound,
		Code:     "item_not_found",
		Message:  "unable to locate item",
	}
	ErrWindowNotFound = &ExecutionError{
		Category: ErrCategoryItemNotFound,
		Code:     "window_not_found",
		Message:  "unable to locate window",
	}
	ErrHoverMismatch = &ExecutionError{
		Category: ErrCategoryItemNotFound,
		Code:     "hover_mismatch",
		Message:  "unable to hover item",
	}

	// Scroll errors
	ErrScrollNotConverged = &ExecutionError{
		Category: ErrCategoryScroll,
		Code:     "scroll_not_converged",
		Message:  "failed to set scroll",
	}

	// Watchdog errors
	ErrWatchdogKillTest = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "watchdog_kill_test",
		Message:  "test running time exceeded",
	}
	ErrWatchdogKillApp = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "watchdog_kill_app",
		Message:  "test function did not return",
	}

	// Abort
	ErrAborted = &ExecutionError{
		Category: ErrCategoryAborted,
		Code:     "aborted",
		Message:  "run aborted",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrUnknownTest = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unknown_test",
		Message:  "no test matches",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
