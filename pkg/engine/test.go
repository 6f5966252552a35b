package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// TestGroup separates functional tests from performance tests.
type TestGroup int

// Test groups
const (
	GroupUnknown TestGroup = iota - 1
	GroupTests
	GroupPerfs
)

// String returns the group name used by filters.
func (g TestGroup) String() string {
	switch g {
	case GroupTests:
		return "tests"
	case GroupPerfs:
		return "perfs"
	default:
		return "all"
	}
}

// ParseGroup converts "tests", "perfs" or "all" to a group. "all" maps to
// GroupUnknown, which matches every test.
func ParseGroup(name string) (TestGroup, bool) {
	switch name {
	case "tests":
		return GroupTests, true
	case "perfs":
		return GroupPerfs, true
	case "all", "":
		return GroupUnknown, true
	default:
		return GroupUnknown, false
	}
}

// TestFunc is the signature of every function attached to a test.
type TestFunc func(ctx *Context)

// Test is a registered unit of automation.
type Test struct {
	Category   string
	Name       string
	Group      TestGroup
	SourceFile string
	SourceLine int
	Flags      core.TestFlags
	ArgVariant int // User defined, e.g. to run the same functions with several parameters

	// SetupFunc runs once on the test coroutine before the GUI warm-up.
	SetupFunc TestFunc
	// GuiFunc submits the GUI under test. It runs every frame on the
	// frame driver and must not yield.
	GuiFunc TestFunc
	// TestFunc drives the GUI. It runs on the test coroutine.
	TestFunc TestFunc

	// NewVars creates the per-run user variables exposed as Context.Vars.
	NewVars  func() any
	UserData any

	Output TestOutput
}

// TestOutput is the result of the last run of a test.
type TestOutput struct {
	Status      core.TestStatus
	Log         TestLog
	Errors      []*core.ExecutionError
	Attachments []core.Attachment
	StartTime   time.Time
	EndTime     time.Time
	Frames      int // Frames the test ran for
}

// Duration returns the wall-clock duration of the last run.
func (o *TestOutput) Duration() time.Duration {
	if o.StartTime.IsZero() || o.EndTime.Before(o.StartTime) {
		return 0
	}
	return o.EndTime.Sub(o.StartTime)
}

// FullName returns "category/name".
func (t *Test) FullName() string {
	return t.Category + "/" + t.Name
}

func (t *Test) String() string {
	return fmt.Sprintf("'%s' '%s'", t.Category, t.Name)
}

// PassFilter reports whether the test matches filter.
//
// A filter is a comma separated list of terms. A term matches when it is a
// case-insensitive substring of the category or name; a leading '^'
// anchors it to the start of either, and a leading '-' excludes matching
// tests. With at least one positive term, a test must match one of them.
// An empty filter or "all" matches every test.
func (t *Test) PassFilter(filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == "all" {
		return true
	}

	category := strings.ToLower(t.Category)
	name := strings.ToLower(t.Name)
	hasPositive := false
	matchedPositive := false

	for _, term := range strings.Split(filter, ",") {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		negative := false
		if term[0] == '-' {
			negative = true
			term = term[1:]
		}
		anchored := false
		if term != "" && term[0] == '^' {
			anchored = true
			term = term[1:]
		}
		if term == "" {
			continue
		}

		var match bool
		if anchored {
			match = strings.HasPrefix(category, term) || strings.HasPrefix(name, term)
		} else {
			match = strings.Contains(category, term) || strings.Contains(name, term)
		}

		if negative {
			if match {
				return false
			}
			continue
		}
		hasPositive = true
		if match {
			matchedPositive = true
		}
	}
	return !hasPositive || matchedPositive
}
