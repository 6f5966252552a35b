package core

import "strings"

// ItemStatusFlags describe the state of an item as reported by the GUI
// library through the item-info hook.
type ItemStatusFlags uint32

const (
	ItemStatusHoveredRect ItemStatusFlags = 1 << iota // Mouse is over the item rectangle
	ItemStatusEdited                                  // Value changed this frame
	ItemStatusOpenable                                // Tree node, collapsing header, menu, combo
	ItemStatusOpened                                  // Openable item is currently open
	ItemStatusCheckable                               // Checkbox, radio, checkable menu item
	ItemStatusChecked                                 // Checkable item is currently checked
	ItemStatusInputable                               // Accepts text input
	ItemStatusActive                                  // Item is held active
	ItemStatusVisible                                 // Item intersects its window clip rectangle

	ItemStatusNone ItemStatusFlags = 0
)

// Has reports whether all bits of mask are set.
func (f ItemStatusFlags) Has(mask ItemStatusFlags) bool { return f&mask == mask }

// HasAny reports whether any bit of mask is set.
func (f ItemStatusFlags) HasAny(mask ItemStatusFlags) bool { return f&mask != 0 }

// WindowFlags describe a window's kind.
type WindowFlags uint32

const (
	WindowFlagMenuBar       WindowFlags = 1 << iota // Has a menu bar layer
	WindowFlagPopup                                 // Popup, menu or combo list
	WindowFlagChildMenu                             // Sub-menu popup
	WindowFlagChild                                 // Child window embedded in a parent
	WindowFlagNoTitleBar                            // Has no title bar
	WindowFlagNoMove                                // Cannot be moved by dragging
	WindowFlagNoResize                              // Has no resize grip
	WindowFlagNoMouseInputs                         // Passes mouse through

	WindowFlagNone WindowFlags = 0
)

// Has reports whether all bits of mask are set.
func (f WindowFlags) Has(mask WindowFlags) bool { return f&mask == mask }

// NavLayer distinguishes the main item layer from the menu bar layer.
type NavLayer int

// NavLayer values
const (
	NavLayerMain NavLayer = iota
	NavLayerMenu
)

// TestFlags alter how a registered test runs.
type TestFlags uint32

const (
	TestFlagNoGuiWarmUp        TestFlags = 1 << iota // Run TestFunc on the first frame instead of after two GUI frames
	TestFlagNoAutoFinish                             // Without a TestFunc, keep running GuiFunc until Finish is called
	TestFlagNoRecoveryWarnings                       // Do not warn when the GUI state had to be recovered after the test

	TestFlagNone TestFlags = 0
)

// Has reports whether all bits of mask are set.
func (f TestFlags) Has(mask TestFlags) bool { return f&mask == mask }

// RunFlags alter a single queued run of a test.
type RunFlags uint32

const (
	RunFlagGuiFuncOnly    RunFlags = 1 << iota // Run GuiFunc only, until Finish or abort
	RunFlagGuiFuncDisable                      // Stop calling GuiFunc
	RunFlagManualRun                           // Started interactively; watchdog disabled
	RunFlagNoStopOnError                       // Ignore ConfigStopOnError for this run

	RunFlagNone RunFlags = 0
)

// Has reports whether all bits of mask are set.
func (f RunFlags) Has(mask RunFlags) bool { return f&mask == mask }

// OpFlags tune a single Context operation.
type OpFlags uint32

const (
	OpNoCheckHoveredID OpFlags = 1 << iota // Don't verify the mouse ended up hovering the item
	OpNoError                              // Don't fail the test if the item cannot be found
	OpNoFocusWindow                        // Don't bring the item's window to front first
	OpNoAutoUncollapse                     // Don't uncollapse the parent window
	OpNoAutoScroll                         // Don't scroll the item into view
	OpNoYield                              // Don't yield after the operation
	OpIsSecondAttempt                      // Internal: retry after a failed hover
	OpMoveToEdgeL                          // Aim at the left edge instead of the center
	OpMoveToEdgeR                          // Aim at the right edge
	OpMoveToEdgeU                          // Aim at the top edge
	OpMoveToEdgeD                          // Aim at the bottom edge

	OpNone OpFlags = 0
)

// Has reports whether all bits of mask are set.
func (f OpFlags) Has(mask OpFlags) bool { return f&mask == mask }

var opFlagNames = map[string]OpFlags{
	"nocheckhoveredid": OpNoCheckHoveredID,
	"noerror":          OpNoError,
	"nofocuswindow":    OpNoFocusWindow,
	"noautouncollapse": OpNoAutoUncollapse,
	"noautoscroll":     OpNoAutoScroll,
	"noyield":          OpNoYield,
	"movetoedgeleft":   OpMoveToEdgeL,
	"movetoedgeright":  OpMoveToEdgeR,
	"movetoedgeup":     OpMoveToEdgeU,
	"movetoedgedown":   OpMoveToEdgeD,
}

// ParseOpFlag converts a flag name such as "NoError" to its bit, ignoring case.
func ParseOpFlag(name string) (OpFlags, bool) {
	f, ok := opFlagNames[strings.ToLower(name)]
	return f, ok
}

var itemStatusNames = map[string]ItemStatusFlags{
	"openable":  ItemStatusOpenable,
	"opened":    ItemStatusOpened,
	"checkable": ItemStatusCheckable,
	"checked":   ItemStatusChecked,
	"inputable": ItemStatusInputable,
	"visible":   ItemStatusVisible,
}

// ParseItemStatus converts a status name such as "checkable" to its bit,
// ignoring case.
func ParseItemStatus(name string) (ItemStatusFlags, bool) {
	f, ok := itemStatusNames[strings.ToLower(name)]
	return f, ok
}

// Action is a high level operation applied to an item.
type Action int

const (
	ActionUnknown Action = iota
	ActionHover
	ActionClick
	ActionDoubleClick
	ActionCheck
	ActionUncheck
	ActionOpen
	ActionClose
	ActionInput
	ActionNavActivate
)

// String returns the action name used in log lines.
func (a Action) String() string {
	switch a {
	case ActionHover:
		return "Hover"
	case ActionClick:
		return "Click"
	case ActionDoubleClick:
		return "DoubleClick"
	case ActionCheck:
		return "Check"
	case ActionUncheck:
		return "Uncheck"
	case ActionOpen:
		return "Open"
	case ActionClose:
		return "Close"
	case ActionInput:
		return "Input"
	case ActionNavActivate:
		return "NavActivate"
	default:
		return "Unknown"
	}
}

// ParseAction converts a name produced by String back to an action,
// ignoring case.
func ParseAction(name string) (Action, bool) {
	for a := ActionHover; a <= ActionNavActivate; a++ {
		if strings.EqualFold(a.String(), name) {
			return a, true
		}
	}
	return ActionUnknown, false
}

// Verb returns the past-tense form used in summaries.
func (a Action) Verb() string {
	switch a {
	case ActionHover:
		return "Hovered"
	case ActionClick:
		return "Clicked"
	case ActionDoubleClick:
		return "DoubleClicked"
	case ActionCheck:
		return "Checked"
	case ActionUncheck:
		return "Unchecked"
	case ActionOpen:
		return "Opened"
	case ActionClose:
		return "Closed"
	case ActionInput:
		return "Input"
	case ActionNavActivate:
		return "NavActivated"
	default:
		return "Unknown"
	}
}

// InputSource selects how Item actions are performed.
type InputSource int

// InputSource values
const (
	InputSourceMouse InputSource = iota
	InputSourceNav
)
