package flow

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// StepType represents the type of step.
type StepType string

// Step type constants.
const (
	// Items
	StepItemClick       StepType = "itemClick"
	StepItemDoubleClick StepType = "itemDoubleClick"
	StepItemCheck       StepType = "itemCheck"
	StepItemUncheck     StepType = "itemUncheck"
	StepItemOpen        StepType = "itemOpen"
	StepItemClose       StepType = "itemClose"
	StepItemInput       StepType = "itemInput"
	StepItemNavActivate StepType = "itemNavActivate"
	StepItemHover       StepType = "itemHover"
	StepItemHold        StepType = "itemHold"
	StepItemActionAll   StepType = "itemActionAll"
	StepItemDragAndDrop StepType = "itemDragAndDrop"
	StepItemDragOver    StepType = "itemDragOverAndHold"
	StepItemDragDelta   StepType = "itemDragWithDelta"
	StepSetRef          StepType = "setRef"

	// Menus, combos, tabs
	StepMenuClick     StepType = "menuClick"
	StepMenuCheck     StepType = "menuCheck"
	StepMenuUncheck   StepType = "menuUncheck"
	StepComboClick    StepType = "comboClick"
	StepComboClickAll StepType = "comboClickAll"
	StepTabClose      StepType = "tabClose"

	// Windows
	StepWindowFocus    StepType = "windowFocus"
	StepWindowClose    StepType = "windowClose"
	StepWindowMove     StepType = "windowMove"
	StepWindowResize   StepType = "windowResize"
	StepWindowCollapse StepType = "windowCollapse"
	StepWindowExpand   StepType = "windowExpand"
	StepPopupCloseOne  StepType = "popupCloseOne"
	StepPopupCloseAll  StepType = "popupCloseAll"
	StepDockInto       StepType = "dockInto"
	StepDockClear      StepType = "dockClear"

	// Scrolling
	StepScrollToItem   StepType = "scrollToItem"
	StepScrollToTop    StepType = "scrollToTop"
	StepScrollToBottom StepType = "scrollToBottom"

	// Mouse
	StepMouseMove        StepType = "mouseMove"
	StepMouseMoveToPos   StepType = "mouseMoveToPos"
	StepMouseMoveToVoid  StepType = "mouseMoveToVoid"
	StepMouseClick       StepType = "mouseClick"
	StepMouseClickOnVoid StepType = "mouseClickOnVoid"
	StepMouseWheel       StepType = "mouseWheel"

	// Keyboard and navigation
	StepKeyPress             StepType = "keyPress"
	StepKeyHold              StepType = "keyHold"
	StepKeyChars             StepType = "keyChars"
	StepKeyCharsAppend       StepType = "keyCharsAppend"
	StepKeyCharsAppendEnter  StepType = "keyCharsAppendEnter"
	StepKeyCharsReplace      StepType = "keyCharsReplace"
	StepKeyCharsReplaceEnter StepType = "keyCharsReplaceEnter"
	StepNavMoveTo            StepType = "navMoveTo"
	StepNavActivate          StepType = "navActivate"
	StepNavCancel            StepType = "navCancel"

	// Assertions
	StepAssertExists    StepType = "assertExists"
	StepAssertNotExists StepType = "assertNotExists"
	StepAssertChecked   StepType = "assertChecked"
	StepAssertUnchecked StepType = "assertUnchecked"
	StepAssertOpened    StepType = "assertOpened"
	StepAssertClosed    StepType = "assertClosed"

	// Flow control
	StepYield       StepType = "yield"
	StepYieldFrames StepType = "yieldFrames"
	StepSleep       StepType = "sleep"
	StepRepeat      StepType = "repeat"
	StepRunFlow     StepType = "runFlow"

	// Other
	StepCaptureScreenshot StepType = "captureScreenshot"
	StepLogInfo           StepType = "logInfo"
)

// Step is the interface for all flow steps.
type Step interface {
	Type() StepType
	IsOptional() bool
	Label() string
	Describe() string
}

// BaseStep contains common fields for all steps.
type BaseStep struct {
	StepType  StepType `yaml:"-"`
	Optional  bool     `yaml:"optional"`
	StepLabel string   `yaml:"label"`
}

// Type returns the step type.
func (b *BaseStep) Type() StepType { return b.StepType }

// IsOptional returns whether the step is optional.
func (b *BaseStep) IsOptional() bool { return b.Optional }

// Label returns the step label.
func (b *BaseStep) Label() string { return b.StepLabel }

// Describe returns a human-readable description.
func (b *BaseStep) Describe() string {
	if b.StepLabel != "" {
		return b.StepLabel
	}
	return string(b.StepType)
}

// SimpleStep is a step without arguments, such as navActivate.
type SimpleStep struct {
	BaseStep `yaml:",inline"`
}

// ItemStep applies a single-reference operation: item actions, menus,
// window focus, scrolling and assertions all share it.
type ItemStep struct {
	BaseStep `yaml:",inline"`
	Ref      string       `yaml:"ref"`
	Flags    []string     `yaml:"flags"`
	Ops      core.OpFlags `yaml:"-"`
}

// Describe returns a human-readable description.
func (s *ItemStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	return fmt.Sprintf("%s %q", s.StepType, s.Ref)
}

// TextStep carries a string argument: typed characters or a log line.
type TextStep struct {
	BaseStep `yaml:",inline"`
	Text     string `yaml:"text"`
}

// Describe returns a human-readable description.
func (s *TextStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	return fmt.Sprintf("%s %q", s.StepType, s.Text)
}

// KeyStep presses or holds a key chord such as "Ctrl+A".
type KeyStep struct {
	BaseStep `yaml:",inline"`
	Key      string        `yaml:"key"`
	Count    int           `yaml:"count"`
	Seconds  float64       `yaml:"seconds"`
	Chord    core.KeyChord `yaml:"-"`
}

// Describe returns a human-readable description.
func (s *KeyStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	if s.Count > 1 {
		return fmt.Sprintf("%s %s x%d", s.StepType, s.Key, s.Count)
	}
	return fmt.Sprintf("%s %s", s.StepType, s.Key)
}

// MouseStep clicks a mouse button one or more times.
type MouseStep struct {
	BaseStep `yaml:",inline"`
	Button   string           `yaml:"button"`
	Count    int              `yaml:"count"`
	Btn      core.MouseButton `yaml:"-"`
}

// PointStep carries a reference and a 2D value: a window position or size,
// a drag delta, a mouse position or a wheel delta.
type PointStep struct {
	BaseStep `yaml:",inline"`
	Ref      string  `yaml:"ref"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
}

// Vec returns X and Y as a vector.
func (s *PointStep) Vec() core.Vec2 { return core.Vec2{X: s.X, Y: s.Y} }

// Describe returns a human-readable description.
func (s *PointStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	if s.Ref == "" {
		return fmt.Sprintf("%s (%g,%g)", s.StepType, s.X, s.Y)
	}
	return fmt.Sprintf("%s %q (%g,%g)", s.StepType, s.Ref, s.X, s.Y)
}

// PairStep moves one item onto another: drag and drop or docking.
type PairStep struct {
	BaseStep `yaml:",inline"`
	From     string           `yaml:"from"`
	To       string           `yaml:"to"`
	Button   string           `yaml:"button"`
	Btn      core.MouseButton `yaml:"-"`
}

// Describe returns a human-readable description.
func (s *PairStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	return fmt.Sprintf("%s %q -> %q", s.StepType, s.From, s.To)
}

// HoldStep keeps the mouse pressed on an item for a time or frame count.
type HoldStep struct {
	BaseStep `yaml:",inline"`
	Ref      string  `yaml:"ref"`
	Seconds  float64 `yaml:"seconds"`
	Frames   int     `yaml:"frames"`
}

// RefsStep operates on a list of references.
type RefsStep struct {
	BaseStep `yaml:",inline"`
	Refs     []string `yaml:"refs"`
}

// ScreenshotStep captures the screen, or the union of the listed items.
type ScreenshotStep struct {
	BaseStep `yaml:",inline"`
	Name     string   `yaml:"name"`
	Refs     []string `yaml:"refs"`
}

// ActionAllStep applies an action to every matching item below a parent.
type ActionAllStep struct {
	BaseStep   `yaml:",inline"`
	Action     string               `yaml:"action"`
	Parent     string               `yaml:"parent"`
	MaxDepth   int                  `yaml:"maxDepth"`
	MaxPasses  int                  `yaml:"maxPasses"`
	RequireAll []string             `yaml:"requireAll"`
	RequireAny []string             `yaml:"requireAny"`
	Expect     *int                 `yaml:"expect"` // Number of items the action must reach
	Act        core.Action          `yaml:"-"`
	All        core.ItemStatusFlags `yaml:"-"`
	Any        core.ItemStatusFlags `yaml:"-"`
}

// Describe returns a human-readable description.
func (s *ActionAllStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	return fmt.Sprintf("%s %s %q", s.StepType, s.Action, s.Parent)
}

// FramesStep yields a number of frames.
type FramesStep struct {
	BaseStep `yaml:",inline"`
	Count    int `yaml:"count"`
}

// SleepStep sleeps for simulated seconds.
type SleepStep struct {
	BaseStep `yaml:",inline"`
	Seconds  float64 `yaml:"seconds"`
}

// ============================================
// Flow Control Steps
// ============================================

// RepeatStep repeats nested steps a fixed number of times.
type RepeatStep struct {
	BaseStep `yaml:",inline"`
	Times    int    `yaml:"times"`
	Steps    []Step `yaml:"-"`
}

// Describe returns a human-readable description.
func (s *RepeatStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	return fmt.Sprintf("repeat x%d (%d steps)", s.Times, len(s.Steps))
}

// RunFlowStep runs another flow file, or inline steps, in the current test.
type RunFlowStep struct {
	BaseStep `yaml:",inline"`
	File     string            `yaml:"file"`
	Env      map[string]string `yaml:"env"`
	Steps    []Step            `yaml:"-"`
}

// Describe returns a human-readable description.
func (s *RunFlowStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	if s.File != "" {
		return "runFlow " + s.File
	}
	return fmt.Sprintf("runFlow (%d steps)", len(s.Steps))
}

// Describe returns a human-readable description.
func (s *RefsStep) Describe() string {
	if s.StepLabel != "" {
		return s.StepLabel
	}
	return fmt.Sprintf("%s %s", s.StepType, strings.Join(s.Refs, ", "))
}
