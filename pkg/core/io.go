package core

import (
	"fmt"
	"math"
	"strings"
)

// MouseButton indexes IO.MouseDown.
type MouseButton int

// Mouse buttons
const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
	MouseButtonCount = 5
)

// ParseMouseButton converts "left", "right" or "middle" to a button,
// ignoring case. An empty name is the left button.
func ParseMouseButton(name string) (MouseButton, bool) {
	switch strings.ToLower(name) {
	case "", "left":
		return MouseButtonLeft, true
	case "right":
		return MouseButtonRight, true
	case "middle":
		return MouseButtonMiddle, true
	}
	return MouseButtonLeft, false
}

// Key identifies a keyboard key. Modifier bits may be or-ed in to form a
// KeyChord.
type Key int

// Keys understood by the engine.
const (
	KeyNone Key = iota
	KeyTab
	KeyLeftArrow
	KeyRightArrow
	KeyUpArrow
	KeyDownArrow
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyInsert
	KeyDelete
	KeyBackspace
	KeySpace
	KeyEnter
	KeyEscape
	KeyA
	KeyC
	KeyV
	KeyX
	KeyY
	KeyZ
	KeyLeftCtrl
	KeyLeftShift
	KeyLeftAlt
	KeyLeftSuper
	KeyCount
)

// Modifier bits for KeyChord.
const (
	ModNone  KeyChord = 0
	ModCtrl  KeyChord = 1 << 12
	ModShift KeyChord = 1 << 13
	ModAlt   KeyChord = 1 << 14
	ModSuper KeyChord = 1 << 15
	ModMask  KeyChord = ModCtrl | ModShift | ModAlt | ModSuper
)

// KeyChord is a Key optionally combined with modifier bits.
type KeyChord int

// Chord builds a KeyChord from a key and modifiers.
func Chord(key Key, mods KeyChord) KeyChord { return KeyChord(key) | mods&ModMask }

// Key returns the key part of the chord.
func (c KeyChord) Key() Key { return Key(c &^ ModMask) }

// Mods returns the modifier part of the chord.
func (c KeyChord) Mods() KeyChord { return c & ModMask }

var keyNames = map[Key]string{
	KeyNone: "None", KeyTab: "Tab", KeyLeftArrow: "LeftArrow", KeyRightArrow: "RightArrow",
	KeyUpArrow: "UpArrow", KeyDownArrow: "DownArrow", KeyPageUp: "PageUp", KeyPageDown: "PageDown",
	KeyHome: "Home", KeyEnd: "End", KeyInsert: "Insert", KeyDelete: "Delete", KeyBackspace: "Backspace",
	KeySpace: "Space", KeyEnter: "Enter", KeyEscape: "Escape", KeyA: "A", KeyC: "C", KeyV: "V", KeyX: "X",
	KeyY: "Y", KeyZ: "Z", KeyLeftCtrl: "LeftCtrl", KeyLeftShift: "LeftShift", KeyLeftAlt: "LeftAlt",
	KeyLeftSuper: "LeftSuper",
}

// String returns a human-readable key name.
func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return "Unknown"
}

// String formats the chord as e.g. "Ctrl+Shift+A".
func (c KeyChord) String() string {
	s := ""
	if c&ModCtrl != 0 {
		s += "Ctrl+"
	}
	if c&ModShift != 0 {
		s += "Shift+"
	}
	if c&ModAlt != 0 {
		s += "Alt+"
	}
	if c&ModSuper != 0 {
		s += "Super+"
	}
	return s + c.Key().String()
}

var modNames = map[string]KeyChord{
	"ctrl": ModCtrl, "shift": ModShift, "alt": ModAlt, "super": ModSuper,
}

// ParseKeyChord is the inverse of KeyChord.String. Names are matched
// case-insensitively: "ctrl+a" and "Ctrl+A" are the same chord.
func ParseKeyChord(s string) (KeyChord, error) {
	parts := strings.Split(s, "+")
	var mods KeyChord
	for _, p := range parts[:len(parts)-1] {
		m, ok := modNames[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q in %q", p, s)
		}
		mods |= m
	}
	name := strings.TrimSpace(parts[len(parts)-1])
	for k, n := range keyNames {
		if k != KeyNone && strings.EqualFold(n, name) {
			return Chord(k, mods), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q in %q", name, s)
}

// NavInput identifies a gamepad/keyboard navigation input.
type NavInput int

// Navigation inputs
const (
	NavInputActivate NavInput = iota // Press the focused item
	NavInputCancel                   // Close popup, leave text input
	NavInputInput                    // Enter text input on the focused item
	NavInputMenu                     // Toggle menu layer
	NavInputCount
)

// String returns a human-readable input name.
func (n NavInput) String() string {
	switch n {
	case NavInputActivate:
		return "Activate"
	case NavInputCancel:
		return "Cancel"
	case NavInputInput:
		return "Input"
	case NavInputMenu:
		return "Menu"
	default:
		return "Unknown"
	}
}

// IO is the GUI library's per-frame input snapshot. The platform backend
// (or the test engine while a test runs) fills it before the frame begins;
// the GUI library reads it while processing the frame.
type IO struct {
	DisplaySize Vec2
	DeltaTime   float64

	MousePos    Vec2
	MouseDown   [MouseButtonCount]bool
	MouseWheel  float64
	MouseWheelH float64

	KeyMods              KeyChord
	KeysDown             [KeyCount]bool
	NavInputs            [NavInputCount]bool
	InputQueueCharacters []rune

	// ConfigMouseRounding floors positions received through AddMousePosEvent.
	ConfigMouseRounding     bool
	MouseDragThreshold      float64
	MouseDoubleClickTime    float64
	MouseDoubleClickMaxDist float64

	// Written by the GUI library while processing a frame.
	MouseClickedTime        [MouseButtonCount]float64
	MouseDragMaxDistanceSqr [MouseButtonCount]float64
}

// NewIO returns an IO with the GUI library defaults.
func NewIO() *IO {
	io := &IO{
		DisplaySize:             Vec2{1280, 720},
		DeltaTime:               1.0 / 60.0,
		MousePos:                Vec2{-math.MaxFloat32, -math.MaxFloat32},
		MouseDragThreshold:      6,
		MouseDoubleClickTime:    0.30,
		MouseDoubleClickMaxDist: 6,
	}
	for i := range io.MouseClickedTime {
		io.MouseClickedTime[i] = -math.MaxFloat32
	}
	return io
}

// AddMousePosEvent records a position coming from a platform backend.
func (io *IO) AddMousePosEvent(x, y float64) {
	if io.ConfigMouseRounding {
		x, y = math.Floor(x), math.Floor(y)
	}
	io.MousePos = Vec2{x, y}
}

// AddInputCharacter queues a typed character for the focused text input.
func (io *IO) AddInputCharacter(c rune) {
	io.InputQueueCharacters = append(io.InputQueueCharacters, c)
}

// MousePosValid reports whether MousePos holds a real position.
func (io *IO) MousePosValid() bool {
	return io.MousePos.X > -math.MaxFloat32/2 && io.MousePos.Y > -math.MaxFloat32/2
}
