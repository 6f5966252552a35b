// Package input holds the simulated input a running test feeds into the
// GUI library in place of the platform backend.
package input

import (
	"github.com/devicelab-dev/imtest/pkg/core"
)

// EventType identifies the kind of a queued Event.
type EventType int

// Event types
const (
	EventKey EventType = iota
	EventChar
	EventNav
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventKey:
		return "key"
	case EventChar:
		return "char"
	case EventNav:
		return "nav"
	default:
		return "unknown"
	}
}

// Event is a discrete input event waiting to be delivered.
type Event struct {
	Type  EventType
	Chord core.KeyChord // EventKey
	Nav   core.NavInput // EventNav
	Char  rune          // EventChar
	Down  bool          // EventKey, EventNav
}

// State is the simulated input snapshot.
type State struct {
	MousePos     core.Vec2
	MouseButtons uint32 // Bit n set while button n is held
	MouseWheel   core.Vec2

	Queue []Event
}

// Clear releases every button and drops pending events.
func (s *State) Clear() {
	s.MouseButtons = 0
	s.MouseWheel = core.Vec2{}
	s.Queue = s.Queue[:0]
}

// ButtonDown reports whether button is held.
func (s *State) ButtonDown(button core.MouseButton) bool {
	return s.MouseButtons&(1<<uint(button)) != 0
}

// SetButton presses or releases button.
func (s *State) SetButton(button core.MouseButton, down bool) {
	if down {
		s.MouseButtons |= 1 << uint(button)
	} else {
		s.MouseButtons &^= 1 << uint(button)
	}
}

// QueueKey enqueues a key press or release. Modifier bits in chord are
// pressed or released along with the key.
func (s *State) QueueKey(chord core.KeyChord, down bool) {
	s.Queue = append(s.Queue, Event{Type: EventKey, Chord: chord, Down: down})
}

// QueueChar enqueues a typed character.
func (s *State) QueueChar(c rune) {
	s.Queue = append(s.Queue, Event{Type: EventChar, Char: c})
}

// QueueChars enqueues every character of text.
func (s *State) QueueChars(text string) {
	for _, c := range text {
		s.QueueChar(c)
	}
}

// QueueNav enqueues a navigation input press or release.
func (s *State) QueueNav(nav core.NavInput, down bool) {
	s.Queue = append(s.Queue, Event{Type: EventNav, Nav: nav, Down: down})
}

// Apply overwrites io with the simulated state and drains the queue. Each
// queued event is delivered exactly once. The mouse position is copied
// verbatim, bypassing ConfigMouseRounding.
func (s *State) Apply(io *core.IO) {
	io.MousePos = s.MousePos
	for n := range io.MouseDown {
		io.MouseDown[n] = s.MouseButtons&(1<<uint(n)) != 0
	}
	io.MouseWheel = s.MouseWheel.Y
	io.MouseWheelH = s.MouseWheel.X
	s.MouseWheel = core.Vec2{}

	for _, ev := range s.Queue {
		switch ev.Type {
		case EventKey:
			applyKey(io, ev.Chord, ev.Down)
		case EventChar:
			io.AddInputCharacter(ev.Char)
		case EventNav:
			if ev.Nav >= 0 && ev.Nav < core.NavInputCount {
				io.NavInputs[ev.Nav] = ev.Down
			}
		}
	}
	s.Queue = s.Queue[:0]
}

// Sync copies the real pointer state into the simulated one so a test
// starting later does not see the pointer jump.
func (s *State) Sync(io *core.IO) {
	s.MousePos = io.MousePos
	s.MouseButtons = 0
	for n, down := range io.MouseDown {
		if down {
			s.MouseButtons |= 1 << uint(n)
		}
	}
}

var modifierKeys = map[core.Key]core.KeyChord{
	core.KeyLeftCtrl:  core.ModCtrl,
	core.KeyLeftShift: core.ModShift,
	core.KeyLeftAlt:   core.ModAlt,
	core.KeyLeftSuper: core.ModSuper,
}

func applyKey(io *core.IO, chord core.KeyChord, down bool) {
	mods := chord.Mods()
	if m, ok := modifierKeys[chord.Key()]; ok {
		mods |= m
	}
	if down {
		io.KeyMods |= mods
	} else {
		io.KeyMods &^= mods
	}

	key := chord.Key()
	if key > core.KeyNone && key < core.KeyCount {
		io.KeysDown[key] = down
	}
}
