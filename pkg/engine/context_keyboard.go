package engine

import (
	"github.com/devicelab-dev/imtest/pkg/core"
)

// KeyDown presses chord and keeps it held.
func (c *Context) KeyDown(chord core.KeyChord) {
	if c.IsError() {
		return
	}
	c.LogDebug("KeyDown %s", chord)
	c.Inputs.QueueKey(chord, true)
	c.yieldSettle()
}

// KeyUp releases chord.
func (c *Context) KeyUp(chord core.KeyChord) {
	if c.IsError() {
		return
	}
	c.LogDebug("KeyUp %s", chord)
	c.Inputs.QueueKey(chord, false)
	c.yieldSettle()
}

// KeyPress presses and releases chord count times. Press and release are
// delivered on different frames.
func (c *Context) KeyPress(chord core.KeyChord, count ...int) {
	if c.IsError() {
		return
	}
	n := 1
	if len(count) > 0 {
		n = count[0]
	}
	defer c.pushAction()()
	c.LogDebug("KeyPress %s x%d", chord, n)

	for ; n > 0 && !c.IsError(); n-- {
		c.Inputs.QueueKey(chord, true)
		c.Yield()
		c.Inputs.QueueKey(chord, false)
		c.Yield()
	}
}

// KeyHold holds chord for the given simulated time.
func (c *Context) KeyHold(chord core.KeyChord, seconds float64) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("KeyHold %s %.2fs", chord, seconds)

	c.Inputs.QueueKey(chord, true)
	c.Yield()
	c.SleepNoSkip(seconds)
	c.Inputs.QueueKey(chord, false)
	c.Yield()
}

// KeyChars types chars into the focused text input, at IO.TypingSpeed
// outside of fast mode.
func (c *Context) KeyChars(chars string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("KeyChars %q", chars)

	if c.IsFast() || c.engine.IO.TypingSpeed <= 0 {
		c.Inputs.QueueChars(chars)
		c.yieldSettle()
		return
	}
	for _, r := range chars {
		c.Inputs.QueueChar(r)
		c.SleepNoSkip(1.0 / c.engine.IO.TypingSpeed)
		if c.IsError() {
			return
		}
	}
	c.Yield()
}

// KeyCharsAppend moves the cursor to the end of the text input, then
// types chars.
func (c *Context) KeyCharsAppend(chars string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.KeyPress(core.KeyChord(core.KeyEnd))
	c.KeyChars(chars)
}

// KeyCharsAppendEnter is KeyCharsAppend followed by Enter.
func (c *Context) KeyCharsAppendEnter(chars string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.KeyCharsAppend(chars)
	c.KeyPress(core.KeyChord(core.KeyEnter))
}

// KeyCharsReplace selects the whole text input and replaces it with chars.
func (c *Context) KeyCharsReplace(chars string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.KeyPress(core.Chord(core.KeyA, core.ModCtrl))
	c.KeyPress(core.KeyChord(core.KeyDelete))
	if chars != "" {
		c.KeyChars(chars)
	}
}

// KeyCharsReplaceEnter is KeyCharsReplace followed by Enter.
func (c *Context) KeyCharsReplaceEnter(chars string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.KeyCharsReplace(chars)
	c.KeyPress(core.KeyChord(core.KeyEnter))
}

// ----------------------------------------------------------------------------
// Navigation
// ----------------------------------------------------------------------------

// NavMoveTo moves keyboard navigation focus to the item named by ref.
func (c *Context) NavMoveTo(ref string) {
	if c.IsError() {
		return
	}
	id := c.resolveRef(ref)
	c.navMoveToID(id, c.describeRef(ref))
}

func (c *Context) navMoveToID(id core.ID, desc string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("NavMove to '%s'", desc)

	item := c.ItemInfoID(id, desc)
	if item == nil {
		return
	}
	release := c.holdItem(id)
	defer release()

	win := item.Window
	if !win.Flags().Has(core.WindowFlagPopup) {
		c.windowBringToFront(win.RootWindow())
	}
	if item.NavLayer == core.NavLayerMain && !win.InnerClipRect().ContainsRect(item.RectFull) {
		c.scrollToItemID(id, desc, core.AxisY)
	}

	c.UI.FocusWindow(win)
	c.UI.SetNavID(win, id, item.NavLayer)
	c.Yield()

	if nav := c.UI.NavID(); nav != id {
		c.fail(core.ErrHoverMismatch, "Unable to set NavId to '%s'. Expected 0x%08X, got 0x%08X", desc, id, nav)
	}
}

// NavActivate presses the navigation Activate input on the focused item.
func (c *Context) NavActivate() {
	c.navPress(core.NavInputActivate)
}

// NavInput presses the navigation Input input, entering text edition on
// the focused item.
func (c *Context) NavInput() {
	c.navPress(core.NavInputInput)
}

// NavCancel presses the navigation Cancel input.
func (c *Context) NavCancel() {
	c.navPress(core.NavInputCancel)
}

func (c *Context) navPress(nav core.NavInput) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("Nav%s", nav)

	c.Inputs.QueueNav(nav, true)
	c.Yield()
	c.Inputs.QueueNav(nav, false)
	c.Yield()
	c.Yield()
}
