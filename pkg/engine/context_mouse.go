package engine

import (
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// MouseMove moves the mouse over the item named by ref and checks that the
// GUI reports it as hovered. The item's window is brought to front,
// expanded and scrolled as needed.
func (c *Context) MouseMove(ref string, flags ...core.OpFlags) {
	if c.IsError() {
		return
	}
	id := c.resolveRef(ref)
	c.mouseMoveID(id, c.describeRef(ref), c.opFlags(flags))
}

// MouseMoveID is MouseMove for an already hashed ID.
func (c *Context) MouseMoveID(id core.ID, flags ...core.OpFlags) {
	c.mouseMoveID(id, c.idDesc(id), c.opFlags(flags))
}

func (c *Context) mouseMoveID(id core.ID, desc string, flags core.OpFlags) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("MouseMove to '%s'", desc)

	item := c.ItemInfoID(id, desc, flags)
	if item == nil {
		return
	}
	release := c.holdItem(id)
	defer release()

	win := item.Window
	if !flags.Has(core.OpNoFocusWindow) && !win.Flags().Has(core.WindowFlagPopup) {
		c.windowBringToFront(win.RootWindow())
	}
	if !flags.Has(core.OpNoAutoUncollapse) && win.RootWindow().Collapsed() {
		c.windowCollapse(win.RootWindow(), false)
		if item = c.ItemInfoID(id, desc, flags); item == nil {
			return
		}
		win = item.Window
	}
	// Menu and title bar items do not scroll with the window contents.
	if !flags.Has(core.OpNoAutoScroll) && item.NavLayer == core.NavLayerMain && !win.InnerClipRect().ContainsRect(item.RectFull) {
		c.scrollToItemID(id, desc, core.AxisY)
		if item = c.ItemInfoID(id, desc, flags); item == nil {
			return
		}
		if !win.InnerClipRect().Expand(0.5).ContainsRect(item.RectFull) {
			c.scrollToItemID(id, desc, core.AxisX)
			if item = c.ItemInfoID(id, desc, flags); item == nil {
				return
			}
		}
	}
	if c.IsError() {
		return
	}

	r := item.RectClipped
	if r.IsEmpty() {
		c.fail(core.ErrItemNotFound, "Unable to MouseMove to '%s': item is clipped out of view", desc)
		return
	}
	pos := r.Center()
	switch {
	case flags.Has(core.OpMoveToEdgeL):
		pos.X = r.Min.X + 1
	case flags.Has(core.OpMoveToEdgeR):
		pos.X = r.Max.X - 1
	}
	switch {
	case flags.Has(core.OpMoveToEdgeU):
		pos.Y = r.Min.Y + 1
	case flags.Has(core.OpMoveToEdgeD):
		pos.Y = r.Max.Y - 1
	}

	c.MouseMoveToPos(pos)
	if c.IsError() || flags.Has(core.OpNoCheckHoveredID) {
		return
	}

	hovered := c.UI.HoveredIDPreviousFrame()
	if hovered == id {
		return
	}
	if !flags.Has(core.OpIsSecondAttempt) {
		c.LogDebug("Hovered 0x%08X instead of 0x%08X, retrying.", hovered, id)
		c.mouseMoveID(id, desc, flags|core.OpIsSecondAttempt)
		return
	}
	c.fail(core.ErrHoverMismatch, "Unable to Hover '%s'. Expected 0x%08X, HoveredId: 0x%08X, ActiveId: 0x%08X",
		desc, id, hovered, c.UI.ActiveID())
}

// MouseMoveToPos moves the mouse to target. Outside of fast mode the
// pointer travels at IO.MouseSpeed along a slightly curved path.
func (c *Context) MouseMoveToPos(target core.Vec2) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("MouseMoveToPos from (%.0f,%.0f) to (%.0f,%.0f)",
		c.Inputs.MousePos.X, c.Inputs.MousePos.Y, target.X, target.Y)

	if c.engine.IO.ConfigRunSpeed == core.RunSpeedCinematic {
		c.SleepShort()
	}

	if !c.IsFast() {
		c.mouseTravel(target)
	}

	// One frame for the GUI to see the final position, one to settle hover.
	c.Inputs.MousePos = target
	c.Yield()
	c.Yield()
}

func (c *Context) mouseTravel(target core.Vec2) {
	start := c.Inputs.MousePos
	if !c.UI.IO().MousePosValid() {
		start = target
	}
	delta := target.Sub(start)
	length := delta.Length()
	if length < 0.001 {
		return
	}
	normal := core.Vec2{X: -delta.Y / length, Y: delta.X / length}
	wobble := c.engine.IO.MouseWobble
	speed := c.engine.IO.MouseSpeed
	if speed <= 0 {
		return
	}

	t := 0.0
	for !c.IsAborted() {
		t += speed * c.deltaTime() / length
		if t >= 1 {
			return
		}
		offset := math.Sin(t*math.Pi) * length * wobble * 0.1
		c.Inputs.MousePos = start.Add(delta.Scale(t)).Add(normal.Scale(offset))
		c.Yield()
	}
}

// MouseMoveToVoid moves the mouse to a spot not covered by any window.
func (c *Context) MouseMoveToVoid() {
	if c.IsError() {
		return
	}
	defer c.pushAction()()

	pos, ok := c.findVoidPos()
	if !ok {
		c.fail(core.ErrWindowNotFound, "MouseMoveToVoid: no empty area on screen")
		return
	}
	c.MouseMoveToPos(pos)
}

func (c *Context) findVoidPos() (core.Vec2, bool) {
	size := c.UI.IO().DisplaySize
	pad := c.UI.WindowsHoverPadding() + 1
	candidates := []core.Vec2{
		{X: size.X - pad, Y: size.Y - pad},
		{X: pad, Y: size.Y - pad},
		{X: size.X - pad, Y: pad},
		{X: pad, Y: pad},
		{X: size.X * 0.5, Y: size.Y - pad},
	}
	for _, p := range candidates {
		covered := false
		for _, w := range c.UI.Windows() {
			if w.WasActive() && w.Rect().Expand(c.UI.WindowsHoverPadding()).Contains(p) {
				covered = true
				break
			}
		}
		if !covered {
			return p, true
		}
	}
	return core.Vec2{}, false
}

// MouseClickOnVoid clicks outside of every window, which closes popups and
// clears focus.
func (c *Context) MouseClickOnVoid(button core.MouseButton) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.MouseMoveToVoid()
	c.MouseClick(button)
}

// MouseDown presses button.
func (c *Context) MouseDown(button core.MouseButton) {
	if c.IsError() {
		return
	}
	c.LogDebug("MouseDown %d", button)
	c.Inputs.SetButton(button, true)
	c.yieldSettle()
}

// MouseUp releases button.
func (c *Context) MouseUp(button core.MouseButton) {
	if c.IsError() {
		return
	}
	c.LogDebug("MouseUp %d", button)
	c.Inputs.SetButton(button, false)
	c.yieldSettle()
}

// MouseClick clicks button at the current position.
func (c *Context) MouseClick(button core.MouseButton) {
	c.MouseClickMulti(button, 1)
}

// MouseDoubleClick double-clicks button at the current position.
func (c *Context) MouseDoubleClick(button core.MouseButton) {
	c.MouseClickMulti(button, 2)
}

// MouseClickMulti clicks count times. Press and release always happen on
// different frames so the GUI sees both edges.
func (c *Context) MouseClickMulti(button core.MouseButton, count int) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	if count > 1 {
		c.LogDebug("MouseClickMulti %d x%d", button, count)
	} else {
		c.LogDebug("MouseClick %d", button)
	}

	if c.Inputs.ButtonDown(button) {
		c.Inputs.SetButton(button, false)
		c.Yield()
	}

	// Previous clicks must not combine with this one into a double-click.
	c.UI.IO().MouseClickedTime[button] = -math.MaxFloat32

	for n := 0; n < count; n++ {
		c.Inputs.SetButton(button, true)
		c.Yield()
		c.Inputs.SetButton(button, false)
		c.Yield()
	}
	c.Yield()
}

// MouseLiftDragThreshold makes the GUI consider the held button as already
// dragging, so a drag works even when source and target overlap.
func (c *Context) MouseLiftDragThreshold(button core.MouseButton) {
	if c.IsError() {
		return
	}
	io := c.UI.IO()
	io.MouseDragMaxDistanceSqr[button] = io.MouseDragThreshold*io.MouseDragThreshold*2 + 1
}

// MouseWheel scrolls the wheel by delta notches.
func (c *Context) MouseWheel(delta core.Vec2) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("MouseWheel(%g, %g)", delta.X, delta.Y)
	c.Inputs.MouseWheel = delta
	c.Yield()
	c.Yield()
}

// MouseWheelY scrolls the vertical wheel.
func (c *Context) MouseWheelY(dy float64) { c.MouseWheel(core.Vec2{Y: dy}) }
