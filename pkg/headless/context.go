// Package headless is a small immediate-mode GUI without a renderer. It
// lays out windows and widgets, tracks hover, activation, focus, popups
// and docking from a core.IO snapshot, and calls the test engine hooks the
// way a real GUI library integration does. The CLI, the demo application
// and the engine tests drive it.
package headless

import (
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
)

// Context is the GUI state. It implements core.GUIContext and
// core.DockingGUI. It is not safe for concurrent use.
type Context struct {
	io    *core.IO
	hooks core.Hooks

	frame int
	time  float64

	order         []*Window // Top-level regular windows, back to front
	windows       []*Window // Every window ever created
	windowsByName map[string]*Window
	windowsByID   map[core.ID]*Window
	windowStack   []*Window
	current       *Window
	nextPos       *core.Vec2
	nextSize      *core.Vec2
	nextItemOpen  *bool

	navWindow     *Window
	hoveredWindow *Window
	pendingFocus  core.ID
	navID         core.ID
	navLayer      core.NavLayer

	hoveredID       core.ID
	hoveredIDPrev   core.ID
	activeID        core.ID
	activeIDAlive   bool
	textActiveID    core.ID
	textSelectAll   bool
	lastItemID      core.ID
	lastItemRect    core.Rect
	lastItemFlags   core.ItemStatusFlags
	popupClickTaken bool

	prevMouseDown      [core.MouseButtonCount]bool
	prevMousePos       core.Vec2
	mouseDelta         core.Vec2
	mouseClicked       [core.MouseButtonCount]bool
	mouseReleased      [core.MouseButtonCount]bool
	mouseDoubleClicked [core.MouseButtonCount]bool
	mouseClickedPos    [core.MouseButtonCount]core.Vec2
	keysPrev           [core.KeyCount]bool
	keysPressed        [core.KeyCount]bool
	navPrev            [core.NavInputCount]bool
	navPressed         [core.NavInputCount]bool
	chars              []rune

	movingWindow *Window
	popups       []popupRef
	drag         dragState
	dockSeq      int
}

// New creates a GUI context with default IO.
func New() *Context {
	return &Context{
		io:            core.NewIO(),
		windowsByName: make(map[string]*Window),
		windowsByID:   make(map[core.ID]*Window),
		prevMousePos:  core.Vec2{X: -math.MaxFloat32, Y: -math.MaxFloat32},
	}
}

// SetHooks installs the engine hooks. nil removes them.
func (c *Context) SetHooks(h core.Hooks) { c.hooks = h }

// ----------------------------------------------------------------------------
// Frame
// ----------------------------------------------------------------------------

// NewFrame starts a frame: the pre-frame hook may rewrite IO, then input
// edges are computed, then the post-frame hook runs. Items may be
// submitted until EndFrame.
func (c *Context) NewFrame() {
	c.frame++
	for _, w := range c.windows {
		w.wasActive = w.active
		w.active = false
		w.lastRects = append(w.lastRects[:0], w.itemRects...)
	}

	if c.hooks != nil {
		c.hooks.PreNewFrame(c)
	}

	io := c.io
	c.time += io.DeltaTime
	c.hoveredIDPrev = c.hoveredID
	c.hoveredID = 0
	c.activeIDAlive = false
	c.popupClickTaken = false

	c.mouseDelta = core.Vec2{}
	if io.MousePosValid() && c.prevMousePos.X > -math.MaxFloat32/2 {
		c.mouseDelta = io.MousePos.Sub(c.prevMousePos)
	}
	c.updateMouseButtons()
	c.updateKeys()
	c.updateMovingWindow()
	c.hoveredWindow = c.findHoveredWindow(nil)
	c.applyMouseWheel()

	if c.hooks != nil {
		c.hooks.PostNewFrame(c)
	}
}

// EndFrame finishes the frame: focus on click, window moves, stale popups
// and navigation are resolved.
func (c *Context) EndFrame() {
	if len(c.windowStack) != 0 {
		panic("headless: missing End")
	}
	io := c.io

	if c.mouseClicked[core.MouseButtonLeft] {
		c.closePopupsOnClick()
		c.handleClickFocus()
	}
	c.closeStalePopups()

	if c.activeID != 0 && !c.activeIDAlive {
		c.activeID = 0
	}
	if c.textActiveID != 0 && c.mouseClicked[core.MouseButtonLeft] && c.hoveredID != c.textActiveID {
		c.textActiveID = 0
	}
	c.updateNavArrows()
	if !io.MouseDown[core.MouseButtonLeft] {
		c.drag = dragState{}
	}

	c.prevMousePos = io.MousePos
	c.prevMouseDown = io.MouseDown
	c.keysPrev = io.KeysDown
	c.navPrev = io.NavInputs
	io.MouseWheel, io.MouseWheelH = 0, 0
}

// Frame runs NewFrame, draw and EndFrame.
func (c *Context) Frame(draw func()) {
	c.NewFrame()
	if draw != nil {
		draw()
	}
	c.EndFrame()
}

// RunFrames runs frames until done returns true or max frames have run.
// It returns the number of frames run.
func (c *Context) RunFrames(maxFrames int, draw func(), done func() bool) int {
	n := 0
	for ; n < maxFrames; n++ {
		if done != nil && done() {
			break
		}
		c.Frame(draw)
	}
	return n
}

func (c *Context) updateMouseButtons() {
	io := c.io
	for b := 0; b < core.MouseButtonCount; b++ {
		down := io.MouseDown[b]
		c.mouseClicked[b] = down && !c.prevMouseDown[b]
		c.mouseReleased[b] = !down && c.prevMouseDown[b]
		c.mouseDoubleClicked[b] = false

		if c.mouseClicked[b] {
			d := io.MousePos.Sub(c.mouseClickedPos[b])
			if c.time-io.MouseClickedTime[b] < io.MouseDoubleClickTime && d.Length() < io.MouseDoubleClickMaxDist {
				c.mouseDoubleClicked[b] = true
				io.MouseClickedTime[b] = -math.MaxFloat32
			} else {
				io.MouseClickedTime[b] = c.time
			}
			c.mouseClickedPos[b] = io.MousePos
			io.MouseDragMaxDistanceSqr[b] = 0
		}
		if down {
			d := io.MousePos.Sub(c.mouseClickedPos[b])
			io.MouseDragMaxDistanceSqr[b] = max(io.MouseDragMaxDistanceSqr[b], d.X*d.X+d.Y*d.Y)
		}
	}
}

func (c *Context) updateKeys() {
	io := c.io
	for k := range io.KeysDown {
		c.keysPressed[k] = io.KeysDown[k] && !c.keysPrev[k]
	}
	for n := range io.NavInputs {
		c.navPressed[n] = io.NavInputs[n] && !c.navPrev[n]
	}
	c.chars = append(c.chars[:0], io.InputQueueCharacters...)
	io.InputQueueCharacters = io.InputQueueCharacters[:0]

	if c.keysPressed[core.KeyEscape] || c.navPressed[core.NavInputCancel] {
		switch {
		case c.textActiveID != 0:
			c.textActiveID = 0
		case len(c.popups) > 0:
			c.ClosePopupToLevel(len(c.popups) - 1)
		}
	}
}

func (c *Context) applyMouseWheel() {
	io := c.io
	if io.MouseWheel == 0 && io.MouseWheelH == 0 {
		return
	}
	w := c.hoveredWindow
	if w == nil {
		return
	}
	// Scroll the innermost child under the mouse that can scroll.
	for {
		var next *Window
		for _, ch := range w.children {
			if ch.wasActive && ch.InnerClipRect().Contains(io.MousePos) && ch.scrollMax.Y > 0 {
				next = ch
			}
		}
		if next == nil {
			break
		}
		w = next
	}
	step := ItemHeight * 3.0
	if io.MouseWheel != 0 {
		c.SetScroll(w, core.AxisY, w.scroll.Y-io.MouseWheel*step)
	}
	if io.MouseWheelH != 0 {
		c.SetScroll(w, core.AxisX, w.scroll.X-io.MouseWheelH*step)
	}
}

// ----------------------------------------------------------------------------
// core.GUIContext
// ----------------------------------------------------------------------------

func (c *Context) IO() *core.IO                    { return c.io }
func (c *Context) FrameCount() int                 { return c.frame }
func (c *Context) Time() float64                   { return c.time }
func (c *Context) HoveredIDPreviousFrame() core.ID { return c.hoveredIDPrev }
func (c *Context) ActiveID() core.ID               { return c.activeID }
func (c *Context) NavID() core.ID                  { return c.navID }
func (c *Context) WindowsHoverPadding() float64    { return HoverPadding }
func (c *Context) OpenPopupCount() int             { return len(c.popups) }

// HoveredID returns the item hovered so far in the current frame.
func (c *Context) HoveredID() core.ID { return c.hoveredID }

// TextActiveID returns the text input being edited.
func (c *Context) TextActiveID() core.ID { return c.textActiveID }

func (c *Context) CurrentWindow() core.Window {
	if c.current == nil {
		return nil
	}
	return c.current
}

func (c *Context) FindWindowByID(id core.ID) core.Window {
	if w := c.windowsByID[id]; w != nil {
		return w
	}
	return nil
}

func (c *Context) FindWindowByName(name string) core.Window {
	if w := c.windowsByName[name]; w != nil {
		return w
	}
	return nil
}

// Window returns the window named name, or nil.
func (c *Context) Window(name string) *Window {
	return c.windowsByName[name]
}

// Windows returns regular windows back to front, each followed by its
// children, then open popups.
func (c *Context) Windows() []core.Window {
	var out []core.Window
	var add func(w *Window)
	add = func(w *Window) {
		out = append(out, w)
		for _, ch := range w.children {
			add(ch)
		}
	}
	for _, w := range c.order {
		add(w)
	}
	for _, p := range c.popups {
		if w := c.windowsByID[p.windowID]; w != nil {
			add(w)
		}
	}
	return out
}

func (c *Context) NavWindow() core.Window {
	if c.navWindow == nil {
		return nil
	}
	return c.navWindow
}

func (c *Context) HoveredWindow() core.Window {
	if c.hoveredWindow == nil {
		return nil
	}
	return c.hoveredWindow
}

func (c *Context) FocusWindow(w core.Window) {
	if w == nil {
		c.navWindow = nil
		return
	}
	hw := c.windowsByID[w.ID()]
	if hw == nil {
		return
	}
	c.navWindow = hw
	c.bringToFront(hw.root())
}

func (c *Context) BringWindowToDisplayFront(w core.Window) {
	if hw := c.windowsByID[w.ID()]; hw != nil {
		c.bringToFront(hw.root())
	}
}

func (c *Context) SetNavID(w core.Window, id core.ID, layer core.NavLayer) {
	if hw := c.windowsByID[w.ID()]; hw != nil {
		c.navWindow = hw
	}
	c.navID = id
	c.navLayer = layer
}

func (c *Context) SetScroll(w core.Window, axis core.Axis, value float64) {
	hw := c.windowsByID[w.ID()]
	if hw == nil {
		return
	}
	hw.pendingScroll[axis] = &value
}

// ForceScrollLimit makes the vertical scroll of the window named name stop
// at limit while ScrollMax keeps reporting the full range. A negative
// limit removes the restriction. It simulates a layout whose scroll range
// cannot be reached.
func (c *Context) ForceScrollLimit(name string, limit float64) {
	w := c.windowsByName[name]
	if w == nil {
		return
	}
	if limit < 0 {
		w.scrollLimit = nil
		return
	}
	w.scrollLimit = &limit
}

// ----------------------------------------------------------------------------
// Windows
// ----------------------------------------------------------------------------

func (c *Context) addWindow(w *Window) {
	c.windows = append(c.windows, w)
	c.windowsByName[w.name] = w
	c.windowsByID[w.id] = w
	if !w.flags.Has(core.WindowFlagPopup) && !w.flags.Has(core.WindowFlagChild) {
		c.order = append(c.order, w)
	}
}

func (c *Context) bringToFront(w *Window) {
	if w.flags.Has(core.WindowFlagPopup) {
		return
	}
	for i, o := range c.order {
		if o == w {
			c.order = append(append(c.order[:i:i], c.order[i+1:]...), w)
			return
		}
	}
}

// findHoveredWindow returns the front-most window under the mouse,
// ignoring skip.
func (c *Context) findHoveredWindow(skip *Window) *Window {
	pos := c.io.MousePos
	if !c.io.MousePosValid() {
		return nil
	}
	windows := c.Windows()
	for n := len(windows) - 1; n >= 0; n-- {
		w := windows[n].(*Window)
		if w.flags.Has(core.WindowFlagChild) || !w.wasActive || w == skip {
			continue
		}
		if w.flags.Has(core.WindowFlagNoMouseInputs) {
			continue
		}
		if w.Rect().Contains(pos) {
			return w
		}
	}
	return nil
}

// isWindowHovered reports whether the mouse is over the visible area of w.
func (c *Context) isWindowHovered(w *Window) bool {
	if c.hoveredWindow == nil || c.hoveredWindow != w.root() {
		return false
	}
	return w.clip.Contains(c.io.MousePos)
}

func (c *Context) handleClickFocus() {
	w := c.hoveredWindow
	if w == nil {
		c.navWindow = nil
		return
	}
	if !w.flags.Has(core.WindowFlagPopup) {
		// A click that opened a popup leaves focus on the popup.
		if !c.popupClickTaken {
			c.navWindow = w
		}
		c.bringToFront(w)
	}
	if c.hoveredID == 0 && c.activeID == 0 && !w.flags.Has(core.WindowFlagNoMove) && !w.flags.Has(core.WindowFlagPopup) {
		c.movingWindow = w
	}
}

func (c *Context) updateMovingWindow() {
	w := c.movingWindow
	if w == nil {
		return
	}
	if c.io.MouseDown[core.MouseButtonLeft] {
		w.pos = w.pos.Add(c.mouseDelta)
		return
	}
	c.movingWindow = nil
	if target := c.findHoveredWindow(w); target != nil && !target.flags.Has(core.WindowFlagPopup) {
		if drop, ok := c.DockDropRect(target); ok && drop.Contains(c.io.MousePos) {
			c.dock(w, target)
		}
	}
}

// ----------------------------------------------------------------------------
// Docking
// ----------------------------------------------------------------------------

// WindowDockID returns the dock node hosting w, or 0.
func (c *Context) WindowDockID(w core.Window) core.ID {
	if hw := c.windowsByID[w.ID()]; hw != nil {
		return hw.dockID
	}
	return 0
}

// DockDropRect returns the center square of target.
func (c *Context) DockDropRect(target core.Window) (core.Rect, bool) {
	hw := c.windowsByID[target.ID()]
	if hw == nil || hw.collapsed || hw.flags.Has(core.WindowFlagPopup) || hw.flags.Has(core.WindowFlagChild) {
		return core.Rect{}, false
	}
	center := hw.Rect().Center()
	half := core.Vec2{X: DockDropSize / 2, Y: DockDropSize / 2}
	return core.Rect{Min: center.Sub(half), Max: center.Add(half)}, true
}

// UndockWindow detaches w from its dock node.
func (c *Context) UndockWindow(w core.Window) {
	hw := c.windowsByID[w.ID()]
	if hw == nil || hw.dockID == 0 {
		return
	}
	node := hw.dockID
	hw.dockID = 0
	hw.pos = hw.pos.Add(core.Vec2{X: TitleBarHeight, Y: TitleBarHeight})

	var rest []*Window
	for _, o := range c.windows {
		if o.dockID == node {
			rest = append(rest, o)
		}
	}
	if len(rest) == 1 {
		rest[0].dockID = 0
	}
}

func (c *Context) dock(src, dst *Window) {
	if dst.dockID == 0 {
		c.dockSeq++
		dst.dockID = hash.String("##DockNode", uint32(c.dockSeq))
	}
	src.dockID = dst.dockID
	src.pos = dst.pos
	src.size = dst.size
}
