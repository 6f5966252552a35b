package headless

import (
	"fmt"
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
)

// Layout metrics, in pixels.
const (
	TitleBarHeight = 20
	ItemHeight     = 20
	ItemSpacing    = 4
	CharWidth      = 7
	WindowPadding  = 8
	FramePadding   = 4
	IndentSpacing  = 16
	GripSize       = 12
	DockDropSize   = 40
	HoverPadding   = 4

	defaultWindowWidth  = 400
	defaultWindowHeight = 300
	minWindowSize       = 40
)

// Window is a GUI window. It implements core.Window.
type Window struct {
	ctx   *Context
	name  string
	id    core.ID
	flags core.WindowFlags

	pos       core.Vec2
	size      core.Vec2
	scroll    core.Vec2
	scrollMax core.Vec2
	collapsed bool
	dockID    core.ID

	parent   *Window
	children []*Window
	childID  core.ID // Item ID in the parent, for child windows

	popupDepth int
	menuDepth  int // Nesting of a menu popup, -1 otherwise

	active    bool // Submitted this frame
	wasActive bool // Submitted last frame

	idStack  []core.ID
	clip     core.Rect
	navLayer core.NavLayer

	cursor     core.Vec2
	indent     float64
	lineMaxX   float64
	contentMax core.Vec2
	sameLine   bool
	lastLineY  float64

	pendingScroll [2]*float64
	scrollLimit   *float64 // Forced upper bound for the vertical scroll

	storage     map[core.ID]bool // Open state of tree nodes and headers
	tabSelected map[core.ID]core.ID
	tabBar      *tabBar
	menuBar     *menuBarState

	itemRects []core.Rect // Items submitted this frame, for screenshots
	lastRects []core.Rect
	navItems  []core.ID
}

func newWindow(ctx *Context, name string, flags core.WindowFlags) *Window {
	w := &Window{
		ctx:         ctx,
		name:        name,
		id:          hash.String(name, 0),
		flags:       flags,
		popupDepth:  -1,
		menuDepth:   -1,
		storage:     make(map[core.ID]bool),
		tabSelected: make(map[core.ID]core.ID),
	}
	n := float64(len(ctx.windows))
	w.pos = core.Vec2{X: 60 + 30*n, Y: 60 + 30*n}
	w.size = core.Vec2{X: defaultWindowWidth, Y: defaultWindowHeight}
	return w
}

// core.Window

func (w *Window) ID() core.ID                    { return w.id }
func (w *Window) Name() string                   { return w.name }
func (w *Window) Flags() core.WindowFlags        { return w.flags }
func (w *Window) Pos() core.Vec2                 { return w.pos }
func (w *Window) Size() core.Vec2                { return w.displaySize() }
func (w *Window) Scroll() core.Vec2              { return w.scroll }
func (w *Window) ScrollMax() core.Vec2           { return w.scrollMax }
func (w *Window) Collapsed() bool                { return w.collapsed }
func (w *Window) WasActive() bool                { return w.wasActive }
func (w *Window) ClipRect() core.Rect            { return w.clip }
func (w *Window) NavLayerCurrent() core.NavLayer { return w.navLayer }
func (w *Window) PopupDepth() int                { return w.popupDepth }

// IDStack returns the identifier stack; the first entry is the window ID.
func (w *Window) IDStack() []core.ID { return w.idStack }

// Rect returns the window rectangle, title bar included.
func (w *Window) Rect() core.Rect { return core.RectFromPosSize(w.pos, w.displaySize()) }

func (w *Window) displaySize() core.Vec2 {
	if w.collapsed {
		return core.Vec2{X: w.size.X, Y: TitleBarHeight}
	}
	return w.size
}

// TitleBarRect returns the title bar area, empty without a title bar.
func (w *Window) TitleBarRect() core.Rect {
	if !w.hasTitleBar() {
		return core.Rect{Min: w.pos, Max: w.pos}
	}
	return core.RectFromPosSize(w.pos, core.Vec2{X: w.size.X, Y: TitleBarHeight})
}

func (w *Window) menuBarRect() core.Rect {
	if !w.flags.Has(core.WindowFlagMenuBar) {
		return core.Rect{}
	}
	top := w.TitleBarRect().Max.Y
	return core.Rect{Min: core.Vec2{X: w.pos.X, Y: top}, Max: core.Vec2{X: w.pos.X + w.size.X, Y: top + ItemHeight}}
}

// InnerClipRect returns the area where contents are visible.
func (w *Window) InnerClipRect() core.Rect {
	if w.collapsed {
		return core.Rect{Min: w.pos, Max: w.pos}
	}
	top := w.pos.Y
	if w.hasTitleBar() {
		top = w.TitleBarRect().Max.Y
	}
	if w.flags.Has(core.WindowFlagMenuBar) {
		top += ItemHeight
	}
	r := core.Rect{Min: core.Vec2{X: w.pos.X, Y: top}, Max: w.pos.Add(w.size)}
	if w.parent != nil && w.flags.Has(core.WindowFlagChild) {
		r = r.ClipWithFull(w.parent.InnerClipRect())
	}
	return r
}

// ParentWindow returns the parent of a child window or the window a popup
// was opened from.
func (w *Window) ParentWindow() core.Window {
	if w.parent == nil {
		return nil
	}
	return w.parent
}

// RootWindow returns the top-level window containing w. Popups are their
// own root.
func (w *Window) RootWindow() core.Window {
	return w.root()
}

func (w *Window) root() *Window {
	r := w
	for r.parent != nil && r.flags.Has(core.WindowFlagChild) {
		r = r.parent
	}
	return r
}

func (w *Window) hasTitleBar() bool {
	return !w.flags.Has(core.WindowFlagNoTitleBar) && !w.flags.Has(core.WindowFlagPopup) && !w.flags.Has(core.WindowFlagChild)
}

// GetID hashes label with the top of the ID stack.
func (w *Window) GetID(label string) core.ID {
	return hash.String(label, w.idStack[len(w.idStack)-1])
}

// ----------------------------------------------------------------------------
// Begin / End
// ----------------------------------------------------------------------------

// SetNextWindowPos sets the position of the next window on its first use.
func (c *Context) SetNextWindowPos(pos core.Vec2) { c.nextPos = &pos }

// SetNextWindowSize sets the size of the next window on its first use.
func (c *Context) SetNextWindowSize(size core.Vec2) { c.nextSize = &size }

// Begin starts a top-level window. When open is non nil the window has a
// close button that clears it. Begin returns false when the window is
// collapsed or closed; End must be called either way.
func (c *Context) Begin(name string, open *bool, flags core.WindowFlags) bool {
	w := c.windowsByName[name]
	created := w == nil
	if created {
		w = newWindow(c, name, flags)
		c.addWindow(w)
		if c.nextPos != nil {
			w.pos = *c.nextPos
		}
		if c.nextSize != nil {
			w.size = *c.nextSize
		}
	}
	c.nextPos, c.nextSize = nil, nil
	w.flags = flags

	c.beginWindow(w)
	if open != nil && !*open {
		w.active = false
		return false
	}

	if w.hasTitleBar() {
		c.titleBar(w, open)
	}
	if w.collapsed {
		return false
	}
	if !w.flags.Has(core.WindowFlagNoResize) {
		c.resizeGrip(w)
	}
	c.startContents(w)
	return open == nil || *open
}

// End finishes the current window.
func (c *Context) End() {
	w := c.current
	if w == nil {
		panic("headless: End without Begin")
	}
	c.finishWindow(w)
	c.windowStack = c.windowStack[:len(c.windowStack)-1]
	c.current = nil
	if n := len(c.windowStack); n > 0 {
		c.current = c.windowStack[n-1]
	}
}

// BeginChild starts a child window embedded in the current window, size
// high. The child is an item of its parent. EndChild must always be
// called.
func (c *Context) BeginChild(label string, height float64) bool {
	parent := c.mustCurrent()
	itemID := parent.GetID(label)
	name := fmt.Sprintf("%s/%s_%08X", parent.name, label, itemID)

	w := c.windowsByName[name]
	if w == nil {
		w = newWindow(c, name, core.WindowFlagChild|core.WindowFlagNoTitleBar|core.WindowFlagNoResize)
		w.parent = parent
		w.childID = itemID
		parent.children = append(parent.children, w)
		c.windowsByName[name] = w
		c.windowsByID[w.id] = w
		c.windowsByID[itemID] = w
	}

	rect := c.layoutItem(parent, core.Vec2{X: c.availWidth(parent), Y: height})
	w.pos = rect.Min
	w.size = rect.Size()
	c.itemAdd(itemID, rect)
	c.itemInfo(itemID, label, core.ItemStatusNone)

	c.beginWindow(w)
	c.startContents(w)
	return true
}

// EndChild finishes a child window.
func (c *Context) EndChild() {
	c.End()
}

func (c *Context) beginWindow(w *Window) {
	w.active = true
	w.idStack = append(w.idStack[:0], w.id)
	w.navLayer = core.NavLayerMain
	w.clip = w.Rect()
	w.itemRects = w.itemRects[:0]
	w.navItems = w.navItems[:0]
	w.tabBar = nil
	w.menuBar = nil

	if c.pendingFocus != 0 && c.pendingFocus == w.id {
		c.pendingFocus = 0
		c.navWindow = w
	}

	c.windowStack = append(c.windowStack, w)
	c.current = w
}

func (c *Context) startContents(w *Window) {
	for axis := core.AxisX; axis <= core.AxisY; axis++ {
		if p := w.pendingScroll[axis]; p != nil {
			w.pendingScroll[axis] = nil
			limit := w.scrollMax.Get(axis)
			if axis == core.AxisY && w.scrollLimit != nil {
				limit = math.Min(limit, *w.scrollLimit)
			}
			v := math.Max(0, math.Min(*p, limit))
			if axis == core.AxisX {
				w.scroll.X = v
			} else {
				w.scroll.Y = v
			}
		}
	}

	inner := w.InnerClipRect()
	w.clip = inner
	w.navLayer = core.NavLayerMain
	w.indent = 0
	w.sameLine = false
	w.cursor = core.Vec2{X: inner.Min.X + WindowPadding - w.scroll.X, Y: inner.Min.Y + WindowPadding - w.scroll.Y}
	w.lastLineY = w.cursor.Y
	w.contentMax = w.cursor
}

func (c *Context) finishWindow(w *Window) {
	if w.collapsed || !w.active {
		return
	}
	inner := w.InnerClipRect()
	contentH := w.contentMax.Y + w.scroll.Y - inner.Min.Y + WindowPadding
	contentW := w.contentMax.X + w.scroll.X - inner.Min.X + WindowPadding
	w.scrollMax = core.Vec2{
		X: math.Max(0, contentW-inner.Width()),
		Y: math.Max(0, contentH-inner.Height()),
	}
	if w.flags.Has(core.WindowFlagPopup) {
		// Popups fit their contents.
		w.size = core.Vec2{X: math.Max(w.size.X, contentW), Y: contentH}
		w.scrollMax = core.Vec2{}
	}
}

func (c *Context) mustCurrent() *Window {
	if c.current == nil {
		panic("headless: no current window")
	}
	return c.current
}

// titleBar submits the collapse and close buttons.
func (c *Context) titleBar(w *Window, open *bool) {
	bar := w.TitleBarRect()
	w.navLayer = core.NavLayerMenu

	collapseID := w.GetID("#COLLAPSE")
	collapseRect := core.RectFromPosSize(bar.Min, core.Vec2{X: TitleBarHeight, Y: TitleBarHeight})
	if pressed, _ := c.buttonBehavior(w, collapseID, collapseRect); pressed {
		w.collapsed = !w.collapsed
	}
	c.itemInfo(collapseID, "#COLLAPSE", core.ItemStatusNone)

	if open != nil {
		closeID := w.GetID("#CLOSE")
		closeRect := core.Rect{Min: core.Vec2{X: bar.Max.X - TitleBarHeight, Y: bar.Min.Y}, Max: bar.Max}
		if pressed, _ := c.buttonBehavior(w, closeID, closeRect); pressed {
			*open = false
		}
		c.itemInfo(closeID, "#CLOSE", core.ItemStatusNone)
	}
	w.navLayer = core.NavLayerMain
}

// resizeGrip submits the bottom-right resize grip and applies drags.
func (c *Context) resizeGrip(w *Window) {
	id := w.GetID("#RESIZE")
	if c.activeID == id && c.io.MouseDown[core.MouseButtonLeft] {
		w.size = w.size.Add(c.mouseDelta)
		w.size.X = math.Max(w.size.X, minWindowSize)
		w.size.Y = math.Max(w.size.Y, minWindowSize)
	}
	br := w.pos.Add(w.size)
	rect := core.Rect{Min: core.Vec2{X: br.X - GripSize, Y: br.Y - GripSize}, Max: br}
	c.buttonBehavior(w, id, rect)
	c.itemInfo(id, "#RESIZE", core.ItemStatusNone)
}

// ----------------------------------------------------------------------------
// Layout
// ----------------------------------------------------------------------------

// SameLine places the next item to the right of the previous one.
func (c *Context) SameLine() {
	c.mustCurrent().sameLine = true
}

// Indent moves the following items to the right.
func (c *Context) Indent() { c.mustCurrent().indent += IndentSpacing }

// Unindent reverts Indent.
func (c *Context) Unindent() { c.mustCurrent().indent -= IndentSpacing }

// Spacing adds vertical space.
func (c *Context) Spacing(height float64) {
	w := c.mustCurrent()
	c.layoutItem(w, core.Vec2{X: 0, Y: height})
}

func (c *Context) availWidth(w *Window) float64 {
	inner := w.InnerClipRect()
	return math.Max(1, inner.Max.X-WindowPadding-(inner.Min.X+WindowPadding+w.indent))
}

// layoutItem reserves space for an item at the cursor.
func (c *Context) layoutItem(w *Window, size core.Vec2) core.Rect {
	var pos core.Vec2
	if w.sameLine {
		pos = core.Vec2{X: w.lineMaxX + ItemSpacing, Y: w.lastLineY}
		w.sameLine = false
	} else {
		pos = core.Vec2{X: w.cursor.X + w.indent, Y: w.cursor.Y}
		w.lastLineY = pos.Y
	}
	rect := core.RectFromPosSize(pos, size)
	w.lineMaxX = rect.Max.X
	if next := rect.Max.Y + ItemSpacing; next > w.cursor.Y {
		w.cursor.Y = next
	}
	w.contentMax.X = math.Max(w.contentMax.X, rect.Max.X)
	w.contentMax.Y = math.Max(w.contentMax.Y, rect.Max.Y)
	return rect
}

func labelWidth(label string) float64 {
	return float64(len([]rune(displayLabel(label))))*CharWidth + 2*FramePadding
}

// displayLabel strips the "##" suffix that only contributes to the ID.
func displayLabel(label string) string {
	for i := 0; i+1 < len(label); i++ {
		if label[i] == '#' && label[i+1] == '#' {
			return label[:i]
		}
	}
	return label
}
