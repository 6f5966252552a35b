package core

// GUIContext is the part of an immediate-mode GUI library the test engine
// needs. The library calls the engine hooks (see engine.Hooks) and exposes
// its state through this interface. Implementations return an untyped nil
// Window when a lookup fails.
// Implementations: headless.Context.
type GUIContext interface {
	// IO returns the live input snapshot. The engine rewrites it from the
	// pre-new-frame hook while a test drives input.
	IO() *IO

	// FrameCount returns the number of frames started so far.
	FrameCount() int

	// Time returns the simulated time in seconds.
	Time() float64

	// CurrentWindow returns the window items are being submitted to.
	CurrentWindow() Window

	// FindWindowByID returns the window with the given ID, or nil.
	FindWindowByID(id ID) Window

	// FindWindowByName returns the window with the given name, or nil.
	FindWindowByName(name string) Window

	// Windows returns every live window, back to front.
	Windows() []Window

	// NavWindow returns the focused window, or nil.
	NavWindow() Window

	// HoveredWindow returns the window under the mouse, or nil.
	HoveredWindow() Window

	// HoveredIDPreviousFrame returns the item hovered during the last frame.
	HoveredIDPreviousFrame() ID

	// ActiveID returns the item currently held active (pressed, edited).
	ActiveID() ID

	// NavID returns the item focused by navigation.
	NavID() ID

	// FocusWindow focuses w and brings it to front. nil clears focus.
	FocusWindow(w Window)

	// BringWindowToDisplayFront changes z-order without changing focus.
	BringWindowToDisplayFront(w Window)

	// SetNavID moves navigation focus to id inside w.
	SetNavID(w Window, id ID, layer NavLayer)

	// SetScroll requests a scroll offset; it is clamped to the window's
	// scroll range when the next frame is processed.
	SetScroll(w Window, axis Axis, value float64)

	// ClosePopupToLevel closes every open popup at depth >= level.
	ClosePopupToLevel(level int)

	// OpenPopupCount returns the number of popups currently open.
	OpenPopupCount() int

	// WindowsHoverPadding is the extra margin around windows that still
	// counts as hovering them (resize borders).
	WindowsHoverPadding() float64
}

// Window is a non-owning reference to a window of the GUI library. It must
// not be kept across frames once the window may have been destroyed.
type Window interface {
	ID() ID
	Name() string
	Flags() WindowFlags
	Pos() Vec2
	Size() Vec2
	Rect() Rect
	TitleBarRect() Rect

	// InnerClipRect is the area where items are visible.
	InnerClipRect() Rect

	// ClipRect is the clip rectangle in effect while items are submitted.
	ClipRect() Rect

	Scroll() Vec2
	ScrollMax() Vec2
	Collapsed() bool

	// WasActive reports whether the window was submitted last frame.
	WasActive() bool

	ParentWindow() Window
	RootWindow() Window

	// IDStack returns the window's identifier stack, outermost first. The
	// first entry is the window ID.
	IDStack() []ID

	// NavLayerCurrent is the layer items are being submitted to.
	NavLayerCurrent() NavLayer

	// PopupDepth is the popup stack level for popup windows, -1 otherwise.
	PopupDepth() int
}

// DockingGUI is implemented by GUI libraries that can dock windows into
// each other.
type DockingGUI interface {
	// WindowDockID returns the dock node hosting w, or 0.
	WindowDockID(w Window) ID

	// DockDropRect returns the area of target over which releasing a dragged
	// window docks it into target.
	DockDropRect(target Window) (Rect, bool)

	// UndockWindow detaches w from its dock node.
	UndockWindow(w Window)
}

// Hooks is the callback surface the GUI library invokes while it processes
// a frame. Implementations: engine.Engine.
type Hooks interface {
	// PreNewFrame runs before the library reads IO for the new frame.
	PreNewFrame(ui GUIContext)

	// PostNewFrame runs once the new frame has started, before any item is
	// submitted.
	PostNewFrame(ui GUIContext)

	// ItemAdd reports the layout of an item in the current window.
	ItemAdd(ui GUIContext, rect Rect, id ID)

	// ItemInfo reports the status of the item last passed to ItemAdd.
	ItemInfo(ui GUIContext, id ID, label string, flags ItemStatusFlags)
}
