package headless

import (
	"fmt"
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
)

// popupRef is an entry of the open popup stack.
type popupRef struct {
	windowID  core.ID
	openerID  core.ID
	name      string
	parent    *Window
	pos       core.Vec2
	openFrame int
}

// MenuPopupName returns the name of the popup window of a menu at depth,
// 0 being the menus opened from a menu bar.
func MenuPopupName(depth int) string { return fmt.Sprintf("##Menu_%02d", depth) }

// ComboPopupName returns the name of the popup window of a combo box
// opened at popup depth.
func ComboPopupName(depth int) string { return fmt.Sprintf("##Combo_%02d", depth) }

// popupLevel returns the stack level a popup opened from w occupies.
func popupLevel(w *Window) int {
	r := w.root()
	if r.flags.Has(core.WindowFlagPopup) {
		return r.popupDepth + 1
	}
	return 0
}

func (c *Context) isPopupOpen(level int, windowID, openerID core.ID) bool {
	if level >= len(c.popups) {
		return false
	}
	p := c.popups[level]
	return p.windowID == windowID && p.openerID == openerID
}

func (c *Context) openPopup(level int, name string, openerID core.ID, pos core.Vec2, parent *Window) {
	wid := hash.String(name, 0)
	if c.isPopupOpen(level, wid, openerID) {
		return
	}
	c.ClosePopupToLevel(level)
	c.popups = append(c.popups, popupRef{
		windowID:  wid,
		openerID:  openerID,
		name:      name,
		parent:    parent,
		pos:       pos,
		openFrame: c.frame,
	})
	c.pendingFocus = wid
}

// ClosePopupToLevel closes the popups at level and above. Focus returns
// to the window the first closed popup was opened from.
func (c *Context) ClosePopupToLevel(level int) {
	if level < 0 {
		level = 0
	}
	if level >= len(c.popups) {
		return
	}
	restore := c.popups[level].parent
	for _, p := range c.popups[level:] {
		if c.navWindow != nil && c.navWindow.id == p.windowID {
			c.navWindow = restore
		}
		if c.pendingFocus == p.windowID {
			c.pendingFocus = 0
		}
		if w := c.windowsByID[p.windowID]; w != nil {
			w.popupDepth = -1
		}
	}
	c.popups = c.popups[:level]
}

// closeStalePopups closes popups that were not submitted this frame.
func (c *Context) closeStalePopups() {
	for i, p := range c.popups {
		if p.openFrame >= c.frame {
			continue
		}
		if w := c.windowsByID[p.windowID]; w == nil || !w.active {
			c.ClosePopupToLevel(i)
			return
		}
	}
}

// closePopupsOnClick closes the popups above the clicked one, or all of
// them on a click outside.
func (c *Context) closePopupsOnClick() {
	if !c.mouseClicked[core.MouseButtonLeft] || len(c.popups) == 0 || c.popupClickTaken {
		return
	}
	level := 0
	if w := c.hoveredWindow; w != nil && w.flags.Has(core.WindowFlagPopup) {
		level = w.popupDepth + 1
	}
	c.ClosePopupToLevel(level)
}

// beginPopupWindow starts the window of the popup open at level.
func (c *Context) beginPopupWindow(level int, flags core.WindowFlags) bool {
	ref := c.popups[level]
	w := c.windowsByName[ref.name]
	if w == nil {
		w = newWindow(c, ref.name, core.WindowFlagPopup)
		w.size = core.Vec2{X: 120, Y: 0}
		c.addWindow(w)
	}
	w.flags = core.WindowFlagPopup | core.WindowFlagNoTitleBar | core.WindowFlagNoMove | core.WindowFlagNoResize | flags
	w.pos = ref.pos
	w.parent = ref.parent
	w.popupDepth = level
	w.menuDepth = -1
	c.beginWindow(w)
	c.startContents(w)
	return true
}

// OpenPopup marks the popup identified by strID open. It shows at the
// mouse position.
func (c *Context) OpenPopup(strID string) {
	w := c.mustCurrent()
	id := w.GetID(strID)
	c.openPopup(popupLevel(w), fmt.Sprintf("##Popup_%08X", id), id, c.io.MousePos, w)
}

// BeginPopup starts the popup identified by strID if it is open. EndPopup
// must be called only when it returns true.
func (c *Context) BeginPopup(strID string) bool {
	w := c.mustCurrent()
	id := w.GetID(strID)
	name := fmt.Sprintf("##Popup_%08X", id)
	level := popupLevel(w)
	if !c.isPopupOpen(level, hash.String(name, 0), id) {
		return false
	}
	return c.beginPopupWindow(level, core.WindowFlagNone)
}

// EndPopup finishes a popup started with BeginPopup.
func (c *Context) EndPopup() { c.End() }

// CloseCurrentPopup closes the popup being submitted and those above it.
func (c *Context) CloseCurrentPopup() {
	w := c.mustCurrent().root()
	if w.flags.Has(core.WindowFlagPopup) && w.popupDepth >= 0 {
		c.ClosePopupToLevel(w.popupDepth)
	}
}

// IsPopupOpen reports whether the popup strID of the current window is
// open.
func (c *Context) IsPopupOpen(strID string) bool {
	w := c.mustCurrent()
	id := w.GetID(strID)
	return c.isPopupOpen(popupLevel(w), hash.String(fmt.Sprintf("##Popup_%08X", id), 0), id)
}

// ----------------------------------------------------------------------------
// Menus
// ----------------------------------------------------------------------------

type menuBarState struct {
	x          float64
	cursor     core.Vec2
	lineMaxX   float64
	lastLineY  float64
	contentMax core.Vec2
}

// BeginMenuBar starts the menu bar of a window created with
// WindowFlagMenuBar. EndMenuBar must be called when it returns true.
func (c *Context) BeginMenuBar() bool {
	w := c.mustCurrent()
	if !w.flags.Has(core.WindowFlagMenuBar) || w.collapsed {
		return false
	}
	bar := w.menuBarRect()
	w.menuBar = &menuBarState{
		x:          bar.Min.X + WindowPadding,
		cursor:     w.cursor,
		lineMaxX:   w.lineMaxX,
		lastLineY:  w.lastLineY,
		contentMax: w.contentMax,
	}
	w.navLayer = core.NavLayerMenu
	w.clip = bar
	w.idStack = append(w.idStack, w.GetID("##menubar"))
	return true
}

// EndMenuBar finishes the menu bar.
func (c *Context) EndMenuBar() {
	w := c.mustCurrent()
	mb := w.menuBar
	if mb == nil {
		panic("headless: EndMenuBar without BeginMenuBar")
	}
	w.idStack = w.idStack[:len(w.idStack)-1]
	w.cursor, w.lineMaxX, w.lastLineY, w.contentMax = mb.cursor, mb.lineMaxX, mb.lastLineY, mb.contentMax
	w.clip = w.InnerClipRect()
	w.navLayer = core.NavLayerMain
	w.menuBar = nil
}

// menuItemRect lays out a menu entry: horizontally in a menu bar,
// vertically and full width elsewhere.
func (c *Context) menuItemRect(w *Window, label string, extra float64) core.Rect {
	width := labelWidth(label) + extra
	if mb := w.menuBar; mb != nil {
		bar := w.menuBarRect()
		r := core.RectFromPosSize(core.Vec2{X: mb.x, Y: bar.Min.Y}, core.Vec2{X: width, Y: bar.Height()})
		mb.x = r.Max.X + ItemSpacing
		return r
	}
	return c.layoutItem(w, core.Vec2{X: math.Max(c.availWidth(w), width), Y: ItemHeight})
}

// BeginMenu submits a menu entry and starts its popup when open. Menus
// in a menu bar open on click, or on hover while a sibling menu is open.
// Sub-menus open on hover. EndMenu must be called when it returns true.
func (c *Context) BeginMenu(label string) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	inBar := w.menuBar != nil

	depth := 0
	if !inBar {
		depth = w.root().menuDepth + 1
	}
	level := popupLevel(w)
	name := MenuPopupName(depth)
	wid := hash.String(name, 0)

	rect := c.menuItemRect(w, label, ItemHeight)
	popupPos := core.Vec2{X: rect.Min.X, Y: rect.Max.Y}
	if !inBar {
		popupPos = core.Vec2{X: w.Rect().Max.X, Y: rect.Min.Y}
	}

	c.itemAdd(id, rect)
	hovered := c.itemHoverable(w, id, rect)
	open := c.isPopupOpen(level, wid, id)

	switch {
	case hovered && c.mouseClicked[core.MouseButtonLeft]:
		c.popupClickTaken = true
		if open && inBar {
			c.ClosePopupToLevel(level)
			open = false
		} else if !open {
			c.openPopup(level, name, id, popupPos, w)
			open = true
		}
	case hovered && !open:
		siblingOpen := level < len(c.popups) && c.popups[level].parent == w
		if !inBar || siblingOpen {
			c.openPopup(level, name, id, popupPos, w)
			open = true
		}
	case c.navID == id && c.navPressed[core.NavInputActivate] && !open:
		c.openPopup(level, name, id, popupPos, w)
		open = true
	}

	flags := core.ItemStatusOpenable
	if open {
		flags |= core.ItemStatusOpened
	}
	c.itemInfo(id, label, flags)
	if !open {
		return false
	}

	extra := core.WindowFlagNone
	if depth > 0 {
		extra = core.WindowFlagChildMenu
	}
	c.beginPopupWindow(level, extra)
	c.current.menuDepth = depth
	return true
}

// EndMenu finishes a menu started with BeginMenu.
func (c *Context) EndMenu() { c.End() }

// MenuItem submits a menu entry. When selected is non nil the entry is
// checkable and toggles it. Clicking an entry closes every popup.
func (c *Context) MenuItem(label, shortcut string, selected *bool) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	extra := 0.0
	if shortcut != "" {
		extra = labelWidth(shortcut) + ItemSpacing
	}
	rect := c.menuItemRect(w, label, extra)
	pressed, _ := c.buttonBehavior(w, id, rect)

	// Hovering a plain entry closes the sub-menus of its menu.
	if level := popupLevel(w); c.lastItemHovered() && w.menuBar == nil && level < len(c.popups) && c.popups[level].parent == w {
		c.ClosePopupToLevel(level)
	}
	if pressed && selected != nil {
		*selected = !*selected
	}

	flags := core.ItemStatusNone
	if selected != nil {
		flags |= core.ItemStatusCheckable
		if *selected {
			flags |= core.ItemStatusChecked
		}
	}
	c.itemInfo(id, label, flags)
	if pressed {
		c.ClosePopupToLevel(0)
	}
	return pressed
}

// ----------------------------------------------------------------------------
// Combo boxes
// ----------------------------------------------------------------------------

// BeginCombo submits a combo box showing preview and starts its list when
// open. EndCombo must be called when it returns true.
func (c *Context) BeginCombo(label, preview string) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	rect := c.layoutItem(w, core.Vec2{X: labelWidth(preview) + ItemHeight + labelWidth(label), Y: ItemHeight})

	level := popupLevel(w)
	name := ComboPopupName(level)
	wid := hash.String(name, 0)

	c.itemAdd(id, rect)
	hovered := c.itemHoverable(w, id, rect)
	open := c.isPopupOpen(level, wid, id)

	popupPos := core.Vec2{X: rect.Min.X, Y: rect.Max.Y}
	switch {
	case hovered && c.mouseClicked[core.MouseButtonLeft]:
		c.popupClickTaken = true
		if open {
			c.ClosePopupToLevel(level)
			open = false
		} else {
			c.openPopup(level, name, id, popupPos, w)
			open = true
		}
	case c.navID == id && c.navPressed[core.NavInputActivate] && !open:
		c.openPopup(level, name, id, popupPos, w)
		open = true
	}

	flags := core.ItemStatusOpenable
	if open {
		flags |= core.ItemStatusOpened
	}
	c.itemInfo(id, label, flags)
	if !open {
		return false
	}
	return c.beginPopupWindow(level, core.WindowFlagNone)
}

// EndCombo finishes a combo box list.
func (c *Context) EndCombo() { c.End() }

// Combo is a combo box over items. It returns true when *current changed.
func (c *Context) Combo(label string, current *int, items []string) bool {
	preview := ""
	if *current >= 0 && *current < len(items) {
		preview = items[*current]
	}
	if !c.BeginCombo(label, preview) {
		return false
	}
	changed := false
	for i, it := range items {
		if c.Selectable(it, i == *current) {
			*current = i
			changed = true
		}
	}
	c.EndCombo()
	return changed
}

// ----------------------------------------------------------------------------
// Tabs
// ----------------------------------------------------------------------------

type tabBar struct {
	id       core.ID
	y        float64
	x        float64
	selected core.ID
}

// BeginTabBar starts a row of tabs. EndTabBar must be called when it
// returns true.
func (c *Context) BeginTabBar(strID string) bool {
	w := c.mustCurrent()
	id := w.GetID(strID)
	row := c.layoutItem(w, core.Vec2{X: c.availWidth(w), Y: ItemHeight})
	w.tabBar = &tabBar{id: id, x: row.Min.X, y: row.Min.Y, selected: w.tabSelected[id]}
	w.idStack = append(w.idStack, id)
	return true
}

// TabItem submits a tab. When open is non nil the tab has a close button
// that clears it. It returns true when the tab is selected; EndTabItem
// must be called then.
func (c *Context) TabItem(label string, open *bool) bool {
	w := c.mustCurrent()
	tb := w.tabBar
	if tb == nil {
		panic("headless: TabItem outside of a tab bar")
	}
	if open != nil && !*open {
		return false
	}
	id := w.GetID(label)
	width := labelWidth(label)
	if open != nil {
		width += ItemHeight
	}
	rect := core.RectFromPosSize(core.Vec2{X: tb.x, Y: tb.y}, core.Vec2{X: width, Y: ItemHeight})
	tb.x = rect.Max.X + ItemSpacing
	w.contentMax.X = math.Max(w.contentMax.X, rect.Max.X)

	if open != nil {
		closeID := hash.String("#CLOSE", id)
		closeRect := core.Rect{Min: core.Vec2{X: rect.Max.X - ItemHeight, Y: rect.Min.Y}, Max: rect.Max}
		if pressed, _ := c.buttonBehavior(w, closeID, closeRect); pressed {
			*open = false
		}
		c.itemInfo(closeID, "#CLOSE", core.ItemStatusNone)
	}

	pressed, _ := c.buttonBehavior(w, id, rect)
	if tb.selected == 0 || pressed {
		tb.selected = id
	}
	c.itemInfo(id, label, core.ItemStatusNone)

	if (open != nil && !*open) || tb.selected != id {
		if open != nil && !*open && tb.selected == id {
			tb.selected = 0
		}
		return false
	}
	w.idStack = append(w.idStack, id)
	return true
}

// EndTabItem finishes the contents of a selected tab.
func (c *Context) EndTabItem() {
	w := c.mustCurrent()
	w.idStack = w.idStack[:len(w.idStack)-1]
}

// EndTabBar finishes a tab bar.
func (c *Context) EndTabBar() {
	w := c.mustCurrent()
	tb := w.tabBar
	if tb == nil {
		panic("headless: EndTabBar without BeginTabBar")
	}
	w.tabSelected[tb.id] = tb.selected
	w.idStack = w.idStack[:len(w.idStack)-1]
	w.tabBar = nil
}
