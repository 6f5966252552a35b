package engine

import (
	"fmt"
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
	"github.com/devicelab-dev/imtest/pkg/locate"
)

// Labels of the items GUI windows submit for their decorations. Their IDs
// are seeded with the window ID.
const (
	collapseButtonLabel = "#COLLAPSE"
	closeButtonLabel    = "#CLOSE"
	resizeGripLabel     = "#RESIZE"
	menuBarLabel        = "##menubar"
)

// MenuPopupName returns the name of the popup window of a menu opened at
// depth, 0 being the menus opened from a menu bar.
func MenuPopupName(depth int) string { return fmt.Sprintf("##Menu_%02d", depth) }

// ComboPopupName returns the name of the popup window of a combo box
// opened at popup depth.
func ComboPopupName(depth int) string { return fmt.Sprintf("##Combo_%02d", depth) }

// WindowFocus focuses the window named by ref.
func (c *Context) WindowFocus(ref string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	w := c.WindowInfo(ref)
	if w == nil {
		return
	}
	c.LogDebug("FocusWindow('%s')", w.Name())
	c.UI.FocusWindow(w)
	c.Yield()
}

// WindowBringToFront raises the window named by ref without focusing it.
func (c *Context) WindowBringToFront(ref string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	if w := c.WindowInfo(ref); w != nil {
		c.windowBringToFront(w)
	}
}

func (c *Context) windowBringToFront(w core.Window) {
	if w == nil || c.isFrontWindow(w) {
		return
	}
	c.LogDebug("BringWindowToDisplayFront('%s')", w.Name())
	c.UI.BringWindowToDisplayFront(w)
	c.Yield()
}

// isFrontWindow reports whether w is the top-most regular window. Popups
// always stay above regular windows.
func (c *Context) isFrontWindow(w core.Window) bool {
	windows := c.UI.Windows()
	for n := len(windows) - 1; n >= 0; n-- {
		f := windows[n].Flags()
		if f.Has(core.WindowFlagPopup) || f.Has(core.WindowFlagChild) || !windows[n].WasActive() {
			continue
		}
		return windows[n].ID() == w.ID()
	}
	return false
}

// WindowMove drags the title bar of the window named by ref until the
// window is at pos.
func (c *Context) WindowMove(ref string, pos core.Vec2) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()

	w := c.WindowInfo(ref)
	if w == nil {
		return
	}
	c.LogDebug("WindowMove '%s' (%.1f,%.1f)", w.Name(), pos.X, pos.Y)
	if w.Pos() == pos {
		return
	}
	if w.Flags().Has(core.WindowFlagNoTitleBar) || w.Flags().Has(core.WindowFlagNoMove) {
		c.fail(core.ErrUserError, "WindowMove: window '%s' cannot be moved", w.Name())
		return
	}

	c.windowBringToFront(w)
	grab := w.TitleBarRect().Center()
	c.MouseMoveToPos(grab)
	if hovered := c.UI.HoveredWindow(); hovered == nil || hovered.ID() != w.ID() {
		c.fail(core.ErrHoverMismatch, "WindowMove: unable to hover the title bar of '%s'", w.Name())
		return
	}
	c.MouseDown(core.MouseButtonLeft)
	c.MouseLiftDragThreshold(core.MouseButtonLeft)
	c.MouseMoveToPos(grab.Add(pos.Sub(w.Pos())))
	c.MouseUp(core.MouseButtonLeft)

	if got := w.Pos(); math.Abs(got.X-pos.X) >= 1 || math.Abs(got.Y-pos.Y) >= 1 {
		c.fail(core.ErrCheckFailed, "WindowMove: '%s' is at (%.1f,%.1f), want (%.1f,%.1f)", w.Name(), got.X, got.Y, pos.X, pos.Y)
	}
}

// WindowResize drags the resize grip of the window named by ref until the
// window has the given size.
func (c *Context) WindowResize(ref string, size core.Vec2) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()

	w := c.WindowInfo(ref)
	if w == nil {
		return
	}
	c.LogDebug("WindowResize '%s' (%.1f,%.1f)", w.Name(), size.X, size.Y)
	if w.Size() == size {
		return
	}

	gripID := hash.String(resizeGripLabel, w.ID())
	desc := w.Name() + "/" + resizeGripLabel
	c.mouseMoveID(gripID, desc, core.OpNoAutoScroll)
	c.MouseDown(core.MouseButtonLeft)
	c.MouseLiftDragThreshold(core.MouseButtonLeft)
	c.MouseMoveToPos(c.Inputs.MousePos.Add(size.Sub(w.Size())))
	c.MouseUp(core.MouseButtonLeft)

	if got := w.Size(); math.Abs(got.X-size.X) >= 1 || math.Abs(got.Y-size.Y) >= 1 {
		c.fail(core.ErrCheckFailed, "WindowResize: '%s' is (%.1f,%.1f), want (%.1f,%.1f)", w.Name(), got.X, got.Y, size.X, size.Y)
	}
}

// WindowCollapse collapses or expands the window named by ref through its
// title bar button.
func (c *Context) WindowCollapse(ref string, collapse bool) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	if w := c.WindowInfo(ref); w != nil {
		c.windowCollapse(w, collapse)
	}
}

func (c *Context) windowCollapse(w core.Window, collapse bool) {
	if c.IsError() || w.Collapsed() == collapse {
		return
	}
	c.LogDebug("WindowCollapse '%s' %t", w.Name(), collapse)
	if w.Flags().Has(core.WindowFlagNoTitleBar) {
		c.fail(core.ErrUserError, "WindowCollapse: window '%s' has no title bar", w.Name())
		return
	}

	id := hash.String(collapseButtonLabel, w.ID())
	c.itemAction(core.ActionClick, id, w.Name()+"/"+collapseButtonLabel, core.OpNoAutoUncollapse|core.OpNoAutoScroll)
	if !c.IsError() && w.Collapsed() != collapse {
		c.fail(core.ErrCheckFailed, "WindowCollapse: unable to set collapsed=%t on '%s'", collapse, w.Name())
	}
}

// WindowClose clicks the close button of the window named by ref.
func (c *Context) WindowClose(ref string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	w := c.WindowInfo(ref)
	if w == nil {
		return
	}
	c.LogDebug("WindowClose '%s'", w.Name())
	id := hash.String(closeButtonLabel, w.ID())
	c.itemAction(core.ActionClick, id, w.Name()+"/"+closeButtonLabel, core.OpNoAutoScroll)
}

// ----------------------------------------------------------------------------
// Popups and menus
// ----------------------------------------------------------------------------

// PopupCloseOne closes the top-most popup.
func (c *Context) PopupCloseOne() {
	if c.IsError() {
		return
	}
	c.LogDebug("PopupCloseOne")
	if n := c.UI.OpenPopupCount(); n > 0 {
		c.UI.ClosePopupToLevel(n - 1)
	}
	c.Yield()
}

// PopupCloseAll closes every open popup.
func (c *Context) PopupCloseAll() {
	if c.IsError() {
		return
	}
	c.LogDebug("PopupCloseAll")
	c.UI.ClosePopupToLevel(0)
	c.Yield()
}

// MenuAction walks the menu path ref, e.g. "File/Recent/a.txt", from the
// menu bar of the reference window and applies action to the last item.
// Intermediate menus are opened as needed.
func (c *Context) MenuAction(action core.Action, ref string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("MenuAction %s '%s'", action, ref)

	segments := locate.SplitPath(ref)
	if len(segments) == 0 {
		c.fail(core.ErrUserError, "MenuAction: empty path")
		return
	}

	for depth, seg := range segments {
		var id core.ID
		var desc string
		if depth == 0 {
			id = hash.DecoratedPath(menuBarLabel+"/"+seg, c.refID)
			desc = c.describeRef(menuBarLabel + "/" + seg)
		} else {
			popup := MenuPopupName(depth - 1)
			id = hash.DecoratedPath(seg, hash.String(popup, 0))
			desc = "//" + popup + "/" + seg
		}

		item := c.ItemInfoID(id, desc)
		if item == nil {
			return
		}

		// Sweeping diagonally over a menu would hover (and open) siblings.
		if depth > 0 && !c.IsFast() {
			target := item.RectClipped.Center()
			c.MouseMoveToPos(core.Vec2{X: target.X, Y: c.Inputs.MousePos.Y})
		}

		if depth == len(segments)-1 {
			c.itemAction(action, id, desc, core.OpNone)
			return
		}
		// The Opened flag lags a frame behind a popup closed by the GuiFunc,
		// so the live popup stack must agree with it.
		if !item.StatusFlags.Has(core.ItemStatusOpened) || c.UI.OpenPopupCount() <= depth {
			c.itemAction(core.ActionClick, id, desc, core.OpNone)
		}
		if c.IsError() {
			return
		}
	}
}

// MenuClick clicks the menu item at path ref.
func (c *Context) MenuClick(ref string) { c.MenuAction(core.ActionClick, ref) }

// MenuCheck checks the checkable menu item at path ref.
func (c *Context) MenuCheck(ref string) { c.MenuAction(core.ActionCheck, ref) }

// MenuUncheck unchecks the checkable menu item at path ref.
func (c *Context) MenuUncheck(ref string) { c.MenuAction(core.ActionUncheck, ref) }

// ComboClick opens the combo box and clicks an entry. ref is the combo
// path followed by the entry label, e.g. "Mode/Fast".
func (c *Context) ComboClick(ref string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("ComboClick '%s'", ref)

	comboRef, label, ok := cutLast(ref)
	if !ok {
		c.fail(core.ErrUserError, "ComboClick: '%s' does not name a combo entry", ref)
		return
	}
	c.ItemClick(comboRef)
	if c.IsError() {
		return
	}
	popup := c.UI.NavWindow()
	if popup == nil || !popup.Flags().Has(core.WindowFlagPopup) {
		c.fail(core.ErrWindowNotFound, "ComboClick: combo '%s' did not open a popup", c.describeRef(comboRef))
		return
	}
	c.itemAction(core.ActionClick, hash.DecoratedPath(label, popup.ID()), "//"+popup.Name()+"/"+label, core.OpNone)
}

// ComboClickAll selects every entry of the combo box ref in turn. It
// returns the number of entries.
func (c *Context) ComboClickAll(ref string) int {
	if c.IsError() {
		return 0
	}
	defer c.pushAction()()
	c.LogDebug("ComboClickAll '%s'", ref)

	c.ItemClick(ref)
	if c.IsError() {
		return 0
	}
	popup := c.UI.NavWindow()
	if popup == nil || !popup.Flags().Has(core.WindowFlagPopup) {
		c.fail(core.ErrWindowNotFound, "ComboClickAll: combo '%s' did not open a popup", c.describeRef(ref))
		return 0
	}

	items := locate.NewItemList()
	c.gatherItemsID(items, popup.ID(), popup.Name(), 1)
	entries := append([]core.ItemInfo(nil), items.Items()...)
	c.PopupCloseOne()

	for _, entry := range entries {
		c.ItemClick(ref)
		c.itemAction(core.ActionClick, entry.ID, entry.DebugLabel, core.OpNone)
		if c.IsError() {
			break
		}
	}
	return len(entries)
}

// TabClose clicks the close button of the tab named by ref.
func (c *Context) TabClose(ref string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("TabClose '%s'", ref)

	tabID := c.resolveRef(ref)
	closeID := hash.String(closeButtonLabel, tabID)
	c.itemAction(core.ActionClick, closeID, c.describeRef(ref)+"/"+closeButtonLabel, core.OpNone)
}

// ----------------------------------------------------------------------------
// Docking
// ----------------------------------------------------------------------------

// DockInto docks the window srcRef into the window dstRef by dragging its
// title bar over the drop target.
func (c *Context) DockInto(srcRef, dstRef string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("DockInto '%s' -> '%s'", srcRef, dstRef)

	docking, ok := c.UI.(core.DockingGUI)
	if !ok {
		c.fail(core.ErrUserError, "DockInto: the GUI does not support docking")
		return
	}
	src := c.WindowInfo(srcRef)
	dst := c.WindowInfo(dstRef)
	if src == nil || dst == nil {
		return
	}
	drop, ok := docking.DockDropRect(dst)
	if !ok {
		c.fail(core.ErrWindowNotFound, "DockInto: '%s' is not a dock target", dst.Name())
		return
	}

	c.windowBringToFront(src)
	c.MouseMoveToPos(src.TitleBarRect().Center())
	c.MouseDown(core.MouseButtonLeft)
	c.MouseLiftDragThreshold(core.MouseButtonLeft)
	c.MouseMoveToPos(drop.Center())
	c.MouseUp(core.MouseButtonLeft)
	c.Yield()

	srcDock := docking.WindowDockID(src)
	if srcDock == 0 || srcDock != docking.WindowDockID(dst) {
		c.fail(core.ErrCheckFailed, "DockInto: '%s' was not docked into '%s'", src.Name(), dst.Name())
		return
	}
	c.GenericVars.DockID = srcDock
}

// DockClear undocks every window named by refs.
func (c *Context) DockClear(refs ...string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()

	docking, ok := c.UI.(core.DockingGUI)
	if !ok {
		c.fail(core.ErrUserError, "DockClear: the GUI does not support docking")
		return
	}
	for _, ref := range refs {
		if w := c.WindowInfo(ref); w != nil {
			c.LogDebug("DockClear '%s'", w.Name())
			docking.UndockWindow(w)
		}
	}
	c.Yield()
}
