package headless

import (
	"fmt"
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
)

// ----------------------------------------------------------------------------
// Item plumbing
// ----------------------------------------------------------------------------

// itemAdd registers an item laid out at rect and reports it to the engine.
func (c *Context) itemAdd(id core.ID, rect core.Rect) bool {
	w := c.current
	c.lastItemID = id
	c.lastItemRect = rect
	c.lastItemFlags = core.ItemStatusNone

	visible := rect.Overlaps(w.clip)
	if visible {
		c.lastItemFlags |= core.ItemStatusVisible
		w.itemRects = append(w.itemRects, rect.ClipWithFull(w.clip))
	}
	if w.navLayer == core.NavLayerMain {
		w.navItems = append(w.navItems, id)
	}
	if id == c.activeID {
		c.activeIDAlive = true
	}
	if c.hooks != nil {
		c.hooks.ItemAdd(c, rect, id)
	}
	return visible
}

// itemInfo reports the status of the last item to the engine.
func (c *Context) itemInfo(id core.ID, label string, flags core.ItemStatusFlags) {
	flags |= c.lastItemFlags
	c.lastItemFlags = flags
	if c.hooks != nil {
		c.hooks.ItemInfo(c, id, label, flags)
	}
}

// itemHoverable claims hover for id. The first item submitted under the
// mouse wins, and nothing else is hoverable while an item is active.
func (c *Context) itemHoverable(w *Window, id core.ID, rect core.Rect) bool {
	if c.hoveredID != 0 || c.movingWindow != nil {
		return false
	}
	if c.activeID != 0 && c.activeID != id {
		return false
	}
	if !c.isWindowHovered(w) || !rect.ClipWithFull(w.clip).Contains(c.io.MousePos) {
		return false
	}
	c.hoveredID = id
	c.lastItemFlags |= core.ItemStatusHoveredRect
	return true
}

// buttonBehavior adds the item and implements press-on-release.
func (c *Context) buttonBehavior(w *Window, id core.ID, rect core.Rect) (pressed, held bool) {
	c.itemAdd(id, rect)
	hovered := c.itemHoverable(w, id, rect)

	if hovered && c.mouseClicked[core.MouseButtonLeft] {
		c.activeID = id
		c.activeIDAlive = true
	}
	if c.activeID == id {
		if c.io.MouseDown[core.MouseButtonLeft] {
			held = true
			c.lastItemFlags |= core.ItemStatusActive
		} else {
			pressed = hovered && c.mouseReleased[core.MouseButtonLeft]
			c.activeID = 0
		}
	}
	if c.navID == id && c.navPressed[core.NavInputActivate] {
		pressed = true
	}
	return pressed, held
}

func (c *Context) lastItemHovered() bool {
	return c.lastItemFlags.Has(core.ItemStatusHoveredRect)
}

// ----------------------------------------------------------------------------
// Widgets
// ----------------------------------------------------------------------------

// Text displays a line of text. Text is not an item and cannot be located.
func (c *Context) Text(format string, args ...any) {
	w := c.mustCurrent()
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	rect := c.layoutItem(w, core.Vec2{X: labelWidth(text), Y: ItemHeight})
	if rect.Overlaps(w.clip) {
		w.itemRects = append(w.itemRects, rect.ClipWithFull(w.clip))
	}
}

// Button returns true on the frame the button is clicked.
func (c *Context) Button(label string) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	rect := c.layoutItem(w, core.Vec2{X: labelWidth(label), Y: ItemHeight})
	pressed, _ := c.buttonBehavior(w, id, rect)
	c.itemInfo(id, label, core.ItemStatusNone)
	return pressed
}

// Checkbox toggles *v when clicked and returns true on that frame.
func (c *Context) Checkbox(label string, v *bool) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	rect := c.layoutItem(w, core.Vec2{X: ItemHeight + labelWidth(label), Y: ItemHeight})
	pressed, _ := c.buttonBehavior(w, id, rect)
	if pressed {
		*v = !*v
	}
	flags := core.ItemStatusCheckable
	if *v {
		flags |= core.ItemStatusChecked
	}
	if pressed {
		flags |= core.ItemStatusEdited
	}
	c.itemInfo(id, label, flags)
	return pressed
}

// RadioButton returns true when clicked. active tells whether it is the
// selected option.
func (c *Context) RadioButton(label string, active bool) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	rect := c.layoutItem(w, core.Vec2{X: ItemHeight + labelWidth(label), Y: ItemHeight})
	pressed, _ := c.buttonBehavior(w, id, rect)
	flags := core.ItemStatusCheckable
	if active {
		flags |= core.ItemStatusChecked
	}
	c.itemInfo(id, label, flags)
	return pressed
}

// Selectable is a full-width clickable row. Clicking one inside a popup
// closes the popup.
func (c *Context) Selectable(label string, selected bool) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	rect := c.layoutItem(w, core.Vec2{X: math.Max(c.availWidth(w), labelWidth(label)), Y: ItemHeight})
	pressed, _ := c.buttonBehavior(w, id, rect)
	c.itemInfo(id, label, core.ItemStatusNone)
	if pressed && w.flags.Has(core.WindowFlagPopup) {
		c.ClosePopupToLevel(w.popupDepth)
	}
	return pressed
}

// SetNextItemOpen forces the open state of the next tree node or header.
func (c *Context) SetNextItemOpen(open bool) { c.nextItemOpen = &open }

// TreeNode displays a node that toggles when clicked. When it returns
// true the node is open and TreePop must be called.
func (c *Context) TreeNode(label string) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	if !c.openableItem(w, id, label) {
		return false
	}
	w.idStack = append(w.idStack, id)
	w.indent += IndentSpacing
	return true
}

// TreePop closes an open TreeNode.
func (c *Context) TreePop() {
	w := c.mustCurrent()
	w.idStack = w.idStack[:len(w.idStack)-1]
	w.indent -= IndentSpacing
}

// CollapsingHeader is a full-width header that toggles its contents. It
// does not push to the ID stack.
func (c *Context) CollapsingHeader(label string) bool {
	w := c.mustCurrent()
	return c.openableItem(w, w.GetID(label), label)
}

func (c *Context) openableItem(w *Window, id core.ID, label string) bool {
	if c.nextItemOpen != nil {
		w.storage[id] = *c.nextItemOpen
		c.nextItemOpen = nil
	}
	rect := c.layoutItem(w, core.Vec2{X: math.Max(c.availWidth(w), labelWidth(label)+ItemHeight), Y: ItemHeight})
	pressed, _ := c.buttonBehavior(w, id, rect)
	if pressed {
		w.storage[id] = !w.storage[id]
	}
	open := w.storage[id]
	flags := core.ItemStatusOpenable
	if open {
		flags |= core.ItemStatusOpened
	}
	c.itemInfo(id, label, flags)
	return open
}

// InputText edits *buf. A click or the navigation Input action starts
// editing; Enter, Escape or a click elsewhere stops it. It returns true
// when the text changed.
func (c *Context) InputText(label string, buf *string) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	rect := c.layoutItem(w, core.Vec2{X: 120 + labelWidth(label), Y: ItemHeight})
	c.buttonBehavior(w, id, rect)

	if c.lastItemHovered() && c.mouseClicked[core.MouseButtonLeft] ||
		c.navID == id && (c.navPressed[core.NavInputInput] || c.navPressed[core.NavInputActivate]) {
		c.textActiveID = id
		c.textSelectAll = false
	}

	changed := false
	flags := core.ItemStatusInputable
	if c.textActiveID == id {
		flags |= core.ItemStatusActive
		changed = c.editText(buf)
	}
	if changed {
		flags |= core.ItemStatusEdited
	}
	c.itemInfo(id, label, flags)
	return changed
}

func (c *Context) editText(buf *string) bool {
	io := c.io
	changed := false
	if io.KeyMods&core.ModCtrl != 0 && c.keysPressed[core.KeyA] {
		c.textSelectAll = true
	}
	if c.keysPressed[core.KeyEnd] || c.keysPressed[core.KeyHome] {
		c.textSelectAll = false
	}
	if c.keysPressed[core.KeyDelete] || c.keysPressed[core.KeyBackspace] {
		switch {
		case c.textSelectAll:
			*buf = ""
			c.textSelectAll = false
			changed = true
		case c.keysPressed[core.KeyBackspace] && *buf != "":
			r := []rune(*buf)
			*buf = string(r[:len(r)-1])
			changed = true
		}
	}
	if len(c.chars) > 0 {
		if c.textSelectAll {
			*buf = ""
			c.textSelectAll = false
		}
		for _, r := range c.chars {
			if r >= 0x20 && r != 0x7f {
				*buf += string(r)
				changed = true
			}
		}
	}
	if c.keysPressed[core.KeyEnter] {
		c.textActiveID = 0
	}
	return changed
}

// DragFloat edits *v by dragging horizontally, speed units per pixel.
func (c *Context) DragFloat(label string, v *float64, speed float64) bool {
	w := c.mustCurrent()
	id := w.GetID(label)
	rect := c.layoutItem(w, core.Vec2{X: 100 + labelWidth(label), Y: ItemHeight})
	_, held := c.buttonBehavior(w, id, rect)
	changed := false
	if held && c.mouseDelta.X != 0 {
		*v += c.mouseDelta.X * speed
		changed = true
	}
	flags := core.ItemStatusNone
	if changed {
		flags |= core.ItemStatusEdited
	}
	c.itemInfo(id, label, flags)
	return changed
}

// PushID pushes label onto the ID stack of the current window.
func (c *Context) PushID(label string) {
	w := c.mustCurrent()
	w.idStack = append(w.idStack, w.GetID(label))
}

// PushIDInt pushes an integer onto the ID stack.
func (c *Context) PushIDInt(n int) {
	c.PushID(fmt.Sprintf("%d", n))
}

// PopID reverts PushID.
func (c *Context) PopID() {
	w := c.mustCurrent()
	if len(w.idStack) <= 1 {
		panic("headless: PopID without PushID")
	}
	w.idStack = w.idStack[:len(w.idStack)-1]
}

// GetID hashes label in the current window.
func (c *Context) GetID(label string) core.ID {
	return c.mustCurrent().GetID(label)
}

// IsItemHovered reports whether the last item is hovered.
func (c *Context) IsItemHovered() bool { return c.lastItemHovered() }

// IsItemActive reports whether the last item is held.
func (c *Context) IsItemActive() bool { return c.lastItemID != 0 && c.lastItemID == c.activeID }

// LastItemID returns the ID of the last item.
func (c *Context) LastItemID() core.ID { return c.lastItemID }

// ----------------------------------------------------------------------------
// Drag and drop
// ----------------------------------------------------------------------------

type dragState struct {
	active      bool
	sourceID    core.ID
	payloadType string
	data        any
}

// BeginDragDropSource makes the last item a drag source. It returns true
// while the item is being dragged; call SetDragDropPayload then.
func (c *Context) BeginDragDropSource() bool {
	io := c.io
	id := c.lastItemID
	if id == 0 || c.activeID != id || !io.MouseDown[core.MouseButtonLeft] {
		return false
	}
	if io.MouseDragMaxDistanceSqr[core.MouseButtonLeft] < io.MouseDragThreshold*io.MouseDragThreshold {
		return false
	}
	c.drag.active = true
	c.drag.sourceID = id
	return true
}

// SetDragDropPayload attaches data to the current drag.
func (c *Context) SetDragDropPayload(payloadType string, data any) {
	c.drag.payloadType = payloadType
	c.drag.data = data
}

// EndDragDropSource ends BeginDragDropSource.
func (c *Context) EndDragDropSource() {}

// BeginDragDropTarget returns true when a drag hovers the last item.
func (c *Context) BeginDragDropTarget() bool {
	w := c.mustCurrent()
	if !c.drag.active || c.drag.sourceID == c.lastItemID {
		return false
	}
	if c.hoveredWindow == nil || c.hoveredWindow != w.root() {
		return false
	}
	return c.lastItemRect.ClipWithFull(w.clip).Contains(c.io.MousePos)
}

// AcceptDragDropPayload returns the payload when it is dropped on the
// target.
func (c *Context) AcceptDragDropPayload(payloadType string) (any, bool) {
	if !c.drag.active || c.drag.payloadType != payloadType {
		return nil, false
	}
	if !c.mouseReleased[core.MouseButtonLeft] {
		return nil, false
	}
	return c.drag.data, true
}

// EndDragDropTarget ends BeginDragDropTarget.
func (c *Context) EndDragDropTarget() {}

// IsDragging reports whether a drag and drop is in progress.
func (c *Context) IsDragging() bool { return c.drag.active }

// ----------------------------------------------------------------------------
// Navigation
// ----------------------------------------------------------------------------

func (c *Context) updateNavArrows() {
	w := c.navWindow
	if w == nil || c.navID == 0 {
		return
	}
	delta := 0
	if c.keysPressed[core.KeyDownArrow] {
		delta = 1
	}
	if c.keysPressed[core.KeyUpArrow] {
		delta = -1
	}
	if delta == 0 {
		return
	}
	for i, id := range w.navItems {
		if id != c.navID {
			continue
		}
		if j := i + delta; j >= 0 && j < len(w.navItems) {
			c.navID = w.navItems[j]
		}
		return
	}
}
