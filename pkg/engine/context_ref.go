package engine

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
	"github.com/devicelab-dev/imtest/pkg/locate"
)

const (
	focusedWindowRef = "$FOCUSED"
	wildcardRef      = "**/"

	// Frames to wait for a wildcard search before scrolling its window.
	wildcardSearchFrames = 4
	// Scroll pages tried when a wildcard search fails.
	wildcardScrollPages = 32
)

// References
//
// Items and windows are addressed with decorated paths. A path is relative
// to the reference set with SetRef unless it starts with '/'. "$FOCUSED"
// stands for the focused window and "**/" searches for a label anywhere
// below the preceding path.

// SetRef sets the base path for relative references. A collapsed window
// named by ref is expanded.
func (c *Context) SetRef(ref string) {
	if c.IsError() {
		return
	}
	c.refStr = ref
	c.refID = c.GetIDWithSeed(ref, 0)
	c.LogDebug("SetRef '%s' %08X", ref, c.refID)

	if w := c.UI.FindWindowByID(c.refID); w != nil && w.Collapsed() {
		c.WindowCollapse("", false)
	}
}

// SetRefWindow makes w the base of relative references.
func (c *Context) SetRefWindow(w core.Window) {
	if c.IsError() || w == nil {
		return
	}
	c.refStr = w.Name()
	c.refID = w.ID()
	c.LogDebug("SetRef '%s' %08X", c.refStr, c.refID)
}

// GetRef returns the current base path.
func (c *Context) GetRef() string { return c.refStr }

// GetRefID returns the ID of the current base path.
func (c *Context) GetRefID() core.ID { return c.refID }

// GetID hashes ref relative to the current reference. Wildcards are not
// resolved; see ItemInfo.
func (c *Context) GetID(ref string) core.ID {
	return c.GetIDWithSeed(ref, c.refID)
}

// GetIDWithSeed hashes ref relative to seed.
func (c *Context) GetIDWithSeed(ref string, seed core.ID) core.ID {
	rest, ok := c.expandFocused(ref)
	if ok {
		w := c.UI.NavWindow()
		if w == nil {
			return 0
		}
		if rest == "" {
			return w.ID()
		}
		return hash.DecoratedPath(rest, w.ID())
	}
	return hash.DecoratedPath(ref, seed)
}

// expandFocused strips a "$FOCUSED" prefix and returns the remainder.
func (c *Context) expandFocused(ref string) (string, bool) {
	trimmed := strings.TrimLeft(ref, "/")
	if !strings.HasPrefix(trimmed, focusedWindowRef) {
		return ref, false
	}
	rest := strings.TrimPrefix(trimmed, focusedWindowRef)
	if rest != "" && rest[0] != '/' {
		return ref, false
	}
	return strings.TrimPrefix(rest, "/"), true
}

// describeRef returns a readable full path for diagnostics.
func (c *Context) describeRef(ref string) string {
	switch {
	case ref == "":
		return c.refStr
	case strings.HasPrefix(ref, "/"), c.refStr == "":
		return ref
	default:
		return c.refStr + "/" + ref
	}
}

// resolveRef turns ref into an item ID, resolving "**/" wildcards. It may
// yield. It returns 0 when a wildcard finds nothing.
func (c *Context) resolveRef(ref string) core.ID {
	idx := strings.Index(ref, wildcardRef)
	if idx < 0 {
		return c.GetID(ref)
	}

	prefix := strings.TrimSuffix(ref[:idx], "/")
	suffix := ref[idx+len(wildcardRef):]
	prefixID := c.refID
	if prefix != "" {
		prefixID = c.GetID(prefix)
	}
	return c.findByLabel(prefixID, suffix)
}

func (c *Context) findByLabel(prefixID core.ID, suffix string) core.ID {
	task := &c.engine.pool.FindByLabel
	if !task.Start(prefixID, suffix, core.ItemStatusNone) {
		return 0
	}
	defer task.Clear()

	for n := 0; n < wildcardSearchFrames && task.Active() && !c.IsAborted(); n++ {
		c.Yield()
	}
	if !task.Active() {
		return task.OutItemID
	}

	// The item may be clipped out of view: page through the window.
	w := c.UI.FindWindowByID(prefixID)
	if w == nil || w.ScrollMax().Y <= 0 {
		return 0
	}
	start := w.Scroll().Y
	page := w.InnerClipRect().Height() * 0.8
	if page < 1 {
		page = 1
	}
	for n := 0; n <= wildcardScrollPages && task.Active() && !c.IsAborted(); n++ {
		pos := float64(n) * page
		if pos > w.ScrollMax().Y {
			pos = w.ScrollMax().Y
		}
		c.UI.SetScroll(w, core.AxisY, pos)
		c.Yield()
		c.Yield()
		if pos >= w.ScrollMax().Y {
			break
		}
	}
	if task.Active() {
		c.UI.SetScroll(w, core.AxisY, start)
		c.Yield()
		return 0
	}
	return task.OutItemID
}

// ----------------------------------------------------------------------------
// Item information
// ----------------------------------------------------------------------------

// ItemInfo locates the item named by ref and returns a snapshot of what
// the GUI reported for it, or nil. Unless OpNoError is given, a missing
// item fails the test.
func (c *Context) ItemInfo(ref string, flags ...core.OpFlags) *core.ItemInfo {
	if c.IsError() {
		return nil
	}
	id := c.resolveRef(ref)
	return c.ItemInfoID(id, c.describeRef(ref), flags...)
}

// ItemInfoID is ItemInfo for an already hashed ID.
func (c *Context) ItemInfoID(id core.ID, desc string, flags ...core.OpFlags) *core.ItemInfo {
	if c.IsError() {
		return nil
	}
	opFlags := c.opFlags(flags)

	if id != 0 {
		for attempt := 0; attempt < 2; attempt++ {
			if info := c.engine.pool.FindOrRequest(id, c.engine.frameCount, desc); info != nil {
				cp := *info
				return &cp
			}
			c.Yield()
		}
	}

	if !opFlags.Has(core.OpNoError) {
		c.fail(core.ErrItemNotFound, "Unable to locate item: '%s' (0x%08X)", desc, id)
	}
	return nil
}

// ItemExists reports whether ref names a live item. It never fails the
// test.
func (c *Context) ItemExists(ref string) bool {
	return c.ItemInfo(ref, core.OpNoError) != nil
}

// ItemIsChecked reports whether the checkable item ref is checked.
func (c *Context) ItemIsChecked(ref string) bool {
	info := c.ItemInfo(ref)
	return info != nil && info.StatusFlags.Has(core.ItemStatusChecked)
}

// ItemIsOpened reports whether the openable item ref is open.
func (c *Context) ItemIsOpened(ref string) bool {
	info := c.ItemInfo(ref)
	return info != nil && info.StatusFlags.Has(core.ItemStatusOpened)
}

// holdItem keeps the locate task of id alive until the returned func is
// called.
func (c *Context) holdItem(id core.ID) func() {
	task := c.engine.pool.Task(id)
	if task == nil {
		return func() {}
	}
	task.Result.RefCount++
	return func() {
		if t := c.engine.pool.Task(id); t == task && t.Result.RefCount > 0 {
			t.Result.RefCount--
		}
	}
}

// GatherItems collects the items below ref, up to depth levels of the ID
// stack (all levels when depth <= 0), into out.
func (c *Context) GatherItems(out *locate.ItemList, ref string, depth int) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()

	id := c.resolveRef(ref)
	if id == 0 {
		c.fail(core.ErrItemNotFound, "GatherItems: unable to resolve '%s'", c.describeRef(ref))
		return
	}
	c.gatherItemsID(out, id, c.describeRef(ref), depth)
}

func (c *Context) gatherItemsID(out *locate.ItemList, id core.ID, desc string, depth int) {
	out.Reset()
	gather := &c.engine.pool.Gather
	gather.Start(id, depth, out)
	defer gather.Clear()

	// The first frames may lay out items that appear progressively.
	c.Yield()
	c.Yield()
	prev := -1
	for n := 0; n < 30 && out.Len() != prev && !c.IsAborted(); n++ {
		prev = out.Len()
		c.Yield()
	}
	c.LogDebug("GatherItems from '%s', %d deep: found %d items.", desc, depth, out.Len())
}

// ----------------------------------------------------------------------------
// Windows
// ----------------------------------------------------------------------------

// GetWindowByRef returns the window named by ref, or nil. An empty ref is
// the reference window.
func (c *Context) GetWindowByRef(ref string) core.Window {
	if ref == "" {
		return c.UI.FindWindowByID(c.refID)
	}
	if w := c.UI.FindWindowByID(c.GetID(ref)); w != nil {
		return w
	}
	if !strings.HasPrefix(ref, "/") {
		return c.UI.FindWindowByID(c.GetIDWithSeed(ref, 0))
	}
	return nil
}

// WindowInfo returns the window named by ref. A child window may be named
// by its parent window path plus the child label.
func (c *Context) WindowInfo(ref string, flags ...core.OpFlags) core.Window {
	if c.IsError() {
		return nil
	}
	if w := c.GetWindowByRef(ref); w != nil {
		return w
	}

	// Child windows are named "<parent>/<label>_<id>".
	if parentRef, label, ok := cutLast(ref); ok {
		if parent := c.GetWindowByRef(parentRef); parent != nil {
			prefix := parent.Name() + "/" + locate.Unescape(label) + "_"
			for _, w := range c.UI.Windows() {
				if strings.HasPrefix(w.Name(), prefix) {
					return w
				}
			}
		}
	}

	if !c.opFlags(flags).Has(core.OpNoError) {
		c.fail(core.ErrWindowNotFound, "Unable to find window: '%s'", c.describeRef(ref))
	}
	return nil
}

func cutLast(path string) (string, string, bool) {
	segments := locate.SplitPath(path)
	if len(segments) < 2 {
		return "", "", false
	}
	head := strings.Join(segments[:len(segments)-1], "/")
	if strings.HasPrefix(path, "/") {
		head = "//" + head
	}
	return head, segments[len(segments)-1], true
}

// opFlags merges the optional flags of a call with Context.OpFlags.
func (c *Context) opFlags(flags []core.OpFlags) core.OpFlags {
	f := c.OpFlags
	for _, fl := range flags {
		f |= fl
	}
	return f
}

func (c *Context) idDesc(id core.ID) string {
	return fmt.Sprintf("0x%08X", id)
}
