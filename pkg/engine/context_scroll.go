package engine

import (
	"math"

	"github.com/devicelab-dev/imtest/pkg/core"
)

const (
	// Failed scroll steps tolerated before ScrollTo gives up.
	scrollRetries = 3
	// Distance below which a scroll position counts as reached.
	scrollTolerance = 1.0
)

// ScrollTo scrolls the window named by ref to scrollTarget on axis.
func (c *Context) ScrollTo(ref string, axis core.Axis, scrollTarget float64) {
	if c.IsError() {
		return
	}
	w := c.WindowInfo(ref)
	if w == nil {
		return
	}
	c.scrollTo(w, axis, scrollTarget)
}

// ScrollToX scrolls horizontally.
func (c *Context) ScrollToX(ref string, scrollX float64) { c.ScrollTo(ref, core.AxisX, scrollX) }

// ScrollToY scrolls vertically.
func (c *Context) ScrollToY(ref string, scrollY float64) { c.ScrollTo(ref, core.AxisY, scrollY) }

// ScrollToTop scrolls the window named by ref to its top.
func (c *Context) ScrollToTop(ref string) { c.ScrollTo(ref, core.AxisY, 0) }

// ScrollToBottom scrolls the window named by ref to its bottom.
func (c *Context) ScrollToBottom(ref string) {
	if c.IsError() {
		return
	}
	w := c.WindowInfo(ref)
	if w == nil {
		return
	}
	c.scrollTo(w, core.AxisY, w.ScrollMax().Y)
}

// scrollTo steps the scroll position towards target, at most
// IO.ScrollSpeed pixels per second outside of fast mode. It fails the test
// when the window does not follow after scrollRetries steps.
func (c *Context) scrollTo(w core.Window, axis core.Axis, target float64) {
	defer c.pushAction()()

	target = math.Max(0, math.Min(target, w.ScrollMax().Get(axis)))
	c.LogDebug("ScrollTo %s %.1f/%.1f in '%s'", axis, target, w.ScrollMax().Get(axis), w.Name())

	remaining := scrollRetries
	for !c.IsError() {
		cur := w.Scroll().Get(axis)
		if math.Abs(cur-target) < scrollTolerance {
			break
		}

		next := target
		if !c.IsFast() {
			maxStep := math.Floor(c.engine.IO.ScrollSpeed*c.deltaTime() + 0.99)
			next = cur + math.Max(-maxStep, math.Min(target-cur, maxStep))
		}
		c.UI.SetScroll(w, axis, next)
		c.Yield()

		if !c.scrollErrorCheck(axis, next, w.Scroll().Get(axis), &remaining) {
			return
		}
	}
	c.Yield()
}

// scrollErrorCheck compares the requested and actual scroll positions.
// It returns false once the retries are exhausted.
func (c *Context) scrollErrorCheck(axis core.Axis, expected, actual float64, remaining *int) bool {
	if math.Abs(actual-expected) < scrollTolerance {
		return true
	}
	*remaining--
	if *remaining > 0 {
		c.LogWarning("Failed to set Scroll%s. Requested %.2f, got %.2f. Will try again.", axis, expected, actual)
		return true
	}
	c.fail(core.ErrScrollNotConverged, "Failed to set Scroll%s. Requested %.2f, got %.2f. Aborting.", axis, expected, actual)
	return false
}

// ScrollToItem scrolls the window of the item named by ref so the item is
// centered on axis.
func (c *Context) ScrollToItem(ref string, axis core.Axis) {
	if c.IsError() {
		return
	}
	id := c.resolveRef(ref)
	c.scrollToItemID(id, c.describeRef(ref), axis)
}

// ScrollToItemX centers the item horizontally.
func (c *Context) ScrollToItemX(ref string) { c.ScrollToItem(ref, core.AxisX) }

// ScrollToItemY centers the item vertically.
func (c *Context) ScrollToItemY(ref string) { c.ScrollToItem(ref, core.AxisY) }

func (c *Context) scrollToItemID(id core.ID, desc string, axis core.Axis) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()

	item := c.ItemInfoID(id, desc)
	if item == nil {
		return
	}
	w := item.Window
	clip := w.InnerClipRect()
	itemCenter := item.RectFull.Center().Get(axis) - clip.Min.Get(axis) + w.Scroll().Get(axis)
	c.scrollTo(w, axis, itemCenter-clip.Size().Get(axis)*0.5)
}
