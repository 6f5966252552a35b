package engine

import (
	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/locate"
)

// ActionFilter restricts ItemActionAll.
type ActionFilter struct {
	MaxDepth              int // Levels below the parent to visit; <= 0 means all
	MaxPasses             int // Passes over the gathered items; <= 0 means MaxDepth, or 1 for non-state actions
	MaxItemCountPerDepth  []int
	RequireAllStatusFlags core.ItemStatusFlags
	RequireAnyStatusFlags core.ItemStatusFlags
}

const defaultActionAllDepth = 99

// ItemAction performs action on the item named by ref.
func (c *Context) ItemAction(action core.Action, ref string, flags ...core.OpFlags) {
	if c.IsError() {
		return
	}
	id := c.resolveRef(ref)
	c.itemAction(action, id, c.describeRef(ref), c.opFlags(flags))
}

// ItemActionID is ItemAction for an already hashed ID.
func (c *Context) ItemActionID(action core.Action, id core.ID, flags ...core.OpFlags) {
	c.itemAction(action, id, c.idDesc(id), c.opFlags(flags))
}

// ItemClick clicks the item named by ref.
func (c *Context) ItemClick(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionClick, ref, flags...)
}

// ItemDoubleClick double-clicks the item named by ref.
func (c *Context) ItemDoubleClick(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionDoubleClick, ref, flags...)
}

// ItemCheck checks a checkable item unless already checked.
func (c *Context) ItemCheck(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionCheck, ref, flags...)
}

// ItemUncheck unchecks a checkable item unless already unchecked.
func (c *Context) ItemUncheck(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionUncheck, ref, flags...)
}

// ItemOpen opens a tree node, header or menu unless already open.
func (c *Context) ItemOpen(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionOpen, ref, flags...)
}

// ItemClose closes an openable item unless already closed.
func (c *Context) ItemClose(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionClose, ref, flags...)
}

// ItemInput activates text input on the item named by ref.
func (c *Context) ItemInput(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionInput, ref, flags...)
}

// ItemNavActivate activates the item through keyboard navigation.
func (c *Context) ItemNavActivate(ref string, flags ...core.OpFlags) {
	c.ItemAction(core.ActionNavActivate, ref, flags...)
}

func (c *Context) itemAction(action core.Action, id core.ID, desc string, flags core.OpFlags) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("Item%s '%s' 0x%08X", action, desc, id)

	if c.engine.IO.ConfigRunSpeed == core.RunSpeedCinematic {
		c.SleepShort()
	}

	item := c.ItemInfoID(id, desc, flags)
	if item == nil {
		return
	}
	release := c.holdItem(id)
	defer release()

	switch action {
	case core.ActionHover:
		c.mouseMoveID(id, desc, flags)

	case core.ActionClick, core.ActionDoubleClick:
		count := 1
		if action == core.ActionDoubleClick {
			count = 2
		}
		if c.inputMode == core.InputSourceNav {
			c.navMoveToID(id, desc)
			for n := 0; n < count; n++ {
				c.NavActivate()
			}
			return
		}
		c.mouseMoveID(id, desc, flags)
		c.MouseClickMulti(core.MouseButtonLeft, count)

	case core.ActionNavActivate:
		c.navMoveToID(id, desc)
		c.NavActivate()

	case core.ActionInput:
		if c.inputMode == core.InputSourceNav {
			c.navMoveToID(id, desc)
			c.NavInput()
			return
		}
		c.mouseMoveID(id, desc, flags)
		c.KeyDown(core.KeyChord(core.KeyLeftCtrl))
		c.MouseClick(core.MouseButtonLeft)
		c.KeyUp(core.KeyChord(core.KeyLeftCtrl))

	case core.ActionOpen:
		if !item.StatusFlags.Has(core.ItemStatusOpenable) {
			c.fail(core.ErrCheckFailed, "Item '%s' is not openable", desc)
			return
		}
		if item.StatusFlags.Has(core.ItemStatusOpened) {
			return
		}
		c.itemAction(core.ActionClick, id, desc, flags)
		if c.itemStatus(id, desc).Has(core.ItemStatusOpened) {
			return
		}
		c.itemAction(core.ActionDoubleClick, id, desc, flags)
		if !c.IsError() && !c.itemStatus(id, desc).Has(core.ItemStatusOpened) {
			c.fail(core.ErrCheckFailed, "Unable to Open item: '%s'", desc)
		}

	case core.ActionClose:
		if !item.StatusFlags.Has(core.ItemStatusOpenable) {
			c.fail(core.ErrCheckFailed, "Item '%s' is not openable", desc)
			return
		}
		if !item.StatusFlags.Has(core.ItemStatusOpened) {
			return
		}
		c.itemAction(core.ActionClick, id, desc, flags)
		if !c.itemStatus(id, desc).Has(core.ItemStatusOpened) {
			return
		}
		c.itemAction(core.ActionDoubleClick, id, desc, flags)
		if !c.IsError() && c.itemStatus(id, desc).Has(core.ItemStatusOpened) {
			c.fail(core.ErrCheckFailed, "Unable to Close item: '%s'", desc)
		}

	case core.ActionCheck, core.ActionUncheck:
		want := action == core.ActionCheck
		if !item.StatusFlags.Has(core.ItemStatusCheckable) {
			c.fail(core.ErrCheckFailed, "Item '%s' is not checkable", desc)
			return
		}
		if item.StatusFlags.Has(core.ItemStatusChecked) == want {
			return
		}
		c.itemAction(core.ActionClick, id, desc, flags)
		c.itemVerifyCheckedIfAlive(id, desc, want)

	default:
		c.fail(core.ErrUserError, "Unsupported action %s on '%s'", action, desc)
	}
}

// itemStatus returns the latest status flags of id, or 0.
func (c *Context) itemStatus(id core.ID, desc string) core.ItemStatusFlags {
	if info := c.ItemInfoID(id, desc, core.OpNoError); info != nil {
		return info.StatusFlags
	}
	return core.ItemStatusNone
}

// itemVerifyCheckedIfAlive fails the test when id is still displayed and
// its checked state differs from want. Clicking a checkable menu item
// usually closes the menu, in which case nothing is verified.
func (c *Context) itemVerifyCheckedIfAlive(id core.ID, desc string, want bool) {
	if c.IsError() {
		return
	}
	c.Yield()
	info := c.ItemInfoID(id, desc, core.OpNoError)
	if info == nil || info.TimestampMain+1 < c.engine.frameCount {
		return
	}
	if info.StatusFlags.Has(core.ItemStatusChecked) != want {
		c.fail(core.ErrCheckFailed, "Unable to verify checked state of '%s': want %t", desc, want)
	}
}

// ItemActionAll applies action to every item below refParent that passes
// filter, repeating passes until nothing changes. It returns the number of
// actions performed. Open and check actions go top to bottom; Close goes
// bottom to top and only on the deepest open items of each pass.
func (c *Context) ItemActionAll(action core.Action, refParent string, filter *ActionFilter) int {
	if c.IsError() {
		return 0
	}
	defer c.pushAction()()

	var f ActionFilter
	if filter != nil {
		f = *filter
	}
	maxDepth := f.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultActionAllDepth
	}
	maxPasses := f.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 1
		if isStateAction(action) {
			maxPasses = maxDepth
		}
	}
	switch action {
	case core.ActionOpen:
		f.RequireAllStatusFlags |= core.ItemStatusOpenable
	case core.ActionClose:
		f.RequireAllStatusFlags |= core.ItemStatusOpenable | core.ItemStatusOpened
	case core.ActionCheck, core.ActionUncheck:
		f.RequireAllStatusFlags |= core.ItemStatusCheckable
	}

	c.LogDebug("ItemActionAll() %s '%s'", action, c.describeRef(refParent))

	total := 0
	items := locate.NewItemList()
	for pass := 0; pass < maxPasses && !c.IsError(); pass++ {
		c.GatherItems(items, refParent, maxDepth)

		candidates := c.actionCandidates(action, items, &f)
		for _, info := range candidates {
			if c.IsError() {
				break
			}
			c.itemAction(action, info.ID, info.DebugLabel, core.OpNoError)
		}
		total += len(candidates)
		if len(candidates) == 0 {
			break
		}
	}
	c.LogDebug("%s %d items.", action.Verb(), total)
	return total
}

func isStateAction(action core.Action) bool {
	switch action {
	case core.ActionOpen, core.ActionClose, core.ActionCheck, core.ActionUncheck:
		return true
	default:
		return false
	}
}

// actionCandidates picks the gathered items action applies to, in the
// order they must be processed.
func (c *Context) actionCandidates(action core.Action, items *locate.ItemList, f *ActionFilter) []core.ItemInfo {
	all := items.Items()

	closeDepth := -1
	if action == core.ActionClose {
		for _, info := range all {
			if info.StatusFlags.Has(core.ItemStatusOpenable|core.ItemStatusOpened) && info.Depth > closeDepth {
				closeDepth = info.Depth
			}
		}
	}

	perDepth := map[int]int{}
	var out []core.ItemInfo
	for _, info := range all {
		if !info.StatusFlags.Has(f.RequireAllStatusFlags) {
			continue
		}
		if f.RequireAnyStatusFlags != 0 && !info.StatusFlags.HasAny(f.RequireAnyStatusFlags) {
			continue
		}
		switch action {
		case core.ActionOpen:
			if info.StatusFlags.Has(core.ItemStatusOpened) {
				continue
			}
		case core.ActionClose:
			if info.Depth != closeDepth {
				continue
			}
		case core.ActionCheck:
			if info.StatusFlags.Has(core.ItemStatusChecked) {
				continue
			}
		case core.ActionUncheck:
			if !info.StatusFlags.Has(core.ItemStatusChecked) {
				continue
			}
		}
		if info.Depth < len(f.MaxItemCountPerDepth) && f.MaxItemCountPerDepth[info.Depth] > 0 &&
			perDepth[info.Depth] >= f.MaxItemCountPerDepth[info.Depth] {
			continue
		}
		perDepth[info.Depth]++
		out = append(out, info)
	}

	if action == core.ActionClose {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// ItemHold presses the left button over the item for the given simulated
// time.
func (c *Context) ItemHold(ref string, seconds float64) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("ItemHold '%s' %.2fs", c.describeRef(ref), seconds)

	c.MouseMove(ref)
	c.Yield()
	c.Inputs.SetButton(core.MouseButtonLeft, true)
	c.Yield()
	c.SleepNoSkip(seconds)
	c.Inputs.SetButton(core.MouseButtonLeft, false)
	c.yieldSettle()
}

// ItemHoldForFrames presses the left button over the item for frames
// frames.
func (c *Context) ItemHoldForFrames(ref string, frames int) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("ItemHoldForFrames '%s' %d", c.describeRef(ref), frames)

	c.MouseMove(ref)
	c.Yield()
	c.Inputs.SetButton(core.MouseButtonLeft, true)
	c.YieldFrames(frames)
	c.Inputs.SetButton(core.MouseButtonLeft, false)
	c.yieldSettle()
}

// ItemDragAndDrop drags the item refSrc and drops it on refDst.
func (c *Context) ItemDragAndDrop(refSrc, refDst string, button core.MouseButton) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("ItemDragAndDrop '%s' to '%s'", c.describeRef(refSrc), c.describeRef(refDst))

	dstID := c.resolveRef(refDst)
	dstDesc := c.describeRef(refDst)
	if c.ItemInfoID(dstID, dstDesc) == nil {
		return
	}
	release := c.holdItem(dstID)
	defer release()

	c.MouseMove(refSrc, core.OpNoCheckHoveredID)
	c.MouseDown(button)
	c.MouseLiftDragThreshold(button)
	c.mouseMoveID(dstID, dstDesc, core.OpNoFocusWindow|core.OpNoCheckHoveredID)
	c.MouseUp(button)
}

// ItemDragOverAndHold drags refSrc over refDst and keeps it there for
// IO.ActionDelayStandard before dropping.
func (c *Context) ItemDragOverAndHold(refSrc, refDst string) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("ItemDragOverAndHold '%s' to '%s'", c.describeRef(refSrc), c.describeRef(refDst))

	c.MouseMove(refSrc, core.OpNoCheckHoveredID)
	c.MouseDown(core.MouseButtonLeft)
	c.MouseLiftDragThreshold(core.MouseButtonLeft)
	c.MouseMove(refDst, core.OpNoCheckHoveredID|core.OpNoFocusWindow)
	c.SleepNoSkip(c.engine.IO.ActionDelayStandard)
	c.MouseUp(core.MouseButtonLeft)
}

// ItemDragWithDelta drags the item by delta pixels.
func (c *Context) ItemDragWithDelta(ref string, delta core.Vec2) {
	if c.IsError() {
		return
	}
	defer c.pushAction()()
	c.LogDebug("ItemDragWithDelta '%s' (%.0f,%.0f)", c.describeRef(ref), delta.X, delta.Y)

	c.MouseMove(ref, core.OpNoCheckHoveredID)
	c.MouseDown(core.MouseButtonLeft)
	c.MouseLiftDragThreshold(core.MouseButtonLeft)
	c.MouseMoveToPos(c.Inputs.MousePos.Add(delta))
	c.MouseUp(core.MouseButtonLeft)
}
