package jsengine

import (
	"github.com/dop251/goja"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
)

// contextObject exposes a test Context to scripts as the ctx argument.
func (e *Engine) contextObject(ctx *engine.Context) *goja.Object {
	rt := e.runtime
	o := rt.NewObject()

	ops := func(names []string) []core.OpFlags {
		var f core.OpFlags
		for _, n := range names {
			v, ok := core.ParseOpFlag(n)
			if !ok {
				panic(rt.NewTypeError("unknown op flag %q", n))
			}
			f |= v
		}
		return []core.OpFlags{f}
	}
	chord := func(s string) core.KeyChord {
		k, err := core.ParseKeyChord(s)
		if err != nil {
			panic(rt.NewTypeError("%s", err.Error()))
		}
		return k
	}
	button := func(args []string) core.MouseButton {
		if len(args) == 0 {
			return core.MouseButtonLeft
		}
		if b, ok := core.ParseMouseButton(args[0]); ok {
			return b
		}
		panic(rt.NewTypeError("unknown mouse button %q", args[0]))
	}
	action := func(name string) core.Action {
		a, ok := core.ParseAction(name)
		if !ok {
			panic(rt.NewTypeError("unknown action %q", name))
		}
		return a
	}

	// Reference and flow control
	o.Set("setRef", ctx.SetRef)
	o.Set("getRef", ctx.GetRef)
	o.Set("getID", func(ref string) int64 { return int64(ctx.GetID(ref)) })
	o.Set("yield", ctx.Yield)
	o.Set("yieldFrames", ctx.YieldFrames)
	o.Set("sleep", ctx.Sleep)
	o.Set("sleepShort", ctx.SleepShort)
	o.Set("sleepStandard", ctx.SleepStandard)
	o.Set("isError", ctx.IsError)
	o.Set("isFast", ctx.IsFast)
	o.Set("frameCount", func() int { return ctx.FrameCount })

	// Logging and checks
	o.Set("logDebug", func(msg string) { ctx.LogDebug("%s", msg) })
	o.Set("logInfo", func(msg string) { ctx.LogInfo("%s", msg) })
	o.Set("logWarning", func(msg string) { ctx.LogWarning("%s", msg) })
	o.Set("logError", func(msg string) { ctx.LogError("%s", msg) })
	o.Set("error", func(msg string) { ctx.Errorf("%s", msg) })
	o.Set("check", func(result bool, expr ...string) bool {
		what := "check"
		if len(expr) > 0 {
			what = expr[0]
		}
		return ctx.Check(result, what)
	})
	o.Set("checkEqual", func(got, want goja.Value, what ...string) bool {
		desc := "value"
		if len(what) > 0 {
			desc = what[0]
		}
		return ctx.CheckEqual(got.Export(), want.Export(), desc)
	})

	// Items
	o.Set("itemClick", func(ref string, flags ...string) { ctx.ItemClick(ref, ops(flags)...) })
	o.Set("itemDoubleClick", func(ref string, flags ...string) { ctx.ItemDoubleClick(ref, ops(flags)...) })
	o.Set("itemCheck", func(ref string, flags ...string) { ctx.ItemCheck(ref, ops(flags)...) })
	o.Set("itemUncheck", func(ref string, flags ...string) { ctx.ItemUncheck(ref, ops(flags)...) })
	o.Set("itemOpen", func(ref string, flags ...string) { ctx.ItemOpen(ref, ops(flags)...) })
	o.Set("itemClose", func(ref string, flags ...string) { ctx.ItemClose(ref, ops(flags)...) })
	o.Set("itemInput", func(ref string, flags ...string) { ctx.ItemInput(ref, ops(flags)...) })
	o.Set("itemNavActivate", func(ref string, flags ...string) { ctx.ItemNavActivate(ref, ops(flags)...) })
	o.Set("itemAction", func(name, ref string, flags ...string) { ctx.ItemAction(action(name), ref, ops(flags)...) })
	o.Set("itemActionAll", func(name, parent string, filter goja.Value) int {
		return ctx.ItemActionAll(action(name), parent, e.actionFilter(filter))
	})
	o.Set("itemHold", ctx.ItemHold)
	o.Set("itemHoldForFrames", ctx.ItemHoldForFrames)
	o.Set("itemExists", ctx.ItemExists)
	o.Set("itemIsChecked", ctx.ItemIsChecked)
	o.Set("itemIsOpened", ctx.ItemIsOpened)
	o.Set("itemInfo", func(ref string) goja.Value {
		info := ctx.ItemInfo(ref, core.OpNoError)
		if !info.IsValid() {
			return goja.Null()
		}
		return rt.ToValue(itemInfoMap(info))
	})
	o.Set("itemDragAndDrop", func(src, dst string, btn ...string) { ctx.ItemDragAndDrop(src, dst, button(btn)) })
	o.Set("itemDragOverAndHold", ctx.ItemDragOverAndHold)
	o.Set("itemDragWithDelta", func(ref string, dx, dy float64) { ctx.ItemDragWithDelta(ref, core.Vec2{X: dx, Y: dy}) })

	// Mouse
	o.Set("mouseMove", func(ref string, flags ...string) { ctx.MouseMove(ref, ops(flags)...) })
	o.Set("mouseMoveToPos", func(x, y float64) { ctx.MouseMoveToPos(core.Vec2{X: x, Y: y}) })
	o.Set("mouseMoveToVoid", ctx.MouseMoveToVoid)
	o.Set("mouseClick", func(btn ...string) { ctx.MouseClick(button(btn)) })
	o.Set("mouseDoubleClick", func(btn ...string) { ctx.MouseDoubleClick(button(btn)) })
	o.Set("mouseClickMulti", func(count int, btn ...string) { ctx.MouseClickMulti(button(btn), count) })
	o.Set("mouseClickOnVoid", func(btn ...string) { ctx.MouseClickOnVoid(button(btn)) })
	o.Set("mouseDown", func(btn ...string) { ctx.MouseDown(button(btn)) })
	o.Set("mouseUp", func(btn ...string) { ctx.MouseUp(button(btn)) })
	o.Set("mouseWheel", func(dx, dy float64) { ctx.MouseWheel(core.Vec2{X: dx, Y: dy}) })
	o.Set("mouseWheelY", ctx.MouseWheelY)

	// Keyboard and navigation
	o.Set("keyDown", func(k string) { ctx.KeyDown(chord(k)) })
	o.Set("keyUp", func(k string) { ctx.KeyUp(chord(k)) })
	o.Set("keyPress", func(k string, count ...int) { ctx.KeyPress(chord(k), count...) })
	o.Set("keyHold", func(k string, seconds float64) { ctx.KeyHold(chord(k), seconds) })
	o.Set("keyChars", ctx.KeyChars)
	o.Set("keyCharsAppend", ctx.KeyCharsAppend)
	o.Set("keyCharsAppendEnter", ctx.KeyCharsAppendEnter)
	o.Set("keyCharsReplace", ctx.KeyCharsReplace)
	o.Set("keyCharsReplaceEnter", ctx.KeyCharsReplaceEnter)
	o.Set("navMoveTo", ctx.NavMoveTo)
	o.Set("navActivate", ctx.NavActivate)
	o.Set("navInput", ctx.NavInput)
	o.Set("navCancel", ctx.NavCancel)

	// Scrolling
	o.Set("scrollToX", ctx.ScrollToX)
	o.Set("scrollToY", ctx.ScrollToY)
	o.Set("scrollToTop", ctx.ScrollToTop)
	o.Set("scrollToBottom", ctx.ScrollToBottom)
	o.Set("scrollToItemX", ctx.ScrollToItemX)
	o.Set("scrollToItemY", ctx.ScrollToItemY)

	// Windows and popups
	o.Set("windowFocus", ctx.WindowFocus)
	o.Set("windowBringToFront", ctx.WindowBringToFront)
	o.Set("windowMove", func(ref string, x, y float64) { ctx.WindowMove(ref, core.Vec2{X: x, Y: y}) })
	o.Set("windowResize", func(ref string, w, h float64) { ctx.WindowResize(ref, core.Vec2{X: w, Y: h}) })
	o.Set("windowCollapse", ctx.WindowCollapse)
	o.Set("windowClose", ctx.WindowClose)
	o.Set("popupCloseOne", ctx.PopupCloseOne)
	o.Set("popupCloseAll", ctx.PopupCloseAll)

	// Menus, combos, tabs, docking
	o.Set("menuClick", ctx.MenuClick)
	o.Set("menuCheck", ctx.MenuCheck)
	o.Set("menuUncheck", ctx.MenuUncheck)
	o.Set("comboClick", ctx.ComboClick)
	o.Set("comboClickAll", ctx.ComboClickAll)
	o.Set("tabClose", ctx.TabClose)
	o.Set("dockInto", ctx.DockInto)
	o.Set("dockClear", ctx.DockClear)

	o.Set("captureScreenshot", func(label string, refs ...string) bool { return ctx.CaptureScreenshot(label, refs...) })

	return o
}

// actionFilter reads {maxDepth, maxPasses, requireAll: [...], requireAny: [...]}.
func (e *Engine) actionFilter(v goja.Value) *engine.ActionFilter {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj := v.ToObject(e.runtime)
	f := &engine.ActionFilter{}
	if d := obj.Get("maxDepth"); d != nil && !goja.IsUndefined(d) {
		f.MaxDepth = int(d.ToInteger())
	}
	if p := obj.Get("maxPasses"); p != nil && !goja.IsUndefined(p) {
		f.MaxPasses = int(p.ToInteger())
	}
	f.RequireAllStatusFlags = e.statusFlags(obj.Get("requireAll"))
	f.RequireAnyStatusFlags = e.statusFlags(obj.Get("requireAny"))
	return f
}

func (e *Engine) statusFlags(v goja.Value) core.ItemStatusFlags {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return core.ItemStatusNone
	}
	var names []string
	if err := e.runtime.ExportTo(v, &names); err != nil {
		panic(e.runtime.NewTypeError("status flags must be an array of strings"))
	}
	var f core.ItemStatusFlags
	for _, n := range names {
		s, ok := core.ParseItemStatus(n)
		if !ok {
			panic(e.runtime.NewTypeError("unknown status flag %q", n))
		}
		f |= s
	}
	return f
}

func itemInfoMap(info *core.ItemInfo) map[string]any {
	r := info.RectFull
	m := map[string]any{
		"id":        int64(info.ID),
		"label":     info.DebugLabel,
		"x":         r.Min.X,
		"y":         r.Min.Y,
		"width":     r.Width(),
		"height":    r.Height(),
		"checked":   info.StatusFlags.Has(core.ItemStatusChecked),
		"opened":    info.StatusFlags.Has(core.ItemStatusOpened),
		"checkable": info.StatusFlags.Has(core.ItemStatusCheckable),
		"openable":  info.StatusFlags.Has(core.ItemStatusOpenable),
		"visible":   info.StatusFlags.Has(core.ItemStatusVisible),
	}
	if info.Window != nil {
		m["window"] = info.Window.Name()
	}
	return m
}
