package demo

import (
	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/engine"
)

type testDef struct {
	category, name string
	group          engine.TestGroup
	fn             func(a *App, ctx *engine.Context)
}

var suite = []testDef{
	{"widgets", "checkbox", engine.GroupTests, testCheckbox},
	{"widgets", "input", engine.GroupTests, testInput},
	{"widgets", "drag", engine.GroupTests, testDrag},
	{"widgets", "combo", engine.GroupTests, testCombo},
	{"widgets", "tree", engine.GroupTests, testTree},
	{"menus", "file", engine.GroupTests, testMenus},
	{"list", "scroll", engine.GroupTests, testScroll},
	{"windows", "move_resize", engine.GroupTests, testWindowMoveResize},
	{"windows", "close", engine.GroupTests, testWindowClose},
	{"tabs", "close", engine.GroupTests, testTabClose},
	{"dnd", "volume", engine.GroupTests, testDragAndDrop},
	{"docking", "tools", engine.GroupTests, testDocking},
	{"nav", "keyboard", engine.GroupTests, testNav},
	{"capture", "screenshot", engine.GroupTests, testCapture},
	{"perf", "idle_frames", engine.GroupPerfs, perfIdleFrames},
}

// Register adds the demo suite to e. Every test resets the application
// state before its GUI warm-up.
func Register(e *engine.Engine, app *App) []*engine.Test {
	tests := make([]*engine.Test, 0, len(suite))
	for _, def := range suite {
		def := def
		t := e.RegisterTest(def.category, def.name)
		t.Group = def.group
		t.SourceFile = "pkg/demo/tests.go"
		t.SetupFunc = func(*engine.Context) { app.Reset() }
		t.TestFunc = func(ctx *engine.Context) { def.fn(app, ctx) }
		tests = append(tests, t)
	}
	return tests
}

func testCheckbox(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.ItemCheck("Enabled")
	ctx.Check(a.State.Enabled, "enabled")
	ctx.Check(ctx.ItemIsChecked("Enabled"), "reported checked")
	ctx.ItemUncheck("Enabled")
	ctx.Check(!a.State.Enabled, "disabled")
}

func testInput(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.ItemInput("Name")
	ctx.KeyCharsReplaceEnter("alice")
	ctx.CheckEqual(a.State.Name, "alice", "name")
	ctx.CheckEqual(a.State.Submitted, "alice", "submitted")
}

func testDrag(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.ItemDragWithDelta("Volume", core.Vec2{X: 40})
	ctx.CheckEqual(a.State.Volume, 70.0, "volume")
}

func testCombo(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.ComboClick("Fruit/Cherry")
	ctx.CheckEqual(a.State.Fruit, 2, "fruit")
	ctx.CheckEqual(ctx.ComboClickAll("Fruit"), len(Fruits), "entries")
}

func testTree(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.ItemOpen("Settings")
	ctx.CheckEqual(ctx.ItemActionAll(core.ActionOpen, "Settings", nil), 2, "opened")
	ctx.Check(ctx.ItemIsOpened("Settings/Video"), "video opened")
	ctx.CheckEqual(ctx.ItemActionAll(core.ActionClose, "Settings", nil), 2, "closed")
	ctx.Check(!ctx.ItemIsOpened("Settings/Audio"), "audio closed")
	ctx.ItemClose("Settings")
	ctx.Check(!ctx.ItemIsOpened("Settings"), "settings closed")
}

func testMenus(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.MenuClick("File/Open")
	ctx.CheckEqual(a.State.Opened, 1, "opened")
	ctx.MenuCheck("File/Autosave")
	ctx.Check(a.State.Autosave, "autosave")
	ctx.MenuUncheck("File/Autosave")
	ctx.Check(!a.State.Autosave, "autosave off")
	ctx.MenuClick("File/Recent/b.txt")
	ctx.CheckEqual(a.State.Recent, "b.txt", "recent")
}

func testScroll(a *App, ctx *engine.Context) {
	ctx.SetRef("List")
	ctx.ItemClick("40/Row")
	ctx.CheckEqual(a.State.LastRow, 40, "row")
	w := ctx.WindowInfo("")
	ctx.ScrollToTop("")
	ctx.CheckEqual(w.Scroll().Y, 0.0, "top")
	ctx.ScrollToBottom("")
	ctx.CheckEqual(w.Scroll().Y, w.ScrollMax().Y, "bottom")
	ctx.ItemClick("0/Row")
	ctx.CheckEqual(a.State.LastRow, 0, "first row")
}

func testWindowMoveResize(a *App, ctx *engine.Context) {
	w := ctx.WindowInfo("Tools")
	if !ctx.Check(w != nil, "tools window") {
		return
	}
	orig, size := w.Pos(), w.Size()
	ctx.WindowMove("Tools", core.Vec2{X: 420, Y: 360})
	ctx.CheckEqual(w.Pos(), core.Vec2{X: 420, Y: 360}, "pos")
	ctx.WindowResize("Tools", core.Vec2{X: 260, Y: 180})
	ctx.CheckEqual(w.Size(), core.Vec2{X: 260, Y: 180}, "size")
	ctx.WindowCollapse("Tools", true)
	ctx.Check(w.Collapsed(), "collapsed")
	ctx.WindowCollapse("Tools", false)
	ctx.WindowMove("Tools", orig)
	ctx.WindowResize("Tools", size)
}

func testWindowClose(a *App, ctx *engine.Context) {
	ctx.WindowClose("Tools")
	ctx.Check(!a.State.ShowTools, "tools closed")
}

func testTabClose(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.TabClose("Tabs/Stats")
	ctx.Check(!a.State.ShowStats, "stats tab closed")
}

func testDragAndDrop(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.ItemDragAndDrop("Source", "Target", core.MouseButtonLeft)
	ctx.CheckEqual(a.State.Dropped, 50, "dropped volume")
}

func testDocking(a *App, ctx *engine.Context) {
	ctx.DockInto("Tools", "List")
	ctx.Check(ctx.GenericVars.DockID != 0, "docked")
	ctx.DockClear("Tools")
}

func testNav(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	ctx.ItemNavActivate("Click Me")
	ctx.CheckEqual(a.State.Clicks, 1, "clicks")
	ctx.NavActivate()
	ctx.CheckEqual(a.State.Clicks, 2, "clicks after nav")
}

func testCapture(a *App, ctx *engine.Context) {
	ctx.SetRef("Demo")
	if ctx.CaptureScreenshot("demo", "Demo", "List") {
		ctx.LogInfo("Captured demo windows.")
	}
}

func perfIdleFrames(a *App, ctx *engine.Context) {
	start := ctx.RunningTime
	ctx.YieldFrames(120)
	ctx.LogInfo("120 frames in %.3fs simulated", ctx.RunningTime-start)
}
