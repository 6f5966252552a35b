package headless

import (
	"bytes"
	"fmt"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
)

type itemEvent struct {
	id    core.ID
	label string
	flags core.ItemStatusFlags
	rect  core.Rect
}

// recordingHooks keeps the items reported during the last frame.
type recordingHooks struct {
	pre, post int
	rects     map[core.ID]core.Rect
	items     map[core.ID]itemEvent
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{rects: map[core.ID]core.Rect{}, items: map[core.ID]itemEvent{}}
}

func (h *recordingHooks) PreNewFrame(core.GUIContext) { h.pre++ }
func (h *recordingHooks) PostNewFrame(core.GUIContext) {
	h.post++
	h.rects = map[core.ID]core.Rect{}
	h.items = map[core.ID]itemEvent{}
}
func (h *recordingHooks) ItemAdd(_ core.GUIContext, rect core.Rect, id core.ID) { h.rects[id] = rect }
func (h *recordingHooks) ItemInfo(_ core.GUIContext, id core.ID, label string, flags core.ItemStatusFlags) {
	h.items[id] = itemEvent{id: id, label: label, flags: flags, rect: h.rects[id]}
}

func newTestContext(t *testing.T) (*Context, *recordingHooks) {
	t.Helper()
	ui := New()
	hooks := newRecordingHooks()
	ui.SetHooks(hooks)
	return ui, hooks
}

func placeWindow(ui *Context, name string, flags core.WindowFlags, open *bool) bool {
	ui.SetNextWindowPos(core.Vec2{X: 100, Y: 100})
	ui.SetNextWindowSize(core.Vec2{X: 200, Y: 200})
	return ui.Begin(name, open, flags)
}

// click presses and releases the left button over pos, one frame each.
func click(ui *Context, pos core.Vec2, draw func()) {
	ui.io.MousePos = pos
	ui.Frame(draw)
	ui.io.MouseDown[core.MouseButtonLeft] = true
	ui.Frame(draw)
	ui.io.MouseDown[core.MouseButtonLeft] = false
	ui.Frame(draw)
}

func TestFrameCallsHooksInOrder(t *testing.T) {
	ui, hooks := newTestContext(t)
	ui.Frame(nil)
	ui.Frame(nil)

	assert.Equal(t, 2, hooks.pre)
	assert.Equal(t, 2, hooks.post)
	assert.Equal(t, 2, ui.FrameCount())
	assert.InDelta(t, 2.0/60.0, ui.Time(), 1e-9)
}

func TestEndFramePanicsOnMissingEnd(t *testing.T) {
	ui, _ := newTestContext(t)
	ui.NewFrame()
	ui.Begin("Window", nil, core.WindowFlagNone)
	assert.Panics(t, ui.EndFrame)
}

func TestButtonPressedOnRelease(t *testing.T) {
	ui, hooks := newTestContext(t)
	pressed := 0
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		if ui.Button("OK") {
			pressed++
		}
		ui.End()
	}
	ui.Frame(draw)

	id := hash.DecoratedPath("Window/OK", 0)
	item, ok := hooks.items[id]
	require.True(t, ok, "button reported through ItemInfo")
	assert.Equal(t, "OK", item.label)
	assert.True(t, item.flags.Has(core.ItemStatusVisible))

	ui.io.MousePos = item.rect.Center()
	ui.Frame(draw)
	assert.Equal(t, id, ui.HoveredID())
	ui.Frame(draw)
	assert.Equal(t, id, ui.HoveredIDPreviousFrame())

	ui.io.MouseDown[core.MouseButtonLeft] = true
	ui.Frame(draw)
	assert.Equal(t, id, ui.ActiveID())
	assert.Equal(t, 0, pressed)

	ui.io.MouseDown[core.MouseButtonLeft] = false
	ui.Frame(draw)
	assert.Equal(t, 1, pressed)
	assert.Zero(t, ui.ActiveID())
}

func TestCheckboxToggles(t *testing.T) {
	ui, hooks := newTestContext(t)
	value := false
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		ui.Checkbox("Enable", &value)
		ui.End()
	}
	ui.Frame(draw)
	id := hash.DecoratedPath("Window/Enable", 0)
	item := hooks.items[id]
	assert.True(t, item.flags.Has(core.ItemStatusCheckable))
	assert.False(t, item.flags.Has(core.ItemStatusChecked))

	click(ui, item.rect.Center(), draw)
	assert.True(t, value)
	assert.True(t, hooks.items[id].flags.Has(core.ItemStatusChecked))
}

func TestTitleBarDecorations(t *testing.T) {
	ui, hooks := newTestContext(t)
	open := true
	draw := func() {
		if placeWindow(ui, "Window", core.WindowFlagNone, &open) {
			ui.Text("hello")
		}
		ui.End()
	}
	ui.Frame(draw)

	winID := hash.String("Window", 0)
	collapseID := hash.String("#COLLAPSE", winID)
	closeID := hash.String("#CLOSE", winID)
	resizeID := hash.String("#RESIZE", winID)
	for _, id := range []core.ID{collapseID, closeID, resizeID} {
		_, ok := hooks.items[id]
		assert.True(t, ok, "decoration %08X reported", id)
	}

	click(ui, hooks.items[collapseID].rect.Center(), draw)
	w := ui.Window("Window")
	require.NotNil(t, w)
	assert.True(t, w.Collapsed())
	assert.Equal(t, float64(TitleBarHeight), w.Size().Y)

	click(ui, hooks.items[closeID].rect.Center(), draw)
	assert.False(t, open)
}

func TestChildWindowNaming(t *testing.T) {
	ui, _ := newTestContext(t)
	ui.Frame(func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		ui.BeginChild("Child", 80)
		ui.Button("Inner")
		ui.EndChild()
		ui.End()
	})

	itemID := hash.DecoratedPath("Window/Child", 0)
	name := fmt.Sprintf("Window/Child_%08X", itemID)
	w := ui.FindWindowByName(name)
	require.NotNil(t, w)
	assert.Equal(t, w, ui.FindWindowByID(itemID))
	assert.Equal(t, "Window", w.RootWindow().Name())
	assert.Equal(t, "Window", w.ParentWindow().Name())
	assert.Len(t, ui.Windows(), 2)
}

func TestMenuOpensOnClickAndClosesOnItem(t *testing.T) {
	ui, hooks := newTestContext(t)
	picked := false
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagMenuBar, nil)
		if ui.BeginMenuBar() {
			if ui.BeginMenu("File") {
				if ui.MenuItem("Open", "Ctrl+O", nil) {
					picked = true
				}
				ui.EndMenu()
			}
			ui.EndMenuBar()
		}
		ui.End()
	}
	ui.Frame(draw)

	fileID := hash.DecoratedPath("Window/##menubar/File", 0)
	file := hooks.items[fileID]
	require.NotZero(t, file.id)
	assert.False(t, file.flags.Has(core.ItemStatusOpened))

	click(ui, file.rect.Center(), draw)
	assert.Equal(t, 1, ui.OpenPopupCount())
	assert.True(t, hooks.items[fileID].flags.Has(core.ItemStatusOpened))
	require.NotNil(t, ui.NavWindow())
	assert.Equal(t, MenuPopupName(0), ui.NavWindow().Name())

	openID := hash.DecoratedPath("Open", hash.String(MenuPopupName(0), 0))
	open := hooks.items[openID]
	require.NotZero(t, open.id)
	click(ui, open.rect.Center(), draw)
	assert.True(t, picked)
	assert.Zero(t, ui.OpenPopupCount())
}

func TestComboSelects(t *testing.T) {
	ui, hooks := newTestContext(t)
	current := 0
	items := []string{"Apple", "Banana", "Cherry"}
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		ui.Combo("Fruit", &current, items)
		ui.End()
	}
	ui.Frame(draw)

	comboID := hash.DecoratedPath("Window/Fruit", 0)
	click(ui, hooks.items[comboID].rect.Center(), draw)
	require.NotNil(t, ui.NavWindow())
	popup := ui.NavWindow()
	assert.Equal(t, ComboPopupName(0), popup.Name())

	ui.Frame(draw)
	entry := hooks.items[hash.DecoratedPath("Cherry", popup.ID())]
	require.NotZero(t, entry.id)
	click(ui, entry.rect.Center(), draw)
	assert.Equal(t, 2, current)
	assert.Zero(t, ui.OpenPopupCount())
}

func TestClickOutsideClosesPopup(t *testing.T) {
	ui, hooks := newTestContext(t)
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		if ui.Button("Menu") {
			ui.OpenPopup("ctx")
		}
		if ui.BeginPopup("ctx") {
			ui.Selectable("Item", false)
			ui.EndPopup()
		}
		ui.End()
	}
	ui.Frame(draw)
	click(ui, hooks.items[hash.DecoratedPath("Window/Menu", 0)].rect.Center(), draw)
	assert.Equal(t, 1, ui.OpenPopupCount())

	click(ui, core.Vec2{X: 5, Y: 5}, draw)
	assert.Zero(t, ui.OpenPopupCount())
}

func TestTreeNodePushesID(t *testing.T) {
	ui, hooks := newTestContext(t)
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		if ui.TreeNode("Node") {
			ui.Button("Leaf")
			ui.TreePop()
		}
		ui.End()
	}
	ui.Frame(draw)
	nodeID := hash.DecoratedPath("Window/Node", 0)
	assert.True(t, hooks.items[nodeID].flags.Has(core.ItemStatusOpenable))

	click(ui, hooks.items[nodeID].rect.Center(), draw)
	assert.True(t, hooks.items[nodeID].flags.Has(core.ItemStatusOpened))
	_, ok := hooks.items[hash.DecoratedPath("Window/Node/Leaf", 0)]
	assert.True(t, ok)
}

func TestInputTextEditing(t *testing.T) {
	ui, hooks := newTestContext(t)
	text := "old"
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		ui.InputText("Name", &text)
		ui.End()
	}
	ui.Frame(draw)
	id := hash.DecoratedPath("Window/Name", 0)
	click(ui, hooks.items[id].rect.Center(), draw)
	assert.Equal(t, id, ui.TextActiveID())
	assert.True(t, hooks.items[id].flags.Has(core.ItemStatusActive|core.ItemStatusInputable))

	ui.io.KeyMods = core.ModCtrl
	ui.io.KeysDown[core.KeyA] = true
	ui.Frame(draw)
	ui.io.KeyMods = core.ModNone
	ui.io.KeysDown[core.KeyA] = false
	ui.Frame(draw)

	ui.io.AddInputCharacter('h')
	ui.io.AddInputCharacter('i')
	ui.Frame(draw)
	assert.Equal(t, "hi", text)

	ui.io.KeysDown[core.KeyBackspace] = true
	ui.Frame(draw)
	ui.io.KeysDown[core.KeyBackspace] = false
	assert.Equal(t, "h", text)

	ui.io.KeysDown[core.KeyEnter] = true
	ui.Frame(draw)
	ui.io.KeysDown[core.KeyEnter] = false
	assert.Zero(t, ui.TextActiveID())
}

func TestScrollClampAndLimit(t *testing.T) {
	ui, _ := newTestContext(t)
	draw := func() {
		placeWindow(ui, "List", core.WindowFlagNone, nil)
		for i := 0; i < 50; i++ {
			ui.PushIDInt(i)
			ui.Button("Row")
			ui.PopID()
		}
		ui.End()
	}
	ui.Frame(draw)
	w := ui.Window("List")
	require.NotNil(t, w)
	require.Greater(t, w.ScrollMax().Y, 100.0)

	ui.SetScroll(w, core.AxisY, 1e6)
	ui.Frame(draw)
	assert.Equal(t, w.ScrollMax().Y, w.Scroll().Y)

	ui.ForceScrollLimit("List", 50)
	ui.SetScroll(w, core.AxisY, 200)
	ui.Frame(draw)
	assert.Equal(t, 50.0, w.Scroll().Y)

	ui.ForceScrollLimit("List", -1)
	ui.SetScroll(w, core.AxisY, 200)
	ui.Frame(draw)
	assert.Equal(t, 200.0, w.Scroll().Y)
}

func TestWindowMoveAndDock(t *testing.T) {
	ui, _ := newTestContext(t)
	draw := func() {
		ui.SetNextWindowPos(core.Vec2{X: 500, Y: 100})
		ui.Begin("Target", nil, core.WindowFlagNone)
		ui.End()
		ui.SetNextWindowPos(core.Vec2{X: 100, Y: 100})
		ui.SetNextWindowSize(core.Vec2{X: 200, Y: 200})
		ui.Begin("Source", nil, core.WindowFlagNone)
		ui.End()
	}
	ui.Frame(draw)
	src, dst := ui.Window("Source"), ui.Window("Target")

	grab := src.TitleBarRect().Center()
	ui.io.MousePos = grab
	ui.Frame(draw)
	ui.io.MouseDown[core.MouseButtonLeft] = true
	ui.Frame(draw)

	drop, ok := ui.DockDropRect(dst)
	require.True(t, ok)
	ui.io.MousePos = drop.Center()
	ui.Frame(draw)
	ui.Frame(draw)
	ui.io.MouseDown[core.MouseButtonLeft] = false
	ui.Frame(draw)

	assert.NotZero(t, ui.WindowDockID(src))
	assert.Equal(t, ui.WindowDockID(dst), ui.WindowDockID(src))

	ui.UndockWindow(src)
	assert.Zero(t, ui.WindowDockID(src))
	assert.Zero(t, ui.WindowDockID(dst))
}

func TestDragAndDropPayload(t *testing.T) {
	ui, hooks := newTestContext(t)
	var dropped any
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		ui.Button("Source")
		if ui.BeginDragDropSource() {
			ui.SetDragDropPayload("ITEM", 42)
			ui.EndDragDropSource()
		}
		ui.Button("Target")
		if ui.BeginDragDropTarget() {
			if v, ok := ui.AcceptDragDropPayload("ITEM"); ok {
				dropped = v
			}
			ui.EndDragDropTarget()
		}
		ui.End()
	}
	ui.Frame(draw)
	src := hooks.items[hash.DecoratedPath("Window/Source", 0)].rect.Center()
	dst := hooks.items[hash.DecoratedPath("Window/Target", 0)].rect.Center()

	ui.io.MousePos = src
	ui.Frame(draw)
	ui.io.MouseDown[core.MouseButtonLeft] = true
	ui.Frame(draw)
	ui.io.MousePos = dst
	ui.Frame(draw)
	assert.True(t, ui.IsDragging())
	ui.io.MouseDown[core.MouseButtonLeft] = false
	ui.Frame(draw)

	assert.Equal(t, 42, dropped)
	assert.False(t, ui.IsDragging())
}

func TestTabItemClose(t *testing.T) {
	ui, hooks := newTestContext(t)
	open := true
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		if ui.BeginTabBar("Tabs") {
			if ui.TabItem("First", nil) {
				ui.EndTabItem()
			}
			if ui.TabItem("Second", &open) {
				ui.EndTabItem()
			}
			ui.EndTabBar()
		}
		ui.End()
	}
	ui.Frame(draw)
	tabID := hash.DecoratedPath("Window/Tabs/Second", 0)
	closeID := hash.String("#CLOSE", tabID)
	item, ok := hooks.items[closeID]
	require.True(t, ok)

	click(ui, item.rect.Center(), draw)
	assert.False(t, open)
}

func TestCapturePNG(t *testing.T) {
	ui, _ := newTestContext(t)
	draw := func() {
		placeWindow(ui, "Window", core.WindowFlagNone, nil)
		ui.Button("OK")
		ui.End()
	}
	ui.Frame(draw)
	ui.Frame(draw)

	w := ui.Window("Window")
	data, err := ui.Capture(core.CaptureRequest{Rect: w.Rect(), Windows: []core.Window{w}})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}
