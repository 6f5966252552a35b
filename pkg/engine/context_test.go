package engine

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/headless"
)

// window submits a regular window around body.
func window(ui *headless.Context, name string, flags core.WindowFlags, body func()) {
	if ui.Begin(name, nil, flags) {
		body()
	}
	ui.End()
}

func TestItemClickButton(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.Button("OK") {
				ctx.GenericVars.Count++
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemClick("OK")
		ctx.CheckEqual(ctx.GenericVars.Count, 1, "clicks")
		ctx.ItemDoubleClick("OK")
		ctx.CheckEqual(ctx.GenericVars.Count, 3, "clicks")
	})
	requireStatus(t, core.StatusSuccess, tst)
	assert.True(t, tst.Output.Log.Contains("OK context_test.go:"))
}

func TestItemCheckAndUncheck(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.Checkbox("Enable", &ctx.GenericVars.Bool1)
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemCheck("Enable")
		ctx.Check(ctx.GenericVars.Bool1, "Bool1")
		ctx.Check(ctx.ItemIsChecked("Enable"), "ItemIsChecked")
		ctx.ItemUncheck("Enable")
		ctx.Check(!ctx.GenericVars.Bool1, "!Bool1")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestItemNotFound(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() { h.ui.Button("OK") })
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.Check(!ctx.ItemExists("Missing"), "!ItemExists")
		ctx.ItemClick("Missing")
		ctx.GenericVars.Step = 1
		ctx.ItemClick("OK")
	})
	requireStatus(t, core.StatusError, tst)
	require.Len(t, tst.Output.Errors, 1)
	assert.True(t, errors.Is(tst.Output.Errors[0], core.ErrItemNotFound))
	assert.Contains(t, tst.Output.Errors[0].Message, "Window/Missing")
	assert.True(t, tst.Output.Log.Contains("Unable to locate item"))
}

func TestItemOpenAndClose(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.TreeNode("Node") {
				h.ui.Button("Leaf")
				h.ui.TreePop()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.Check(!ctx.ItemExists("Node/Leaf"), "closed")
		ctx.ItemOpen("Node")
		ctx.Check(ctx.ItemIsOpened("Node"), "opened")
		ctx.Check(ctx.ItemExists("Node/Leaf"), "leaf visible")
		ctx.ItemClose("Node")
		ctx.Check(!ctx.ItemIsOpened("Node"), "closed again")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestWildcardReference(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.SetNextItemOpen(true)
			if h.ui.TreeNode("Outer") {
				if h.ui.TreeNode("Inner") {
					if h.ui.Button("Deep") {
						ctx.GenericVars.Count++
					}
					h.ui.TreePop()
				}
				h.ui.TreePop()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemOpen("Outer/Inner")
		ctx.ItemClick("**/Deep")
		ctx.CheckEqual(ctx.GenericVars.Count, 1, "clicks")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestItemActionAll(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			for i := 0; i < 3; i++ {
				if h.ui.TreeNode(fmt.Sprintf("Node %d", i)) {
					if h.ui.TreeNode("Child") {
						h.ui.TreePop()
					}
					h.ui.TreePop()
				}
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.CheckEqual(ctx.ItemActionAll(core.ActionOpen, "", nil), 6, "opened")
		ctx.Check(ctx.ItemIsOpened("Node 2/Child"), "child opened")
		ctx.CheckEqual(ctx.ItemActionAll(core.ActionClose, "", nil), 6, "closed")
		ctx.Check(!ctx.ItemIsOpened("Node 0"), "node closed")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestKeyCharsReplace(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		if ctx.FirstGuiFrame {
			ctx.GenericVars.Str1 = "old"
		}
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.InputText("Name", &ctx.GenericVars.Str1)
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemClick("Name")
		ctx.KeyCharsAppend("er")
		ctx.CheckEqual(ctx.GenericVars.Str1, "older", "text")
		ctx.KeyCharsReplaceEnter("new")
		ctx.CheckEqual(ctx.GenericVars.Str1, "new", "text")
		ctx.CheckEqual(h.ui.TextActiveID(), core.ID(0), "text input left")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestItemInputStartsEditing(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.InputText("Value", &ctx.GenericVars.Str1)
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemInput("Value")
		ctx.KeyChars("42")
		ctx.KeyPress(core.KeyChord(core.KeyEnter))
		ctx.CheckEqual(ctx.GenericVars.Str1, "42", "value")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestNavActivate(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.Button("First") {
				ctx.GenericVars.Int1++
			}
			if h.ui.Button("Second") {
				ctx.GenericVars.Int2++
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemNavActivate("First")
		ctx.CheckEqual(ctx.GenericVars.Int1, 1, "first")

		ctx.KeyPress(core.KeyChord(core.KeyDownArrow))
		ctx.CheckEqual(ctx.UI.NavID(), ctx.GetID("Second"), "nav id")
		ctx.NavActivate()
		ctx.CheckEqual(ctx.GenericVars.Int2, 1, "second")

		ctx.SetInputMode(core.InputSourceNav)
		ctx.ItemClick("First")
		ctx.CheckEqual(ctx.GenericVars.Int1, 2, "first")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestMenuClickAndCheck(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagMenuBar, func() {
			if h.ui.BeginMenuBar() {
				if h.ui.BeginMenu("File") {
					if h.ui.MenuItem("Open", "Ctrl+O", nil) {
						ctx.GenericVars.Count++
					}
					h.ui.MenuItem("Autosave", "", &ctx.GenericVars.Bool1)
					if h.ui.BeginMenu("Recent") {
						if h.ui.MenuItem("a.txt", "", nil) {
							ctx.GenericVars.Str1 = "a.txt"
						}
						h.ui.EndMenu()
					}
					h.ui.EndMenu()
				}
				h.ui.EndMenuBar()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.MenuClick("File/Open")
		ctx.CheckEqual(ctx.GenericVars.Count, 1, "open")
		ctx.CheckEqual(ctx.UI.OpenPopupCount(), 0, "popups")

		ctx.MenuCheck("File/Autosave")
		ctx.Check(ctx.GenericVars.Bool1, "autosave")

		ctx.MenuClick("File/Recent/a.txt")
		ctx.CheckEqual(ctx.GenericVars.Str1, "a.txt", "recent")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestMenuClickTwice(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagMenuBar, func() {
			if h.ui.BeginMenuBar() {
				if h.ui.BeginMenu("File") {
					if h.ui.MenuItem("Open", "", nil) {
						ctx.GenericVars.Count++
					}
					h.ui.EndMenu()
				}
				h.ui.EndMenuBar()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.MenuClick("File/Open")
		ctx.MenuClick("File/Open")
		ctx.CheckEqual(ctx.GenericVars.Count, 2, "open")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestComboClick(t *testing.T) {
	h := newHarness(t)
	fruits := []string{"Apple", "Banana", "Cherry"}
	var selected []int
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.Combo("Fruit", &ctx.GenericVars.Int1, fruits) {
				selected = append(selected, ctx.GenericVars.Int1)
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ComboClick("Fruit/Cherry")
		ctx.CheckEqual(ctx.GenericVars.Int1, 2, "selection")
		selected = nil
		ctx.CheckEqual(ctx.ComboClickAll("Fruit"), 3, "entries")
	})
	requireStatus(t, core.StatusSuccess, tst)
	assert.Equal(t, []int{0, 1, 2}, selected)
}

func TestPopupRecoveredAfterTest(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.Button("Menu") {
				h.ui.OpenPopup("ctx")
			}
			if h.ui.BeginPopup("ctx") {
				h.ui.Selectable("Item", false)
				h.ui.EndPopup()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemClick("Menu")
		ctx.CheckEqual(ctx.UI.OpenPopupCount(), 1, "popups")
	})
	requireStatus(t, core.StatusSuccess, tst)
	assert.True(t, tst.Output.Log.Contains("Recovered from 1 open popups."))
	assert.Zero(t, h.ui.OpenPopupCount())
}

func TestWindowOperations(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		if ctx.FirstGuiFrame {
			ctx.GenericVars.Bool1 = true
		}
		if ctx.GenericVars.Bool1 {
			h.ui.Begin("Window", &ctx.GenericVars.Bool1, core.WindowFlagNone)
			h.ui.End()
		}
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.WindowMove("", core.Vec2{X: 200, Y: 150})
		w := ctx.GetWindowByRef("")
		ctx.CheckEqual(w.Pos(), core.Vec2{X: 200, Y: 150}, "pos")

		ctx.WindowResize("", core.Vec2{X: 300, Y: 250})
		ctx.CheckEqual(w.Size(), core.Vec2{X: 300, Y: 250}, "size")

		ctx.WindowCollapse("", true)
		ctx.Check(w.Collapsed(), "collapsed")
		ctx.WindowCollapse("", false)
		ctx.Check(!w.Collapsed(), "expanded")

		ctx.WindowClose("")
		ctx.Check(!ctx.GenericVars.Bool1, "closed")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestWindowBringToFront(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Back", core.WindowFlagNone, func() { h.ui.Button("A") })
		window(h.ui, "Front", core.WindowFlagNone, func() { h.ui.Button("B") })
	}, func(ctx *Context) {
		ctx.WindowFocus("Back")
		ctx.CheckEqual(ctx.UI.NavWindow().Name(), "Back", "focused")
		windows := ctx.UI.Windows()
		ctx.CheckEqual(windows[len(windows)-1].Name(), "Back", "front")

		// Clicking an item raises its window first.
		ctx.ItemClick("/Front/B")
		windows = ctx.UI.Windows()
		ctx.CheckEqual(windows[len(windows)-1].Name(), "Front", "front")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func listGui(h *harness) TestFunc {
	return func(ctx *Context) {
		window(h.ui, "List", core.WindowFlagNone, func() {
			for i := 0; i < 50; i++ {
				h.ui.PushIDInt(i)
				if h.ui.Button("Row") {
					ctx.GenericVars.Int1 = i
				}
				h.ui.PopID()
			}
		})
	}
}

func TestScrollTo(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(listGui(h), func(ctx *Context) {
		w := ctx.WindowInfo("List")
		ctx.ScrollToBottom("List")
		ctx.CheckEqual(w.Scroll().Y, w.ScrollMax().Y, "scroll")
		ctx.ScrollToTop("List")
		ctx.CheckEqual(w.Scroll().Y, 0.0, "scroll")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestScrollToNormalSpeed(t *testing.T) {
	h := newHarness(t)
	h.e.IO.ConfigRunSpeed = core.RunSpeedNormal
	tst := h.runTest(listGui(h), func(ctx *Context) {
		w := ctx.WindowInfo("List")
		start := ctx.FrameCount
		ctx.ScrollToY("List", 500)
		ctx.CheckEqual(w.Scroll().Y, 500.0, "scroll")
		// 1400 px/s at 60 fps is at most 24 px per frame.
		ctx.Check(ctx.FrameCount-start >= 500/24, "scroll speed limited")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestScrollNotConverging(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(listGui(h), func(ctx *Context) {
		h.ui.ForceScrollLimit("List", 50)
		ctx.ScrollToY("List", 200)
	})
	requireStatus(t, core.StatusError, tst)
	require.Len(t, tst.Output.Errors, 1)
	assert.True(t, errors.Is(tst.Output.Errors[0], core.ErrScrollNotConverged))
	assert.Equal(t, 2, tst.Output.Log.CountPerLevel[core.VerboseWarning])
	assert.True(t, tst.Output.Log.Contains("Will try again."))
	assert.True(t, tst.Output.Log.Contains("Aborting."))
}

func TestItemClickScrollsIntoView(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(listGui(h), func(ctx *Context) {
		ctx.SetRef("List")
		ctx.ItemClick("40/Row")
		ctx.CheckEqual(ctx.GenericVars.Int1, 40, "row")
		ctx.Check(ctx.WindowInfo("").Scroll().Y > 0, "scrolled")
	})
	requireStatus(t, core.StatusSuccess, tst)
	// The row fits horizontally once scrolled vertically.
	assert.True(t, tst.Output.Log.Contains("ScrollTo Y"))
	assert.False(t, tst.Output.Log.Contains("ScrollTo X"), "log:\n%s", tst.Output.Log.String())
}

func TestChildWindowReference(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.BeginChild("Child", 120)
			if h.ui.Button("Inside") {
				ctx.GenericVars.Count++
			}
			h.ui.EndChild()
		})
	}, func(ctx *Context) {
		child := ctx.WindowInfo("Window/Child")
		if !ctx.Check(child != nil, "child found") {
			return
		}
		ctx.SetRefWindow(child)
		ctx.ItemClick("Inside")
		ctx.CheckEqual(ctx.GenericVars.Count, 1, "clicks")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestItemDragAndDrop(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.Button("Source")
			if h.ui.BeginDragDropSource() {
				h.ui.SetDragDropPayload("NUMBER", 42)
				h.ui.EndDragDropSource()
			}
			h.ui.Spacing(40)
			h.ui.Button("Target")
			if h.ui.BeginDragDropTarget() {
				if v, ok := h.ui.AcceptDragDropPayload("NUMBER"); ok {
					ctx.GenericVars.Int1 = v.(int)
				}
				h.ui.EndDragDropTarget()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemDragAndDrop("Source", "Target", core.MouseButtonLeft)
		ctx.CheckEqual(ctx.GenericVars.Int1, 42, "payload")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestItemDragWithDelta(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.DragFloat("Value", &ctx.GenericVars.Float1, 0.5)
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemDragWithDelta("Value", core.Vec2{X: 40})
		ctx.CheckEqual(ctx.GenericVars.Float1, 20.0, "value")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestTabClose(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		if ctx.FirstGuiFrame {
			ctx.GenericVars.Bool1 = true
		}
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.BeginTabBar("Tabs") {
				if h.ui.TabItem("First", nil) {
					h.ui.EndTabItem()
				}
				if h.ui.TabItem("Second", &ctx.GenericVars.Bool1) {
					h.ui.EndTabItem()
				}
				h.ui.EndTabBar()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.TabClose("Tabs/Second")
		ctx.Check(!ctx.GenericVars.Bool1, "tab closed")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestDockInto(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		h.ui.SetNextWindowPos(core.Vec2{X: 50, Y: 50})
		h.ui.SetNextWindowSize(core.Vec2{X: 200, Y: 150})
		window(h.ui, "A", core.WindowFlagNone, func() {})
		h.ui.SetNextWindowPos(core.Vec2{X: 400, Y: 50})
		h.ui.SetNextWindowSize(core.Vec2{X: 300, Y: 300})
		window(h.ui, "B", core.WindowFlagNone, func() {})
	}, func(ctx *Context) {
		ctx.DockInto("A", "B")
		ctx.Check(ctx.GenericVars.DockID != 0, "docked")
		ctx.DockClear("A")
		ctx.CheckEqual(h.ui.WindowDockID(ctx.WindowInfo("A")), core.ID(0), "undocked")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestMouseClickOnVoidClosesPopup(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		h.ui.SetNextWindowPos(core.Vec2{X: 100, Y: 100})
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.Button("Menu") {
				h.ui.OpenPopup("ctx")
			}
			if h.ui.BeginPopup("ctx") {
				h.ui.Selectable("Item", false)
				h.ui.EndPopup()
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemClick("Menu")
		ctx.MouseClickOnVoid(core.MouseButtonLeft)
		ctx.CheckEqual(ctx.UI.OpenPopupCount(), 0, "popups")
	})
	requireStatus(t, core.StatusSuccess, tst)
	assert.False(t, tst.Output.Log.Contains("Recovered from"))
}

func TestCaptureScreenshot(t *testing.T) {
	h := newHarness(t)
	h.e.IO.ScreenCaptureFunc = h.ui.Capture
	h.e.IO.ArtifactsDir = t.TempDir()
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() { h.ui.Button("OK") })
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.Check(ctx.CaptureScreenshot("initial"), "captured")
	})
	requireStatus(t, core.StatusSuccess, tst)
	require.Len(t, tst.Output.Attachments, 1)
	att := tst.Output.Attachments[0]
	assert.Equal(t, core.ContentTypePNG, att.ContentType)
	_, err := os.Stat(att.Path)
	assert.NoError(t, err)
}

func TestCaptureScreenshotInMemory(t *testing.T) {
	h := newHarness(t)
	h.e.IO.ScreenCaptureFunc = h.ui.Capture
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() { h.ui.Button("OK") })
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.Check(ctx.CaptureScreenshot("memory"), "captured")
	})
	requireStatus(t, core.StatusSuccess, tst)
	require.Len(t, tst.Output.Attachments, 1)
	att := tst.Output.Attachments[0]
	assert.Empty(t, att.Path)
	assert.NotEmpty(t, att.Body)
}

func TestCaptureScreenshotWithoutFunc(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(nil, func(ctx *Context) {
		ctx.Check(!ctx.CaptureScreenshot("none"), "not captured")
	})
	requireStatus(t, core.StatusSuccess, tst)
	assert.True(t, tst.Output.Log.Contains("no ScreenCaptureFunc configured"))
}

func TestMouseMoveHoverMismatch(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		h.ui.SetNextWindowPos(core.Vec2{X: 100, Y: 100})
		window(h.ui, "Under", core.WindowFlagNone, func() { h.ui.Button("Hidden") })
		h.ui.SetNextWindowPos(core.Vec2{X: 100, Y: 100})
		window(h.ui, "Over", core.WindowFlagNone, func() { h.ui.Button("Cover") })
	}, func(ctx *Context) {
		ctx.SetRef("Under")
		ctx.MouseMove("Hidden", core.OpNoFocusWindow)
	})
	requireStatus(t, core.StatusError, tst)
	require.NotEmpty(t, tst.Output.Errors)
	assert.True(t, errors.Is(tst.Output.Errors[0], core.ErrHoverMismatch))
	assert.True(t, tst.Output.Log.Contains("Unable to Hover"))
}

func TestInputSeenByGuiFuncOnReturn(t *testing.T) {
	h := newHarness(t)
	tst := h.runTest(func(ctx *Context) {
		window(h.ui, "Window", core.WindowFlagNone, func() {
			h.ui.InputText("Name", &ctx.GenericVars.Str1)
			if h.ui.Button("OK") {
				ctx.GenericVars.Count++
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.ItemClick("Name")
		ctx.KeyChars("abc")
		ctx.CheckEqual(ctx.GenericVars.Str1, "abc", "text after KeyChars")

		ctx.MouseMove("OK")
		ctx.MouseDown(core.MouseButtonLeft)
		ctx.MouseUp(core.MouseButtonLeft)
		ctx.CheckEqual(ctx.GenericVars.Count, 1, "clicks after MouseUp")
	})
	requireStatus(t, core.StatusSuccess, tst)
}

func TestClickPressAndReleaseOnSeparateFrames(t *testing.T) {
	h := newHarness(t)
	var samples []bool
	tst := h.runTest(func(ctx *Context) {
		if ctx.GenericVars.Step == 1 {
			samples = append(samples, h.ui.IO().MouseDown[core.MouseButtonLeft])
		}
		window(h.ui, "Window", core.WindowFlagNone, func() {
			if h.ui.Button("OK") {
				ctx.GenericVars.Count++
			}
		})
	}, func(ctx *Context) {
		ctx.SetRef("Window")
		ctx.MouseMove("OK")
		ctx.GenericVars.Step = 1
		ctx.MouseClick(core.MouseButtonLeft)
		ctx.GenericVars.Step = 0
		ctx.CheckEqual(ctx.GenericVars.Count, 1, "clicks")
	})
	requireStatus(t, core.StatusSuccess, tst)

	down := -1
	for i, v := range samples {
		if v {
			down = i
			break
		}
	}
	require.NotEqual(t, -1, down, "button never seen down: %v", samples)
	assert.Contains(t, samples[down+1:], false, "button never seen up after press: %v", samples)
}
