// Package demo is a sample application driven by the engine, with a
// suite of registered tests covering the automation API.
package demo

import (
	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/headless"
)

// Fruits lists the entries of the "Fruit" combo.
var Fruits = []string{"Apple", "Banana", "Cherry"}

// RowCount is the number of rows in the "List" window.
const RowCount = 50

// State is everything the demo windows edit.
type State struct {
	Enabled   bool
	Name      string
	Volume    float64
	Fruit     int
	Autosave  bool
	Opened    int
	Recent    string
	Clicks    int
	LastRow   int
	Dropped   int
	ShowTools bool
	ShowStats bool
	Submitted string
}

// App draws the demo windows into a headless GUI.
type App struct {
	ui    *headless.Context
	State State
}

// New creates the demo application.
func New(ui *headless.Context) *App {
	a := &App{ui: ui}
	a.Reset()
	return a
}

// Reset restores the initial state. Windows keep their position.
func (a *App) Reset() {
	a.State = State{
		Name:      "untitled",
		Volume:    50,
		LastRow:   -1,
		ShowTools: true,
		ShowStats: true,
	}
}

// Draw submits one frame of the demo windows.
func (a *App) Draw() {
	a.drawMain()
	a.drawList()
	a.drawTools()
}

func (a *App) drawMain() {
	ui, s := a.ui, &a.State
	ui.SetNextWindowPos(core.Vec2{X: 20, Y: 20})
	ui.SetNextWindowSize(core.Vec2{X: 360, Y: 420})
	if ui.Begin("Demo", nil, core.WindowFlagMenuBar) {
		if ui.BeginMenuBar() {
			if ui.BeginMenu("File") {
				if ui.MenuItem("Open", "Ctrl+O", nil) {
					s.Opened++
				}
				ui.MenuItem("Autosave", "", &s.Autosave)
				if ui.BeginMenu("Recent") {
					for _, f := range []string{"a.txt", "b.txt"} {
						if ui.MenuItem(f, "", nil) {
							s.Recent = f
						}
					}
					ui.EndMenu()
				}
				ui.EndMenu()
			}
			ui.EndMenuBar()
		}

		ui.Checkbox("Enabled", &s.Enabled)
		if ui.InputText("Name", &s.Name) {
			s.Submitted = s.Name
		}
		ui.DragFloat("Volume", &s.Volume, 0.5)
		ui.Combo("Fruit", &s.Fruit, Fruits)
		if ui.Button("Click Me") {
			s.Clicks++
		}

		if ui.TreeNode("Settings") {
			for _, n := range []string{"Audio", "Video"} {
				if ui.TreeNode(n) {
					ui.Text("%s options", n)
					ui.TreePop()
				}
			}
			ui.TreePop()
		}

		if ui.BeginTabBar("Tabs") {
			if ui.TabItem("General", nil) {
				ui.Text("General settings")
				ui.EndTabItem()
			}
			if ui.TabItem("Stats", &s.ShowStats) {
				ui.Text("Clicks: %d", s.Clicks)
				ui.EndTabItem()
			}
			ui.EndTabBar()
		}

		ui.Button("Source")
		if ui.BeginDragDropSource() {
			ui.SetDragDropPayload("VOLUME", int(s.Volume))
			ui.EndDragDropSource()
		}
		ui.SameLine()
		ui.Button("Target")
		if ui.BeginDragDropTarget() {
			if v, ok := ui.AcceptDragDropPayload("VOLUME"); ok {
				s.Dropped = v.(int)
			}
			ui.EndDragDropTarget()
		}
	}
	ui.End()
}

func (a *App) drawList() {
	ui, s := a.ui, &a.State
	ui.SetNextWindowPos(core.Vec2{X: 400, Y: 20})
	ui.SetNextWindowSize(core.Vec2{X: 220, Y: 300})
	if ui.Begin("List", nil, core.WindowFlagNone) {
		for i := 0; i < RowCount; i++ {
			ui.PushIDInt(i)
			if ui.Button("Row") {
				s.LastRow = i
			}
			ui.PopID()
		}
	}
	ui.End()
}

func (a *App) drawTools() {
	ui, s := a.ui, &a.State
	if !s.ShowTools {
		return
	}
	ui.SetNextWindowPos(core.Vec2{X: 400, Y: 340})
	ui.SetNextWindowSize(core.Vec2{X: 220, Y: 160})
	if ui.Begin("Tools", &s.ShowTools, core.WindowFlagNone) {
		if ui.Button("Reset") {
			a.Reset()
		}
	}
	ui.End()
}
