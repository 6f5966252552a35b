package locate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
)

// stubWindow is the minimum core.Window needed by the hooks.
type stubWindow struct {
	id     core.ID
	name   string
	clip   core.Rect
	stack  []core.ID
	parent *stubWindow
	layer  core.NavLayer
}

func newStubWindow(name string) *stubWindow {
	id := hash.String(name, 0)
	return &stubWindow{
		id:    id,
		name:  name,
		clip:  core.Rect{Min: core.Vec2{X: 0, Y: 0}, Max: core.Vec2{X: 200, Y: 100}},
		stack: []core.ID{id},
	}
}

func (w *stubWindow) push(s string) core.ID {
	id := hash.String(s, w.stack[len(w.stack)-1])
	w.stack = append(w.stack, id)
	return id
}

func (w *stubWindow) pop() { w.stack = w.stack[:len(w.stack)-1] }

func (w *stubWindow) itemID(label string) core.ID {
	return hash.String(label, w.stack[len(w.stack)-1])
}

func (w *stubWindow) ID() core.ID                    { return w.id }
func (w *stubWindow) Name() string                   { return w.name }
func (w *stubWindow) Flags() core.WindowFlags        { return core.WindowFlagNone }
func (w *stubWindow) Pos() core.Vec2                 { return w.clip.Min }
func (w *stubWindow) Size() core.Vec2                { return w.clip.Size() }
func (w *stubWindow) Rect() core.Rect                { return w.clip }
func (w *stubWindow) TitleBarRect() core.Rect        { return core.Rect{} }
func (w *stubWindow) InnerClipRect() core.Rect       { return w.clip }
func (w *stubWindow) ClipRect() core.Rect            { return w.clip }
func (w *stubWindow) Scroll() core.Vec2              { return core.Vec2{} }
func (w *stubWindow) ScrollMax() core.Vec2           { return core.Vec2{} }
func (w *stubWindow) Collapsed() bool                { return false }
func (w *stubWindow) WasActive() bool                { return true }
func (w *stubWindow) RootWindow() core.Window        { return w }
func (w *stubWindow) IDStack() []core.ID             { return w.stack }
func (w *stubWindow) NavLayerCurrent() core.NavLayer { return w.layer }
func (w *stubWindow) PopupDepth() int                { return -1 }
func (w *stubWindow) ParentWindow() core.Window {
	if w.parent == nil {
		return nil
	}
	return w.parent
}

func TestFindOrRequest_RoundTrip(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")
	id := win.itemID("Checkbox")
	rect := core.Rect{Min: core.Vec2{X: 10, Y: 10}, Max: core.Vec2{X: 60, Y: 30}}

	assert.Nil(t, pool.FindOrRequest(id, 1, "Window/Checkbox"))
	assert.Equal(t, 1, pool.Len())

	// Frame 2: the GUI submits the item.
	pool.ItemAdd(2, win, id, rect)
	pool.ItemInfo(2, win, id, "Checkbox", core.ItemStatusCheckable)

	info := pool.FindOrRequest(id, 2, "Window/Checkbox")
	require.NotNil(t, info)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, win.ID(), info.ParentID)
	assert.Equal(t, rect, info.RectFull)
	assert.Equal(t, core.Window(win), info.Window)
	assert.Equal(t, 2, info.TimestampMain)
	assert.Equal(t, 2, info.TimestampStatus)
	assert.True(t, info.StatusFlags.Has(core.ItemStatusCheckable))
	assert.Equal(t, "Checkbox", info.DebugLabel)

	// Still returned two frames later without being submitted again.
	assert.NotNil(t, pool.FindOrRequest(id, 4, ""))
	assert.Nil(t, pool.FindOrRequest(id, 5, ""), "result older than the max age must not be returned")
}

func TestGC_CollectsStaleTasks(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")
	id := win.itemID("Button")

	pool.FindOrRequest(id, 1, "Window/Button")
	pool.ItemAdd(1, win, id, core.Rect{Max: core.Vec2{X: 10, Y: 10}})

	assert.Equal(t, 0, pool.GC(1+GCHorizon), "task at the horizon survives")
	assert.Equal(t, 1, pool.GC(2+GCHorizon))
	assert.Equal(t, 0, pool.Len())

	// Behaves as a brand new request.
	assert.Nil(t, pool.FindOrRequest(id, 30, "Window/Button"))
	assert.Equal(t, -1, pool.Task(id).Result.TimestampMain)
}

func TestGC_RefCountKeepsTask(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")
	id := win.itemID("Button")

	pool.FindOrRequest(id, 1, "")
	pool.ItemAdd(1, win, id, core.Rect{Max: core.Vec2{X: 10, Y: 10}})
	info := pool.FindOrRequest(id, 1, "")
	require.NotNil(t, info)

	info.RefCount++
	assert.Equal(t, 0, pool.GC(100))
	assert.Equal(t, 1, pool.Len())

	info.RefCount--
	assert.Equal(t, 1, pool.GC(101))
	assert.Nil(t, pool.Task(id))
}

func TestItemAdd_ClippedRectInsideFull(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")
	id := win.itemID("Wide")
	rect := core.Rect{Min: core.Vec2{X: 150, Y: 90}, Max: core.Vec2{X: 300, Y: 120}}

	pool.FindOrRequest(id, 1, "")
	pool.ItemAdd(1, win, id, rect)
	info := pool.FindOrRequest(id, 1, "")
	require.NotNil(t, info)

	assert.Equal(t, core.Rect{Min: core.Vec2{X: 150, Y: 90}, Max: core.Vec2{X: 200, Y: 100}}, info.RectClipped)
	assert.True(t, info.RectFull.ContainsRect(info.RectClipped))
}

func TestItemAdd_IgnoresUnrequested(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")
	pool.ItemAdd(1, win, win.itemID("Other"), core.Rect{})
	assert.Equal(t, 0, pool.Len())
}

func TestGather_DepthAndDedup(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")
	out := NewItemList()
	pool.Gather.Start(win.ID(), 3, out)

	submit := func(frame int) {
		pool.ItemAdd(frame, win, win.itemID("Top"), core.Rect{})
		node := win.itemID("Node")
		pool.ItemAdd(frame, win, node, core.Rect{})
		pool.ItemInfo(frame, win, node, "Node", core.ItemStatusOpenable|core.ItemStatusOpened)
		win.push("Node")
		pool.ItemAdd(frame, win, win.itemID("Leaf"), core.Rect{})
		win.pop()
	}
	submit(1)
	submit(2)

	require.Equal(t, 3, out.Len())
	assert.Equal(t, 0, out.At(0).Depth)
	assert.Equal(t, 0, out.At(1).Depth)
	assert.Equal(t, 1, out.At(2).Depth)
	assert.Equal(t, "Node", out.At(1).DebugLabel)
	assert.True(t, out.At(1).StatusFlags.Has(core.ItemStatusOpened))

	// Depth limit
	pool.Gather.Start(win.ID(), 1, NewItemList())
	submit(3)
	assert.Equal(t, 2, pool.Gather.Out.Len())

	pool.Gather.Clear()
	assert.False(t, pool.Gather.Active())
}

func TestFindByLabel(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")

	require.True(t, pool.FindByLabel.Start(win.ID(), "Node/Leaf", core.ItemStatusNone))
	assert.Equal(t, 2, pool.FindByLabel.SuffixDepth)

	// Same label under a different parent must not match.
	win.push("Other")
	pool.ItemInfo(1, win, win.itemID("Leaf"), "Leaf", 0)
	win.pop()
	assert.True(t, pool.FindByLabel.Active())

	win.push("Group")
	win.push("Node")
	leaf := win.itemID("Leaf")
	pool.ItemInfo(1, win, leaf, "Leaf", 0)
	win.pop()
	win.pop()

	assert.False(t, pool.FindByLabel.Active())
	assert.Equal(t, leaf, pool.FindByLabel.OutItemID)
	assert.Equal(t, hash.DecoratedPath("Group/Node/Leaf", win.ID()), leaf)
}

func TestFindByLabel_PrefixOutsideWindow(t *testing.T) {
	pool := NewPool()
	a := newStubWindow("A")
	b := newStubWindow("B")

	pool.FindByLabel.Start(a.ID(), "OK", 0)
	pool.ItemInfo(1, b, b.itemID("OK"), "OK", 0)
	assert.Zero(t, pool.FindByLabel.OutItemID)

	child := newStubWindow("A/Child")
	child.parent = a
	pool.ItemInfo(1, child, child.itemID("OK"), "OK", 0)
	assert.Equal(t, child.itemID("OK"), pool.FindByLabel.OutItemID)
}

func TestFindByLabel_StatusFilter(t *testing.T) {
	pool := NewPool()
	win := newStubWindow("Window")
	pool.FindByLabel.Start(0, "Option", core.ItemStatusCheckable)

	pool.ItemInfo(1, win, win.itemID("Option"), "Option", core.ItemStatusNone)
	assert.True(t, pool.FindByLabel.Active())

	pool.ItemInfo(2, win, win.itemID("Option"), "Option", core.ItemStatusCheckable)
	assert.Equal(t, win.itemID("Option"), pool.FindByLabel.OutItemID)
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"//a/b/", []string{"a", "b"}},
		{`a\/b/c`, []string{`a\/b`, "c"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitPath(tt.path), tt.path)
	}
	assert.Equal(t, "a/b", Unescape(`a\/b`))
	assert.Equal(t, "plain", Unescape("plain"))
}

func TestClear(t *testing.T) {
	pool := NewPool()
	pool.FindOrRequest(1, 1, "")
	pool.FindByLabel.Start(1, "x", 0)
	pool.Gather.Start(1, 1, NewItemList())
	pool.Clear()
	assert.Equal(t, 0, pool.Len())
	assert.False(t, pool.FindByLabel.Active())
	assert.False(t, pool.Gather.Active())
}
