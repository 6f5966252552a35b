// Package locate keeps track of outstanding "where is item X" queries.
//
// A query creates a Task. The task is resolved asynchronously by the
// item hooks the GUI library calls while it submits items, and garbage
// collected once nobody has asked for it for GCHorizon frames.
package locate

import (
	"github.com/devicelab-dev/imtest/pkg/core"
)

const (
	// GCHorizon is the number of frames a task survives without being renewed.
	GCHorizon = 20

	// ResultMaxAge is how old, in frames, a result may be and still be
	// returned by FindOrRequest.
	ResultMaxAge = 2
)

// Task is a pending or resolved lookup of a single item.
type Task struct {
	ID         core.ID
	DebugName  string // Path used to build diagnostics
	FrameCount int    // Frame of the last FindOrRequest
	Result     core.ItemInfo
}

// Pool owns every outstanding task plus the gather and find-by-label
// tasks. It is only touched by the frame driver and the script coroutine,
// never both at once, so it is not synchronized.
type Pool struct {
	tasks map[core.ID]*Task
	order []core.ID

	Gather      GatherTask
	FindByLabel FindByLabelTask
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{tasks: make(map[core.ID]*Task)}
}

// FindOrRequest renews the task for id and returns its result when the
// item was seen during the last ResultMaxAge frames. The first call for an
// id creates the task and returns nil; the caller should yield and retry.
func (p *Pool) FindOrRequest(id core.ID, frame int, debugName string) *core.ItemInfo {
	if t, ok := p.tasks[id]; ok {
		t.FrameCount = frame
		if t.Result.ID != 0 && t.Result.TimestampMain+ResultMaxAge >= frame {
			return &t.Result
		}
		return nil
	}

	t := &Task{
		ID:         id,
		DebugName:  debugName,
		FrameCount: frame,
	}
	t.Result.TimestampMain = -1
	t.Result.TimestampStatus = -1
	p.tasks[id] = t
	p.order = append(p.order, id)
	return nil
}

// Task returns the task for id, or nil.
func (p *Pool) Task(id core.ID) *Task {
	return p.tasks[id]
}

// Len returns the number of live tasks.
func (p *Pool) Len() int {
	return len(p.tasks)
}

// GC deletes tasks not renewed during the last GCHorizon frames whose
// result is not referenced.
func (p *Pool) GC(frame int) int {
	removed := 0
	kept := p.order[:0]
	for _, id := range p.order {
		t := p.tasks[id]
		if t.FrameCount < frame-GCHorizon && t.Result.RefCount == 0 {
			delete(p.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept
	return removed
}

// Clear drops every task, including the gather and find-by-label tasks.
func (p *Pool) Clear() {
	p.tasks = make(map[core.ID]*Task)
	p.order = nil
	p.Gather.Clear()
	p.FindByLabel.Clear()
}

// ItemAdd is called when the GUI library lays out item id inside window.
// It resolves the structural part of a matching task and feeds the gather
// task.
func (p *Pool) ItemAdd(frame int, window core.Window, id core.ID, rect core.Rect) {
	if id == 0 || window == nil {
		return
	}

	if t, ok := p.tasks[id]; ok {
		fillStructural(&t.Result, frame, window, id, rect)
	}

	p.Gather.itemAdd(frame, window, id, rect)
}

// ItemInfo is called with the status of item id after ItemAdd. label may be
// empty.
func (p *Pool) ItemInfo(frame int, window core.Window, id core.ID, label string, flags core.ItemStatusFlags) {
	if id == 0 {
		return
	}

	if t, ok := p.tasks[id]; ok {
		t.Result.TimestampStatus = frame
		t.Result.StatusFlags = flags
		if label != "" {
			t.Result.DebugLabel = label
		}
	}

	p.Gather.itemInfo(frame, id, label, flags)

	if window != nil {
		p.FindByLabel.itemInfo(window, id, label, flags)
	}
}

// fillStructural copies what the item-added hook knows about an item.
// RectClipped is clipped against the window first and the item second so
// it always lies inside RectFull.
func fillStructural(info *core.ItemInfo, frame int, window core.Window, id core.ID, rect core.Rect) {
	stack := window.IDStack()
	info.ID = id
	info.Window = window
	info.NavLayer = window.NavLayerCurrent()
	info.TimestampMain = frame
	info.RectFull = rect
	info.RectClipped = rect.ClipWithFull(window.ClipRect()).ClipWithFull(rect)
	if len(stack) > 0 {
		info.ParentID = stack[len(stack)-1]
	}
}
