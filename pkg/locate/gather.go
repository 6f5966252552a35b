package locate

import (
	"github.com/devicelab-dev/imtest/pkg/core"
)

// ItemList is an ordered set of item infos keyed by ID.
type ItemList struct {
	items []core.ItemInfo
	index map[core.ID]int
}

// NewItemList creates an empty list.
func NewItemList() *ItemList {
	return &ItemList{index: make(map[core.ID]int)}
}

// Len returns the number of items.
func (l *ItemList) Len() int { return len(l.items) }

// At returns the n-th item in insertion order.
func (l *ItemList) At(n int) *core.ItemInfo { return &l.items[n] }

// Items returns the backing slice. It must not be kept across an Add.
func (l *ItemList) Items() []core.ItemInfo { return l.items }

// GetByID returns the item with the given id, or nil.
func (l *ItemList) GetByID(id core.ID) *core.ItemInfo {
	if n, ok := l.index[id]; ok {
		return &l.items[n]
	}
	return nil
}

// Add appends info unless an item with the same id is already present.
// It returns the stored entry.
func (l *ItemList) Add(info core.ItemInfo) *core.ItemInfo {
	if existing := l.GetByID(info.ID); existing != nil {
		return existing
	}
	if l.index == nil {
		l.index = make(map[core.ID]int)
	}
	l.index[info.ID] = len(l.items)
	l.items = append(l.items, info)
	return &l.items[len(l.items)-1]
}

// Reset empties the list.
func (l *ItemList) Reset() {
	l.items = l.items[:0]
	l.index = make(map[core.ID]int)
}

// GatherTask collects every item submitted below a parent ID, up to a
// maximum depth in the ID stack.
type GatherTask struct {
	ParentID core.ID
	MaxDepth int
	Out      *ItemList

	lastItem core.ID
}

// Start begins collecting items under parentID into out.
func (g *GatherTask) Start(parentID core.ID, maxDepth int, out *ItemList) {
	g.ParentID = parentID
	g.MaxDepth = maxDepth
	g.Out = out
	g.lastItem = 0
}

// Active reports whether a gather is in progress.
func (g *GatherTask) Active() bool { return g.ParentID != 0 }

// Clear stops the gather.
func (g *GatherTask) Clear() {
	*g = GatherTask{}
}

func (g *GatherTask) itemAdd(frame int, window core.Window, id core.ID, rect core.Rect) {
	if !g.Active() || g.Out == nil {
		return
	}

	stack := window.IDStack()
	depth := -1
	maxDepth := len(stack)
	if g.MaxDepth > 0 && g.MaxDepth < maxDepth {
		maxDepth = g.MaxDepth
	}
	for n := 0; n < maxDepth; n++ {
		if stack[len(stack)-1-n] == g.ParentID {
			depth = n
			break
		}
	}
	if depth < 0 {
		return
	}

	var info core.ItemInfo
	fillStructural(&info, frame, window, id, rect)
	info.Depth = depth
	info.TimestampStatus = -1
	g.Out.Add(info)
	g.lastItem = id
}

func (g *GatherTask) itemInfo(frame int, id core.ID, label string, flags core.ItemStatusFlags) {
	if g.Out == nil || g.lastItem != id {
		return
	}
	if info := g.Out.GetByID(id); info != nil {
		info.TimestampStatus = frame
		info.StatusFlags = flags
		if label != "" {
			info.DebugLabel = label
		}
	}
}
