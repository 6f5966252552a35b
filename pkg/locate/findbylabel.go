package locate

import (
	"strings"

	"github.com/devicelab-dev/imtest/pkg/core"
	"github.com/devicelab-dev/imtest/pkg/hash"
)

// FindByLabelTask searches for an item whose label path ends with Suffix
// anywhere below PrefixID. It backs "**/" wildcard references.
type FindByLabelTask struct {
	PrefixID    core.ID
	Suffix      string // Decorated path relative to the item's ancestors, e.g. "Node/Label"
	SuffixDepth int    // Number of segments in Suffix
	LastItem    string // Last segment of Suffix, compared with item labels
	FilterFlags core.ItemStatusFlags

	OutItemID core.ID
}

// Start arms the task. It returns false when suffix is empty.
func (f *FindByLabelTask) Start(prefixID core.ID, suffix string, filter core.ItemStatusFlags) bool {
	segments := SplitPath(suffix)
	if len(segments) == 0 {
		return false
	}
	*f = FindByLabelTask{
		PrefixID:    prefixID,
		Suffix:      suffix,
		SuffixDepth: len(segments),
		LastItem:    Unescape(segments[len(segments)-1]),
		FilterFlags: filter,
	}
	return true
}

// Active reports whether a search is armed and unresolved.
func (f *FindByLabelTask) Active() bool { return f.LastItem != "" && f.OutItemID == 0 }

// Clear disarms the task.
func (f *FindByLabelTask) Clear() {
	*f = FindByLabelTask{}
}

func (f *FindByLabelTask) itemInfo(window core.Window, id core.ID, label string, flags core.ItemStatusFlags) {
	if !f.Active() || label == "" {
		return
	}
	if f.FilterFlags != 0 && !flags.HasAny(f.FilterFlags) {
		return
	}
	if label != f.LastItem {
		return
	}

	stack := window.IDStack()
	base := len(stack) - f.SuffixDepth
	if base < 0 {
		return
	}
	if hash.DecoratedPath(f.Suffix, stack[base]) != id {
		return
	}
	if !f.prefixMatches(window, stack[:base+1]) {
		return
	}
	f.OutItemID = id
}

// prefixMatches checks that PrefixID is an ancestor of the candidate,
// either in the ID stack or as one of the windows containing it.
func (f *FindByLabelTask) prefixMatches(window core.Window, ancestors []core.ID) bool {
	if f.PrefixID == 0 {
		return true
	}
	for _, id := range ancestors {
		if id == f.PrefixID {
			return true
		}
	}
	for w := window; w != nil; w = w.ParentWindow() {
		if w.ID() == f.PrefixID {
			return true
		}
	}
	return false
}

// SplitPath splits a decorated path on unescaped '/' and drops empty
// segments. Escapes are preserved.
func SplitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '\\':
			i++
		case '/':
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}

// Unescape removes the backslash escapes from a path segment.
func Unescape(segment string) string {
	if !strings.Contains(segment, `\`) {
		return segment
	}
	var b strings.Builder
	for i := 0; i < len(segment); i++ {
		if segment[i] == '\\' && i+1 < len(segment) {
			i++
		}
		b.WriteByte(segment[i])
	}
	return b.String()
}
