package core

// ItemInfo is what the engine knows about an item it was asked to locate.
// It is filled asynchronously by the item hooks while the GUI library
// submits the item.
type ItemInfo struct {
	ID       ID
	ParentID ID

	// Window is a weak reference into the GUI library's window list.
	Window Window

	NavLayer NavLayer
	Depth    int // Nesting below the gather parent (gather results only)

	TimestampMain   int // Frame the item-added hook last saw the item
	TimestampStatus int // Frame the item-info hook last saw the item

	RectFull    Rect
	RectClipped Rect // Visible part of RectFull, always inside it

	StatusFlags ItemStatusFlags
	DebugLabel  string

	// RefCount keeps the owning locate task alive across yields.
	RefCount int
}

// IsValid reports whether the info refers to an item that was found.
func (i *ItemInfo) IsValid() bool {
	return i != nil && i.ID != 0
}
