// Package core provides the shared model for the test engine: identifiers,
// geometry, input structures, the boundary interfaces a GUI library
// implements, and the status/error taxonomy used by tests.
package core

import "math"

// ID identifies a widget or window. It is the CRC32 checksum computed by
// the GUI library's identifier stack (see package hash).
type ID = uint32

// Axis selects the horizontal or vertical component of a vector.
type Axis int

// Axis values
const (
	AxisX Axis = iota
	AxisY
)

// String returns "X" or "Y".
func (a Axis) String() string {
	if a == AxisX {
		return "X"
	}
	return "Y"
}

// Vec2 is a 2D position or size in screen space.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v*s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Length returns the euclidean length of v.
func (v Vec2) Length() float64 { return math.Hypot(v.X, v.Y) }

// Get returns the component for axis.
func (v Vec2) Get(axis Axis) float64 {
	if axis == AxisX {
		return v.X
	}
	return v.Y
}

// Rect is an axis aligned rectangle [Min, Max).
type Rect struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// RectFromPosSize builds a rectangle from its top-left corner and size.
func RectFromPosSize(pos, size Vec2) Rect {
	return Rect{Min: pos, Max: pos.Add(size)}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Size returns the extent as a vector.
func (r Rect) Size() Vec2 { return Vec2{r.Width(), r.Height()} }

// Center returns the midpoint.
func (r Rect) Center() Vec2 {
	return Vec2{(r.Min.X + r.Max.X) * 0.5, (r.Min.Y + r.Max.Y) * 0.5}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.Y >= r.Min.Y && p.X < r.Max.X && p.Y < r.Max.Y
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.Min.X >= r.Min.X && o.Min.Y >= r.Min.Y && o.Max.X <= r.Max.X && o.Max.Y <= r.Max.Y
}

// Overlaps reports whether r and o intersect.
func (r Rect) Overlaps(o Rect) bool {
	return o.Min.Y < r.Max.Y && o.Max.Y > r.Min.Y && o.Min.X < r.Max.X && o.Max.X > r.Min.X
}

// Expand grows r by amount on every side. Negative values shrink it.
func (r Rect) Expand(amount float64) Rect {
	return Rect{
		Min: Vec2{r.Min.X - amount, r.Min.Y - amount},
		Max: Vec2{r.Max.X + amount, r.Max.Y + amount},
	}
}

// Translate moves r by d.
func (r Rect) Translate(d Vec2) Rect {
	return Rect{Min: r.Min.Add(d), Max: r.Max.Add(d)}
}

// ClipWithFull clamps both corners of r into clip. The result is always
// inside clip and may be empty.
func (r Rect) ClipWithFull(clip Rect) Rect {
	return Rect{
		Min: Vec2{clamp(r.Min.X, clip.Min.X, clip.Max.X), clamp(r.Min.Y, clip.Min.Y, clip.Max.Y)},
		Max: Vec2{clamp(r.Max.X, clip.Min.X, clip.Max.X), clamp(r.Max.Y, clip.Min.Y, clip.Max.Y)},
	}
}

// IsEmpty reports whether r has no area.
func (r Rect) IsEmpty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
