package monitor

import "fmt"

// Rect is a placement in either device or logical pixels.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Size is a physical extent in millimetres.
type Size struct {
	Width, Height int
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Within reports whether r lies entirely inside outer. An empty rect is
// within anything.
func (r Rect) Within(outer Rect) bool {
	if r.Empty() {
		return true
	}
	return r.X >= outer.X && r.Y >= outer.Y &&
		r.X+r.Width <= outer.X+outer.Width &&
		r.Y+r.Height <= outer.Y+outer.Height
}

// Intersect returns the overlap of r and o. When they do not overlap the
// result is a zero-sized rect anchored at r's origin, so it is still within r.
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.Width, o.X+o.Width)
	y2 := min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{X: r.X, Y: r.Y}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Scaled divides every component by div, flooring towards negative infinity
// so that monitors left of or above the origin stay adjacent.
func (r Rect) Scaled(div int) Rect {
	if div <= 1 {
		return r
	}
	return Rect{
		X:      floorDiv(r.X, div),
		Y:      floorDiv(r.Y, div),
		Width:  floorDiv(r.Width, div),
		Height: floorDiv(r.Height, div),
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
