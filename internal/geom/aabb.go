package geom

import (
	"fmt"
	"math"
)

// AABB is an axis-aligned bounding box. Boxes are half-open for overlap and
// point tests: [Min, Max). A box with zero width or height is degenerate and
// only contains its own corner.
type AABB struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Box builds an AABB from two corners in any order.
func Box(x1, y1, x2, y2 float64) AABB {
	return AABB{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// BoxAround builds a box of the given size centred on c.
func BoxAround(c Vector, width, height float64) AABB {
	return AABB{
		MinX: c.X - width/2,
		MinY: c.Y - height/2,
		MaxX: c.X + width/2,
		MaxY: c.Y + height/2,
	}
}

func (b AABB) Min() Vector     { return Vector{b.MinX, b.MinY} }
func (b AABB) Max() Vector     { return Vector{b.MaxX, b.MaxY} }
func (b AABB) Width() float64  { return b.MaxX - b.MinX }
func (b AABB) Height() float64 { return b.MaxY - b.MinY }
func (b AABB) Center() Vector {
	return Vector{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
}

func (b AABB) degenerate() bool { return b.MaxX <= b.MinX || b.MaxY <= b.MinY }

func (b AABB) Translate(d Vector) AABB {
	return AABB{b.MinX + d.X, b.MinY + d.Y, b.MaxX + d.X, b.MaxY + d.Y}
}

// Union returns the smallest box containing both.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Overlaps reports a positive-area intersection. Touching edges do not overlap.
func (b AABB) Overlaps(o AABB) bool {
	if b.degenerate() {
		return o.ContainsPoint(b.Min())
	}
	if o.degenerate() {
		return b.ContainsPoint(o.Min())
	}
	return b.MinX < o.MaxX && o.MinX < b.MaxX && b.MinY < o.MaxY && o.MinY < b.MaxY
}

// ContainsPoint tests p against [Min, Max).
func (b AABB) ContainsPoint(p Vector) bool {
	if b.degenerate() {
		return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
	}
	return p.X >= b.MinX && p.X < b.MaxX && p.Y >= b.MinY && p.Y < b.MaxY
}

// IntersectsCircle reports whether the closed box comes within r of c.
func (b AABB) IntersectsCircle(c Vector, r float64) bool {
	nx := math.Max(b.MinX, math.Min(c.X, b.MaxX))
	ny := math.Max(b.MinY, math.Min(c.Y, b.MaxY))
	return math.Hypot(c.X-nx, c.Y-ny) <= r
}

// RotateQuarter rotates the box about the origin by n clockwise quarter turns.
func (b AABB) RotateQuarter(n int) AABB {
	p1 := b.Min().RotateQuarter(n)
	p2 := b.Max().RotateQuarter(n)
	return Box(p1.X, p1.Y, p2.X, p2.Y)
}

// FlipX mirrors the box across the vertical axis; FlipY across the horizontal one.
func (b AABB) FlipX() AABB { return AABB{-b.MaxX, b.MinY, -b.MinX, b.MaxY} }
func (b AABB) FlipY() AABB { return AABB{b.MinX, -b.MaxY, b.MaxX, -b.MinY} }

func (b AABB) String() string {
	return fmt.Sprintf("[(%g, %g), (%g, %g)]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}
