package geom

// CollisionSet is a multi-shape footprint. An empty set has no footprint.
type CollisionSet struct {
	Shapes []AABB `json:"shapes,omitempty"`
}

// Set builds a CollisionSet from the given boxes.
func Set(shapes ...AABB) CollisionSet {
	if len(shapes) == 0 {
		return CollisionSet{}
	}
	out := make([]AABB, len(shapes))
	copy(out, shapes)
	return CollisionSet{Shapes: out}
}

func (s CollisionSet) Empty() bool { return len(s.Shapes) == 0 }

// BoundingBox returns the union of all shapes, or false when the set is empty.
func (s CollisionSet) BoundingBox() (AABB, bool) {
	if len(s.Shapes) == 0 {
		return AABB{}, false
	}
	bb := s.Shapes[0]
	for _, sh := range s.Shapes[1:] {
		bb = bb.Union(sh)
	}
	return bb, true
}

func (s CollisionSet) mapShapes(fn func(AABB) AABB) CollisionSet {
	if len(s.Shapes) == 0 {
		return CollisionSet{}
	}
	out := make([]AABB, len(s.Shapes))
	for i, sh := range s.Shapes {
		out[i] = fn(sh)
	}
	return CollisionSet{Shapes: out}
}

func (s CollisionSet) Translate(d Vector) CollisionSet {
	return s.mapShapes(func(b AABB) AABB { return b.Translate(d) })
}

func (s CollisionSet) RotateQuarter(n int) CollisionSet {
	return s.mapShapes(func(b AABB) AABB { return b.RotateQuarter(n) })
}

func (s CollisionSet) FlipX() CollisionSet { return s.mapShapes(AABB.FlipX) }
func (s CollisionSet) FlipY() CollisionSet { return s.mapShapes(AABB.FlipY) }

// Merge returns a set holding the shapes of both sets.
func (s CollisionSet) Merge(o CollisionSet) CollisionSet {
	out := make([]AABB, 0, len(s.Shapes)+len(o.Shapes))
	out = append(out, s.Shapes...)
	out = append(out, o.Shapes...)
	if len(out) == 0 {
		return CollisionSet{}
	}
	return CollisionSet{Shapes: out}
}

// Overlaps reports whether any shape of s overlaps any shape of o.
func (s CollisionSet) Overlaps(o CollisionSet) bool {
	for _, a := range s.Shapes {
		for _, b := range o.Shapes {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

func (s CollisionSet) OverlapsBox(b AABB) bool {
	for _, a := range s.Shapes {
		if a.Overlaps(b) {
			return true
		}
	}
	return false
}

func (s CollisionSet) ContainsPoint(p Vector) bool {
	for _, a := range s.Shapes {
		if a.ContainsPoint(p) {
			return true
		}
	}
	return false
}

func (s CollisionSet) IntersectsCircle(c Vector, r float64) bool {
	for _, a := range s.Shapes {
		if a.IntersectsCircle(c, r) {
			return true
		}
	}
	return false
}

// Equal compares shapes in order.
func (s CollisionSet) Equal(o CollisionSet) bool {
	if len(s.Shapes) != len(o.Shapes) {
		return false
	}
	for i := range s.Shapes {
		if s.Shapes[i] != o.Shapes[i] {
			return false
		}
	}
	return true
}
