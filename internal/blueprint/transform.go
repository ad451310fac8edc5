package blueprint

import (
	"fmt"

	"github.com/l1jgo/draftsman/internal/geom"
)

// Translate shifts every direct child by whole tiles. Shifting a group that
// holds rail-grid entities by an odd amount still applies, with a notice.
func (g *Group) Translate(dx, dy int) {
	d := geom.Vec(float64(dx), float64(dy))
	for _, n := range g.entities.items {
		b := n.base()
		b.position = b.position.Add(d)
	}
	if (dx%2 != 0 || dy%2 != 0) && g.DoubleGridAligned() {
		emit(g, AlignmentNotice{Group: g, DX: dx, DY: dy})
	}
	g.reindexSubtree()
}

// Rotate turns the contents about the group origin by steps eighth-turns
// clockwise. Only quarter turns are supported, so steps must be even.
func (g *Group) Rotate(steps int) error {
	if steps%2 != 0 {
		return fmt.Errorf("rotate by %d: %w", steps, ErrRotation)
	}
	g.rotate(steps)
	g.reindexSubtree()
	return nil
}

func (g *Group) rotate(steps int) {
	q := steps / 2
	for _, n := range g.entities.items {
		b := n.base()
		b.position = b.position.RotateQuarter(q)
		switch t := n.(type) {
		case *Entity:
			t.rotate(steps)
		case *Group:
			t.rotate(steps)
		}
	}
}

func (e *Entity) rotate(steps int) {
	switch e.proto.Rotation {
	case RotationFour, RotationEight:
		e.direction = Direction(((int(e.direction)+steps)%8 + 8) % 8)
	case RotationOrientation:
		e.orientation = normalizeOrientation(e.orientation + float64(steps)/8)
	}
}

type FlipDirection int

const (
	FlipHorizontal FlipDirection = iota
	FlipVertical
)

func (f FlipDirection) String() string {
	switch f {
	case FlipHorizontal:
		return "horizontal"
	case FlipVertical:
		return "vertical"
	}
	return fmt.Sprintf("FlipDirection(%d)", int(f))
}

// ParseFlip accepts "horizontal" or "vertical".
func ParseFlip(s string) (FlipDirection, error) {
	switch s {
	case "horizontal":
		return FlipHorizontal, nil
	case "vertical":
		return FlipVertical, nil
	}
	return 0, fmt.Errorf("flip %q: %w", s, ErrInvalidArgument)
}

// Flip mirrors the contents across the group's vertical (horizontal flip)
// or horizontal (vertical flip) axis.
func (g *Group) Flip(dir FlipDirection) error {
	if dir != FlipHorizontal && dir != FlipVertical {
		return fmt.Errorf("flip %v: %w", dir, ErrInvalidArgument)
	}
	for _, e := range g.Flatten() {
		if !e.proto.Flippable {
			return fmt.Errorf("%s cannot be flipped: %w", e.Name(), ErrInvalidArgument)
		}
	}
	g.flip(dir)
	g.reindexSubtree()
	return nil
}

func (g *Group) flip(dir FlipDirection) {
	for _, n := range g.entities.items {
		b := n.base()
		if dir == FlipHorizontal {
			b.position = b.position.FlipX()
		} else {
			b.position = b.position.FlipY()
		}
		switch t := n.(type) {
		case *Entity:
			t.flip(dir)
		case *Group:
			t.flip(dir)
		}
	}
}

func (e *Entity) flip(dir FlipDirection) {
	switch e.proto.Rotation {
	case RotationFour, RotationEight:
		d := int(e.direction)
		if dir == FlipHorizontal {
			e.direction = Direction((8 - d) % 8)
		} else {
			e.direction = Direction((12 - d) % 8)
		}
	case RotationOrientation:
		if dir == FlipHorizontal {
			e.orientation = normalizeOrientation(1 - e.orientation)
		} else {
			e.orientation = normalizeOrientation(0.5 - e.orientation)
		}
	}
}
