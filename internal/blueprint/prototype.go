package blueprint

import (
	"fmt"

	"github.com/l1jgo/draftsman/internal/geom"
)

// Direction uses the 8-way numbering: 0 is north, increasing clockwise.
// Four-way kinds only take even values.
type Direction int

const (
	North Direction = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
)

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case Northeast:
		return "northeast"
	case East:
		return "east"
	case Southeast:
		return "southeast"
	case South:
		return "south"
	case Southwest:
		return "southwest"
	case West:
		return "west"
	case Northwest:
		return "northwest"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// quarters returns how many quarter turns the footprint is rotated by.
func (d Direction) quarters() int { return int(d) / 2 }

// RotationClass tells how an entity kind may be turned.
type RotationClass int

const (
	RotationNone RotationClass = iota
	RotationFour
	RotationEight
	RotationOrientation // continuous [0,1), used by rolling stock
)

// Alignment is the grid an entity kind snaps to.
type Alignment int

const (
	AlignSingle Alignment = iota
	AlignDouble           // rails and rail signals sit on a 2x2 grid
)

type PowerKind int

const (
	PowerNone PowerKind = iota
	PowerPole
	PowerSwitch
)

type CircuitSpec struct {
	Connectable bool
	Dual        bool // has an output side 2, e.g. combinators
	Reach       float64
}

type PowerSpec struct {
	Kind  PowerKind
	Reach float64
}

// Prototype is the static description of one entity kind.
type Prototype struct {
	Name       string
	TileWidth  int
	TileHeight int
	// Collision is relative to the entity centre while facing north.
	Collision geom.CollisionSet
	Alignment Alignment
	Rotation  RotationClass
	Flippable bool
	Hidden    bool
	Circuit   CircuitSpec
	Power     PowerSpec
}

// size returns the tile footprint after turning by the given quarters.
func (p *Prototype) size(quarters int) (w, h float64) {
	w, h = float64(p.TileWidth), float64(p.TileHeight)
	if quarters%2 != 0 {
		w, h = h, w
	}
	return w, h
}

func (p *Prototype) validDirection(d Direction) bool {
	if d < North || d > Northwest {
		return false
	}
	switch p.Rotation {
	case RotationNone, RotationOrientation:
		return d == North
	case RotationFour:
		return d%2 == 0
	}
	return true
}

// Catalog is the narrow view of the prototype tables the document model needs.
// Mergable carries only the kind-specific policy; positional and directional
// agreement is checked by the caller first.
type Catalog interface {
	Entity(name string) (*Prototype, bool)
	Tile(name string) bool
	Mergable(existing, incoming *Entity) bool
}
