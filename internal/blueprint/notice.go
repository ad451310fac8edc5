package blueprint

import (
	"fmt"

	"github.com/l1jgo/draftsman/internal/core/event"
)

// Notice is a non-fatal condition raised alongside a completed operation.
type Notice interface {
	Notice() string
}

type OverlapNotice struct {
	Entity *Entity
	Other  *Entity
}

func (n OverlapNotice) Notice() string {
	return fmt.Sprintf("%s at %v overlaps %s at %v",
		n.Entity.Name(), n.Entity.GlobalPosition(), n.Other.Name(), n.Other.GlobalPosition())
}

type ConnectionDistanceNotice struct {
	A, B     *Entity
	Distance float64
	Reach    float64
}

func (n ConnectionDistanceNotice) Notice() string {
	return fmt.Sprintf("connection between %s and %s spans %.2f tiles, reach is %.2f",
		n.A.Name(), n.B.Name(), n.Distance, n.Reach)
}

type ConnectionSideNotice struct {
	Entity *Entity
	Side   int
}

func (n ConnectionSideNotice) Notice() string {
	return fmt.Sprintf("%s has no connection side %d", n.Entity.Name(), n.Side)
}

type AlignmentNotice struct {
	Group  *Group
	DX, DY int
}

func (n AlignmentNotice) Notice() string {
	return fmt.Sprintf("translating double-grid group %q by (%d, %d) breaks rail alignment",
		n.Group.Name, n.DX, n.DY)
}

type HiddenEntityNotice struct {
	Entity *Entity
}

func (n HiddenEntityNotice) Notice() string {
	return fmt.Sprintf("%s is hidden from normal placement", n.Entity.Name())
}

// DirectionIgnoredNotice reports a heading that was dropped because the
// entity's kind cannot turn.
type DirectionIgnoredNotice struct {
	Entity    *Entity
	Direction Direction
}

func (n DirectionIgnoredNotice) Notice() string {
	return fmt.Sprintf("%s cannot face %v, direction ignored", n.Entity.Name(), n.Direction)
}

// Raise queues n on the notice bus of g's tree, for conditions found by
// code outside the group itself.
func Raise[N Notice](g *Group, n N) { emit(g, n) }

func emit[N Notice](g *Group, n N) {
	root := g.root()
	event.Emit(root.notices(), n)
	if root.onNotice != nil {
		root.onNotice(n)
	}
}
