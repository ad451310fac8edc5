package blueprint

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/draftsman/internal/core/event"
	"github.com/l1jgo/draftsman/internal/geom"
	"github.com/l1jgo/draftsman/internal/spatial"
)

// Group is a named, positioned collection of entities and nested groups.
// Only the root of a tree keeps a spatial index; it covers every entity
// below it in root-frame coordinates.
type Group struct {
	nodeBase
	Name string
	Type string

	cat      Catalog
	log      *zap.Logger
	entities *Container
	cellSize int
	document bool

	// roots only
	index    *spatial.Index[*Entity]
	bus      *event.Bus
	onSever  func(*Entity)
	onNotice func(Notice)
}

type GroupOption func(*Group)

func GroupID(id string) GroupOption { return func(g *Group) { g.id = id } }

func GroupAt(x, y float64) GroupOption {
	return func(g *Group) { g.position = geom.Vec(x, y) }
}

func GroupType(t string) GroupOption { return func(g *Group) { g.Type = t } }

// CellSize sets the bucket size of the spatial index used while the group is a root.
func CellSize(n int) GroupOption { return func(g *Group) { g.cellSize = n } }

func GroupLogger(log *zap.Logger) GroupOption {
	return func(g *Group) {
		if log != nil {
			g.log = log
		}
	}
}

func NewGroup(cat Catalog, name string, opts ...GroupOption) *Group {
	g := &Group{
		Name: name,
		Type: "group",
		cat:  cat,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.entities = newContainer(g)
	return g
}

func (g *Group) Entities() *Container { return g.entities }
func (g *Group) Catalog() Catalog     { return g.cat }

// SetPosition moves a root group. Nested groups are positioned by their parent.
func (g *Group) SetPosition(v geom.Vector) error {
	if g.parent != nil {
		return ErrNestedPosition
	}
	g.position = v
	return nil
}

func (g *Group) SetID(id string) error {
	if g.parent != nil {
		return g.parent.entities.rekey(g, id)
	}
	g.id = id
	return nil
}

// Get follows a key path from this group's children.
func (g *Group) Get(keys ...Key) (Node, error) { return g.entities.Get(keys...) }

// Entity is Get narrowed to an entity result.
func (g *Group) Entity(keys ...Key) (*Entity, error) {
	n, err := g.entities.Get(keys...)
	if err != nil {
		return nil, err
	}
	e, ok := n.(*Entity)
	if !ok {
		return nil, fmt.Errorf("%v is a group: %w", keys, ErrNotFound)
	}
	return e, nil
}

func (g *Group) root() *Group {
	r := g
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Flatten returns every entity below g in pre-order.
func (g *Group) Flatten() []*Entity {
	var out []*Entity
	for _, n := range g.entities.items {
		switch t := n.(type) {
		case *Entity:
			out = append(out, t)
		case *Group:
			out = append(out, t.Flatten()...)
		}
	}
	return out
}

func leavesOf(n Node) []*Entity {
	switch t := n.(type) {
	case *Entity:
		return []*Entity{t}
	case *Group:
		return t.Flatten()
	}
	return nil
}

// offsetWithin is the position of leaf in the frame top's parent sees it in.
func offsetWithin(leaf *Entity, top Node) geom.Vector {
	p := leaf.position
	if Node(leaf) == top {
		return p
	}
	for g := leaf.parent; g != nil; g = g.parent {
		p = p.Add(g.position)
		if Node(g) == top {
			break
		}
	}
	return p
}

// CollisionSet is the union of every entity footprint, relative to the group origin.
func (g *Group) CollisionSet() geom.CollisionSet {
	var cs geom.CollisionSet
	for _, e := range g.Flatten() {
		cs = cs.Merge(e.footprintAt(offsetWithin(e, g).Sub(g.position)))
	}
	return cs
}

// WorldBoundingBox bounds the group's entities in global coordinates.
// It reports false for a group with no entities.
func (g *Group) WorldBoundingBox() (geom.AABB, bool) {
	return g.CollisionSet().Translate(g.GlobalPosition()).BoundingBox()
}

// DoubleGridAligned reports whether any entity below g sits on the rail grid.
func (g *Group) DoubleGridAligned() bool {
	for _, e := range g.Flatten() {
		if e.DoubleGridAligned() {
			return true
		}
	}
	return false
}

// Flippable reports whether every entity below g can be mirrored.
func (g *Group) Flippable() bool {
	for _, e := range g.Flatten() {
		if !e.proto.Flippable {
			return false
		}
	}
	return true
}

// entityIndex returns the root's index, building it on first use.
func (g *Group) entityIndex() *spatial.Index[*Entity] {
	if g.index == nil {
		g.index = spatial.New[*Entity](g.cellSize)
		for _, e := range g.Flatten() {
			g.indexLeaf(e)
		}
	}
	return g.index
}

// indexLeaf (re)registers e in g's index. g must be e's root.
func (g *Group) indexLeaf(e *Entity) {
	if g.index == nil {
		return
	}
	anchor := e.rootFrame()
	g.index.Add(e, anchor, e.footprintAt(anchor))
}

func (g *Group) reindexSubtree() {
	root := g.root()
	if root.index == nil {
		return
	}
	for _, e := range g.Flatten() {
		root.indexLeaf(e)
	}
}

// admit registers the entities of a freshly attached node, raising overlap
// and hidden-placement notices. g is the root.
func (g *Group) admit(idx *spatial.Index[*Entity], n Node) {
	leaves := leavesOf(n)
	fresh := make(map[*Entity]struct{}, len(leaves))
	for _, e := range leaves {
		fresh[e] = struct{}{}
	}
	for _, e := range leaves {
		anchor := e.rootFrame()
		shape := e.footprintAt(anchor)
		if e.proto.Hidden {
			emit(g, HiddenEntityNotice{Entity: e})
		}
		if other := overlapping(idx, shape, fresh); other != nil {
			emit(g, OverlapNotice{Entity: e, Other: other})
			g.log.Debug("overlapping entity",
				zap.String("name", e.Name()), zap.Stringer("position", anchor))
		}
	}
	for _, e := range leaves {
		anchor := e.rootFrame()
		idx.Add(e, anchor, e.footprintAt(anchor))
	}
}

func overlapping(idx *spatial.Index[*Entity], shape geom.CollisionSet, skip map[*Entity]struct{}) *Entity {
	bb, ok := shape.BoundingBox()
	if !ok {
		return nil
	}
	for _, cand := range idx.InArea(bb, 0) {
		if _, self := skip[cand]; self {
			continue
		}
		if _, cs, _ := idx.Footprint(cand); cs.Overlaps(shape) {
			return cand
		}
	}
	return nil
}

// EntitiesOnPoint queries the tree's index. Coordinates are in the root's frame.
func (g *Group) EntitiesOnPoint(p geom.Vector, limit int) []*Entity {
	return g.root().entityIndex().OnPoint(p, limit)
}

func (g *Group) EntitiesInRadius(radius float64, center geom.Vector, limit int) []*Entity {
	return g.root().entityIndex().InRadius(radius, center, limit)
}

func (g *Group) EntitiesInArea(area geom.AABB, limit int) []*Entity {
	return g.root().entityIndex().InArea(area, limit)
}

func (g *Group) notices() *event.Bus {
	if g.bus == nil {
		g.bus = event.NewBus()
	}
	return g.bus
}

// Notices drains the advisories raised in this tree since the last call.
func (g *Group) Notices() []Notice {
	evs := g.root().notices().Flush()
	out := make([]Notice, 0, len(evs))
	for _, ev := range evs {
		if n, ok := ev.(Notice); ok {
			out = append(out, n)
		}
	}
	return out
}

func (g *Group) String() string {
	return fmt.Sprintf("<Group %q at %v, %d children>", g.Name, g.position, g.entities.Len())
}
