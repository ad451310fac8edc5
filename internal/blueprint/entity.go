package blueprint

import (
	"fmt"
	"math"

	"github.com/l1jgo/draftsman/internal/core/ecs"
	"github.com/l1jgo/draftsman/internal/geom"
)

// Node is anything a Container can hold: an *Entity or a *Group.
type Node interface {
	ID() string
	Parent() *Group
	Handle() ecs.EntityID
	Position() geom.Vector
	GlobalPosition() geom.Vector
	base() *nodeBase
}

type nodeBase struct {
	id       string
	parent   *Group
	handle   ecs.EntityID // issued by the parent container's pool
	position geom.Vector  // relative to the parent group's origin
}

func (n *nodeBase) ID() string            { return n.id }
func (n *nodeBase) Parent() *Group        { return n.parent }
func (n *nodeBase) Handle() ecs.EntityID  { return n.handle }
func (n *nodeBase) Position() geom.Vector { return n.position }
func (n *nodeBase) base() *nodeBase       { return n }

// GlobalPosition sums local positions up the ancestor chain.
func (n *nodeBase) GlobalPosition() geom.Vector {
	p := n.position
	for g := n.parent; g != nil; g = g.parent {
		p = p.Add(g.position)
	}
	return p
}

// rootFrame is the position in the coordinate frame of the tree root, which
// is where the root's spatial index lives. A root itself sits at its own origin.
func (n *nodeBase) rootFrame() geom.Vector {
	if n.parent == nil {
		return geom.Vector{}
	}
	p := n.position
	for g := n.parent; g.parent != nil; g = g.parent {
		p = p.Add(g.position)
	}
	return p
}

type WireColor string

const (
	Red   WireColor = "red"
	Green WireColor = "green"
)

// ParseWireColor validates a wire color name.
func ParseWireColor(s string) (WireColor, error) {
	switch WireColor(s) {
	case Red, Green:
		return WireColor(s), nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrInvalidWireType)
}

// CircuitLink is one circuit wire end. CircuitID is the side on the target.
type CircuitLink struct {
	Target    Association
	CircuitID int
}

type circuitSlot struct {
	side  int
	color WireColor
}

// Entity is one placed object. Its position is the centre of its footprint,
// relative to the origin of the group that holds it.
type Entity struct {
	nodeBase
	proto       *Prototype
	direction   Direction
	orientation float64

	Attributes map[string]any
	Tags       map[string]any

	neighbours []Association
	circuits   map[circuitSlot][]CircuitLink
	copper     map[int][]Association

	gen uint32 // bumped on every detach; stale associations compare against it
}

type entityConfig struct {
	pos         *geom.Vector
	tile        *geom.Point
	direction   Direction
	orientation *float64
	id          string
	attrs       map[string]any
	tags        map[string]any
}

type EntityOption func(*entityConfig)

// At places the entity's centre at (x, y).
func At(x, y float64) EntityOption {
	return func(c *entityConfig) { v := geom.Vec(x, y); c.pos = &v }
}

// AtTile places the entity's top-left tile at (x, y).
func AtTile(x, y int) EntityOption {
	return func(c *entityConfig) { p := geom.Pt(x, y); c.tile = &p }
}

func Facing(d Direction) EntityOption {
	return func(c *entityConfig) { c.direction = d }
}

func Oriented(o float64) EntityOption {
	return func(c *entityConfig) { c.orientation = &o }
}

func WithID(id string) EntityOption {
	return func(c *entityConfig) { c.id = id }
}

// WithAttributes sets the per-instance attribute bag. The map is copied.
func WithAttributes(m map[string]any) EntityOption {
	return func(c *entityConfig) { c.attrs = m }
}

func WithTags(m map[string]any) EntityOption {
	return func(c *entityConfig) { c.tags = m }
}

// NewEntity builds a detached entity of the named kind. Without a position
// it sits with its top-left tile on the origin.
func NewEntity(cat Catalog, name string, opts ...EntityOption) (*Entity, error) {
	proto, ok := cat.Entity(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidEntity)
	}
	var c entityConfig
	for _, opt := range opts {
		opt(&c)
	}
	if !proto.validDirection(c.direction) {
		return nil, fmt.Errorf("%s facing %v: %w", name, c.direction, ErrInvalidDirection)
	}
	e := &Entity{
		nodeBase:   nodeBase{id: c.id},
		proto:      proto,
		direction:  c.direction,
		Attributes: copyMap(c.attrs),
		Tags:       copyMap(c.tags),
	}
	if c.orientation != nil {
		if proto.Rotation != RotationOrientation {
			return nil, fmt.Errorf("%s has no orientation: %w", name, ErrInvalidDirection)
		}
		e.orientation = normalizeOrientation(*c.orientation)
	}
	switch {
	case c.pos != nil:
		e.position = *c.pos
	case c.tile != nil:
		e.position = e.centerOf(*c.tile)
	default:
		e.position = e.centerOf(geom.Point{})
	}
	return e, nil
}

func normalizeOrientation(o float64) float64 {
	o = math.Mod(o, 1)
	if o < 0 {
		o++
	}
	return o
}

func (e *Entity) Name() string            { return e.proto.Name }
func (e *Entity) Prototype() *Prototype   { return e.proto }
func (e *Entity) Direction() Direction    { return e.direction }
func (e *Entity) Orientation() float64    { return e.orientation }
func (e *Entity) DoubleGridAligned() bool { return e.proto.Alignment == AlignDouble }

func (e *Entity) quarters() int {
	if e.proto.Rotation == RotationOrientation {
		return int(math.Round(e.orientation*4)) % 4
	}
	return e.direction.quarters()
}

func (e *Entity) halfSize() geom.Vector {
	w, h := e.proto.size(e.quarters())
	return geom.Vec(w/2, h/2)
}

func (e *Entity) centerOf(tile geom.Point) geom.Vector {
	return tile.Vector().Add(e.halfSize())
}

// TilePosition is the top-left tile of the footprint, relative to the parent group.
func (e *Entity) TilePosition() geom.Point {
	tl := e.position.Sub(e.halfSize())
	return geom.Pt(int(math.Floor(tl.X+1e-9)), int(math.Floor(tl.Y+1e-9)))
}

// SetPosition moves the entity's centre. Attached entities are re-indexed.
func (e *Entity) SetPosition(v geom.Vector) {
	e.position = v
	e.reindex()
}

func (e *Entity) SetTilePosition(p geom.Point) {
	e.SetPosition(e.centerOf(p))
}

// SetDirection turns the entity in place, keeping its centre.
func (e *Entity) SetDirection(d Direction) error {
	if !e.proto.validDirection(d) {
		return fmt.Errorf("%s facing %v: %w", e.Name(), d, ErrInvalidDirection)
	}
	e.direction = d
	e.reindex()
	return nil
}

func (e *Entity) SetOrientation(o float64) error {
	if e.proto.Rotation != RotationOrientation {
		return fmt.Errorf("%s has no orientation: %w", e.Name(), ErrInvalidDirection)
	}
	e.orientation = normalizeOrientation(o)
	e.reindex()
	return nil
}

// SetID renames the entity, updating its container's key maps.
func (e *Entity) SetID(id string) error {
	if e.parent != nil {
		return e.parent.entities.rekey(e, id)
	}
	e.id = id
	return nil
}

// Footprint returns the collision set in the parent group's frame.
func (e *Entity) Footprint() geom.CollisionSet {
	return e.footprintAt(e.position)
}

func (e *Entity) footprintAt(anchor geom.Vector) geom.CollisionSet {
	return e.proto.Collision.RotateQuarter(e.quarters()).Translate(anchor)
}

func (e *Entity) reindex() {
	if e.parent == nil {
		return
	}
	e.parent.root().indexLeaf(e)
}

// Neighbours returns the power-pole connections.
func (e *Entity) Neighbours() []Association {
	return append([]Association(nil), e.neighbours...)
}

// CircuitLinks returns the wires of one color on one side (1 or 2).
func (e *Entity) CircuitLinks(side int, color WireColor) []CircuitLink {
	return append([]CircuitLink(nil), e.circuits[circuitSlot{side, color}]...)
}

// CopperLinks returns the copper wires on a power-switch side (1 = Cu0, 2 = Cu1).
func (e *Entity) CopperLinks(side int) []Association {
	return append([]Association(nil), e.copper[side]...)
}

// HasConnections reports whether any wire ends at this entity.
func (e *Entity) HasConnections() bool {
	return len(e.neighbours) > 0 || len(e.circuits) > 0 || len(e.copper) > 0
}

// SetNeighbours replaces the pole connections without mirroring them on the
// targets. Decoders use it to restore a document exactly as stored.
func (e *Entity) SetNeighbours(targets []Association) {
	e.neighbours = append([]Association(nil), targets...)
}

func validSide(side int) bool { return side == 1 || side == 2 }

// SetCircuitLinks replaces one circuit slot without mirroring.
func (e *Entity) SetCircuitLinks(side int, color WireColor, links []CircuitLink) error {
	if !validSide(side) {
		return fmt.Errorf("side %d: %w", side, ErrInvalidConnectionSide)
	}
	if _, err := ParseWireColor(string(color)); err != nil {
		return err
	}
	slot := circuitSlot{side, color}
	if len(links) == 0 {
		delete(e.circuits, slot)
		return nil
	}
	if e.circuits == nil {
		e.circuits = make(map[circuitSlot][]CircuitLink)
	}
	e.circuits[slot] = append([]CircuitLink(nil), links...)
	return nil
}

// SetCopperLinks replaces one copper side without mirroring.
func (e *Entity) SetCopperLinks(side int, targets []Association) error {
	if !validSide(side) {
		return fmt.Errorf("side %d: %w", side, ErrInvalidConnectionSide)
	}
	if len(targets) == 0 {
		delete(e.copper, side)
		return nil
	}
	if e.copper == nil {
		e.copper = make(map[int][]Association)
	}
	e.copper[side] = append([]Association(nil), targets...)
	return nil
}

// rewriteAssociations visits every outgoing reference, letting fn rewrite or drop it.
func (e *Entity) rewriteAssociations(fn func(Association) (Association, bool)) {
	e.neighbours = rewriteList(e.neighbours, fn)
	for slot, links := range e.circuits {
		kept := links[:0]
		for _, l := range links {
			if a, ok := fn(l.Target); ok {
				l.Target = a
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			delete(e.circuits, slot)
		} else {
			e.circuits[slot] = kept
		}
	}
	for side, list := range e.copper {
		list = rewriteList(list, fn)
		if len(list) == 0 {
			delete(e.copper, side)
		} else {
			e.copper[side] = list
		}
	}
}

func rewriteList(list []Association, fn func(Association) (Association, bool)) []Association {
	kept := list[:0]
	for _, a := range list {
		if b, ok := fn(a); ok {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func (e *Entity) String() string {
	return fmt.Sprintf("<Entity %s at %v>", e.Name(), e.position)
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = copyValue(x)
		}
		return out
	}
	return v
}
