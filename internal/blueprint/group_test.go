package blueprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/geom"
)

// chestsAndBoiler builds the fixture used by the rotate and flip tests.
func chestsAndBoiler(t *testing.T) (*blueprint.Group, []*blueprint.Entity) {
	g := blueprint.NewGroup(cat, "test")
	return g, []*blueprint.Entity{
		add(t, g, "wooden-chest"),
		add(t, g, "wooden-chest", blueprint.AtTile(4, 4)),
		add(t, g, "boiler", blueprint.AtTile(1, 1)),
	}
}

func TestRotate(t *testing.T) {
	g, es := chestsAndBoiler(t)
	require.NoError(t, g.Rotate(2))

	assert.Equal(t, geom.Pt(-1, 0), es[0].TilePosition())
	assert.Equal(t, geom.Pt(-5, 4), es[1].TilePosition())
	assert.Equal(t, geom.Pt(-3, 1), es[2].TilePosition())
	assert.Equal(t, blueprint.East, es[2].Direction())

	assert.ErrorIs(t, g.Rotate(1), blueprint.ErrRotation)
}

func TestRotateFullTurnIsIdentity(t *testing.T) {
	g, es := chestsAndBoiler(t)
	before := make([]geom.Vector, len(es))
	for i, e := range es {
		before[i] = e.Position()
	}
	require.NoError(t, g.Rotate(8))
	for i, e := range es {
		assert.Equal(t, before[i], e.Position())
	}
	assert.Equal(t, blueprint.North, es[2].Direction())

	require.NoError(t, g.Rotate(-2))
	assert.Equal(t, blueprint.West, es[2].Direction())
}

func TestFlip(t *testing.T) {
	g, es := chestsAndBoiler(t)
	require.NoError(t, g.Flip(blueprint.FlipHorizontal))
	assert.Equal(t, geom.Pt(-1, 0), es[0].TilePosition())
	assert.Equal(t, geom.Pt(-5, 4), es[1].TilePosition())
	assert.Equal(t, geom.Pt(-4, 1), es[2].TilePosition())
	assert.Equal(t, blueprint.North, es[2].Direction())

	v, es := chestsAndBoiler(t)
	require.NoError(t, v.Flip(blueprint.FlipVertical))
	assert.Equal(t, geom.Pt(0, -1), es[0].TilePosition())
	assert.Equal(t, geom.Pt(4, -5), es[1].TilePosition())
	assert.Equal(t, geom.Pt(1, -3), es[2].TilePosition())
	assert.Equal(t, blueprint.South, es[2].Direction())

	_, err := blueprint.ParseFlip("diagonal")
	assert.ErrorIs(t, err, blueprint.ErrInvalidArgument)
	assert.ErrorIs(t, g.Flip(blueprint.FlipDirection(7)), blueprint.ErrInvalidArgument)
	dir, err := blueprint.ParseFlip("vertical")
	require.NoError(t, err)
	assert.Equal(t, blueprint.FlipVertical, dir)
}

func TestDoubleFlipIsIdentity(t *testing.T) {
	g := blueprint.NewGroup(cat, "belts")
	belt := add(t, g, "transport-belt", blueprint.AtTile(3, -2), blueprint.Facing(blueprint.East))
	loco := add(t, g, "locomotive", blueprint.AtTile(10, 0), blueprint.Oriented(0.125))

	for _, dir := range []blueprint.FlipDirection{blueprint.FlipHorizontal, blueprint.FlipVertical} {
		require.NoError(t, g.Flip(dir))
		require.NoError(t, g.Flip(dir))
		assert.Equal(t, geom.Pt(3, -2), belt.TilePosition())
		assert.Equal(t, blueprint.East, belt.Direction())
		assert.InDelta(t, 0.125, loco.Orientation(), 1e-9)
	}
}

func TestFlipRefusesUnflippable(t *testing.T) {
	g := blueprint.NewGroup(cat, "oil")
	pump := add(t, g, "pumpjack", blueprint.AtTile(2, 2))
	err := g.Flip(blueprint.FlipHorizontal)
	assert.ErrorIs(t, err, blueprint.ErrInvalidArgument)
	assert.Equal(t, geom.Pt(2, 2), pump.TilePosition(), "nothing moved")
	assert.False(t, g.Flippable())
}

func TestTranslate(t *testing.T) {
	g := blueprint.NewGroup(cat, "test")
	chest := add(t, g, "wooden-chest", blueprint.AtTile(10, 10))
	g.Translate(-5, -5)
	assert.Equal(t, geom.Pt(5, 5), chest.TilePosition())
	assert.Empty(t, g.Notices())

	add(t, g, "straight-rail")
	assert.True(t, g.DoubleGridAligned())
	g.Translate(2, 0)
	assert.Empty(t, g.Notices())

	g.Translate(1, 1)
	notices := g.Notices()
	require.Len(t, notices, 1)
	assert.IsType(t, blueprint.AlignmentNotice{}, notices[0])
}

func TestTransformsReindex(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	chest := add(t, doc.Group, "wooden-chest")

	doc.Translate(10, 0)
	assert.Equal(t, []*blueprint.Entity{chest}, doc.EntitiesOnPoint(geom.Vec(10.5, 0.5), 0))
	assert.Empty(t, doc.EntitiesOnPoint(geom.Vec(0.5, 0.5), 0))

	require.NoError(t, doc.Rotate(2))
	assert.Equal(t, []*blueprint.Entity{chest}, doc.EntitiesOnPoint(geom.Vec(-0.5, 10.5), 0))

	chest.SetPosition(geom.Vec(-20.5, 0.5))
	assert.Equal(t, []*blueprint.Entity{chest}, doc.EntitiesInRadius(1, geom.Vec(-20, 0), 0))
}

func TestNestedPositions(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	g := blueprint.NewGroup(cat, "g", blueprint.GroupID("g"))
	require.NoError(t, g.SetPosition(geom.Vec(4, 4)))
	add(t, g, "wooden-chest", blueprint.WithID("c"))

	_, ok := blueprint.NewGroup(cat, "empty").WorldBoundingBox()
	assert.False(t, ok)

	n, err := doc.Entities().Append(g)
	require.NoError(t, err)
	nested := n.(*blueprint.Group)
	assert.ErrorIs(t, nested.SetPosition(geom.Vec(1, 1)), blueprint.ErrNestedPosition)

	c, err := nested.Entity(blueprint.Name("c"))
	require.NoError(t, err)
	assert.Equal(t, geom.Vec(4.5, 4.5), c.GlobalPosition())
	assert.Equal(t, []*blueprint.Entity{c}, doc.EntitiesOnPoint(geom.Vec(4.5, 4.5), 0))

	bb, ok := nested.WorldBoundingBox()
	require.True(t, ok)
	assert.InDelta(t, 4.15, bb.MinX, 1e-9)
	assert.InDelta(t, 4.85, bb.MaxY, 1e-9)

	local, ok := nested.CollisionSet().BoundingBox()
	require.True(t, ok)
	assert.InDelta(t, 0.15, local.MinX, 1e-9)

	require.NoError(t, nested.SetID("h"))
	_, err = doc.Get(blueprint.Name("h"), blueprint.Name("c"))
	assert.NoError(t, err)

	// detaching makes the group a root with its own index
	removed, err := doc.Entities().RemoveKey("h")
	require.NoError(t, err)
	rg := removed.(*blueprint.Group)
	require.NoError(t, rg.SetPosition(geom.Vec(0, 0)))
	assert.Equal(t, []*blueprint.Entity{c}, rg.EntitiesOnPoint(geom.Vec(0.5, 0.5), 0))
	assert.Empty(t, doc.EntitiesOnPoint(geom.Vec(4.5, 4.5), 0))
}

func TestNestedRotation(t *testing.T) {
	outer := blueprint.NewGroup(cat, "outer")
	inner := blueprint.NewGroup(cat, "inner", blueprint.GroupID("inner"), blueprint.GroupAt(2, 0))
	add(t, inner, "transport-belt", blueprint.WithID("belt"))
	_, err := outer.Entities().Append(inner)
	require.NoError(t, err)

	require.NoError(t, outer.Rotate(2))
	belt, err := outer.Entity(blueprint.Name("inner"), blueprint.Name("belt"))
	require.NoError(t, err)
	assert.Equal(t, geom.Vec(-0.5, 2.5), belt.GlobalPosition())
	assert.Equal(t, blueprint.East, belt.Direction())
}

func TestCloneRemapsInternalWires(t *testing.T) {
	g := blueprint.NewGroup(cat, "poles")
	a := add(t, g, "medium-electric-pole", blueprint.WithID("a"))
	b := add(t, g, "medium-electric-pole", blueprint.AtTile(4, 0), blueprint.WithID("b"))
	require.NoError(t, g.AddPowerConnection(a, b, 1))
	require.NoError(t, g.AddCircuitConnection(blueprint.Green, a, b, 1, 1))

	n, err := blueprint.Clone(g)
	require.NoError(t, err)
	cp := n.(*blueprint.Group)
	ca, err := cp.Entity(blueprint.Name("a"))
	require.NoError(t, err)
	cb, err := cp.Entity(blueprint.Name("b"))
	require.NoError(t, err)

	assert.NotSame(t, a, ca)
	assert.Equal(t, []*blueprint.Entity{cb}, targets(t, ca.Neighbours()))
	assert.Equal(t, []*blueprint.Entity{ca}, targets(t, cb.Neighbours()))
	links := ca.CircuitLinks(1, blueprint.Green)
	require.Len(t, links, 1)
	assert.True(t, links[0].Target.Refers(cb))

	// the original is untouched
	assert.Equal(t, []*blueprint.Entity{b}, targets(t, a.Neighbours()))
}

func TestCloneRejectsOutsideWires(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	outside := add(t, doc.Group, "medium-electric-pole")
	g := blueprint.NewGroup(cat, "g", blueprint.GroupID("g"))
	add(t, g, "medium-electric-pole", blueprint.AtTile(3, 0), blueprint.WithID("in"))
	n, err := doc.Entities().Append(g)
	require.NoError(t, err)
	inner := n.(*blueprint.Group)
	in, err := inner.Entity(blueprint.Name("in"))
	require.NoError(t, err)
	require.NoError(t, doc.AddPowerConnection(outside, in, 1))

	_, err = blueprint.Clone(inner)
	assert.ErrorIs(t, err, blueprint.ErrInvalidAssociation)

	_, err = doc.Entities().Append(outside)
	assert.ErrorIs(t, err, blueprint.ErrInvalidAssociation, "a wired entity cannot be copied alone")

	_, err = blueprint.Clone(doc)
	assert.NoError(t, err, "the whole tree is self-contained")
}
