package blueprint_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/geom"
)

func TestNewEntity(t *testing.T) {
	e := newEntity(t, "wooden-chest")
	assert.Equal(t, "wooden-chest", e.Name())
	assert.Equal(t, geom.Vec(0.5, 0.5), e.Position())
	assert.Equal(t, geom.Pt(0, 0), e.TilePosition())
	assert.Nil(t, e.Parent())
	assert.True(t, e.Handle().IsZero())

	_, err := blueprint.NewEntity(cat, "unobtainium-chest")
	assert.ErrorIs(t, err, blueprint.ErrInvalidEntity)
}

func TestEntityPositionAndDirection(t *testing.T) {
	boiler := newEntity(t, "boiler", blueprint.AtTile(1, 1))
	assert.Equal(t, geom.Vec(2.5, 2), boiler.Position())

	require.NoError(t, boiler.SetDirection(blueprint.East))
	assert.Equal(t, geom.Pt(1, 0), boiler.TilePosition(), "centre kept, footprint turned")

	assert.ErrorIs(t, boiler.SetDirection(blueprint.Northeast), blueprint.ErrInvalidDirection)
	assert.ErrorIs(t, newEntity(t, "wooden-chest").SetDirection(blueprint.East), blueprint.ErrInvalidDirection)

	rail := newEntity(t, "straight-rail", blueprint.Facing(blueprint.Northeast))
	assert.Equal(t, blueprint.Northeast, rail.Direction())
	assert.True(t, rail.DoubleGridAligned())

	_, err := blueprint.NewEntity(cat, "radar", blueprint.Oriented(0.25))
	assert.ErrorIs(t, err, blueprint.ErrInvalidDirection)

	loco := newEntity(t, "locomotive", blueprint.Oriented(1.25))
	assert.Equal(t, 0.25, loco.Orientation())

	centered := newEntity(t, "radar", blueprint.At(10.5, -3.5))
	assert.Equal(t, geom.Pt(9, -5), centered.TilePosition())
	centered.SetTilePosition(geom.Pt(0, 0))
	assert.Equal(t, geom.Vec(1.5, 1.5), centered.Position())
}

func TestEntityFootprint(t *testing.T) {
	boiler := newEntity(t, "boiler", blueprint.Facing(blueprint.East))
	bb, ok := boiler.Footprint().BoundingBox()
	require.True(t, ok)
	assert.InDelta(t, 1.58, bb.Width(), 1e-9)
	assert.InDelta(t, 2.58, bb.Height(), 1e-9)
}

func TestAttributesAreCopied(t *testing.T) {
	attrs := map[string]any{"bar": 3, "filters": []any{map[string]any{"index": 1}}}
	e := newEntity(t, "iron-chest", blueprint.WithAttributes(attrs), blueprint.WithTags(map[string]any{"k": "v"}))
	attrs["bar"] = 9
	assert.Equal(t, 3, e.Attributes["bar"])
	assert.Equal(t, "v", e.Tags["k"])
}

func TestAssociationLifecycle(t *testing.T) {
	doc := blueprint.NewDocument(cat)

	_, err := blueprint.NewAssociation(newEntity(t, "wooden-chest"))
	assert.ErrorIs(t, err, blueprint.ErrInvalidAssociation, "detached entities cannot be referenced")

	chest := add(t, doc.Group, "wooden-chest")
	a, err := blueprint.NewAssociation(chest)
	require.NoError(t, err)
	got, err := a.Deref()
	require.NoError(t, err)
	assert.Same(t, chest, got)
	assert.True(t, a.Refers(chest))

	b, _ := blueprint.NewAssociation(chest)
	assert.True(t, a.Equal(b))

	_, err = doc.Entities().Remove(0)
	require.NoError(t, err)
	_, err = a.Deref()
	assert.ErrorIs(t, err, blueprint.ErrInvalidAssociation)
	assert.False(t, a.Valid())

	// reinserting the same entity does not revive old references
	_, err = doc.Entities().Append(chest, blueprint.NoCopy())
	require.NoError(t, err)
	assert.False(t, a.Valid())
	runtime.KeepAlive(chest)
}

func TestRemovedGroupStopsResolving(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	g := blueprint.NewGroup(cat, "g")
	a1 := add(t, g, "medium-electric-pole")
	a2 := add(t, g, "medium-electric-pole", blueprint.AtTile(3, 0))
	require.NoError(t, g.AddPowerConnection(a1, a2, 1))
	_, err := doc.Entities().Append(g, blueprint.NoCopy())
	require.NoError(t, err)
	b := add(t, doc.Group, "medium-electric-pole", blueprint.AtTile(6, 0))
	require.NoError(t, doc.AddPowerConnection(b, a2, 1))

	_, err = doc.Entities().Remove(0)
	require.NoError(t, err)

	require.Len(t, b.Neighbours(), 1)
	_, err = b.Neighbours()[0].Deref()
	assert.ErrorIs(t, err, blueprint.ErrInvalidAssociation, "member left the tree")
	assert.Equal(t, []*blueprint.Entity{a2}, targets(t, a1.Neighbours()), "wires inside the group survive")
}

func TestRewiringReplacesStaleLink(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	a := add(t, doc.Group, "medium-electric-pole")
	b := add(t, doc.Group, "medium-electric-pole", blueprint.AtTile(3, 0))
	require.NoError(t, doc.AddPowerConnection(a, b, 1))

	_, err := doc.Entities().Remove(1)
	require.NoError(t, err)
	_, err = doc.Entities().Append(b, blueprint.NoCopy())
	require.NoError(t, err)
	require.NoError(t, doc.AddPowerConnection(a, b, 1))

	assert.Equal(t, []*blueprint.Entity{b}, targets(t, a.Neighbours()))
}
