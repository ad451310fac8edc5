package blueprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/draftsman/internal/blueprint"
)

func TestPowerPoles(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	a := add(t, doc.Group, "medium-electric-pole")
	b := add(t, doc.Group, "medium-electric-pole", blueprint.AtTile(5, 0))

	require.NoError(t, doc.AddPowerConnection(a, b, 1))
	require.NoError(t, doc.AddPowerConnection(b, a, 1))
	assert.Equal(t, []*blueprint.Entity{b}, targets(t, a.Neighbours()), "deduplicated")
	assert.Equal(t, []*blueprint.Entity{a}, targets(t, b.Neighbours()))
	assert.Empty(t, doc.Notices())

	require.NoError(t, doc.RemovePowerConnection(a, b, 1))
	assert.Empty(t, a.Neighbours())
	assert.Empty(t, b.Neighbours())
	require.NoError(t, doc.RemovePowerConnection(a, b, 1), "removing a missing wire is a no-op")
}

func TestPowerSwitch(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	sw := add(t, doc.Group, "power-switch")
	pole := add(t, doc.Group, "medium-electric-pole", blueprint.AtTile(3, 0))
	sw2 := add(t, doc.Group, "power-switch", blueprint.AtTile(6, 0))

	require.NoError(t, doc.AddPowerConnection(pole, sw, 1))
	require.NoError(t, doc.AddPowerConnection(sw, pole, 2))
	assert.Equal(t, []*blueprint.Entity{pole}, targets(t, sw.CopperLinks(1)))
	assert.Equal(t, []*blueprint.Entity{pole}, targets(t, sw.CopperLinks(2)))
	assert.Empty(t, pole.Neighbours(), "poles do not list switches")

	assert.ErrorIs(t, doc.AddPowerConnection(sw, sw2, 1), blueprint.ErrInvalidArgument)
	assert.ErrorIs(t, doc.AddPowerConnection(pole, pole, 1), blueprint.ErrInvalidArgument)
	assert.ErrorIs(t, doc.AddPowerConnection(pole, sw, 3), blueprint.ErrInvalidConnectionSide)

	require.NoError(t, doc.RemovePowerConnection(pole, sw, 1))
	assert.Empty(t, sw.CopperLinks(1))
	assert.Len(t, sw.CopperLinks(2), 1)
}

func TestPowerErrors(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	pole := add(t, doc.Group, "small-electric-pole")
	chest := add(t, doc.Group, "wooden-chest", blueprint.AtTile(2, 0))
	far := add(t, doc.Group, "small-electric-pole", blueprint.AtTile(10, 0))
	stray := newEntity(t, "small-electric-pole")

	assert.ErrorIs(t, doc.AddPowerConnection(pole, chest, 1), blueprint.ErrEntityNotPowerConnectable)
	assert.ErrorIs(t, doc.AddPowerConnection(pole, stray, 1), blueprint.ErrInvalidArgument)
	assert.ErrorIs(t, doc.AddPowerConnection(pole, nil, 1), blueprint.ErrInvalidArgument)

	require.NoError(t, doc.AddPowerConnection(pole, far, 1))
	notices := doc.Notices()
	require.Len(t, notices, 1)
	dn, ok := notices[0].(blueprint.ConnectionDistanceNotice)
	require.True(t, ok)
	assert.InDelta(t, 10, dn.Distance, 1e-9)
	assert.InDelta(t, 7.5, dn.Reach, 1e-9)
}

func TestCircuitConnections(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	chest := add(t, doc.Group, "steel-chest")
	comb := add(t, doc.Group, "arithmetic-combinator", blueprint.AtTile(2, 0))
	radar := add(t, doc.Group, "radar", blueprint.AtTile(5, 0))

	require.NoError(t, doc.AddCircuitConnection(blueprint.Red, chest, comb, 1, 2))
	assert.Empty(t, doc.Notices(), "combinators have a second side")

	links := chest.CircuitLinks(1, blueprint.Red)
	require.Len(t, links, 1)
	assert.True(t, links[0].Target.Refers(comb))
	assert.Equal(t, 2, links[0].CircuitID)
	back := comb.CircuitLinks(2, blueprint.Red)
	require.Len(t, back, 1)
	assert.True(t, back[0].Target.Refers(chest))
	assert.Equal(t, 1, back[0].CircuitID)

	require.NoError(t, doc.AddCircuitConnection(blueprint.Green, comb, chest, 1, 2))
	assert.True(t, hasNotice[blueprint.ConnectionSideNotice](doc.Notices()), "chests only have side 1")

	require.NoError(t, doc.AddCircuitConnection(blueprint.Green, comb, comb, 1, 2), "input to own output")
	assert.ErrorIs(t, doc.AddCircuitConnection(blueprint.Green, comb, comb, 1, 1), blueprint.ErrInvalidArgument)

	assert.ErrorIs(t, doc.AddCircuitConnection("blue", chest, comb, 1, 1), blueprint.ErrInvalidWireType)
	assert.ErrorIs(t, doc.AddCircuitConnection(blueprint.Red, chest, comb, 0, 1), blueprint.ErrInvalidConnectionSide)
	assert.ErrorIs(t, doc.AddCircuitConnection(blueprint.Red, chest, radar, 1, 1), blueprint.ErrEntityNotCircuitConnectable)

	_, err := blueprint.ParseWireColor("blue")
	assert.ErrorIs(t, err, blueprint.ErrInvalidWireType)

	require.NoError(t, doc.RemoveCircuitConnection(blueprint.Red, chest, comb, 1, 2))
	assert.Empty(t, chest.CircuitLinks(1, blueprint.Red))
	assert.Empty(t, comb.CircuitLinks(2, blueprint.Red))
	assert.True(t, chest.HasConnections(), "green wire remains")
}

func TestRemoveLeavesDanglingWires(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	a := add(t, doc.Group, "medium-electric-pole")
	b := add(t, doc.Group, "medium-electric-pole", blueprint.AtTile(3, 0))
	require.NoError(t, doc.AddPowerConnection(a, b, 1))

	_, err := doc.Entities().Remove(1)
	require.NoError(t, err)
	ns := a.Neighbours()
	require.Len(t, ns, 1)
	_, err = ns[0].Deref()
	assert.ErrorIs(t, err, blueprint.ErrInvalidAssociation)
}
