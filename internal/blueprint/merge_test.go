package blueprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/draftsman/internal/blueprint"
)

func TestMergeEntity(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	existing := add(t, doc.Group, "wooden-chest", blueprint.WithAttributes(map[string]any{"bar": 1}))

	incoming := newEntity(t, "wooden-chest", blueprint.WithAttributes(map[string]any{"bar": 2, "label": "x"}))
	n, err := doc.Entities().Append(incoming, blueprint.Merge())
	require.NoError(t, err)
	assert.Same(t, existing, n, "the existing entity survives")
	assert.Equal(t, 1, doc.Entities().Len())
	assert.Equal(t, map[string]any{"bar": 2, "label": "x"}, existing.Attributes)
	assert.Empty(t, doc.Notices())
}

func TestMergeNeedsCoincidence(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	add(t, doc.Group, "transport-belt")

	turned := newEntity(t, "transport-belt", blueprint.Facing(blueprint.East))
	n, err := doc.Entities().Append(turned, blueprint.Merge())
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Entities().Len(), "different direction keeps both")
	assert.NotSame(t, turned, n)
	assert.True(t, hasNotice[blueprint.OverlapNotice](doc.Notices()))

	add(t, doc.Group, "locomotive", blueprint.AtTile(10, 0))
	_, err = doc.Entities().Append(newEntity(t, "locomotive", blueprint.AtTile(10, 0)), blueprint.Merge())
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Entities().Len(), "locomotives never merge")
	assert.True(t, hasNotice[blueprint.OverlapNotice](doc.Notices()))

	_, err = doc.Entities().Append(newEntity(t, "wooden-chest"), blueprint.Merge(), blueprint.NoCopy())
	assert.ErrorIs(t, err, blueprint.ErrInvalidArgument)
}

func TestMergePolicyScript(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	cb := func(op string) blueprint.EntityOption {
		return blueprint.WithAttributes(map[string]any{"control_behavior": map[string]any{
			"arithmetic_conditions": map[string]any{"operation": op},
		}})
	}
	add(t, doc.Group, "arithmetic-combinator", cb("+"))

	_, err := doc.Entities().Append(newEntity(t, "arithmetic-combinator", cb("-")), blueprint.Merge())
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Entities().Len())

	_, err = doc.Entities().Append(newEntity(t, "arithmetic-combinator", cb("+")), blueprint.Merge())
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Entities().Len(), "matching settings merge")
}

func TestMergeGroupRedirectsWires(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	a := add(t, doc.Group, "medium-electric-pole")
	b := add(t, doc.Group, "medium-electric-pole", blueprint.AtTile(5, 0))
	require.NoError(t, doc.AddPowerConnection(a, b, 1))

	g := blueprint.NewGroup(cat, "incoming")
	a2 := add(t, g, "medium-electric-pole")
	c := add(t, g, "medium-electric-pole", blueprint.AtTile(0, 5), blueprint.WithID("c"))
	require.NoError(t, g.AddPowerConnection(a2, c, 1))

	n, err := doc.Entities().Append(g, blueprint.Merge())
	require.NoError(t, err)
	inserted := n.(*blueprint.Group)
	require.Equal(t, 1, inserted.Entities().Len(), "the merged pole is dropped from the copy")

	cc, err := inserted.Entity(blueprint.Name("c"))
	require.NoError(t, err)
	assert.Equal(t, []*blueprint.Entity{b, cc}, targets(t, a.Neighbours()))
	assert.Equal(t, []*blueprint.Entity{a}, targets(t, cc.Neighbours()))
	assert.Empty(t, doc.Notices())

	// the source group is untouched
	assert.Equal(t, []*blueprint.Entity{c}, targets(t, a2.Neighbours()))
	assert.Equal(t, 2, g.Entities().Len())
}
