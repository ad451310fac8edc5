package blueprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/geom"
)

func TestTiles(t *testing.T) {
	doc := blueprint.NewDocument(cat)

	_, err := doc.AddTile("water", geom.Pt(0, 0))
	assert.ErrorIs(t, err, blueprint.ErrInvalidTile)

	_, err = doc.AddTile("landfill", geom.Pt(0, 0))
	require.NoError(t, err)
	right, err := doc.AddTile("landfill", geom.Pt(1, 0))
	require.NoError(t, err)
	far, err := doc.AddTile("stone-path", geom.Pt(5, 5))
	require.NoError(t, err)

	concrete, err := doc.AddTile("concrete", geom.Pt(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.TileCount(), "a tile replaces the one in its cell")
	got, ok := doc.TileAt(geom.Pt(0, 0))
	require.True(t, ok)
	assert.Same(t, concrete, got)

	area := geom.Box(0, 0, 2, 1)
	assert.Equal(t, []*blueprint.Tile{right, concrete}, doc.TilesInArea(area, 0))
	assert.Len(t, doc.TilesInArea(area, 1), 1)
	assert.Equal(t, []*blueprint.Tile{far}, doc.TilesOnPoint(geom.Vec(5.5, 5.5), 0))
	assert.Len(t, doc.TilesInRadius(1, geom.Vec(1, 0.5), 0), 2)

	require.NoError(t, doc.MoveTile(far, geom.Pt(1, 0)))
	assert.Equal(t, 2, doc.TileCount())
	got, ok = doc.TileAt(geom.Pt(1, 0))
	require.True(t, ok)
	assert.Same(t, far, got)
	assert.Empty(t, doc.TilesOnPoint(geom.Vec(5.5, 5.5), 0))

	assert.True(t, doc.RemoveTile(far))
	assert.False(t, doc.RemoveTile(far))
	assert.ErrorIs(t, doc.MoveTile(far, geom.Pt(3, 3)), blueprint.ErrNotFound)

	doc.ClearTiles()
	assert.Zero(t, doc.TileCount())
	assert.Empty(t, doc.TilesInArea(area, 0))
}

func TestIcons(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	sig := blueprint.Signal{Name: "radar", Type: "item"}

	assert.ErrorIs(t, doc.SetIcons(
		blueprint.Icon{Index: 1, Signal: sig}, blueprint.Icon{Index: 2, Signal: sig},
		blueprint.Icon{Index: 3, Signal: sig}, blueprint.Icon{Index: 4, Signal: sig},
		blueprint.Icon{Index: 4, Signal: sig},
	), blueprint.ErrInvalidArgument)
	assert.ErrorIs(t, doc.SetIcons(blueprint.Icon{Index: 1, Signal: sig}, blueprint.Icon{Index: 1, Signal: sig}),
		blueprint.ErrInvalidArgument)
	assert.ErrorIs(t, doc.SetIcons(blueprint.Icon{Index: 5, Signal: sig}), blueprint.ErrInvalidArgument)
	assert.ErrorIs(t, doc.SetIcons(blueprint.Icon{Index: 1}), blueprint.ErrInvalidArgument)

	require.NoError(t, doc.SetIcons(blueprint.Icon{Index: 3, Signal: sig}, blueprint.Icon{Index: 1, Signal: sig}))
	icons := doc.Icons()
	require.Len(t, icons, 2)
	assert.Equal(t, 1, icons[0].Index)
	assert.Equal(t, 3, icons[1].Index)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, uint64(281479275544576), blueprint.DefaultVersion.Pack())
	assert.Equal(t, blueprint.DefaultVersion, blueprint.UnpackVersion(281479275544576))
	assert.Equal(t, "1.1.59.0", blueprint.DefaultVersion.String())

	v, err := blueprint.ParseVersion("1.0")
	require.NoError(t, err)
	assert.Equal(t, blueprint.Version{Major: 1}, v)
	for _, bad := range []string{"1", "1.2.3.4.5", "1.x", "70000.1"} {
		_, err := blueprint.ParseVersion(bad)
		assert.ErrorIs(t, err, blueprint.ErrInvalidArgument, bad)
	}

	doc := blueprint.NewDocument(cat, blueprint.WithVersion(v))
	assert.Equal(t, v, doc.Version)
}

func TestLabelIsNormalized(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	doc.SetLabel("cafe\u0301")
	assert.Equal(t, "caf\u00e9", doc.Label())
	doc.SetDescription("plain")
	assert.Equal(t, "plain", doc.Description())
}

func TestSchedules(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	a := add(t, doc.Group, "locomotive")
	b := add(t, doc.Group, "locomotive", blueprint.AtTile(4, 0))

	records := []map[string]any{{"station": "Mine", "wait_conditions": []any{}}}
	require.NoError(t, doc.AddSchedule([]*blueprint.Entity{a, b}, records))
	records[0]["station"] = "Smelter"
	require.Len(t, doc.Schedules, 1)
	assert.Equal(t, "Mine", doc.Schedules[0].Records[0]["station"])

	err := doc.AddSchedule([]*blueprint.Entity{newEntity(t, "locomotive")}, nil)
	assert.ErrorIs(t, err, blueprint.ErrInvalidArgument)

	require.NoError(t, doc.Entities().RecursiveRemove(a))
	assert.Equal(t, []*blueprint.Entity{b}, targets(t, doc.Schedules[0].Locomotives))
}

func TestNoticesAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	doc := blueprint.NewDocument(cat, blueprint.WithLogger(zap.New(core)))

	add(t, doc.Group, "wooden-chest")
	add(t, doc.Group, "wooden-chest")
	add(t, doc.Group, "express-loader", blueprint.AtTile(3, 0))
	assert.Equal(t, 2, logs.Len(), "logged when raised, before any drain")

	notices := doc.Notices()
	assert.Len(t, notices, 2)
	assert.Equal(t, 2, logs.Len(), "draining does not log again")
	assert.Equal(t, 3, doc.EntityCount())
}

func TestTransformsMoveTiles(t *testing.T) {
	doc := blueprint.NewDocument(cat)
	chest := add(t, doc.Group, "wooden-chest")
	floor, err := doc.AddTile("landfill", geom.Pt(0, 0))
	require.NoError(t, err)

	aligned := func(want geom.Point) {
		t.Helper()
		assert.Equal(t, want, chest.TilePosition())
		assert.Equal(t, want, floor.Position())
		got, ok := doc.TileAt(want)
		require.True(t, ok)
		assert.Same(t, floor, got)
	}

	doc.Translate(4, 4)
	aligned(geom.Pt(4, 4))
	require.NoError(t, doc.Rotate(2))
	aligned(geom.Pt(-5, 4))
	require.NoError(t, doc.Flip(blueprint.FlipHorizontal))
	aligned(geom.Pt(4, 4))
	require.NoError(t, doc.Flip(blueprint.FlipVertical))
	aligned(geom.Pt(4, -5))

	_, ok := doc.TileAt(geom.Pt(0, 0))
	assert.False(t, ok, "the old cell is empty")
	assert.ErrorIs(t, doc.Rotate(1), blueprint.ErrRotation)
	aligned(geom.Pt(4, -5))
}
