package blueprint

import (
	"fmt"
	"math"
	"slices"

	"github.com/l1jgo/draftsman/internal/geom"
	"github.com/l1jgo/draftsman/internal/spatial"
)

// Tile is one floor tile. Each grid cell holds at most one tile.
type Tile struct {
	name     string
	position geom.Point
}

func (t *Tile) Name() string         { return t.name }
func (t *Tile) Position() geom.Point { return t.position }
func (t *Tile) String() string       { return fmt.Sprintf("<Tile %s at %v>", t.name, t.position) }

func (t *Tile) shape() geom.CollisionSet {
	x, y := float64(t.position.X), float64(t.position.Y)
	return geom.Set(geom.Box(x, y, x+1, y+1))
}

type tileSet struct {
	index *spatial.Index[*Tile]
	list  []*Tile
}

func (s *tileSet) register(t *Tile) {
	s.index.Add(t, t.position.Vector(), t.shape())
}

// AddTile places a tile, replacing any tile already in that cell.
func (d *Document) AddTile(name string, p geom.Point) (*Tile, error) {
	if !d.cat.Tile(name) {
		return nil, fmt.Errorf("%q: %w", name, ErrInvalidTile)
	}
	if old, ok := d.TileAt(p); ok {
		d.RemoveTile(old)
	}
	t := &Tile{name: name, position: p}
	d.tiles.list = append(d.tiles.list, t)
	d.tiles.register(t)
	return t, nil
}

// RemoveTile reports whether t was present.
func (d *Document) RemoveTile(t *Tile) bool {
	i := slices.Index(d.tiles.list, t)
	if i < 0 {
		return false
	}
	d.tiles.list = slices.Delete(d.tiles.list, i, i+1)
	d.tiles.index.Remove(t)
	return true
}

// MoveTile relocates t, dropping whatever tile occupied the destination.
func (d *Document) MoveTile(t *Tile, p geom.Point) error {
	if !d.tiles.index.Contains(t) {
		return fmt.Errorf("tile %v: %w", t, ErrNotFound)
	}
	if other, ok := d.TileAt(p); ok && other != t {
		d.RemoveTile(other)
	}
	t.position = p
	d.tiles.register(t)
	return nil
}

func (d *Document) TileAt(p geom.Point) (*Tile, bool) {
	for _, t := range d.tiles.index.OnPoint(p.Vector(), 0) {
		if t.position == p {
			return t, true
		}
	}
	return nil, false
}

// Tiles returns the tiles in insertion order.
func (d *Document) Tiles() []*Tile { return slices.Clone(d.tiles.list) }

func (d *Document) TileCount() int { return len(d.tiles.list) }

func (d *Document) TilesOnPoint(p geom.Vector, limit int) []*Tile {
	return d.tiles.index.OnPoint(p, limit)
}

func (d *Document) TilesInRadius(radius float64, center geom.Vector, limit int) []*Tile {
	return d.tiles.index.InRadius(radius, center, limit)
}

func (d *Document) TilesInArea(area geom.AABB, limit int) []*Tile {
	return d.tiles.index.InArea(area, limit)
}

// ClearTiles drops every tile.
func (d *Document) ClearTiles() {
	d.tiles.list = nil
	d.tiles.index.Clear()
}

// Translate shifts the entities and the floor together.
func (d *Document) Translate(dx, dy int) {
	d.Group.Translate(dx, dy)
	shift := geom.Vec(float64(dx), float64(dy))
	d.moveTiles(func(c geom.Vector) geom.Vector { return c.Add(shift) })
}

// Rotate turns the entities and the floor about the origin.
func (d *Document) Rotate(steps int) error {
	if err := d.Group.Rotate(steps); err != nil {
		return err
	}
	q := steps / 2
	d.moveTiles(func(c geom.Vector) geom.Vector { return c.RotateQuarter(q) })
	return nil
}

// Flip mirrors the entities and the floor.
func (d *Document) Flip(dir FlipDirection) error {
	if err := d.Group.Flip(dir); err != nil {
		return err
	}
	if dir == FlipHorizontal {
		d.moveTiles(geom.Vector.FlipX)
	} else {
		d.moveTiles(geom.Vector.FlipY)
	}
	return nil
}

// moveTiles maps every tile's centre through f. f must be a grid symmetry,
// so no two tiles land in the same cell.
func (d *Document) moveTiles(f func(geom.Vector) geom.Vector) {
	half := geom.Vec(0.5, 0.5)
	for _, t := range d.tiles.list {
		c := f(t.position.Vector().Add(half)).Sub(half)
		t.position = geom.Pt(int(math.Floor(c.X+0.5)), int(math.Floor(c.Y+0.5)))
		d.tiles.register(t)
	}
}
