// Package spatial implements a cell-bucketed spatial hash for footprint queries.
//
// Items are registered in every cell their footprint overlaps, so a query only
// has to look at the cells its own region covers. Not safe for concurrent use;
// each index belongs to a single document.
package spatial

import (
	"math"
	"sort"

	"github.com/l1jgo/draftsman/internal/geom"
)

// DefaultCellSize is the edge length of one bucket, in tiles.
const DefaultCellSize = 8

// Cell identifies one bucket.
type Cell struct {
	X int
	Y int
}

type entry struct {
	anchor geom.Vector
	shape  geom.CollisionSet
	cells  []Cell
	rank   uint64 // insertion order
}

// Index maps cells to the items whose footprint overlaps them.
type Index[T comparable] struct {
	cellSize float64
	cells    map[Cell][]T
	entries  map[T]*entry
	nextRank uint64
}

// New creates an empty index. cellSize <= 0 selects DefaultCellSize.
func New[T comparable](cellSize int) *Index[T] {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Index[T]{
		cellSize: float64(cellSize),
		cells:    make(map[Cell][]T),
		entries:  make(map[T]*entry),
	}
}

// CellSize returns the bucket edge length.
func (ix *Index[T]) CellSize() int { return int(ix.cellSize) }

// CellOf returns the cell containing the point (x, y). Coordinates are floored,
// so negative positions map to negative cells.
func (ix *Index[T]) CellOf(x, y float64) Cell {
	return Cell{X: ix.coord(x), Y: ix.coord(y)}
}

func (ix *Index[T]) coord(v float64) int {
	return int(math.Floor(v / ix.cellSize))
}

// upper returns the last cell touched by a half-open range ending at v.
func (ix *Index[T]) upper(lo, v float64) int {
	c := int(math.Ceil(v/ix.cellSize)) - 1
	if first := ix.coord(lo); c < first {
		return first
	}
	return c
}

func (ix *Index[T]) boxCells(b geom.AABB, seen map[Cell]struct{}, out []Cell) []Cell {
	x0, y0 := ix.coord(b.MinX), ix.coord(b.MinY)
	x1, y1 := ix.upper(b.MinX, b.MaxX), ix.upper(b.MinY, b.MaxY)
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			c := Cell{cx, cy}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func (ix *Index[T]) footprintCells(anchor geom.Vector, shape geom.CollisionSet) []Cell {
	seen := make(map[Cell]struct{}, 4)
	home := ix.CellOf(anchor.X, anchor.Y)
	seen[home] = struct{}{}
	out := []Cell{home}
	for _, b := range shape.Shapes {
		out = ix.boxCells(b, seen, out)
	}
	return out
}

// Add registers item at anchor with the given footprint. Adding an item that
// is already present re-registers it under the new footprint but keeps its
// original insertion rank.
func (ix *Index[T]) Add(item T, anchor geom.Vector, shape geom.CollisionSet) {
	rank := ix.nextRank
	if old, ok := ix.entries[item]; ok {
		rank = old.rank
		ix.Remove(item)
	} else {
		ix.nextRank++
	}
	e := &entry{
		anchor: anchor,
		shape:  shape,
		cells:  ix.footprintCells(anchor, shape),
		rank:   rank,
	}
	for _, c := range e.cells {
		ix.cells[c] = append(ix.cells[c], item)
	}
	ix.entries[item] = e
}

// Remove unregisters item from every cell it was added to. Removing an absent
// item is a no-op.
func (ix *Index[T]) Remove(item T) {
	e, ok := ix.entries[item]
	if !ok {
		return
	}
	for _, c := range e.cells {
		bucket := ix.cells[c]
		for i, it := range bucket {
			if it == item {
				bucket = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
		if len(bucket) == 0 {
			delete(ix.cells, c)
		} else {
			ix.cells[c] = bucket
		}
	}
	delete(ix.entries, item)
}

// Contains reports whether item is registered.
func (ix *Index[T]) Contains(item T) bool {
	_, ok := ix.entries[item]
	return ok
}

// Len returns the number of registered items.
func (ix *Index[T]) Len() int { return len(ix.entries) }

// Footprint returns the anchor and shape item was registered with.
func (ix *Index[T]) Footprint(item T) (geom.Vector, geom.CollisionSet, bool) {
	e, ok := ix.entries[item]
	if !ok {
		return geom.Vector{}, geom.CollisionSet{}, false
	}
	return e.anchor, e.shape, true
}

// Bucket returns a copy of the items registered in cell c.
func (ix *Index[T]) Bucket(c Cell) []T {
	b := ix.cells[c]
	if len(b) == 0 {
		return nil
	}
	out := make([]T, len(b))
	copy(out, b)
	return out
}

// Cells returns the number of non-empty buckets.
func (ix *Index[T]) Cells() int { return len(ix.cells) }

// Clear drops every item.
func (ix *Index[T]) Clear() {
	ix.cells = make(map[Cell][]T)
	ix.entries = make(map[T]*entry)
	ix.nextRank = 0
}

// collect gathers the distinct items of the cells in [x0..x1]×[y0..y1] that
// satisfy match, sorted by insertion rank and truncated to limit.
func (ix *Index[T]) collect(x0, y0, x1, y1 int, limit int, match func(*entry) bool) []T {
	seen := make(map[T]struct{})
	var hits []T
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			for _, it := range ix.cells[Cell{cx, cy}] {
				if _, dup := seen[it]; dup {
					continue
				}
				seen[it] = struct{}{}
				if match(ix.entries[it]) {
					hits = append(hits, it)
				}
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		return ix.entries[hits[i]].rank < ix.entries[hits[j]].rank
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// OnPoint returns the items whose footprint contains p, or whose anchor is p.
func (ix *Index[T]) OnPoint(p geom.Vector, limit int) []T {
	c := ix.CellOf(p.X, p.Y)
	return ix.collect(c.X, c.Y, c.X, c.Y, limit, func(e *entry) bool {
		return e.anchor.Equal(p) || e.shape.ContainsPoint(p)
	})
}

// InRadius returns the items whose footprint comes within radius of center.
// Results keep insertion order; they are not sorted by distance.
func (ix *Index[T]) InRadius(radius float64, center geom.Vector, limit int) []T {
	if radius < 0 {
		return nil
	}
	x0, y0 := ix.coord(center.X-radius)-1, ix.coord(center.Y-radius)-1
	x1, y1 := ix.coord(center.X+radius), ix.coord(center.Y+radius)
	return ix.collect(x0, y0, x1, y1, limit, func(e *entry) bool {
		if e.anchor.Distance(center) <= radius {
			return true
		}
		return e.shape.IntersectsCircle(center, radius)
	})
}

// InArea returns the items whose footprint overlaps area.
func (ix *Index[T]) InArea(area geom.AABB, limit int) []T {
	x0, y0 := ix.coord(area.MinX), ix.coord(area.MinY)
	x1, y1 := ix.upper(area.MinX, area.MaxX), ix.upper(area.MinY, area.MaxY)
	return ix.collect(x0, y0, x1, y1, limit, func(e *entry) bool {
		if e.shape.Empty() {
			return area.ContainsPoint(e.anchor)
		}
		return e.shape.OverlapsBox(area)
	})
}
