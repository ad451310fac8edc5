package blueprint

import (
	"go.uber.org/zap"

	"github.com/l1jgo/draftsman/internal/geom"
)

// coincides is the kind-independent half of the merge rule: same kind, same
// anchor in the root frame, same heading.
func coincides(existing *Entity, anchor geom.Vector, e *Entity) bool {
	return existing.Name() == e.Name() &&
		existing.rootFrame().Equal(anchor) &&
		existing.direction == e.direction &&
		existing.orientation == e.orientation
}

// mergeInto folds every entity of the detached node n that coincides with a
// mergeable entity of the tree into that entity. Merged entities are removed
// from n and wires that pointed at them are redirected to the survivors.
// When n itself is an entity that merged, the survivor is returned.
func (c *Container) mergeInto(n Node) *Entity {
	root := c.owner.root()
	idx := root.entityIndex()
	frame := c.owner.rootFrame()

	leaves := leavesOf(n)
	survivors := make(map[*Entity]*Entity)
	for _, leaf := range leaves {
		anchor := frame.Add(offsetWithin(leaf, n))
		bb, ok := leaf.footprintAt(anchor).BoundingBox()
		if !ok {
			continue
		}
		for _, cand := range idx.InArea(bb, 0) {
			if coincides(cand, anchor, leaf) && root.cat.Mergable(cand, leaf) {
				survivors[leaf] = cand
				break
			}
		}
	}
	if len(survivors) == 0 {
		return nil
	}

	redirect := func(a Association) (Association, bool) {
		if t := a.ref.Value(); t != nil {
			if s, ok := survivors[t]; ok {
				return mustAssociate(s), true
			}
		}
		return a, true
	}
	for _, leaf := range leaves {
		leaf.rewriteAssociations(redirect)
	}
	for _, leaf := range leaves {
		s, ok := survivors[leaf]
		if !ok {
			continue
		}
		s.absorb(leaf)
		root.log.Debug("merged entity",
			zap.String("name", s.Name()), zap.Stringer("position", s.GlobalPosition()))
		if leaf.parent != nil {
			leaf.parent.entities.removeNode(leaf)
		}
	}
	if e, ok := n.(*Entity); ok {
		return survivors[e]
	}
	return nil
}

// absorb unions o's wires into e, deduplicated by target, and overlays o's
// attributes and tags on e's.
func (e *Entity) absorb(o *Entity) {
	self := func(a Association) bool { return a.Refers(e) }
	for _, a := range o.neighbours {
		if !self(a) {
			addUnique(&e.neighbours, a)
		}
	}
	for slot, links := range o.circuits {
		for _, l := range links {
			if !self(l.Target) || slot.side != l.CircuitID {
				e.addCircuit(slot, l)
			}
		}
	}
	for side, list := range o.copper {
		for _, a := range list {
			if self(a) {
				continue
			}
			if e.copper == nil {
				e.copper = make(map[int][]Association)
			}
			cur := e.copper[side]
			addUnique(&cur, a)
			e.copper[side] = cur
		}
	}
	if len(o.Attributes) > 0 && e.Attributes == nil {
		e.Attributes = make(map[string]any, len(o.Attributes))
	}
	for k, v := range o.Attributes {
		e.Attributes[k] = copyValue(v)
	}
	if len(o.Tags) > 0 && e.Tags == nil {
		e.Tags = make(map[string]any, len(o.Tags))
	}
	for k, v := range o.Tags {
		e.Tags[k] = copyValue(v)
	}
}
