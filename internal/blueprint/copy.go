package blueprint

import "fmt"

// Clone returns a detached deep copy of n. Wires between entities inside a
// copied group are rewired to the copies. A wire that leaves the copied
// subtree, or no longer resolves, fails the copy with ErrInvalidAssociation.
func Clone(n Node) (Node, error) {
	n = unwrap(n)
	if n == nil {
		return nil, fmt.Errorf("nil node: %w", ErrInvalidArgument)
	}
	return cloneNode(n)
}

func cloneNode(n Node) (Node, error) {
	switch t := n.(type) {
	case *Entity:
		if t.HasConnections() {
			return nil, fmt.Errorf("copy %s: wires leave the copy: %w", t.Name(), ErrInvalidAssociation)
		}
		return cloneEntity(t), nil
	case *Group:
		return cloneGroup(t)
	}
	return nil, fmt.Errorf("unknown node %T: %w", n, ErrInvalidArgument)
}

func cloneEntity(e *Entity) *Entity {
	return &Entity{
		nodeBase:    nodeBase{id: e.id, position: e.position},
		proto:       e.proto,
		direction:   e.direction,
		orientation: e.orientation,
		Attributes:  copyMap(e.Attributes),
		Tags:        copyMap(e.Tags),
	}
}

func cloneGroup(g *Group) (*Group, error) {
	copies := make(map[*Entity]*Entity)
	cp := g.cloneTree(copies)

	var failed error
	remap := func(a Association) (Association, bool) {
		target, err := a.Deref()
		if err != nil {
			failed = fmt.Errorf("copy group %q: dangling wire: %w", g.Name, ErrInvalidAssociation)
			return a, false
		}
		c, ok := copies[target]
		if !ok {
			failed = fmt.Errorf("copy group %q: wire to %s outside the group: %w",
				g.Name, target.Name(), ErrInvalidAssociation)
			return a, false
		}
		return mustAssociate(c), true
	}
	for orig, c := range copies {
		if !orig.HasConnections() {
			continue
		}
		c.neighbours = append([]Association(nil), orig.neighbours...)
		c.circuits = make(map[circuitSlot][]CircuitLink, len(orig.circuits))
		for slot, links := range orig.circuits {
			c.circuits[slot] = append([]CircuitLink(nil), links...)
		}
		c.copper = make(map[int][]Association, len(orig.copper))
		for side, list := range orig.copper {
			c.copper[side] = append([]Association(nil), list...)
		}
		c.rewriteAssociations(remap)
		if failed != nil {
			return nil, failed
		}
	}
	return cp, nil
}

// cloneTree copies the group structure and entities, recording each copy.
func (g *Group) cloneTree(copies map[*Entity]*Entity) *Group {
	cp := &Group{
		nodeBase: nodeBase{id: g.id, position: g.position},
		Name:     g.Name,
		Type:     g.Type,
		cat:      g.cat,
		log:      g.log,
		cellSize: g.cellSize,
	}
	cp.entities = newContainer(cp)
	for _, n := range g.entities.items {
		var child Node
		switch t := n.(type) {
		case *Entity:
			c := cloneEntity(t)
			copies[t] = c
			child = c
		case *Group:
			child = t.cloneTree(copies)
		}
		cp.entities.items = append(cp.entities.items, child)
		cp.entities.attach(child)
	}
	cp.entities.rebuildKeys()
	return cp
}
