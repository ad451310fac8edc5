package blueprint

import (
	"fmt"
	"math"
	"slices"
)

func (g *Group) checkMembers(a, b *Entity) error {
	if a == nil || b == nil {
		return fmt.Errorf("nil entity: %w", ErrInvalidArgument)
	}
	if !g.entities.Contains(a, true) || !g.entities.Contains(b, true) {
		return fmt.Errorf("entities must both belong to group %q: %w", g.Name, ErrInvalidArgument)
	}
	return nil
}

func reach(x, y float64) float64 {
	switch {
	case x <= 0:
		return y
	case y <= 0:
		return x
	}
	return math.Min(x, y)
}

func (g *Group) checkDistance(a, b *Entity, r float64) {
	if r <= 0 {
		return
	}
	if d := a.GlobalPosition().Distance(b.GlobalPosition()); d > r {
		emit(g, ConnectionDistanceNotice{A: a, B: b, Distance: d, Reach: r})
	}
}

// AddPowerConnection joins two poles with a copper wire, or a pole to one
// copper side of a power switch (1 = Cu0, 2 = Cu1).
func (g *Group) AddPowerConnection(a, b *Entity, side int) error {
	if err := g.checkPower(a, b, side); err != nil {
		return err
	}
	ka, kb := a.proto.Power.Kind, b.proto.Power.Kind
	switch {
	case ka == PowerPole && kb == PowerPole:
		addUnique(&a.neighbours, mustAssociate(b))
		addUnique(&b.neighbours, mustAssociate(a))
	case ka == PowerSwitch:
		a.addCopper(side, b)
	default:
		b.addCopper(side, a)
	}
	g.checkDistance(a, b, reach(a.proto.Power.Reach, b.proto.Power.Reach))
	return nil
}

// RemovePowerConnection undoes AddPowerConnection. Missing wires are ignored.
func (g *Group) RemovePowerConnection(a, b *Entity, side int) error {
	if err := g.checkPower(a, b, side); err != nil {
		return err
	}
	ka, kb := a.proto.Power.Kind, b.proto.Power.Kind
	switch {
	case ka == PowerPole && kb == PowerPole:
		a.neighbours = dropTarget(a.neighbours, b)
		b.neighbours = dropTarget(b.neighbours, a)
	case ka == PowerSwitch:
		a.dropCopper(side, b)
	default:
		b.dropCopper(side, a)
	}
	return nil
}

func (g *Group) checkPower(a, b *Entity, side int) error {
	if err := g.checkMembers(a, b); err != nil {
		return err
	}
	if a == b {
		return fmt.Errorf("power connection to itself: %w", ErrInvalidArgument)
	}
	for _, e := range []*Entity{a, b} {
		if e.proto.Power.Kind == PowerNone {
			return fmt.Errorf("%s: %w", e.Name(), ErrEntityNotPowerConnectable)
		}
	}
	if a.proto.Power.Kind == PowerSwitch && b.proto.Power.Kind == PowerSwitch {
		return fmt.Errorf("power switches cannot be wired together: %w", ErrInvalidArgument)
	}
	if !validSide(side) {
		return fmt.Errorf("side %d: %w", side, ErrInvalidConnectionSide)
	}
	return nil
}

func (e *Entity) addCopper(side int, target *Entity) {
	if e.copper == nil {
		e.copper = make(map[int][]Association)
	}
	list := e.copper[side]
	addUnique(&list, mustAssociate(target))
	e.copper[side] = list
}

func (e *Entity) dropCopper(side int, target *Entity) {
	if list := dropTarget(e.copper[side], target); len(list) > 0 {
		e.copper[side] = list
	} else {
		delete(e.copper, side)
	}
}

// AddCircuitConnection runs a wire of the given color from side sideA of a
// to side sideB of b. Side 2 only exists on dual-sided entities such as
// combinators; using it elsewhere is allowed with a notice.
func (g *Group) AddCircuitConnection(color WireColor, a, b *Entity, sideA, sideB int) error {
	if err := g.checkCircuit(color, a, b, sideA, sideB); err != nil {
		return err
	}
	for _, end := range []struct {
		e    *Entity
		side int
	}{{a, sideA}, {b, sideB}} {
		if end.side == 2 && !end.e.proto.Circuit.Dual {
			emit(g, ConnectionSideNotice{Entity: end.e, Side: end.side})
		}
	}
	a.addCircuit(circuitSlot{sideA, color}, CircuitLink{Target: mustAssociate(b), CircuitID: sideB})
	b.addCircuit(circuitSlot{sideB, color}, CircuitLink{Target: mustAssociate(a), CircuitID: sideA})
	g.checkDistance(a, b, reach(a.proto.Circuit.Reach, b.proto.Circuit.Reach))
	return nil
}

// RemoveCircuitConnection undoes AddCircuitConnection. Missing wires are ignored.
func (g *Group) RemoveCircuitConnection(color WireColor, a, b *Entity, sideA, sideB int) error {
	if err := g.checkCircuit(color, a, b, sideA, sideB); err != nil {
		return err
	}
	a.dropCircuit(circuitSlot{sideA, color}, b, sideB)
	b.dropCircuit(circuitSlot{sideB, color}, a, sideA)
	return nil
}

func (g *Group) checkCircuit(color WireColor, a, b *Entity, sideA, sideB int) error {
	if _, err := ParseWireColor(string(color)); err != nil {
		return err
	}
	if err := g.checkMembers(a, b); err != nil {
		return err
	}
	if !validSide(sideA) || !validSide(sideB) {
		return fmt.Errorf("sides %d and %d: %w", sideA, sideB, ErrInvalidConnectionSide)
	}
	if a == b && sideA == sideB {
		return fmt.Errorf("circuit connection to the same side: %w", ErrInvalidArgument)
	}
	for _, e := range []*Entity{a, b} {
		if !e.proto.Circuit.Connectable {
			return fmt.Errorf("%s: %w", e.Name(), ErrEntityNotCircuitConnectable)
		}
	}
	return nil
}

func (e *Entity) addCircuit(slot circuitSlot, link CircuitLink) {
	if e.circuits == nil {
		e.circuits = make(map[circuitSlot][]CircuitLink)
	}
	links := e.circuits[slot]
	for i, l := range links {
		if l.Target.Equal(link.Target) && l.CircuitID == link.CircuitID {
			if !l.Target.Valid() {
				links[i].Target = link.Target
			}
			return
		}
	}
	e.circuits[slot] = append(links, link)
}

func (e *Entity) dropCircuit(slot circuitSlot, target *Entity, circuitID int) {
	links := slices.DeleteFunc(e.circuits[slot], func(l CircuitLink) bool {
		return l.Target.Refers(target) && l.CircuitID == circuitID
	})
	if len(links) > 0 {
		e.circuits[slot] = links
	} else {
		delete(e.circuits, slot)
	}
}

// addUnique appends a unless its target is listed already. A stale entry for
// the same target is replaced.
func addUnique(list *[]Association, a Association) {
	for i, x := range *list {
		if x.Equal(a) {
			if !x.Valid() {
				(*list)[i] = a
			}
			return
		}
	}
	*list = append(*list, a)
}

func dropTarget(list []Association, target *Entity) []Association {
	list = slices.DeleteFunc(list, func(a Association) bool { return a.Refers(target) })
	if len(list) == 0 {
		return nil
	}
	return list
}
