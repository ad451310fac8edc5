package blueprint

import (
	"fmt"
	"weak"
)

// Association is a non-owning reference to an entity. It does not keep the
// entity alive and stops resolving once the entity leaves its container.
type Association struct {
	ref weak.Pointer[Entity]
	gen uint32
}

// NewAssociation references e, which must currently belong to a container.
func NewAssociation(e *Entity) (Association, error) {
	if e == nil || e.parent == nil {
		return Association{}, fmt.Errorf("associate detached entity: %w", ErrInvalidAssociation)
	}
	return Association{ref: weak.Make(e), gen: e.gen}, nil
}

func mustAssociate(e *Entity) Association {
	return Association{ref: weak.Make(e), gen: e.gen}
}

// Deref returns the referenced entity.
func (a Association) Deref() (*Entity, error) {
	e := a.ref.Value()
	if e == nil || e.gen != a.gen || e.parent == nil {
		return nil, ErrInvalidAssociation
	}
	return e, nil
}

// Valid reports whether Deref would succeed.
func (a Association) Valid() bool {
	_, err := a.Deref()
	return err == nil
}

func (a Association) IsZero() bool { return a.ref == weak.Pointer[Entity]{} }

// Refers reports whether a points at e, live or not.
func (a Association) Refers(e *Entity) bool {
	return e != nil && a.ref == weak.Make(e)
}

// Equal compares the referenced entity, not its contents.
func (a Association) Equal(o Association) bool { return a.ref == o.ref }

func (a Association) String() string {
	e, err := a.Deref()
	if err != nil {
		return "<dead association>"
	}
	return fmt.Sprintf("<association to %s>", e.Name())
}
