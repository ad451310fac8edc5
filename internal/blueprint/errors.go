package blueprint

import "errors"

// Fatal conditions. Callers match them with errors.Is; most are returned
// wrapped with the offending name or key.
var (
	ErrInvalidEntity               = errors.New("invalid entity")
	ErrInvalidTile                 = errors.New("invalid tile")
	ErrDuplicateID                 = errors.New("duplicate id")
	ErrInvalidAssociation          = errors.New("invalid association")
	ErrRotation                    = errors.New("invalid rotation")
	ErrInvalidDirection            = errors.New("invalid direction")
	ErrEntityNotPowerConnectable   = errors.New("entity not power connectable")
	ErrEntityNotCircuitConnectable = errors.New("entity not circuit connectable")
	ErrInvalidWireType             = errors.New("invalid wire type")
	ErrInvalidConnectionSide       = errors.New("invalid connection side")
	ErrNestedPosition              = errors.New("cannot set position of a nested group")
	ErrInvalidArgument             = errors.New("invalid argument")
	ErrNotFound                    = errors.New("not found")
)
