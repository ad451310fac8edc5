package blueprint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/data"
)

var cat = data.DefaultCatalog()

func newEntity(t *testing.T, name string, opts ...blueprint.EntityOption) *blueprint.Entity {
	t.Helper()
	e, err := blueprint.NewEntity(cat, name, opts...)
	require.NoError(t, err)
	return e
}

func add(t *testing.T, g *blueprint.Group, name string, opts ...blueprint.EntityOption) *blueprint.Entity {
	t.Helper()
	e, err := g.Entities().Add(name, opts...)
	require.NoError(t, err)
	return e
}

func targets(t *testing.T, list []blueprint.Association) []*blueprint.Entity {
	t.Helper()
	out := make([]*blueprint.Entity, 0, len(list))
	for _, a := range list {
		e, err := a.Deref()
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

// hasNotice reports whether any notice has type N.
func hasNotice[N blueprint.Notice](notices []blueprint.Notice) bool {
	for _, n := range notices {
		if _, ok := n.(N); ok {
			return true
		}
	}
	return false
}
