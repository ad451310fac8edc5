package scripting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestBuiltinCombinatorMerge(t *testing.T) {
	e := newEngine(t, "")
	require.True(t, e.Has("combinator_merge"))

	bare := MergeCandidate{Name: "arithmetic-combinator"}
	set := MergeCandidate{Name: "arithmetic-combinator", Attributes: map[string]any{
		"control_behavior": map[string]any{
			"arithmetic_conditions": map[string]any{"operation": "+", "constant": json.Number("3")},
		},
	}}
	other := MergeCandidate{Name: "arithmetic-combinator", Attributes: map[string]any{
		"control_behavior": map[string]any{
			"arithmetic_conditions": map[string]any{"operation": "*", "constant": 3.0},
		},
	}}

	ok, err := e.CallMerge("combinator_merge", bare, set)
	require.NoError(t, err)
	assert.True(t, ok, "unset side adopts the other")

	ok, err = e.CallMerge("combinator_merge", set, set)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.CallMerge("combinator_merge", set, other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMissingFunction(t *testing.T) {
	e := newEngine(t, "")
	assert.False(t, e.Has("no_such_rule"))
	_, err := e.CallMerge("no_such_rule", MergeCandidate{}, MergeCandidate{})
	assert.Error(t, err)
}

func TestScriptsDirOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "merge"), 0o755))
	src := "function combinator_merge(a, b) return false end\nfunction chest_merge(a, b) return a.tags.keep == b.tags.keep end\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "merge", "local.lua"), []byte(src), 0o644))

	e := newEngine(t, dir)
	ok, err := e.CallMerge("combinator_merge", MergeCandidate{}, MergeCandidate{})
	require.NoError(t, err)
	assert.False(t, ok)

	a := MergeCandidate{Tags: map[string]any{"keep": true}}
	ok, err = e.CallMerge("chest_merge", a, a)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBrokenScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "merge"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "merge", "bad.lua"), []byte("function ("), 0o644))

	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}
