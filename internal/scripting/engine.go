package scripting

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

//go:embed scripts/*.lua
var builtin embed.FS

// Engine wraps a single gopher-lua VM holding the merge predicates.
// The VM is not goroutine-safe, so every call takes the lock.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine with the built-in predicates, then loads
// every .lua file from scriptsDir/merge (if the directory exists) so local
// scripts can add or override functions.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	if err := e.loadBuiltin(); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load builtin scripts: %w", err)
	}
	if scriptsDir != "" {
		if err := e.loadDir(filepath.Join(scriptsDir, "merge")); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load merge scripts: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

func (e *Engine) loadBuiltin() error {
	names, err := fs.Glob(builtin, "scripts/*.lua")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		src, err := builtin.ReadFile(name)
		if err != nil {
			return err
		}
		if err := e.vm.DoString(string(src)); err != nil {
			return fmt.Errorf("load %s: %w", path.Base(name), err)
		}
		e.log.Debug("loaded builtin lua script", zap.String("file", name))
	}
	return nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", p))
	}
	return nil
}

// Has reports whether a global function named fn is defined.
func (e *Engine) Has(fn string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// MergeCandidate is the view of one entity handed to a merge predicate.
type MergeCandidate struct {
	Name       string
	Direction  int
	Attributes map[string]any
	Tags       map[string]any
}

// CallMerge calls fn(existing, incoming) and returns its truthiness.
func (e *Engine) CallMerge(fn string, existing, incoming MergeCandidate) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.vm.GetGlobal(fn)
	if f == lua.LNil {
		return false, fmt.Errorf("lua function %s not found", fn)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, e.candidateTable(existing), e.candidateTable(incoming)); err != nil {
		return false, fmt.Errorf("lua %s: %w", fn, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(result), nil
}

func (e *Engine) candidateTable(c MergeCandidate) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("direction", lua.LNumber(c.Direction))
	t.RawSetString("attrs", e.toLua(c.Attributes))
	t.RawSetString("tags", e.toLua(c.Tags))
	return t
}

// toLua converts JSON-shaped Go values into Lua values. Nil maps become
// empty tables so scripts can index them without guards.
func (e *Engine) toLua(v any) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case string:
		return lua.LString(t)
	case int:
		return lua.LNumber(t)
	case int64:
		return lua.LNumber(t)
	case float64:
		return lua.LNumber(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return lua.LString(t.String())
		}
		return lua.LNumber(f)
	case map[string]any:
		tbl := e.vm.NewTable()
		for k, x := range t {
			tbl.RawSetString(k, e.toLua(x))
		}
		return tbl
	case []any:
		tbl := e.vm.NewTable()
		for _, x := range t {
			tbl.Append(e.toLua(x))
		}
		return tbl
	}
	return lua.LString(fmt.Sprint(v))
}
