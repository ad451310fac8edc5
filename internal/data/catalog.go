package data

import (
	_ "embed"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/geom"
	"github.com/l1jgo/draftsman/internal/scripting"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// EntityEntry is one entity prototype as written in the catalog YAML.
type EntityEntry struct {
	Name      string       `yaml:"name"`
	Size      [2]int       `yaml:"size"`
	Collision [][4]float64 `yaml:"collision"`
	Rotation  string       `yaml:"rotation"`  // none, four, eight, orientation
	Alignment string       `yaml:"alignment"` // single, double
	Flippable *bool        `yaml:"flippable"` // default true
	Hidden    bool         `yaml:"hidden"`
	Circuit   *struct {
		Reach float64 `yaml:"reach"`
		Dual  bool    `yaml:"dual"`
	} `yaml:"circuit"`
	Power *struct {
		Kind  string  `yaml:"kind"` // pole, switch
		Reach float64 `yaml:"reach"`
	} `yaml:"power"`
	Merge string `yaml:"merge"` // always, never, exact, script:<fn>
}

type catalogFile struct {
	Entities []EntityEntry `yaml:"entities"`
	Tiles    []string      `yaml:"tiles"`
}

type mergeKind int

const (
	mergeAlways mergeKind = iota
	mergeNever
	mergeExact
	mergeScript
)

type mergePolicy struct {
	kind mergeKind
	fn   string
}

// Catalog holds entity prototypes and tile names indexed by name. It is
// immutable after loading and safe to share between documents.
type Catalog struct {
	protos   map[string]*blueprint.Prototype
	policies map[string]mergePolicy
	tiles    map[string]struct{}
	engine   *scripting.Engine
	log      *zap.Logger
}

// LoadCatalog loads a catalog YAML file. Script merge policies are resolved
// against engine.
func LoadCatalog(path string, engine *scripting.Engine, log *zap.Logger) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw, engine, log)
}

// ParseCatalog builds a catalog from YAML bytes.
func ParseCatalog(raw []byte, engine *scripting.Engine, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		protos:   make(map[string]*blueprint.Prototype, len(f.Entities)),
		policies: make(map[string]mergePolicy, len(f.Entities)),
		tiles:    make(map[string]struct{}, len(f.Tiles)),
		engine:   engine,
		log:      log,
	}
	for i := range f.Entities {
		e := &f.Entities[i]
		p, err := e.prototype()
		if err != nil {
			return nil, fmt.Errorf("catalog entity %q: %w", e.Name, err)
		}
		if _, dup := c.protos[p.Name]; dup {
			return nil, fmt.Errorf("catalog entity %q: defined twice", p.Name)
		}
		pol, err := parseMerge(e.Merge)
		if err != nil {
			return nil, fmt.Errorf("catalog entity %q: %w", e.Name, err)
		}
		if pol.kind == mergeScript && (engine == nil || !engine.Has(pol.fn)) {
			return nil, fmt.Errorf("catalog entity %q: lua function %s not loaded", e.Name, pol.fn)
		}
		c.protos[p.Name] = p
		c.policies[p.Name] = pol
	}
	for _, t := range f.Tiles {
		c.tiles[t] = struct{}{}
	}
	return c, nil
}

func (e *EntityEntry) prototype() (*blueprint.Prototype, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if e.Size[0] <= 0 || e.Size[1] <= 0 {
		return nil, fmt.Errorf("size %v must be positive", e.Size)
	}
	p := &blueprint.Prototype{
		Name:       e.Name,
		TileWidth:  e.Size[0],
		TileHeight: e.Size[1],
		Flippable:  e.Flippable == nil || *e.Flippable,
		Hidden:     e.Hidden,
	}
	for _, b := range e.Collision {
		p.Collision.Shapes = append(p.Collision.Shapes, geom.Box(b[0], b[1], b[2], b[3]))
	}
	switch e.Rotation {
	case "", "none":
		p.Rotation = blueprint.RotationNone
	case "four":
		p.Rotation = blueprint.RotationFour
	case "eight":
		p.Rotation = blueprint.RotationEight
	case "orientation":
		p.Rotation = blueprint.RotationOrientation
	default:
		return nil, fmt.Errorf("unknown rotation %q", e.Rotation)
	}
	switch e.Alignment {
	case "", "single":
		p.Alignment = blueprint.AlignSingle
	case "double":
		p.Alignment = blueprint.AlignDouble
	default:
		return nil, fmt.Errorf("unknown alignment %q", e.Alignment)
	}
	if e.Circuit != nil {
		p.Circuit = blueprint.CircuitSpec{Connectable: true, Dual: e.Circuit.Dual, Reach: e.Circuit.Reach}
	}
	if e.Power != nil {
		switch e.Power.Kind {
		case "pole":
			p.Power.Kind = blueprint.PowerPole
		case "switch":
			p.Power.Kind = blueprint.PowerSwitch
		default:
			return nil, fmt.Errorf("unknown power kind %q", e.Power.Kind)
		}
		p.Power.Reach = e.Power.Reach
	}
	return p, nil
}

func parseMerge(s string) (mergePolicy, error) {
	switch s {
	case "", "always":
		return mergePolicy{kind: mergeAlways}, nil
	case "never":
		return mergePolicy{kind: mergeNever}, nil
	case "exact":
		return mergePolicy{kind: mergeExact}, nil
	}
	if fn, ok := strings.CutPrefix(s, "script:"); ok && fn != "" {
		return mergePolicy{kind: mergeScript, fn: fn}, nil
	}
	return mergePolicy{}, fmt.Errorf("unknown merge policy %q", s)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the built-in catalog with the built-in merge scripts.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		engine, err := scripting.NewEngine("", nil)
		if err != nil {
			panic(fmt.Sprintf("builtin merge scripts: %v", err))
		}
		c, err := ParseCatalog(builtinCatalog, engine, nil)
		if err != nil {
			panic(fmt.Sprintf("builtin catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Builtin returns the embedded catalog YAML, for tools that want to extend it.
func Builtin() []byte { return append([]byte(nil), builtinCatalog...) }

// Entity returns the prototype for name.
func (c *Catalog) Entity(name string) (*blueprint.Prototype, bool) {
	p, ok := c.protos[name]
	return p, ok
}

func (c *Catalog) Tile(name string) bool {
	_, ok := c.tiles[name]
	return ok
}

// Mergable applies the kind-specific merge policy of the incoming entity.
func (c *Catalog) Mergable(existing, incoming *blueprint.Entity) bool {
	pol, ok := c.policies[incoming.Name()]
	if !ok {
		return false
	}
	switch pol.kind {
	case mergeAlways:
		return true
	case mergeNever:
		return false
	case mergeExact:
		return reflect.DeepEqual(existing.Attributes, incoming.Attributes) &&
			reflect.DeepEqual(existing.Tags, incoming.Tags)
	}
	ok, err := c.engine.CallMerge(pol.fn, candidate(existing), candidate(incoming))
	if err != nil {
		c.log.Warn("merge predicate failed", zap.String("fn", pol.fn), zap.Error(err))
		return false
	}
	return ok
}

func candidate(e *blueprint.Entity) scripting.MergeCandidate {
	return scripting.MergeCandidate{
		Name:       e.Name(),
		Direction:  int(e.Direction()),
		Attributes: e.Attributes,
		Tags:       e.Tags,
	}
}

// Count returns the number of entity prototypes loaded.
func (c *Catalog) Count() int { return len(c.protos) }

// TileCount returns the number of tile names loaded.
func (c *Catalog) TileCount() int { return len(c.tiles) }

// Names returns the entity prototype names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.protos))
	for n := range c.protos {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
