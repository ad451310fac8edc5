package blueprint

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/l1jgo/draftsman/internal/spatial"
)

// MaxIcons is the number of icon slots a blueprint carries.
const MaxIcons = 4

type Signal struct {
	Name string
	Type string // "item", "fluid" or "virtual"
}

type Icon struct {
	Index  int // 1..MaxIcons
	Signal Signal
}

// Schedule is a train schedule shared by a set of locomotives. Records are
// kept opaque.
type Schedule struct {
	Locomotives []Association
	Records     []map[string]any
}

// Document is a blueprint: a root group plus tiles and metadata.
type Document struct {
	*Group

	tiles       tileSet
	label       string
	description string
	icons       []Icon
	Version     Version
	Schedules   []Schedule

	log *zap.Logger
}

type documentConfig struct {
	log      *zap.Logger
	cellSize int
	version  Version
}

type DocumentOption func(*documentConfig)

// WithLogger logs every notice at warn level as it is raised. Notices still
// queue until Notices drains them.
func WithLogger(log *zap.Logger) DocumentOption {
	return func(c *documentConfig) { c.log = log }
}

func WithCellSize(n int) DocumentOption {
	return func(c *documentConfig) { c.cellSize = n }
}

func WithVersion(v Version) DocumentOption {
	return func(c *documentConfig) { c.version = v }
}

func NewDocument(cat Catalog, opts ...DocumentOption) *Document {
	c := documentConfig{version: DefaultVersion}
	for _, opt := range opts {
		opt(&c)
	}
	root := NewGroup(cat, "", GroupType("blueprint"), CellSize(c.cellSize), GroupLogger(c.log))
	root.document = true
	d := &Document{
		Group:   root,
		tiles:   tileSet{index: spatial.New[*Tile](c.cellSize)},
		Version: c.version,
		log:     root.log,
	}
	root.onSever = d.severSchedules
	if c.log != nil {
		root.onNotice = func(n Notice) {
			d.log.Warn(n.Notice(), zap.String("notice", fmt.Sprintf("%T", n)))
		}
	}
	return d
}

func (d *Document) Label() string       { return d.label }
func (d *Document) Description() string { return d.description }

// SetLabel stores the label in NFC so visually equal labels compare equal.
func (d *Document) SetLabel(s string)       { d.label = norm.NFC.String(s) }
func (d *Document) SetDescription(s string) { d.description = norm.NFC.String(s) }

func (d *Document) Icons() []Icon { return slices.Clone(d.icons) }

// SetIcons replaces the icon list. Indices must be unique and within 1..MaxIcons.
func (d *Document) SetIcons(icons ...Icon) error {
	if len(icons) > MaxIcons {
		return fmt.Errorf("%d icons, at most %d: %w", len(icons), MaxIcons, ErrInvalidArgument)
	}
	seen := make(map[int]bool, len(icons))
	for _, ic := range icons {
		if ic.Index < 1 || ic.Index > MaxIcons || seen[ic.Index] {
			return fmt.Errorf("icon index %d: %w", ic.Index, ErrInvalidArgument)
		}
		if ic.Signal.Name == "" {
			return fmt.Errorf("icon %d has no signal: %w", ic.Index, ErrInvalidArgument)
		}
		seen[ic.Index] = true
	}
	d.icons = slices.Clone(icons)
	slices.SortFunc(d.icons, func(a, b Icon) int { return a.Index - b.Index })
	return nil
}

// AddSchedule attaches a schedule to locomotives of this document.
func (d *Document) AddSchedule(locomotives []*Entity, records []map[string]any) error {
	s := Schedule{Records: make([]map[string]any, 0, len(records))}
	for _, e := range locomotives {
		if !d.entities.Contains(e, true) {
			return fmt.Errorf("locomotive %v not in document: %w", e, ErrInvalidArgument)
		}
		s.Locomotives = append(s.Locomotives, mustAssociate(e))
	}
	for _, r := range records {
		s.Records = append(s.Records, copyMap(r))
	}
	d.Schedules = append(d.Schedules, s)
	return nil
}

func (d *Document) severSchedules(e *Entity) {
	for i := range d.Schedules {
		d.Schedules[i].Locomotives = slices.DeleteFunc(d.Schedules[i].Locomotives,
			func(a Association) bool { return a.Refers(e) })
	}
}

// EntityCount counts every entity in the document, nested ones included.
func (d *Document) EntityCount() int { return len(d.Flatten()) }

func (d *Document) String() string {
	return fmt.Sprintf("<Document %q: %d entities, %d tiles, version %v>",
		d.label, d.EntityCount(), d.TileCount(), d.Version)
}
