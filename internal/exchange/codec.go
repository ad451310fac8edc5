// Package exchange converts documents to and from exchange strings: a
// one-character format marker followed by base64 of zlib-compressed JSON.
package exchange

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/geom"
)

var (
	ErrMalformedBlueprintString = errors.New("malformed blueprint string")
	ErrIncorrectBlueprintType   = errors.New("incorrect blueprint type")
)

// FormatMarker is the only exchange format version understood.
const FormatMarker = '0'

const itemBlueprint = "blueprint"

type Options struct {
	// Level is the zlib level used by Encode. 0 selects zlib.BestCompression.
	Level int
	// CellSize is the spatial bucket size of decoded documents.
	CellSize int
	// Logger receives codec debug output and, on decoded documents, the
	// advisory notices.
	Logger *zap.Logger
}

type Codec struct {
	cat  blueprint.Catalog
	opts Options
	log  *zap.Logger
}

func New(cat blueprint.Catalog, opts Options) *Codec {
	if opts.Level == 0 {
		opts.Level = zlib.BestCompression
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{cat: cat, opts: opts, log: log}
}

// Encode is New(doc.Catalog(), Options{}).Encode(doc).
func Encode(doc *blueprint.Document) (string, error) {
	return New(doc.Catalog(), Options{}).Encode(doc)
}

// Decode is New(cat, Options{}).Decode(s).
func Decode(cat blueprint.Catalog, s string) (*blueprint.Document, error) {
	return New(cat, Options{}).Decode(s)
}

func (c *Codec) Encode(doc *blueprint.Document) (string, error) {
	sch, err := ToSchema(doc)
	if err != nil {
		return "", err
	}
	s, err := c.Pack(sch)
	if err != nil {
		return "", err
	}
	c.log.Debug("encoded blueprint",
		zap.Int("entities", len(sch.Blueprint.Entities)),
		zap.Int("tiles", len(sch.Blueprint.Tiles)),
		zap.Int("bytes", len(s)))
	return s, nil
}

func (c *Codec) Decode(s string) (*blueprint.Document, error) {
	sch, err := Unpack(s)
	if err != nil {
		return nil, err
	}
	doc, err := c.FromSchema(sch)
	if err != nil {
		return nil, err
	}
	c.log.Debug("decoded blueprint",
		zap.Int("entities", doc.EntityCount()),
		zap.Int("tiles", doc.TileCount()),
		zap.Stringer("version", doc.Version))
	return doc, nil
}

// Pack serializes a schema into an exchange string.
func (c *Codec) Pack(sch *Schema) (string, error) {
	raw, err := json.Marshal(sch)
	if err != nil {
		return "", fmt.Errorf("marshal blueprint: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteByte(FormatMarker)
	b64 := base64.NewEncoder(base64.StdEncoding, &buf)
	zw, err := zlib.NewWriterLevel(b64, c.opts.Level)
	if err != nil {
		return "", fmt.Errorf("compression level %d: %w", c.opts.Level, err)
	}
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress blueprint: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress blueprint: %w", err)
	}
	if err := b64.Close(); err != nil {
		return "", fmt.Errorf("encode blueprint: %w", err)
	}
	return buf.String(), nil
}

// Unpack checks the format marker and undoes the text encoding and
// compression, returning the schema without building a document.
func Unpack(s string) (*Schema, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty string: %w", ErrMalformedBlueprintString)
	}
	if s[0] != FormatMarker {
		return nil, fmt.Errorf("format marker %q: %w", s[0], ErrIncorrectBlueprintType)
	}
	zr, err := zlib.NewReader(base64.NewDecoder(base64.StdEncoding, strings.NewReader(s[1:])))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlueprintString, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlueprintString, err)
	}
	return ParseSchema(raw)
}

// ParseSchema reads the JSON form of an exchange string.
func ParseSchema(raw []byte) (*Schema, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlueprintString, err)
	}
	body, ok := top[itemBlueprint]
	if !ok {
		if len(top) == 0 {
			return nil, fmt.Errorf("no item: %w", ErrMalformedBlueprintString)
		}
		keys := slices.Sorted(maps.Keys(top))
		return nil, fmt.Errorf("item %q: %w", keys[0], ErrIncorrectBlueprintType)
	}
	var bp BlueprintRecord
	if err := json.Unmarshal(body, &bp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlueprintString, err)
	}
	if bp.Item == "" {
		return nil, fmt.Errorf("no item tag: %w", ErrMalformedBlueprintString)
	}
	if bp.Item != itemBlueprint {
		return nil, fmt.Errorf("item %q: %w", bp.Item, ErrIncorrectBlueprintType)
	}
	return &Schema{Blueprint: &bp}, nil
}

// Fingerprint hashes the flattened content of doc: entities, wiring, tiles,
// schedules and version. Label, description and icons do not count.
func Fingerprint(doc *blueprint.Document) (uint64, error) {
	sch, err := ToSchema(doc)
	if err != nil {
		return 0, err
	}
	bp := *sch.Blueprint
	bp.Label, bp.Description, bp.Icons = "", "", nil
	raw, err := json.Marshal(Schema{Blueprint: &bp})
	if err != nil {
		return 0, fmt.Errorf("marshal blueprint: %w", err)
	}
	return xxhash.Sum64(raw), nil
}

type numbering struct {
	numbers map[*blueprint.Entity]int
}

func (n numbering) of(a blueprint.Association) (int, *blueprint.Entity, error) {
	e, err := a.Deref()
	if err != nil {
		return 0, nil, err
	}
	k, ok := n.numbers[e]
	if !ok {
		return 0, nil, fmt.Errorf("%v is outside the document: %w", e, blueprint.ErrInvalidAssociation)
	}
	return k, e, nil
}

var (
	sides  = []int{1, 2}
	colors = []blueprint.WireColor{blueprint.Red, blueprint.Green}
)

// ToSchema flattens doc pre-order, numbers the entities from 1 and rewrites
// every association as the number of its target.
func ToSchema(doc *blueprint.Document) (*Schema, error) {
	flat := doc.Flatten()
	num := numbering{numbers: make(map[*blueprint.Entity]int, len(flat))}
	for i, e := range flat {
		num.numbers[e] = i + 1
	}

	bp := &BlueprintRecord{
		Item:        itemBlueprint,
		Label:       doc.Label(),
		Description: doc.Description(),
		Version:     doc.Version.Pack(),
	}
	for _, ic := range doc.Icons() {
		bp.Icons = append(bp.Icons, IconRecord{
			Signal: SignalRecord{Type: ic.Signal.Type, Name: ic.Signal.Name},
			Index:  ic.Index,
		})
	}
	for i, e := range flat {
		r, err := entityRecord(e, i+1, num)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i+1, err)
		}
		bp.Entities = append(bp.Entities, r)
	}
	for _, t := range doc.Tiles() {
		p := t.Position()
		bp.Tiles = append(bp.Tiles, TileRecord{Name: t.Name(), Position: TilePosition{X: p.X, Y: p.Y}})
	}
	for i, s := range doc.Schedules {
		rec := ScheduleRecord{Locomotives: []int{}, Schedule: s.Records}
		for _, a := range s.Locomotives {
			k, _, err := num.of(a)
			if err != nil {
				return nil, fmt.Errorf("schedule %d: %w", i, err)
			}
			rec.Locomotives = append(rec.Locomotives, k)
		}
		bp.Schedules = append(bp.Schedules, rec)
	}
	return &Schema{Blueprint: bp}, nil
}

func entityRecord(e *blueprint.Entity, n int, num numbering) (EntityRecord, error) {
	pos := e.GlobalPosition()
	r := EntityRecord{
		EntityNumber: n,
		Name:         e.Name(),
		Position:     Position{X: pos.X, Y: pos.Y},
		Direction:    int(e.Direction()),
		Orientation:  e.Orientation(),
	}
	if len(e.Attributes) > 0 {
		r.Attributes = maps.Clone(e.Attributes)
	}
	if len(e.Tags) > 0 {
		r.Tags = maps.Clone(e.Tags)
	}
	for _, a := range e.Neighbours() {
		k, _, err := num.of(a)
		if err != nil {
			return r, err
		}
		r.Neighbours = append(r.Neighbours, k)
	}

	var cn Connections
	wired := false
	for _, side := range sides {
		var pt ConnectionPoint
		for _, color := range colors {
			for _, l := range e.CircuitLinks(side, color) {
				k, target, err := num.of(l.Target)
				if err != nil {
					return r, err
				}
				ct := CircuitTarget{EntityID: k}
				if l.CircuitID != 1 || target.Prototype().Circuit.Dual {
					ct.CircuitID = l.CircuitID
				}
				if color == blueprint.Red {
					pt.Red = append(pt.Red, ct)
				} else {
					pt.Green = append(pt.Green, ct)
				}
			}
		}
		if len(pt.Red)+len(pt.Green) > 0 {
			wired = true
			if side == 1 {
				cn.Side1 = &pt
			} else {
				cn.Side2 = &pt
			}
		}

		var copper []CopperTarget
		for _, a := range e.CopperLinks(side) {
			k, _, err := num.of(a)
			if err != nil {
				return r, err
			}
			copper = append(copper, CopperTarget{EntityID: k})
		}
		if len(copper) > 0 {
			wired = true
			if side == 1 {
				cn.Cu0 = copper
			} else {
				cn.Cu1 = copper
			}
		}
	}
	if wired {
		r.Connections = &cn
	}
	return r, nil
}

// FromSchema rebuilds a flat document from sch. Entities are placed in
// entity_number order, which must run from 1 without gaps.
func (c *Codec) FromSchema(sch *Schema) (*blueprint.Document, error) {
	if sch == nil || sch.Blueprint == nil {
		return nil, fmt.Errorf("no blueprint: %w", ErrMalformedBlueprintString)
	}
	bp := sch.Blueprint
	if bp.Item == "" {
		return nil, fmt.Errorf("no item tag: %w", ErrMalformedBlueprintString)
	}
	if bp.Item != itemBlueprint {
		return nil, fmt.Errorf("item %q: %w", bp.Item, ErrIncorrectBlueprintType)
	}

	opts := []blueprint.DocumentOption{
		blueprint.WithCellSize(c.opts.CellSize),
		blueprint.WithVersion(blueprint.UnpackVersion(bp.Version)),
	}
	if c.opts.Logger != nil {
		opts = append(opts, blueprint.WithLogger(c.opts.Logger))
	}
	doc := blueprint.NewDocument(c.cat, opts...)
	doc.SetLabel(bp.Label)
	doc.SetDescription(bp.Description)

	icons := make([]blueprint.Icon, 0, len(bp.Icons))
	for _, ic := range bp.Icons {
		icons = append(icons, blueprint.Icon{
			Index:  ic.Index,
			Signal: blueprint.Signal{Name: ic.Signal.Name, Type: ic.Signal.Type},
		})
	}
	if err := doc.SetIcons(icons...); err != nil {
		return nil, fmt.Errorf("%w: icons: %w", ErrMalformedBlueprintString, err)
	}

	records := slices.Clone(bp.Entities)
	slices.SortFunc(records, func(a, b EntityRecord) int { return a.EntityNumber - b.EntityNumber })
	flat := make([]*blueprint.Entity, len(records))
	for i, r := range records {
		if r.EntityNumber != i+1 {
			return nil, fmt.Errorf("%w: entity numbers must run from 1 to %d, found %d",
				ErrMalformedBlueprintString, len(records), r.EntityNumber)
		}
		e, ignored, err := newEntity(c.cat, r)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", r.EntityNumber, err)
		}
		if _, err := doc.Entities().Append(e, blueprint.NoCopy()); err != nil {
			return nil, fmt.Errorf("entity %d: %w", r.EntityNumber, err)
		}
		if ignored {
			blueprint.Raise(doc.Group, blueprint.DirectionIgnoredNotice{
				Entity:    e,
				Direction: blueprint.Direction(r.Direction),
			})
		}
		flat[i] = e
	}
	for i, r := range records {
		if err := restoreWires(flat[i], r, flat); err != nil {
			return nil, fmt.Errorf("entity %d: %w", r.EntityNumber, err)
		}
	}

	for _, t := range bp.Tiles {
		if _, err := doc.AddTile(t.Name, geom.Pt(t.Position.X, t.Position.Y)); err != nil {
			return nil, err
		}
	}
	for i, s := range bp.Schedules {
		locos := make([]*blueprint.Entity, 0, len(s.Locomotives))
		for _, k := range s.Locomotives {
			e, err := lookup(flat, k)
			if err != nil {
				return nil, fmt.Errorf("schedule %d: %w", i, err)
			}
			locos = append(locos, e)
		}
		if err := doc.AddSchedule(locos, s.Schedule); err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i, err)
		}
	}
	return doc, nil
}

// newEntity builds the entity for r. A direction on a kind that cannot turn
// is dropped and reported through ignored; any other bad heading is a
// schema violation.
func newEntity(cat blueprint.Catalog, r EntityRecord) (e *blueprint.Entity, ignored bool, err error) {
	d := blueprint.Direction(r.Direction)
	if d < blueprint.North || d > blueprint.Northwest {
		return nil, false, fmt.Errorf("%w: direction %d out of range", ErrMalformedBlueprintString, r.Direction)
	}
	opts := []blueprint.EntityOption{
		blueprint.At(r.Position.X, r.Position.Y),
		blueprint.WithAttributes(r.Attributes),
		blueprint.WithTags(r.Tags),
	}
	if d != blueprint.North {
		if proto, ok := cat.Entity(r.Name); ok && proto.Rotation == blueprint.RotationNone {
			ignored = true
		} else {
			opts = append(opts, blueprint.Facing(d))
		}
	}
	if r.Orientation != 0 {
		opts = append(opts, blueprint.Oriented(r.Orientation))
	}
	e, err = blueprint.NewEntity(cat, r.Name, opts...)
	if errors.Is(err, blueprint.ErrInvalidDirection) {
		return nil, false, fmt.Errorf("%w: %w", ErrMalformedBlueprintString, err)
	}
	return e, ignored, err
}

func lookup(flat []*blueprint.Entity, k int) (*blueprint.Entity, error) {
	if k < 1 || k > len(flat) {
		return nil, fmt.Errorf("entity_number %d of %d: %w", k, len(flat), blueprint.ErrInvalidAssociation)
	}
	return flat[k-1], nil
}

func associate(flat []*blueprint.Entity, k int) (blueprint.Association, error) {
	e, err := lookup(flat, k)
	if err != nil {
		return blueprint.Association{}, err
	}
	return blueprint.NewAssociation(e)
}

func restoreWires(e *blueprint.Entity, r EntityRecord, flat []*blueprint.Entity) error {
	if len(r.Neighbours) > 0 {
		list := make([]blueprint.Association, 0, len(r.Neighbours))
		for _, k := range r.Neighbours {
			a, err := associate(flat, k)
			if err != nil {
				return err
			}
			list = append(list, a)
		}
		e.SetNeighbours(list)
	}
	cn := r.Connections
	if cn == nil {
		return nil
	}

	for _, side := range sides {
		pt := cn.Side1
		copper := cn.Cu0
		if side == 2 {
			pt, copper = cn.Side2, cn.Cu1
		}
		if pt != nil {
			for _, color := range colors {
				targets := pt.Red
				if color == blueprint.Green {
					targets = pt.Green
				}
				links := make([]blueprint.CircuitLink, 0, len(targets))
				for _, t := range targets {
					a, err := associate(flat, t.EntityID)
					if err != nil {
						return err
					}
					id := t.CircuitID
					if id == 0 {
						id = 1
					}
					links = append(links, blueprint.CircuitLink{Target: a, CircuitID: id})
				}
				if err := e.SetCircuitLinks(side, color, links); err != nil {
					return err
				}
			}
		}

		list := make([]blueprint.Association, 0, len(copper))
		for _, t := range copper {
			a, err := associate(flat, t.EntityID)
			if err != nil {
				return err
			}
			list = append(list, a)
		}
		if err := e.SetCopperLinks(side, list); err != nil {
			return err
		}
	}
	return nil
}
