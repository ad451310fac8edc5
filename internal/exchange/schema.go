package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Schema is the decoded JSON form of an exchange string. Only the
// "blueprint" item is understood; other items decode far enough to be
// rejected with ErrIncorrectBlueprintType.
type Schema struct {
	Blueprint *BlueprintRecord `json:"blueprint"`
}

type BlueprintRecord struct {
	Item        string           `json:"item"`
	Label       string           `json:"label,omitempty"`
	Description string           `json:"description,omitempty"`
	Icons       []IconRecord     `json:"icons,omitempty"`
	Entities    []EntityRecord   `json:"entities,omitempty"`
	Tiles       []TileRecord     `json:"tiles,omitempty"`
	Schedules   []ScheduleRecord `json:"schedules,omitempty"`
	Version     uint64           `json:"version"`
}

type SignalRecord struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type IconRecord struct {
	Signal SignalRecord `json:"signal"`
	Index  int          `json:"index"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TilePosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type TileRecord struct {
	Name     string       `json:"name"`
	Position TilePosition `json:"position"`
}

// ScheduleRecord names its locomotives by entity_number.
type ScheduleRecord struct {
	Locomotives []int            `json:"locomotives"`
	Schedule    []map[string]any `json:"schedule,omitempty"`
}

// CircuitTarget is one end of a red or green wire. CircuitID is omitted on
// the wire when the target has a single circuit side.
type CircuitTarget struct {
	EntityID  int `json:"entity_id"`
	CircuitID int `json:"circuit_id,omitempty"`
}

type CopperTarget struct {
	EntityID int `json:"entity_id"`
	WireID   int `json:"wire_id"`
}

type ConnectionPoint struct {
	Red   []CircuitTarget `json:"red,omitempty"`
	Green []CircuitTarget `json:"green,omitempty"`
}

type Connections struct {
	Side1 *ConnectionPoint `json:"1,omitempty"`
	Side2 *ConnectionPoint `json:"2,omitempty"`
	Cu0   []CopperTarget   `json:"Cu0,omitempty"`
	Cu1   []CopperTarget   `json:"Cu1,omitempty"`
}

// EntityRecord is one entry of the flat entity list. Keys the codec does not
// know about travel in Attributes and are written back inline.
type EntityRecord struct {
	EntityNumber int
	Name         string
	Position     Position
	Direction    int
	Orientation  float64
	Neighbours   []int
	Connections  *Connections
	Tags         map[string]any
	Attributes   map[string]any
}

func (r EntityRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Attributes)+8)
	for k, v := range r.Attributes {
		out[k] = v
	}
	out["entity_number"] = r.EntityNumber
	out["name"] = r.Name
	out["position"] = r.Position
	if r.Direction != 0 {
		out["direction"] = r.Direction
	}
	if r.Orientation != 0 {
		out["orientation"] = r.Orientation
	}
	if len(r.Neighbours) > 0 {
		out["neighbours"] = r.Neighbours
	}
	if r.Connections != nil {
		out["connections"] = r.Connections
	}
	if len(r.Tags) > 0 {
		out["tags"] = r.Tags
	}
	return json.Marshal(out)
}

var requiredEntityKeys = []string{"entity_number", "name", "position"}

func (r *EntityRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range requiredEntityKeys {
		if _, ok := raw[k]; !ok {
			return fmt.Errorf("entity without %q", k)
		}
	}

	*r = EntityRecord{}
	for k, v := range raw {
		var err error
		switch k {
		case "entity_number":
			err = json.Unmarshal(v, &r.EntityNumber)
		case "name":
			err = json.Unmarshal(v, &r.Name)
		case "position":
			err = json.Unmarshal(v, &r.Position)
		case "direction":
			err = json.Unmarshal(v, &r.Direction)
		case "orientation":
			err = json.Unmarshal(v, &r.Orientation)
		case "neighbours":
			err = json.Unmarshal(v, &r.Neighbours)
		case "connections":
			r.Connections = new(Connections)
			err = json.Unmarshal(v, r.Connections)
		case "tags":
			var val any
			if val, err = decodeValue(v); err == nil {
				m, ok := val.(map[string]any)
				if !ok && val != nil {
					err = errors.New("tags must be an object")
				}
				r.Tags = m
			}
		default:
			var val any
			if val, err = decodeValue(v); err == nil {
				if r.Attributes == nil {
					r.Attributes = make(map[string]any)
				}
				r.Attributes[k] = val
			}
		}
		if err != nil {
			return fmt.Errorf("entity field %q: %w", k, err)
		}
	}
	return nil
}

// decodeValue keeps numbers as json.Number so integers survive unchanged.
func decodeValue(raw json.RawMessage) (any, error) {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
