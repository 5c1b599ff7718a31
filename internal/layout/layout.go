// Package layout loads belt layouts from YAML files. A layout is checked
// against an embedded JSON schema first and then semantically, and can be
// expanded into segment specs for a belt simulation.
package layout

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/beltline/internal/belt"
)

//go:embed layout.schema.json
var schemaJSON string

const schemaURL = "layout.schema.json"

var schema = jsonschema.MustCompileString(schemaURL, schemaJSON)

// Point is an [x, z] cell position.
type Point [2]int

// Coord converts the point to a belt coordinate.
func (p Point) Coord() belt.Coord {
	return belt.C(p[0], p[1])
}

// Layout is a parsed layout file.
type Layout struct {
	ID       string             `yaml:"id"`
	Name     string             `yaml:"name"`
	Ground   Ground             `yaml:"ground"`
	Items    map[string]ItemDef `yaml:"items"`
	Segments []Segment          `yaml:"segments"`
	Feeders  []Feeder           `yaml:"feeders"`
}

// Ground bounds the map. A zero width or height leaves that axis unbounded.
type Ground struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Blocked []Point `yaml:"blocked"`
}

// ItemDef is the per-definition item data.
type ItemDef struct {
	DropSound string `yaml:"drop_sound"`
	Rubble    bool   `yaml:"rubble"`
}

// Segment describes one belt segment, or a straight run of plain belts
// when Length > 1.
type Segment struct {
	Pos            Point  `yaml:"pos"`
	Rot            string `yaml:"rot"`
	Role           string `yaml:"role"`
	Length         int    `yaml:"length"`
	Speed          int    `yaml:"speed"`
	Capacity       int    `yaml:"capacity"`
	OutputToGround *bool  `yaml:"output_to_ground"`
	Powered        *bool  `yaml:"powered"`
	Items          []Item `yaml:"items"`
}

// Item is an item placed on a segment at start.
type Item struct {
	Def     string `yaml:"def"`
	ID      string `yaml:"id"`
	Count   int    `yaml:"count"`
	Counter int    `yaml:"counter"`
}

// Feeder drops Count new items of Def onto the segment at Pos every Every
// ticks, up to Limit items in total (0 = unlimited).
type Feeder struct {
	Pos   Point  `yaml:"pos"`
	Def   string `yaml:"def"`
	Every int    `yaml:"every"`
	Count int    `yaml:"count"`
	Limit int    `yaml:"limit"`
}

// Placement is one expanded segment ready to spawn.
type Placement struct {
	Spec  belt.SegmentSpec
	Items []Item
}

// Load reads and parses a layout file.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout: cannot read %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("layout: %s: %w", path, err)
	}
	return l, nil
}

// Parse validates data against the layout schema, decodes it and runs the
// semantic checks.
func Parse(data []byte) (*Layout, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// validateSchema round-trips the YAML document through JSON so the schema
// validator sees plain JSON values.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("empty layout")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// ValidationError lists every semantic problem found in a layout.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid layout: " + strings.Join(e.Problems, "; ")
}

// Validate checks what the schema cannot express: overlapping cells,
// unknown item definitions, duplicate item IDs, capacity and bounds.
func (l *Layout) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if l.ID == "" {
		addf("missing id")
	}

	for _, p := range l.Ground.Blocked {
		if !l.InBounds(p.Coord()) {
			addf("blocked cell %s outside ground", p.Coord())
		}
	}

	occupied := make(map[belt.Coord]int)
	itemIDs := make(map[string]bool)
	for i, seg := range l.Segments {
		role, ok := belt.ParseRole(seg.Role)
		if !ok {
			addf("segment %d: unknown role %q", i, seg.Role)
		}
		if _, ok := parseRot(seg.Rot); !ok {
			addf("segment %d: unknown rot %q", i, seg.Rot)
		}
		if seg.Length > 1 && role != belt.RolePlain {
			addf("segment %d: length is only allowed on plain belts", i)
		}
		capacity := seg.Capacity
		if capacity < 1 {
			capacity = 1
		}
		if seg.Capacity > 0 && len(seg.Items) > capacity {
			addf("segment %d: %d items exceed capacity %d", i, len(seg.Items), capacity)
		}

		for _, c := range seg.cells() {
			if prev, dup := occupied[c]; dup {
				addf("segment %d: cell %s already used by segment %d", i, c, prev)
			} else {
				occupied[c] = i
			}
			if !l.InBounds(c) {
				addf("segment %d: cell %s outside ground", i, c)
			}
		}

		for _, it := range seg.Items {
			if _, ok := l.Items[it.Def]; !ok {
				addf("segment %d: unknown item def %q", i, it.Def)
			}
			if it.ID == "" {
				continue
			}
			if itemIDs[it.ID] {
				addf("segment %d: duplicate item id %q", i, it.ID)
			}
			itemIDs[it.ID] = true
		}
	}

	for i, f := range l.Feeders {
		if _, ok := occupied[f.Pos.Coord()]; !ok {
			addf("feeder %d: no segment at %s", i, f.Pos.Coord())
		}
		if _, ok := l.Items[f.Def]; !ok {
			addf("feeder %d: unknown item def %q", i, f.Def)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// InBounds reports whether c lies on the ground.
func (l *Layout) InBounds(c belt.Coord) bool {
	if l.Ground.Width > 0 && (c.X < 0 || c.X >= l.Ground.Width) {
		return false
	}
	if l.Ground.Height > 0 && (c.Z < 0 || c.Z >= l.Ground.Height) {
		return false
	}
	return true
}

// ItemDefs returns the item definitions keyed by name.
func (l *Layout) ItemDefs() map[string]*belt.ItemDef {
	out := make(map[string]*belt.ItemDef, len(l.Items))
	for name, d := range l.Items {
		out[name] = &belt.ItemDef{Name: name, DropSound: d.DropSound, Rubble: d.Rubble}
	}
	return out
}

// Placements expands the layout into segment specs in file order. Runs
// are expanded along their facing; their items go on the first cell.
func (l *Layout) Placements() []Placement {
	var out []Placement
	for _, seg := range l.Segments {
		role, _ := belt.ParseRole(seg.Role)
		rot, _ := parseRot(seg.Rot)
		for i, c := range seg.cells() {
			p := Placement{Spec: belt.SegmentSpec{
				Pos:      c,
				Rot:      rot,
				Role:     role,
				Speed:    seg.Speed,
				Capacity: seg.Capacity,
			}}
			if seg.OutputToGround != nil && !*seg.OutputToGround {
				p.Spec.NoGroundOutput = true
			}
			if seg.Powered != nil && !*seg.Powered {
				p.Spec.Unpowered = true
			}
			if i == 0 {
				p.Items = seg.Items
			}
			out = append(out, p)
		}
	}
	return out
}

func (s Segment) cells() []belt.Coord {
	n := s.Length
	if n < 1 {
		n = 1
	}
	rot, _ := parseRot(s.Rot)
	step := rot.FacingCell()
	out := make([]belt.Coord, 0, n)
	c := s.Pos.Coord()
	for i := 0; i < n; i++ {
		out = append(out, c)
		c = c.Add(step)
	}
	return out
}

// parseRot defaults an empty rotation to north.
func parseRot(s string) (belt.Rot, bool) {
	if s == "" {
		return belt.RotNorth, true
	}
	return belt.ParseRot(s)
}
