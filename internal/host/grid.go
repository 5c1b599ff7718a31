// Package host is a reference in-memory world for the belt simulation:
// a bounded ground grid holding dropped items, plus recorders for sounds,
// heat, air puffs and haul designations.
package host

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/beltline/internal/belt"
)

// DefaultNearRadius is how far Near placement searches around the target.
const DefaultNearRadius = 2

// World implements belt.Ground, belt.Effects and belt.Designations.
// One item stack occupies a ground cell; dropping an item of the same
// definition onto a stack merges into it.
type World struct {
	width, height int
	nearRadius    int
	blocked       map[belt.Coord]bool
	ground        map[belt.Coord]*belt.Item
	hauls         map[string]bool
	heat          map[belt.Coord]float64
	logger        *log.Logger

	events []Event
	maxLog int
	stats  Stats
}

// Stats aggregates what happened on the ground since the world was created.
type Stats struct {
	Placed    int     // Items placed on an empty cell
	Merged    int     // Items absorbed into an existing stack
	Sounds    int     // Drop sounds played
	Puffs     int     // Air puffs thrown
	HeatTotal float64 // Heat pushed in total
	Hauls     int     // Haul designations added
}

// Option configures a World.
type Option func(*World)

// WithNearRadius sets the Near placement search radius.
func WithNearRadius(r int) Option {
	return func(w *World) {
		if r >= 0 {
			w.nearRadius = r
		}
	}
}

// WithLogger sets the logger used for effect tracing.
func WithLogger(l *log.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithEventLog keeps the last n effect events for viewers.
func WithEventLog(n int) Option {
	return func(w *World) {
		w.maxLog = n
	}
}

// New creates a world. A zero width or height leaves that axis unbounded.
func New(width, height int, blocked []belt.Coord, opts ...Option) *World {
	w := &World{
		width:      width,
		height:     height,
		nearRadius: DefaultNearRadius,
		blocked:    make(map[belt.Coord]bool, len(blocked)),
		ground:     make(map[belt.Coord]*belt.Item),
		hauls:      make(map[string]bool),
		heat:       make(map[belt.Coord]float64),
		logger:     log.New(io.Discard),
	}
	for _, c := range blocked {
		w.blocked[c] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Host bundles the world into the service set a belt.Sim expects.
func (w *World) Host() belt.Host {
	return belt.Host{Ground: w, Effects: w, Designations: w}
}

// Size returns the ground dimensions.
func (w *World) Size() (width, height int) {
	return w.width, w.height
}

// InBounds reports whether c lies on the ground.
func (w *World) InBounds(c belt.Coord) bool {
	if !c.Valid() {
		return false
	}
	if w.width > 0 && (c.X < 0 || c.X >= w.width) {
		return false
	}
	if w.height > 0 && (c.Z < 0 || c.Z >= w.height) {
		return false
	}
	return true
}

// Blocked reports whether c is impassable.
func (w *World) Blocked(c belt.Coord) bool {
	return w.blocked[c]
}

// CanPlace reports whether it can be placed directly at pos: the cell is
// on the ground, not blocked and either empty or holding the same kind.
func (w *World) CanPlace(it *belt.Item, pos belt.Coord) bool {
	if it == nil || !w.InBounds(pos) || w.blocked[pos] {
		return false
	}
	cur := w.ground[pos]
	return cur == nil || mergeable(cur, it)
}

// Place puts it on the ground at pos. Near placement searches rings around
// pos out to the near radius, in a fixed order.
func (w *World) Place(it *belt.Item, pos belt.Coord, mode belt.PlaceMode) (*belt.Item, bool) {
	if w.CanPlace(it, pos) {
		return w.put(it, pos), true
	}
	if mode != belt.PlaceNear || !pos.Valid() {
		return nil, false
	}
	for r := 1; r <= w.nearRadius; r++ {
		for _, c := range ring(pos, r) {
			if w.CanPlace(it, c) {
				return w.put(it, c), true
			}
		}
	}
	return nil, false
}

func (w *World) put(it *belt.Item, pos belt.Coord) *belt.Item {
	if cur := w.ground[pos]; cur != nil {
		cur.Count += it.Count
		w.stats.Merged++
		w.record(EventMerge, pos, it.ID)
		return cur
	}
	w.ground[pos] = it
	w.stats.Placed++
	w.record(EventPlace, pos, it.ID)
	return it
}

// ItemAt returns the stack at c, or nil.
func (w *World) ItemAt(c belt.Coord) *belt.Item {
	return w.ground[c]
}

// Take removes and returns the stack at c.
func (w *World) Take(c belt.Coord) *belt.Item {
	it := w.ground[c]
	delete(w.ground, c)
	return it
}

// GroundItem is a stack lying on a cell.
type GroundItem struct {
	Pos  belt.Coord
	Item *belt.Item
}

// Items returns every ground stack ordered by Z, then X.
func (w *World) Items() []GroundItem {
	out := make([]GroundItem, 0, len(w.ground))
	for c, it := range w.ground {
		out = append(out, GroundItem{Pos: c, Item: it})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.Z != out[j].Pos.Z {
			return out[i].Pos.Z < out[j].Pos.Z
		}
		return out[i].Pos.X < out[j].Pos.X
	})
	return out
}

// HasItem reports whether a ground stack carries id.
func (w *World) HasItem(id string) bool {
	for _, it := range w.ground {
		if it.ID == id {
			return true
		}
	}
	return false
}

// Restore puts a stack back on the ground without merging or recording.
func (w *World) Restore(pos belt.Coord, it *belt.Item) {
	w.ground[pos] = it
}

// Stats returns the accumulated counters.
func (w *World) Stats() Stats {
	return w.stats
}

func mergeable(a, b *belt.Item) bool {
	return a.Def != nil && a.Def == b.Def
}

// ring returns the cells at Chebyshev distance r around c, starting at
// the north-west corner and going clockwise.
func ring(c belt.Coord, r int) []belt.Coord {
	out := make([]belt.Coord, 0, 8*r)
	for x := -r; x <= r; x++ {
		out = append(out, belt.C(c.X+x, c.Z+r))
	}
	for z := r - 1; z >= -r; z-- {
		out = append(out, belt.C(c.X+r, c.Z+z))
	}
	for x := r - 1; x >= -r; x-- {
		out = append(out, belt.C(c.X+x, c.Z-r))
	}
	for z := -r + 1; z < r; z++ {
		out = append(out, belt.C(c.X-r, c.Z+z))
	}
	return out
}
