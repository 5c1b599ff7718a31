package host

import (
	"fmt"
	"sort"

	"github.com/vovakirdan/beltline/internal/belt"
)

// EventKind classifies a recorded world event.
type EventKind uint8

const (
	EventPlace EventKind = iota
	EventMerge
	EventSound
	EventHeat
	EventPuff
	EventHaul
)

// String returns the string representation of an event kind.
func (k EventKind) String() string {
	switch k {
	case EventPlace:
		return "place"
	case EventMerge:
		return "merge"
	case EventSound:
		return "sound"
	case EventHeat:
		return "heat"
	case EventPuff:
		return "puff"
	case EventHaul:
		return "haul"
	default:
		return "unknown"
	}
}

// Event is one entry of the world's event log.
type Event struct {
	Kind   EventKind
	Pos    belt.Coord
	Detail string
}

// String returns a one-line description of the event.
func (e Event) String() string {
	return fmt.Sprintf("%-5s %s %s", e.Kind, e.Pos, e.Detail)
}

func (w *World) record(kind EventKind, pos belt.Coord, detail string) {
	w.logger.Debug("world event", "kind", kind, "pos", pos, "detail", detail)
	if w.maxLog <= 0 {
		return
	}
	w.events = append(w.events, Event{Kind: kind, Pos: pos, Detail: detail})
	if over := len(w.events) - w.maxLog; over > 0 {
		w.events = append(w.events[:0], w.events[over:]...)
	}
}

// Events returns the retained event log, oldest first.
func (w *World) Events() []Event {
	return append([]Event(nil), w.events...)
}

// PlaySound records a sound played at pos.
func (w *World) PlaySound(sound string, pos belt.Coord) {
	w.stats.Sounds++
	w.record(EventSound, pos, sound)
}

// PushHeat adds heat to the cell at pos.
func (w *World) PushHeat(pos belt.Coord, amount float64) {
	w.heat[pos] += amount
	w.stats.HeatTotal += amount
	w.record(EventHeat, pos, fmt.Sprintf("%+.1f", amount))
}

// ThrowPuffs records n air puffs at pos.
func (w *World) ThrowPuffs(pos belt.Coord, n int) {
	w.stats.Puffs += n
	w.record(EventPuff, pos, fmt.Sprintf("x%d", n))
}

// HasHaul reports whether the item is already flagged for hauling.
func (w *World) HasHaul(it *belt.Item) bool {
	return it != nil && w.hauls[it.ID]
}

// AddHaul flags the item for hauling.
func (w *World) AddHaul(it *belt.Item) {
	if it == nil || w.hauls[it.ID] {
		return
	}
	w.hauls[it.ID] = true
	w.stats.Hauls++
	w.record(EventHaul, w.posOf(it), it.ID)
}

// RestoreHaul flags id for hauling without counting or recording it.
func (w *World) RestoreHaul(id string) {
	if id != "" {
		w.hauls[id] = true
	}
}

// Hauls returns the IDs of items flagged for hauling, sorted.
func (w *World) Hauls() []string {
	out := make([]string, 0, len(w.hauls))
	for id := range w.hauls {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Heat returns the heat currently at pos.
func (w *World) Heat(pos belt.Coord) float64 {
	return w.heat[pos]
}

// Cool multiplies every cell's heat by factor and forgets cells that
// dropped below 0.01.
func (w *World) Cool(factor float64) {
	for c, h := range w.heat {
		h *= factor
		if h < 0.01 {
			delete(w.heat, c)
			continue
		}
		w.heat[c] = h
	}
}

func (w *World) posOf(it *belt.Item) belt.Coord {
	for c, g := range w.ground {
		if g == it {
			return c
		}
	}
	return belt.NoDestination
}
