package belt

import "fmt"

// ItemState is the persisted form of an item.
type ItemState struct {
	ID        string
	Def       string
	Count     int
	Forbidden bool
}

// SegmentState is the persisted form of a segment and its container.
// Counters map item ID to counter. Pairings are not persisted.
type SegmentState struct {
	Pos            Coord
	Rot            Rot
	Role           Role
	Speed          int
	Capacity       int
	OutputToGround bool
	Powered        bool
	Items          []ItemState
	Counters       map[string]int
}

// WorldState is the persisted form of a Sim. RandDraws is the position
// of the effects stream.
type WorldState struct {
	Tick      uint64
	RandDraws uint64
	Segments  []SegmentState
}

// ExportItem converts an item to its persisted form.
func ExportItem(it *Item) ItemState {
	return ItemState{
		ID:        it.ID,
		Def:       it.DefName(),
		Count:     it.Count,
		Forbidden: it.Forbidden,
	}
}

// Export captures segments in spawn order with their contents and counters.
func (s *Sim) Export() WorldState {
	ws := WorldState{Tick: s.tick, RandDraws: s.rng.Draws(), Segments: make([]SegmentState, 0, len(s.order))}
	for _, seg := range s.order {
		items := seg.container.Contents()
		st := SegmentState{
			Pos:            seg.Pos,
			Rot:            seg.Rot,
			Role:           seg.Role,
			Speed:          seg.Speed,
			Capacity:       seg.container.Capacity(),
			OutputToGround: seg.OutputToGround,
			Powered:        seg.Powered,
			Items:          make([]ItemState, 0, len(items)),
			Counters:       seg.container.Counters(),
		}
		for _, it := range items {
			st.Items = append(st.Items, ExportItem(it))
		}
		ws.Segments = append(ws.Segments, st)
	}
	return ws
}

// Restore rebuilds an empty Sim from ws. Segments re-register in their
// saved order, which rebuilds the pairing index, and the effects stream
// continues from its saved position. defs resolves item
// definition names; unknown names get a bare definition.
func (s *Sim) Restore(ws WorldState, defs func(name string) *ItemDef) error {
	if len(s.order) > 0 {
		return fmt.Errorf("belt: restore into a non-empty simulation")
	}

	for _, st := range ws.Segments {
		seg, err := s.Spawn(SegmentSpec{
			Pos:            st.Pos,
			Rot:            st.Rot,
			Role:           st.Role,
			Speed:          st.Speed,
			Capacity:       st.Capacity,
			NoGroundOutput: !st.OutputToGround,
			Unpowered:      !st.Powered,
		})
		if err != nil {
			return fmt.Errorf("belt: restore segment %s: %w", st.Pos, err)
		}

		items := make([]*Item, 0, len(st.Items))
		for _, is := range st.Items {
			items = append(items, RestoreItem(is, defs))
		}
		if dropped := seg.container.Load(items, st.Counters); dropped > 0 {
			s.logger.Debug("dropped counters without items", "segment", seg.ID, "count", dropped)
		}
	}

	s.tick = ws.Tick
	s.rng = NewRand(s.opts.Seed, ws.RandDraws)
	return nil
}

// RestoreItem converts a persisted item back to a handle.
func RestoreItem(is ItemState, defs func(name string) *ItemDef) *Item {
	var def *ItemDef
	if defs != nil {
		def = defs(is.Def)
	}
	if def == nil && is.Def != "" {
		def = &ItemDef{Name: is.Def}
	}
	it := NewItem(is.ID, def, is.Count)
	it.Forbidden = is.Forbidden
	return it
}
