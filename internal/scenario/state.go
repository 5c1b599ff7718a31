package scenario

import (
	"fmt"

	"github.com/vovakirdan/beltline/internal/belt"
	"github.com/vovakirdan/beltline/internal/host"
	"github.com/vovakirdan/beltline/internal/layout"
	"github.com/vovakirdan/beltline/internal/snapshot"
)

var stallReasons = []belt.StallReason{belt.StallUnpaired, belt.StallBlocked, belt.StallNoOutput, belt.StallGround}

// Snapshot captures the scenario: segments with their counters, ground
// stacks, haul flags, feeder progress and run counters.
func (s *Scenario) Snapshot() snapshot.SnapshotV1 {
	ws := s.Sim.Export()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			LayoutID: s.Layout.ID,
			Tick:     ws.Tick,
			Resident: s.Sim.Resident(),
		},
		Seed:      s.Sim.Options().Seed,
		IDDraws:   s.ids.Draws(),
		PuffDraws: ws.RandDraws,
		Segments:  snapshot.FromWorld(ws),
		Hauls:    s.World.Hauls(),
		Counters: snapshot.CountersV1{
			Spawned:       s.totals.Spawned,
			FeederBlocked: s.totals.FeederBlocked,
			Transfers:     s.totals.Transfers,
			Teleports:     s.totals.Teleports,
			Delivered:     s.totals.Delivered,
			Orphaned:      s.totals.Orphaned,
			HeldTicks:     s.totals.HeldTicks,
		},
	}
	for _, gi := range s.World.Items() {
		snap.Ground = append(snap.Ground, snapshot.GroundItemV1{
			Pos:  [2]int{gi.Pos.X, gi.Pos.Z},
			Item: snapshot.FromItemState(belt.ExportItem(gi.Item)),
		})
	}
	for i, f := range s.feeders {
		snap.Feeders = append(snap.Feeders, snapshot.FeederV1{Index: i, Emitted: f.emitted})
	}
	if len(s.totals.Stalls) > 0 {
		snap.Counters.Stalls = make(map[string]int, len(s.totals.Stalls))
		for reason, n := range s.totals.Stalls {
			snap.Counters.Stalls[reason.String()] = n
		}
	}
	return snap
}

// Resume rebuilds a scenario from a snapshot taken of the same layout.
// Segments come from the snapshot, not the layout; the layout supplies
// ground, item definitions and feeders. The item ID and effects streams
// continue from their saved positions, and generated IDs never repeat
// one already on a belt or the ground.
func Resume(l *layout.Layout, opts belt.Options, snap snapshot.SnapshotV1, hostOpts ...host.Option) (*Scenario, error) {
	if snap.Header.LayoutID != l.ID {
		return nil, fmt.Errorf("scenario: snapshot is of layout %q, not %q", snap.Header.LayoutID, l.ID)
	}

	opts.Seed = snap.Seed
	s := newEmpty(l, opts, hostOpts...)
	s.ids = newIDSource(snap.Seed, snap.IDDraws)

	ws := snapshot.ToWorld(snap.Header.Tick, snap.Segments)
	ws.RandDraws = snap.PuffDraws
	if err := s.Sim.Restore(ws, s.Def); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	for _, g := range snap.Ground {
		s.World.Restore(belt.C(g.Pos[0], g.Pos[1]), belt.RestoreItem(g.Item.ItemState(), s.Def))
	}
	for _, id := range snap.Hauls {
		s.World.RestoreHaul(id)
	}
	for _, f := range snap.Feeders {
		if f.Index >= 0 && f.Index < len(s.feeders) {
			s.feeders[f.Index].emitted = f.Emitted
		}
	}

	c := snap.Counters
	s.totals = Totals{
		Spawned:       c.Spawned,
		FeederBlocked: c.FeederBlocked,
		Transfers:     c.Transfers,
		Teleports:     c.Teleports,
		Delivered:     c.Delivered,
		Orphaned:      c.Orphaned,
		HeldTicks:     c.HeldTicks,
	}
	for _, reason := range stallReasons {
		if n := c.Stalls[reason.String()]; n > 0 {
			if s.totals.Stalls == nil {
				s.totals.Stalls = make(map[belt.StallReason]int)
			}
			s.totals.Stalls[reason] = n
		}
	}

	s.logger.Info("scenario resumed", "layout", l.ID, "tick", snap.Header.Tick, "items", s.Sim.Resident())
	return s, nil
}
