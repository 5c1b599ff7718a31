package belt_test

import (
	"testing"

	"github.com/vovakirdan/beltline/internal/belt"
)

type collected struct {
	transfers []belt.TransferEvent
	drops     []belt.DropEvent
	stalls    []belt.StallEvent
}

func run(sim *belt.Sim, steps int) collected {
	var c collected
	for i := 0; i < steps; i++ {
		res := sim.Step()
		c.transfers = append(c.transfers, res.Transfers...)
		c.drops = append(c.drops, res.Drops...)
		c.stalls = append(c.stalls, res.Stalls...)
	}
	return c
}

func TestChainDeliversToGround(t *testing.T) {
	h := newTestHost()
	sim := newSim(h, 2)
	first := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotEast})
	sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(1, 0), Rot: belt.RotEast})

	it := belt.NewItem("steel-1", steel, 10)
	first.Container().Add(it)

	c := run(sim, 10)

	if len(c.transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(c.transfers))
	}
	tr := c.transfers[0]
	if tr.From != belt.C(0, 0) || tr.To != belt.C(1, 0) || tr.Teleport {
		t.Errorf("transfer = %+v, want plain hop (0,0) -> (1,0)", tr)
	}
	if len(c.drops) != 1 || c.drops[0].Pos != belt.C(2, 0) {
		t.Fatalf("drops = %+v, want one drop at (2,0)", c.drops)
	}
	if h.ground[belt.C(2, 0)] != it {
		t.Error("item should be on the ground at (2,0)")
	}
	if sim.Resident() != 0 {
		t.Errorf("Resident() = %d, want 0", sim.Resident())
	}
	if len(h.sounds) != 1 || h.sounds[0] != "drop_metal" {
		t.Errorf("sounds = %v, want one drop_metal", h.sounds)
	}
	if sim.Ticks() != 10 {
		t.Errorf("Ticks() = %d, want 10", sim.Ticks())
	}
}

func TestItemNeverOnTwoSegments(t *testing.T) {
	h := newTestHost()
	h.blocked[belt.C(4, 0)] = true
	sim := newSim(h, 3)
	var segs []*belt.Segment
	for x := 0; x < 4; x++ {
		segs = append(segs, sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(x, 0), Rot: belt.RotEast}))
	}
	segs[0].Container().Add(belt.NewItem("a", steel, 1))

	for i := 0; i < 30; i++ {
		sim.Step()
		holders := 0
		for _, seg := range segs {
			holders += seg.Container().Len()
		}
		if holders != 1 {
			t.Fatalf("step %d: item resident on %d segments", i, holders)
		}
	}
	if segs[3].Container().Len() != 1 {
		t.Error("item should wait on the last segment in front of blocked ground")
	}
}

func TestTeleportHeatAndPuffs(t *testing.T) {
	tests := []struct {
		name       string
		researched bool
		heat       float64
		minPuffs   int
		maxPuffs   int
	}{
		{"plain", false, 4, 4, 6},
		{"researched", true, 2, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost()
			opts := belt.DefaultOptions()
			opts.DefaultSpeed = 2
			opts.HeatResearched = tt.researched
			opts.Seed = 7
			sim := belt.NewSim(h.host(), opts)

			sender := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotNorth, Role: belt.RoleSender})
			sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 4), Rot: belt.RotNorth, Role: belt.RoleReceiver})
			if sender.Speed != 6 {
				t.Errorf("sender Speed = %d, want 6", sender.Speed)
			}

			it := belt.NewItem("a", steel, 1)
			sender.Container().Add(it)
			c := run(sim, 20)

			var teleports int
			for _, tr := range c.transfers {
				if tr.Teleport {
					teleports++
					if tr.From != belt.C(0, 0) || tr.To != belt.C(0, 4) {
						t.Errorf("teleport = %+v, want (0,0) -> (0,4)", tr)
					}
				}
			}
			if teleports != 1 {
				t.Fatalf("teleports = %d, want 1", teleports)
			}
			for _, pos := range []belt.Coord{belt.C(0, 0), belt.C(0, 4)} {
				if h.heat[pos] != tt.heat {
					t.Errorf("heat at %s = %v, want %v", pos, h.heat[pos], tt.heat)
				}
				if n := h.puffs[pos]; n < tt.minPuffs || n > tt.maxPuffs {
					t.Errorf("puffs at %s = %d, want %d..%d", pos, n, tt.minPuffs, tt.maxPuffs)
				}
			}
			if h.ground[belt.C(0, 5)] != it {
				t.Error("receiver should deliver the item to (0,5)")
			}
		})
	}
}

func TestUnpairedSenderHolds(t *testing.T) {
	h := newTestHost()
	sim := newSim(h, 2)
	sender := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotNorth, Role: belt.RoleSender, Capacity: 2})

	waiting := belt.NewItem("waiting", steel, 1)
	ready := belt.NewItem("ready", steel, 1)
	sender.Container().Add(waiting)
	sender.Container().AddWithCounter(ready, sender.Speed)

	c := run(sim, 20)

	if got, _ := sender.Container().Counter(waiting); got != sender.Speed/2 {
		t.Errorf("counter = %d, want %d (stuck at half)", got, sender.Speed/2)
	}
	if len(c.transfers) != 0 || len(c.drops) != 0 {
		t.Error("unpaired sender must not move items")
	}
	if len(c.stalls) != 20 {
		t.Fatalf("stalls = %d, want one per step", len(c.stalls))
	}
	for _, st := range c.stalls {
		if st.ItemID != "ready" || st.Reason != belt.StallUnpaired {
			t.Errorf("stall = %+v, want ready/unpaired", st)
		}
	}
	if h.ground[belt.NoDestination] != nil {
		t.Error("nothing may be placed at the no-destination sentinel")
	}
}

func TestReceiverContention(t *testing.T) {
	h := newTestHost()
	h.blocked[belt.C(0, 6)] = true
	sim := newSim(h, 2)
	s1 := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotNorth, Role: belt.RoleSender})
	s2 := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 2), Rot: belt.RotNorth, Role: belt.RoleSender})
	recv := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 5), Rot: belt.RotNorth, Role: belt.RoleReceiver})

	if s1.Receiver() != recv || s2.Receiver() != recv {
		t.Fatal("both senders should pair with the shared receiver")
	}
	if s1.PowerDraw != 500 || s2.PowerDraw != 300 {
		t.Errorf("PowerDraw = %v, %v; want 500, 300", s1.PowerDraw, s2.PowerDraw)
	}

	s1.Container().AddWithCounter(belt.NewItem("a", steel, 1), s1.Speed)
	s2.Container().AddWithCounter(belt.NewItem("b", steel, 1), s2.Speed)

	res := sim.Step()
	if len(res.Transfers) != 1 || res.Transfers[0].ItemID != "a" {
		t.Fatalf("transfers = %+v, want only a", res.Transfers)
	}
	if len(res.Stalls) != 1 || res.Stalls[0].ItemID != "b" || res.Stalls[0].Reason != belt.StallBlocked {
		t.Errorf("stalls = %+v, want b blocked", res.Stalls)
	}
	if res.Resident != 2 {
		t.Errorf("Resident = %d, want 2", res.Resident)
	}
}

func TestPlainBeltCannotFeedReceiver(t *testing.T) {
	h := newTestHost()
	sim := newSim(h, 2)
	plain := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(-1, 0), Rot: belt.RotEast})
	sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotEast, Role: belt.RoleReceiver})
	plain.Container().AddWithCounter(belt.NewItem("a", steel, 1), plain.Speed)

	res := sim.Step()
	if len(res.Stalls) != 1 || res.Stalls[0].Reason != belt.StallBlocked {
		t.Errorf("stalls = %+v, want one blocked stall", res.Stalls)
	}
}

func TestStallReasons(t *testing.T) {
	tests := []struct {
		name   string
		spec   belt.SegmentSpec
		block  bool
		reason belt.StallReason
	}{
		{
			name:   "no ground output",
			spec:   belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotEast, NoGroundOutput: true},
			reason: belt.StallNoOutput,
		},
		{
			name:   "ground blocked",
			spec:   belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotEast},
			block:  true,
			reason: belt.StallGround,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHost()
			if tt.block {
				h.blocked[belt.C(1, 0)] = true
			}
			sim := newSim(h, 2)
			seg := sim.MustSpawn(tt.spec)
			seg.Container().AddWithCounter(belt.NewItem("a", steel, 1), seg.Speed)

			res := sim.Step()
			if len(res.Stalls) != 1 || res.Stalls[0].Reason != tt.reason {
				t.Errorf("stalls = %+v, want %s", res.Stalls, tt.reason)
			}
			if seg.Container().Len() != 1 {
				t.Error("stalled item must stay on its segment")
			}
		})
	}
}

func TestUnpoweredBeltRefusesItems(t *testing.T) {
	h := newTestHost()
	sim := newSim(h, 2)
	a := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotEast})
	b := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(1, 0), Rot: belt.RotEast, Unpowered: true})
	it := belt.NewItem("a", steel, 1)
	a.Container().Add(it)

	run(sim, 10)
	if !a.Container().Contains(it) {
		t.Fatal("item must wait for the unpowered belt")
	}

	b.Powered = true
	run(sim, 10)
	if a.Container().Contains(it) {
		t.Error("item should move once the belt is powered")
	}
}

func TestSpawnErrors(t *testing.T) {
	h := newTestHost()
	sim := newSim(h, 2)
	sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0)})

	tests := []struct {
		name string
		spec belt.SegmentSpec
	}{
		{"occupied cell", belt.SegmentSpec{Pos: belt.C(0, 0)}},
		{"sentinel position", belt.SegmentSpec{Pos: belt.NoDestination}},
		{"unknown role", belt.SegmentSpec{Pos: belt.C(1, 1), Role: belt.Role(9)}},
		{"unknown rotation", belt.SegmentSpec{Pos: belt.C(2, 2), Rot: belt.Rot(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sim.Spawn(tt.spec); err == nil {
				t.Error("expected error")
			}
		})
	}
	if len(sim.Segments()) != 1 {
		t.Errorf("Segments() = %d, want 1", len(sim.Segments()))
	}
}

func TestDespawnSenderDropsItems(t *testing.T) {
	h := newTestHost()
	sim := newSim(h, 2)
	sender := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 0), Rot: belt.RotNorth, Role: belt.RoleSender})
	sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 3), Rot: belt.RotNorth, Role: belt.RoleReceiver})
	it := belt.NewItem("a", chunk, 1)
	sender.Container().Add(it)

	results, err := sim.Despawn(belt.C(0, 0))
	if err != nil {
		t.Fatalf("Despawn() failed: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != belt.DropPlaced {
		t.Fatalf("results = %+v, want one placed drop", results)
	}
	if h.ground[belt.C(0, 0)] != it {
		t.Error("item should be dropped at the sender's cell")
	}
	if h.hauls["a"] != 1 {
		t.Error("dropped rubble should be flagged for hauling")
	}

	c := run(sim, 5)
	if len(c.transfers)+len(c.drops)+len(c.stalls) != 0 {
		t.Error("despawned sender must not take part in later steps")
	}
}
