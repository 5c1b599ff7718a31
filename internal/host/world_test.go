package host

import (
	"testing"

	"github.com/vovakirdan/beltline/internal/belt"
)

var (
	steel = &belt.ItemDef{Name: "Steel", DropSound: "drop_metal"}
	slate = &belt.ItemDef{Name: "ChunkSlate", DropSound: "drop_stone", Rubble: true}
)

func TestCanPlace(t *testing.T) {
	w := New(4, 3, []belt.Coord{belt.C(1, 1)})
	it := belt.NewItem("a", steel, 1)

	tests := []struct {
		pos  belt.Coord
		want bool
	}{
		{belt.C(0, 0), true},
		{belt.C(3, 2), true},
		{belt.C(4, 0), false},
		{belt.C(0, 3), false},
		{belt.C(-1, 0), false},
		{belt.C(1, 1), false},
		{belt.NoDestination, false},
	}
	for _, tt := range tests {
		if got := w.CanPlace(it, tt.pos); got != tt.want {
			t.Errorf("CanPlace(%s) = %v, want %v", tt.pos, got, tt.want)
		}
	}
	if w.CanPlace(nil, belt.C(0, 0)) {
		t.Error("CanPlace(nil) should be false")
	}
}

func TestPlaceMergesSameDefinition(t *testing.T) {
	w := New(0, 0, nil)
	a := belt.NewItem("a", steel, 3)
	b := belt.NewItem("b", steel, 2)
	c := belt.NewItem("c", slate, 1)

	if got, ok := w.Place(a, belt.C(0, 0), belt.PlaceDirect); !ok || got != a {
		t.Fatalf("Place(a) = %v, %v", got, ok)
	}
	got, ok := w.Place(b, belt.C(0, 0), belt.PlaceDirect)
	if !ok || got != a {
		t.Fatalf("Place(b) = %v, %v; want merge into a", got, ok)
	}
	if a.Count != 5 {
		t.Errorf("merged Count = %d, want 5", a.Count)
	}
	if _, ok := w.Place(c, belt.C(0, 0), belt.PlaceDirect); ok {
		t.Error("different definitions must not share a cell")
	}

	st := w.Stats()
	if st.Placed != 1 || st.Merged != 1 {
		t.Errorf("Stats() = %+v, want 1 placed, 1 merged", st)
	}
}

func TestPlaceNear(t *testing.T) {
	w := New(0, 0, []belt.Coord{belt.C(5, 5)})
	it := belt.NewItem("a", slate, 1)

	got, ok := w.Place(it, belt.C(5, 5), belt.PlaceNear)
	if !ok || got != it {
		t.Fatalf("Place() = %v, %v", got, ok)
	}
	if w.ItemAt(belt.C(4, 6)) != it {
		t.Error("near placement should start at the north-west corner of the first ring")
	}

	w2 := New(0, 0, []belt.Coord{belt.C(0, 0)}, WithNearRadius(0))
	if _, ok := w2.Place(belt.NewItem("b", slate, 1), belt.C(0, 0), belt.PlaceNear); ok {
		t.Error("radius 0 must not search")
	}
}

func TestPlaceNearGivesUp(t *testing.T) {
	w := New(1, 1, []belt.Coord{belt.C(0, 0)})
	if _, ok := w.Place(belt.NewItem("a", steel, 1), belt.C(0, 0), belt.PlaceNear); ok {
		t.Error("nothing fits on a fully blocked 1x1 ground")
	}
}

func TestRing(t *testing.T) {
	for r := 1; r <= 3; r++ {
		cells := ring(belt.C(10, -4), r)
		if len(cells) != 8*r {
			t.Errorf("ring(%d) has %d cells, want %d", r, len(cells), 8*r)
		}
		seen := make(map[belt.Coord]bool)
		for _, c := range cells {
			if seen[c] {
				t.Errorf("ring(%d) repeats %s", r, c)
			}
			seen[c] = true
			dx, dz := abs(c.X-10), abs(c.Z+4)
			if max(dx, dz) != r {
				t.Errorf("ring(%d) contains %s at distance %d", r, c, max(dx, dz))
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestEffectsAndEventLog(t *testing.T) {
	w := New(0, 0, nil, WithEventLog(3))

	w.PlaySound("drop_metal", belt.C(1, 1))
	w.PushHeat(belt.C(0, 0), 4)
	w.PushHeat(belt.C(0, 0), 2)
	w.ThrowPuffs(belt.C(0, 0), 5)

	st := w.Stats()
	if st.Sounds != 1 || st.Puffs != 5 || st.HeatTotal != 6 {
		t.Errorf("Stats() = %+v", st)
	}
	if w.Heat(belt.C(0, 0)) != 6 {
		t.Errorf("Heat() = %v, want 6", w.Heat(belt.C(0, 0)))
	}

	events := w.Events()
	if len(events) != 3 {
		t.Fatalf("Events() = %d, want 3 (capped)", len(events))
	}
	if events[0].Kind != EventHeat || events[2].Kind != EventPuff {
		t.Errorf("Events() = %v, want oldest entry dropped", events)
	}

	w.Cool(0.5)
	if w.Heat(belt.C(0, 0)) != 3 {
		t.Errorf("Heat() after Cool = %v, want 3", w.Heat(belt.C(0, 0)))
	}
	w.Cool(0)
	if w.Heat(belt.C(0, 0)) != 0 {
		t.Error("cooled cells should be forgotten")
	}
}

func TestHaulsOnce(t *testing.T) {
	w := New(0, 0, nil)
	it := belt.NewItem("rubble-1", slate, 1)
	if w.HasHaul(it) {
		t.Fatal("fresh item should not be flagged")
	}
	w.AddHaul(it)
	w.AddHaul(it)
	if !w.HasHaul(it) {
		t.Error("item should be flagged")
	}
	if w.Stats().Hauls != 1 {
		t.Errorf("Hauls = %d, want 1", w.Stats().Hauls)
	}
	if got := w.Hauls(); len(got) != 1 || got[0] != "rubble-1" {
		t.Errorf("Hauls() = %v", got)
	}
}

func TestRestoreHaulIsQuiet(t *testing.T) {
	w := New(0, 0, nil, WithEventLog(4))
	w.RestoreHaul("rubble-1")
	w.RestoreHaul("")

	if !w.HasHaul(belt.NewItem("rubble-1", slate, 1)) {
		t.Error("restored haul should be flagged")
	}
	if got := w.Hauls(); len(got) != 1 || got[0] != "rubble-1" {
		t.Errorf("Hauls() = %v, want [rubble-1]", got)
	}
	if w.Stats().Hauls != 0 {
		t.Errorf("Hauls = %d, want 0 for a restored flag", w.Stats().Hauls)
	}
	if len(w.Events()) != 0 {
		t.Errorf("Events() = %v, want none", w.Events())
	}

	w.AddHaul(belt.NewItem("rubble-1", slate, 1))
	if w.Stats().Hauls != 0 {
		t.Error("flagging a restored haul again should not count")
	}
}

func TestHasItem(t *testing.T) {
	w := New(4, 4, nil)
	w.Restore(belt.C(2, 1), belt.NewItem("c", steel, 1))
	if !w.HasItem("c") {
		t.Error("HasItem(c) = false, want true")
	}
	if w.HasItem("d") {
		t.Error("HasItem(d) = true, want false")
	}
}

func TestItemsOrderedAndTake(t *testing.T) {
	w := New(0, 0, nil)
	w.Restore(belt.C(2, 1), belt.NewItem("c", steel, 1))
	w.Restore(belt.C(5, 0), belt.NewItem("b", steel, 1))
	w.Restore(belt.C(1, 0), belt.NewItem("a", steel, 1))

	items := w.Items()
	var ids []string
	for _, gi := range items {
		ids = append(ids, gi.Item.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("Items() order = %v, want [a b c]", ids)
	}
	if it := w.Take(belt.C(5, 0)); it == nil || it.ID != "b" {
		t.Errorf("Take() = %v", it)
	}
	if w.ItemAt(belt.C(5, 0)) != nil {
		t.Error("Take() should clear the cell")
	}
}

func TestWorldDrivesSimulation(t *testing.T) {
	w := New(10, 3, nil)
	opts := belt.DefaultOptions()
	opts.DefaultSpeed = 2
	sim := belt.NewSim(w.Host(), opts)
	seg := sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(0, 1), Rot: belt.RotEast})
	sim.MustSpawn(belt.SegmentSpec{Pos: belt.C(1, 1), Rot: belt.RotEast})

	it := belt.NewItem("r", slate, 1)
	it.Forbidden = true
	seg.Container().Add(it)
	for i := 0; i < 10; i++ {
		sim.Step()
	}

	if w.ItemAt(belt.C(2, 1)) != it {
		t.Fatal("item should reach the ground at (2,1)")
	}
	if it.Forbidden {
		t.Error("dropped item should be unforbidden")
	}
	if !w.HasHaul(it) {
		t.Error("dropped rubble should be flagged for hauling")
	}
	if st := w.Stats(); st.Sounds != 1 || st.Placed != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}
