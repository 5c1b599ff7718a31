package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/vovakirdan/beltline/internal/belt"
	"github.com/vovakirdan/beltline/internal/host"
	"github.com/vovakirdan/beltline/internal/layout"
)

const teleportLayout = `
id: tp
ground:
  width: 30
  height: 3
items:
  Steel:
    drop_sound: drop_metal
  ChunkGranite:
    drop_sound: drop_stone
    rubble: true
segments:
  - pos: [0, 1]
    rot: east
    length: 3
    items:
      - def: ChunkGranite
        id: first
        count: 5
  - pos: [3, 1]
    rot: east
    role: sender
  - pos: [10, 1]
    rot: east
    role: receiver
  - pos: [11, 1]
    rot: east
    length: 2
feeders:
  - pos: [0, 1]
    def: ChunkGranite
    every: 20
    limit: 5
`

func mustLayout(t *testing.T, doc string) *layout.Layout {
	t.Helper()
	l, err := layout.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("layout.Parse() failed: %v", err)
	}
	return l
}

func testOptions() belt.Options {
	opts := belt.DefaultOptions()
	opts.DefaultSpeed = 4
	opts.Seed = 42
	return opts
}

func TestNewSpawnsLayout(t *testing.T) {
	sc, err := New(mustLayout(t, teleportLayout), testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if n := len(sc.Sim.Segments()); n != 7 {
		t.Errorf("segments = %d, want 7", n)
	}
	first := sc.Sim.SegmentAt(belt.C(0, 1)).Container().Contents()
	if len(first) != 1 || first[0].ID != "first" || first[0].Count != 5 || first[0].Def != sc.Def("ChunkGranite") {
		t.Errorf("first segment holds %+v", first)
	}
	sender := sc.Sim.SegmentAt(belt.C(3, 1))
	if pos, ok := sender.ReceiverPos(); !ok || pos != belt.C(10, 1) {
		t.Errorf("sender paired to %s, want (10,1)", pos)
	}
	if sender.Speed != 12 {
		t.Errorf("sender Speed = %d, want 12", sender.Speed)
	}
}

func TestFeederIDsAreDeterministicUUIDs(t *testing.T) {
	ids := func() []string {
		sc, err := New(mustLayout(t, teleportLayout), testOptions())
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}
		var out []string
		for i := 0; i < 3; i++ {
			out = append(out, sc.ids.Next())
		}
		return out
	}

	a, b := ids(), ids()
	for i := range a {
		if _, err := uuid.Parse(a[i]); err != nil {
			t.Errorf("ID %q is not a UUID: %v", a[i], err)
		}
		if a[i] != b[i] {
			t.Errorf("ID %d differs between runs: %s vs %s", i, a[i], b[i])
		}
	}
	if a[0] == a[1] {
		t.Error("IDs must be unique")
	}
}

func TestTeleportRunDelivers(t *testing.T) {
	sc, err := New(mustLayout(t, teleportLayout), testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := sc.Run(context.Background(), 400, nil); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	tot := sc.Totals()
	if tot.Ticks != 400 {
		t.Errorf("Ticks = %d, want 400", tot.Ticks)
	}
	if tot.Spawned != 5 {
		t.Errorf("Spawned = %d, want feeder limit 5", tot.Spawned)
	}
	if tot.Delivered != 6 {
		t.Errorf("Delivered = %d, want 6", tot.Delivered)
	}
	if tot.Teleports != 6 {
		t.Errorf("Teleports = %d, want 6", tot.Teleports)
	}
	if tot.Resident != 0 {
		t.Errorf("Resident = %d, want 0", tot.Resident)
	}
	if tot.Paired != 1 || tot.Unpaired != 0 {
		t.Errorf("Paired, Unpaired = %d, %d", tot.Paired, tot.Unpaired)
	}
	if tot.Throughput() != 15 {
		t.Errorf("Throughput() = %v, want 15", tot.Throughput())
	}
	pile := sc.World.ItemAt(belt.C(13, 1))
	if pile == nil || pile.Count != 10 {
		t.Fatalf("pile at the end of the line = %+v, want 10 chunks", pile)
	}
	if st := sc.World.Stats(); st.Hauls != 1 || st.Merged != 5 {
		t.Errorf("Hauls, Merged = %d, %d; want 1, 5", st.Hauls, st.Merged)
	}
}

func TestFeederBlockedWhenBeltFull(t *testing.T) {
	doc := `
id: jam
ground:
  blocked:
    - [1, 0]
items:
  Steel: {}
segments:
  - pos: [0, 0]
    rot: east
feeders:
  - pos: [0, 0]
    def: Steel
    every: 1
`
	sc, err := New(mustLayout(t, doc), testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	var stalls int
	sc.Run(context.Background(), 10, func(r Report) { stalls += len(r.Stalls) })

	tot := sc.Totals()
	if tot.Spawned != 1 || tot.FeederBlocked != 9 {
		t.Errorf("Spawned, FeederBlocked = %d, %d; want 1, 9", tot.Spawned, tot.FeederBlocked)
	}
	if stalls != 0 {
		t.Errorf("stalls = %d; an item stuck at half threshold is never ready", stalls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	sc, err := New(mustLayout(t, teleportLayout), testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	err = sc.Run(ctx, 100, func(Report) {
		steps++
		if steps == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if steps != 3 {
		t.Errorf("steps = %d, want 3", steps)
	}
}

func TestSnapshotResume(t *testing.T) {
	l := mustLayout(t, teleportLayout)
	orig, err := New(l, testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	orig.Run(context.Background(), 57, nil)

	snap := orig.Snapshot()
	if snap.Header.LayoutID != "tp" || snap.Header.Tick != 57 {
		t.Fatalf("Header = %+v", snap.Header)
	}

	resumed, err := Resume(l, testOptions(), snap)
	if err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}

	origWS, resWS := orig.Sim.Export(), resumed.Sim.Export()
	if len(origWS.Segments) != len(resWS.Segments) {
		t.Fatalf("segments = %d, want %d", len(resWS.Segments), len(origWS.Segments))
	}
	for i := range origWS.Segments {
		oc, rc := origWS.Segments[i].Counters, resWS.Segments[i].Counters
		if len(oc) != len(rc) {
			t.Errorf("segment %d counters = %v, want %v", i, rc, oc)
			continue
		}
		for id, v := range oc {
			if rc[id] != v {
				t.Errorf("segment %d counter[%s] = %d, want %d", i, id, rc[id], v)
			}
		}
	}
	if len(resumed.World.Items()) != len(orig.World.Items()) {
		t.Errorf("ground stacks = %d, want %d", len(resumed.World.Items()), len(orig.World.Items()))
	}

	orig.Run(context.Background(), 300, nil)
	resumed.Run(context.Background(), 300, nil)
	a, b := orig.Totals(), resumed.Totals()
	if a.Delivered != b.Delivered || a.Spawned != b.Spawned || a.Teleports != b.Teleports || a.Resident != b.Resident {
		t.Errorf("resumed totals %+v diverge from %+v", b, a)
	}
}

const refeedLayout = `
id: refeed
ground:
  width: 3
  height: 1
items:
  Steel: {}
segments:
  - pos: [0, 0]
    rot: east
    capacity: 4
    items:
      - def: Steel
feeders:
  - pos: [0, 0]
    def: Steel
    every: 1
`

func TestResumeDoesNotReissueIDs(t *testing.T) {
	l := mustLayout(t, refeedLayout)
	orig, err := New(l, testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	resumed, err := Resume(l, testOptions(), orig.Snapshot())
	if err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	rep := resumed.Step()
	if rep.Spawned != 1 || rep.FeederBlocked != 0 {
		t.Errorf("Step() spawned %d, blocked %d; want 1, 0", rep.Spawned, rep.FeederBlocked)
	}
	seg := resumed.Sim.SegmentAt(belt.C(0, 0))
	if n := seg.Container().Len(); n != 2 {
		t.Fatalf("belt holds %d items, want 2", n)
	}

	orig.Step()
	a, b := orig.Sim.SegmentAt(belt.C(0, 0)).Container().Contents(), seg.Container().Contents()
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("item %d = %s, want %s as in the uninterrupted run", i, b[i].ID, a[i].ID)
		}
	}
}

func TestGeneratedIDsSkipResidentItems(t *testing.T) {
	sc, err := New(mustLayout(t, refeedLayout), testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	first := sc.Sim.SegmentAt(belt.C(0, 0)).Container().Contents()[0].ID

	// Rewind the stream so its next ID is the one already on the belt.
	sc.ids = newIDSource(testOptions().Seed, 0)
	rep := sc.Step()
	if rep.Spawned != 1 || rep.FeederBlocked != 0 {
		t.Fatalf("Step() spawned %d, blocked %d; want 1, 0", rep.Spawned, rep.FeederBlocked)
	}
	items := sc.Sim.SegmentAt(belt.C(0, 0)).Container().Contents()
	if len(items) != 2 || items[1].ID == first {
		t.Errorf("items = %v, want a second item with a fresh ID", items)
	}
}

func TestResumeRestoresHaulsQuietly(t *testing.T) {
	l := mustLayout(t, teleportLayout)
	orig, err := New(l, testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	orig.Run(context.Background(), 400, nil)
	snap := orig.Snapshot()
	if len(snap.Hauls) == 0 {
		t.Fatal("rubble deliveries should have been flagged for hauling")
	}

	resumed, err := Resume(l, testOptions(), snap, host.WithEventLog(8))
	if err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	if got := resumed.World.Hauls(); len(got) != len(snap.Hauls) {
		t.Errorf("Hauls() = %v, want %v", got, snap.Hauls)
	}
	if st := resumed.World.Stats(); st.Hauls != 0 {
		t.Errorf("Stats().Hauls = %d, want 0 right after resume", st.Hauls)
	}
	if ev := resumed.World.Events(); len(ev) != 0 {
		t.Errorf("Events() = %v, want none right after resume", ev)
	}
}

func TestResumeWrongLayout(t *testing.T) {
	l := mustLayout(t, teleportLayout)
	sc, err := New(l, testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	snap := sc.Snapshot()
	snap.Header.LayoutID = "other"
	if _, err := Resume(l, testOptions(), snap); err == nil {
		t.Error("expected error resuming a snapshot of another layout")
	}
}

func TestDespawnCountsOrphans(t *testing.T) {
	doc := `
id: boxed
ground:
  width: 1
  height: 1
  blocked:
    - [0, 0]
items:
  Steel: {}
segments:
  - pos: [0, 0]
    capacity: 2
    items:
      - def: Steel
      - def: Steel
`
	sc, err := New(mustLayout(t, doc), testOptions())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := sc.Despawn(belt.C(0, 0)); err != nil {
		t.Fatalf("Despawn() failed: %v", err)
	}
	if got := sc.Totals().Orphaned; got != 2 {
		t.Errorf("Orphaned = %d, want 2", got)
	}
	if err := sc.Despawn(belt.C(0, 0)); err == nil {
		t.Error("expected error despawning an empty cell")
	}
}
