package scenario

import "github.com/vovakirdan/beltline/internal/belt"

// Totals are the counters of a run since the scenario was created or
// resumed from a snapshot.
type Totals struct {
	Ticks    uint64
	Resident int
	Paired   int
	Unpaired int

	Spawned       int
	FeederBlocked int
	Transfers     int // Belt-to-belt hand-offs, teleports included
	Teleports     int
	Delivered     int // Items that left the belts onto the ground
	Orphaned      int
	HeldTicks     int // Ticks delivered items spent on their last segment
	Stalls        map[belt.StallReason]int
}

func (t *Totals) add(rep Report) {
	t.Spawned += rep.Spawned
	t.FeederBlocked += rep.FeederBlocked
	t.Transfers += len(rep.Transfers)
	for _, tr := range rep.Transfers {
		if tr.Teleport {
			t.Teleports++
		}
	}
	t.Delivered += len(rep.Drops)
	for _, d := range rep.Drops {
		t.HeldTicks += d.Held
	}
	if len(rep.Stalls) > 0 && t.Stalls == nil {
		t.Stalls = make(map[belt.StallReason]int)
	}
	for _, st := range rep.Stalls {
		t.Stalls[st.Reason]++
	}
}

// StallCount returns the total number of stall events.
func (t Totals) StallCount() int {
	n := 0
	for _, v := range t.Stalls {
		n += v
	}
	return n
}

// Throughput returns delivered items per 1000 ticks.
func (t Totals) Throughput() float64 {
	if t.Ticks == 0 {
		return 0
	}
	return float64(t.Delivered) * 1000 / float64(t.Ticks)
}

// MeanHeld returns the mean ticks a delivered item spent on its last
// segment.
func (t Totals) MeanHeld() float64 {
	if t.Delivered == 0 {
		return 0
	}
	return float64(t.HeldTicks) / float64(t.Delivered)
}
