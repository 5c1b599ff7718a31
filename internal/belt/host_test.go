package belt_test

import (
	"github.com/vovakirdan/beltline/internal/belt"
)

// testHost is an in-memory host: one item per ground cell, blocked cells
// reject every placement, Near placement searches the 8 neighbours.
type testHost struct {
	blocked   map[belt.Coord]bool
	noNear    bool
	ground    map[belt.Coord]*belt.Item
	sounds    []string
	heat      map[belt.Coord]float64
	puffs     map[belt.Coord]int
	hauls     map[string]int
	preHauled map[string]bool
}

func newTestHost() *testHost {
	return &testHost{
		blocked:   make(map[belt.Coord]bool),
		ground:    make(map[belt.Coord]*belt.Item),
		heat:      make(map[belt.Coord]float64),
		puffs:     make(map[belt.Coord]int),
		hauls:     make(map[string]int),
		preHauled: make(map[string]bool),
	}
}

func (h *testHost) host() belt.Host {
	return belt.Host{Ground: h, Effects: h, Designations: h}
}

func (h *testHost) CanPlace(_ *belt.Item, pos belt.Coord) bool {
	return !h.blocked[pos] && h.ground[pos] == nil
}

func (h *testHost) Place(it *belt.Item, pos belt.Coord, mode belt.PlaceMode) (*belt.Item, bool) {
	if h.CanPlace(it, pos) {
		h.ground[pos] = it
		return it, true
	}
	if mode != belt.PlaceNear || h.noNear {
		return nil, false
	}
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			p := pos.Add(belt.C(dx, dz))
			if h.CanPlace(it, p) {
				h.ground[p] = it
				return it, true
			}
		}
	}
	return nil, false
}

func (h *testHost) PlaySound(sound string, _ belt.Coord) {
	h.sounds = append(h.sounds, sound)
}

func (h *testHost) PushHeat(pos belt.Coord, amount float64) {
	h.heat[pos] += amount
}

func (h *testHost) ThrowPuffs(pos belt.Coord, n int) {
	h.puffs[pos] += n
}

func (h *testHost) HasHaul(it *belt.Item) bool {
	return h.preHauled[it.ID] || h.hauls[it.ID] > 0
}

func (h *testHost) AddHaul(it *belt.Item) {
	h.hauls[it.ID]++
}

// blockAll blocks a square of ground cells around the origin.
func (h *testHost) blockAll(radius int) {
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			h.blocked[belt.C(x, z)] = true
		}
	}
}

var (
	steel  = &belt.ItemDef{Name: "Steel", DropSound: "drop_metal"}
	chunk  = &belt.ItemDef{Name: "ChunkGranite", DropSound: "drop_stone", Rubble: true}
	silent = &belt.ItemDef{Name: "Cloth"}
)

func newSim(h *testHost, speed int) *belt.Sim {
	opts := belt.DefaultOptions()
	opts.DefaultSpeed = speed
	opts.Seed = 1
	return belt.NewSim(h.host(), opts)
}
