// Package scenario binds a layout, a host world and a belt simulation
// into something that can be stepped, viewed, snapshotted and resumed.
package scenario

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/beltline/internal/belt"
	"github.com/vovakirdan/beltline/internal/host"
	"github.com/vovakirdan/beltline/internal/layout"
)

// HeatDecay is the fraction of cell heat kept after each step.
const HeatDecay = 0.98

// DefaultFeedEvery is the feeder interval used when a layout leaves it unset.
const DefaultFeedEvery = 60

// Scenario is one running layout. It is not safe for concurrent use;
// each viewer owns its own Scenario.
type Scenario struct {
	Layout *layout.Layout
	World  *host.World
	Sim    *belt.Sim

	defs    map[string]*belt.ItemDef
	feeders []feeder
	ids     *idSource
	totals  Totals
	logger  *log.Logger
}

type feeder struct {
	layout.Feeder
	emitted int
}

// Report is the outcome of one scenario step.
type Report struct {
	belt.StepResult
	Spawned       int // Items added by feeders before the step
	FeederBlocked int // Feeder emissions skipped because the belt was full
}

// New builds a scenario from a layout: spawns every placement in file
// order and puts the layout's items on their segments.
func New(l *layout.Layout, opts belt.Options, hostOpts ...host.Option) (*Scenario, error) {
	s := newEmpty(l, opts, hostOpts...)

	for _, p := range l.Placements() {
		seg, err := s.Sim.Spawn(p.Spec)
		if err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
		for _, li := range p.Items {
			it := s.newItem(li.ID, li.Def, li.Count)
			if !seg.Container().AddWithCounter(it, li.Counter) {
				return nil, fmt.Errorf("scenario: segment %s rejected item %s", seg.ID, it.ID)
			}
		}
	}

	s.logger.Info("scenario ready", "layout", l.ID, "segments", len(s.Sim.Segments()), "items", s.Sim.Resident())
	return s, nil
}

func newEmpty(l *layout.Layout, opts belt.Options, hostOpts ...host.Option) *Scenario {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	blocked := make([]belt.Coord, 0, len(l.Ground.Blocked))
	for _, p := range l.Ground.Blocked {
		blocked = append(blocked, p.Coord())
	}
	world := host.New(l.Ground.Width, l.Ground.Height, blocked,
		append([]host.Option{host.WithLogger(logger)}, hostOpts...)...)

	s := &Scenario{
		Layout: l,
		World:  world,
		Sim:    belt.NewSim(world.Host(), opts),
		defs:   l.ItemDefs(),
		ids:    newIDSource(opts.Seed, 0),
		logger: logger,
	}
	for _, f := range l.Feeders {
		s.feeders = append(s.feeders, feeder{Feeder: f})
	}
	return s
}

// Def returns the item definition for name, or nil.
func (s *Scenario) Def(name string) *belt.ItemDef {
	return s.defs[name]
}

func (s *Scenario) newItem(id, def string, count int) *belt.Item {
	if id == "" {
		id = s.ids.Next()
		for s.idInUse(id) {
			id = s.ids.Next()
		}
	}
	if count < 1 {
		count = 1
	}
	d := s.defs[def]
	if d == nil {
		d = &belt.ItemDef{Name: def}
	}
	return belt.NewItem(id, d, count)
}

// idInUse reports whether a belt or ground stack already carries id.
func (s *Scenario) idInUse(id string) bool {
	return s.Sim.HasItem(id) || s.World.HasItem(id)
}

// Step runs the feeders, steps the simulation and lets the ground cool.
func (s *Scenario) Step() Report {
	spawned, blocked := s.feed()
	res := s.Sim.Step()
	s.World.Cool(HeatDecay)

	rep := Report{StepResult: res, Spawned: spawned, FeederBlocked: blocked}
	s.totals.add(rep)
	return rep
}

// feed emits new items on the feeders whose interval elapsed.
func (s *Scenario) feed() (spawned, blocked int) {
	tick := s.Sim.Ticks()
	for i := range s.feeders {
		f := &s.feeders[i]
		every := f.Every
		if every < 1 {
			every = DefaultFeedEvery
		}
		if tick%uint64(every) != 0 {
			continue
		}
		if f.Limit > 0 && f.emitted >= f.Limit {
			continue
		}
		seg := s.Sim.SegmentAt(f.Pos.Coord())
		if seg == nil {
			continue
		}
		it := s.newItem("", f.Def, f.Count)
		if !seg.Container().Add(it) {
			blocked++
			continue
		}
		f.emitted++
		spawned++
	}
	return spawned, blocked
}

// Run steps the scenario n times, or until ctx is done. fn, if not nil,
// sees every report.
func (s *Scenario) Run(ctx context.Context, n int, fn func(Report)) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep := s.Step()
		if fn != nil {
			fn(rep)
		}
	}
	return nil
}

// Totals returns the accumulated run counters.
func (s *Scenario) Totals() Totals {
	t := s.totals
	t.Ticks = s.Sim.Ticks()
	t.Resident = s.Sim.Resident()
	t.Paired, t.Unpaired = s.Sim.Pairing().Stats()
	t.Stalls = make(map[belt.StallReason]int, len(s.totals.Stalls))
	for k, v := range s.totals.Stalls {
		t.Stalls[k] = v
	}
	return t
}

// Despawn removes the segment at pos, dropping its items onto the ground.
func (s *Scenario) Despawn(pos belt.Coord) error {
	results, err := s.Sim.Despawn(pos)
	if err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	for _, res := range results {
		if res.Outcome == belt.DropOrphaned {
			s.totals.Orphaned++
		}
	}
	return nil
}

// idSource hands out item IDs as UUIDs drawn from a seeded stream so runs
// with the same seed name their items the same way. Every ID takes two
// draws, so the stream position alone is enough to resume it.
type idSource struct {
	rng *belt.Rand
}

func newIDSource(seed int64, draws uint64) *idSource {
	return &idSource{rng: belt.NewRand(seed, draws)}
}

// Next returns a fresh item ID.
func (s *idSource) Next() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], s.rng.Uint64())
	binary.BigEndian.PutUint64(b[8:], s.rng.Uint64())
	id, err := uuid.NewRandomFromReader(bytes.NewReader(b[:]))
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Draws returns the stream position.
func (s *idSource) Draws() uint64 {
	return s.rng.Draws()
}
