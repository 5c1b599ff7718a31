package belt

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// Options configures a Sim.
type Options struct {
	DefaultSpeed              int // Threshold for plain belts and receivers
	TeleporterSpeedMultiplier int // Senders default to DefaultSpeed * this
	Capacity                  int // Default items per segment

	BasePower          float64 // Teleporter power per unit of distance
	DegreesPerDistance float64 // Heat pushed per unit of distance on each teleport
	HeatResearched     bool    // Halves teleport heat and air puffs

	Seed   int64
	Logger *log.Logger
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		DefaultSpeed:              100,
		TeleporterSpeedMultiplier: 3,
		Capacity:                  1,
		BasePower:                 100,
		DegreesPerDistance:        1,
	}
}

// StallReason says why a ready item did not move.
type StallReason uint8

const (
	StallUnpaired StallReason = iota // sender has no receiver
	StallBlocked                     // destination belt refused the item
	StallNoOutput                    // segment may not output to the ground
	StallGround                      // ground placement failed
)

// String returns the string representation of a stall reason.
func (r StallReason) String() string {
	switch r {
	case StallUnpaired:
		return "unpaired"
	case StallBlocked:
		return "blocked"
	case StallNoOutput:
		return "no_output"
	case StallGround:
		return "ground"
	default:
		return "unknown"
	}
}

// TransferEvent records an item moving between two segments.
type TransferEvent struct {
	ItemID   string
	From     Coord
	To       Coord
	Teleport bool
	Held     int // Ticks the item spent on the source segment
}

// DropEvent records an item leaving the belts for the ground.
type DropEvent struct {
	ItemID  string
	From    Coord
	Pos     Coord
	Outcome DropOutcome
	Held    int
}

// StallEvent records a ready item that could not move this tick.
type StallEvent struct {
	ItemID string
	At     Coord
	Reason StallReason
}

// StepResult contains what happened during one simulation step.
type StepResult struct {
	Tick      uint64
	Transfers []TransferEvent
	Drops     []DropEvent
	Stalls    []StallEvent
	Resident  int // Items on belts after the step
}

// Sim is the tick driver. It owns the segments, the teleporter pairing
// index and the host services. Segments tick in spawn order.
type Sim struct {
	opts    Options
	host    Host
	pairing *PairingIndex
	logger  *log.Logger
	rng     *Rand

	segments map[Coord]*Segment
	order    []*Segment
	tick     uint64
}

// NewSim creates an empty simulation. Missing host services are replaced
// by no-ops: no ground placement, no effects, every item counts as
// already flagged for hauling.
func NewSim(host Host, opts Options) *Sim {
	def := DefaultOptions()
	if opts.DefaultSpeed < 1 {
		opts.DefaultSpeed = def.DefaultSpeed
	}
	if opts.TeleporterSpeedMultiplier < 1 {
		opts.TeleporterSpeedMultiplier = def.TeleporterSpeedMultiplier
	}
	if opts.Capacity < 1 {
		opts.Capacity = def.Capacity
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if host.Ground == nil {
		host.Ground = nopEffects{}
	}
	if host.Effects == nil {
		host.Effects = nopEffects{}
	}
	if host.Designations == nil {
		host.Designations = nopEffects{}
	}

	return &Sim{
		opts:     opts,
		host:     host,
		pairing:  NewPairingIndex(opts.BasePower, opts.Logger),
		logger:   opts.Logger,
		rng:      NewRand(opts.Seed, 0),
		segments: make(map[Coord]*Segment),
	}
}

// Options returns the options the simulation runs with.
func (s *Sim) Options() Options {
	return s.opts
}

// Pairing returns the teleporter pairing index.
func (s *Sim) Pairing() *PairingIndex {
	return s.pairing
}

// Ticks returns the number of steps run so far.
func (s *Sim) Ticks() uint64 {
	return s.tick
}

// SpeedFor returns the default threshold for a role.
func (s *Sim) SpeedFor(role Role) int {
	if role == RoleSender {
		return s.opts.DefaultSpeed * s.opts.TeleporterSpeedMultiplier
	}
	return s.opts.DefaultSpeed
}

// Spawn creates a segment and registers it. Teleporter segments are in the
// pairing index before Spawn returns, so they are paired before their
// first tick.
func (s *Sim) Spawn(spec SegmentSpec) (*Segment, error) {
	if !spec.Pos.Valid() {
		return nil, fmt.Errorf("belt: invalid position")
	}
	if _, exists := s.segments[spec.Pos]; exists {
		return nil, fmt.Errorf("belt: cell %s already has a segment", spec.Pos)
	}
	if spec.Role > RoleReceiver {
		return nil, fmt.Errorf("belt: unknown role %d", spec.Role)
	}
	if spec.Rot > RotWest {
		return nil, fmt.Errorf("belt: unknown rotation %d", spec.Rot)
	}

	speed := spec.Speed
	if speed < 1 {
		speed = s.SpeedFor(spec.Role)
	}
	capacity := spec.Capacity
	if capacity < 1 {
		capacity = s.opts.Capacity
	}

	seg := &Segment{
		ID:             SegmentIDAt(spec.Pos),
		Pos:            spec.Pos,
		Rot:            spec.Rot,
		Role:           spec.Role,
		Speed:          speed,
		OutputToGround: !spec.NoGroundOutput,
		Powered:        !spec.Unpowered,
		sim:            s,
	}
	if spec.Role.IsTeleporter() {
		seg.PowerDraw = s.opts.BasePower
	}
	seg.container = newContainer(seg, capacity)

	s.segments[seg.Pos] = seg
	s.order = append(s.order, seg)
	if seg.Role.IsTeleporter() {
		s.pairing.Register(seg)
	}

	s.logger.Debug("segment spawned", "segment", seg.ID, "role", seg.Role, "rot", seg.Rot, "speed", seg.Speed)
	return seg, nil
}

// MustSpawn is Spawn for layouts known to be valid. It panics on error.
func (s *Sim) MustSpawn(spec SegmentSpec) *Segment {
	seg, err := s.Spawn(spec)
	if err != nil {
		panic(err)
	}
	return seg
}

// Despawn removes the segment at pos. It leaves the pairing index first,
// then its container is destroyed: every item is force-dropped at pos.
func (s *Sim) Despawn(pos Coord) ([]DropResult, error) {
	seg, ok := s.segments[pos]
	if !ok {
		return nil, fmt.Errorf("belt: no segment at %s", pos)
	}

	if seg.Role.IsTeleporter() {
		s.pairing.Deregister(seg)
	}
	delete(s.segments, pos)
	for i, o := range s.order {
		if o == seg {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	results := seg.container.Destroy()
	for _, res := range results {
		s.applyDrop(seg, res)
	}
	seg.sim = nil

	s.logger.Debug("segment despawned", "segment", seg.ID, "dropped", len(results))
	return results, nil
}

// SegmentAt returns the live segment at pos, or nil.
func (s *Sim) SegmentAt(pos Coord) *Segment {
	return s.segments[pos]
}

// Segments returns the live segments in tick order.
func (s *Sim) Segments() []*Segment {
	return append([]*Segment(nil), s.order...)
}

// Resident returns the number of items on belts.
func (s *Sim) Resident() int {
	n := 0
	for _, seg := range s.order {
		n += seg.container.Len()
	}
	return n
}

// HasItem reports whether an item with id rides any segment.
func (s *Sim) HasItem(id string) bool {
	for _, seg := range s.order {
		if seg.container.HasID(id) {
			return true
		}
	}
	return false
}

// Step advances the simulation by one tick. Each segment in spawn order
// ticks its container and then tries to move every item that is ready:
// onto the destination belt if it accepts from this segment, or onto the
// ground if the segment may output there.
func (s *Sim) Step() StepResult {
	result := StepResult{Tick: s.tick}

	for _, seg := range s.Segments() {
		if seg.sim == nil {
			continue
		}
		seg.Tick()
		for _, it := range seg.container.ThingsToMove() {
			s.moveItem(seg, it, &result)
		}
	}

	s.tick++
	result.Tick = s.tick
	result.Resident = s.Resident()
	return result
}

func (s *Sim) moveItem(seg *Segment, it *Item, result *StepResult) {
	held := 0
	if sl, ok := seg.container.slotOf(it); ok {
		held = sl.Held
	}
	stall := func(reason StallReason) {
		result.Stalls = append(result.Stalls, StallEvent{ItemID: it.ID, At: seg.Pos, Reason: reason})
	}

	dest := seg.Destination(it)
	if !dest.Valid() {
		stall(StallUnpaired)
		return
	}

	if next := s.SegmentAt(dest); next != nil {
		if !next.CanAcceptFrom(seg) || !seg.container.Transfer(it, next.container) {
			stall(StallBlocked)
			return
		}
		result.Transfers = append(result.Transfers, TransferEvent{
			ItemID:   it.ID,
			From:     seg.Pos,
			To:       next.Pos,
			Teleport: seg.Role == RoleSender,
			Held:     held,
		})
		return
	}

	if !seg.CanOutputToGround() {
		stall(StallNoOutput)
		return
	}
	res := seg.DropItem(it, dest, false)
	if !res.Removed() {
		stall(StallGround)
		return
	}
	result.Drops = append(result.Drops, DropEvent{
		ItemID:  it.ID,
		From:    seg.Pos,
		Pos:     dest,
		Outcome: res.Outcome,
		Held:    held,
	})
}

func (s *Sim) applyDrop(seg *Segment, res DropResult) {
	switch res.Outcome {
	case DropOrphaned:
		s.logger.Warn("forced drop found no placement, item detached",
			"item", itemID(res.Item), "segment", seg.ID, "pos", res.Pos)
	case DropPlaced:
		if res.Sound != "" {
			s.host.Effects.PlaySound(res.Sound, res.Pos)
		}
		if res.Unforbid {
			res.Placed.Forbidden = false
		}
		if res.FlagHaul && !s.host.Designations.HasHaul(res.Placed) {
			s.host.Designations.AddHaul(res.Placed)
		}
	}
}

// teleportEffects pushes heat and throws air puffs at both ends of a
// teleport. Heat scales with the pairing distance.
func (s *Sim) teleportEffects(from, to *Segment) {
	degrees := s.opts.DegreesPerDistance
	minPuffs, maxPuffs := 4, 6
	if s.opts.HeatResearched {
		degrees *= 0.5
		minPuffs, maxPuffs = 1, 2
	}

	dist := from.pairDistance
	if dist < 1 {
		dist = 1
	}
	heat := float64(dist) * degrees

	for _, pos := range []Coord{from.Pos, to.Pos} {
		s.host.Effects.PushHeat(pos, heat)
		s.host.Effects.ThrowPuffs(pos, minPuffs+s.rng.Intn(maxPuffs-minPuffs+1))
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
