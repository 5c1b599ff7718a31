package belt

import "fmt"

// SegmentSpec describes a segment to spawn.
type SegmentSpec struct {
	Pos  Coord
	Rot  Rot
	Role Role

	Speed          int  // Threshold in ticks; 0 uses the default for the role
	Capacity       int  // Items held at once; 0 uses the default
	NoGroundOutput bool // Never drop onto non-belt cells
	Unpowered      bool // Spawn switched off
}

// Segment is one belt tile. Behavior is dispatched on Role.
type Segment struct {
	ID   string
	Pos  Coord
	Rot  Rot
	Role Role

	Speed          int
	OutputToGround bool
	Powered        bool
	PowerDraw      float64

	container *Container
	sim       *Sim

	receiver     *Segment // senders only: currently paired receiver
	pairDistance int
}

// SegmentIDAt returns the stable ID of the segment at pos.
func SegmentIDAt(pos Coord) string {
	return fmt.Sprintf("BELT@%d,%d", pos.X, pos.Z)
}

// Container returns the segment's item container.
func (s *Segment) Container() *Container {
	return s.container
}

// IsSender reports whether the segment is the sending half of a teleporter.
func (s *Segment) IsSender() bool {
	return s.Role == RoleSender
}

// IsReceiver reports whether the segment is the receiving half of a teleporter.
func (s *Segment) IsReceiver() bool {
	return s.Role == RoleReceiver
}

// Receiver returns the paired receiver of a sender, or nil.
func (s *Segment) Receiver() *Segment {
	return s.receiver
}

// ReceiverPos returns the position of the paired receiver of a sender.
func (s *Segment) ReceiverPos() (Coord, bool) {
	if s.receiver == nil {
		return NoDestination, false
	}
	return s.receiver.Pos, true
}

// PairDistance returns the forward distance to the paired receiver, or 0.
func (s *Segment) PairDistance() int {
	return s.pairDistance
}

// Destination returns where an item on this segment heads next.
// Senders head for their paired receiver; everything else for the
// adjacent cell in the facing direction.
func (s *Segment) Destination(_ *Item) Coord {
	switch s.Role {
	case RoleSender:
		if s.receiver == nil {
			return NoDestination
		}
		return s.receiver.Pos
	default:
		return s.Pos.Add(s.Rot.FacingCell())
	}
}

// CanAcceptFrom is destination-side admission control.
// A receiver only accepts from a same-facing sender that is currently
// paired to it; a stale sender left over from a re-pairing is refused.
func (s *Segment) CanAcceptFrom(from *Segment) bool {
	if from == nil || !s.Powered || s.container.Full() || s.container.destroyed {
		return false
	}
	switch s.Role {
	case RoleReceiver:
		return from.Role == RoleSender && from.Rot == s.Rot && from.receiver == s
	default:
		return true
	}
}

// CanOutputToGround reports whether items may leave onto non-belt cells.
func (s *Segment) CanOutputToGround() bool {
	if s.Role == RoleSender {
		return false
	}
	return s.OutputToGround
}

// onItemTransfer runs after an item left this segment for to.
func (s *Segment) onItemTransfer(_ *Item, to *Segment) {
	if s.Role != RoleSender || s.sim == nil {
		return
	}
	s.sim.teleportEffects(s, to)
}

// Tick advances the segment's container by one step.
func (s *Segment) Tick() {
	s.container.Tick()
}

// DropItem drops a resident item at pos and applies its effects once.
func (s *Segment) DropItem(it *Item, pos Coord, forced bool) DropResult {
	res := s.container.Drop(it, pos, forced)
	s.applyDrop(res)
	return res
}

// Unload drops every item at the segment's own position.
func (s *Segment) Unload(forced bool) []DropResult {
	results := s.container.DropAll(s.Pos, forced)
	for _, res := range results {
		s.applyDrop(res)
	}
	return results
}

func (s *Segment) applyDrop(res DropResult) {
	if s.sim == nil {
		return
	}
	s.sim.applyDrop(s, res)
}

// String returns a short description of the segment.
func (s *Segment) String() string {
	return fmt.Sprintf("%s %s %s", s.Role, s.Pos, s.Rot)
}
