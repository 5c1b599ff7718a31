package belt

import "github.com/charmbracelet/log"

// PairingIndex tracks live teleporter senders and receivers and assigns
// each sender its nearest receiver ahead on the same axis. It is derived
// state: never persisted, rebuilt by re-registering segments on load.
type PairingIndex struct {
	senders   []*Segment
	receivers []*Segment
	basePower float64
	logger    *log.Logger
}

// NewPairingIndex creates an empty index. basePower is the power draw per
// unit of pairing distance, and the draw of an unpaired sender.
func NewPairingIndex(basePower float64, logger *log.Logger) *PairingIndex {
	if logger == nil {
		logger = discardLogger()
	}
	return &PairingIndex{basePower: basePower, logger: logger}
}

// Register adds a teleporter segment. Adding a sender resolves that sender;
// adding a receiver re-resolves every sender.
func (p *PairingIndex) Register(s *Segment) {
	switch s.Role {
	case RoleSender:
		if indexOf(p.senders, s) >= 0 {
			return
		}
		p.senders = append(p.senders, s)
		p.resolve(s)
	case RoleReceiver:
		if indexOf(p.receivers, s) >= 0 {
			return
		}
		p.receivers = append(p.receivers, s)
		p.ResolveAll()
	}
}

// Deregister removes a teleporter segment and re-resolves every sender.
func (p *PairingIndex) Deregister(s *Segment) {
	switch s.Role {
	case RoleSender:
		if i := indexOf(p.senders, s); i >= 0 {
			p.senders = append(p.senders[:i], p.senders[i+1:]...)
		}
		s.receiver = nil
		s.pairDistance = 0
		s.PowerDraw = p.basePower
	case RoleReceiver:
		if i := indexOf(p.receivers, s); i >= 0 {
			p.receivers = append(p.receivers[:i], p.receivers[i+1:]...)
		}
	default:
		return
	}
	p.ResolveAll()
}

// ResolveAll recomputes the receiver of every registered sender.
func (p *PairingIndex) ResolveAll() {
	for _, s := range p.senders {
		p.resolve(s)
	}
}

func (p *PairingIndex) resolve(s *Segment) {
	prev := s.receiver
	r, dist := p.Nearest(s)

	s.receiver = r
	s.pairDistance = dist
	if r == nil {
		s.PowerDraw = p.basePower
	} else {
		s.PowerDraw = float64(dist) * p.basePower
	}

	if prev != r {
		if r == nil {
			p.logger.Debug("sender unpaired", "sender", s.ID)
		} else {
			p.logger.Debug("sender paired", "sender", s.ID, "receiver", r.ID, "distance", dist)
		}
	}
}

// Nearest returns the receiver a sender should pair with and the forward
// distance to it: same facing, same perpendicular coordinate, strictly
// ahead, smallest distance. Ties keep the earliest registered receiver.
func (p *PairingIndex) Nearest(s *Segment) (*Segment, int) {
	facing := s.Rot.FacingCell()
	var best *Segment
	bestDist := 0
	for _, r := range p.receivers {
		if r.Rot != s.Rot {
			continue
		}
		delta := r.Pos.Sub(s.Pos)
		if facing.X == 0 && delta.X != 0 {
			continue
		}
		if facing.Z == 0 && delta.Z != 0 {
			continue
		}
		dist := delta.Dot(facing)
		if dist <= 0 {
			continue
		}
		if best == nil || dist < bestDist {
			best = r
			bestDist = dist
		}
	}
	return best, bestDist
}

// Senders returns the registered senders in registration order.
func (p *PairingIndex) Senders() []*Segment {
	return append([]*Segment(nil), p.senders...)
}

// Receivers returns the registered receivers in registration order.
func (p *PairingIndex) Receivers() []*Segment {
	return append([]*Segment(nil), p.receivers...)
}

// Stats returns how many senders are paired and unpaired.
func (p *PairingIndex) Stats() (paired, unpaired int) {
	for _, s := range p.senders {
		if s.receiver != nil {
			paired++
		} else {
			unpaired++
		}
	}
	return paired, unpaired
}

// BasePower returns the per-distance power cost.
func (p *PairingIndex) BasePower() float64 {
	return p.basePower
}

func indexOf(list []*Segment, s *Segment) int {
	for i, o := range list {
		if o == s {
			return i
		}
	}
	return -1
}
