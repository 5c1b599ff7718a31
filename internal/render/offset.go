package render

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vovakirdan/beltline/internal/belt"
)

// Rand is the random source used for the teleport flicker.
type Rand interface {
	Float64() float64
}

// vec converts a cell step to a vector in the ground plane. Y is up and
// stays zero.
func vec(c belt.Coord) r3.Vec {
	return r3.Vec{X: float64(c.X), Z: float64(c.Z)}
}

// VisualOffset returns where an item appears relative to the center of
// its segment, in cells.
//
// Items on plain belts slide toward the next cell as their counter grows.
// Items on receivers move half a cell along the facing. Items on senders
// approach the pad until half progress and then flicker between the pad
// and the receiver end; the closer to done, the more often they show at
// the receiver. rng drives the flicker; nil always shows the pad.
func VisualOffset(seg *belt.Segment, st belt.Status, rng Rand) r3.Vec {
	facing := vec(seg.Rot.FacingCell())
	progress := st.Progress

	switch seg.Role {
	case belt.RoleReceiver:
		return r3.Scale(0.5*progress, facing)
	case belt.RoleSender:
		return senderOffset(seg, facing, progress, rng)
	default:
		return r3.Scale(progress, facing)
	}
}

func senderOffset(seg *belt.Segment, facing r3.Vec, progress float64, rng Rand) r3.Vec {
	if progress < 0.5 {
		back := r3.Scale(0.5, facing)
		return r3.Sub(r3.Scale(progress/0.5, r3.Add(facing, back)), back)
	}

	if rng == nil || rng.Float64() > 2*(progress-0.5) {
		return facing
	}

	direction := r3.Scale(3, facing)
	if pos, ok := seg.ReceiverPos(); ok {
		direction = vec(pos.Sub(seg.Pos))
	}
	return r3.Sub(direction, r3.Unit(direction))
}
