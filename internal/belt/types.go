// Package belt provides the item-flow scheduler for conveyor belts and
// teleporter pairs. It is UI-agnostic and deterministic: all segments tick
// on one timeline in spawn order and every transfer is a synchronous
// hand-off between exactly two containers.
package belt

import (
	"fmt"
	"math"
)

// Coord is a cell position on the map. X grows east, Z grows north.
type Coord struct {
	X int
	Z int
}

// C is a convenience constructor for Coord.
func C(x, z int) Coord {
	return Coord{X: x, Z: z}
}

// NoDestination is returned by senders that have no paired receiver.
// It lies outside any legal map so nothing can ever be placed there.
var NoDestination = Coord{X: math.MinInt32, Z: math.MinInt32}

// Valid reports whether c is a real cell (anything but NoDestination).
func (c Coord) Valid() bool {
	return c != NoDestination
}

// Add returns c offset by other.
func (c Coord) Add(other Coord) Coord {
	return Coord{X: c.X + other.X, Z: c.Z + other.Z}
}

// Sub returns c - other.
func (c Coord) Sub(other Coord) Coord {
	return Coord{X: c.X - other.X, Z: c.Z - other.Z}
}

// Dot returns the dot product of two coordinates treated as vectors.
func (c Coord) Dot(other Coord) int {
	return c.X*other.X + c.Z*other.Z
}

// String returns a string representation of the coordinate.
func (c Coord) String() string {
	if !c.Valid() {
		return "(none)"
	}
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// Rot is the facing of a segment.
type Rot uint8

const (
	RotNorth Rot = iota // +Z
	RotEast             // +X
	RotSouth            // -Z
	RotWest             // -X
)

// String returns the string representation of a rotation.
func (r Rot) String() string {
	switch r {
	case RotNorth:
		return "north"
	case RotEast:
		return "east"
	case RotSouth:
		return "south"
	case RotWest:
		return "west"
	default:
		return "unknown"
	}
}

// FacingCell returns the unit step in the facing direction.
func (r Rot) FacingCell() Coord {
	switch r {
	case RotNorth:
		return Coord{X: 0, Z: 1}
	case RotEast:
		return Coord{X: 1, Z: 0}
	case RotSouth:
		return Coord{X: 0, Z: -1}
	case RotWest:
		return Coord{X: -1, Z: 0}
	default:
		return Coord{}
	}
}

// ParseRot parses a rotation name ("north", "east", "south", "west").
func ParseRot(s string) (Rot, bool) {
	switch s {
	case "north", "n", "up":
		return RotNorth, true
	case "east", "e", "right":
		return RotEast, true
	case "south", "s", "down":
		return RotSouth, true
	case "west", "w", "left":
		return RotWest, true
	}
	return 0, false
}

// Role tags what a segment does with the items it holds.
type Role uint8

const (
	RolePlain Role = iota
	RoleSender
	RoleReceiver
)

// String returns the string representation of a role.
func (r Role) String() string {
	switch r {
	case RolePlain:
		return "plain"
	case RoleSender:
		return "sender"
	case RoleReceiver:
		return "receiver"
	default:
		return "unknown"
	}
}

// ParseRole parses a role name.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "", "plain", "belt":
		return RolePlain, true
	case "sender", "teleporter":
		return RoleSender, true
	case "receiver":
		return RoleReceiver, true
	}
	return 0, false
}

// IsTeleporter reports whether the role is one half of a teleporter pair.
func (r Role) IsTeleporter() bool {
	return r == RoleSender || r == RoleReceiver
}
