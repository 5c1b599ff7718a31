package render

import (
	"math"
	"unicode"

	"github.com/vovakirdan/beltline/internal/belt"
	"github.com/vovakirdan/beltline/internal/host"
)

// CellWidth is the number of screen columns per ground cell.
const CellWidth = 3

// HotThreshold is the heat above which a cell is drawn as hot.
const HotThreshold = 1.0

// Viewport is the inclusive cell range shown on screen.
type Viewport struct {
	MinX, MinZ int
	MaxX, MaxZ int
}

// ViewportFor covers the world's ground. An unbounded axis is sized to
// the segments and ground stacks plus a margin of one cell.
func ViewportFor(sim *belt.Sim, w *host.World) Viewport {
	v := Viewport{MinX: math.MaxInt32, MinZ: math.MaxInt32, MaxX: math.MinInt32, MaxZ: math.MinInt32}
	grow := func(c belt.Coord) {
		v.MinX, v.MaxX = min(v.MinX, c.X-1), max(v.MaxX, c.X+1)
		v.MinZ, v.MaxZ = min(v.MinZ, c.Z-1), max(v.MaxZ, c.Z+1)
	}
	for _, seg := range sim.Segments() {
		grow(seg.Pos)
	}
	for _, gi := range w.Items() {
		grow(gi.Pos)
	}
	if v.MinX > v.MaxX {
		v = Viewport{}
	}

	width, height := w.Size()
	if width > 0 {
		v.MinX, v.MaxX = 0, width-1
	}
	if height > 0 {
		v.MinZ, v.MaxZ = 0, height-1
	}
	return v
}

// Size returns the screen size needed to draw the viewport.
func (v Viewport) Size() (cols, rows int) {
	return (v.MaxX - v.MinX + 1) * CellWidth, v.MaxZ - v.MinZ + 1
}

// Contains reports whether c is inside the viewport.
func (v Viewport) Contains(c belt.Coord) bool {
	return c.X >= v.MinX && c.X <= v.MaxX && c.Z >= v.MinZ && c.Z <= v.MaxZ
}

// ToScreen returns the screen position of the left column of cell c.
// North is up.
func (v Viewport) ToScreen(c belt.Coord) (x, y int) {
	return (c.X - v.MinX) * CellWidth, v.MaxZ - c.Z
}

// Draw renders the ground, segments and items into s with the viewport's
// top-left corner at (ox, oy).
func Draw(s *Screen, ox, oy int, v Viewport, sim *belt.Sim, w *host.World, rng Rand) {
	cell := func(c belt.Coord) (int, int) {
		x, y := v.ToScreen(c)
		return ox + x, oy + y
	}

	for z := v.MinZ; z <= v.MaxZ; z++ {
		for x := v.MinX; x <= v.MaxX; x++ {
			c := belt.C(x, z)
			sx, sy := cell(c)
			switch {
			case !w.InBounds(c):
			case w.Blocked(c):
				s.DrawTextColor(sx, sy, "###", ColorGray)
			case w.Heat(c) >= HotThreshold:
				s.SetCell(sx+1, sy, '~', ColorRed)
			default:
				s.SetCell(sx+1, sy, '·', ColorGray)
			}
		}
	}

	for _, gi := range w.Items() {
		if !v.Contains(gi.Pos) {
			continue
		}
		sx, sy := cell(gi.Pos)
		s.SetCell(sx+1, sy, unicode.ToLower(Glyph(gi.Item)), ColorOrange)
	}

	segs := sim.Segments()
	for _, seg := range segs {
		if !v.Contains(seg.Pos) {
			continue
		}
		sx, sy := cell(seg.Pos)
		left, right, color := segmentFrame(seg)
		if w.Heat(seg.Pos) >= HotThreshold {
			color = ColorRed
		}
		s.SetCell(sx, sy, left, color)
		s.SetCell(sx+1, sy, Arrow(seg.Rot), color)
		s.SetCell(sx+2, sy, right, color)
	}

	for _, seg := range segs {
		if !v.Contains(seg.Pos) {
			continue
		}
		sx, sy := cell(seg.Pos)
		for _, st := range seg.Container().Statuses() {
			off := VisualOffset(seg, st, rng)
			ix := sx + 1 + int(math.Round(off.X*CellWidth))
			iy := sy - int(math.Round(off.Z))
			s.SetCell(ix, iy, Glyph(st.Item), ColorYellow)
		}
	}
}

func segmentFrame(seg *belt.Segment) (left, right rune, color Color) {
	switch seg.Role {
	case belt.RoleSender:
		left, right, color = '[', ']', ColorMagenta
		if seg.Receiver() == nil {
			color = ColorOrange
		}
	case belt.RoleReceiver:
		left, right, color = '(', ')', ColorCyan
	default:
		left, right, color = ' ', ' ', ColorBlue
	}
	if !seg.Powered {
		color = ColorGray
	}
	return left, right, color
}

// Arrow returns the arrow glyph for a facing.
func Arrow(r belt.Rot) rune {
	switch r {
	case belt.RotNorth:
		return '↑'
	case belt.RotEast:
		return '→'
	case belt.RotSouth:
		return '↓'
	case belt.RotWest:
		return '←'
	default:
		return '?'
	}
}

// Glyph returns the character an item is drawn with: the first letter of
// its definition name, upper case.
func Glyph(it *belt.Item) rune {
	for _, r := range it.DefName() {
		return unicode.ToUpper(r)
	}
	return '?'
}
