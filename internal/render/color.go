package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color represents a foreground color for a screen cell.
type Color uint8

const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorOrange
	ColorGray
)

var colorStyles = map[Color]lipgloss.Style{
	ColorDefault: lipgloss.NewStyle(),
	ColorRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	ColorGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	ColorYellow:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	ColorBlue:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	ColorMagenta: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	ColorCyan:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	ColorOrange:  lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	ColorGray:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

// Styled converts a Screen buffer to a styled string for display.
// Adjacent cells with the same color share one style run.
func Styled(s *Screen) string {
	var sb strings.Builder
	sb.Grow(s.Width()*s.Height()*2 + s.Height())

	for y := range s.Height() {
		if y > 0 {
			sb.WriteRune('\n')
		}

		x := 0
		for x < s.Width() {
			startColor := s.GetCell(x, y).Color

			var run strings.Builder
			for x < s.Width() {
				cell := s.GetCell(x, y)
				if cell.Color != startColor {
					break
				}
				run.WriteRune(cell.Rune)
				x++
			}

			style, ok := colorStyles[startColor]
			if !ok {
				style = colorStyles[ColorDefault]
			}
			sb.WriteString(style.Render(run.String()))
		}
	}
	return sb.String()
}
