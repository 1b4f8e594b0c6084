package cli

import "github.com/charmbracelet/lipgloss"

// Meter colour palette
// Shared level colours for consistent look across CLI, bar and TUI
var (
	// Level zones (quiet to hot)
	LevelGreen = lipgloss.Color("#3CB043") // Normal programme level
	LevelAmber = lipgloss.Color("#FFBF00") // Approaching full scale
	LevelRed   = lipgloss.Color("#E0212F") // At or near clipping

	// Accent colours
	AccentCyan = lipgloss.Color("#5FD7FF") // Titles and flags
	DimGray    = lipgloss.Color("#767676") // Subtle text
)

// Zone thresholds in percent
const (
	AmberFrom = 70
	RedFrom   = 90
)

// LevelColor returns the zone colour for a percentage
func LevelColor(percent int) lipgloss.Color {
	switch {
	case percent >= RedFrom:
		return LevelRed
	case percent >= AmberFrom:
		return LevelAmber
	default:
		return LevelGreen
	}
}
