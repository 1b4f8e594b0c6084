package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Application identity shown in banners, help and summaries
const (
	DisplayName = "Jivemeter 🎚"
	Tagline     = "Watch your PulseAudio output as a live peak-hold level meter."
)

// Styles
var (
	// Title style - bold cyan
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentCyan).
			MarginBottom(1)

	// Subtitle style - muted gray
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(DimGray).
			Italic(true)

	// Section header style
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(LevelAmber).
			MarginTop(1).
			MarginBottom(1)

	// Success message style
	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(LevelGreen)

	// Error message style
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(LevelRed)

	// Highlight style for important values
	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(LevelAmber)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	ValueStyle = lipgloss.NewStyle().
			Bold(true)

	// Box style for framed content
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(AccentCyan).
			Padding(1, 2).
			MarginTop(1)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(DisplayName))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", HighlightStyle.Render("Warning:"), message)
}

// PrintInfo prints an informational key-value line
func PrintInfo(key, value string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}

// Summary is the end-of-run report printed with --summary
type Summary struct {
	Source      string
	Format      string
	Fragments   uint64
	Skipped     uint64
	Peak        int
	PeakLevel   float64
	OverRange   uint64
	SampleCount uint64
}

// FormatSummary renders s as the content of the summary box
func FormatSummary(s Summary) string {
	var b strings.Builder

	b.WriteString(SuccessStyle.Render("✓ Metering stopped"))
	b.WriteString("\n\n")

	row := func(key, value string) {
		b.WriteString(KeyStyle.Render(fmt.Sprintf("%-12s", key+":")))
		b.WriteString(ValueStyle.Render(value))
		b.WriteString("\n")
	}

	if s.Source != "" {
		row("Source", s.Source)
	}
	if s.Format != "" {
		row("Format", s.Format)
	}
	row("Fragments", fmt.Sprintf("%d", s.Fragments))
	row("Samples", fmt.Sprintf("%d", s.SampleCount))
	if s.Skipped > 0 {
		row("Skipped", fmt.Sprintf("%d", s.Skipped))
	}

	b.WriteString("\n")
	b.WriteString(KeyStyle.Render(fmt.Sprintf("%-12s", "Peak:")))
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(LevelColor(s.Peak)).
		Render(fmt.Sprintf("%d%% (%.3f)", s.Peak, s.PeakLevel)))

	if s.OverRange > 0 {
		b.WriteString("\n")
		b.WriteString(KeyStyle.Render(fmt.Sprintf("%-12s", "Over range:")))
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%d fragments", s.OverRange)))
	}

	return b.String()
}

// PrintSummary prints the run summary in a box on stderr
func PrintSummary(s Summary) {
	fmt.Fprintln(os.Stderr, BoxStyle.Render(FormatSummary(s)))
}
