package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/cli"
)

// Phase represents where the stream is in its lifecycle
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseOpening
	PhaseMetering
	PhaseStopped
)

// StreamInfoMsg announces the negotiated stream format
type StreamInfoMsg struct {
	Spec       audio.SampleSpec
	ChannelMap audio.ChannelMap
}

// StreamStartedMsg signals that fragments are about to arrive
type StreamStartedMsg struct{}

// LevelMsg carries the meter reading for one fragment
type LevelMsg struct {
	Percent int
	Levels  []float64 // Per-channel peaks, may be nil
	Bars    []float64 // Spectrum bar heights, may be nil
}

// StoppedMsg ends the display. Err is nil on a clean stop.
type StoppedMsg struct {
	Err error
}

// quitMsg is sent when it's time to quit after showing the final state
type quitMsg struct{}

// Model is the Bubbletea model for the live meter view
type Model struct {
	levelBar   progress.Model
	channelBar progress.Model
	phase      Phase

	source string
	info   StreamInfoMsg
	level  LevelMsg
	peak   int
	err    error

	fragments uint64
	startTime time.Time
	stopTime  time.Time

	width           int
	completionDelay time.Duration
}

// NewModel creates a meter view for the named source
func NewModel(source string) *Model {
	// Level gradient: green → red
	levelBar := progress.New(
		progress.WithGradient(string(cli.LevelGreen), string(cli.LevelRed)),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	// Narrower bars for the per-channel rows
	channelBar := progress.New(
		progress.WithGradient(string(cli.LevelGreen), string(cli.LevelRed)),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	return &Model{
		levelBar:        levelBar,
		channelBar:      channelBar,
		phase:           PhaseConnecting,
		source:          source,
		completionDelay: time.Second,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.levelBar.Width = max(min(msg.Width-30, 60), 10)
		return m, nil

	case StreamInfoMsg:
		m.info = msg
		m.phase = PhaseOpening
		return m, nil

	case StreamStartedMsg:
		m.phase = PhaseMetering
		m.startTime = time.Now()
		return m, nil

	case LevelMsg:
		m.level = msg
		m.peak = max(m.peak, msg.Percent)
		m.fragments++
		return m, nil

	case StoppedMsg:
		m.err = msg.Err
		m.phase = PhaseStopped
		m.stopTime = time.Now()
		return m, tea.Tick(m.completionDelay, func(time.Time) tea.Msg {
			return quitMsg{}
		})

	case quitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the UI
func (m *Model) View() string {
	var s strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(cli.AccentCyan).
		Render(cli.DisplayName)
	s.WriteString(title)
	s.WriteString("\n")
	m.renderStreamInfo(&s)
	s.WriteString("\n\n")

	switch m.phase {
	case PhaseConnecting:
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Connecting..."))
	case PhaseOpening:
		s.WriteString(lipgloss.NewStyle().Faint(true).Render("Opening stream..."))
	default:
		m.renderLevels(&s)
	}

	if m.phase == PhaseStopped {
		s.WriteString("\n\n")
		if m.err != nil {
			s.WriteString(cli.ErrorStyle.Render("✗ " + m.err.Error()))
		} else {
			s.WriteString(cli.SuccessStyle.Render("✓ Stream ended"))
		}
	}

	border := cli.AccentCyan
	if m.phase == PhaseStopped && m.err != nil {
		border = cli.LevelRed
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		Render(s.String())
}

// Peak returns the highest percentage seen
func (m *Model) Peak() int {
	return m.peak
}

func (m *Model) renderStreamInfo(s *strings.Builder) {
	labelStyle := lipgloss.NewStyle().Faint(true)

	s.WriteString(labelStyle.Render("Source: "))
	s.WriteString(m.source)
	if m.info.Spec.Valid() {
		s.WriteString("  │  ")
		s.WriteString(m.info.Spec.String())
		s.WriteString("  │  ")
		s.WriteString(m.info.ChannelMap.String())
	}
}

func (m *Model) renderLevels(s *strings.Builder) {
	percent := m.level.Percent

	s.WriteString("Level: ")
	s.WriteString(m.levelBar.ViewAs(float64(percent) / 100))
	s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(cli.LevelColor(percent)).
		Render(fmt.Sprintf("  %3d%%", percent)))
	s.WriteString(lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("  Peak: %d%%", m.peak)))
	s.WriteString("\n")

	if len(m.level.Levels) > 0 {
		s.WriteString("\n")
		labelStyle := lipgloss.NewStyle().Faint(true)
		for c, l := range m.level.Levels {
			name := fmt.Sprintf("ch%d", c)
			if c < len(m.info.ChannelMap) {
				name = m.info.ChannelMap[c].String()
			}
			s.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", name)))
			s.WriteString(m.channelBar.ViewAs(min(l, 1)))
			s.WriteString(fmt.Sprintf(" %.3f\n", l))
		}
	}

	if len(m.level.Bars) > 0 {
		width := len(m.level.Bars)
		if m.width > 10 {
			width = min(m.width-10, width)
		}
		s.WriteString("\n")
		s.WriteString(lipgloss.NewStyle().Foreground(cli.LevelAmber).Render("Spectrum:"))
		s.WriteString("\n")
		s.WriteString(renderSpectrum(m.level.Bars, width))
		s.WriteString("\n")
	}

	elapsed := time.Duration(0)
	if !m.startTime.IsZero() {
		end := time.Now()
		if !m.stopTime.IsZero() {
			end = m.stopTime
		}
		elapsed = end.Sub(m.startTime)
	}
	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("Time: %s  │  Fragments: %d", formatDuration(elapsed), m.fragments)))
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// renderSpectrum draws bar heights as two rows of block characters
func renderSpectrum(barHeights []float64, width int) string {
	if len(barHeights) == 0 || width <= 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	// Sample bars to fit width
	stride := len(barHeights) / width
	if stride == 0 {
		stride = 1
	}

	displayHeights := make([]float64, 0, width)
	for i := 0; i < len(barHeights) && len(displayHeights) < width; i += stride {
		displayHeights = append(displayHeights, min(max(barHeights[i], 0), 1))
	}

	blockStyle := func(h float64, r rune) string {
		return lipgloss.NewStyle().
			Foreground(cli.LevelColor(int(h * 100))).
			Render(string(r))
	}

	var result strings.Builder

	// Top row shows the portion above 0.5
	for _, h := range displayHeights {
		if h > 0.5 {
			idx := min(int((h-0.5)*2*float64(len(blocks)-1)), len(blocks)-1)
			result.WriteString(blockStyle(h, blocks[idx]))
		} else {
			result.WriteString(" ")
		}
	}
	result.WriteString("\n")

	// Bottom row is full once the bar reaches the top row
	for _, h := range displayHeights {
		idx := len(blocks) - 1
		if h < 0.5 {
			idx = min(int(h*2*float64(len(blocks)-1)), len(blocks)-1)
		}
		result.WriteString(blockStyle(h, blocks[idx]))
	}

	return result.String()
}
