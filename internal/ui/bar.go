package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/cli"
	"github.com/linuxmatters/jivemeter/internal/config"
)

// Bar renders the meter as a single line that is rewritten in place:
//
//	[########            ] 40%  \r
//
// It also prints the stream format lines when the stream opens.
type Bar struct {
	out      *bufio.Writer
	width    int
	color    bool
	renderer *lipgloss.Renderer
	err      error
}

// BarOption configures a Bar
type BarOption func(*Bar)

// WithWidth sets the number of cells between the brackets
func WithWidth(width int) BarOption {
	return func(b *Bar) {
		if width > 0 {
			b.width = width
		}
	}
}

// WithColor colours the filled cells by level zone
func WithColor(enabled bool) BarOption {
	return func(b *Bar) { b.color = enabled }
}

// NewBar creates a Bar writing to w
func NewBar(w io.Writer, opts ...BarOption) *Bar {
	b := &Bar{
		out:      bufio.NewWriter(w),
		width:    config.BarWidth,
		renderer: lipgloss.NewRenderer(w),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Render draws the bar for percent and flushes
func (b *Bar) Render(percent int) {
	percent = min(max(percent, 0), config.MaxPercent)
	filled := percent * b.width / config.MaxPercent

	fill := strings.Repeat("#", filled)
	if b.color && filled > 0 {
		fill = b.renderer.NewStyle().Foreground(cli.LevelColor(percent)).Render(fill)
	}

	b.printf("[%s%s] %d%%  \r", fill, strings.Repeat(" ", b.width-filled), percent)
	b.flush()
}

// StreamOpening prints the negotiated stream format
func (b *Bar) StreamOpening(spec audio.SampleSpec, cmap audio.ChannelMap) {
	b.printf("Using sample format: %s\n", spec)
	b.printf("Using channel map: %s\n", cmap)
	b.flush()
}

// StreamStarted moves the cursor below the format lines
func (b *Bar) StreamStarted() {
	b.printf("\n")
	b.flush()
}

// Err returns the first write error, if any
func (b *Bar) Err() error {
	return b.err
}

func (b *Bar) printf(format string, args ...any) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintf(b.out, format, args...)
}

func (b *Bar) flush() {
	if b.err != nil {
		return
	}
	b.err = b.out.Flush()
}
