package ui

import (
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/config"
	"github.com/linuxmatters/jivemeter/internal/meter"
)

// Program runs the meter view and feeds it from the event loop. Every
// method except Run may be called from another goroutine.
type Program struct {
	program  *tea.Program
	analyzer *audio.SpectrumAnalyzer
	bars     []float64
}

// NewProgram creates the TUI for the named source
func NewProgram(source string, opts ...tea.ProgramOption) (*Program, error) {
	analyzer, err := audio.NewSpectrumAnalyzer(audio.SpectrumSize)
	if err != nil {
		return nil, err
	}

	return &Program{
		program:  tea.NewProgram(NewModel(source), opts...),
		analyzer: analyzer,
		bars:     make([]float64, config.SpectrumBars),
	}, nil
}

// Run blocks until the view quits
func (p *Program) Run() error {
	_, err := p.program.Run()
	return err
}

// Render shows a bare percentage
func (p *Program) Render(percent int) {
	p.program.Send(LevelMsg{Percent: percent})
}

// RenderReading shows the percentage, channel peaks and a spectrum of the
// fragment's samples
func (p *Program) RenderReading(r meter.Reading) {
	msg := LevelMsg{Percent: r.Percent, Levels: r.Levels}
	if err := p.analyzer.Process(r.Samples, r.Channels, p.bars); err == nil {
		msg.Bars = slices.Clone(p.bars)
	}
	p.program.Send(msg)
}

// StreamOpening shows the negotiated format
func (p *Program) StreamOpening(spec audio.SampleSpec, cmap audio.ChannelMap) {
	p.program.Send(StreamInfoMsg{Spec: spec, ChannelMap: cmap})
}

// StreamStarted switches the view to live metering
func (p *Program) StreamStarted() {
	p.program.Send(StreamStartedMsg{})
}

// Stop shows the final state briefly and quits
func (p *Program) Stop(err error) {
	p.program.Send(StoppedMsg{Err: err})
}

// Quit exits immediately
func (p *Program) Quit() {
	p.program.Quit()
}
