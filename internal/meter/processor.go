package meter

import (
	"log/slog"

	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/pipeline"
)

// Renderer displays a loudness percentage
type Renderer interface {
	Render(percent int)
}

// ReadingRenderer is implemented by renderers that want the full reading
// instead of the bare percentage
type ReadingRenderer interface {
	RenderReading(r Reading)
}

// Reading is the meter state after one fragment. Samples is only valid
// for the duration of the call.
type Reading struct {
	Percent  int
	Levels   []float64
	Samples  []float32
	Channels int
}

// Stats summarises a metering run
type Stats struct {
	Fragments   uint64  // Fragments metered
	Skipped     uint64  // Fragments dropped after a read error
	Peak        int     // Highest percentage rendered
	PeakLevel   float64 // Highest single-channel level seen
	OverRange   uint64  // Fragments with a channel above full scale
	SampleCount uint64
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithLogger sets the logger used for fragment warnings
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// Processor decodes fragments, feeds the Meter and renders the result.
// It implements pipeline.FragmentSink.
type Processor struct {
	meter    *Meter
	renderer Renderer
	logger   *slog.Logger
	samples  []float32
	stats    Stats
}

var _ pipeline.FragmentSink = (*Processor)(nil)

// NewProcessor creates a Processor rendering m through r
func NewProcessor(m *Meter, r Renderer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		meter:    m,
		renderer: r,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// OnFragment meters one fragment and releases it. A fragment carrying a
// read error is skipped and leaves the meter untouched.
func (p *Processor) OnFragment(f pipeline.Fragment) {
	defer f.Release()

	if f.Err != nil {
		p.stats.Skipped++
		p.logger.Warn("failed to read data from stream", "error", f.Err)
		return
	}

	p.meter.Begin()
	p.samples = audio.DecodeFloat32LE(p.samples[:0], f.Data)
	p.meter.Update(p.samples)
	percent := p.meter.Percent()

	p.record(percent)

	if rr, ok := p.renderer.(ReadingRenderer); ok {
		rr.RenderReading(Reading{
			Percent:  percent,
			Levels:   p.meter.Levels(),
			Samples:  p.samples,
			Channels: p.meter.Channels(),
		})
		return
	}
	p.renderer.Render(percent)
}

// Stats returns the counters collected so far
func (p *Processor) Stats() Stats {
	return p.stats
}

func (p *Processor) record(percent int) {
	p.stats.Fragments++
	p.stats.SampleCount += uint64(len(p.samples))
	p.stats.Peak = max(p.stats.Peak, percent)

	over := false
	for _, l := range p.meter.Levels() {
		p.stats.PeakLevel = max(p.stats.PeakLevel, l)
		if l > 1 {
			over = true
		}
	}
	if over {
		p.stats.OverRange++
	}
}
