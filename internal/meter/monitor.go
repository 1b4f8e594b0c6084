package meter

import (
	"log/slog"

	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/pipeline"
)

// Monitor sits between the state machine and the display. The channel
// count is only known once the stream format is negotiated, so the Meter
// and Processor are built when the stream opens.
type Monitor struct {
	renderer  Renderer
	notifier  pipeline.Notifier
	meterOpts []Option
	procOpts  []ProcessorOption

	processor *Processor
}

var (
	_ pipeline.FragmentSink = (*Monitor)(nil)
	_ pipeline.Notifier     = (*Monitor)(nil)
)

// NewMonitor creates a Monitor rendering through r. Stream milestones are
// forwarded to n when it is not nil.
func NewMonitor(r Renderer, n pipeline.Notifier, meterOpts []Option, procOpts ...ProcessorOption) *Monitor {
	return &Monitor{
		renderer:  r,
		notifier:  n,
		meterOpts: meterOpts,
		procOpts:  procOpts,
	}
}

// StreamOpening builds the meter for the negotiated channel count
func (mon *Monitor) StreamOpening(spec audio.SampleSpec, cmap audio.ChannelMap) {
	mon.processor = NewProcessor(New(spec.Channels, mon.meterOpts...), mon.renderer, mon.procOpts...)
	if mon.notifier != nil {
		mon.notifier.StreamOpening(spec, cmap)
	}
}

// StreamStarted forwards to the display
func (mon *Monitor) StreamStarted() {
	if mon.notifier != nil {
		mon.notifier.StreamStarted()
	}
}

// OnFragment meters f, or releases it if no stream has opened yet
func (mon *Monitor) OnFragment(f pipeline.Fragment) {
	if mon.processor == nil {
		slog.Debug("fragment before stream format is known")
		f.Release()
		return
	}
	mon.processor.OnFragment(f)
}

// Stats returns the processor counters, zero before the stream opens
func (mon *Monitor) Stats() Stats {
	if mon.processor == nil {
		return Stats{}
	}
	return mon.processor.Stats()
}
