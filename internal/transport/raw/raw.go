// Package raw meters interleaved float32le frames read from a byte stream,
// typically stdin fed by `parec --format=float32le` or `pw-record`.
package raw

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/config"
	"github.com/linuxmatters/jivemeter/internal/pipeline"
)

const eventBuffer = 64

// maxReadErrors is how many consecutive failed reads end the stream
const maxReadErrors = 8

// Options configures the transport
type Options struct {
	// Reader supplies the samples
	Reader io.Reader

	// Name labels the device, e.g. "stdin"
	Name string

	SampleRate int
	Channels   int
	FragmentMs int

	Logger *slog.Logger
}

// Transport implements pipeline.Transport over an io.Reader. The stream
// format cannot be probed, so it comes from Options.
type Transport struct {
	opts   Options
	logger *slog.Logger
	events chan pipeline.Event
	pool   *audio.BufferPool

	done      chan struct{}
	closeOnce sync.Once
}

var _ pipeline.Transport = (*Transport)(nil)

// New creates a transport reading from opts.Reader
func New(opts Options) *Transport {
	if opts.Name == "" {
		opts.Name = "stdin"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = config.DefaultSampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = config.DefaultChannels
	}
	if opts.FragmentMs <= 0 {
		opts.FragmentMs = config.DefaultFragmentMs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		opts:   opts,
		logger: logger.With("transport", "raw"),
		events: make(chan pipeline.Event, eventBuffer),
		pool:   audio.NewBufferPool(0),
		done:   make(chan struct{}),
	}
}

// Events returns the notification channel
func (t *Transport) Events() <-chan pipeline.Event {
	return t.events
}

// Connect has nothing to negotiate and reports ready at once
func (t *Transport) Connect() {
	go func() {
		if t.opts.Reader == nil {
			t.post(pipeline.SessionChanged{State: pipeline.SessionFailed, Err: errors.New("no input reader")})
			return
		}
		t.post(pipeline.SessionChanged{State: pipeline.SessionReady})
	}()
}

// QueryDevice describes the input using the configured format
func (t *Transport) QueryDevice(name string) {
	go func() {
		info := &audio.DeviceInfo{
			Name:          t.opts.Name,
			Description:   "raw float32le input",
			MonitorSource: t.opts.Name,
			Spec: audio.SampleSpec{
				Format:   audio.FormatFloat32LE,
				Rate:     t.opts.SampleRate,
				Channels: t.opts.Channels,
			},
			ChannelMap: audio.DefaultChannelMap(t.opts.Channels),
		}
		if t.post(pipeline.DeviceInfoResult{Info: info}) {
			t.post(pipeline.DeviceInfoResult{Last: true})
		}
	}()
}

// CreateStream starts reading fragments
func (t *Transport) CreateStream(spec audio.SampleSpec, cmap audio.ChannelMap, source string) {
	go func() {
		if spec.Format != audio.FormatFloat32LE || spec.Channels != t.opts.Channels {
			t.post(pipeline.StreamChanged{
				State: pipeline.StreamFailed,
				Err:   fmt.Errorf("input is float32le %dch, requested %s", t.opts.Channels, spec),
			})
			return
		}
		if !t.post(pipeline.StreamChanged{State: pipeline.StreamReady}) {
			return
		}
		t.read(spec)
	}()
}

// Close stops delivering events. A blocked read on the underlying reader
// is not interrupted.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

func (t *Transport) read(spec audio.SampleSpec) {
	frames := max(spec.Rate*t.opts.FragmentMs/1000, 1)
	size := frames * spec.FrameSize()

	failures := 0
	for {
		buf := t.pool.Get(size)[:size]
		n, err := io.ReadFull(t.opts.Reader, buf)

		if n > 0 {
			data := buf[:n]
			f := pipeline.NewFragment(data, func() { t.pool.Put(data) })
			if !t.post(pipeline.FragmentAvailable{Fragment: f}) {
				return
			}
		} else {
			t.pool.Put(buf)
		}

		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			t.logger.Debug("end of input")
			t.post(pipeline.StreamChanged{State: pipeline.StreamTerminated})
			return
		default:
			failures++
			t.post(pipeline.FragmentAvailable{Fragment: pipeline.FailedFragment(err)})
			if failures >= maxReadErrors {
				t.post(pipeline.StreamChanged{
					State: pipeline.StreamFailed,
					Err:   fmt.Errorf("reading %s: %w", t.opts.Name, err),
				})
				return
			}
		}
	}
}

func (t *Transport) post(ev pipeline.Event) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	}
}
