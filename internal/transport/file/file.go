// Package file replays an audio file through the meter as if it were a
// live monitor stream.
package file

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/config"
	"github.com/linuxmatters/jivemeter/internal/pipeline"
)

const eventBuffer = 64

// Options configures the transport
type Options struct {
	// Path is the .wav, .mp3 or .flac file to replay
	Path string

	// FragmentMs is the length of each fragment
	FragmentMs int

	// Realtime paces fragments at playback speed. Without it the file is
	// read as fast as the consumer keeps up.
	Realtime bool

	Logger *slog.Logger
}

// Transport implements pipeline.Transport by decoding a file
type Transport struct {
	opts   Options
	logger *slog.Logger
	events chan pipeline.Event
	pool   *audio.BufferPool

	done      chan struct{}
	closeOnce sync.Once

	// mu guards the decoder's owner: Close closes it unless a replay has
	// claimed it, in which case the replay closes it when it ends
	mu        sync.Mutex
	decoder   audio.AudioDecoder
	replaying bool
	closed    bool

	wg sync.WaitGroup
}

var _ pipeline.Transport = (*Transport)(nil)

// New creates a transport for opts.Path. The file is opened on Connect.
func New(opts Options) *Transport {
	if opts.FragmentMs <= 0 {
		opts.FragmentMs = config.DefaultFragmentMs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		opts:   opts,
		logger: logger.With("transport", "file"),
		events: make(chan pipeline.Event, eventBuffer),
		pool:   audio.NewBufferPool(0),
		done:   make(chan struct{}),
	}
}

// Events returns the notification channel
func (t *Transport) Events() <-chan pipeline.Event {
	return t.events
}

// Connect opens and probes the file
func (t *Transport) Connect() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		dec, err := audio.OpenDecoder(t.opts.Path)
		if err != nil {
			t.post(pipeline.SessionChanged{State: pipeline.SessionFailed, Err: err})
			return
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			dec.Close()
			return
		}
		t.decoder = dec
		t.mu.Unlock()

		t.logger.Debug("opened file", "path", t.opts.Path,
			"rate", dec.SampleRate(), "channels", dec.NumChannels())
		t.post(pipeline.SessionChanged{State: pipeline.SessionReady})
	}()
}

// QueryDevice reports the file as the only device. The name is ignored.
func (t *Transport) QueryDevice(name string) {
	go func() {
		dec := t.currentDecoder()
		if dec == nil {
			t.post(pipeline.DeviceInfoResult{Err: errors.New("file not open")})
			return
		}

		channels := dec.NumChannels()
		info := &audio.DeviceInfo{
			Name:          filepath.Base(t.opts.Path),
			Description:   t.opts.Path,
			MonitorSource: t.opts.Path,
			Spec: audio.SampleSpec{
				Format:   audio.FormatFloat32LE,
				Rate:     dec.SampleRate(),
				Channels: channels,
			},
			ChannelMap: audio.DefaultChannelMap(channels),
		}
		if t.post(pipeline.DeviceInfoResult{Info: info}) {
			t.post(pipeline.DeviceInfoResult{Last: true})
		}
	}()
}

// CreateStream starts replaying the file. The file's own rate and channel
// count must match spec since no resampling is done.
func (t *Transport) CreateStream(spec audio.SampleSpec, cmap audio.ChannelMap, source string) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		dec := t.currentDecoder()
		if dec == nil {
			t.post(pipeline.StreamChanged{State: pipeline.StreamFailed, Err: errors.New("file not open")})
			return
		}
		if spec.Rate != dec.SampleRate() || spec.Channels != dec.NumChannels() {
			t.post(pipeline.StreamChanged{
				State: pipeline.StreamFailed,
				Err: fmt.Errorf("requested %s but %s is %dch %dHz",
					spec, t.opts.Path, dec.NumChannels(), dec.SampleRate()),
			})
			return
		}

		if !t.claimDecoder() {
			return
		}
		defer dec.Close()

		if !t.post(pipeline.StreamChanged{State: pipeline.StreamReady}) {
			return
		}
		t.replay(dec, spec)
	}()
}

// Close stops the replay. The file is closed here unless a replay owns it.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		defer t.mu.Unlock()
		t.closed = true
		if t.decoder != nil && !t.replaying {
			err = t.decoder.Close()
		}
	})
	return err
}

// claimDecoder hands the decoder to a replay. It fails once the transport
// is closed, since Close has then already closed the decoder.
func (t *Transport) claimDecoder() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.replaying {
		return false
	}
	t.replaying = true
	return true
}

func (t *Transport) replay(dec audio.AudioDecoder, spec audio.SampleSpec) {
	frames := max(spec.Rate*t.opts.FragmentMs/1000, 1)
	interval := time.Duration(frames) * time.Second / time.Duration(spec.Rate)

	var tick <-chan time.Time
	if t.opts.Realtime {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var sent int
	for {
		if tick != nil {
			select {
			case <-t.done:
				return
			case <-tick:
			}
		}

		samples, err := dec.ReadChunk(frames)
		if len(samples) > 0 {
			data := audio.EncodeFloat32LE(t.pool.Get(len(samples)*4), samples)
			f := pipeline.NewFragment(data, func() { t.pool.Put(data) })
			if !t.post(pipeline.FragmentAvailable{Fragment: f}) {
				return
			}
			sent++
		}

		if errors.Is(err, io.EOF) {
			t.logger.Debug("end of file", "fragments", sent)
			t.post(pipeline.StreamChanged{State: pipeline.StreamTerminated})
			return
		}
		if err != nil {
			t.post(pipeline.StreamChanged{
				State: pipeline.StreamFailed,
				Err:   fmt.Errorf("decoding %s: %w", t.opts.Path, err),
			})
			return
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

func (t *Transport) currentDecoder() audio.AudioDecoder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decoder
}
