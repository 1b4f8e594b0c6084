// Package pulse connects the meter to a PulseAudio (or pipewire-pulse)
// server using the native protocol client.
package pulse

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pa "github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/linuxmatters/jivemeter/internal/audio"
	"github.com/linuxmatters/jivemeter/internal/config"
	"github.com/linuxmatters/jivemeter/internal/pipeline"
)

// DefaultSink is the server-side alias for the default output device
const DefaultSink = "@DEFAULT_SINK@"

// pa_sample_format wire values
const (
	sampleS16LE     = 3
	sampleFloat32LE = 5
)

const (
	eventBuffer  = 64
	pollInterval = 100 * time.Millisecond
)

var errNotConnected = errors.New("not connected")

// Options configures the transport
type Options struct {
	// Server is the server string, empty for the environment default
	Server string

	// AppName is the client name shown in the server's client list
	AppName string

	// StreamName is the media name of the record stream
	StreamName string

	// FragmentMs is the requested capture fragment length
	FragmentMs int

	Logger *slog.Logger
}

// Transport implements pipeline.Transport on top of a PulseAudio client.
// Every command runs on its own goroutine and reports back through Events.
type Transport struct {
	opts   Options
	logger *slog.Logger
	events chan pipeline.Event
	pool   *audio.BufferPool

	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	client *pa.Client
	stream *pa.RecordStream

	// Fragments dropped because the event buffer was full
	dropped atomic.Uint64
}

var _ pipeline.Transport = (*Transport)(nil)

// New creates an unconnected transport
func New(opts Options) *Transport {
	if opts.AppName == "" {
		opts.AppName = config.AppName
	}
	if opts.StreamName == "" {
		opts.StreamName = config.StreamName
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
		logger: logger.With("transport", "pulse"),
		events: make(chan pipeline.Event, eventBuffer),
		pool:   audio.NewBufferPool(0),
		done:   make(chan struct{}),
	}
}

// Events returns the notification channel
func (t *Transport) Events() <-chan pipeline.Event {
	return t.events
}

// Connect opens the client connection
func (t *Transport) Connect() {
	go t.connect()
}

// QueryDevice looks up a sink, empty name meaning the default sink
func (t *Transport) QueryDevice(name string) {
	go t.queryDevice(name)
}

// CreateStream opens a record stream on the given source
func (t *Transport) CreateStream(spec audio.SampleSpec, cmap audio.ChannelMap, source string) {
	go t.createStream(spec, cmap, source)
}

// Close stops the stream and disconnects. It is safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.stream != nil {
			t.stream.Stop()
			t.stream.Close()
		}
		if t.client != nil {
			t.client.Close()
		}
		if n := t.dropped.Load(); n > 0 {
			t.logger.Warn("dropped fragments while the meter was busy", "fragments", n)
		}
	})
	return nil
}

func (t *Transport) connect() {
	opts := []pa.ClientOption{pa.ClientApplicationName(t.opts.AppName)}
	if t.opts.Server != "" {
		opts = append(opts, pa.ClientServerString(t.opts.Server))
	}

	t.logger.Debug("connecting", "server", t.serverLabel())
	client, err := pa.NewClient(opts...)
	if err != nil {
		t.post(pipeline.SessionChanged{
			State: pipeline.SessionFailed,
			Err:   fmt.Errorf("connecting to %s: %w", t.serverLabel(), err),
		})
		return
	}

	t.mu.Lock()
	select {
	case <-t.done:
		t.mu.Unlock()
		client.Close()
		return
	default:
	}
	t.client = client
	t.mu.Unlock()

	t.post(pipeline.SessionChanged{State: pipeline.SessionReady})
}

func (t *Transport) queryDevice(name string) {
	client := t.currentClient()
	if client == nil {
		t.post(pipeline.DeviceInfoResult{Err: errNotConnected})
		return
	}
	if name == "" {
		name = DefaultSink
	}

	var reply proto.GetSinkInfoReply
	err := client.RawRequest(&proto.GetSinkInfo{SinkIndex: proto.Undefined, SinkName: name}, &reply)
	if err != nil {
		t.post(pipeline.DeviceInfoResult{Err: fmt.Errorf("sink %q: %w", name, err)})
		return
	}

	info := deviceInfo(&reply)
	t.logger.Debug("sink info", "name", info.Name, "monitor", info.MonitorSource, "spec", info.Spec)
	if !t.post(pipeline.DeviceInfoResult{Info: info}) {
		return
	}
	t.post(pipeline.DeviceInfoResult{Last: true})
}

func (t *Transport) createStream(spec audio.SampleSpec, cmap audio.ChannelMap, source string) {
	client := t.currentClient()
	if client == nil {
		t.post(pipeline.StreamChanged{State: pipeline.StreamFailed, Err: errNotConnected})
		return
	}

	src, err := client.SourceByID(source)
	if err != nil {
		t.post(pipeline.StreamChanged{
			State: pipeline.StreamFailed,
			Err:   fmt.Errorf("source %q: %w", source, err),
		})
		return
	}

	w := &fragmentWriter{transport: t}
	stream, err := client.NewRecord(pa.NewWriter(w, proto.FormatFloat32LE),
		pa.RecordSource(src),
		pa.RecordSampleRate(spec.Rate),
		pa.RecordChannels(protoChannelMap(cmap)),
		pa.RecordBufferFragmentSize(uint32(fragmentBytes(spec, t.opts.FragmentMs))),
		pa.RecordMediaName(t.opts.StreamName),
	)
	if err != nil {
		t.post(pipeline.StreamChanged{
			State: pipeline.StreamFailed,
			Err:   fmt.Errorf("creating record stream: %w", err),
		})
		return
	}

	t.mu.Lock()
	t.stream = stream
	t.mu.Unlock()

	if !t.post(pipeline.StreamChanged{State: pipeline.StreamReady}) {
		return
	}
	stream.Start()
	t.logger.Debug("record stream started", "source", source, "spec", spec)

	t.watch(stream)
}

// watch reports the end of the stream: killed by the server, failed while
// writing, or closed
func (t *Transport) watch(stream *pa.RecordStream) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}

		if !stream.Closed() {
			continue
		}
		if err := stream.Error(); err != nil {
			t.post(pipeline.StreamChanged{State: pipeline.StreamFailed, Err: err})
		} else {
			t.post(pipeline.StreamChanged{State: pipeline.StreamTerminated})
		}
		return
	}
}

// post delivers ev unless the transport is closed
func (t *Transport) post(ev pipeline.Event) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	}
}

func (t *Transport) currentClient() *pa.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

func (t *Transport) serverLabel() string {
	if t.opts.Server == "" {
		return "default server"
	}
	return t.opts.Server
}

// tryPost is post without blocking: it fails when the buffer is full
func (t *Transport) tryPost(ev pipeline.Event) bool {
	select {
	case <-t.done:
		return false
	default:
	}
	select {
	case t.events <- ev:
		return true
	default:
		return false
	}
}

// fragmentWriter turns record callbacks into pooled fragments. It runs on
// the client's read goroutine, which must never wait on the meter: when
// the event buffer is full the fragment is dropped.
type fragmentWriter struct {
	transport *Transport
}

func (w *fragmentWriter) Write(p []byte) (int, error) {
	t := w.transport
	data := t.pool.Copy(p)
	f := pipeline.NewFragment(data, func() { t.pool.Put(data) })
	if !t.tryPost(pipeline.FragmentAvailable{Fragment: f}) {
		t.pool.Put(data)
		select {
		case <-t.done:
		default:
			n := t.dropped.Add(1)
			t.logger.Debug("event buffer full, fragment dropped", "bytes", len(p), "dropped", n)
		}
	}
	return len(p), nil
}

func deviceInfo(r *proto.GetSinkInfoReply) *audio.DeviceInfo {
	cmap := make(audio.ChannelMap, len(r.ChannelMap))
	for i, p := range r.ChannelMap {
		cmap[i] = audio.ChannelPosition(p)
	}
	return &audio.DeviceInfo{
		Name:          r.SinkName,
		Description:   r.Device,
		MonitorSource: r.MonitorSourceName,
		Spec: audio.SampleSpec{
			Format:   sampleFormat(r.SampleSpec.Format),
			Rate:     int(r.SampleSpec.Rate),
			Channels: int(r.SampleSpec.Channels),
		},
		ChannelMap: cmap,
	}
}

func sampleFormat(f byte) audio.SampleFormat {
	switch f {
	case sampleS16LE:
		return audio.FormatS16LE
	case sampleFloat32LE:
		return audio.FormatFloat32LE
	default:
		return audio.FormatUnknown
	}
}

func protoChannelMap(cmap audio.ChannelMap) proto.ChannelMap {
	m := make(proto.ChannelMap, len(cmap))
	for i, p := range cmap {
		m[i] = byte(p)
	}
	return m
}

// fragmentBytes returns the capture fragment size for ms milliseconds,
// rounded down to whole frames
func fragmentBytes(spec audio.SampleSpec, ms int) int {
	frames := max(spec.Rate*ms/1000, 1)
	return frames * spec.FrameSize()
}
