// Package pipeline drives the audio connection: it connects to the server,
// looks up the target device, opens one monitoring stream with a negotiated
// float32 format and forwards captured fragments to a FragmentSink.
//
// All events are handled on the goroutine running Run, so the Machine and
// everything it calls need no locking.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/linuxmatters/jivemeter/internal/audio"
)

// Transport is the asynchronous audio subsystem driven by the Machine.
// Command methods must not block: results are delivered later on Events.
type Transport interface {
	// Connect starts connecting the session
	Connect()

	// QueryDevice looks up an output device by name, empty for the default
	QueryDevice(name string)

	// CreateStream opens a capture stream on source with the given format
	CreateStream(spec audio.SampleSpec, cmap audio.ChannelMap, source string)

	// Events delivers notifications in order
	Events() <-chan Event

	// Close tears down the stream and session
	Close() error
}

// FragmentSink consumes fragments once the stream is ready. It owns the
// fragment and must Release it.
type FragmentSink interface {
	OnFragment(f Fragment)
}

// Notifier receives user-visible stream milestones
type Notifier interface {
	StreamOpening(spec audio.SampleSpec, cmap audio.ChannelMap)
	StreamStarted()
}

// Option configures a Machine
type Option func(*Machine)

// WithDevice sets the target output device name
func WithDevice(name string) Option {
	return func(m *Machine) { m.device = name }
}

// WithNotifier sets the receiver of stream milestones
func WithNotifier(n Notifier) Option {
	return func(m *Machine) { m.notifier = n }
}

// WithLogger sets the diagnostics logger
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// Machine is the connection state machine
type Machine struct {
	transport Transport
	sink      FragmentSink
	notifier  Notifier
	logger    *slog.Logger
	device    string

	session       SessionState
	stream        StreamState
	queried       bool
	streamCreated bool
	spec          audio.SampleSpec
	done          bool
}

// NewMachine creates a Machine that drives t and feeds sink
func NewMachine(t Transport, sink FragmentSink, opts ...Option) *Machine {
	m := &Machine{
		transport: t,
		sink:      sink,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Start begins connecting the session
func (m *Machine) Start() error {
	if m.session != SessionUnconnected {
		return fmt.Errorf("%w: start in session state %s", ErrIllegalTransition, m.session)
	}
	m.session = SessionConnecting
	m.transport.Connect()
	return nil
}

// Handle applies one event. A non-nil error is fatal.
func (m *Machine) Handle(ev Event) error {
	switch ev := ev.(type) {
	case SessionChanged:
		return m.handleSession(ev)
	case DeviceInfoResult:
		return m.handleDeviceInfo(ev)
	case StreamChanged:
		return m.handleStream(ev)
	case FragmentAvailable:
		m.handleFragment(ev.Fragment)
		return nil
	default:
		m.logger.Debug("ignoring unknown event", "type", fmt.Sprintf("%T", ev))
		return nil
	}
}

// Done reports whether the session or stream reached a clean terminal state
func (m *Machine) Done() bool {
	return m.done
}

// SessionState returns the current session state
func (m *Machine) SessionState() SessionState {
	return m.session
}

// StreamState returns the current stream state
func (m *Machine) StreamState() StreamState {
	return m.stream
}

// StreamSpec returns the negotiated stream format, zero before negotiation
func (m *Machine) StreamSpec() audio.SampleSpec {
	return m.spec
}

func (m *Machine) handleSession(ev SessionChanged) error {
	if ev.State == m.session {
		return nil
	}
	if !sessionTransitionAllowed(m.session, ev.State) {
		return fmt.Errorf("%w: session %s -> %s", ErrIllegalTransition, m.session, ev.State)
	}

	m.logger.Debug("session state changed", "from", m.session, "to", ev.State)
	m.session = ev.State

	switch ev.State {
	case SessionReady:
		if m.streamCreated {
			return ErrStreamExists
		}
		m.queried = true
		m.transport.QueryDevice(m.device)
	case SessionFailed:
		return failure("session", ev.Err)
	case SessionTerminated:
		m.done = true
	}
	return nil
}

func (m *Machine) handleDeviceInfo(ev DeviceInfoResult) error {
	if !m.queried {
		m.logger.Debug("ignoring unsolicited device info")
		return nil
	}

	// Only the first valid result creates the stream
	if m.streamCreated {
		return nil
	}

	if ev.Err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceQuery, ev.Err)
	}

	if ev.Info == nil {
		if ev.Last {
			return fmt.Errorf("%w %q", ErrNoDevice, m.deviceLabel())
		}
		return nil
	}

	info := ev.Info
	spec := audio.SampleSpec{
		Format:   audio.FormatFloat32LE,
		Rate:     info.Spec.Rate,
		Channels: info.Spec.Channels,
	}
	if !spec.Valid() {
		return fmt.Errorf("%w: device %q reports unusable format %s", ErrDeviceQuery, info.Name, info.Spec)
	}

	cmap := info.ChannelMap
	if len(cmap) != spec.Channels {
		cmap = audio.DefaultChannelMap(spec.Channels)
	}

	m.logger.Debug("device found", "name", info.Name, "monitor", info.MonitorSource, "spec", info.Spec)
	return m.createStream(spec, cmap, info.MonitorSource)
}

func (m *Machine) createStream(spec audio.SampleSpec, cmap audio.ChannelMap, source string) error {
	if m.streamCreated || m.stream != StreamUnconnected {
		return ErrStreamExists
	}

	m.streamCreated = true
	m.stream = StreamCreating
	m.spec = spec

	if m.notifier != nil {
		m.notifier.StreamOpening(spec, cmap)
	}
	m.transport.CreateStream(spec, cmap, source)
	return nil
}

func (m *Machine) handleStream(ev StreamChanged) error {
	if !m.streamCreated {
		return fmt.Errorf("%w: stream %s before creation", ErrIllegalTransition, ev.State)
	}
	if ev.State == m.stream {
		return nil
	}
	if !streamTransitionAllowed(m.stream, ev.State) {
		return fmt.Errorf("%w: stream %s -> %s", ErrIllegalTransition, m.stream, ev.State)
	}

	m.logger.Debug("stream state changed", "from", m.stream, "to", ev.State)
	m.stream = ev.State

	switch ev.State {
	case StreamReady:
		if m.notifier != nil {
			m.notifier.StreamStarted()
		}
	case StreamFailed:
		return failure("stream", ev.Err)
	case StreamTerminated:
		m.done = true
	}
	return nil
}

func (m *Machine) handleFragment(f Fragment) {
	if m.stream != StreamReady {
		m.logger.Debug("dropping fragment before stream is ready", "stream", m.stream)
		f.Release()
		return
	}
	m.sink.OnFragment(f)
}

func (m *Machine) deviceLabel() string {
	if m.device == "" {
		return "@DEFAULT_SINK@"
	}
	return m.device
}

func failure(what string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s failed", ErrConnectionFailed, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, what, err)
}

func sessionTransitionAllowed(from, to SessionState) bool {
	switch from {
	case SessionUnconnected:
		return to == SessionConnecting
	case SessionConnecting:
		return to == SessionAuthorizing || to == SessionSettingName || to == SessionReady ||
			to == SessionFailed || to == SessionTerminated
	case SessionAuthorizing:
		return to == SessionSettingName || to == SessionReady || to == SessionFailed || to == SessionTerminated
	case SessionSettingName:
		return to == SessionReady || to == SessionFailed || to == SessionTerminated
	case SessionReady:
		return to == SessionFailed || to == SessionTerminated
	default:
		return false
	}
}

func streamTransitionAllowed(from, to StreamState) bool {
	switch from {
	case StreamUnconnected:
		return to == StreamCreating
	case StreamCreating:
		return to == StreamReady || to == StreamFailed || to == StreamTerminated
	case StreamReady:
		return to == StreamFailed || to == StreamTerminated
	default:
		return false
	}
}
