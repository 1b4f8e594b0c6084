package pipeline

import "github.com/linuxmatters/jivemeter/internal/audio"

// SessionState is the state of the connection to the audio server
type SessionState int

const (
	SessionUnconnected SessionState = iota
	SessionConnecting
	SessionAuthorizing
	SessionSettingName
	SessionReady
	SessionFailed
	SessionTerminated
)

var sessionStateNames = [...]string{
	SessionUnconnected: "unconnected",
	SessionConnecting:  "connecting",
	SessionAuthorizing: "authorizing",
	SessionSettingName: "setting-name",
	SessionReady:       "ready",
	SessionFailed:      "failed",
	SessionTerminated:  "terminated",
}

func (s SessionState) String() string {
	if s >= 0 && int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	return "unknown"
}

// StreamState is the state of the monitoring stream
type StreamState int

const (
	StreamUnconnected StreamState = iota
	StreamCreating
	StreamReady
	StreamFailed
	StreamTerminated
)

var streamStateNames = [...]string{
	StreamUnconnected: "unconnected",
	StreamCreating:    "creating",
	StreamReady:       "ready",
	StreamFailed:      "failed",
	StreamTerminated:  "terminated",
}

func (s StreamState) String() string {
	if s >= 0 && int(s) < len(streamStateNames) {
		return streamStateNames[s]
	}
	return "unknown"
}

// Event is a notification delivered by a Transport
type Event interface {
	event()
}

// SessionChanged reports a new session state. Err carries the transport
// error when State is SessionFailed.
type SessionChanged struct {
	State SessionState
	Err   error
}

// DeviceInfoResult is one answer to a device query. A query yields zero or
// more results with Info set, terminated by one with Last set. Err reports a
// failed query.
type DeviceInfoResult struct {
	Info *audio.DeviceInfo
	Last bool
	Err  error
}

// StreamChanged reports a new stream state
type StreamChanged struct {
	State StreamState
	Err   error
}

// FragmentAvailable delivers captured data
type FragmentAvailable struct {
	Fragment Fragment
}

func (SessionChanged) event()    {}
func (DeviceInfoResult) event()  {}
func (StreamChanged) event()     {}
func (FragmentAvailable) event() {}

// Fragment is one chunk of interleaved float32le samples. Err is set when
// the transport could not supply the data for this cycle.
type Fragment struct {
	Data    []byte
	Err     error
	release func()
}

// NewFragment wraps data with a release callback run by Release
func NewFragment(data []byte, release func()) Fragment {
	return Fragment{Data: data, release: release}
}

// FailedFragment reports a fragment read error
func FailedFragment(err error) Fragment {
	return Fragment{Err: err}
}

// Release hands the buffer back to the transport. Data must not be used afterwards.
func (f Fragment) Release() {
	if f.release != nil {
		f.release()
	}
}
