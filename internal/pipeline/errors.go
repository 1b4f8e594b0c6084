package pipeline

import "errors"

var (
	// ErrConnectionFailed is returned when the session or the stream fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrDeviceQuery is returned when the device information lookup fails
	ErrDeviceQuery = errors.New("failed to get sink information")

	// ErrNoDevice is returned when a device query ends without any result
	ErrNoDevice = errors.New("no such sink")

	// ErrIllegalTransition is returned when a transport reports a state
	// change the state machine does not allow
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrStreamExists guards against creating a second monitoring stream
	ErrStreamExists = errors.New("monitoring stream already exists")
)
