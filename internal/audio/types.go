package audio

import (
	"fmt"
	"strings"
)

// SampleFormat identifies the encoding of a single sample
type SampleFormat int

const (
	FormatUnknown SampleFormat = iota
	FormatS16LE
	FormatFloat32LE
)

// String returns the PulseAudio-style short name of the format
func (f SampleFormat) String() string {
	switch f {
	case FormatS16LE:
		return "s16le"
	case FormatFloat32LE:
		return "float32le"
	default:
		return "invalid"
	}
}

// BytesPerSample returns the size of one sample in bytes (0 if unknown)
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatS16LE:
		return 2
	case FormatFloat32LE:
		return 4
	default:
		return 0
	}
}

// SampleSpec describes a stream format: encoding, rate and channel count
type SampleSpec struct {
	Format   SampleFormat
	Rate     int
	Channels int
}

// String renders the sample spec the way pa_sample_spec_snprint does, e.g. "float32le 2ch 44100Hz"
func (s SampleSpec) String() string {
	if !s.Valid() {
		return "(invalid)"
	}
	return fmt.Sprintf("%s %dch %dHz", s.Format, s.Channels, s.Rate)
}

// Valid reports whether the sample spec can describe a real stream
func (s SampleSpec) Valid() bool {
	return s.Format.BytesPerSample() > 0 && s.Rate > 0 && s.Channels > 0
}

// FrameSize returns the number of bytes in one interleaved frame
func (s SampleSpec) FrameSize() int {
	return s.Format.BytesPerSample() * s.Channels
}

// ChannelPosition mirrors the PulseAudio pa_channel_position values
type ChannelPosition uint8

const (
	PositionMono ChannelPosition = iota
	PositionFrontLeft
	PositionFrontRight
	PositionFrontCenter
	PositionRearCenter
	PositionRearLeft
	PositionRearRight
	PositionLFE
	PositionFrontLeftOfCenter
	PositionFrontRightOfCenter
	PositionSideLeft
	PositionSideRight
)

var positionNames = [...]string{
	PositionMono:               "mono",
	PositionFrontLeft:          "front-left",
	PositionFrontRight:         "front-right",
	PositionFrontCenter:        "front-center",
	PositionRearCenter:         "rear-center",
	PositionRearLeft:           "rear-left",
	PositionRearRight:          "rear-right",
	PositionLFE:                "lfe",
	PositionFrontLeftOfCenter:  "front-left-of-center",
	PositionFrontRightOfCenter: "front-right-of-center",
	PositionSideLeft:           "side-left",
	PositionSideRight:          "side-right",
}

// String returns the PulseAudio name of the position
func (p ChannelPosition) String() string {
	if int(p) < len(positionNames) {
		return positionNames[p]
	}
	return fmt.Sprintf("aux%d", int(p)-len(positionNames))
}

// ChannelMap is the ordered list of channel positions of a stream
type ChannelMap []ChannelPosition

// DefaultChannelMap returns the ALSA-style default map for a channel count
func DefaultChannelMap(channels int) ChannelMap {
	switch channels {
	case 1:
		return ChannelMap{PositionMono}
	case 2:
		return ChannelMap{PositionFrontLeft, PositionFrontRight}
	}

	m := make(ChannelMap, channels)
	surround := []ChannelPosition{
		PositionFrontLeft, PositionFrontRight,
		PositionRearLeft, PositionRearRight,
		PositionFrontCenter, PositionLFE,
		PositionSideLeft, PositionSideRight,
	}
	for i := range m {
		if i < len(surround) {
			m[i] = surround[i]
		} else {
			m[i] = ChannelPosition(len(positionNames) + i - len(surround))
		}
	}
	return m
}

// String renders the map like pa_channel_map_snprint, e.g. "front-left,front-right"
func (m ChannelMap) String() string {
	if len(m) == 0 {
		return "(invalid)"
	}
	names := make([]string, len(m))
	for i, p := range m {
		names[i] = p.String()
	}
	return strings.Join(names, ",")
}

// DeviceInfo describes an output device whose monitor source can be metered
type DeviceInfo struct {
	// Name is the device identifier used for lookups
	Name string

	// Description is the human readable device name
	Description string

	// MonitorSource is the capture endpoint mirroring the device's output
	MonitorSource string

	// Spec is the device's native sample spec
	Spec SampleSpec

	// ChannelMap is the device's channel layout
	ChannelMap ChannelMap
}
