// Package meter turns interleaved float32 samples into a peak-hold loudness
// reading that decays in coarse steps.
package meter

import (
	"math"

	"github.com/linuxmatters/jivemeter/internal/config"
)

// unsetLevel marks a channel that has not seen a fragment yet
const unsetLevel = -1.0

// Meter holds one peak level per channel. Levels only rise between decay
// points; every decay interval they drop back to zero.
type Meter struct {
	levels   []float64
	count    uint64
	interval uint64
}

// Option configures a Meter
type Option func(*Meter)

// WithDecayInterval sets how many fragments pass between peak resets.
// Values below 1 are ignored.
func WithDecayInterval(n int) Option {
	return func(m *Meter) {
		if n > 0 {
			m.interval = uint64(n)
		}
	}
}

// New creates a Meter for the given channel count (at least one)
func New(channels int, opts ...Option) *Meter {
	if channels < 1 {
		channels = 1
	}
	m := &Meter{
		levels:   make([]float64, channels),
		interval: config.DecayInterval,
	}
	for i := range m.levels {
		m.levels[i] = unsetLevel
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin marks the start of a fragment: levels are reset on every
// interval boundary, counting from the first fragment.
func (m *Meter) Begin() {
	if m.count%m.interval == 0 {
		m.Decay()
	}
	m.count++
}

// Decay resets every channel to zero
func (m *Meter) Decay() {
	for i := range m.levels {
		m.levels[i] = 0
	}
}

// Update folds the absolute value of each sample into its channel's peak.
// A trailing partial frame is dropped.
func (m *Meter) Update(samples []float32) {
	ch := len(m.levels)
	frames := len(samples) / ch
	for f := 0; f < frames; f++ {
		frame := samples[f*ch : f*ch+ch]
		for c, s := range frame {
			v := math.Abs(float64(s))
			if v > m.levels[c] {
				m.levels[c] = v
			}
		}
	}
}

// Percent returns the mean channel level as a whole percentage in [0,100]
func (m *Meter) Percent() int {
	return toPercent(m.Average())
}

// Average returns the mean of the channel levels, unclamped
func (m *Meter) Average() float64 {
	var sum float64
	for _, l := range m.levels {
		if l > 0 {
			sum += l
		}
	}
	return sum / float64(len(m.levels))
}

// Levels returns a copy of the per-channel peaks. Channels not yet
// measured report zero.
func (m *Meter) Levels() []float64 {
	out := make([]float64, len(m.levels))
	for i, l := range m.levels {
		out[i] = max(l, 0)
	}
	return out
}

// Channels returns the channel count
func (m *Meter) Channels() int {
	return len(m.levels)
}

// Fragments returns the number of fragments begun so far
func (m *Meter) Fragments() uint64 {
	return m.count
}

// toPercent clamps before converting: converting a huge or infinite float
// to int is implementation-defined. NaN never enters the levels; it reads 0.
func toPercent(avg float64) int {
	switch {
	case math.IsNaN(avg) || avg <= 0:
		return 0
	case avg >= 1:
		return config.MaxPercent
	}
	return min(int(math.Floor(avg*100)), config.MaxPercent)
}
