package audio

import (
	"fmt"
	"math"

	"github.com/argusdusty/gofft"
)

// SpectrumSize is the FFT length used for the live spectrum preview
const SpectrumSize = 1024

// ApplyHanning applies a Hanning window to the input data in place
func ApplyHanning(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return data
	}
	for i := range data {
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		data[i] *= window
	}
	return data
}

// BinFFT bins FFT coefficients into len(result) bars normalized to 0.0-1.0.
// fftSize is the transform length, used to scale raw magnitudes so that a
// full-scale windowed sine lands near 1.0
func BinFFT(coeffs []complex128, fftSize int, result []float64) {
	numBars := len(result)
	if numBars == 0 {
		return
	}

	// Use only first half (positive frequencies), and of that the first 3/4
	// where most audible content is
	halfSize := len(coeffs) / 2
	maxFreqBin := (halfSize * 3) / 4

	binsPerBar := maxFreqBin / numBars
	if binsPerBar < 1 {
		binsPerBar = 1
	}

	// Hanning coherent gain is 0.5, so a unit sine peaks at fftSize/4
	norm := float64(fftSize) / 4

	for bar := 0; bar < numBars; bar++ {
		start := bar * binsPerBar
		end := start + binsPerBar
		if end > maxFreqBin {
			end = maxFreqBin
		}

		// Peak magnitude in this range
		var peak float64
		for i := start; i < end; i++ {
			magnitude := math.Hypot(real(coeffs[i]), imag(coeffs[i])) / norm
			if magnitude > peak {
				peak = magnitude
			}
		}

		// Noise gate, then log scale for better visual distribution
		if peak < 0.001 {
			result[bar] = 0
			continue
		}
		result[bar] = math.Min(math.Log10(1+peak*9), 1)
	}
}

// SpectrumAnalyzer turns interleaved fragments into a small bar spectrum
type SpectrumAnalyzer struct {
	size   int
	mono   []float64
	coeffs []complex128
}

// NewSpectrumAnalyzer creates an analyzer for a power-of-two FFT size
func NewSpectrumAnalyzer(size int) (*SpectrumAnalyzer, error) {
	if err := gofft.Prepare(size); err != nil {
		return nil, fmt.Errorf("preparing FFT of size %d: %w", size, err)
	}
	return &SpectrumAnalyzer{
		size: size,
		mono: make([]float64, size),
	}, nil
}

// Process downmixes the most recent frames of samples to mono and writes
// len(bars) normalized bar heights. Short input is zero padded.
func (a *SpectrumAnalyzer) Process(samples []float32, channels int, bars []float64) error {
	if channels < 1 {
		return fmt.Errorf("invalid channel count %d", channels)
	}

	frames := len(samples) / channels
	start := 0
	if frames > a.size {
		start = frames - a.size
	}

	for i := range a.mono {
		a.mono[i] = 0
	}
	for f := start; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(samples[f*channels+c])
		}
		a.mono[f-start] = sum / float64(channels)
	}

	ApplyHanning(a.mono)
	a.coeffs = gofft.Float64ToComplex128Array(a.mono)
	if err := gofft.FFT(a.coeffs); err != nil {
		return fmt.Errorf("FFT computation failed: %w", err)
	}

	BinFFT(a.coeffs, a.size, bars)
	return nil
}
