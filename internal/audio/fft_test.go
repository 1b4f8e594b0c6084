package audio

import (
	"math"
	"testing"
)

// TestSpectrumAnalyzer_KnownSineWave verifies that a 440 Hz sine lands in the
// low bars and dominates the rest of the spectrum. This catches frequency to
// bar mapping errors and normalisation bugs that would flatten the preview.
//
// With a 1024 FFT at 44.1 kHz:
// - Bin width: 44100 / 1024 ≈ 43 Hz/bin
// - 440 Hz maps to bin ≈ 10
// - 384 usable bins / 32 bars = 12 bins/bar, so bar 0
func TestSpectrumAnalyzer_KnownSineWave(t *testing.T) {
	const (
		sampleRate = 44100
		frequency  = 440
		numBars    = 32
	)

	analyzer, err := NewSpectrumAnalyzer(SpectrumSize)
	if err != nil {
		t.Fatalf("NewSpectrumAnalyzer failed: %v", err)
	}

	// Stereo, identical channels
	samples := make([]float32, SpectrumSize*2)
	for i := 0; i < SpectrumSize; i++ {
		v := float32(0.8 * math.Sin(2*math.Pi*frequency*float64(i)/sampleRate))
		samples[i*2] = v
		samples[i*2+1] = v
	}

	bars := make([]float64, numBars)
	if err := analyzer.Process(samples, 2, bars); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	maxBar, maxVal := 0, 0.0
	for bar, val := range bars {
		if val > maxVal {
			maxBar, maxVal = bar, val
		}
		if val < 0 || val > 1 {
			t.Errorf("Bar %d out of range: %.6f", bar, val)
		}
	}

	t.Logf("440 Hz sine: peak bar %d with magnitude %.4f", maxBar, maxVal)

	if maxBar >= numBars/4 {
		t.Errorf("Peak bar %d is too high for 440 Hz", maxBar)
	}
	if maxVal < 0.5 {
		t.Errorf("Peak magnitude %.4f too low for a 0.8 amplitude sine", maxVal)
	}

	var sumOthers float64
	for bar, val := range bars {
		if bar != maxBar {
			sumOthers += val
		}
	}
	if avg := sumOthers / float64(numBars-1); maxVal <= 2*avg {
		t.Errorf("Peak %.4f not dominant over average of others %.4f", maxVal, avg)
	}
}

// TestSpectrumAnalyzer_Silence verifies silence produces an empty spectrum
func TestSpectrumAnalyzer_Silence(t *testing.T) {
	analyzer, err := NewSpectrumAnalyzer(SpectrumSize)
	if err != nil {
		t.Fatalf("NewSpectrumAnalyzer failed: %v", err)
	}

	bars := make([]float64, 16)
	if err := analyzer.Process(make([]float32, 300), 2, bars); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for bar, val := range bars {
		if val != 0 {
			t.Errorf("Bar %d = %.6f, want 0 for silence", bar, val)
		}
	}
}

func TestSpectrumAnalyzer_InvalidInput(t *testing.T) {
	if _, err := NewSpectrumAnalyzer(1000); err == nil {
		t.Error("Expected error for non power-of-two size")
	}

	analyzer, err := NewSpectrumAnalyzer(256)
	if err != nil {
		t.Fatalf("NewSpectrumAnalyzer failed: %v", err)
	}
	if err := analyzer.Process([]float32{0.1}, 0, make([]float64, 4)); err == nil {
		t.Error("Expected error for zero channels")
	}
}

func TestApplyHanning_Endpoints(t *testing.T) {
	data := []float64{1, 1, 1, 1, 1}
	ApplyHanning(data)

	if data[0] != 0 || math.Abs(data[4]) > 1e-12 {
		t.Errorf("Window endpoints should be zero, got %.6f and %.6f", data[0], data[4])
	}
	if math.Abs(data[2]-1) > 1e-12 {
		t.Errorf("Window centre = %.6f, want 1", data[2])
	}
}
