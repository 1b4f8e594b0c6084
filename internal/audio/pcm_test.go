package audio

import (
	"math"
	"testing"
)

func TestDecodeFloat32LE_RoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.25, 1, -1, 0.125}

	raw := EncodeFloat32LE(nil, samples)
	if len(raw) != len(samples)*4 {
		t.Fatalf("encoded %d bytes, want %d", len(raw), len(samples)*4)
	}

	got := DecodeFloat32LE(nil, raw)
	if len(got) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], samples[i])
		}
	}
}

func TestDecodeFloat32LE_IgnoresPartialSample(t *testing.T) {
	raw := EncodeFloat32LE(nil, []float32{0.75})
	raw = append(raw, 0x01, 0x02, 0x03)

	got := DecodeFloat32LE(nil, raw)
	if len(got) != 1 || got[0] != 0.75 {
		t.Errorf("DecodeFloat32LE = %v, want [0.75]", got)
	}
}

func TestDecodeFloat32LE_KnownBytes(t *testing.T) {
	// 1.0f little-endian is 00 00 80 3f
	got := DecodeFloat32LE(nil, []byte{0x00, 0x00, 0x80, 0x3f})
	if len(got) != 1 || got[0] != 1.0 {
		t.Errorf("DecodeFloat32LE = %v, want [1]", got)
	}

	// NaN bit patterns survive the reinterpretation
	nan := EncodeFloat32LE(nil, []float32{float32(math.NaN())})
	if v := DecodeFloat32LE(nil, nan); !math.IsNaN(float64(v[0])) {
		t.Errorf("expected NaN, got %v", v[0])
	}
}
