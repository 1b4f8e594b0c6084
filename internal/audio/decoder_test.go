package audio

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV writes a 16-bit stereo WAV with constant left/right values
func writeTestWAV(t *testing.T, frames int, left, right int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating WAV: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &audio.IntBuffer{
		Data:           make([]int, frames*2),
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		buf.Data[i*2] = left
		buf.Data[i*2+1] = right
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("writing WAV: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing WAV encoder: %v", err)
	}
	return path
}

func TestWAVDecoder_ReadsInterleavedFrames(t *testing.T) {
	path := writeTestWAV(t, 1000, 16384, -8192)

	dec, err := OpenDecoder(path)
	if err != nil {
		t.Fatalf("OpenDecoder failed: %v", err)
	}
	defer dec.Close()

	if dec.SampleRate() != 44100 {
		t.Errorf("SampleRate = %d, want 44100", dec.SampleRate())
	}
	if dec.NumChannels() != 2 {
		t.Errorf("NumChannels = %d, want 2", dec.NumChannels())
	}

	chunk, err := dec.ReadChunk(256)
	if err != nil {
		t.Fatalf("ReadChunk failed: %v", err)
	}
	if len(chunk) != 512 {
		t.Fatalf("ReadChunk returned %d samples, want 512", len(chunk))
	}

	if math.Abs(float64(chunk[0])-0.5) > 1e-3 {
		t.Errorf("left sample = %.5f, want ~0.5", chunk[0])
	}
	if math.Abs(float64(chunk[1])+0.25) > 1e-3 {
		t.Errorf("right sample = %.5f, want ~-0.25", chunk[1])
	}
}

func TestWAVDecoder_ReadsToEOF(t *testing.T) {
	path := writeTestWAV(t, 1000, 100, 100)

	dec, err := NewWAVDecoder(path)
	if err != nil {
		t.Fatalf("NewWAVDecoder failed: %v", err)
	}
	defer dec.Close()

	total := 0
	for {
		chunk, err := dec.ReadChunk(300)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadChunk failed after %d samples: %v", total, err)
		}
		if len(chunk)%2 != 0 {
			t.Errorf("chunk of %d samples is not whole frames", len(chunk))
		}
		total += len(chunk)
	}

	if total != 2000 {
		t.Errorf("read %d samples, want 2000", total)
	}
}

func TestOpenDecoder_Errors(t *testing.T) {
	testCases := []struct {
		name string
		path string
	}{
		{name: "unsupported extension", path: "music.ogg"},
		{name: "missing wav", path: "nonexistent.wav"},
		{name: "missing mp3", path: "nonexistent.mp3"},
		{name: "missing flac", path: "nonexistent.flac"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := OpenDecoder(tc.path); err == nil {
				t.Errorf("expected error for %s", tc.path)
			}
		})
	}
}

func TestWAVDecoder_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(path, []byte("definitely not a RIFF file"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewWAVDecoder(path); err == nil {
		t.Error("expected error for invalid WAV file")
	}
}
