package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACDecoder implements AudioDecoder for FLAC files
type FLACDecoder struct {
	stream      *flac.Stream
	file        *os.File
	sampleRate  int
	numChannels int

	// Interleaved samples decoded from the last frame but not yet returned
	pending []float32
}

// NewFLACDecoder creates a new FLAC decoder
func NewFLACDecoder(filename string) (*FLACDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	// Parse FLAC stream - reads signature and StreamInfo block
	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}

	if stream.Info.NChannels == 0 || stream.Info.SampleRate == 0 {
		stream.Close()
		f.Close()
		return nil, fmt.Errorf("FLAC stream has no audio format")
	}

	return &FLACDecoder{
		stream:      stream,
		file:        f,
		sampleRate:  int(stream.Info.SampleRate),
		numChannels: int(stream.Info.NChannels),
	}, nil
}

// ReadChunk reads the next chunk of interleaved frames
func (d *FLACDecoder) ReadChunk(numFrames int) ([]float32, error) {
	want := numFrames * d.numChannels

	// Parse FLAC frames until we have enough samples
	for len(d.pending) < want {
		frame, err := d.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		// FLAC frames contain one subframe per channel, interleave them
		// and normalise to [-1.0, 1.0] based on bits per sample
		maxVal := float32(int64(1) << (frame.BitsPerSample - 1))
		frameSamples := len(frame.Subframes[0].Samples)
		for i := 0; i < frameSamples; i++ {
			for ch := 0; ch < d.numChannels && ch < len(frame.Subframes); ch++ {
				d.pending = append(d.pending, float32(frame.Subframes[ch].Samples[i])/maxVal)
			}
		}
	}

	if len(d.pending) == 0 {
		return nil, io.EOF
	}

	n := min(want, len(d.pending))
	n -= n % d.numChannels
	if n == 0 {
		d.pending = d.pending[:0]
		return nil, io.EOF
	}

	samples := make([]float32, n)
	copy(samples, d.pending[:n])
	d.pending = append(d.pending[:0], d.pending[n:]...)
	return samples, nil
}

// SampleRate returns the sample rate
func (d *FLACDecoder) SampleRate() int {
	return d.sampleRate
}

// NumChannels returns the number of audio channels
func (d *FLACDecoder) NumChannels() int {
	return d.numChannels
}

// Close closes the decoder and releases resources
func (d *FLACDecoder) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	if d.file != nil {
		// flac.Stream may already have closed the file
		if err := d.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
	}
	return nil
}
