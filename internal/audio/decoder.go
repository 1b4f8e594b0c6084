package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AudioDecoder defines the interface for all audio format decoders
type AudioDecoder interface {
	// ReadChunk reads up to numFrames interleaved frames as float32 in [-1, 1].
	// Returns io.EOF when no frames remain
	ReadChunk(numFrames int) ([]float32, error)

	// SampleRate returns the audio sample rate in Hz
	SampleRate() int

	// NumChannels returns the number of interleaved channels
	NumChannels() int

	// Close closes the decoder and releases resources
	Close() error
}

// OpenDecoder picks a decoder from the file extension
func OpenDecoder(filename string) (AudioDecoder, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".wav", ".wave":
		return NewWAVDecoder(filename)
	case ".mp3":
		return NewMP3Decoder(filename)
	case ".flac":
		return NewFLACDecoder(filename)
	default:
		return nil, fmt.Errorf("unsupported audio format %q (want .wav, .mp3 or .flac)", ext)
	}
}
