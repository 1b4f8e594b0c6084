package audio

import (
	"encoding/binary"
	"math"
)

// DecodeFloat32LE reinterprets b as little-endian float32 samples, appending to dst.
// A trailing partial sample (len(b) % 4) is ignored.
func DecodeFloat32LE(dst []float32, b []byte) []float32 {
	n := len(b) / 4
	for i := 0; i < n; i++ {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return dst
}

// EncodeFloat32LE appends samples to dst as little-endian float32 bytes
func EncodeFloat32LE(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
	}
	return dst
}
