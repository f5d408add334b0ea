package audio

import (
	"encoding/binary"
	"math"
)

// DefaultSampleRate is assumed for PCM captures that do not report one.
const DefaultSampleRate = 16000

const (
	wavHeaderSize    = 44
	wavChannels      = 1
	wavBitsPerSample = 16
)

// EncodeWAV wraps mono 16-bit little-endian PCM samples in a 44-byte RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	blockAlign := wavChannels * wavBitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, wavHeaderSize+len(pcm))
	le := binary.LittleEndian

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16) // fmt chunk size
	le.PutUint16(out[20:22], 1)  // PCM
	le.PutUint16(out[22:24], wavChannels)
	le.PutUint32(out[24:28], uint32(sampleRate))
	le.PutUint32(out[28:32], uint32(byteRate))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], wavBitsPerSample)
	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)

	return out
}

// FloatToPCM16 converts float samples in [-1,1] to 16-bit little-endian PCM.
// Out-of-range samples are clamped.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		var n int16
		if v < 0 {
			n = int16(v * 0x8000)
		} else {
			n = int16(v * 0x7fff)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(n))
	}
	return out
}
