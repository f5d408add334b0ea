package audio

import "math"

// FFTSize is the analyser frame length used for level metering.
const FFTSize = 256

// RMS returns the root-mean-square level of unsigned 8-bit time-domain
// samples (128 = silence), clamped to [0,1]. An empty frame is 0.
func RMS(frame []byte) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, b := range frame {
		v := (float64(b) - 128) / 128
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	return math.Max(0, math.Min(1, rms))
}
