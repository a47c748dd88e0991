package oggstream

import "math"

// SampleToFloat32 maps an int16 sample to [-1, 1) by dividing by 32768.
func SampleToFloat32(s int16) float32 {
	return float32(s) / 32768
}

// Float32ToSample maps a float sample back to int16, rounding to even and
// clamping to the int16 range.
func Float32ToSample(sample float32) int16 {
	scaled := float64(sample) * 32768.0
	if scaled > 32767.0 {
		return 32767
	}
	if scaled < -32768.0 {
		return -32768
	}
	return int16(math.RoundToEven(scaled))
}

// Deinterleave splits interleaved src into one slice per channel of dst and
// returns the number of frames written. Each dst slice must hold at least
// len(src)/len(dst) samples; a trailing partial frame in src is ignored.
func Deinterleave(dst [][]float32, src []int16) int {
	channels := len(dst)
	if channels == 0 {
		return 0
	}
	frames := len(src) / channels
	for c, out := range dst {
		out = out[:frames]
		for f := range out {
			out[f] = SampleToFloat32(src[f*channels+c])
		}
	}
	return frames
}

// Interleave converts interleaved float samples to int16 and returns the
// number of samples written, min(len(dst), len(src)).
func Interleave(dst []int16, src []float32) int {
	n := min(len(dst), len(src))
	for i, s := range src[:n] {
		dst[i] = Float32ToSample(s)
	}
	return n
}
