package zpcm

import (
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/codec"
)

const (
	minQuality = -0.1
	maxQuality = 1.0

	minBits = 8
	maxBits = 16
)

// bitsForQuality maps quality in [-0.1, 1] linearly onto 8..16 bits.
func bitsForQuality(q float32) int {
	frac := (float64(q) - minQuality) / (maxQuality - minQuality)
	return minBits + int(math.Round(frac*(maxBits-minBits)))
}

// levelForQuality picks a zstd level; higher quality spends more effort.
func levelForQuality(q float32) zstd.EncoderLevel {
	switch {
	case q < 0.25:
		return zstd.SpeedFastest
	case q < 0.5:
		return zstd.SpeedDefault
	case q < 0.8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func scaleFor(bits int) float32 {
	return float32(int32(1)<<(bits-1) - 1)
}

// quantize appends the delta-coded, zigzag varint representation of the
// planar block to dst. Channels are coded one after another.
func quantize(dst []byte, pcm [][]float32, frames, bits int) []byte {
	scale := scaleFor(bits)
	for _, ch := range pcm {
		prev := int32(0)
		for _, x := range ch[:frames] {
			x = max(-1, min(1, x))
			q := int32(math.Round(float64(x * scale)))
			dst = binary.AppendVarint(dst, int64(q-prev))
			prev = q
		}
	}
	return dst
}

// dequantize reverses quantize into interleaved samples.
func dequantize(dst []float32, src []byte, channels, frames, bits int) ([]float32, error) {
	scale := scaleFor(bits)
	n := channels * frames
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for c := 0; c < channels; c++ {
		prev := int64(0)
		for f := 0; f < frames; f++ {
			d, k := binary.Varint(src)
			if k <= 0 {
				return nil, errors.Wrap(codec.ErrCorrupt, "zpcm: short block")
			}
			src = src[k:]
			prev += d
			dst[f*channels+c] = float32(prev) / scale
		}
	}
	if len(src) != 0 {
		return nil, errors.Wrap(codec.ErrCorrupt, "zpcm: trailing block data")
	}
	return dst, nil
}
