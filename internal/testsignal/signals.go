// Package testsignal generates deterministic interleaved int16 PCM used by
// the tone command and by round-trip tests.
package testsignal

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/pkg/errors"
)

// Signal kinds.
const (
	KindSine    = "sine"
	KindChirp   = "chirp"
	KindImpulse = "impulse"
	KindSpeech  = "speech"
	KindSilence = "silence"
)

var kinds = []string{KindSine, KindChirp, KindImpulse, KindSpeech, KindSilence}

// Kinds returns the supported signal kinds.
func Kinds() []string {
	out := make([]string, len(kinds))
	copy(out, kinds)
	return out
}

// Params describes a signal to generate.
type Params struct {
	Kind       string
	SampleRate int
	Channels   int
	Frames     int
	Freq       float64 // sine only; 440 when zero
	Amplitude  float64 // peak in [0, 1]; 0.5 when zero
}

// Generate returns Frames*Channels interleaved samples.
func Generate(p Params) ([]int16, error) {
	if p.SampleRate <= 0 {
		return nil, errors.Errorf("testsignal: invalid sample rate %d", p.SampleRate)
	}
	if p.Channels <= 0 {
		return nil, errors.Errorf("testsignal: invalid channel count %d", p.Channels)
	}
	if p.Frames < 0 {
		return nil, errors.Errorf("testsignal: invalid frame count %d", p.Frames)
	}
	if p.Freq == 0 {
		p.Freq = 440
	}
	if p.Amplitude == 0 {
		p.Amplitude = 0.5
	}

	var gen func(frame, ch int, t float64) float64
	switch p.Kind {
	case KindSine, "":
		gen = func(_, _ int, t float64) float64 {
			return math.Sin(2 * math.Pi * p.Freq * t)
		}
	case KindChirp:
		gen = chirp(p)
	case KindImpulse:
		gen = impulses(p)
	case KindSpeech:
		gen = speechLike(p)
	case KindSilence:
		return make([]int16, p.Frames*p.Channels), nil
	default:
		return nil, errors.Errorf("testsignal: unknown signal kind %q", p.Kind)
	}

	out := make([]int16, p.Frames*p.Channels)
	for i := range out {
		frame, ch := i/p.Channels, i%p.Channels
		t := float64(frame) / float64(p.SampleRate)
		out[i] = toSample(p.Amplitude * gen(frame, ch, t))
	}
	return out, nil
}

// Sine is shorthand for a sine wave at the given frequency and half scale.
func Sine(freq float64, sampleRate, channels, frames int) []int16 {
	out, _ := Generate(Params{Kind: KindSine, Freq: freq, SampleRate: sampleRate, Channels: channels, Frames: frames})
	return out
}

// Hash returns a hex SHA-256 of the samples in little-endian order.
func Hash(samples []int16) string {
	h := sha256.New()
	var b [2]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint16(b[:], uint16(s))
		_, _ = h.Write(b[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func chirp(p Params) func(int, int, float64) float64 {
	duration := float64(p.Frames) / float64(p.SampleRate)
	f0, f1 := 60.0, math.Min(12000, 0.45*float64(p.SampleRate))
	k := 1.0
	if duration > 0 {
		k = math.Log(f1/f0) / duration
	}
	return func(_, ch int, t float64) float64 {
		phase := 2 * math.Pi * f0 * (math.Exp(k*t) - 1) / k
		env := 0.2 + 0.8*(0.5+0.5*math.Sin(2*math.Pi*0.41*t+0.3*float64(ch)))
		return env * math.Sin((1+0.006*float64(ch))*phase)
	}
}

func impulses(p Params) func(int, int, float64) float64 {
	period := max(int(0.035*float64(p.SampleRate)), 4)
	ringLen := int(0.015 * float64(p.SampleRate))
	decay := 0.0035 * float64(p.SampleRate)
	return func(frame, ch int, _ float64) float64 {
		pos := frame % period
		v := 0.0
		if pos == 0 {
			v = 0.9
		}
		if pos < ringLen {
			v += 0.75 * math.Exp(-float64(pos)/decay) *
				math.Sin(2*math.Pi*(540+80*float64(ch))*float64(pos)/float64(p.SampleRate))
		}
		return v + 0.02*noise(frame, ch, 17)
	}
}

func speechLike(p Params) func(int, int, float64) float64 {
	phase := make([]float64, p.Channels)
	prev := make([]float64, p.Channels)
	return func(frame, ch int, t float64) float64 {
		pitch := (95 + 28*math.Sin(2*math.Pi*0.63*t) + 16*math.Sin(2*math.Pi*0.17*t)) * (1 + 0.01*float64(ch))
		phase[ch] = math.Mod(phase[ch]+2*math.Pi*pitch/float64(p.SampleRate), 2*math.Pi)
		voiced := math.Sin(phase[ch]) + 0.35*math.Sin(2*phase[ch]) + 0.2*math.Sin(3*phase[ch])
		voicing := 0.5 + 0.5*math.Sin(2*math.Pi*0.78*t+0.25)
		syllable := 0.25 + 0.75*math.Pow(0.5+0.5*math.Sin(2*math.Pi*3.2*t), 2)

		n := noise(frame, ch, 71)
		high := n - 0.86*prev[ch]
		prev[ch] = n
		return 0.6 * syllable * (voicing*voiced + (1-voicing)*0.38*high)
	}
}

// noise is a cheap xorshift hash of the sample position in [-1, 1].
func noise(frame, ch, salt int) float64 {
	x := uint32(frame*1664525 + ch*1013904223 + salt*224682251)
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	return float64(int32(x)) / math.MaxInt32
}

func toSample(v float64) int16 {
	v = math.Max(-0.98, math.Min(0.98, v))
	return int16(math.RoundToEven(v * 32767))
}
