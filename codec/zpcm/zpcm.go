// Package zpcm is a lossy block codec for oggstream: PCM is quantized to a
// quality-dependent depth, delta coded per channel and compressed with
// zstd. It exists to exercise the stream pipeline with a codec that
// accepts any common sample rate.
package zpcm

import (
	"io"

	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/codec"
)

// Name is the registry name of the engine.
const Name = "zpcm"

// DefaultBlockFrames is the number of frames per audio packet.
const DefaultBlockFrames = 1024

const (
	minChannels   = 1
	maxChannels   = 2
	minSampleRate = 8000
	maxSampleRate = 192000
)

// Codec is the zpcm engine.
type Codec struct {
	blockFrames int
}

// New returns a zpcm engine producing blocks of DefaultBlockFrames.
func New() *Codec {
	return &Codec{blockFrames: DefaultBlockFrames}
}

// NewWithBlockFrames returns an engine with a custom block size in [64, 65535].
func NewWithBlockFrames(n int) (*Codec, error) {
	if n < 64 || n > 0xFFFF {
		return nil, errors.Wrapf(codec.ErrUnsupported, "zpcm: block size %d", n)
	}
	return &Codec{blockFrames: n}, nil
}

func (c *Codec) Name() string { return Name }

func (c *Codec) Match(ident []byte) bool { return isIdent(ident) }

// NewAnalyzer validates cfg and returns an analyzer for it.
func (c *Codec) NewAnalyzer(cfg codec.AnalysisConfig) (codec.Analyzer, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return newAnalyzer(cfg, c.blockFrames)
}

// OpenDecoder reads the headers of the first link from src.
func (c *Codec) OpenDecoder(src io.Reader) (codec.Decoder, error) {
	return NewDecoder(src)
}

// Validate reports whether the engine accepts cfg.
func Validate(cfg codec.AnalysisConfig) error {
	switch {
	case cfg.Channels < minChannels || cfg.Channels > maxChannels:
		return errors.Wrapf(codec.ErrUnsupported, "zpcm: %d channels", cfg.Channels)
	case cfg.SampleRate < minSampleRate || cfg.SampleRate > maxSampleRate:
		return errors.Wrapf(codec.ErrUnsupported, "zpcm: sample rate %d", cfg.SampleRate)
	case cfg.Quality < minQuality || cfg.Quality > maxQuality:
		return errors.Wrapf(codec.ErrUnsupported, "zpcm: quality %.2f", cfg.Quality)
	case cfg.Quality < 0 && cfg.SampleRate > 48000:
		return errors.Wrapf(codec.ErrUnsupported, "zpcm: quality %.2f at %d Hz", cfg.Quality, cfg.SampleRate)
	}
	return nil
}
