package oggstream

import (
	"github.com/rs/zerolog"

	"github.com/thesyncim/oggstream/codec"
	"github.com/thesyncim/oggstream/codec/vorbis"
	"github.com/thesyncim/oggstream/codec/zpcm"
)

// Defaults.
const (
	DefaultEncoderSlots = 4
	DefaultDecoderSlots = 8
	DefaultChunkFrames  = 1024
	DefaultCodec        = zpcm.Name
)

// DefaultRegistry returns a registry holding the zpcm and vorbis engines.
func DefaultRegistry() *codec.Registry {
	return codec.NewRegistry(zpcm.New(), vorbis.New())
}

// settings is the resolved option set shared by Host and sessions.
type settings struct {
	encoderSlots int
	decoderSlots int
	chunkFrames  int
	log          zerolog.Logger
	registry     *codec.Registry
	serial       *uint32
	comments     []string
	codec        string
}

// Option configures a Host, EncodeSession or DecodeSession.
type Option func(*settings)

func newSettings(opts []Option) settings {
	s := settings{
		encoderSlots: DefaultEncoderSlots,
		decoderSlots: DefaultDecoderSlots,
		chunkFrames:  DefaultChunkFrames,
		log:          zerolog.Nop(),
		codec:        DefaultCodec,
	}
	for _, o := range opts {
		o(&s)
	}
	if s.registry == nil {
		s.registry = DefaultRegistry()
	}
	return s
}

// WithEncoderSlots sets the encoder pool capacity of a Host.
func WithEncoderSlots(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.encoderSlots = n
		}
	}
}

// WithDecoderSlots sets the decoder pool capacity of a Host.
func WithDecoderSlots(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.decoderSlots = n
		}
	}
}

// WithChunkFrames bounds the frames deinterleaved and submitted per step.
func WithChunkFrames(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.chunkFrames = n
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithRegistry replaces the codec registry.
func WithRegistry(r *codec.Registry) Option {
	return func(s *settings) { s.registry = r }
}

// WithSerial fixes the Ogg serial number of encoded streams instead of
// picking a random one.
func WithSerial(serial uint32) Option {
	return func(s *settings) { s.serial = &serial }
}

// WithComments adds KEY=value tags to the comment header of encoded streams.
func WithComments(tags ...string) Option {
	return func(s *settings) { s.comments = append(s.comments, tags...) }
}

// WithCodec sets the engine used when EncoderConfig.Codec is empty.
func WithCodec(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.codec = name
		}
	}
}
