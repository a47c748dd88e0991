// Package codec defines the contract between stream sessions and the codec
// engines that turn PCM into packets and back.
//
// An engine is registered by name in a Registry. Encode sessions drive an
// Analyzer: submit planar float chunks, drain analysis blocks, encode
// them, then drain packets. Decode sessions drive a Decoder opened on an
// Ogg source.
package codec

import (
	"io"

	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/container/ogg"
)

// Errors shared by engines.
var (
	// ErrUnsupported means the engine rejects the analysis parameters.
	ErrUnsupported = errors.New("codec: unsupported parameters")

	// ErrEncodeUnsupported means the engine can only decode.
	ErrEncodeUnsupported = errors.New("codec: encoding not supported")

	// ErrCorrupt means a header or audio packet could not be decoded.
	ErrCorrupt = errors.New("codec: corrupt packet")

	// ErrSeekRange means a seek target lies outside the stream.
	ErrSeekRange = errors.New("codec: seek target out of range")

	// ErrUnknownCodec means no registered engine recognizes the stream.
	ErrUnknownCodec = errors.New("codec: unknown codec")

	// ErrAnalysisEnded means samples were submitted after SubmitEnd.
	ErrAnalysisEnded = errors.New("codec: submit after end of input")
)

// AnalysisConfig holds the immutable parameters of an encode session.
type AnalysisConfig struct {
	Channels   int
	SampleRate int
	Quality    float32
}

// Block is one unit of analysis output ready for encoding.
type Block struct {
	// PCM holds one slice per channel, each Frames long.
	PCM    [][]float32
	Frames int
	// EOS marks the final block of the stream.
	EOS bool
}

// Analyzer is the encode half of an engine.
//
// A typical loop:
//
//	a.Submit(chunk)
//	for b, ok := a.DrainBlock(); ok; b, ok = a.DrainBlock() {
//		a.EncodeBlock(b)
//		for p, ok := a.DrainPacket(); ok; p, ok = a.DrainPacket() {
//			mux(p)
//		}
//	}
type Analyzer interface {
	// HeaderPackets returns the identification, comment and setup packets.
	// The first carries BOS.
	HeaderPackets(c Comment) ([]ogg.Packet, error)

	// ChunkFrames is the preferred number of frames per Submit call.
	ChunkFrames() int

	// Submit queues planar samples, one slice per channel.
	Submit(chunk [][]float32) error

	// SubmitEnd signals end of input.
	SubmitEnd() error

	DrainBlock() (*Block, bool)
	EncodeBlock(b *Block) error
	DrainPacket() (ogg.Packet, bool)

	Close() error
}

// StreamInfo describes the current link of a decoded stream.
type StreamInfo struct {
	Channels   int
	SampleRate int
	// Length is the total number of frames over every link, or 0 when the
	// source cannot be scanned.
	Length int64
}

// Decoder is the decode half of an engine.
type Decoder interface {
	Info() StreamInfo

	// Decode writes up to len(dst) interleaved samples, rounded down to whole
	// frames, and returns the number of samples written and the section
	// index they belong to. It returns io.EOF once the stream is exhausted.
	Decode(dst []float32) (units, section int, err error)

	// Section returns the index of the link currently being decoded.
	Section() int

	// Position returns the absolute frame position of the next decoded frame.
	Position() int64

	// SeekLap moves to the frame at sample, measured from the start of the
	// first link.
	SeekLap(sample int64) error

	Close() error
}

// Codec is a registered engine.
type Codec interface {
	Name() string

	// Match reports whether ident is this engine's identification header.
	Match(ident []byte) bool

	NewAnalyzer(cfg AnalysisConfig) (Analyzer, error)
	OpenDecoder(src io.Reader) (Decoder, error)
}

// Stats counts the output of an analyzer.
type Stats struct {
	Packets int64
	Bytes   int64
	Frames  int64
}

// StatsReporter is implemented by analyzers that keep output statistics.
type StatsReporter interface {
	Stats() Stats
}

// Commenter is implemented by decoders that expose the comment header of
// the current link.
type Commenter interface {
	Comment() Comment
}
