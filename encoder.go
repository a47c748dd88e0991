// encoder.go implements the encode session: PCM in, Ogg pages out.

package oggstream

import (
	"io"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/thesyncim/oggstream/codec"
	"github.com/thesyncim/oggstream/internal/pagemux"
)

// EncodeState is the lifecycle state of an EncodeSession.
type EncodeState int

const (
	StateCreated EncodeState = iota
	StateHeaderEmitted
	StateEncoding
	StateDraining
	StateClosed
)

func (s EncodeState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateHeaderEmitted:
		return "header-emitted"
	case StateEncoding:
		return "encoding"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EncoderConfig holds the immutable parameters of an encode session.
type EncoderConfig struct {
	Channels   int
	SampleRate int
	// Quality is the VBR quality factor, -0.1 (smallest) to 1.0 (best).
	Quality float32
	// Codec names the engine; empty selects the WithCodec engine, or
	// DefaultCodec.
	Codec string
}

// EncodeSession encodes interleaved int16 PCM into an Ogg stream written
// to a sink.
//
// An EncodeSession is NOT safe for concurrent use.
type EncodeSession struct {
	cfg      EncoderConfig
	state    EncodeState
	analyzer codec.Analyzer
	mux      *pagemux.Writer
	closer   io.Closer
	chunk    int
	work     [][]float32
	view     [][]float32
	eos      bool
	log      zerolog.Logger
}

// OpenEncoder creates an encode session writing to sink. The header pages
// are written before OpenEncoder returns.
//
// Returns an error matching ErrInitialization if the engine rejects cfg,
// or ErrIO if the header pages cannot be written.
func OpenEncoder(sink io.Writer, cfg EncoderConfig, opts ...Option) (*EncodeSession, error) {
	return openEncoder(sink, nil, cfg, newSettings(opts))
}

func openEncoder(sink io.Writer, closer io.Closer, cfg EncoderConfig, s settings) (*EncodeSession, error) {
	if cfg.Codec == "" {
		cfg.Codec = s.codec
	}
	c, err := s.registry.Lookup(cfg.Codec)
	if err != nil {
		return nil, withKind(ErrInitialization, err)
	}
	a, err := c.NewAnalyzer(codec.AnalysisConfig{
		Channels:   cfg.Channels,
		SampleRate: cfg.SampleRate,
		Quality:    cfg.Quality,
	})
	if err != nil {
		return nil, withKind(ErrInitialization, err)
	}

	serial := rand.Uint32()
	if s.serial != nil {
		serial = *s.serial
	}
	e := &EncodeSession{
		cfg:      cfg,
		state:    StateCreated,
		analyzer: a,
		mux:      pagemux.NewWriter(sink, serial),
		closer:   closer,
		chunk:    chunkFrames(s.chunkFrames, a.ChunkFrames()),
		work:     make([][]float32, cfg.Channels),
		view:     make([][]float32, cfg.Channels),
		log: s.log.With().
			Str("codec", cfg.Codec).
			Int("channels", cfg.Channels).
			Int("sample_rate", cfg.SampleRate).
			Float32("quality", cfg.Quality).
			Uint32("serial", serial).
			Logger(),
	}
	for ch := range e.work {
		e.work[ch] = make([]float32, e.chunk)
	}

	comment := codec.NewComment()
	for _, tag := range s.comments {
		k, v, _ := strings.Cut(tag, "=")
		comment.Add(k, v)
	}
	headers, err := a.HeaderPackets(comment)
	if err == nil {
		err = e.mux.WriteHeaders(headers)
	}
	if err != nil {
		if cerr := a.Close(); cerr != nil {
			e.log.Error().Err(cerr).Msg("release analyzer")
		}
		return nil, e.classify(err)
	}
	e.state = StateHeaderEmitted
	e.log.Debug().Int("pages", e.mux.Pages()).Msg("headers written")
	e.state = StateEncoding
	return e, nil
}

// chunkFrames bounds a Submit call by the configured chunk size and the
// engine's preferred one. A non-positive engine value means no preference.
func chunkFrames(configured, engine int) int {
	if engine <= 0 {
		return configured
	}
	return min(configured, engine)
}

// Write encodes length samples of pcm starting at offset. offset and length
// count int16 samples of the interleaved buffer; a trailing partial frame
// is not consumed. Returns the number of frames consumed, which is less
// than requested only if the stream has already ended.
//
// Returns ErrBufferOverflow without consuming anything if the range falls
// outside pcm.
func (e *EncodeSession) Write(pcm []int16, offset, length int) (int, error) {
	if e.state == StateClosed {
		return 0, ErrInvalidHandle
	}
	if offset < 0 || length < 0 || offset > len(pcm) || length > len(pcm)-offset {
		return 0, ErrBufferOverflow
	}
	if e.eos {
		return 0, nil
	}

	ch := e.cfg.Channels
	frames := length / ch
	src := pcm[offset : offset+frames*ch]
	done := 0
	for done < frames {
		n := min(e.chunk, frames-done)
		for c := range e.view {
			e.view[c] = e.work[c][:n]
		}
		Deinterleave(e.view, src[done*ch:(done+n)*ch])
		if err := e.analyzer.Submit(e.view); err != nil {
			return done, e.classify(err)
		}
		done += n
		if err := e.drain(); err != nil {
			return done, err
		}
		if e.eos {
			break
		}
	}
	return done, nil
}

// drain moves every ready block through the engine and every ready page to
// the sink.
func (e *EncodeSession) drain() error {
	for b, ok := e.analyzer.DrainBlock(); ok; b, ok = e.analyzer.DrainBlock() {
		if err := e.analyzer.EncodeBlock(b); err != nil {
			return e.classify(err)
		}
		for p, ok := e.analyzer.DrainPacket(); ok; p, ok = e.analyzer.DrainPacket() {
			if err := e.mux.WritePacket(p); err != nil {
				return e.classify(err)
			}
			if e.mux.EOS() {
				e.eos = true
				return nil
			}
		}
	}
	return nil
}

// Close ends the stream and releases the engine and the sink. If the
// end-of-stream page has not been written yet, the engine is told that
// input ended and everything it still holds is flushed to the sink.
//
// Drain failures are returned; failures releasing resources are logged.
// The session is closed either way.
func (e *EncodeSession) Close() error {
	if e.state == StateClosed {
		return ErrInvalidHandle
	}
	e.state = StateDraining

	var drainErr error
	if !e.eos {
		if err := e.analyzer.SubmitEnd(); err != nil {
			drainErr = e.classify(err)
		} else {
			drainErr = e.drain()
		}
	}

	if sr, ok := e.analyzer.(codec.StatsReporter); ok {
		st := sr.Stats()
		e.log.Debug().Int64("packets", st.Packets).Int64("frames", st.Frames).Int64("packet_bytes", st.Bytes).Msg("analysis stats")
	}
	if err := e.analyzer.Close(); err != nil {
		e.log.Error().Err(err).Msg("release analyzer")
	}
	if e.closer != nil {
		if err := e.closer.Close(); err != nil {
			e.log.Error().Err(err).Msg("release sink")
		}
	}
	e.state = StateClosed

	e.log.Debug().
		Int("pages", e.mux.Pages()).
		Int64("bytes", e.mux.Bytes()).
		Bool("eos", e.eos).
		Msg("encoder closed")
	return drainErr
}

// classify maps collaborator errors onto the error kinds.
func (e *EncodeSession) classify(err error) error {
	var se *pagemux.SinkError
	if errors.As(err, &se) {
		return withKind(ErrIO, err)
	}
	return withKind(ErrEngine, err)
}

// State returns the lifecycle state.
func (e *EncodeSession) State() EncodeState { return e.state }

// EOS reports whether the end-of-stream page has been written.
func (e *EncodeSession) EOS() bool { return e.eos }

// Pending returns packet bytes queued in the muxer but not yet written.
func (e *EncodeSession) Pending() int { return e.mux.Pending() }

// Config returns the session parameters.
func (e *EncodeSession) Config() EncoderConfig { return e.cfg }

// Channels returns the channel count.
func (e *EncodeSession) Channels() int { return e.cfg.Channels }

// Pages returns the number of pages written to the sink.
func (e *EncodeSession) Pages() int { return e.mux.Pages() }

// Bytes returns the number of bytes written to the sink.
func (e *EncodeSession) Bytes() int64 { return e.mux.Bytes() }

// Serial returns the Ogg serial number of the stream.
func (e *EncodeSession) Serial() uint32 { return e.mux.Serial() }
