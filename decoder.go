// decoder.go implements the decode session: Ogg pages in, PCM out.

package oggstream

import (
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/thesyncim/oggstream/codec"
)

// StreamInfo describes a decoded stream. Channels and SampleRate follow the
// current section; Length is the total frame count over every section, or 0
// when the source is not seekable.
type StreamInfo struct {
	Channels   int
	SampleRate int
	Length     int64
	Codec      string
}

// DecodeSession decodes an Ogg stream into interleaved int16 PCM.
//
// A DecodeSession is NOT safe for concurrent use.
type DecodeSession struct {
	dec     codec.Decoder
	info    StreamInfo
	section int
	closer  io.Closer
	closed  bool
	work    []float32
	log     zerolog.Logger
}

// OpenDecoder probes src for a registered codec and reads the stream
// headers. A seekable src enables Seek and a known Length.
//
// Returns a *CorruptStreamError (matching ErrCorruptStream) if the headers
// cannot be parsed.
func OpenDecoder(src io.Reader, opts ...Option) (*DecodeSession, error) {
	return openDecoder(src, nil, newSettings(opts))
}

func openDecoder(src io.Reader, closer io.Closer, s settings) (*DecodeSession, error) {
	c, rest, err := s.registry.Probe(src)
	if err != nil {
		return nil, classifyOpen(err)
	}
	dec, err := c.OpenDecoder(rest)
	if err != nil {
		return nil, classifyOpen(err)
	}

	ci := dec.Info()
	d := &DecodeSession{
		dec:    dec,
		closer: closer,
		info: StreamInfo{
			Channels:   ci.Channels,
			SampleRate: ci.SampleRate,
			Length:     ci.Length,
			Codec:      c.Name(),
		},
		log: s.log.With().Str("codec", c.Name()).Logger(),
	}
	d.log.Debug().
		Int("channels", ci.Channels).
		Int("sample_rate", ci.SampleRate).
		Int64("length", ci.Length).
		Msg("decoder opened")
	return d, nil
}

func classifyOpen(err error) error {
	if errors.Is(err, codec.ErrCorrupt) || errors.Is(err, codec.ErrUnknownCodec) {
		return &CorruptStreamError{Section: 0, Err: err}
	}
	return withKind(ErrIO, err)
}

// Read decodes up to length samples into pcm starting at offset. offset and
// length count int16 samples of the interleaved buffer; only whole frames
// are written. Returns the number of samples written.
//
// A zero length returns 0 immediately. Once the stream is exhausted Read
// returns ErrEndOfStream. A section change (chained stream) is never mixed
// into one call; poll Section and Info to detect it.
func (d *DecodeSession) Read(pcm []int16, offset, length int) (int, error) {
	if d.closed {
		return 0, ErrInvalidHandle
	}
	if offset < 0 || length < 0 || offset > len(pcm) || length > len(pcm)-offset {
		return 0, ErrBufferOverflow
	}
	if length == 0 {
		return 0, nil
	}

	if cap(d.work) < length {
		d.work = make([]float32, length)
	}
	n, section, err := d.dec.Decode(d.work[:length])
	d.syncSection(section)
	if n > 0 {
		Interleave(pcm[offset:offset+n], d.work[:n])
	}
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if n == 0 {
			return 0, ErrEndOfStream
		}
	case errors.Is(err, codec.ErrCorrupt):
		d.log.Warn().Err(err).Int("section", section).Msg("corrupt section")
		return n, &CorruptStreamError{Section: section, Err: err}
	default:
		return n, withKind(ErrIO, err)
	}
	if n == 0 && length >= d.info.Channels {
		return 0, ErrEndOfStream
	}
	return n, nil
}

// syncSection records a section change reported by the engine.
func (d *DecodeSession) syncSection(section int) {
	if section == d.section {
		return
	}
	ci := d.dec.Info()
	d.section = section
	d.info.Channels, d.info.SampleRate = ci.Channels, ci.SampleRate
	d.log.Debug().
		Int("section", section).
		Int("channels", ci.Channels).
		Int("sample_rate", ci.SampleRate).
		Msg("section changed")
}

// Seek moves to the frame at sample, counted from the start of the stream.
// Returns an error matching ErrSeek if the target is out of range or the
// source cannot seek; the session stays open either way.
func (d *DecodeSession) Seek(sample int64) error {
	if d.closed {
		return ErrInvalidHandle
	}
	if err := d.dec.SeekLap(sample); err != nil {
		return withKind(ErrSeek, err)
	}
	d.syncSection(d.dec.Section())
	return nil
}

// Close releases the engine and the source. Release failures are logged.
func (d *DecodeSession) Close() error {
	if d.closed {
		return ErrInvalidHandle
	}
	d.closed = true
	if err := d.dec.Close(); err != nil {
		d.log.Error().Err(err).Msg("release decoder")
	}
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			d.log.Error().Err(err).Msg("release source")
		}
	}
	d.log.Debug().Int64("position", d.dec.Position()).Msg("decoder closed")
	return nil
}

// Info returns the stream description for the current section.
func (d *DecodeSession) Info() StreamInfo { return d.info }

// Channels returns the channel count of the current section.
func (d *DecodeSession) Channels() int { return d.info.Channels }

// Section returns the index of the current chained link, starting at 0.
func (d *DecodeSession) Section() int { return d.section }

// Position returns the frame position of the next sample Read returns.
func (d *DecodeSession) Position() int64 { return d.dec.Position() }

// Comment returns the comment header of the current section, if the engine
// exposes one.
func (d *DecodeSession) Comment() (codec.Comment, bool) {
	if c, ok := d.dec.(codec.Commenter); ok {
		return c.Comment(), true
	}
	return codec.Comment{}, false
}
