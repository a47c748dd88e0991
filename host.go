// host.go implements the handle-based host API over the session pools.

package oggstream

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Host owns a fixed-capacity pool of encode sessions and one of decode
// sessions and addresses them by Handle.
//
// Host methods are safe for concurrent use. Calls on one handle must still
// be serialized by the caller.
type Host struct {
	settings settings
	encoders *Pool[*EncodeSession]
	decoders *Pool[*DecodeSession]
	log      zerolog.Logger
}

// NewHost creates a Host. Capacities default to DefaultEncoderSlots and
// DefaultDecoderSlots.
func NewHost(opts ...Option) *Host {
	s := newSettings(opts)
	h := &Host{
		settings: s,
		encoders: NewPool[*EncodeSession]("encoder", s.encoderSlots, s.log),
		decoders: NewPool[*DecodeSession]("decoder", s.decoderSlots, s.log),
		log:      s.log,
	}
	h.log.Debug().
		Int("encoder_slots", s.encoderSlots).
		Int("decoder_slots", s.decoderSlots).
		Msg("host created")
	return h
}

// AcquireEncoder reserves an encoder slot and opens a session writing to
// sink. The header pages are written before it returns. On failure the
// slot is released and -1 is returned.
func (h *Host) AcquireEncoder(sink io.Writer, channels, sampleRate int, quality float32) (Handle, error) {
	return h.acquireEncoder(sink, nil, EncoderConfig{
		Channels:   channels,
		SampleRate: sampleRate,
		Quality:    quality,
	})
}

// CreateEncoder is AcquireEncoder writing to a new file at path. The file
// is closed by EncoderClose. If the session cannot be opened the file is
// removed.
func (h *Host) CreateEncoder(path string, channels, sampleRate int, quality float32) (Handle, error) {
	f, err := os.Create(path)
	if err != nil {
		return -1, withKind(ErrIO, errors.Wrap(err, "oggstream: create output"))
	}
	hd, err := h.acquireEncoder(f, f, EncoderConfig{
		Channels:   channels,
		SampleRate: sampleRate,
		Quality:    quality,
	})
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			h.log.Error().Err(cerr).Str("path", path).Msg("close output")
		}
		if rerr := os.Remove(path); rerr != nil {
			h.log.Error().Err(rerr).Str("path", path).Msg("remove output")
		}
		return -1, err
	}
	return hd, nil
}

// bindSession binds v to hd, closing v if the slot cannot take it.
func bindSession[T io.Closer](p *Pool[T], hd Handle, v T, log zerolog.Logger) error {
	err := p.Bind(hd, v)
	if err == nil {
		return nil
	}
	if cerr := v.Close(); cerr != nil {
		log.Error().Err(cerr).Str("pool", p.name).Int("handle", int(hd)).Msg("close unbound session")
	}
	return err
}

// sessionLogger tags a session's log lines with its handle and a session
// id, since handles are reused once released.
func (h *Host) sessionLogger(hd Handle) zerolog.Logger {
	return h.log.With().Int("handle", int(hd)).Str("session", uuid.NewString()).Logger()
}

func (h *Host) acquireEncoder(sink io.Writer, closer io.Closer, cfg EncoderConfig) (Handle, error) {
	hd, err := h.encoders.Acquire()
	if err != nil {
		return -1, err
	}
	s := h.settings
	s.log = h.sessionLogger(hd)
	e, err := openEncoder(sink, closer, cfg, s)
	if err != nil {
		h.encoders.Release(hd)
		return -1, err
	}
	if err := bindSession(h.encoders, hd, e, h.log); err != nil {
		return -1, err
	}
	return hd, nil
}

// EncoderWrite encodes length samples of pcm starting at offset on the
// session hd. Returns frames consumed.
func (h *Host) EncoderWrite(hd Handle, pcm []int16, offset, length int) (int, error) {
	e, err := h.encoders.Validate(hd)
	if err != nil {
		return 0, err
	}
	return e.Write(pcm, offset, length)
}

// EncoderClose ends the stream of hd and frees its slot. The slot is freed
// even when draining fails.
func (h *Host) EncoderClose(hd Handle) error {
	e, err := h.encoders.Validate(hd)
	if err != nil {
		return err
	}
	err = e.Close()
	h.encoders.Release(hd)
	return err
}

// AcquireDecoder reserves a decoder slot and opens a session reading src.
func (h *Host) AcquireDecoder(src io.Reader) (Handle, StreamInfo, error) {
	return h.acquireDecoder(src, nil)
}

// OpenDecoderFile is AcquireDecoder reading the file at path. The file is
// closed by DecoderClose.
func (h *Host) OpenDecoderFile(path string) (Handle, StreamInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return -1, StreamInfo{}, withKind(ErrIO, errors.Wrap(err, "oggstream: open input"))
	}
	hd, info, err := h.acquireDecoder(f, f)
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			h.log.Error().Err(cerr).Str("path", path).Msg("close input")
		}
		return -1, StreamInfo{}, err
	}
	return hd, info, nil
}

func (h *Host) acquireDecoder(src io.Reader, closer io.Closer) (Handle, StreamInfo, error) {
	hd, err := h.decoders.Acquire()
	if err != nil {
		return -1, StreamInfo{}, err
	}
	s := h.settings
	s.log = h.sessionLogger(hd)
	d, err := openDecoder(src, closer, s)
	if err != nil {
		h.decoders.Release(hd)
		return -1, StreamInfo{}, err
	}
	if err := bindSession(h.decoders, hd, d, h.log); err != nil {
		return -1, StreamInfo{}, err
	}
	return hd, d.Info(), nil
}

// DecoderRead decodes up to length samples into pcm starting at offset.
// Returns samples written, or ErrEndOfStream.
func (h *Host) DecoderRead(hd Handle, pcm []int16, offset, length int) (int, error) {
	d, err := h.decoders.Validate(hd)
	if err != nil {
		return 0, err
	}
	return d.Read(pcm, offset, length)
}

// DecoderSeek moves the session hd to frame sample.
func (h *Host) DecoderSeek(hd Handle, sample int64) error {
	d, err := h.decoders.Validate(hd)
	if err != nil {
		return err
	}
	return d.Seek(sample)
}

// DecoderSection returns the current section of hd and its description.
func (h *Host) DecoderSection(hd Handle) (int, StreamInfo, error) {
	d, err := h.decoders.Validate(hd)
	if err != nil {
		return 0, StreamInfo{}, err
	}
	return d.Section(), d.Info(), nil
}

// DecoderInfo returns the description of the current section of hd.
func (h *Host) DecoderInfo(hd Handle) (StreamInfo, error) {
	d, err := h.decoders.Validate(hd)
	if err != nil {
		return StreamInfo{}, err
	}
	return d.Info(), nil
}

// DecoderClose releases the session hd and frees its slot.
func (h *Host) DecoderClose(hd Handle) error {
	d, err := h.decoders.Validate(hd)
	if err != nil {
		return err
	}
	err = d.Close()
	h.decoders.Release(hd)
	return err
}

// EncodersInUse returns the number of open encoder slots.
func (h *Host) EncodersInUse() int { return h.encoders.InUse() }

// DecodersInUse returns the number of open decoder slots.
func (h *Host) DecodersInUse() int { return h.decoders.InUse() }

// FrameWriter accepts interleaved int16 PCM. EncodeSession implements it,
// as does the value returned by Host.Encoder.
type FrameWriter interface {
	Write(pcm []int16, offset, length int) (int, error)
	Channels() int
	Close() error
}

// FrameReader produces interleaved int16 PCM. DecodeSession implements it,
// as does the value returned by Host.Decoder.
type FrameReader interface {
	Read(pcm []int16, offset, length int) (int, error)
	Channels() int
}

// Encoder returns a FrameWriter bound to the encoder handle hd.
func (h *Host) Encoder(hd Handle) (FrameWriter, error) {
	e, err := h.encoders.Validate(hd)
	if err != nil {
		return nil, err
	}
	return &hostEncoder{h: h, hd: hd, channels: e.Channels()}, nil
}

// Decoder returns a FrameReader bound to the decoder handle hd. Closing
// the handle stays with the caller.
func (h *Host) Decoder(hd Handle) (FrameReader, error) {
	if _, err := h.decoders.Validate(hd); err != nil {
		return nil, err
	}
	return &hostDecoder{h: h, hd: hd}, nil
}

type hostEncoder struct {
	h        *Host
	hd       Handle
	channels int
}

func (e *hostEncoder) Write(pcm []int16, offset, length int) (int, error) {
	return e.h.EncoderWrite(e.hd, pcm, offset, length)
}

func (e *hostEncoder) Channels() int { return e.channels }

func (e *hostEncoder) Close() error { return e.h.EncoderClose(e.hd) }

type hostDecoder struct {
	h  *Host
	hd Handle
}

func (d *hostDecoder) Read(pcm []int16, offset, length int) (int, error) {
	return d.h.DecoderRead(d.hd, pcm, offset, length)
}

func (d *hostDecoder) Channels() int {
	info, err := d.h.DecoderInfo(d.hd)
	if err != nil {
		return 0
	}
	return info.Channels
}
