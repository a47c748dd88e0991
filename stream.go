// stream.go implements io.Reader and io.Writer adapters over sessions.

package oggstream

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Streaming API
//
// Writer and Reader expose a session as a byte stream of little-endian
// PCM so it plugs into io.Copy and friends:
//
//	enc, _ := oggstream.OpenEncoder(out, oggstream.EncoderConfig{Channels: 2, SampleRate: 44100, Quality: 0.4})
//	w := oggstream.NewWriter(enc, oggstream.FormatInt16LE)
//	io.Copy(w, rawPCM)
//	w.Close() // writes the end-of-stream page
//
//	dec, _ := oggstream.OpenDecoder(in)
//	io.Copy(rawOut, oggstream.NewReader(dec, oggstream.FormatInt16LE))
//
// Samples are interleaved for stereo: [L0, R0, L1, R1, ...]

// SampleFormat specifies the byte encoding of PCM samples.
type SampleFormat int

const (
	// FormatInt16LE is 16-bit signed integer, little-endian (2 bytes per sample).
	FormatInt16LE SampleFormat = iota
	// FormatFloat32LE is 32-bit float, little-endian (4 bytes per sample).
	FormatFloat32LE
)

// BytesPerSample returns the number of bytes per sample for the format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatFloat32LE:
		return 4
	default:
		return 2
	}
}

func (f SampleFormat) String() string {
	switch f {
	case FormatFloat32LE:
		return "f32le"
	default:
		return "s16le"
	}
}

// Writer encodes PCM bytes through a FrameWriter, implementing
// io.WriteCloser. Bytes that do not complete a frame are held until the
// next Write.
type Writer struct {
	dst        FrameWriter
	format     SampleFormat
	frameBytes int

	sampleBuf []byte  // bytes of an incomplete frame
	pcm       []int16 // converted samples of the current Write
}

// NewWriter creates a Writer feeding dst.
func NewWriter(dst FrameWriter, format SampleFormat) *Writer {
	return &Writer{
		dst:        dst,
		format:     format,
		frameBytes: dst.Channels() * format.BytesPerSample(),
	}
}

// Write implements io.Writer. All of p is accepted unless the session
// fails or its stream has already ended. On failure n counts the bytes of p
// that reached the session, and any incomplete frame is dropped.
func (w *Writer) Write(p []byte) (int, error) {
	held := len(w.sampleBuf)
	w.sampleBuf = append(w.sampleBuf, p...)
	frames := len(w.sampleBuf) / w.frameBytes
	if frames == 0 {
		return len(p), nil
	}

	used := frames * w.frameBytes
	w.pcm = w.bytesToPCM(w.pcm[:0], w.sampleBuf[:used])
	n, err := w.dst.Write(w.pcm, 0, len(w.pcm))
	if err == nil && n < frames {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.sampleBuf = w.sampleBuf[:0]
		return min(max(n*w.frameBytes-held, 0), len(p)), err
	}
	rest := copy(w.sampleBuf, w.sampleBuf[used:])
	w.sampleBuf = w.sampleBuf[:rest]
	return len(p), nil
}

// bytesToPCM appends the samples encoded in data to dst.
func (w *Writer) bytesToPCM(dst []int16, data []byte) []int16 {
	switch w.format {
	case FormatFloat32LE:
		for i := 0; i+4 <= len(data); i += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))
			dst = append(dst, Float32ToSample(v))
		}
	default:
		for i := 0; i+2 <= len(data); i += 2 {
			dst = append(dst, int16(binary.LittleEndian.Uint16(data[i:])))
		}
	}
	return dst
}

// Buffered returns the number of bytes held for an incomplete frame.
func (w *Writer) Buffered() int { return len(w.sampleBuf) }

// Close drops any incomplete frame and closes the underlying session.
func (w *Writer) Close() error {
	w.sampleBuf = w.sampleBuf[:0]
	return w.dst.Close()
}

// Reader decodes PCM bytes from a FrameReader, implementing io.Reader.
// ErrEndOfStream is reported as io.EOF.
type Reader struct {
	src    FrameReader
	format SampleFormat
	frames int

	pcm     []int16
	byteBuf []byte
	offset  int
	eof     bool
}

// NewReader creates a Reader pulling from src.
func NewReader(src FrameReader, format SampleFormat) *Reader {
	return &Reader{src: src, format: format, frames: DefaultChunkFrames}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.offset >= len(r.byteBuf) {
		if r.eof {
			return 0, io.EOF
		}
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.byteBuf[r.offset:])
	r.offset += n
	return n, nil
}

func (r *Reader) fill() error {
	units := r.frames * max(r.src.Channels(), 1)
	if cap(r.pcm) < units {
		r.pcm = make([]int16, units)
	}
	r.pcm = r.pcm[:units]

	n, err := r.src.Read(r.pcm, 0, units)
	if errors.Is(err, ErrEndOfStream) {
		r.eof = true
		return io.EOF
	}
	if err != nil {
		return err
	}
	r.byteBuf = r.pcmToBytes(r.byteBuf[:0], r.pcm[:n])
	r.offset = 0
	return nil
}

// pcmToBytes appends samples to dst in the configured format.
func (r *Reader) pcmToBytes(dst []byte, samples []int16) []byte {
	switch r.format {
	case FormatFloat32LE:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(SampleToFloat32(s)))
		}
	default:
		for _, s := range samples {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
		}
	}
	return dst
}
