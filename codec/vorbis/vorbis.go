// Package vorbis registers a decode-only Ogg Vorbis engine backed by
// github.com/jfreymuth/oggvorbis.
package vorbis

import (
	"bytes"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/codec"
)

// Name is the registry name of the engine.
const Name = "vorbis"

var identPrefix = []byte("\x01vorbis")

// Codec is the Vorbis engine.
type Codec struct{}

// New returns the Vorbis engine.
func New() *Codec { return &Codec{} }

func (*Codec) Name() string { return Name }

func (*Codec) Match(ident []byte) bool { return bytes.HasPrefix(ident, identPrefix) }

// NewAnalyzer always fails: the engine cannot encode.
func (*Codec) NewAnalyzer(codec.AnalysisConfig) (codec.Analyzer, error) {
	return nil, codec.ErrEncodeUnsupported
}

// OpenDecoder parses the Vorbis headers of src. A seekable src must be
// positioned at the start of the stream.
func (*Codec) OpenDecoder(src io.Reader) (codec.Decoder, error) {
	r, err := oggvorbis.NewReader(src)
	if err != nil {
		return nil, errors.Wrap(codec.ErrCorrupt, err.Error())
	}
	_, seekable := src.(io.Seeker)
	return &Decoder{r: r, seekable: seekable}, nil
}

// Decoder adapts oggvorbis.Reader. oggvorbis does not report chained
// links, so the section is always 0.
type Decoder struct {
	r        *oggvorbis.Reader
	seekable bool
	eof      bool
}

func (d *Decoder) Info() codec.StreamInfo {
	return codec.StreamInfo{
		Channels:   d.r.Channels(),
		SampleRate: d.r.SampleRate(),
		Length:     d.r.Length(),
	}
}

func (d *Decoder) Decode(dst []float32) (int, int, error) {
	if d.eof {
		return 0, 0, io.EOF
	}
	n, err := d.r.Read(dst)
	if errors.Is(err, io.EOF) {
		d.eof = true
		if n > 0 {
			return n, 0, nil
		}
		return 0, 0, io.EOF
	}
	if err != nil {
		return n, 0, errors.Wrap(codec.ErrCorrupt, err.Error())
	}
	return n, 0, nil
}

func (d *Decoder) Section() int { return 0 }

func (d *Decoder) Position() int64 { return d.r.Position() }

// Comment returns the Vorbis comment header.
func (d *Decoder) Comment() codec.Comment {
	h := d.r.CommentHeader()
	return codec.Comment{Vendor: h.Vendor, Tags: h.Comments}
}

func (d *Decoder) SeekLap(sample int64) error {
	if !d.seekable {
		return errors.New("vorbis: source is not seekable")
	}
	if sample < 0 || sample > d.r.Length() {
		return errors.Wrapf(codec.ErrSeekRange, "vorbis: sample %d of %d", sample, d.r.Length())
	}
	if err := d.r.SetPosition(sample); err != nil {
		return errors.Wrap(err, "vorbis: seek")
	}
	d.eof = false
	return nil
}

func (d *Decoder) Close() error { return nil }
