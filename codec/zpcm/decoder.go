package zpcm

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/codec"
	"github.com/thesyncim/oggstream/container/ogg"
	"github.com/thesyncim/oggstream/internal/pagemux"
)

const headerPackets = 3

// link is one chained stream found by scanning a seekable source.
type link struct {
	serial  uint32
	base    int64 // absolute frame at which the link starts
	frames  int64
	ident   Ident
	comment codec.Comment
	setup   Setup
	pages   []ogg.PageInfo
}

// Decoder decodes a zpcm stream, following chained links.
type Decoder struct {
	seeker io.ReadSeeker
	demux  *ogg.Demuxer
	pr     *pagemux.Reader
	zd     *zstd.Decoder

	ident   Ident
	setup   Setup
	comment codec.Comment
	links   []link
	length  int64

	pcm     []float32 // interleaved output of the last packet
	pcmOff  int
	raw     []byte
	base    int64 // absolute frame of the current link start
	pos     int64 // absolute frame of the next output frame
	skip    int64 // frames to drop after a seek
	newLink bool  // a BOS packet is waiting for ReadHeaders
}

// NewDecoder reads the headers of the first link from src. When src is an
// io.ReadSeeker the whole stream is indexed to learn its length and to
// support SeekLap.
func NewDecoder(src io.Reader) (*Decoder, error) {
	zd, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "zpcm: create zstd decoder")
	}
	d := &Decoder{zd: zd, demux: ogg.NewDemuxer(src)}
	d.pr = pagemux.NewReader(d.demux, IsHeader)

	if err := d.readHeaders(); err != nil {
		zd.Close()
		return nil, err
	}

	if s, ok := src.(io.ReadSeeker); ok {
		d.seeker = s
		if err := d.index(); err != nil {
			zd.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *Decoder) readHeaders() error {
	ident, comment, setup, err := parseHeaders(d.pr)
	if err != nil {
		return err
	}
	d.ident, d.comment, d.setup = ident, comment, setup
	d.base = d.pos
	return nil
}

// parseHeaders reads and decodes the three header packets of a link.
func parseHeaders(pr *pagemux.Reader) (Ident, codec.Comment, Setup, error) {
	pkts, err := pr.ReadHeaders(headerPackets)
	if err != nil {
		return Ident{}, codec.Comment{}, Setup{}, errors.Wrap(corrupt(err), "zpcm: read headers")
	}
	ident, err := ParseIdent(pkts[0].Data)
	if err != nil {
		return Ident{}, codec.Comment{}, Setup{}, err
	}
	comment, err := codec.ParseComment(pkts[1].Data, commentPrefix)
	if err != nil {
		return Ident{}, codec.Comment{}, Setup{}, errors.Wrap(err, "zpcm: comment header")
	}
	setup, err := ParseSetup(pkts[2].Data)
	if err != nil {
		return Ident{}, codec.Comment{}, Setup{}, err
	}
	return ident, comment, setup, nil
}

// index scans the source and records every link with its headers. The
// source position is restored afterwards.
func (d *Decoder) index() error {
	// A damaged page ends the index; the length then covers the intact prefix.
	pages, err := ogg.Scan(d.seeker)
	if err != nil && !errors.Is(corrupt(err), codec.ErrCorrupt) {
		return errors.Wrap(err, "zpcm: scan")
	}
	resume, err := d.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "zpcm: scan")
	}

	var base int64
	for _, pages := range ogg.Links(pages) {
		if _, err := d.seeker.Seek(pages[0].Offset, io.SeekStart); err != nil {
			return errors.Wrap(err, "zpcm: scan")
		}
		ident, comment, setup, err := parseHeaders(pagemux.NewReader(ogg.NewDemuxer(d.seeker), IsHeader))
		if err != nil {
			if len(d.links) > 0 && errors.Is(err, codec.ErrCorrupt) {
				break
			}
			return err
		}
		l := link{
			serial:  pages[0].Serial,
			base:    base,
			frames:  ogg.LastGranule(pages),
			ident:   ident,
			comment: comment,
			setup:   setup,
			pages:   pages,
		}
		d.links = append(d.links, l)
		base += l.frames
	}
	d.length = base

	if _, err := d.seeker.Seek(resume, io.SeekStart); err != nil {
		return errors.Wrap(err, "zpcm: scan")
	}
	return nil
}

func (d *Decoder) Info() codec.StreamInfo {
	return codec.StreamInfo{
		Channels:   d.ident.Channels,
		SampleRate: d.ident.SampleRate,
		Length:     d.length,
	}
}

func (d *Decoder) Section() int { return d.pr.Section() }

func (d *Decoder) Position() int64 { return d.pos }

// Comment returns the comment header of the current link.
func (d *Decoder) Comment() codec.Comment { return d.comment }

// Setup returns the setup header of the current link.
func (d *Decoder) Setup() Setup { return d.setup }

// Decode fills dst with whole interleaved frames. A call never mixes
// frames of two links; the first call after a link change reports the
// new section.
func (d *Decoder) Decode(dst []float32) (int, int, error) {
	if d.newLink {
		d.newLink = false
		if err := d.readHeaders(); err != nil {
			return 0, d.Section(), err
		}
	}

	ch := d.ident.Channels
	written := 0
	for len(dst)-written >= ch {
		if d.pcmOff < len(d.pcm) {
			n := min(len(dst)-written, len(d.pcm)-d.pcmOff) / ch * ch
			copy(dst[written:], d.pcm[d.pcmOff:d.pcmOff+n])
			d.pcmOff += n
			written += n
			d.pos += int64(n / ch)
			continue
		}

		p, err := d.pr.Next()
		switch {
		case err == nil:
		case errors.Is(err, pagemux.ErrNewSection):
			if written > 0 {
				d.newLink = true
				return written, d.Section(), nil
			}
			if err := d.readHeaders(); err != nil {
				return 0, d.Section(), err
			}
			ch = d.ident.Channels
			continue
		case errors.Is(err, io.EOF):
			if written > 0 {
				return written, d.Section(), nil
			}
			return 0, d.Section(), io.EOF
		default:
			return written, d.Section(), errors.Wrap(corrupt(err), "zpcm: read packet")
		}

		if err := d.decodePacket(p.Data); err != nil {
			return written, d.Section(), err
		}
	}
	return written, d.Section(), nil
}

func (d *Decoder) decodePacket(data []byte) error {
	if len(data) < audioHeaderSize || data[0] != packetAudio {
		return errors.Wrap(codec.ErrCorrupt, "zpcm: not an audio packet")
	}
	frames := int(binary.LittleEndian.Uint16(data[1:3]))
	bits := int(data[3])
	if bits < minBits || bits > maxBits {
		return errors.Wrapf(codec.ErrCorrupt, "zpcm: quantizer depth %d", bits)
	}

	raw, err := d.zd.DecodeAll(data[audioHeaderSize:], d.raw[:0])
	if err != nil {
		return errors.Wrap(codec.ErrCorrupt, err.Error())
	}
	d.raw = raw

	pcm, err := dequantize(d.pcm[:0], raw, d.ident.Channels, frames, bits)
	if err != nil {
		return err
	}
	d.pcm, d.pcmOff = pcm, 0

	if d.skip > 0 {
		drop := min(d.skip, int64(frames))
		d.pcmOff = int(drop) * d.ident.Channels
		d.skip -= drop
	}
	return nil
}

// SeekLap repositions at the page boundary at or before sample, then
// drops decoded frames up to sample.
func (d *Decoder) SeekLap(sample int64) error {
	if d.seeker == nil || len(d.links) == 0 {
		return errors.Wrap(ogg.ErrNotSeekable, "zpcm: seek")
	}
	if sample < 0 || sample > d.length {
		return errors.Wrapf(codec.ErrSeekRange, "zpcm: sample %d of %d", sample, d.length)
	}

	li := 0
	for i := range d.links {
		if d.links[i].base <= sample {
			li = i
		}
	}
	l := d.links[li]
	rel := sample - l.base

	start := l.pages[0]
	for _, pg := range l.pages {
		if pg.Granule >= 0 && pg.Granule <= rel {
			start = pg
		}
	}
	if start.Granule < 0 {
		start.Granule = 0
	}

	if err := d.demux.ResumeAfter(start.Offset); err != nil {
		return errors.Wrap(corrupt(err), "zpcm: seek")
	}
	d.pr.Resume(li, l.serial)
	d.ident, d.comment, d.setup = l.ident, l.comment, l.setup
	d.base = l.base
	d.pos = sample
	d.skip = rel - start.Granule
	d.pcm, d.pcmOff = d.pcm[:0], 0
	d.newLink = false
	return nil
}

func (d *Decoder) Close() error {
	d.zd.Close()
	return nil
}

// corrupt maps container damage to codec.ErrCorrupt and keeps I/O errors.
func corrupt(err error) error {
	switch {
	case errors.Is(err, ogg.ErrBadCRC), errors.Is(err, ogg.ErrInvalidPage),
		errors.Is(err, ogg.ErrUnexpectedEOS), errors.Is(err, pagemux.ErrHeaderOrder),
		errors.Is(err, io.EOF):
		return errors.Wrap(codec.ErrCorrupt, err.Error())
	}
	return err
}
