package ogg

import (
	"errors"
	"io"
)

// Demuxer reads pages from an Ogg bitstream and reassembles packets.
//
// Packets that span pages are joined. A continuation page without the
// beginning of its packet (for example after a seek) has its leading
// fragment dropped. Pages of every serial number are returned in file
// order; Packet.Serial and Packet.BOS let callers follow chained links.
type Demuxer struct {
	r      io.Reader
	offset int64 // byte offset of the next page

	queue []Packet

	partial       []byte
	partialSerial uint32
	hasPartial    bool
}

// NewDemuxer creates a Demuxer reading from r. If r implements io.Seeker,
// page offsets are reported relative to the start of r; otherwise they
// count bytes consumed by the Demuxer.
func NewDemuxer(r io.Reader) *Demuxer {
	d := &Demuxer{r: r}
	if s, ok := r.(io.Seeker); ok {
		if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
			d.offset = pos
		}
	}
	return d
}

// Offset returns the byte offset of the next page to be read.
func (d *Demuxer) Offset() int64 {
	return d.offset
}

// ReadPage reads and verifies the next page.
// Returns the page and the byte offset at which it started.
// Returns io.EOF at a clean end of input, ErrUnexpectedEOS if the input
// ends inside a page, ErrInvalidPage or ErrBadCRC for damaged pages.
func (d *Demuxer) ReadPage() (*Page, int64, error) {
	var hdr [pageHeaderSize]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, d.offset, ErrUnexpectedEOS
		}
		return nil, d.offset, err
	}
	if string(hdr[0:4]) != oggMagic {
		return nil, d.offset, ErrInvalidPage
	}

	numSegments := int(hdr[26])
	raw := make([]byte, pageHeaderSize+numSegments, pageHeaderSize+numSegments+numSegments*255)
	copy(raw, hdr[:])
	if _, err := io.ReadFull(d.r, raw[pageHeaderSize:]); err != nil {
		return nil, d.offset, noEOF(err)
	}

	payloadSize := 0
	for _, seg := range raw[pageHeaderSize:] {
		payloadSize += int(seg)
	}
	raw = raw[:len(raw)+payloadSize]
	if _, err := io.ReadFull(d.r, raw[pageHeaderSize+numSegments:]); err != nil {
		return nil, d.offset, noEOF(err)
	}

	page, n, err := ParsePage(raw)
	if err != nil {
		return nil, d.offset, err
	}
	start := d.offset
	d.offset += int64(n)
	return page, start, nil
}

// NextPacket returns the next complete packet.
// Returns io.EOF when the input is exhausted.
func (d *Demuxer) NextPacket() (Packet, error) {
	for len(d.queue) == 0 {
		page, _, err := d.ReadPage()
		if err != nil {
			if errors.Is(err, io.EOF) && d.hasPartial {
				return Packet{}, ErrUnexpectedEOS
			}
			return Packet{}, err
		}
		d.pushPage(page)
	}

	p := d.queue[0]
	d.queue = d.queue[1:]
	return p, nil
}

// pushPage splits a page into packets and appends the complete ones to the queue.
func (d *Demuxer) pushPage(page *Page) {
	var cur []byte
	inPacket, skipping := false, false

	if page.IsContinuation() {
		if d.hasPartial && d.partialSerial == page.SerialNumber {
			cur, inPacket = d.partial, true
		} else {
			skipping = true
		}
	}
	d.partial, d.hasPartial = nil, false

	first := len(d.queue)
	bos := page.IsBOS()
	pos := 0
	for _, seg := range page.Segments {
		chunk := page.Payload[pos : pos+int(seg)]
		pos += int(seg)

		if skipping {
			if seg < 255 {
				skipping = false
			}
			continue
		}

		cur = append(cur, chunk...)
		inPacket = true
		if seg < 255 {
			d.queue = append(d.queue, Packet{
				Data:       cur,
				BOS:        bos,
				GranulePos: -1,
				Serial:     page.SerialNumber,
			})
			bos = false
			cur, inPacket = nil, false
		}
	}

	if inPacket {
		d.partial, d.partialSerial, d.hasPartial = cur, page.SerialNumber, true
	}

	if len(d.queue) > first {
		last := &d.queue[len(d.queue)-1]
		last.GranulePos = page.Granule()
		if page.IsEOS() && !d.hasPartial {
			last.EOS = true
		}
	} else if page.IsEOS() && !d.hasPartial {
		// An EOS page whose only content is a tail fragment still ends the stream.
		d.queue = append(d.queue, Packet{
			EOS:        true,
			GranulePos: page.Granule(),
			Serial:     page.SerialNumber,
		})
	}
}

// SeekPage repositions the Demuxer at the page starting at offset and
// drops any buffered packet state.
func (d *Demuxer) SeekPage(offset int64) error {
	s, ok := d.r.(io.Seeker)
	if !ok {
		return ErrNotSeekable
	}
	if _, err := s.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	d.offset = offset
	d.queue = nil
	d.partial, d.hasPartial = nil, false
	return nil
}

// ResumeAfter positions the Demuxer so that the next packet returned is the
// first one that ends after the page at offset: the packets completed on
// that page are discarded, but a packet that starts on it is kept.
func (d *Demuxer) ResumeAfter(offset int64) error {
	if err := d.SeekPage(offset); err != nil {
		return err
	}
	page, _, err := d.ReadPage()
	if err != nil {
		return err
	}
	d.pushPage(page)
	d.queue = nil
	return nil
}

func noEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOS
	}
	return err
}
