package pagemux

import (
	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/container/ogg"
)

// Errors returned by Reader.
var (
	// ErrHeaderOrder means a link did not start with its header packets.
	ErrHeaderOrder = errors.New("pagemux: stream does not start with header packets")

	// ErrNewSection is returned by Next when a new chained link begins.
	// The caller reads the link's headers with ReadHeaders before
	// continuing with Next.
	ErrNewSection = errors.New("pagemux: new chained section")
)

// Reader pulls packets of one logical stream at a time from a Demuxer.
type Reader struct {
	d        *ogg.Demuxer
	isHeader func([]byte) bool

	serial  uint32
	section int
	links   int
	stash   *ogg.Packet
}

// NewReader creates a Reader. isHeader reports whether a packet is one of
// the codec's header packets.
func NewReader(d *ogg.Demuxer, isHeader func([]byte) bool) *Reader {
	return &Reader{d: d, isHeader: isHeader}
}

// ReadHeaders reads the n header packets that open a link. The first must
// carry the BOS flag. Each call after the first starts a new section.
func (r *Reader) ReadHeaders(n int) ([]ogg.Packet, error) {
	first, err := r.next()
	if err != nil {
		return nil, err
	}
	if !first.BOS || !r.isHeader(first.Data) {
		return nil, ErrHeaderOrder
	}
	if r.links > 0 {
		r.section++
	}
	r.links++
	r.serial = first.Serial

	headers := []ogg.Packet{first}
	for len(headers) < n {
		p, err := r.next()
		if err != nil {
			return headers, err
		}
		if p.Serial != r.serial {
			continue
		}
		if !r.isHeader(p.Data) {
			return headers, ErrHeaderOrder
		}
		headers = append(headers, p)
	}
	return headers, nil
}

// Next returns the next audio packet of the current link. Header packets
// and packets of other serial numbers are skipped. At the start of a new
// link it returns ErrNewSection and keeps the link's first packet for the
// following ReadHeaders call.
func (r *Reader) Next() (ogg.Packet, error) {
	for {
		p, err := r.next()
		if err != nil {
			return ogg.Packet{}, err
		}
		if p.BOS {
			r.stash = &p
			return ogg.Packet{}, ErrNewSection
		}
		if p.Serial != r.serial || r.isHeader(p.Data) {
			continue
		}
		return p, nil
	}
}

// Section returns the zero-based index of the current link.
func (r *Reader) Section() int { return r.section }

// Serial returns the serial number of the current link.
func (r *Reader) Serial() uint32 { return r.serial }

// Resume sets the current link after the Demuxer was repositioned.
func (r *Reader) Resume(section int, serial uint32) {
	r.section, r.serial, r.links = section, serial, section+1
	r.stash = nil
}

func (r *Reader) next() (ogg.Packet, error) {
	if r.stash != nil {
		p := *r.stash
		r.stash = nil
		return p, nil
	}
	return r.d.NextPacket()
}
