package ogg

// pageFillBytes is the body size at which PageOut starts cutting pages.
const pageFillBytes = 4096

// lace is one segment table entry waiting to be paged.
type lace struct {
	size    byte
	granule int64
	first   bool // first segment of its packet
}

// StreamState assembles packets of one logical bitstream into pages.
//
// PacketIn queues a packet. PageOut returns a page only when enough data is
// queued to fill one (or the stream has ended); Flush returns a page with
// whatever is queued. Both return false when no page is produced, so callers
// drain with a loop until false.
//
// A StreamState is NOT safe for concurrent use.
type StreamState struct {
	serial   uint32
	pageSeq  uint32
	body     []byte
	laces    []lace
	packetNo int64
	bosDone  bool // first page emitted
	eosIn    bool // EOS packet queued
	eosOut   bool // EOS page emitted
}

// NewStreamState creates a stream with the given bitstream serial number.
func NewStreamState(serial uint32) *StreamState {
	return &StreamState{serial: serial}
}

// PacketIn queues a packet. The packet data is copied.
// Returns ErrStreamEnded if an EOS packet was already queued.
func (s *StreamState) PacketIn(p Packet) error {
	if s.eosIn {
		return ErrStreamEnded
	}

	n := len(p.Data)/255 + 1
	for i := 0; i < n; i++ {
		l := lace{size: 255, granule: -1, first: i == 0}
		if i == n-1 {
			l.size = byte(len(p.Data) % 255)
			l.granule = p.GranulePos
		}
		s.laces = append(s.laces, l)
	}
	s.body = append(s.body, p.Data...)
	s.packetNo++

	if p.EOS {
		s.eosIn = true
	}
	return nil
}

// PageOut returns the next page if the queued data fills one. A page is
// also forced out for the first (BOS) page and once the EOS packet is queued.
func (s *StreamState) PageOut() (*Page, bool) {
	force := (s.eosIn && len(s.laces) > 0) ||
		len(s.body) > pageFillBytes ||
		len(s.laces) >= maxSegments ||
		(len(s.laces) > 0 && !s.bosDone)
	return s.flush(force)
}

// Flush returns a page holding the queued data regardless of fill level.
func (s *StreamState) Flush() (*Page, bool) {
	return s.flush(true)
}

func (s *StreamState) flush(force bool) (*Page, bool) {
	maxVals := min(len(s.laces), maxSegments)
	if maxVals == 0 {
		return nil, false
	}

	vals, acc := 0, 0
	granule := int64(-1)

	if !s.bosDone {
		// The first page carries the identification packet alone.
		granule = 0
		for vals < maxVals {
			acc += int(s.laces[vals].size)
			vals++
			if s.laces[vals-1].size < 255 {
				break
			}
		}
	} else {
		done, justDone := 0, 0
		for ; vals < maxVals; vals++ {
			if acc > pageFillBytes && justDone >= 4 {
				force = true
				break
			}
			l := s.laces[vals]
			acc += int(l.size)
			if l.size < 255 {
				granule = l.granule
				done++
				justDone = done
			} else {
				justDone = 0
			}
		}
		if vals == maxSegments {
			force = true
		}
	}

	if !force {
		return nil, false
	}

	page := &Page{
		GranulePos:   uint64(granule),
		SerialNumber: s.serial,
		PageSequence: s.pageSeq,
		Segments:     make([]byte, vals),
		Payload:      make([]byte, acc),
	}
	for i := 0; i < vals; i++ {
		page.Segments[i] = s.laces[i].size
	}
	copy(page.Payload, s.body[:acc])

	if !s.laces[0].first {
		page.HeaderType |= PageFlagContinuation
	}
	if !s.bosDone {
		page.HeaderType |= PageFlagBOS
	}
	if s.eosIn && vals == len(s.laces) {
		page.HeaderType |= PageFlagEOS
		s.eosOut = true
	}

	s.laces = append(s.laces[:0], s.laces[vals:]...)
	s.body = append(s.body[:0], s.body[acc:]...)
	s.pageSeq++
	s.bosDone = true

	return page, true
}

// Serial returns the bitstream serial number.
func (s *StreamState) Serial() uint32 {
	return s.serial
}

// PageCount returns the number of pages produced so far.
func (s *StreamState) PageCount() uint32 {
	return s.pageSeq
}

// PacketCount returns the number of packets queued so far.
func (s *StreamState) PacketCount() int64 {
	return s.packetNo
}

// Pending returns the number of body bytes queued but not yet paged.
func (s *StreamState) Pending() int {
	return len(s.body)
}

// EOS reports whether the page carrying the EOS flag has been produced.
func (s *StreamState) EOS() bool {
	return s.eosOut
}
