package ogg

import (
	"encoding/binary"
)

// Page header flag constants.
const (
	// PageFlagContinuation indicates this page contains data from a packet
	// that began on a previous page.
	PageFlagContinuation = 0x01

	// PageFlagBOS (Beginning of Stream) indicates this is the first page
	// of a logical bitstream.
	PageFlagBOS = 0x02

	// PageFlagEOS (End of Stream) indicates this is the last page of a
	// logical bitstream.
	PageFlagEOS = 0x04
)

const (
	// pageHeaderSize is the fixed portion of the page header (before segment table).
	pageHeaderSize = 27

	// maxSegments is the largest segment table a page can carry.
	maxSegments = 255

	// oggMagic is the capture pattern that identifies an Ogg page.
	oggMagic = "OggS"
)

// NoGranule is the granule position of a page on which no packet ends.
const NoGranule = ^uint64(0)

// Page represents a single Ogg page.
type Page struct {
	// Version is the stream structure version (always 0).
	Version byte

	// HeaderType contains page flags (continuation, BOS, EOS).
	HeaderType byte

	// GranulePos is the granule position of the last packet that ends on
	// this page, or NoGranule if none does.
	GranulePos uint64

	// SerialNumber identifies the logical bitstream.
	SerialNumber uint32

	// PageSequence is the page sequence number within the bitstream.
	PageSequence uint32

	// Segments contains the segment table entries.
	// Each entry is the size of a segment (0-255).
	Segments []byte

	// Payload contains the concatenated packet data.
	Payload []byte
}

// BuildSegmentTable creates a segment table for a packet of the given length.
// Packets larger than 255 bytes span multiple segments (each 255 bytes except
// the final segment which contains the remainder).
func BuildSegmentTable(packetLen int) []byte {
	// A length that is an exact multiple of 255 needs a trailing zero
	// segment to terminate the packet, which the division below yields.
	n := packetLen/255 + 1
	segments := make([]byte, n)
	for i := 0; i < n-1; i++ {
		segments[i] = 255
	}
	segments[n-1] = byte(packetLen % 255)
	return segments
}

// ParseSegmentTable extracts packet lengths from a segment table.
// Returns a slice of packet lengths. A segment value of 255 indicates
// the packet continues; a value less than 255 ends the packet.
// A trailing unterminated packet is not included.
func ParseSegmentTable(segments []byte) []int {
	if len(segments) == 0 {
		return nil
	}

	var lengths []int
	currentLen := 0

	for _, seg := range segments {
		currentLen += int(seg)
		if seg < 255 {
			lengths = append(lengths, currentLen)
			currentLen = 0
		}
	}
	return lengths
}

// IsBOS returns true if this is a Beginning of Stream page.
func (p *Page) IsBOS() bool {
	return p.HeaderType&PageFlagBOS != 0
}

// IsEOS returns true if this is an End of Stream page.
func (p *Page) IsEOS() bool {
	return p.HeaderType&PageFlagEOS != 0
}

// IsContinuation returns true if this page continues a packet from a previous page.
func (p *Page) IsContinuation() bool {
	return p.HeaderType&PageFlagContinuation != 0
}

// Granule returns the granule position as a signed value; -1 means no
// packet ends on this page.
func (p *Page) Granule() int64 {
	return int64(p.GranulePos)
}

// Continues reports whether the last packet on the page continues on the next page.
func (p *Page) Continues() bool {
	return len(p.Segments) > 0 && p.Segments[len(p.Segments)-1] == 255
}

// PacketLengths extracts packet lengths from the segment table.
// This is equivalent to ParseSegmentTable(p.Segments).
func (p *Page) PacketLengths() []int {
	return ParseSegmentTable(p.Segments)
}

// Packets extracts the complete packets (and packet tails) from the payload.
// A packet continued from the previous page is returned as its tail only.
func (p *Page) Packets() [][]byte {
	lengths := p.PacketLengths()
	if len(lengths) == 0 {
		return nil
	}

	packets := make([][]byte, len(lengths))
	offset := 0
	for i, length := range lengths {
		if offset+length > len(p.Payload) {
			packets[i] = p.Payload[offset:]
			break
		}
		packets[i] = p.Payload[offset : offset+length]
		offset += length
	}
	return packets
}

// HeaderBytes serializes the page header and segment table, with the CRC
// computed over the header and the payload.
func (p *Page) HeaderBytes() []byte {
	header := make([]byte, pageHeaderSize+len(p.Segments))

	copy(header[0:4], oggMagic)
	header[4] = p.Version
	header[5] = p.HeaderType
	binary.LittleEndian.PutUint64(header[6:14], p.GranulePos)
	binary.LittleEndian.PutUint32(header[14:18], p.SerialNumber)
	binary.LittleEndian.PutUint32(header[18:22], p.PageSequence)
	header[26] = byte(len(p.Segments))
	copy(header[27:], p.Segments)

	crc := oggCRCUpdate(oggCRC(header), p.Payload)
	binary.LittleEndian.PutUint32(header[22:26], crc)
	return header
}

// Body returns the page payload.
func (p *Page) Body() []byte {
	return p.Payload
}

// Encode serializes the page to bytes with proper CRC.
// The output format is:
//   - 27-byte header
//   - Segment table
//   - Payload
func (p *Page) Encode() []byte {
	header := p.HeaderBytes()
	data := make([]byte, len(header)+len(p.Payload))
	copy(data, header)
	copy(data[len(header):], p.Payload)
	return data
}

// Size returns the encoded size of the page in bytes.
func (p *Page) Size() int {
	return pageHeaderSize + len(p.Segments) + len(p.Payload)
}

// ParsePage parses an Ogg page from bytes.
// Returns the parsed page, number of bytes consumed, and any error.
// Returns ErrInvalidPage if the magic signature is missing or data is truncated.
// Returns ErrBadCRC if the CRC checksum does not match.
func ParsePage(data []byte) (*Page, int, error) {
	if len(data) < pageHeaderSize {
		return nil, 0, ErrInvalidPage
	}
	if string(data[0:4]) != oggMagic {
		return nil, 0, ErrInvalidPage
	}
	if data[4] != 0 {
		return nil, 0, ErrInvalidPage
	}

	p := &Page{
		Version:      data[4],
		HeaderType:   data[5],
		GranulePos:   binary.LittleEndian.Uint64(data[6:14]),
		SerialNumber: binary.LittleEndian.Uint32(data[14:18]),
		PageSequence: binary.LittleEndian.Uint32(data[18:22]),
	}
	storedCRC := binary.LittleEndian.Uint32(data[22:26])

	numSegments := int(data[26])
	headerSize := pageHeaderSize + numSegments
	if len(data) < headerSize {
		return nil, 0, ErrInvalidPage
	}

	p.Segments = make([]byte, numSegments)
	copy(p.Segments, data[27:headerSize])

	payloadSize := 0
	for _, seg := range p.Segments {
		payloadSize += int(seg)
	}

	totalSize := headerSize + payloadSize
	if len(data) < totalSize {
		return nil, 0, ErrInvalidPage
	}

	p.Payload = make([]byte, payloadSize)
	copy(p.Payload, data[headerSize:totalSize])

	// The checksum covers the page with the CRC field zeroed.
	var zero [4]byte
	crc := oggCRCUpdate(0, data[:22])
	crc = oggCRCUpdate(crc, zero[:])
	crc = oggCRCUpdate(crc, data[26:totalSize])
	if crc != storedCRC {
		return nil, 0, ErrBadCRC
	}

	return p, totalSize, nil
}
