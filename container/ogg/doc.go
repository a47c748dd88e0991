// Package ogg implements the Ogg container framing used by oggstream.
//
// It provides the two halves of an Ogg bitstream (RFC 3533):
//
//   - StreamState queues codec packets and cuts them into pages. PageOut
//     returns a page only when the queued data fills one; Flush forces
//     out whatever is queued. The first page of a stream always carries
//     exactly one packet (the codec identification header) and the BOS
//     flag; the page that carries the last segment of an EOS packet has
//     the EOS flag.
//   - Demuxer reads pages from an io.Reader, verifies their checksums and
//     reassembles packets that span page boundaries. Chained streams are
//     reported through the BOS flag of the first packet of every link.
//
// # Page Structure
//
// An Ogg page has the following structure:
//
//	Bytes 0-3:   "OggS" capture pattern (magic signature)
//	Byte 4:      Stream structure version (always 0)
//	Byte 5:      Header type flags (continuation, BOS, EOS)
//	Bytes 6-13:  Granule position (codec-defined, -1 if no packet ends here)
//	Bytes 14-17: Bitstream serial number
//	Bytes 18-21: Page sequence number
//	Bytes 22-25: CRC checksum
//	Byte 26:     Number of segments
//	Bytes 27+:   Segment table (one byte per segment)
//	Remaining:   Page payload data
//
// # Segment Table
//
// Packets are split into segments of up to 255 bytes each. A segment value
// of 255 indicates the packet continues in the next segment. A value less
// than 255 marks the end of a packet.
//
// Example: A 600-byte packet uses segments [255, 255, 90] (255+255+90=600)
//
// # CRC Calculation
//
// Ogg uses CRC-32 with polynomial 0x04C11DB7 (NOT the IEEE polynomial used
// by hash/crc32). The CRC is computed over the entire page with the CRC
// field set to zero.
//
// # References
//
//   - RFC 3533: The Ogg Encapsulation Format Version 0
//   - Vorbis I specification, section A (embedding Vorbis into Ogg)
package ogg
