package ogg

// Packet is one codec packet as carried inside Ogg pages.
type Packet struct {
	// Data is the packet payload.
	Data []byte

	// BOS marks the first packet of a logical bitstream.
	BOS bool

	// EOS marks the last packet of a logical bitstream.
	EOS bool

	// GranulePos is the codec-defined position at the end of the packet.
	// The Demuxer sets it only on the last packet completed on a page;
	// other packets carry -1.
	GranulePos int64

	// PacketNo is the sequence number of the packet within its stream.
	PacketNo int64

	// Serial is the serial number of the logical bitstream the packet was
	// read from. It is ignored by StreamState.
	Serial uint32
}
