package zpcm

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/codec"
)

// Packet types. Header packets have the low bit set.
const (
	packetAudio   = 0
	packetIdent   = 1
	packetComment = 3
	packetSetup   = 5
)

const (
	magic   = "zpcm"
	version = 1

	identSize = 1 + len(magic) + 1 + 1 + 4 + 2 + 4
	setupSize = 1 + len(magic) + 2 + 1

	audioHeaderSize = 4
)

var commentPrefix = []byte("\x03" + magic)

// Ident is the identification header of a zpcm link.
type Ident struct {
	Channels    int
	SampleRate  int
	BlockFrames int
	Quality     float32
}

// Encode serializes the identification packet:
//
//	[0x01]["zpcm"][version][channels][rate u32][block frames u16][quality f32]
func (h Ident) Encode() []byte {
	b := make([]byte, 0, identSize)
	b = append(b, packetIdent)
	b = append(b, magic...)
	b = append(b, version, byte(h.Channels))
	b = binary.LittleEndian.AppendUint32(b, uint32(h.SampleRate))
	b = binary.LittleEndian.AppendUint16(b, uint16(h.BlockFrames))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(h.Quality))
}

// ParseIdent decodes an identification packet.
func ParseIdent(b []byte) (Ident, error) {
	if len(b) < identSize || b[0] != packetIdent || string(b[1:5]) != magic {
		return Ident{}, errors.Wrap(codec.ErrCorrupt, "zpcm: bad identification header")
	}
	if b[5] != version {
		return Ident{}, errors.Wrapf(codec.ErrCorrupt, "zpcm: unsupported version %d", b[5])
	}
	h := Ident{
		Channels:    int(b[6]),
		SampleRate:  int(binary.LittleEndian.Uint32(b[7:11])),
		BlockFrames: int(binary.LittleEndian.Uint16(b[11:13])),
		Quality:     math.Float32frombits(binary.LittleEndian.Uint32(b[13:17])),
	}
	if h.Channels < minChannels || h.Channels > maxChannels || h.SampleRate <= 0 || h.BlockFrames == 0 {
		return Ident{}, errors.Wrap(codec.ErrCorrupt, "zpcm: identification header out of range")
	}
	return h, nil
}

// Setup is the setup header: the quantizer depth and the zstd level.
type Setup struct {
	Bits  int
	Level zstd.EncoderLevel
}

// Encode serializes the setup packet: [0x05]["zpcm"][bits][level][0x01].
func (s Setup) Encode() []byte {
	b := make([]byte, 0, setupSize)
	b = append(b, packetSetup)
	b = append(b, magic...)
	return append(b, byte(s.Bits), byte(s.Level), 1)
}

// ParseSetup decodes a setup packet.
func ParseSetup(b []byte) (Setup, error) {
	if len(b) < setupSize || b[0] != packetSetup || string(b[1:5]) != magic || b[7]&1 == 0 {
		return Setup{}, errors.Wrap(codec.ErrCorrupt, "zpcm: bad setup header")
	}
	s := Setup{Bits: int(b[5]), Level: zstd.EncoderLevel(b[6])}
	if s.Bits < minBits || s.Bits > maxBits {
		return Setup{}, errors.Wrapf(codec.ErrCorrupt, "zpcm: quantizer depth %d", s.Bits)
	}
	return s, nil
}

// IsHeader reports whether b is a zpcm header packet.
func IsHeader(b []byte) bool {
	return len(b) >= 1+len(magic) && b[0]&1 == 1 && string(b[1:1+len(magic)]) == magic
}

// isIdent reports whether b is a zpcm identification packet.
func isIdent(b []byte) bool {
	return len(b) >= 1+len(magic) && bytes.Equal(b[:1+len(magic)], []byte("\x01"+magic))
}
