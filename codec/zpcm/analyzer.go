package zpcm

import (
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/codec"
	"github.com/thesyncim/oggstream/container/ogg"
)

// Analyzer buffers submitted PCM into fixed-size blocks and encodes each
// block into one audio packet.
type Analyzer struct {
	cfg         codec.AnalysisConfig
	blockFrames int
	setup       Setup
	enc         *zstd.Encoder

	pending  [][]float32
	ended    bool
	endBlock bool // EOS block handed out

	packets []ogg.Packet
	granule int64
	scratch []byte
	stats   codec.Stats
}

func newAnalyzer(cfg codec.AnalysisConfig, blockFrames int) (*Analyzer, error) {
	setup := Setup{Bits: bitsForQuality(cfg.Quality), Level: levelForQuality(cfg.Quality)}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(setup.Level),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "zpcm: create zstd encoder")
	}
	return &Analyzer{
		cfg:         cfg,
		blockFrames: blockFrames,
		setup:       setup,
		enc:         enc,
		pending:     make([][]float32, cfg.Channels),
	}, nil
}

// HeaderPackets returns the identification, comment and setup packets.
func (a *Analyzer) HeaderPackets(c codec.Comment) ([]ogg.Packet, error) {
	ident := Ident{
		Channels:    a.cfg.Channels,
		SampleRate:  a.cfg.SampleRate,
		BlockFrames: a.blockFrames,
		Quality:     a.cfg.Quality,
	}
	return []ogg.Packet{
		{Data: ident.Encode(), BOS: true},
		{Data: c.Encode(commentPrefix), PacketNo: 1},
		{Data: a.setup.Encode(), PacketNo: 2},
	}, nil
}

func (a *Analyzer) ChunkFrames() int { return a.blockFrames }

// Submit queues planar samples. Every channel slice must have the same length.
func (a *Analyzer) Submit(chunk [][]float32) error {
	if a.ended {
		return codec.ErrAnalysisEnded
	}
	if len(chunk) != a.cfg.Channels {
		return errors.Errorf("zpcm: submitted %d channels, want %d", len(chunk), a.cfg.Channels)
	}
	for c, ch := range chunk {
		if len(ch) != len(chunk[0]) {
			return errors.New("zpcm: channel lengths differ")
		}
		a.pending[c] = append(a.pending[c], ch...)
	}
	return nil
}

// SubmitEnd marks the end of input. The remaining frames, possibly none,
// become the EOS block.
func (a *Analyzer) SubmitEnd() error {
	a.ended = true
	return nil
}

// DrainBlock returns the next full block, or after SubmitEnd the final
// partial block.
func (a *Analyzer) DrainBlock() (*codec.Block, bool) {
	have := len(a.pending[0])
	n := a.blockFrames
	eos := false
	switch {
	case have > a.blockFrames || (have == a.blockFrames && !a.ended):
	case a.ended && !a.endBlock:
		n, eos = have, true
		a.endBlock = true
	default:
		return nil, false
	}

	b := &codec.Block{PCM: make([][]float32, len(a.pending)), Frames: n, EOS: eos}
	for c := range a.pending {
		b.PCM[c] = append([]float32(nil), a.pending[c][:n]...)
		a.pending[c] = append(a.pending[c][:0], a.pending[c][n:]...)
	}
	return b, true
}

// EncodeBlock quantizes and compresses b into an audio packet:
// [0x00][frames u16][bits][zstd payload].
func (a *Analyzer) EncodeBlock(b *codec.Block) error {
	if b.Frames > 0xFFFF || len(b.PCM) != a.cfg.Channels {
		return errors.Wrap(codec.ErrUnsupported, "zpcm: block shape")
	}
	a.scratch = quantize(a.scratch[:0], b.PCM, b.Frames, a.setup.Bits)

	data := make([]byte, audioHeaderSize, audioHeaderSize+len(a.scratch)/2)
	data[0] = packetAudio
	binary.LittleEndian.PutUint16(data[1:3], uint16(b.Frames))
	data[3] = byte(a.setup.Bits)
	data = a.enc.EncodeAll(a.scratch, data)

	a.granule += int64(b.Frames)
	a.packets = append(a.packets, ogg.Packet{
		Data:       data,
		EOS:        b.EOS,
		GranulePos: a.granule,
		PacketNo:   3 + a.stats.Packets,
	})
	a.stats.Packets++
	a.stats.Bytes += int64(len(data))
	a.stats.Frames += int64(b.Frames)
	return nil
}

// DrainPacket returns the next encoded packet.
func (a *Analyzer) DrainPacket() (ogg.Packet, bool) {
	if len(a.packets) == 0 {
		return ogg.Packet{}, false
	}
	p := a.packets[0]
	a.packets = a.packets[1:]
	return p, true
}

// Stats returns the running packet statistics.
func (a *Analyzer) Stats() codec.Stats { return a.stats }

// Setup returns the quantizer settings chosen for the configured quality.
func (a *Analyzer) Setup() Setup { return a.setup }

func (a *Analyzer) Close() error {
	return a.enc.Close()
}
