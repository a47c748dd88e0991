package pagemux

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/oggstream/container/ogg"
)

func isHeader(b []byte) bool { return len(b) > 0 && b[0]&1 == 1 }

func headerPackets() []ogg.Packet {
	return []ogg.Packet{
		{Data: []byte{1, 'i', 'd'}},
		{Data: []byte{3, 'c', 'm'}},
		{Data: []byte{5, 's', 'u'}},
	}
}

// writeLog records every Write call separately.
type writeLog struct {
	calls [][]byte
	fail  int // fail the n-th call (1-based); 0 never
}

func (w *writeLog) Write(p []byte) (int, error) {
	if w.fail > 0 && len(w.calls)+1 == w.fail {
		return 0, errors.New("disk full")
	}
	w.calls = append(w.calls, append([]byte(nil), p...))
	return len(p), nil
}

func (w *writeLog) joined() []byte { return bytes.Join(w.calls, nil) }

func TestWriter_HeaderPagesThenAudio(t *testing.T) {
	sink := &writeLog{}
	w := NewWriter(sink, 42)

	require.ErrorIs(t, w.WritePacket(ogg.Packet{Data: []byte{0}}), ErrNoHeaders)
	require.NoError(t, w.WriteHeaders(headerPackets()))
	require.ErrorIs(t, w.WriteHeaders(headerPackets()), ErrHeadersWritten)

	// BOS page with the ident packet alone, then one page with comment+setup.
	assert.Equal(t, 2, w.Pages())
	assert.Len(t, sink.calls, 4, "each page is two writes")
	assert.Equal(t, "OggS", string(sink.calls[0][:4]))
	assert.Equal(t, "OggS", string(sink.calls[2][:4]))
	assert.Equal(t, 0, w.Pending())

	require.NoError(t, w.WritePacket(ogg.Packet{Data: []byte{0, 9}, GranulePos: 1024}))
	assert.Equal(t, 2, w.Pages(), "small audio packet waits for a full page")
	assert.Equal(t, 2, w.Pending())

	require.NoError(t, w.WritePacket(ogg.Packet{Data: []byte{0}, GranulePos: 1500, EOS: true}))
	assert.True(t, w.EOS())
	assert.Equal(t, 3, w.Pages())
	assert.Equal(t, int64(len(sink.joined())), w.Bytes())

	d := ogg.NewDemuxer(bytes.NewReader(sink.joined()))
	var eosPages int
	for {
		page, _, err := d.ReadPage()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if page.IsEOS() {
			eosPages++
		}
	}
	assert.Equal(t, 1, eosPages)
}

func TestWriter_SinkError(t *testing.T) {
	w := NewWriter(&writeLog{fail: 2}, 1)
	err := w.WriteHeaders(headerPackets())
	var se *SinkError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, uint32(0), se.Page)
	assert.Contains(t, err.Error(), "disk full")
}

func muxLink(t *testing.T, serial uint32, audio ...ogg.Packet) []byte {
	t.Helper()
	sink := &writeLog{}
	w := NewWriter(sink, serial)
	require.NoError(t, w.WriteHeaders(headerPackets()))
	for _, p := range audio {
		require.NoError(t, w.WritePacket(p))
	}
	return sink.joined()
}

func TestReader_Chained(t *testing.T) {
	a := muxLink(t, 1, ogg.Packet{Data: []byte{0, 1}, GranulePos: 1}, ogg.Packet{Data: []byte{0, 2}, GranulePos: 2, EOS: true})
	b := muxLink(t, 2, ogg.Packet{Data: []byte{0, 3}, GranulePos: 1, EOS: true})
	r := NewReader(ogg.NewDemuxer(bytes.NewReader(append(a, b...))), isHeader)

	hdrs, err := r.ReadHeaders(3)
	require.NoError(t, err)
	assert.Len(t, hdrs, 3)
	assert.Equal(t, 0, r.Section())
	assert.Equal(t, uint32(1), r.Serial())

	p, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, p.Data)
	p, err = r.Next()
	require.NoError(t, err)
	assert.True(t, p.EOS)

	_, err = r.Next()
	require.ErrorIs(t, err, ErrNewSection)
	_, err = r.ReadHeaders(3)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Section())
	assert.Equal(t, uint32(2), r.Serial())

	p, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 3}, p.Data)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_HeaderOrder(t *testing.T) {
	var buf bytes.Buffer
	s := ogg.NewStreamState(3)
	require.NoError(t, s.PacketIn(ogg.Packet{Data: []byte{0, 0}}))
	page, ok := s.Flush()
	require.True(t, ok)
	buf.Write(page.Encode())

	r := NewReader(ogg.NewDemuxer(&buf), isHeader)
	_, err := r.ReadHeaders(3)
	assert.ErrorIs(t, err, ErrHeaderOrder)
}
