package ogg

import (
	"bytes"
	"testing"
)

func fill(n int, b byte) []byte {
	return bytes.Repeat([]byte{b}, n)
}

// drain collects every page PageOut produces.
func drain(s *StreamState) []*Page {
	var pages []*Page
	for {
		p, ok := s.PageOut()
		if !ok {
			return pages
		}
		pages = append(pages, p)
	}
}

func TestStreamState_FirstPageAlone(t *testing.T) {
	s := NewStreamState(99)
	for i, n := range []int{30, 40, 50} {
		if err := s.PacketIn(Packet{Data: fill(n, byte(i))}); err != nil {
			t.Fatal(err)
		}
	}

	first, ok := s.PageOut()
	if !ok {
		t.Fatal("no first page")
	}
	if !first.IsBOS() || first.Granule() != 0 || len(first.Packets()) != 1 || len(first.Payload) != 30 {
		t.Errorf("first page: bos=%v granule=%d packets=%d", first.IsBOS(), first.Granule(), len(first.Packets()))
	}
	if first.SerialNumber != 99 || first.PageSequence != 0 {
		t.Errorf("serial=%d seq=%d", first.SerialNumber, first.PageSequence)
	}

	if _, ok := s.PageOut(); ok {
		t.Fatal("PageOut emitted an underfull page")
	}

	rest, ok := s.Flush()
	if !ok {
		t.Fatal("Flush returned nothing")
	}
	if rest.IsBOS() || len(rest.Packets()) != 2 || rest.PageSequence != 1 {
		t.Errorf("flushed page: bos=%v packets=%d seq=%d", rest.IsBOS(), len(rest.Packets()), rest.PageSequence)
	}
	if _, ok := s.Flush(); ok {
		t.Error("Flush on an empty stream returned a page")
	}
}

func TestStreamState_FillCut(t *testing.T) {
	s := NewStreamState(1)
	_ = s.PacketIn(Packet{Data: []byte("head")})
	s.Flush()

	for i := 0; i < 5; i++ {
		if err := s.PacketIn(Packet{Data: fill(1500, byte(i)), GranulePos: int64(1024 * (i + 1))}); err != nil {
			t.Fatal(err)
		}
	}
	pages := drain(s)
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if n := len(pages[0].Packets()); n != 4 {
		t.Errorf("page holds %d packets, want 4", n)
	}
	if pages[0].Granule() != 4096 {
		t.Errorf("granule=%d, want 4096", pages[0].Granule())
	}
	if s.Pending() != 1500 {
		t.Errorf("pending=%d, want 1500", s.Pending())
	}
}

func TestStreamState_SegmentLimit(t *testing.T) {
	s := NewStreamState(1)
	_ = s.PacketIn(Packet{Data: []byte("head")})
	s.Flush()

	// 300 one-byte packets need more lacing values than a page holds.
	for i := 0; i < 300; i++ {
		_ = s.PacketIn(Packet{Data: []byte{byte(i)}, GranulePos: int64(i)})
	}
	pages := drain(s)
	if len(pages) != 1 || len(pages[0].Segments) != 255 {
		t.Fatalf("pages=%d", len(pages))
	}
	if pages[0].Granule() != 254 {
		t.Errorf("granule=%d, want 254", pages[0].Granule())
	}
}

func TestStreamState_SpanningPacket(t *testing.T) {
	s := NewStreamState(1)
	_ = s.PacketIn(Packet{Data: []byte("head")})
	s.Flush()

	_ = s.PacketIn(Packet{Data: fill(70000, 7), GranulePos: 5000, EOS: true})
	pages := drain(s)
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].Granule() != -1 || pages[0].IsEOS() || !pages[0].Continues() {
		t.Errorf("page 0: granule=%d eos=%v", pages[0].Granule(), pages[0].IsEOS())
	}
	if !pages[1].IsContinuation() || !pages[1].IsEOS() || pages[1].Granule() != 5000 {
		t.Errorf("page 1: cont=%v eos=%v granule=%d", pages[1].IsContinuation(), pages[1].IsEOS(), pages[1].Granule())
	}
}

func TestStreamState_EOS(t *testing.T) {
	s := NewStreamState(5)
	_ = s.PacketIn(Packet{Data: []byte("head")})
	s.Flush()

	_ = s.PacketIn(Packet{Data: []byte{1, 2, 3}, GranulePos: 10})
	_ = s.PacketIn(Packet{Data: []byte{}, GranulePos: 10, EOS: true})
	pages := drain(s)
	if len(pages) != 1 || !pages[0].IsEOS() {
		t.Fatalf("want exactly one EOS page, got %d", len(pages))
	}
	if !s.EOS() {
		t.Error("EOS() = false after the EOS page")
	}
	if err := s.PacketIn(Packet{Data: []byte{4}}); err != ErrStreamEnded {
		t.Errorf("PacketIn after EOS: %v", err)
	}
	if s.PageCount() != 2 || s.PacketCount() != 3 {
		t.Errorf("pages=%d packets=%d", s.PageCount(), s.PacketCount())
	}
}
