package ogg

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// mux pages the packets into a single logical stream.
func mux(t *testing.T, serial uint32, packets []Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	s := NewStreamState(serial)
	for i, p := range packets {
		if err := s.PacketIn(p); err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			for {
				page, ok := s.Flush()
				if !ok {
					break
				}
				buf.Write(page.Encode())
			}
			continue
		}
		for {
			page, ok := s.PageOut()
			if !ok {
				break
			}
			buf.Write(page.Encode())
		}
	}
	for {
		page, ok := s.Flush()
		if !ok {
			break
		}
		buf.Write(page.Encode())
	}
	return buf.Bytes()
}

func samplePackets() []Packet {
	return []Packet{
		{Data: []byte("ident")},
		{Data: fill(3000, 1), GranulePos: 1024},
		{Data: fill(70000, 2), GranulePos: 2048},
		{Data: fill(10, 3), GranulePos: 3072},
		{Data: fill(200, 4), GranulePos: 3500, EOS: true},
	}
}

func TestDemuxer_Packets(t *testing.T) {
	in := samplePackets()
	d := NewDemuxer(bytes.NewReader(mux(t, 77, in)))

	for i, want := range in {
		got, err := d.NextPacket()
		if err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
		if !bytes.Equal(got.Data, want.Data) {
			t.Errorf("packet %d: len=%d, want %d", i, len(got.Data), len(want.Data))
		}
		if got.Serial != 77 {
			t.Errorf("packet %d: serial=%d", i, got.Serial)
		}
		if got.BOS != (i == 0) {
			t.Errorf("packet %d: BOS=%v", i, got.BOS)
		}
		if got.EOS != want.EOS {
			t.Errorf("packet %d: EOS=%v", i, got.EOS)
		}
	}
	if _, err := d.NextPacket(); err != io.EOF {
		t.Errorf("after last packet: %v, want io.EOF", err)
	}
}

func TestDemuxer_Truncated(t *testing.T) {
	data := mux(t, 1, samplePackets())

	d := NewDemuxer(bytes.NewReader(data[:len(data)-5]))
	var err error
	for err == nil {
		_, err = d.NextPacket()
	}
	if !errors.Is(err, ErrUnexpectedEOS) {
		t.Errorf("got %v, want ErrUnexpectedEOS", err)
	}
}

func TestDemuxer_Chained(t *testing.T) {
	a := mux(t, 1, []Packet{{Data: []byte("a-ident")}, {Data: []byte("a1"), GranulePos: 10, EOS: true}})
	b := mux(t, 2, []Packet{{Data: []byte("b-ident")}, {Data: []byte("b1"), GranulePos: 20, EOS: true}})
	d := NewDemuxer(io.MultiReader(bytes.NewReader(a), bytes.NewReader(b)))

	var got []Packet
	for {
		p, err := d.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, p)
	}
	if len(got) != 4 {
		t.Fatalf("got %d packets, want 4", len(got))
	}
	if !got[2].BOS || got[2].Serial != 2 || string(got[2].Data) != "b-ident" {
		t.Errorf("second link start: %+v", got[2])
	}
	if !got[1].EOS || got[1].GranulePos != 10 {
		t.Errorf("first link end: %+v", got[1])
	}
}

func TestDemuxer_SeekNotSeekable(t *testing.T) {
	d := NewDemuxer(io.MultiReader(bytes.NewReader(nil)))
	if err := d.SeekPage(0); err != ErrNotSeekable {
		t.Errorf("got %v, want ErrNotSeekable", err)
	}
}

func TestScanAndResume(t *testing.T) {
	data := mux(t, 9, samplePackets())
	r := bytes.NewReader(data)
	if _, err := r.Seek(13, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	pages, err := Scan(r)
	if err != nil {
		t.Fatal(err)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 13 {
		t.Errorf("Scan left reader at %d", pos)
	}
	if len(pages) < 3 {
		t.Fatalf("only %d pages", len(pages))
	}
	if !pages[0].BOS || string(pages[0].FirstPacket) != "ident" {
		t.Errorf("first page: %+v", pages[0])
	}
	if !pages[len(pages)-1].EOS {
		t.Error("last page is not EOS")
	}
	if LastGranule(pages) != 3500 {
		t.Errorf("LastGranule=%d", LastGranule(pages))
	}
	if links := Links(pages); len(links) != 1 {
		t.Errorf("links=%d", len(links))
	}

	var total int64
	for _, p := range pages {
		total += int64(p.Size)
	}
	if total != int64(len(data)) {
		t.Errorf("page sizes sum to %d, want %d", total, len(data))
	}

	// The 70000-byte packet begins on the page where the 1024 packet ends.
	var start int64 = -1
	for _, p := range pages {
		if p.Granule == 1024 {
			start = p.Offset
		}
	}
	if start < 0 {
		t.Fatal("no page with granule 1024")
	}
	d := NewDemuxer(r)
	if err := d.ResumeAfter(start); err != nil {
		t.Fatal(err)
	}
	p, err := d.NextPacket()
	if err != nil {
		t.Fatal(err)
	}
	if p.GranulePos != 2048 || len(p.Data) != 70000 {
		t.Errorf("resumed packet: granule=%d len=%d", p.GranulePos, len(p.Data))
	}
}
