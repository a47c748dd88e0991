package ogg

import (
	"bytes"
	"testing"
)

func TestOggCRC(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := oggCRC(nil); got != 0 {
			t.Errorf("oggCRC(nil) = 0x%08x, want 0", got)
		}
	})

	t.Run("update consistency", func(t *testing.T) {
		data := []byte("zpcm block payload")
		full := oggCRC(data)
		partial := oggCRCUpdate(oggCRC(data[:7]), data[7:])
		if full != partial {
			t.Errorf("full=0x%08x partial=0x%08x", full, partial)
		}
	})

	t.Run("bit flip", func(t *testing.T) {
		data := []byte("OggS capture pattern and friends")
		orig := oggCRC(data)
		data[10] ^= 0x01
		if oggCRC(data) == orig {
			t.Error("CRC did not change after a bit flip")
		}
	})

	t.Run("non-IEEE polynomial", func(t *testing.T) {
		got := oggCRC([]byte("OggS"))
		if got != 0x5fb0a94f {
			t.Errorf("oggCRC(OggS) = 0x%08x, want 0x5fb0a94f", got)
		}
	})
}

func TestBuildSegmentTable(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0}},
		{1, []byte{1}},
		{254, []byte{254}},
		{255, []byte{255, 0}},
		{256, []byte{255, 1}},
		{510, []byte{255, 255, 0}},
		{600, []byte{255, 255, 90}},
	}
	for _, tc := range tests {
		if got := BuildSegmentTable(tc.n); !bytes.Equal(got, tc.want) {
			t.Errorf("BuildSegmentTable(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestParseSegmentTable(t *testing.T) {
	tests := []struct {
		name     string
		segments []byte
		want     []int
	}{
		{"empty", nil, nil},
		{"two packets", []byte{100, 50}, []int{100, 50}},
		{"spanning", []byte{255, 100}, []int{355}},
		{"exact 255", []byte{255, 0}, []int{255}},
		{"unterminated tail", []byte{10, 255, 255}, []int{10}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSegmentTable(tc.segments)
			if len(got) != len(tc.want) {
				t.Fatalf("len=%d, want %d", len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("[%d] = %d, want %d", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestSegmentTableRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 100, 254, 255, 256, 510, 511, 1000, 4096} {
		parsed := ParseSegmentTable(BuildSegmentTable(n))
		if len(parsed) != 1 || parsed[0] != n {
			t.Errorf("round trip of %d gave %v", n, parsed)
		}
	}
}

func TestParsePage(t *testing.T) {
	orig := &Page{
		HeaderType:   PageFlagBOS,
		GranulePos:   44100,
		SerialNumber: 0xDEADBEEF,
		PageSequence: 42,
		Segments:     []byte{100},
		Payload:      make([]byte, 100),
	}
	for i := range orig.Payload {
		orig.Payload[i] = byte(i)
	}
	enc := orig.Encode()
	if len(enc) != orig.Size() {
		t.Fatalf("Encode len=%d, Size()=%d", len(enc), orig.Size())
	}

	got, n, err := ParsePage(enc)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if n != len(enc) {
		t.Errorf("consumed %d, want %d", n, len(enc))
	}
	if got.HeaderType != orig.HeaderType || got.GranulePos != orig.GranulePos ||
		got.SerialNumber != orig.SerialNumber || got.PageSequence != orig.PageSequence {
		t.Errorf("header mismatch: %+v", got)
	}
	if !bytes.Equal(got.Payload, orig.Payload) {
		t.Error("payload mismatch")
	}
}

func TestParsePage_Errors(t *testing.T) {
	p := &Page{SerialNumber: 1, Segments: []byte{10}, Payload: []byte("0123456789")}

	enc := p.Encode()
	enc[22] ^= 0xFF
	if _, _, err := ParsePage(enc); err != ErrBadCRC {
		t.Errorf("bad CRC: got %v, want ErrBadCRC", err)
	}

	enc = p.Encode()
	enc[len(enc)-1] ^= 0x80
	if _, _, err := ParsePage(enc); err != ErrBadCRC {
		t.Errorf("payload damage: got %v, want ErrBadCRC", err)
	}

	enc = p.Encode()
	enc[4] = 1
	if _, _, err := ParsePage(enc); err != ErrInvalidPage {
		t.Errorf("version 1: got %v, want ErrInvalidPage", err)
	}

	if _, _, err := ParsePage([]byte("OggS")); err != ErrInvalidPage {
		t.Errorf("short header: got %v, want ErrInvalidPage", err)
	}
	if _, _, err := ParsePage(make([]byte, 100)); err != ErrInvalidPage {
		t.Errorf("no magic: got %v, want ErrInvalidPage", err)
	}
	if _, _, err := ParsePage(p.Encode()[:30]); err != ErrInvalidPage {
		t.Errorf("truncated body: got %v, want ErrInvalidPage", err)
	}
}

func TestPageGranule(t *testing.T) {
	p := &Page{GranulePos: NoGranule}
	if p.Granule() != -1 {
		t.Errorf("Granule() = %d, want -1", p.Granule())
	}
	p.GranulePos = 2048
	if p.Granule() != 2048 {
		t.Errorf("Granule() = %d, want 2048", p.Granule())
	}
}

func TestPagePackets(t *testing.T) {
	p := &Page{
		Segments: []byte{50, 255, 255, 90, 75},
		Payload:  make([]byte, 50+600+75),
	}
	for i := range p.Payload {
		p.Payload[i] = byte(i)
	}

	pkts := p.Packets()
	if len(pkts) != 3 {
		t.Fatalf("got %d packets, want 3", len(pkts))
	}
	for i, want := range []int{50, 600, 75} {
		if len(pkts[i]) != want {
			t.Errorf("packet %d len=%d, want %d", i, len(pkts[i]), want)
		}
	}
	if pkts[1][0] != 50 {
		t.Errorf("packet 1 starts with %d, want 50", pkts[1][0])
	}
	if p.Continues() {
		t.Error("Continues() = true for a terminated page")
	}
	p.Segments = append(p.Segments, 255)
	if !p.Continues() {
		t.Error("Continues() = false for a page ending in 255")
	}
}

func TestPageFlags(t *testing.T) {
	p := &Page{HeaderType: PageFlagBOS | PageFlagEOS}
	if !p.IsBOS() || !p.IsEOS() || p.IsContinuation() {
		t.Errorf("flags 0x%02x decoded wrong", p.HeaderType)
	}
	p.HeaderType = PageFlagContinuation
	if p.IsBOS() || p.IsEOS() || !p.IsContinuation() {
		t.Errorf("flags 0x%02x decoded wrong", p.HeaderType)
	}
}

func TestHeaderBytesMatchesEncode(t *testing.T) {
	p := &Page{SerialNumber: 7, PageSequence: 3, GranulePos: 1024, Segments: []byte{3}, Payload: []byte{1, 2, 3}}
	joined := append(p.HeaderBytes(), p.Body()...)
	if !bytes.Equal(joined, p.Encode()) {
		t.Error("HeaderBytes+Body differs from Encode")
	}
}
