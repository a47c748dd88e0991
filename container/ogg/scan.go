package ogg

import (
	"errors"
	"io"
)

// PageInfo describes one page found by Scan.
type PageInfo struct {
	Offset  int64
	Size    int
	Serial  uint32
	Granule int64
	BOS     bool
	EOS     bool

	// FirstPacket is the first packet of a BOS page, used to identify the
	// codec of each chained link. Nil for other pages.
	FirstPacket []byte
}

// Scan walks every page of r and returns an index of them. The read
// position of r is restored before returning.
//
// Scan stops quietly at a truncated final page; any other damage is
// returned as an error together with the pages indexed so far.
func Scan(r io.ReadSeeker) ([]PageInfo, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer r.Seek(start, io.SeekStart) //nolint:errcheck

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	d := NewDemuxer(r)
	var pages []PageInfo
	for {
		page, off, err := d.ReadPage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrUnexpectedEOS) {
				return pages, nil
			}
			return pages, err
		}
		info := PageInfo{
			Offset:  off,
			Size:    page.Size(),
			Serial:  page.SerialNumber,
			Granule: page.Granule(),
			BOS:     page.IsBOS(),
			EOS:     page.IsEOS(),
		}
		if info.BOS {
			if pkts := page.Packets(); len(pkts) > 0 {
				info.FirstPacket = pkts[0]
			}
		}
		pages = append(pages, info)
	}
}

// Links groups a page index into chained links, one per BOS page.
func Links(pages []PageInfo) [][]PageInfo {
	var links [][]PageInfo
	for i := 0; i < len(pages); {
		j := i + 1
		for j < len(pages) && !pages[j].BOS {
			j++
		}
		links = append(links, pages[i:j])
		i = j
	}
	return links
}

// LastGranule returns the largest non-negative granule in a link, or 0.
func LastGranule(link []PageInfo) int64 {
	for i := len(link) - 1; i >= 0; i-- {
		if link[i].Granule >= 0 {
			return link[i].Granule
		}
	}
	return 0
}
