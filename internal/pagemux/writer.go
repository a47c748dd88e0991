// Package pagemux sequences codec packets through the Ogg stream state.
//
// On the encode side it enforces that header packets are flushed onto
// their own pages before any audio, and that audio pages are pulled
// opportunistically. On the decode side it checks that headers precede
// audio and tracks chained links.
package pagemux

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/thesyncim/oggstream/container/ogg"
)

// Errors returned by Writer.
var (
	ErrHeadersWritten = errors.New("pagemux: headers already written")
	ErrNoHeaders      = errors.New("pagemux: audio packet before headers")
)

// SinkError reports a failed write of a page to the sink.
type SinkError struct {
	Page uint32
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("pagemux: write page %d: %v", e.Page, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Writer feeds packets into an ogg.StreamState and writes every page it
// releases to a sink, header bytes first and body bytes second.
type Writer struct {
	sink    io.Writer
	state   *ogg.StreamState
	headers bool
	eos     bool
	pages   int
	bytes   int64
}

// NewWriter creates a Writer for one logical stream.
func NewWriter(sink io.Writer, serial uint32) *Writer {
	return &Writer{sink: sink, state: ogg.NewStreamState(serial)}
}

// WriteHeaders queues the header packets and forces them out, so the first
// audio packet starts on a fresh page.
func (w *Writer) WriteHeaders(packets []ogg.Packet) error {
	if w.headers {
		return ErrHeadersWritten
	}
	w.headers = true
	for _, p := range packets {
		if err := w.state.PacketIn(p); err != nil {
			return err
		}
	}
	return w.drain(w.state.Flush)
}

// WritePacket queues one audio packet and writes every page that is ready.
func (w *Writer) WritePacket(p ogg.Packet) error {
	if !w.headers {
		return ErrNoHeaders
	}
	if err := w.state.PacketIn(p); err != nil {
		return err
	}
	return w.Drain()
}

// Drain writes every page the stream state has ready without forcing a flush.
func (w *Writer) Drain() error {
	return w.drain(w.state.PageOut)
}

func (w *Writer) drain(next func() (*ogg.Page, bool)) error {
	for !w.eos {
		page, ok := next()
		if !ok {
			return nil
		}
		if err := w.writePage(page); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writePage(page *ogg.Page) error {
	n, err := w.sink.Write(page.HeaderBytes())
	w.bytes += int64(n)
	if err != nil {
		return &SinkError{Page: page.PageSequence, Err: err}
	}
	n, err = w.sink.Write(page.Body())
	w.bytes += int64(n)
	if err != nil {
		return &SinkError{Page: page.PageSequence, Err: err}
	}
	w.pages++
	if page.IsEOS() {
		w.eos = true
	}
	return nil
}

// EOS reports whether the end-of-stream page has been written.
func (w *Writer) EOS() bool { return w.eos }

// Pages returns the number of pages written.
func (w *Writer) Pages() int { return w.pages }

// Bytes returns the number of bytes written to the sink.
func (w *Writer) Bytes() int64 { return w.bytes }

// Pending returns the number of packet bytes queued but not yet paged.
func (w *Writer) Pending() int { return w.state.Pending() }

// Serial returns the stream serial number.
func (w *Writer) Serial() uint32 { return w.state.Serial() }
