package ogg

import "errors"

// Package-level errors for Ogg parsing and muxing.
var (
	// ErrInvalidPage indicates the page structure is malformed.
	// This includes missing "OggS" magic, invalid version, or truncated data.
	ErrInvalidPage = errors.New("ogg: invalid page structure")

	// ErrBadCRC indicates the page CRC checksum does not match the computed value.
	// This typically indicates data corruption.
	ErrBadCRC = errors.New("ogg: CRC mismatch")

	// ErrUnexpectedEOS indicates the stream ended unexpectedly.
	// This occurs when a page is truncated or data ends mid-packet.
	ErrUnexpectedEOS = errors.New("ogg: unexpected end of stream")

	// ErrStreamEnded indicates a packet was queued after the EOS packet.
	ErrStreamEnded = errors.New("ogg: packet queued after end of stream")

	// ErrNotSeekable indicates the underlying reader does not implement io.Seeker.
	ErrNotSeekable = errors.New("ogg: source is not seekable")
)
