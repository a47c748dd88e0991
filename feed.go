// feed.go implements the recorder and player loops that pump PCM between
// callbacks and sessions.

package oggstream

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// PCMSource supplies interleaved int16 PCM. Fill writes up to len(buf)
// samples and returns how many it wrote. Returning 0 or io.EOF ends the
// recording.
type PCMSource interface {
	Fill(buf []int16) (int, error)
}

// PCMSourceFunc adapts a function to PCMSource.
type PCMSourceFunc func(buf []int16) (int, error)

// Fill calls f(buf).
func (f PCMSourceFunc) Fill(buf []int16) (int, error) { return f(buf) }

// PCMSink receives decoded interleaved int16 PCM. buf is only valid for the
// duration of the call.
type PCMSink interface {
	Play(buf []int16, info StreamInfo) error
}

// PCMSinkFunc adapts a function to PCMSink.
type PCMSinkFunc func(buf []int16, info StreamInfo) error

// Play calls f(buf, info).
func (f PCMSinkFunc) Play(buf []int16, info StreamInfo) error { return f(buf, info) }

// Record pulls PCM from src one chunk at a time and writes it to w until
// src runs dry or ctx is cancelled, then closes w. w is closed on every
// path, so the stream always ends with its end-of-stream page.
//
// Returns the number of frames recorded. A cancelled context is reported
// as ctx.Err() after w is closed.
func Record(ctx context.Context, src PCMSource, w FrameWriter) (int64, error) {
	buf := make([]int16, DefaultChunkFrames*w.Channels())
	var total int64

	loopErr := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := src.Fill(buf)
			if n > 0 {
				frames, werr := w.Write(buf, 0, n)
				total += int64(frames)
				if werr != nil {
					return werr
				}
			}
			if errors.Is(err, io.EOF) || (err == nil && n == 0) {
				return nil
			}
			if err != nil {
				return withKind(ErrIO, errors.Wrap(err, "oggstream: pcm source"))
			}
		}
	}()

	closeErr := w.Close()
	if loopErr != nil {
		return total, loopErr
	}
	return total, closeErr
}

// Play decodes s into dst until the end of the stream or until ctx is
// cancelled. onSection, when non-nil, is called whenever the section
// changes, before the first samples of the new section are played. Play
// does not close s.
//
// Returns the number of samples played.
func Play(ctx context.Context, s *DecodeSession, dst PCMSink, onSection func(section int, info StreamInfo)) (int64, error) {
	buf := make([]int16, DefaultChunkFrames*2)
	section := s.Section()
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.Read(buf, 0, len(buf))
		if errors.Is(err, ErrEndOfStream) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if sec := s.Section(); sec != section {
			section = sec
			if onSection != nil {
				onSection(sec, s.Info())
			}
		}
		if n == 0 {
			continue
		}
		if err := dst.Play(buf[:n], s.Info()); err != nil {
			return total, err
		}
		total += int64(n)
	}
}
