package oggstream

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/thesyncim/oggstream/internal/testsignal"
)

func TestHostEncodeDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.ogg")
	host := NewHost()

	h, err := host.CreateEncoder(path, 2, 44100, 0.4)
	require.NoError(t, err)
	assert.Equal(t, Handle(0), h)
	assert.Equal(t, 1, host.EncodersInUse())

	pcm := testsignal.Sine(440, 44100, 2, 4096)
	for off := 0; off < len(pcm); off += 4096 {
		n, err := host.EncoderWrite(h, pcm, off, 4096)
		require.NoError(t, err)
		assert.Equal(t, 2048, n)
	}
	require.NoError(t, host.EncoderClose(h))
	assert.Zero(t, host.EncodersInUse())

	_, err = host.EncoderWrite(h, pcm, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidHandle, "handle is dead after close")
	assert.ErrorIs(t, host.EncoderClose(h), ErrInvalidHandle)

	dh, info, err := host.OpenDecoderFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, int64(4096), info.Length)

	buf := make([]int16, 8192)
	total := 0
	for {
		n, err := host.DecoderRead(dh, buf, 0, len(buf))
		if err == ErrEndOfStream {
			break
		}
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, len(pcm), total)

	require.NoError(t, host.DecoderSeek(dh, 2048))
	sec, info, err := host.DecoderSection(dh)
	require.NoError(t, err)
	assert.Zero(t, sec)
	assert.Equal(t, 2, info.Channels)
	n, err := host.DecoderRead(dh, buf, 0, len(buf))
	require.NoError(t, err)
	assert.Equal(t, 4096, n)

	require.NoError(t, host.DecoderClose(dh))
	assert.Zero(t, host.DecodersInUse())
	_, err = host.DecoderRead(dh, buf, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestHostEncoderExhaustion(t *testing.T) {
	host := NewHost(WithEncoderSlots(2))
	var sinks [3]bytes.Buffer

	h0, err := host.AcquireEncoder(&sinks[0], 1, 8000, 0.4)
	require.NoError(t, err)
	h1, err := host.AcquireEncoder(&sinks[1], 1, 8000, 0.4)
	require.NoError(t, err)

	h2, err := host.AcquireEncoder(&sinks[2], 1, 8000, 0.4)
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.Equal(t, Handle(-1), h2)
	assert.Zero(t, sinks[2].Len())

	require.NoError(t, host.EncoderClose(h0))
	h2, err = host.AcquireEncoder(&sinks[2], 1, 8000, 0.4)
	require.NoError(t, err)
	assert.Equal(t, h0, h2, "released slot is reused")

	require.NoError(t, host.EncoderClose(h1))
	require.NoError(t, host.EncoderClose(h2))
}

func TestHostFailedOpenReleasesSlot(t *testing.T) {
	host := NewHost(WithEncoderSlots(1), WithDecoderSlots(1))
	path := filepath.Join(t.TempDir(), "bad.ogg")

	_, err := host.CreateEncoder(path, 3, 44100, 0.4)
	assert.ErrorIs(t, err, ErrInitialization)
	assert.Zero(t, host.EncodersInUse())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "partial output is removed")

	_, _, err = host.AcquireDecoder(bytes.NewReader([]byte("not ogg at all, just some bytes")))
	assert.ErrorIs(t, err, ErrCorruptStream)
	assert.Zero(t, host.DecodersInUse())

	_, _, err = host.OpenDecoderFile(filepath.Join(t.TempDir(), "missing.ogg"))
	assert.ErrorIs(t, err, ErrIO)
	assert.Zero(t, host.DecodersInUse())
}

func TestHostInvalidHandles(t *testing.T) {
	host := NewHost()
	for _, h := range []Handle{-1, 0, 3, 4, 100} {
		_, err := host.EncoderWrite(h, nil, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidHandle)
		_, err = host.DecoderRead(h, nil, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidHandle)
		assert.ErrorIs(t, host.DecoderSeek(h, 0), ErrInvalidHandle)
		assert.ErrorIs(t, host.DecoderClose(h), ErrInvalidHandle)
		_, err = host.Encoder(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)
	}
}

func TestHostConcurrentSessions(t *testing.T) {
	host := NewHost(WithLogger(zerolog.Nop()))
	pcm := testsignal.Sine(330, 16000, 1, 5000)

	outputs := make([]bytes.Buffer, DefaultEncoderSlots)
	var g errgroup.Group
	for i := range outputs {
		g.Go(func() error {
			h, err := host.AcquireEncoder(&outputs[i], 1, 16000, 0.5)
			if err != nil {
				return err
			}
			w, err := host.Encoder(h)
			if err != nil {
				return err
			}
			if _, err := w.Write(pcm, 0, len(pcm)); err != nil {
				return err
			}
			return w.Close()
		})
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, host.EncodersInUse())

	var dg errgroup.Group
	for i := range outputs {
		data := outputs[i].Bytes()
		dg.Go(func() error {
			h, _, err := host.AcquireDecoder(bytes.NewReader(data))
			if err != nil {
				return err
			}
			defer host.DecoderClose(h)
			r, err := host.Decoder(h)
			if err != nil {
				return err
			}
			buf := make([]int16, 1024)
			total := 0
			for {
				n, err := r.Read(buf, 0, len(buf))
				if err == ErrEndOfStream {
					break
				}
				if err != nil {
					return err
				}
				total += n
			}
			assert.Equal(t, len(pcm), total)
			return nil
		})
	}
	require.NoError(t, dg.Wait())
}

func TestHostSessionLogFields(t *testing.T) {
	var logs bytes.Buffer
	host := NewHost(WithEncoderSlots(1), WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))

	var sessions []string
	for range 2 {
		logs.Reset()
		h, err := host.AcquireEncoder(&bytes.Buffer{}, 1, 8000, 0)
		require.NoError(t, err)
		require.NoError(t, host.EncoderClose(h))

		var line struct {
			Handle  int    `json:"handle"`
			Session string `json:"session"`
			Message string `json:"message"`
		}
		dec := json.NewDecoder(&logs)
		for line.Message != "headers written" {
			require.NoError(t, dec.Decode(&line))
		}
		assert.Equal(t, 0, line.Handle)
		assert.Len(t, line.Session, 36)
		sessions = append(sessions, line.Session)
	}
	assert.NotEqual(t, sessions[0], sessions[1], "a reused handle gets a new session id")
}

type closeFailer struct{ closed bool }

func (c *closeFailer) Close() error {
	c.closed = true
	return ErrIO
}

func TestBindSessionClosesOnFailure(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)
	p := NewPool[*closeFailer]("test", 1, zerolog.Nop())

	free := &closeFailer{}
	assert.ErrorIs(t, bindSession(p, 0, free, log), ErrInvalidHandle, "slot 0 was never acquired")
	assert.True(t, free.closed)
	assert.Contains(t, logs.String(), `"message":"close unbound session"`)
	assert.Contains(t, logs.String(), `"pool":"test"`)

	logs.Reset()
	h, err := p.Acquire()
	require.NoError(t, err)
	bound := &closeFailer{}
	require.NoError(t, bindSession(p, h, bound, log))
	assert.False(t, bound.closed)
	assert.Empty(t, logs.String())
}
