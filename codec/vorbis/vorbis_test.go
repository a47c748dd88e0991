package vorbis

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/oggstream/codec"
)

// testdata/sine.ogg is one second of mono 44.1 kHz Vorbis.
func open(t *testing.T) codec.Decoder {
	t.Helper()
	data, err := os.ReadFile("testdata/sine.ogg")
	require.NoError(t, err)
	d, err := New().OpenDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	return d
}

func TestDecode(t *testing.T) {
	d := open(t)
	defer d.Close()

	info := d.Info()
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, int64(44100), info.Length)

	buf := make([]float32, 4096)
	total := 0
	for {
		n, sec, err := d.Decode(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Zero(t, sec)
		total += n
	}
	assert.Equal(t, 44100, total)
}

func TestSeek(t *testing.T) {
	d := open(t)
	defer d.Close()

	require.NoError(t, d.SeekLap(22050))
	assert.Equal(t, int64(22050), d.Position())
	assert.ErrorIs(t, d.SeekLap(-5), codec.ErrSeekRange)

	buf := make([]float32, 44100)
	total := 0
	for {
		n, _, err := d.Decode(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, 22050, total)
}

func TestMatchAndEncode(t *testing.T) {
	c := New()
	assert.True(t, c.Match([]byte("\x01vorbis\x00\x00\x00\x00")))
	assert.False(t, c.Match([]byte("\x01zpcm")))
	_, err := c.NewAnalyzer(codec.AnalysisConfig{Channels: 1, SampleRate: 44100})
	assert.ErrorIs(t, err, codec.ErrEncodeUnsupported)

	_, err = c.OpenDecoder(bytes.NewReader([]byte("not vorbis")))
	assert.ErrorIs(t, err, codec.ErrCorrupt)
}
