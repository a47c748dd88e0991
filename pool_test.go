package oggstream

import (
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPoolLifecycle(t *testing.T) {
	p := NewPool[string]("test", 2, zerolog.Nop())
	assert.Equal(t, 2, p.Cap())

	h0, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, Handle(0), h0)

	_, err = p.Validate(h0)
	assert.ErrorIs(t, err, ErrInvalidHandle, "unbound slot is not usable")

	require.NoError(t, p.Bind(h0, "a"))
	v, err := p.Validate(h0)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	h1, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, Handle(1), h1)

	h2, err := p.Acquire()
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.Equal(t, Handle(-1), h2)
	assert.Equal(t, 2, p.InUse())

	v, bound := p.Release(h0)
	assert.True(t, bound)
	assert.Equal(t, "a", v)
	_, bound = p.Release(h0)
	assert.False(t, bound, "second release is a no-op")
	assert.Equal(t, 1, p.InUse())

	h, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, h0, h, "freed slot is reused")
}

func TestPoolInvalidHandles(t *testing.T) {
	p := NewPool[int]("test", 1, zerolog.Nop())
	for _, h := range []Handle{-1, 0, 1, 99} {
		_, err := p.Validate(h)
		assert.ErrorIs(t, err, ErrInvalidHandle, "handle %d", h)
	}
	assert.ErrorIs(t, p.Bind(0, 1), ErrInvalidHandle)
	_, ok := p.Release(5)
	assert.False(t, ok)
}

func TestPoolConcurrentAcquire(t *testing.T) {
	const capacity = 4
	p := NewPool[int]("test", capacity, zerolog.Nop())

	var ok, exhausted atomic.Int32
	handles := make([]Handle, capacity+1)
	var g errgroup.Group
	for i := range handles {
		g.Go(func() error {
			h, err := p.Acquire()
			handles[i] = h
			switch {
			case err == nil:
				ok.Add(1)
				return p.Bind(h, i)
			case err == ErrResourceExhausted:
				exhausted.Add(1)
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(capacity), ok.Load())
	assert.Equal(t, int32(1), exhausted.Load())

	seen := map[Handle]bool{}
	for _, h := range handles {
		if h < 0 {
			continue
		}
		assert.False(t, seen[h], "handle %d handed out twice", h)
		seen[h] = true
	}
}
