package oggstream

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handle identifies an open session in a Pool. Valid handles lie in
// [0, capacity).
type Handle int

// poolSlot is one entry of the slot table. A slot is Free when !open; an
// open slot is usable only once bound holds its session.
type poolSlot[T any] struct {
	open  bool
	bound bool
	val   T
}

// Pool is a fixed-capacity table of session slots.
//
// Acquire marks the first free slot open under the pool lock; the session
// itself is built outside the lock and attached with Bind. Release returns
// the slot to the free list. The lock is never held while a session does
// work, so one session's setup or teardown never blocks another's acquire.
type Pool[T any] struct {
	name  string
	mu    sync.Mutex
	slots []poolSlot[T]
	inUse int
	log   zerolog.Logger
}

// NewPool creates a pool with capacity slots. name labels log events.
func NewPool[T any](name string, capacity int, log zerolog.Logger) *Pool[T] {
	return &Pool[T]{
		name:  name,
		slots: make([]poolSlot[T], max(capacity, 0)),
		log:   log.With().Str("pool", name).Logger(),
	}
}

// Acquire reserves the first free slot. Returns ErrResourceExhausted when
// every slot is open.
func (p *Pool[T]) Acquire() (Handle, error) {
	p.mu.Lock()
	for i := range p.slots {
		if !p.slots[i].open {
			p.slots[i] = poolSlot[T]{open: true}
			p.inUse++
			p.mu.Unlock()
			p.log.Debug().Int("handle", i).Msg("slot acquired")
			return Handle(i), nil
		}
	}
	p.mu.Unlock()
	p.log.Warn().Int("capacity", len(p.slots)).Msg("pool exhausted")
	return -1, ErrResourceExhausted
}

// Bind attaches v to an acquired slot.
func (p *Pool[T]) Bind(h Handle, v T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inRange(h) || !p.slots[h].open {
		return ErrInvalidHandle
	}
	p.slots[h].val, p.slots[h].bound = v, true
	return nil
}

// Validate returns the session bound to h. Returns ErrInvalidHandle if h is
// out of range, free, or not yet bound.
func (p *Pool[T]) Validate(h Handle) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inRange(h) || !p.slots[h].open || !p.slots[h].bound {
		var zero T
		return zero, ErrInvalidHandle
	}
	return p.slots[h].val, nil
}

// Release frees h and returns the session that was bound to it. Releasing
// a free or out-of-range handle is a no-op.
func (p *Pool[T]) Release(h Handle) (T, bool) {
	p.mu.Lock()
	var zero T
	if !p.inRange(h) || !p.slots[h].open {
		p.mu.Unlock()
		return zero, false
	}
	v, bound := p.slots[h].val, p.slots[h].bound
	p.slots[h] = poolSlot[T]{}
	p.inUse--
	p.mu.Unlock()

	p.log.Debug().Int("handle", int(h)).Msg("slot released")
	return v, bound
}

// Cap returns the number of slots.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// InUse returns the number of open slots.
func (p *Pool[T]) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

func (p *Pool[T]) inRange(h Handle) bool {
	return h >= 0 && int(h) < len(p.slots)
}
