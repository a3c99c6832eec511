// Package ring implements a bounded single-producer/single-consumer queue that
// is safe to use from a real-time goroutine: neither end blocks, locks or
// allocates.
package ring

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by Push when the queue holds Cap() items. The rejected
// item is the newest one; everything already queued is preserved.
var ErrFull = errors.New("ring: queue full")

const cacheLine = 64

type ring[T any] struct {
	// head is owned by the consumer, tail by the producer. Each sits on its
	// own cache line so the two ends do not false-share.
	head atomic.Uint64
	_    [cacheLine - 8]byte
	tail atomic.Uint64
	_    [cacheLine - 8]byte
	buf  []T
}

// Producer is the write half. Only one goroutine may call Push at a time.
type Producer[T any] struct {
	r *ring[T]
}

// Consumer is the read half. Only one goroutine may call Pop at a time.
type Consumer[T any] struct {
	r *ring[T]
}

// New allocates a queue that holds exactly capacity items.
func New[T any](capacity int) (*Producer[T], *Consumer[T]) {
	if capacity < 1 {
		panic("ring: capacity must be positive")
	}
	r := &ring[T]{buf: make([]T, capacity)}
	return &Producer[T]{r: r}, &Consumer[T]{r: r}
}

func (r *ring[T]) len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Push appends v, or returns ErrFull without modifying the queue.
func (p *Producer[T]) Push(v T) error {
	r := p.r
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.buf)) {
		return ErrFull
	}
	r.buf[tail%uint64(len(r.buf))] = v
	r.tail.Store(tail + 1)
	return nil
}

func (p *Producer[T]) Len() int { return p.r.len() }
func (p *Producer[T]) Cap() int { return len(p.r.buf) }

// Pop removes the oldest item. It returns false immediately when empty. The
// vacated slot is zeroed so the queue keeps no reference to handed-over values.
func (c *Consumer[T]) Pop() (T, bool) {
	r := c.r
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	i := head % uint64(len(r.buf))
	v := r.buf[i]
	r.buf[i] = zero
	r.head.Store(head + 1)
	return v, true
}

func (c *Consumer[T]) Len() int { return c.r.len() }
func (c *Consumer[T]) Cap() int { return len(c.r.buf) }
