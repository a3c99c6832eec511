// Package reclaim hands objects retired by the real-time goroutine to a
// background collector, which releases them only once no real-time callback
// that could still hold them is in flight.
package reclaim

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cbegin/modsynth-go/internal/ring"
)

// Epoch tracks real-time callbacks. The real-time goroutine brackets every
// callback with Enter and Exit; other goroutines only read it.
type Epoch struct {
	// current is the number of the callback in flight, or of the last one run.
	current atomic.Uint64
	// completed is the number of the last callback that returned.
	completed atomic.Uint64
}

// Enter marks the start of a callback and returns its number.
func (e *Epoch) Enter() uint64 {
	return e.current.Add(1)
}

// Exit marks the callback started by the matching Enter as finished.
func (e *Epoch) Exit() {
	e.completed.Store(e.current.Load())
}

// Completed returns the number of the most recent finished callback.
func (e *Epoch) Completed() uint64 { return e.completed.Load() }

type item struct {
	value any
	epoch uint64
}

// Retirer is the real-time half. Retire never blocks or allocates.
type Retirer struct {
	epoch   *Epoch
	queue   *ring.Producer[item]
	retired atomic.Uint64
	dropped atomic.Uint64
}

// Retire queues v for deferred release. When the queue is full the reference
// is let go on the spot and counted as dropped.
func (r *Retirer) Retire(v any) {
	if v == nil {
		return
	}
	if err := r.queue.Push(item{value: v, epoch: r.epoch.current.Load()}); err != nil {
		r.dropped.Add(1)
		return
	}
	r.retired.Add(1)
}

func (r *Retirer) Retired() uint64 { return r.retired.Load() }
func (r *Retirer) Dropped() uint64 { return r.dropped.Load() }

// Collector is the background half.
type Collector struct {
	epoch    *Epoch
	queue    *ring.Consumer[item]
	pending  []item
	recycle  func(any)
	interval time.Duration
	logger   *slog.Logger
	released atomic.Uint64
}

type Option func(*Collector)

// WithRecycle installs a hook that receives every released value, e.g. to
// return it to a pool. It runs on the collector goroutine.
func WithRecycle(fn func(any)) Option {
	return func(c *Collector) { c.recycle = fn }
}

func WithInterval(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a connected Retirer/Collector pair sharing epoch. capacity bounds
// the number of retirements that can be pending between two sweeps.
func New(epoch *Epoch, capacity int, opts ...Option) (*Retirer, *Collector) {
	p, c := ring.New[item](capacity)
	col := &Collector{
		epoch:    epoch,
		queue:    c,
		interval: 20 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(col)
	}
	return &Retirer{epoch: epoch, queue: p}, col
}

// Sweep drains the retire queue and releases every item whose retiring
// callback has finished. It returns the number of items released. Sweep must
// only be called from one goroutine.
func (c *Collector) Sweep() int {
	for {
		it, ok := c.queue.Pop()
		if !ok {
			break
		}
		c.pending = append(c.pending, it)
	}
	done := c.epoch.Completed()
	kept := c.pending[:0]
	n := 0
	for _, it := range c.pending {
		if it.epoch > done {
			kept = append(kept, it)
			continue
		}
		if c.recycle != nil {
			c.recycle(it.value)
		}
		n++
	}
	for i := len(kept); i < len(c.pending); i++ {
		c.pending[i] = item{}
	}
	c.pending = kept
	c.released.Add(uint64(n))
	return n
}

// Pending returns the number of items drained but not yet safe to release.
func (c *Collector) Pending() int { return len(c.pending) }

// Released returns the total number of released items.
func (c *Collector) Released() uint64 { return c.released.Load() }

// Run sweeps every interval until ctx is done, then performs a final sweep.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("reclaim: final sweep", "released", n, "pending", len(c.pending))
			}
			return nil
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("reclaim: sweep", "released", n, "pending", len(c.pending))
			}
		}
	}
}
