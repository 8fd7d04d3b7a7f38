// Package resource bounds the footprint of background shipping work.
//
// A Controller hands out three kinds of budget: worker slots (how many
// uploads run at once), buffer bytes (how much payload data the in-flight
// uploads may hold), and IO bytes per second (how fast that data may leave
// the process). All three are optional; a zero limit disables the budget.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrent caps how many uploads run at once. Zero means one.
	MaxConcurrent int64

	// BufferLimitBytes caps the payload bytes held by in-flight uploads.
	// Zero tracks usage without enforcing a limit.
	BufferLimitBytes int64

	// IOLimitBytesPerSec caps upload throughput. Zero means unlimited.
	IOLimitBytesPerSec int64
}

// budget tracks reserved units against an optional hard cap.
type budget struct {
	sem  *semaphore.Weighted // nil when uncapped
	used atomic.Int64
}

func (b *budget) acquire(ctx context.Context, n int64) error {
	if b.sem != nil {
		if err := b.sem.Acquire(ctx, n); err != nil {
			return err
		}
	}
	b.used.Add(n)
	return nil
}

func (b *budget) tryAcquire(n int64) bool {
	if b.sem != nil && !b.sem.TryAcquire(n) {
		return false
	}
	b.used.Add(n)
	return true
}

func (b *budget) release(n int64) {
	if b.sem != nil {
		b.sem.Release(n)
	}
	b.used.Add(-n)
}

// Controller manages the shipping budgets. A nil Controller enforces
// nothing, so callers never need to guard their acquire/release pairs.
type Controller struct {
	slots   *semaphore.Weighted
	buffer  budget
	limiter *rate.Limiter
}

// NewController creates a controller from cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{
		slots: semaphore.NewWeighted(max(cfg.MaxConcurrent, 1)),
	}
	if cfg.BufferLimitBytes > 0 {
		c.buffer.sem = semaphore.NewWeighted(cfg.BufferLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireSlot reserves an upload slot, blocking until one frees up or ctx is
// canceled.
func (c *Controller) AcquireSlot(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.slots.Acquire(ctx, 1)
}

// TryAcquireSlot reserves an upload slot if one is free right now.
func (c *Controller) TryAcquireSlot() bool {
	if c == nil {
		return true
	}
	return c.slots.TryAcquire(1)
}

// ReleaseSlot returns an upload slot.
func (c *Controller) ReleaseSlot() {
	if c != nil {
		c.slots.Release(1)
	}
}

// AcquireBuffer reserves payload bytes, blocking while the configured limit
// is exhausted.
func (c *Controller) AcquireBuffer(ctx context.Context, n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	return c.buffer.acquire(ctx, n)
}

// TryAcquireBuffer reserves payload bytes if they fit the limit right now.
func (c *Controller) TryAcquireBuffer(n int64) bool {
	if c == nil || n <= 0 {
		return true
	}
	return c.buffer.tryAcquire(n)
}

// ReleaseBuffer returns reserved payload bytes.
func (c *Controller) ReleaseBuffer(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.buffer.release(n)
}

// BufferUsage reports the payload bytes currently reserved.
func (c *Controller) BufferUsage() int64 {
	if c == nil {
		return 0
	}
	return c.buffer.used.Load()
}

// AcquireIO waits until the IO limit admits n more bytes. Requests above the
// limiter burst are admitted in burst sized slices, so any payload size
// passes at the configured rate.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.limiter == nil {
		return nil
	}
	for burst := c.limiter.Burst(); n > 0; {
		step := min(n, burst)
		if err := c.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
