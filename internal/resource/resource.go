// Package resource bounds the background work an index performs.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds background-work limits.
type Config struct {
	// MaxBackgroundWorkers is the maximum number of concurrent background
	// sweeps. If 0, defaults to 1.
	MaxBackgroundWorkers int64

	// ConsolidationsPerSec caps the rate of background consolidations.
	// If 0, unlimited.
	ConsolidationsPerSec float64
}

// Controller manages background-work slots and throughput.
type Controller struct {
	cfg Config

	bgSem   *semaphore.Weighted
	limiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}

	c := &Controller{
		cfg:   cfg,
		bgSem: semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}

	if cfg.ConsolidationsPerSec > 0 {
		burst := int(cfg.ConsolidationsPerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.ConsolidationsPerSec), burst)
	}

	return c
}

// AcquireBackground reserves a background worker slot.
// Blocks if all slots are busy or until ctx is canceled.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	return c.bgSem.Acquire(ctx, 1)
}

// TryAcquireBackground reserves a background worker slot without blocking.
func (c *Controller) TryAcquireBackground() bool {
	return c.bgSem.TryAcquire(1)
}

// ReleaseBackground releases a background worker slot.
func (c *Controller) ReleaseBackground() {
	c.bgSem.Release(1)
}

// WaitConsolidation waits until the configured rate allows one more
// consolidation.
func (c *Controller) WaitConsolidation(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
