package bwtree

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bwtree/internal/resource"
)

// sweeper periodically walks the mapping table and consolidates chains that
// have grown past the configured threshold. Work is bounded by the resource
// controller: one worker slot per sweep and an optional consolidation rate.
type sweeper[K any, V comparable] struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

func startSweeper[K any, V comparable](t *Tree[K, V], opts MaintenanceOptions) *sweeper[K, V] {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ctrl := resource.NewController(resource.Config{
		MaxBackgroundWorkers: opts.MaxWorkers,
		ConsolidationsPerSec: opts.ConsolidationsPerSec,
	})

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := ctrl.AcquireBackground(ctx); err != nil {
					return nil
				}
				n := t.sweep(ctx, ctrl)
				ctrl.ReleaseBackground()
				t.logger.LogSweep(ctx, n, nil)
			}
		}
	})

	return &sweeper[K, V]{cancel: cancel, group: group}
}

func (s *sweeper[K, V]) stop() {
	s.cancel()
	_ = s.group.Wait()
}

// sweep consolidates every chain longer than the delta-chain threshold.
func (t *Tree[K, V]) sweep(ctx context.Context, ctrl *resource.Controller) int {
	ticket := t.reclaimer.Enter()
	defer t.reclaimer.Exit(ticket)

	count := 0
	t.mapping.forEach(func(pid PID, head *node[K, V]) bool {
		if ctx.Err() != nil {
			return false
		}
		if head.chainLength > t.opts.DeltaChainThreshold {
			if ctrl.WaitConsolidation(ctx) != nil {
				return false
			}
			if t.consolidate(ctx, pid) {
				count++
			}
		}
		return true
	})
	return count
}
