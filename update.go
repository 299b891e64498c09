package bwtree

import (
	"context"
	"time"
)

// UpdateEntry rewrites the value list stored under key to the single value.
// It is a no-op when the key is absent.
func (t *Tree[K, V]) UpdateEntry(ctx context.Context, key K, value V) error {
	if t.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	ticket := t.reclaimer.Enter()
	defer t.reclaimer.Exit(ticket)

	t.ensureRoot()

	applied := false
	for {
		pid, head := t.findLeaf(key)

		if len(t.valuesAtKey(head, key)) == 0 {
			break
		}

		// The slot count is unchanged: the key keeps exactly one slot.
		d := newDelta(kindUpdate, head, head.size)
		d.key = key
		d.value = value
		d.hasValue = true

		if t.mapping.cas(pid, head, d) {
			applied = true
			if d.chainLength > t.opts.DeltaChainThreshold {
				t.consolidate(ctx, pid)
			}
			break
		}
		t.metrics.RecordRetry()
	}

	t.metrics.RecordUpdate(time.Since(start), nil)
	t.logger.LogUpdate(ctx, applied)
	return nil
}
