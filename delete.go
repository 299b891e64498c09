package bwtree

import (
	"context"
	"time"
)

// DeleteEntry removes every pair equal to (key, value). Pairs that do not
// exist are silently ignored. The structure never shrinks: deletion empties
// slots but leaves splits in place.
func (t *Tree[K, V]) DeleteEntry(ctx context.Context, key K, value V) error {
	return t.deleteDelta(ctx, key, value, true)
}

// DeleteKey removes every pair stored under key, regardless of value.
func (t *Tree[K, V]) DeleteKey(ctx context.Context, key K) error {
	var zero V
	return t.deleteDelta(ctx, key, zero, false)
}

func (t *Tree[K, V]) deleteDelta(ctx context.Context, key K, value V, hasValue bool) error {
	if t.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	ticket := t.reclaimer.Enter()
	defer t.reclaimer.Exit(ticket)

	t.ensureRoot()

	for {
		pid, head := t.findLeaf(key)

		// The slot disappears when the delete empties the key's value
		// list; otherwise the slot count is unchanged.
		size := head.size
		existing := t.valuesAtKey(head, key)
		if len(existing) > 0 {
			if !hasValue {
				size--
			} else {
				remaining := 0
				for _, v := range existing {
					if v != value {
						remaining++
					}
				}
				if remaining == 0 {
					size--
				}
			}
		}

		d := newDelta(kindDelete, head, size)
		d.key = key
		d.value = value
		d.hasValue = hasValue

		if t.mapping.cas(pid, head, d) {
			if d.chainLength > t.opts.DeltaChainThreshold {
				t.consolidate(ctx, pid)
			}
			break
		}
		t.metrics.RecordRetry()
	}

	t.metrics.RecordDelete(time.Since(start), nil)
	t.logger.LogDelete(ctx, !hasValue)
	return nil
}
