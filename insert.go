package bwtree

import (
	"context"
	"time"
)

// InsertEntry adds the pair (key, value) to the index. Duplicate keys and
// duplicate pairs are allowed unless UniqueKeys is set, in which case
// inserting an existing key fails with ErrDuplicateKey.
//
// The insert builds one delta on the owning leaf and commits it with a
// single compare-and-swap; a lost race discards the delta and restarts from
// the root.
func (t *Tree[K, V]) InsertEntry(ctx context.Context, key K, value V) error {
	if t.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	ticket := t.reclaimer.Enter()
	defer t.reclaimer.Exit(ticket)

	t.ensureRoot()

	var err error
	for {
		pid, head := t.findLeaf(key)

		existing := t.valuesAtKey(head, key)
		if t.opts.UniqueKeys && len(existing) > 0 {
			err = &DuplicateKeyError{Key: key}
			break
		}

		size := head.size
		if len(existing) == 0 {
			size++ // new slot; otherwise the value list grows in place
		}
		d := newDelta(kindInsert, head, size)
		d.key = key
		d.value = value
		d.hasValue = true

		if t.mapping.cas(pid, head, d) {
			if d.size > t.opts.LeafSplitThreshold {
				t.splitLeaf(ctx, pid)
			} else if d.chainLength > t.opts.DeltaChainThreshold {
				t.consolidate(ctx, pid)
			}
			break
		}
		t.metrics.RecordRetry()
	}

	t.metrics.RecordInsert(time.Since(start), err)
	t.logger.LogInsert(ctx, err)
	return err
}
