package bwtree

import "context"

// consolidate collapses pid's delta chain into a single base node carrying
// the same fences, links and level. It is optimistic and idempotent: a lost
// CAS aborts and leaves the retry to whichever thread next crosses the
// threshold. The superseded chain goes to the reclaimer.
func (t *Tree[K, V]) consolidate(ctx context.Context, pid PID) bool {
	head := t.mapping.get(pid)
	if head == nil || head.chainLength == 0 {
		return false
	}
	base := head.chainBase()

	var fresh *node[K, V]
	if head.level == 0 {
		fresh = newLeaf(t.leafSlots(head), t.chainHigh(head))
		fresh.prev.Store(base.prev.Load())
	} else {
		keys, children := t.innerTable(head)
		fresh = newInner[K, V](head.level, keys, children, t.chainHigh(head))
	}
	fresh.next.Store(uint64(t.chainSibling(head)))
	fresh.parent.Store(base.parent.Load())

	if !t.mapping.cas(pid, head, fresh) {
		return false
	}
	t.consolidations.Add(1)
	t.metrics.RecordConsolidation(head.chainLength)
	t.logger.LogConsolidate(ctx, pid, head.chainLength)
	t.retireChain(head)
	return true
}

// Consolidate sweeps the mapping table once, collapsing every delta chain
// it finds. It returns the number of chains consolidated. The sweep is
// transparent to concurrent readers and writers.
func (t *Tree[K, V]) Consolidate(ctx context.Context) int {
	if t.closed.Load() {
		return 0
	}
	ticket := t.reclaimer.Enter()
	defer t.reclaimer.Exit(ticket)

	count := 0
	t.mapping.forEach(func(pid PID, head *node[K, V]) bool {
		if ctx.Err() != nil {
			return false
		}
		if head.chainLength > 0 && t.consolidate(ctx, pid) {
			count++
		}
		return true
	})
	return count
}
