package bwtree

// Splitting is decomposed into two independently CAS-publishable steps:
// a split delta on the overflowing node, then a separator delta on its
// parent. A concurrent thread observing only the first step still routes
// correctly because the child's own split delta is authoritative (see
// routeInner and leafHop); the parent fix-up merely shortcuts navigation.

import "context"

// splitLeaf halves the leaf at pid once its logical size crosses the
// configured threshold. The new sibling's base is published in the mapping
// table before the split delta that makes it reachable.
func (t *Tree[K, V]) splitLeaf(ctx context.Context, pid PID) {
	var (
		splitKey   K
		siblingPID PID
		parentPID  PID
	)

	for {
		head := t.mapping.get(pid)
		if head == nil || head.size <= t.opts.LeafSplitThreshold {
			return
		}

		slots := t.leafSlots(head)
		if len(slots) < 2 {
			return
		}

		parentPID = t.resolveParent(ctx, pid, head, slots[0].key)

		base := head.chainBase()
		formerNext := t.chainSibling(head)

		mid := len(slots) / 2
		splitKey = slots[mid].key

		upper := make([]slot[K, V], len(slots)-mid)
		copy(upper, slots[mid:])
		sibling := newLeaf(upper, t.chainHigh(head))
		sibling.parent.Store(uint64(parentPID))
		sibling.next.Store(uint64(formerNext))
		sibling.prev.Store(uint64(pid))
		siblingPID = t.mapping.publish(sibling)

		d := newDelta(kindSplit, head, mid)
		d.key = splitKey
		d.child = siblingPID

		if t.mapping.cas(pid, head, d) {
			// Sideways pointers are fixed by the winning thread only,
			// and only toward nodes it just made reachable.
			base.next.Store(uint64(siblingPID))
			if formerNext != NullPID {
				if fn := t.mapping.get(formerNext); fn != nil {
					fn.chainBase().prev.Store(uint64(siblingPID))
				}
			} else {
				t.tailLeaf.Store(uint64(siblingPID))
			}
			t.splits.Add(1)
			t.metrics.RecordSplit(0)
			t.logger.LogSplit(ctx, pid, siblingPID, 0)
			break
		}
		t.metrics.RecordRetry()
		t.releasePID(siblingPID)
	}

	t.installSeparator(ctx, parentPID, splitKey, siblingPID)
}

// splitInner halves the inner node at pid. Children handed to the sibling
// get their advisory parent pointers reset after the split commits.
func (t *Tree[K, V]) splitInner(ctx context.Context, pid PID) {
	var (
		splitKey   K
		siblingPID PID
		parentPID  PID
	)

	for {
		head := t.mapping.get(pid)
		if head == nil || head.size <= t.opts.InnerSplitThreshold {
			return
		}

		keys, children := t.innerTable(head)
		if len(keys) < 2 {
			return
		}

		parentPID = t.resolveParent(ctx, pid, head, keys[0])

		base := head.chainBase()

		// The median separator moves up: the left half keeps keys below
		// it, the sibling takes the keys above it, and the child to its
		// right becomes the sibling's leftmost child.
		mid := len(keys) / 2
		splitKey = keys[mid]

		sibKeys := make([]K, len(keys)-mid-1)
		copy(sibKeys, keys[mid+1:])
		sibChildren := make([]PID, len(children)-mid-1)
		copy(sibChildren, children[mid+1:])

		sibling := newInner[K, V](head.level, sibKeys, sibChildren, t.chainHigh(head))
		sibling.parent.Store(uint64(parentPID))
		sibling.next.Store(uint64(t.chainSibling(head)))
		siblingPID = t.mapping.publish(sibling)

		d := newDelta(kindSplit, head, mid)
		d.key = splitKey
		d.child = siblingPID

		if t.mapping.cas(pid, head, d) {
			base.next.Store(uint64(siblingPID))
			for _, c := range sibChildren {
				if cn := t.mapping.get(c); cn != nil {
					cn.chainBase().parent.Store(uint64(siblingPID))
				}
			}
			t.splits.Add(1)
			t.metrics.RecordSplit(head.level)
			t.logger.LogSplit(ctx, pid, siblingPID, head.level)
			break
		}
		t.metrics.RecordRetry()
		t.releasePID(siblingPID)
	}

	t.installSeparator(ctx, parentPID, splitKey, siblingPID)
}

// installSeparator publishes a separator delta routing [splitKey, upper) to
// sibling on the node that currently owns splitKey's range, then cascades
// the split upward when the parent itself overflows. The cascade terminates
// because each level above is split at most once per pass.
func (t *Tree[K, V]) installSeparator(ctx context.Context, parentPID PID, splitKey K, sibling PID) {
	for {
		parentPID = t.hopToOwner(parentPID, splitKey)
		parent := t.mapping.get(parentPID)
		if parent == nil {
			return
		}

		right, hasRight := t.upperKey(parent, splitKey)

		d := newDelta(kindSeparator, parent, parent.size+1)
		d.key = splitKey
		d.rightKey = right
		d.hasRightKey = hasRight
		d.child = sibling

		if t.mapping.cas(parentPID, parent, d) {
			if d.size > t.opts.InnerSplitThreshold {
				t.splitInner(ctx, parentPID)
			} else if d.chainLength > t.opts.DeltaChainThreshold {
				t.consolidate(ctx, parentPID)
			}
			return
		}
		t.metrics.RecordRetry()
	}
}

// hopToOwner follows split deltas and base fences rightward until it finds
// the node owning key's range. It works at any level.
func (t *Tree[K, V]) hopToOwner(pid PID, key K) PID {
	for {
		n := t.mapping.get(pid)
		if n == nil {
			return pid
		}

		hopped := false
		for cur := n; cur.kind.isDelta(); cur = cur.base {
			if cur.kind == kindSplit && t.compare(key, cur.key) >= 0 {
				pid = cur.child
				hopped = true
				break
			}
		}
		if hopped {
			continue
		}

		base := n.chainBase()
		if base.high != nil && t.compare(key, *base.high) >= 0 {
			if next := base.nextPID(); next != NullPID {
				pid = next
				continue
			}
		}
		return pid
	}
}

// resolveParent returns the PID of the node's parent, growing the tree when
// the node is the root. Advisory parent pointers may lag behind SMOs or be
// lost to a racing consolidation; in that case the parent is recovered by a
// fresh descent and the pointer repaired.
func (t *Tree[K, V]) resolveParent(ctx context.Context, pid PID, head *node[K, V], anchor K) PID {
	for {
		if PID(t.root.Load()) == pid {
			t.growRoot(ctx, pid, head)
		}
		base := head.chainBase()
		if p := base.parentPID(); p != NullPID {
			return p
		}
		if p := t.findParent(head.level, anchor); p != NullPID {
			base.parent.Store(uint64(p))
			return p
		}
		// The root CAS winner has not linked us yet; try again.
	}
}

// growRoot installs a fresh inner node above the current root. The loser of
// the root race releases its orphaned node and identifier.
func (t *Tree[K, V]) growRoot(ctx context.Context, pid PID, head *node[K, V]) {
	inner := newInner[K, V](head.level+1, nil, []PID{pid}, nil)
	newRoot := t.mapping.publish(inner)
	if t.root.CompareAndSwap(uint64(pid), uint64(newRoot)) {
		head.chainBase().parent.Store(uint64(newRoot))
		t.logger.LogRootGrowth(ctx, newRoot, head.level+2)
		return
	}
	t.releasePID(newRoot)
}

// findParent descends from the root to the inner node one level above
// childLevel whose range covers anchor. Returns NullPID when the tree is
// not yet tall enough.
func (t *Tree[K, V]) findParent(childLevel int, anchor K) PID {
	pid := PID(t.root.Load())
	for {
		n := t.mapping.get(pid)
		if n == nil || n.level <= childLevel {
			return NullPID
		}
		if n.level == childLevel+1 {
			return pid
		}
		pid = t.routeInner(n, anchor)
	}
}
