package bwtree

import "sync/atomic"

// PID is the stable logical identifier of a node. The mapping table turns a
// PID into the current head of that node's delta chain; the PID outlives any
// particular physical node.
type PID uint64

// NullPID denotes the absence of a node.
const NullPID PID = 0

// nodeKind discriminates the physical node variants. Bases terminate a
// chain; all other kinds are deltas prepended in front of one.
type nodeKind uint8

const (
	kindLeaf nodeKind = iota
	kindInner
	kindInsert
	kindUpdate
	kindDelete
	kindSplit
	kindSeparator
)

func (k nodeKind) isDelta() bool { return k > kindInner }

// slot is one logical entry of a leaf: a key and the list of values stored
// under it. Duplicate (key, value) pairs appear as repeated list entries.
type slot[K any, V comparable] struct {
	key    K
	values []V
}

// node is the tagged variant covering every base and delta kind. Which
// fields are meaningful depends on kind; everything published through the
// mapping table is immutable except the sibling and parent links on bases,
// which are written by the thread that just won the publishing CAS, and the
// advisory parent link, which a split also repairs after recovering the
// parent by a fresh descent.
type node[K any, V comparable] struct {
	kind        nodeKind
	level       int
	size        int // logical slot count (leaf) or separator count (inner) after consolidation
	chainLength int // 0 for bases
	base        *node[K, V]

	// Leaf base payload.
	slots []slot[K, V]

	// Inner base payload: keys[i] separates children[i] (< keys[i]) from
	// children[i+1] (>= keys[i]).
	keys     []K
	children []PID

	// Base fences and links. high is the exclusive upper bound of the
	// node's key range; nil means unbounded. next/prev/parent hold PIDs.
	high   *K
	next   atomic.Uint64
	prev   atomic.Uint64
	parent atomic.Uint64

	// Insert/update/delete payload. A delete without hasValue removes
	// every pair under key; with hasValue it removes the pairs equal to
	// (key, value).
	key      K
	value    V
	hasValue bool

	// Split delta: key is the split key, child the new sibling's PID.
	// Separator delta: key is the left bound, child the routed child,
	// rightKey the next separator in the parent (absent when the split
	// key is the parent's largest).
	rightKey    K
	hasRightKey bool
	child       PID
}

// chainBase returns the base node terminating n's delta chain.
func (n *node[K, V]) chainBase() *node[K, V] {
	for n.kind.isDelta() {
		n = n.base
	}
	return n
}

// nextPID returns the base's next-sibling link.
func (n *node[K, V]) nextPID() PID { return PID(n.next.Load()) }

// prevPID returns the base's previous-sibling link.
func (n *node[K, V]) prevPID() PID { return PID(n.prev.Load()) }

// parentPID returns the base's advisory parent link.
func (n *node[K, V]) parentPID() PID { return PID(n.parent.Load()) }

// newLeaf creates an unpublished leaf base holding the given slots.
func newLeaf[K any, V comparable](slots []slot[K, V], high *K) *node[K, V] {
	return &node[K, V]{
		kind:  kindLeaf,
		slots: slots,
		size:  len(slots),
		high:  high,
	}
}

// newInner creates an unpublished inner base at the given level.
func newInner[K any, V comparable](level int, keys []K, children []PID, high *K) *node[K, V] {
	return &node[K, V]{
		kind:     kindInner,
		level:    level,
		keys:     keys,
		children: children,
		size:     len(keys),
		high:     high,
	}
}

// newDelta creates an unpublished delta of the given kind on top of head.
// size must be the logical size the chain has once the delta is applied.
func newDelta[K any, V comparable](kind nodeKind, head *node[K, V], size int) *node[K, V] {
	return &node[K, V]{
		kind:        kind,
		level:       head.level,
		size:        size,
		chainLength: head.chainLength + 1,
		base:        head,
	}
}
