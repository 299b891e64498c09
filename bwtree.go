package bwtree

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/bwtree/internal/epoch"
)

// Reclaimer defers freeing of unlinked nodes until no thread could still
// reference them. Implementations must guarantee that a free function
// retired while any operation is between Enter and Exit does not run until
// every such operation has exited.
//
// The default implementation is epoch-based; supply your own to integrate
// with an enclosing engine's reclamation scheme.
type Reclaimer interface {
	// Enter marks the start of an index operation and returns a ticket.
	Enter() uint64

	// Exit marks the end of the operation identified by ticket.
	Exit(ticket uint64)

	// Retire schedules free to run once no in-flight operation can still
	// reference the resource it releases.
	Retire(free func())
}

// Tree is a concurrent, latch-free ordered index of the Bw-tree family.
//
// Logical node identity is separated from physical representation: mutations
// append small delta records onto a per-node chain and commit with a single
// compare-and-swap on the mapping table. Keys need not be unique unless
// configured; duplicate (key, value) pairs are distinct entries.
//
// All methods are safe for concurrent use.
type Tree[K any, V comparable] struct {
	compare CompareFunc[K]
	equal   EqualFunc[K]
	opts    Options[K]

	mapping   *mappingTable[K, V]
	reclaimer Reclaimer

	// root, headLeaf and tailLeaf hold PIDs. root changes only by CAS;
	// headLeaf is set once with the first root, and tailLeaf is advanced
	// by splits of the last leaf.
	root     atomic.Uint64
	headLeaf atomic.Uint64
	tailLeaf atomic.Uint64

	splits         atomic.Int64
	consolidations atomic.Int64

	logger  *Logger
	metrics MetricsCollector

	maintenance *sweeper[K, V]
	closed      atomic.Bool
}

// New creates an empty tree ordered by compare.
//
// Example:
//
//	tree, err := bwtree.New[int, string](func(a, b int) int { return a - b })
func New[K any, V comparable](compare CompareFunc[K], optFns ...func(o *Options[K])) (*Tree[K, V], error) {
	if compare == nil {
		return nil, ErrNilComparator
	}

	opts := DefaultOptions[K]()
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	t := &Tree[K, V]{
		compare:   compare,
		equal:     opts.Equal,
		opts:      opts,
		mapping:   newMappingTable[K, V](),
		reclaimer: opts.Reclaimer,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if t.equal == nil {
		t.equal = func(a, b K) bool { return compare(a, b) == 0 }
	}
	if t.reclaimer == nil {
		t.reclaimer = epoch.New()
	}
	if t.logger == nil {
		t.logger = NoopLogger()
	}
	if t.metrics == nil {
		t.metrics = NoopMetricsCollector{}
	}

	if opts.Maintenance != nil {
		t.maintenance = startSweeper(t, *opts.Maintenance)
	}

	return t, nil
}

// Close stops background maintenance and drains deferred reclamation.
// Operations issued after Close return ErrClosed or empty results.
func (t *Tree[K, V]) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.maintenance != nil {
		t.maintenance.stop()
	}
	if r, ok := t.reclaimer.(*epoch.Reclaimer); ok {
		r.Drain()
	}
	return nil
}

// Stats is a point-in-time snapshot of structural counters.
type Stats struct {
	// Height is the number of levels, including the leaf level.
	// Zero for an empty tree.
	Height int

	// LivePIDs is the number of mapping-table slots currently holding a
	// chain.
	LivePIDs int64

	// Splits is the number of committed structural splits.
	Splits int64

	// Consolidations is the number of committed chain consolidations.
	Consolidations int64

	// HeadLeaf and TailLeaf identify the ends of the doubly linked leaf
	// chain. NullPID for an empty tree.
	HeadLeaf PID
	TailLeaf PID
}

// Stats returns a snapshot of the tree's structural counters.
func (t *Tree[K, V]) Stats() Stats {
	s := Stats{
		LivePIDs:       t.mapping.live.Load(),
		Splits:         t.splits.Load(),
		Consolidations: t.consolidations.Load(),
		HeadLeaf:       PID(t.headLeaf.Load()),
		TailLeaf:       PID(t.tailLeaf.Load()),
	}
	if root := PID(t.root.Load()); root != NullPID {
		if head := t.mapping.get(root); head != nil {
			s.Height = head.level + 1
		}
	}
	return s
}

// ensureRoot lazily creates the root as an empty leaf. The losing side of
// the root race releases its orphaned node and identifier.
func (t *Tree[K, V]) ensureRoot() {
	if PID(t.root.Load()) != NullPID {
		return
	}
	leaf := newLeaf[K, V](nil, nil)
	pid := t.mapping.publish(leaf)
	if t.root.CompareAndSwap(uint64(NullPID), uint64(pid)) {
		t.headLeaf.Store(uint64(pid))
		t.tailLeaf.Store(uint64(pid))
		return
	}
	t.releasePID(pid)
}

// releasePID unlinks pid's slot immediately and recycles the identifier
// once no in-flight operation can still resolve it.
func (t *Tree[K, V]) releasePID(pid PID) {
	t.mapping.release(pid)
	t.reclaimer.Retire(func() {
		t.mapping.recycle(pid)
	})
}

// retireChain hands a superseded chain to the reclaimer. The chain is
// unreachable through the mapping table; the retire callback only needs to
// exist so reclamation is observable and pluggable.
func (t *Tree[K, V]) retireChain(old *node[K, V]) {
	t.reclaimer.Retire(func() {
		// Sever the chain so the superseded deltas become collectible
		// individually even if a stale reference pins the head.
		for n := old; n != nil && n.kind.isDelta(); {
			next := n.base
			n.base = nil
			n = next
		}
	})
}

func (t *Tree[K, V]) observeScan(results int, start time.Time) {
	t.metrics.RecordScan(results, time.Since(start))
}
