package bwtree

import (
	"sync/atomic"

	"github.com/hupe1980/bwtree/internal/pidset"
)

const (
	// mappingChunkBits sizes one chunk of the mapping table at 2^13 slots.
	// Chunks are never moved once installed, so a slot's address is stable
	// for the life of the table.
	mappingChunkBits = 13
	mappingChunkSize = 1 << mappingChunkBits
	mappingChunkMask = mappingChunkSize - 1

	// mappingMaxChunks caps the table at 2^25 PIDs.
	mappingMaxChunks = 1 << 12
)

// mappingChunk is one fixed block of slots.
type mappingChunk[K any, V comparable] struct {
	slots [mappingChunkSize]atomic.Pointer[node[K, V]]
}

// mappingTable is the indirection layer from PIDs to chain heads. It is the
// sole point of synchronization in the tree: every mutation commits through
// a single compare-and-swap on one slot.
//
// The table grows by installing chunks into a fixed array of chunk pointers,
// the same stable-addressing scheme the arena allocator uses for its chunk
// directory, so Get never takes a lock and never observes a moved slot.
type mappingTable[K any, V comparable] struct {
	chunks [mappingMaxChunks]atomic.Pointer[mappingChunk[K, V]]
	nextID atomic.Uint64
	live   atomic.Int64
	freed  *pidset.Set
}

func newMappingTable[K any, V comparable]() *mappingTable[K, V] {
	return &mappingTable[K, V]{freed: pidset.New()}
}

// slot returns the slot for pid, installing the owning chunk if needed.
func (m *mappingTable[K, V]) slot(pid PID) *atomic.Pointer[node[K, V]] {
	idx := uint64(pid)
	ci := idx >> mappingChunkBits
	if ci >= mappingMaxChunks {
		panic("bwtree: mapping table capacity exceeded")
	}
	chunk := m.chunks[ci].Load()
	if chunk == nil {
		fresh := &mappingChunk[K, V]{}
		if m.chunks[ci].CompareAndSwap(nil, fresh) {
			chunk = fresh
		} else {
			chunk = m.chunks[ci].Load()
		}
	}
	return &chunk.slots[idx&mappingChunkMask]
}

// allocate returns an unused PID with a NULL slot, preferring recycled
// identifiers over fresh ones.
func (m *mappingTable[K, V]) allocate() PID {
	if id, ok := m.freed.Take(); ok {
		return PID(id)
	}
	return PID(m.nextID.Add(1))
}

// get atomically loads the chain head for pid. The reference stays valid
// for the caller's current epoch.
func (m *mappingTable[K, V]) get(pid PID) *node[K, V] {
	if pid == NullPID {
		return nil
	}
	return m.slot(pid).Load()
}

// cas publishes next as the head of pid's chain iff the current head is
// expected. This is the linearization point of every mutation.
func (m *mappingTable[K, V]) cas(pid PID, expected, next *node[K, V]) bool {
	return m.slot(pid).CompareAndSwap(expected, next)
}

// publish installs n under a fresh PID and returns it.
func (m *mappingTable[K, V]) publish(n *node[K, V]) PID {
	for {
		pid := m.allocate()
		if m.cas(pid, nil, n) {
			m.live.Add(1)
			return pid
		}
	}
}

// release clears pid's slot. The caller must recycle the identifier only
// after a quiescent period (see Tree.releasePID).
func (m *mappingTable[K, V]) release(pid PID) {
	m.slot(pid).Store(nil)
	m.live.Add(-1)
}

// recycle returns a released identifier to the allocator.
func (m *mappingTable[K, V]) recycle(pid PID) {
	m.freed.Put(uint64(pid))
}

// forEach calls fn for every live PID. Concurrent mutations may or may not
// be observed; fn must tolerate slots changing underneath it.
func (m *mappingTable[K, V]) forEach(fn func(pid PID, head *node[K, V]) bool) {
	max := m.nextID.Load()
	for id := uint64(1); id <= max; id++ {
		ci := id >> mappingChunkBits
		chunk := m.chunks[ci].Load()
		if chunk == nil {
			id |= mappingChunkMask // skip to the end of the missing chunk
			continue
		}
		if head := chunk.slots[id&mappingChunkMask].Load(); head != nil {
			if !fn(PID(id), head) {
				return
			}
		}
	}
}
