// Package pidset tracks recycled page identifiers.
//
// Slots in the mapping table are handed out monotonically, but a slot whose
// publication lost a race (an orphaned root or sibling) can be reused once no
// reader may still hold its identifier. The set is backed by a Roaring bitmap,
// which stays compact whether the recycled identifiers are sparse or form
// dense runs.
package pidset

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Set is a mutex-guarded free set of page identifiers.
type Set struct {
	mu   sync.Mutex
	free *roaring64.Bitmap
}

// New creates an empty set.
func New() *Set {
	return &Set{free: roaring64.New()}
}

// Put returns an identifier to the set.
//
// The caller is responsible for deferring Put until no thread can still
// observe the identifier; the set itself performs no quiescence tracking.
func (s *Set) Put(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.free.Add(id)
}

// Take removes and returns the smallest free identifier.
// The second result is false when the set is empty.
func (s *Set) Take() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.free.IsEmpty() {
		return 0, false
	}
	id := s.free.Minimum()
	s.free.Remove(id)
	return id, true
}

// Contains reports whether id is currently free.
func (s *Set) Contains(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.free.Contains(id)
}

// Len returns the number of free identifiers.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.free.GetCardinality())
}
