// Package dedup provides the bounded identity set used by the ingestion feed.
package dedup

import "container/list"

// Set is a capacity-bounded identity set with FIFO eviction: when full, the
// entry with the smallest insertion sequence is dropped first. Lookups never
// refresh an entry's age, so this is insertion-order FIFO, not LRU. The
// list+map pairing makes both lookup and eviction O(1).
//
// Not safe for concurrent use; the feed is its only owner.
type Set struct {
	capacity int
	order    *list.List               // front = oldest insertion
	index    map[string]*list.Element // id -> its node in order
}

// NewSet builds an empty set. Capacity values below 1 are treated as 1.
func NewSet(capacity int) *Set {
	if capacity < 1 {
		capacity = 1
	}
	return &Set{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Has reports whether id is currently in the set.
func (s *Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Add inserts id, evicting the oldest insertion if the set is at capacity.
// A no-op when id is already present.
func (s *Set) Add(id string) {
	if _, ok := s.index[id]; ok {
		return
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.index, oldest.Value.(string))
	}

	s.index[id] = s.order.PushBack(id)
}

// Len returns the number of ids currently held.
func (s *Set) Len() int {
	return s.order.Len()
}

// IDs returns all held ids in insertion order, oldest first.
func (s *Set) IDs() []string {
	ids := make([]string, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(string))
	}
	return ids
}
