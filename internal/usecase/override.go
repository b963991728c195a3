package usecase

import (
	"sync"

	"NewsRadio/internal/domain"
)

// OverrideQueue holds manual insertions into the dispatch order. FIFO, except
// urgent items jump to the front at insertion time. In-memory only; the queue
// resets to empty on restart.
type OverrideQueue struct {
	mu    sync.Mutex
	items []domain.OverrideItem
}

// NewOverrideQueue returns an empty queue.
func NewOverrideQueue() *OverrideQueue {
	return &OverrideQueue{}
}

// Add appends the item, or prepends it when urgent.
func (q *OverrideQueue) Add(item domain.OverrideItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item.Urgent {
		q.items = append([]domain.OverrideItem{item}, q.items...)
		return
	}
	q.items = append(q.items, item)
}

// Remove deletes the entry with the given id, reporting whether it existed.
func (q *OverrideQueue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Pop removes and returns the head, or nil when empty.
func (q *OverrideQueue) Pop() *domain.OverrideItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	head := q.items[0]
	q.items = q.items[1:]
	return &head
}

// Len returns the number of queued overrides.
func (q *OverrideQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// List returns a copy of the queue in dispatch order.
func (q *OverrideQueue) List() []domain.OverrideItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.OverrideItem, len(q.items))
	copy(out, q.items)
	return out
}
