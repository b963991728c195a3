package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddAndHas(t *testing.T) {
	s := NewSet(10)

	assert.False(t, s.Has("a"))
	s.Add("a")
	assert.True(t, s.Has("a"))
	assert.Equal(t, 1, s.Len())
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	s := NewSet(10)
	s.Add("a")
	s.Add("a")

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"a"}, s.IDs())
}

func TestEvictsOldestInsertion(t *testing.T) {
	s := NewSet(3)
	for _, id := range []string{"A", "B", "C", "D"} {
		s.Add(id)
	}

	assert.Equal(t, 3, s.Len())
	assert.False(t, s.Has("A"))
	assert.Equal(t, []string{"B", "C", "D"}, s.IDs())
}

func TestLookupDoesNotRefreshAge(t *testing.T) {
	s := NewSet(2)
	s.Add("A")
	s.Add("B")

	// FIFO, not LRU: touching A must not save it from eviction.
	assert.True(t, s.Has("A"))
	s.Add("C")

	assert.False(t, s.Has("A"))
	assert.Equal(t, []string{"B", "C"}, s.IDs())
}

func TestNeverExceedsCapacity(t *testing.T) {
	const capacity = 7
	s := NewSet(capacity)

	for i := 0; i < 100; i++ {
		s.Add(fmt.Sprintf("id-%d", i))
		assert.LessOrEqual(t, s.Len(), capacity)
	}

	// The survivors are exactly the newest N insertions.
	for i := 100 - capacity; i < 100; i++ {
		assert.True(t, s.Has(fmt.Sprintf("id-%d", i)))
	}
	assert.False(t, s.Has(fmt.Sprintf("id-%d", 100-capacity-1)))
}

func TestTinyCapacityClamped(t *testing.T) {
	s := NewSet(0)
	s.Add("a")
	s.Add("b")

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Has("b"))
}
