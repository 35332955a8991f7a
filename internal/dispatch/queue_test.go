// ABOUTME: Tests for per-conversation admission control
// ABOUTME: Validates capacity rejection, release, pending counts, and key independence

package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

func TestBoundedQueue_ReserveUpToCapacity(t *testing.T) {
	q := NewBoundedQueue(2)
	key := message.GroupKey("group-1")

	assert.True(t, q.TryReserve(key))
	assert.True(t, q.TryReserve(key))
	assert.False(t, q.TryReserve(key))
	assert.Equal(t, int64(2), q.Pending(key))
}

func TestBoundedQueue_ReleaseFreesSlot(t *testing.T) {
	q := NewBoundedQueue(1)
	key := message.GroupKey("group-1")

	assert.True(t, q.TryReserve(key))
	assert.False(t, q.TryReserve(key))

	q.Release(key)
	assert.Equal(t, int64(0), q.Pending(key))
	assert.True(t, q.TryReserve(key))
}

func TestBoundedQueue_KeysAreIsolated(t *testing.T) {
	q := NewBoundedQueue(1)

	assert.True(t, q.TryReserve(message.GroupKey("group-1")))

	// A full conversation does not affect others
	assert.True(t, q.TryReserve(message.GroupKey("group-2")))
	assert.True(t, q.TryReserve(message.UserKey("user-1")))
}

func TestBoundedQueue_ConcurrentReservations(t *testing.T) {
	const capacity = 10
	const numGoroutines = 100

	q := NewBoundedQueue(capacity)
	key := message.GroupKey("contested")

	var mu sync.Mutex
	granted := 0
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			if q.TryReserve(key) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	// The capacity bound holds under contention
	assert.Equal(t, capacity, granted)
	assert.Equal(t, int64(capacity), q.Pending(key))
}

func TestBoundedQueue_EvictOnlyWhenDrained(t *testing.T) {
	q := NewBoundedQueue(2)
	key := message.GroupKey("group-1")

	assert.True(t, q.TryReserve(key))

	// Eviction is refused while work is pending
	q.evict(key)
	assert.Equal(t, int64(1), q.Pending(key))

	q.Release(key)
	q.evict(key)
	assert.Equal(t, int64(0), q.Pending(key))
}
