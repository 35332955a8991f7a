// ABOUTME: Tests for per-conversation sequence generation
// ABOUTME: Validates monotonic stepping, rollover, reset, and per-key independence

package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

func TestSequenceGenerator_Monotonic(t *testing.T) {
	gen := NewSequenceGenerator(100)
	key := message.GroupKey("group-1")

	assert.Equal(t, int64(100), gen.Next(key))
	assert.Equal(t, int64(200), gen.Next(key))
	assert.Equal(t, int64(300), gen.Next(key))
}

func TestSequenceGenerator_IndependentKeys(t *testing.T) {
	gen := NewSequenceGenerator(100)

	assert.Equal(t, int64(100), gen.Next(message.GroupKey("group-1")))
	assert.Equal(t, int64(200), gen.Next(message.GroupKey("group-1")))

	// A different conversation starts from scratch
	assert.Equal(t, int64(100), gen.Next(message.GroupKey("group-2")))

	// Same id, different kind is a different conversation
	assert.Equal(t, int64(100), gen.Next(message.UserKey("group-1")))
}

func TestSequenceGenerator_Rollover(t *testing.T) {
	// Large step so the counter reaches the platform cap in a few calls
	gen := NewSequenceGenerator(400_000)
	key := message.GroupKey("group-1")

	assert.Equal(t, int64(400_000), gen.Next(key))
	assert.Equal(t, int64(800_000), gen.Next(key))

	// 1,200,000 would exceed the cap, so the counter rolls over
	assert.Equal(t, int64(400_000), gen.Next(key))
}

func TestSequenceGenerator_Reset(t *testing.T) {
	gen := NewSequenceGenerator(100)
	key := message.GroupKey("group-1")

	gen.Next(key)
	gen.Next(key)
	gen.Reset(key)

	assert.Equal(t, int64(100), gen.Next(key))
}

func TestSequenceGenerator_ConcurrentSameKey(t *testing.T) {
	gen := NewSequenceGenerator(100)
	key := message.GroupKey("group-1")

	const numGoroutines = 100

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			seq := gen.Next(key)
			mu.Lock()
			seen[seq] = true
			mu.Unlock()
		}()
	}

	wg.Wait()

	// Every call got a distinct value
	assert.Len(t, seen, numGoroutines)
}

func TestSequenceGenerator_Evict(t *testing.T) {
	gen := NewSequenceGenerator(100)
	key := message.GroupKey("group-1")

	gen.Next(key)
	gen.Next(key)
	gen.evict(key)

	// Evicted conversations restart from the first step
	assert.Equal(t, int64(100), gen.Next(key))
}
