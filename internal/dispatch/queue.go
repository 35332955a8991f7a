// ABOUTME: Per-conversation admission control bounding pending dispatch work
// ABOUTME: A counter, not a buffer - ordering is already enforced by the per-key regions

package dispatch

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

type queueSlots struct {
	sem     *semaphore.Weighted
	pending atomic.Int64
}

// BoundedQueue caps the number of in-flight sends per conversation so a slow
// or failing gateway cannot exhaust memory. Reservations are non-blocking:
// a full conversation rejects immediately.
type BoundedQueue struct {
	size  int64
	mu    sync.RWMutex
	slots map[message.ConversationKey]*queueSlots
}

// NewBoundedQueue creates a queue admitting at most size pending sends per
// conversation.
func NewBoundedQueue(size int64) *BoundedQueue {
	return &BoundedQueue{
		size:  size,
		slots: make(map[message.ConversationKey]*queueSlots),
	}
}

// TryReserve claims a slot for key. It returns false without blocking when
// the conversation is at capacity.
func (q *BoundedQueue) TryReserve(key message.ConversationKey) bool {
	s := q.keySlots(key)
	if !s.sem.TryAcquire(1) {
		return false
	}
	s.pending.Add(1)
	return true
}

// Release returns a previously reserved slot. It must be called exactly once
// per successful TryReserve, on every exit path.
func (q *BoundedQueue) Release(key message.ConversationKey) {
	q.mu.RLock()
	s, ok := q.slots[key]
	q.mu.RUnlock()
	if !ok {
		return
	}
	s.pending.Add(-1)
	s.sem.Release(1)
}

// Pending returns the number of reserved slots for key.
func (q *BoundedQueue) Pending(key message.ConversationKey) int64 {
	q.mu.RLock()
	s, ok := q.slots[key]
	q.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.pending.Load()
}

func (q *BoundedQueue) keySlots(key message.ConversationKey) *queueSlots {
	q.mu.RLock()
	s, ok := q.slots[key]
	q.mu.RUnlock()
	if ok {
		return s
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.slots[key]; ok {
		return s
	}
	s = &queueSlots{sem: semaphore.NewWeighted(q.size)}
	q.slots[key] = s
	return s
}

// evict drops the slot tracker for key. Only called by the janitor for keys
// with zero pending work.
func (q *BoundedQueue) evict(key message.ConversationKey) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.slots[key]; ok && s.pending.Load() == 0 {
		delete(q.slots, key)
	}
}

// reset discards all slot state. Shutdown use only.
func (q *BoundedQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.slots = make(map[message.ConversationKey]*queueSlots)
}
