// ABOUTME: Per-conversation monotonic sequence numbers for the platform's msg_seq field
// ABOUTME: Steps by SeqStep, rolls over at the platform cap, resettable on gateway conflict

package dispatch

import (
	"sync"
	"time"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

// maxSequence is the platform's msg_seq ceiling. Counters roll over to the
// first step before reaching it.
const maxSequence = 1_000_000

type seqCounter struct {
	mu      sync.Mutex
	current int64
	touched time.Time
}

// SequenceGenerator issues strictly increasing per-conversation sequence
// numbers. Calls for the same key are serialized; different keys never
// contend beyond the map lookup.
type SequenceGenerator struct {
	step     int64
	mu       sync.RWMutex
	counters map[message.ConversationKey]*seqCounter
}

// NewSequenceGenerator creates a generator stepping by step.
func NewSequenceGenerator(step int64) *SequenceGenerator {
	return &SequenceGenerator{
		step:     step,
		counters: make(map[message.ConversationKey]*seqCounter),
	}
}

// Next returns the next sequence number for key: the previous value plus the
// step, starting at the step itself. At the platform cap the counter rolls
// over to the first step again.
func (g *SequenceGenerator) Next(key message.ConversationKey) int64 {
	c := g.counter(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.current + g.step
	if next >= maxSequence {
		next = g.step
	}
	c.current = next
	c.touched = time.Now()
	return next
}

// Reset clears the counter for key so the next call to Next starts over from
// the first step. Used when the gateway rejects a sequence as stale.
func (g *SequenceGenerator) Reset(key message.ConversationKey) {
	c := g.counter(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = 0
	c.touched = time.Now()
}

func (g *SequenceGenerator) counter(key message.ConversationKey) *seqCounter {
	g.mu.RLock()
	c, ok := g.counters[key]
	g.mu.RUnlock()
	if ok {
		return c
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.counters[key]; ok {
		return c
	}
	c = &seqCounter{}
	g.counters[key] = c
	return c
}

// idleKeys returns the keys whose counters have not been touched since the
// cutoff. Janitor use only.
func (g *SequenceGenerator) idleKeys(cutoff time.Time) []message.ConversationKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var keys []message.ConversationKey
	for key, c := range g.counters {
		c.mu.Lock()
		idle := c.touched.Before(cutoff)
		c.mu.Unlock()
		if idle {
			keys = append(keys, key)
		}
	}
	return keys
}

// evict drops the counter for key. Safe because sequences are allowed to
// restart after a conversation has been idle.
func (g *SequenceGenerator) evict(key message.ConversationKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.counters, key)
}

// reset discards all counters. Shutdown use only.
func (g *SequenceGenerator) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters = make(map[message.ConversationKey]*seqCounter)
}
