// ABOUTME: Per-conversation content fingerprinting to suppress duplicate sends
// ABOUTME: Expired fingerprints are ignored on lookup and swept eagerly by the janitor

package dispatch

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

type fingerprintSet struct {
	mu   sync.Mutex
	seen map[uint64]time.Time // fingerprint -> expiry
}

// Deduplicator suppresses re-sending identical content to the same
// conversation within the configured window.
type Deduplicator struct {
	window time.Duration
	mu     sync.RWMutex
	sets   map[message.ConversationKey]*fingerprintSet
}

// NewDeduplicator creates a deduplicator with the given suppression window.
func NewDeduplicator(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window: window,
		sets:   make(map[message.ConversationKey]*fingerprintSet),
	}
}

// CheckAndRecord atomically checks whether content was recently sent to key
// and records it if not. Returns true if the content is a live duplicate, in
// which case nothing is re-registered and the caller must suppress the send.
func (d *Deduplicator) CheckAndRecord(key message.ConversationKey, content string) bool {
	if d.window <= 0 {
		return false
	}

	fp := fingerprint(content)
	set := d.set(key)

	set.mu.Lock()
	defer set.mu.Unlock()

	now := time.Now()
	if expiry, ok := set.seen[fp]; ok && now.Before(expiry) {
		return true
	}
	set.seen[fp] = now.Add(d.window)
	return false
}

func (d *Deduplicator) set(key message.ConversationKey) *fingerprintSet {
	d.mu.RLock()
	set, ok := d.sets[key]
	d.mu.RUnlock()
	if ok {
		return set
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if set, ok := d.sets[key]; ok {
		return set
	}
	set = &fingerprintSet{seen: make(map[uint64]time.Time)}
	d.sets[key] = set
	return set
}

// tracks reports whether key still has live fingerprints. Janitor use only.
func (d *Deduplicator) tracks(key message.ConversationKey) bool {
	d.mu.RLock()
	set, ok := d.sets[key]
	d.mu.RUnlock()
	if !ok {
		return false
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.seen) > 0
}

// sweep removes expired fingerprints and drops conversations whose sets have
// emptied. Returns the number of fingerprints removed.
func (d *Deduplicator) sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, set := range d.sets {
		set.mu.Lock()
		for fp, expiry := range set.seen {
			if !now.Before(expiry) {
				delete(set.seen, fp)
				removed++
			}
		}
		empty := len(set.seen) == 0
		set.mu.Unlock()
		if empty {
			delete(d.sets, key)
		}
	}
	return removed
}

// evict drops all fingerprints for key.
func (d *Deduplicator) evict(key message.ConversationKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sets, key)
}

// reset discards all fingerprint state. Shutdown use only.
func (d *Deduplicator) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sets = make(map[message.ConversationKey]*fingerprintSet)
}

// fingerprint returns a stable non-cryptographic hash of content.
func fingerprint(content string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(content))
	return h.Sum64()
}
