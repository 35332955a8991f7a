// ABOUTME: Background janitor pruning expired fingerprints and idle conversation state
// ABOUTME: Runs on the cleanup interval until the coordinator is closed

package dispatch

import "time"

// janitor periodically sweeps stale state from all components. Started by
// New, stopped by Close via the done channel.
func (c *Coordinator) janitor() {
	defer c.janitorWG.Done()

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep(time.Now())
		case <-c.done:
			return
		}
	}
}

// sweep removes expired dedup fingerprints, then evicts whole-conversation
// state for keys with no pending work, no live fingerprints, and no activity
// for a full cleanup interval. Sequence restart after eviction is permitted:
// the gateway only rejects sequences reused within an active window.
func (c *Coordinator) sweep(now time.Time) {
	expired := c.dedupe.sweep(now)

	cutoff := now.Add(-c.cfg.CleanupInterval)
	evicted := 0
	for _, key := range c.sequence.idleKeys(cutoff) {
		if c.queue.Pending(key) != 0 {
			continue
		}
		if c.dedupe.tracks(key) {
			continue
		}
		if !c.limiter.idleSince(key, cutoff) {
			continue
		}

		c.sequence.evict(key)
		c.limiter.evict(key)
		c.queue.evict(key)
		c.dedupe.evict(key)
		evicted++
	}

	if expired > 0 || evicted > 0 {
		c.logger.Debug("janitor sweep",
			"expired_fingerprints", expired,
			"evicted_conversations", evicted)
	}
}
