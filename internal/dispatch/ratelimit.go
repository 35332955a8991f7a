// ABOUTME: Per-conversation minimum-interval rate limiter built on golang.org/x/time/rate
// ABOUTME: Acquire suspends the caller until the interval has elapsed, then records the send

package dispatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

type keyLimiter struct {
	lim      *rate.Limiter
	mu       sync.Mutex
	lastSend time.Time
}

// RateLimiter enforces a minimum interval between dispatches to the same
// conversation. A token-bucket limiter with burst 1 makes the wait decision
// and the timestamp update atomic per key: two concurrent acquirers can never
// both observe "allowed" inside one interval.
type RateLimiter struct {
	interval time.Duration
	mu       sync.RWMutex
	limiters map[message.ConversationKey]*keyLimiter
}

// NewRateLimiter creates a limiter enforcing the given minimum interval.
// A zero interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		limiters: make(map[message.ConversationKey]*keyLimiter),
	}
}

// Acquire blocks until a dispatch to key is allowed, then records the send
// time. It returns the context's error if the caller is cancelled while
// waiting; nothing is recorded in that case.
func (r *RateLimiter) Acquire(ctx context.Context, key message.ConversationKey) error {
	kl := r.limiter(key)

	if err := kl.lim.Wait(ctx); err != nil {
		return err
	}

	kl.mu.Lock()
	kl.lastSend = time.Now()
	kl.mu.Unlock()
	return nil
}

func (r *RateLimiter) limiter(key message.ConversationKey) *keyLimiter {
	r.mu.RLock()
	kl, ok := r.limiters[key]
	r.mu.RUnlock()
	if ok {
		return kl
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if kl, ok := r.limiters[key]; ok {
		return kl
	}

	limit := rate.Inf
	if r.interval > 0 {
		limit = rate.Every(r.interval)
	}
	kl = &keyLimiter{lim: rate.NewLimiter(limit, 1)}
	r.limiters[key] = kl
	return kl
}

// idleSince reports whether key has no limiter state or has not sent since
// the cutoff. Janitor use only.
func (r *RateLimiter) idleSince(key message.ConversationKey, cutoff time.Time) bool {
	r.mu.RLock()
	kl, ok := r.limiters[key]
	r.mu.RUnlock()
	if !ok {
		return true
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	return kl.lastSend.Before(cutoff)
}

// evict drops the limiter state for key. Only safe for keys that have been
// idle for longer than the interval, which the janitor guarantees.
func (r *RateLimiter) evict(key message.ConversationKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, key)
}

// reset discards all limiter state. Shutdown use only.
func (r *RateLimiter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters = make(map[message.ConversationKey]*keyLimiter)
}
