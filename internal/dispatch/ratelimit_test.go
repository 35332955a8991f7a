// ABOUTME: Tests for the per-conversation minimum-interval rate limiter
// ABOUTME: Validates spacing, key independence, and cancellation during the wait

package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
)

func TestRateLimiter_FirstAcquireImmediate(t *testing.T) {
	rl := NewRateLimiter(time.Second)

	start := time.Now()
	require.NoError(t, rl.Acquire(context.Background(), message.GroupKey("group-1")))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_EnforcesSpacing(t *testing.T) {
	rl := NewRateLimiter(50 * time.Millisecond)
	key := message.GroupKey("group-1")
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, rl.Acquire(ctx, key))
	require.NoError(t, rl.Acquire(ctx, key))

	// The second acquire waited out the interval
	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestRateLimiter_IndependentKeys(t *testing.T) {
	rl := NewRateLimiter(time.Second)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, rl.Acquire(ctx, message.GroupKey("group-1")))
	require.NoError(t, rl.Acquire(ctx, message.GroupKey("group-2")))
	require.NoError(t, rl.Acquire(ctx, message.UserKey("user-1")))

	// No cross-key waiting
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_CancelDuringWait(t *testing.T) {
	rl := NewRateLimiter(500 * time.Millisecond)
	key := message.GroupKey("group-1")

	require.NoError(t, rl.Acquire(context.Background(), key))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Acquire(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_ZeroIntervalDisablesLimiting(t *testing.T) {
	rl := NewRateLimiter(0)
	key := message.GroupKey("group-1")
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, rl.Acquire(ctx, key))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_IdleEviction(t *testing.T) {
	rl := NewRateLimiter(10 * time.Millisecond)
	key := message.GroupKey("group-1")

	require.NoError(t, rl.Acquire(context.Background(), key))

	// Active key is not idle against a past cutoff
	assert.False(t, rl.idleSince(key, time.Now().Add(-time.Minute)))

	// But it is idle against a future cutoff
	assert.True(t, rl.idleSince(key, time.Now().Add(time.Minute)))

	rl.evict(key)
	assert.True(t, rl.idleSince(key, time.Now().Add(-time.Minute)))
}
