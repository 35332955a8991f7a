// ABOUTME: Tuning knobs for the dispatch pipeline with platform-safe defaults
// ABOUTME: Validated once at construction, immutable afterwards

package dispatch

import (
	"fmt"
	"time"
)

// Config holds the dispatch pipeline's tuning parameters. It is read once at
// construction and shared read-only by all conversations.
type Config struct {
	// MaxRetry is the number of additional attempts after the first failed
	// dispatch of a transiently failing message.
	MaxRetry int

	// RetryDelay is the fixed wait between attempts. No backoff growth.
	RetryDelay time.Duration

	// DedupWindow is how long identical content to the same conversation is
	// suppressed after a send.
	DedupWindow time.Duration

	// SeqStep is the increment between consecutive sequence numbers for a
	// conversation.
	SeqStep int64

	// RateLimit is the minimum interval between dispatches to the same
	// conversation.
	RateLimit time.Duration

	// CleanupInterval is the janitor period, and also the idle age after
	// which a conversation's state is evicted.
	CleanupInterval time.Duration

	// QueueSize caps pending work per conversation.
	QueueSize int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetry:        3,
		RetryDelay:      time.Second,
		DedupWindow:     60 * time.Second,
		SeqStep:         100,
		RateLimit:       time.Second,
		CleanupInterval: 30 * time.Second,
		QueueSize:       100,
	}
}

// Validate checks the configuration bounds and returns the first violation.
func (c Config) Validate() error {
	if c.MaxRetry < 0 {
		return fmt.Errorf("max_retry must be >= 0, got %d", c.MaxRetry)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0, got %v", c.RetryDelay)
	}
	if c.DedupWindow < 0 {
		return fmt.Errorf("dedup_window must be >= 0, got %v", c.DedupWindow)
	}
	if c.SeqStep < 1 {
		return fmt.Errorf("seq_step must be >= 1, got %d", c.SeqStep)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %v", c.RateLimit)
	}
	if c.CleanupInterval < time.Second {
		return fmt.Errorf("cleanup_interval must be >= 1s, got %v", c.CleanupInterval)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be >= 1, got %d", c.QueueSize)
	}
	return nil
}
