// ABOUTME: Coordinator orchestrates each send - validate, dedup, reserve, sequence, rate-limit, dispatch, retry
// ABOUTME: Queue slots are released on every exit path; terminal outcomes are recorded to the ledger

package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/message"
	"github.com/xiaoyueyoqwq/thefinals-qqbot/internal/store"
)

// Gateway hands a fully prepared message to the chat platform. One call per
// attempt; connection lifecycle belongs to the implementation. A nil return
// means delivered; typed message errors carry the retry classification.
type Gateway interface {
	Dispatch(ctx context.Context, msg *message.Outbound) error
}

// Ledger records terminal dispatch outcomes for audit and history.
type Ledger interface {
	RecordDispatch(ctx context.Context, rec *store.Record) error
}

// Coordinator is the outbound send facade. It owns all per-conversation
// state and is safe for concurrent use by multiple callers.
type Coordinator struct {
	cfg     Config
	gateway Gateway
	ledger  Ledger
	logger  *slog.Logger

	sequence *SequenceGenerator
	limiter  *RateLimiter
	dedupe   *Deduplicator
	queue    *BoundedQueue

	done      chan struct{}
	closeOnce sync.Once
	janitorWG sync.WaitGroup
	inflight  sync.WaitGroup
}

// New creates a Coordinator and starts its janitor. The ledger may be nil,
// in which case outcomes are not recorded.
func New(cfg Config, gateway Gateway, ledger Ledger, logger *slog.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		cfg:      cfg,
		gateway:  gateway,
		ledger:   ledger,
		logger:   logger.With("component", "dispatch"),
		sequence: NewSequenceGenerator(cfg.SeqStep),
		limiter:  NewRateLimiter(cfg.RateLimit),
		dedupe:   NewDeduplicator(cfg.DedupWindow),
		queue:    NewBoundedQueue(cfg.QueueSize),
		done:     make(chan struct{}),
	}

	c.janitorWG.Add(1)
	go c.janitor()

	return c, nil
}

// SendToGroup sends a message to a group chat.
func (c *Coordinator) SendToGroup(ctx context.Context, groupID, content string, typ message.Type, msgID string, media *message.MediaRef) (*message.Outcome, error) {
	return c.send(ctx, &message.Outbound{
		Key:     message.GroupKey(groupID),
		Content: content,
		Type:    typ,
		MsgID:   msgID,
		Media:   media,
	})
}

// SendToUser sends a direct message.
func (c *Coordinator) SendToUser(ctx context.Context, userID, content string, typ message.Type, msgID string, media *message.MediaRef) (*message.Outcome, error) {
	return c.send(ctx, &message.Outbound{
		Key:     message.UserKey(userID),
		Content: content,
		Type:    typ,
		MsgID:   msgID,
		Media:   media,
	})
}

// send runs the full pipeline for one message. See the package documentation
// for the step ordering and its invariants.
func (c *Coordinator) send(ctx context.Context, msg *message.Outbound) (*message.Outcome, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	msg.Content = normalizeContent(msg.Content)
	key := msg.Key

	if c.dedupe.CheckAndRecord(key, msg.Content) {
		c.logger.Debug("duplicate suppressed",
			"conversation", key.String(),
			"msg_id", msg.MsgID)
		c.record(msg, store.StatusDuplicate, "", 0)
		return &message.Outcome{Duplicate: true}, nil
	}

	if !c.queue.TryReserve(key) {
		err := message.NewFatal(message.CodeQueueFull, "queue full for "+key.String(), nil)
		c.logger.Error("queue full",
			"conversation", key.String(),
			"msg_id", msg.MsgID)
		c.record(msg, store.StatusFailed, err.Error(), 0)
		return nil, err
	}
	defer c.queue.Release(key)

	c.inflight.Add(1)
	defer c.inflight.Done()

	msg.Sequence = c.sequence.Next(key)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.cfg.MaxRetry; attempt++ {
		if attempt > 0 {
			if err := c.waitRetry(ctx); err != nil {
				c.record(msg, store.StatusFailed, err.Error(), attempts)
				return nil, err
			}
		}

		if err := c.limiter.Acquire(ctx, key); err != nil {
			c.record(msg, store.StatusFailed, err.Error(), attempts)
			return nil, err
		}

		attempts++
		err := c.gateway.Dispatch(ctx, msg)
		if err == nil {
			c.logger.Debug("message dispatched",
				"conversation", key.String(),
				"msg_id", msg.MsgID,
				"seq", msg.Sequence,
				"attempts", attempts)
			c.record(msg, store.StatusDelivered, "", attempts)
			return &message.Outcome{Sequence: msg.Sequence}, nil
		}

		if message.IsFatal(err) {
			c.logger.Error("permanent dispatch failure",
				"conversation", key.String(),
				"msg_id", msg.MsgID,
				"error", err)
			c.record(msg, store.StatusFailed, err.Error(), attempts)
			return nil, err
		}

		// Cancellation aborts the remaining attempts outright.
		if ctx.Err() != nil {
			c.record(msg, store.StatusFailed, ctx.Err().Error(), attempts)
			return nil, ctx.Err()
		}

		if !message.IsRetryable(err) {
			err = message.NewRetryable(message.CodeUnknown, "gateway dispatch failed", err)
		}

		// The gateway drops messages whose msg_seq it has already seen.
		// Start the counter over and pick a fresh sequence for the retry.
		if message.ErrCode(err) == message.CodeSequenceConflict {
			c.sequence.Reset(key)
			msg.Sequence = c.sequence.Next(key)
			c.logger.Warn("sequence conflict, counter reset",
				"conversation", key.String(),
				"new_seq", msg.Sequence)
		}

		lastErr = err
		c.logger.Warn("transient dispatch failure",
			"conversation", key.String(),
			"msg_id", msg.MsgID,
			"attempt", attempts,
			"error", err)
	}

	c.record(msg, store.StatusFailed, lastErr.Error(), attempts)
	return nil, lastErr
}

// waitRetry sleeps for the fixed retry delay, honoring cancellation.
func (c *Coordinator) waitRetry(ctx context.Context) error {
	if c.cfg.RetryDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// record persists a terminal outcome with a detached timeout context so the
// ledger write survives caller cancellation.
func (c *Coordinator) record(msg *message.Outbound, status store.Status, detail string, attempts int) {
	if c.ledger == nil {
		return
	}

	rec := &store.Record{
		ID:               uuid.New().String(),
		ConversationKind: string(msg.Key.Kind),
		ConversationID:   msg.Key.ID,
		MessageID:        msg.MsgID,
		MessageType:      int(msg.Type),
		Sequence:         msg.Sequence,
		Status:           status,
		Detail:           detail,
		Attempts:         attempts,
		CreatedAt:        time.Now(),
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.ledger.RecordDispatch(saveCtx, rec); err != nil {
		c.logger.Error("failed to record dispatch",
			"error", err,
			"conversation", msg.Key.String(),
			"msg_id", msg.MsgID)
	}
}

// Close stops the janitor, waits for in-flight sends to finish, and discards
// all per-conversation state. Not safe to call while new sends are still
// being submitted. Safe to call multiple times.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.janitorWG.Wait()
	c.inflight.Wait()

	c.sequence.reset()
	c.limiter.reset()
	c.dedupe.reset()
	c.queue.reset()
	c.logger.Info("dispatch coordinator stopped")
}

// normalizeContent replaces the heavy horizontal bar, which the gateway
// rejects in some render paths, with a plain dash.
func normalizeContent(content string) string {
	return strings.ReplaceAll(content, "━", "-")
}
