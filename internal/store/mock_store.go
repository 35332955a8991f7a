// ABOUTME: Mock Ledger implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
)

// MockLedger is an in-memory Ledger implementation for testing.
type MockLedger struct {
	mu      sync.RWMutex
	records []*Record
	closed  bool
}

// NewMockLedger creates a new MockLedger.
func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

// RecordDispatch appends a copy of rec to the in-memory ledger.
func (m *MockLedger) RecordDispatch(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	r := *rec
	m.records = append(m.records, &r)
	return nil
}

// RecentByConversation returns up to limit records for a conversation, newest first.
func (m *MockLedger) RecentByConversation(ctx context.Context, kind, id string, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}

	var out []*Record
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.records[i]
		if rec.ConversationKind == kind && rec.ConversationID == id {
			r := *rec
			out = append(out, &r)
		}
	}
	return out, nil
}

// Records returns a snapshot of every record in insertion order.
func (m *MockLedger) Records() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		r := *rec
		out = append(out, &r)
	}
	return out
}

// Close marks the ledger closed. Subsequent operations return ErrClosed.
func (m *MockLedger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Verify interface compliance.
var _ Ledger = (*MockLedger)(nil)
