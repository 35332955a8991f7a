// ABOUTME: Ledger interface and record types for dispatch outcome persistence
// ABOUTME: Defines the Record struct and status constants shared by SQLite and mock implementations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("ledger is closed")

// Status is the terminal outcome of a send.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

// Record is one ledger entry: the terminal outcome of a single send request.
type Record struct {
	ID               string
	ConversationKind string // "group" or "user"
	ConversationID   string
	MessageID        string
	MessageType      int
	Sequence         int64
	Status           Status
	Detail           string // error text for failed records
	Attempts         int
	CreatedAt        time.Time
}

// Ledger records dispatch outcomes and serves conversation history.
type Ledger interface {
	// RecordDispatch appends a record to the ledger.
	RecordDispatch(ctx context.Context, rec *Record) error

	// RecentByConversation returns up to limit records for a conversation,
	// newest first.
	RecentByConversation(ctx context.Context, kind, id string, limit int) ([]*Record, error)

	// Close releases the underlying storage.
	Close() error
}
