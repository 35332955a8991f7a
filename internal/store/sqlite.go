// ABOUTME: SQLite implementation of the Ledger interface using modernc.org/sqlite
// ABOUTME: Schema is created on open; WAL mode for concurrent readers

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteLedger implements the Ledger interface using SQLite.
type SQLiteLedger struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteLedger opens (or creates) a ledger database at the given path.
// Parent directories are created if needed.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	l := &SQLiteLedger{
		db:     db,
		logger: logger,
	}

	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("dispatch ledger initialized", "path", path)
	return l, nil
}

// createSchema creates the ledger table if it doesn't exist
func (l *SQLiteLedger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS dispatch_log (
			id TEXT PRIMARY KEY,
			conv_kind TEXT NOT NULL,
			conv_id TEXT NOT NULL,
			msg_id TEXT NOT NULL,
			msg_type INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			status TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			attempts INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_dispatch_log_conversation
			ON dispatch_log(conv_kind, conv_id, created_at DESC);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// RecordDispatch appends a record to the ledger.
func (l *SQLiteLedger) RecordDispatch(ctx context.Context, rec *Record) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO dispatch_log (id, conv_kind, conv_id, msg_id, msg_type, seq, status, detail, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ConversationKind, rec.ConversationID, rec.MessageID,
		rec.MessageType, rec.Sequence, string(rec.Status), rec.Detail,
		rec.Attempts, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch record: %w", err)
	}
	return nil
}

// RecentByConversation returns up to limit records for a conversation, newest first.
func (l *SQLiteLedger) RecentByConversation(ctx context.Context, kind, id string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, conv_kind, conv_id, msg_id, msg_type, seq, status, detail, attempts, created_at
		FROM dispatch_log
		WHERE conv_kind = ? AND conv_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		kind, id, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.ConversationKind, &rec.ConversationID,
			&rec.MessageID, &rec.MessageType, &rec.Sequence, &status,
			&rec.Detail, &rec.Attempts, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning dispatch record: %w", err)
		}
		rec.Status = Status(status)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatch records: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Verify interface compliance.
var _ Ledger = (*SQLiteLedger)(nil)
