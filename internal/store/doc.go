// Package store persists the dispatch ledger: one record per terminal send
// outcome (delivered, suppressed duplicate, or failed), queryable by
// conversation for history and audit.
package store
