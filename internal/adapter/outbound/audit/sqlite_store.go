// Package audit persists the dispatch audit trail to a local SQLite
// database. Every tool invocation becomes one row recording who was
// targeted, what ran, and how it ended.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one audited tool invocation.
type Record struct {
	ID         string
	Time       time.Time
	Tool       string
	Org        string
	Outcome    string
	Reason     string
	DurationMS int64
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	ts          INTEGER NOT NULL,
	tool        TEXT NOT NULL,
	org         TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_log (ts);
CREATE INDEX IF NOT EXISTS idx_audit_tool ON audit_log (tool);
`

// SQLiteStore writes audit records to a SQLite file. Safe for concurrent
// use; database/sql serializes access to the single writer connection.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the audit database at path.
// ":memory:" gives an ephemeral store for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	// modernc's driver is not safe for concurrent writes over multiple
	// connections to the same file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Write persists a batch of records in one transaction.
func (s *SQLiteStore) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning audit transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audit_log (id, ts, tool, org, outcome, reason, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing audit insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Time.UnixMilli(), r.Tool, r.Org, r.Outcome, r.Reason, r.DurationMS); err != nil {
			return fmt.Errorf("inserting audit record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, tool, org, outcome, reason, duration_ms FROM audit_log ORDER BY ts DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var ts int64
		if err := rows.Scan(&r.ID, &ts, &r.Tool, &r.Org, &r.Outcome, &r.Reason, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		r.Time = time.UnixMilli(ts).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
