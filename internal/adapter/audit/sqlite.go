// Package audit persists command audit events to SQLite.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nmfisher/figma-mcp/internal/domain"
)

// SQLiteAuditLogger implements domain.AuditLogger using SQLite.
type SQLiteAuditLogger struct {
	db *sql.DB
}

// NewSQLiteAuditLogger opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteAuditLogger(dbPath string) (*SQLiteAuditLogger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &SQLiteAuditLogger{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS command_audit (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			ts          TEXT NOT NULL,
			type        TEXT NOT NULL,
			method      TEXT NOT NULL DEFAULT '',
			outcome     TEXT NOT NULL DEFAULT '',
			error_code  TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// Log implements domain.AuditLogger.
func (l *SQLiteAuditLogger) Log(ctx context.Context, event domain.AuditEvent) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO command_audit (ts, type, method, outcome, error_code, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
		ts.Format(time.RFC3339Nano), string(event.Type), event.Method,
		event.Outcome, event.ErrorCode, event.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (l *SQLiteAuditLogger) Close() error {
	return l.db.Close()
}
