// Package audit keeps a sqlite trail of generation events. Recording
// is best effort: a failing audit store must never block or fail a
// request, so errors land in the log and nowhere else.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	kind          TEXT NOT NULL,
	filename      TEXT NOT NULL DEFAULT '',
	rows_total    INTEGER NOT NULL DEFAULT 0,
	rows_rendered INTEGER NOT NULL DEFAULT 0,
	rows_skipped  INTEGER NOT NULL DEFAULT 0,
	success       INTEGER NOT NULL,
	detail        TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);`

// Event is one recorded generation, batch or single.
type Event struct {
	Kind         string // "batch" or "single"
	Filename     string
	RowsTotal    int
	RowsRendered int
	RowsSkipped  int
	Success      bool
	Detail       string // error text or skipped-row note
}

// Recorder writes generation events. A nil *Recorder is a valid no-op,
// so wiring the audit trail stays optional.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the audit database and ensures the
// schema exists.
func Open(path string, logger *slog.Logger) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}, nil
}

// Record inserts one event. Best effort: insert failures are logged
// and swallowed.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil {
		return
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_events
			(kind, filename, rows_total, rows_rendered, rows_skipped, success, detail, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		ev.Kind, ev.Filename, ev.RowsTotal, ev.RowsRendered, ev.RowsSkipped,
		ev.Success, ev.Detail, time.Now().Unix())
	if err != nil {
		r.logger.Error("audit event insert failed", "kind", ev.Kind, "error", err)
	}
}

func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.db.Close()
}
