// Package storage persists worker reliability profiles, per-worker task
// history, and an audit log of emitted verification results in SQLite.
// It implements the store interfaces consumed by the verification
// orchestrator.
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to a SQLite database.
type DB struct {
	db *sql.DB
}

// NewDB opens (or creates) a SQLite database at path and runs schema
// migrations.
func NewDB(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	d := &DB{db: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// migrate creates all required tables if they do not already exist.
func (d *DB) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS worker_metrics (
    worker_id TEXT PRIMARY KEY,
    accuracy REAL NOT NULL,
    consistency REAL NOT NULL,
    speed_score REAL NOT NULL,
    reputation_score REAL NOT NULL,
    average_task_time REAL NOT NULL,
    current_task_type TEXT,
    total_tasks INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS performance_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    worker_id TEXT NOT NULL,
    accuracy REAL NOT NULL,
    duration_ms INTEGER NOT NULL,
    task_type TEXT,
    completed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_worker ON performance_history(worker_id, id);

CREATE TABLE IF NOT EXISTS task_type_averages (
    worker_id TEXT NOT NULL,
    task_type TEXT NOT NULL,
    avg_ms REAL NOT NULL,
    samples INTEGER NOT NULL,
    PRIMARY KEY (worker_id, task_type)
);

CREATE TABLE IF NOT EXISTS verification_results (
    result_id TEXT NOT NULL,
    task_id TEXT NOT NULL,
    status TEXT NOT NULL,
    strategy TEXT,
    confidence_level TEXT NOT NULL,
    confidence REAL,
    risk_level TEXT,
    processed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_processed ON verification_results(processed_at);
`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
