// Package journal persists the pipeline's audit trail in sqlite: signals,
// risk assessments, order executions, weekly performance ledgers, quality
// measurements and health snapshots. One journal file per deployment.
package journal

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("journal: not found")

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the journal at path and applies the schema.
// Use ":memory:" for an ephemeral journal.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// A single writer connection sidesteps SQLITE_BUSY under concurrent
	// pipeline stages.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
