// Package sqlite implements the usage store on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no cgo, so the binary stays cross-compilable.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
)

// Ensure UsageStore implements the interface.
var _ driven.UsageStore = (*UsageStore)(nil)

// UsageStore records tool invocations in a SQLite database.
type UsageStore struct {
	db   *sql.DB
	path string
}

// NewUsageStore creates a usage store at the specified data directory.
// If dataDir is empty, defaults to ~/.conduit/data/usage.db.
func NewUsageStore(dataDir string) (*UsageStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".conduit", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "usage.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &UsageStore{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *UsageStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_calls (
			id TEXT PRIMARY KEY,
			connector TEXT NOT NULL,
			tool TEXT NOT NULL,
			ok INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			called_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tool_calls_called_at ON tool_calls(called_at);
	`)
	return err
}

// Record persists one invocation. A zero ID gets a fresh UUID; a zero
// timestamp gets the current time.
func (s *UsageStore) Record(ctx context.Context, rec driven.UsageRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	ok := 0
	if rec.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (id, connector, tool, ok, duration_ms, called_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Connector, rec.Tool, ok, rec.Duration.Milliseconds(), rec.At.Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording tool call: %w", err)
	}
	return nil
}

// Report aggregates invocations since the given time, grouped by connector
// and tool, ordered by call count descending.
func (s *UsageStore) Report(ctx context.Context, since time.Time) ([]driven.UsageSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT connector, tool,
		        COUNT(*) AS calls,
		        SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END) AS errors,
		        CAST(AVG(duration_ms) AS INTEGER) AS avg_ms
		 FROM tool_calls
		 WHERE called_at >= ?
		 GROUP BY connector, tool
		 ORDER BY calls DESC, connector, tool`,
		since.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying usage: %w", err)
	}
	defer rows.Close()

	var out []driven.UsageSummary
	for rows.Next() {
		var sum driven.UsageSummary
		if err := rows.Scan(&sum.Connector, &sum.Tool, &sum.Calls, &sum.Errors, &sum.AvgMillis); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage rows: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *UsageStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *UsageStore) Path() string {
	return s.path
}
