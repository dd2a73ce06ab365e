// Package history persists completed repetitions to a local SQLite
// database so lifetime totals survive restarts.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the rep-history database.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStore opens (or creates) the database at path and ensures the schema
// exists.
func NewStore(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		panic("Store: logger cannot be nil")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rep_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exercise TEXT NOT NULL,
			count INTEGER NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	logger.Printf("Store: history db open at %s", path)
	return &Store{db: db, logger: logger}, nil
}

// RecordRep stores one completed repetition. count is the session counter
// value after the rep.
func (s *Store) RecordRep(exercise string, count int, ts time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO rep_events (exercise, count, timestamp) VALUES (?, ?, ?)`,
		exercise, count, ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording rep: %w", err)
	}
	return nil
}

// TotalsByExercise returns the lifetime rep total for each exercise that
// has ever been recorded.
func (s *Store) TotalsByExercise() (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT exercise, COUNT(*) FROM rep_events GROUP BY exercise`)
	if err != nil {
		return nil, fmt.Errorf("querying totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var exercise string
		var total int
		if err := rows.Scan(&exercise, &total); err != nil {
			return nil, fmt.Errorf("scanning totals: %w", err)
		}
		totals[exercise] = total
	}
	return totals, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
