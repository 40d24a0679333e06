// Package sqlite is the storage layer: a SQLite database treated as a
// disposable materialized view over the append-only trail. Every
// mutation runs in its own transaction and, on commit, emits a trail
// operation through the configured appender. Replay runs the same
// per-table apply code with the appender detached.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/casefile/pkg/types"
)

// TrailAppender receives one operation per committed mutation. The
// trail writer implements it; replay installs nil so rebuilding never
// re-logs its own writes.
type TrailAppender interface {
	Append(op types.TrailOperation) error
}

// Store wraps the SQLite handle, the resolved configuration, and the
// trail appender.
type Store struct {
	db     *sql.DB
	config types.Config
	log    *slog.Logger

	mu    sync.Mutex
	trail TrailAppender
}

// Open creates the data directory if needed, opens the database, and
// applies the schema. The returned store has no trail appender; callers
// attach one with SetTrail.
func Open(config types.Config, log *slog.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, config: config, log: log}
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) applySchema() error {
	for _, stmt := range schemaDDL {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("applying indexes: %w", err)
		}
	}
	return nil
}

// Reset empties every table so a replay starts from nothing. The FTS
// delete trigger fires per decision row, keeping the index consistent.
func (s *Store) Reset() error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{
		"decision_option_evidence", "decision_outcomes", "decision_options",
		"decisions", "entity_links", "audit_trail",
		"tasks", "insights", "hypotheses", "findings", "research_items", "sessions",
	} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("resetting %s: %w", table, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM sqlite_sequence WHERE name = 'audit_trail'"); err != nil {
		return fmt.Errorf("resetting audit sequence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Config returns the resolved configuration the store was opened with.
func (s *Store) Config() types.Config {
	return s.config
}

// SetTrail installs or detaches the trail appender.
func (s *Store) SetTrail(t TrailAppender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trail = t
}

// appendTrail logs one operation for a committed mutation. Trail append
// failure never fails the mutation; the database already holds the row
// and the caller can rebuild the line from it.
func (s *Store) appendTrail(op types.TrailOperation) {
	s.mu.Lock()
	t := s.trail
	s.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.Append(op); err != nil {
		s.log.Warn("trail append failed",
			"op", op.Op, "entity", op.Entity, "id", op.EntityID, "error", err)
	}
}

// begin starts a transaction. Every public mutation wraps exactly one.
func (s *Store) begin() (*sql.Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// newID returns a UUID v7 string, falling back to v4 when the monotonic
// clock source is unavailable.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// formatTime renders a timestamp the way every table stores it.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime reads a stored timestamp back.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// rowExists reports whether a row with the given id exists in table.
// The table name always comes from a compile-time constant.
func rowExists(q queryer, table, id string) (bool, error) {
	var one int
	err := q.QueryRow("SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s existence: %w", table, err)
	}
	return true, nil
}

// queryer is the common subset of *sql.DB and *sql.Tx the helpers use.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}
