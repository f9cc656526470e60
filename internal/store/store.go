package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations run in order on top of schema.sql; the database's
// user_version records how many have been applied.
var migrations = []struct {
	name string
	stmt string
}{
	{"instance index", `CREATE INDEX IF NOT EXISTS idx_trace_events_instance
		ON trace_events(run_id, instance, seq)`},
	{"automaton index", `CREATE INDEX IF NOT EXISTS idx_trace_events_automaton
		ON trace_events(run_id, automaton, type)`},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Store persists runs and their trace events in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	busyTimeout time.Duration
}

// WithLogger sets the logger (slog.Default by default).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBusyTimeout sets how long a writer waits on a locked database.
//
// Default: 5s
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// Open opens the database at path, creating it when missing, and brings
// the schema up to date. Opening an existing store is safe.
//
// The connection runs in WAL mode with foreign keys enforced and a single
// writer.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default(), busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(db, o); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	o.logger.Debug("trace store opened", "path", path, "schema_version", SchemaVersion)
	return &Store{db: db, logger: o.logger}, nil
}

func setup(db *sql.DB, o options) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db, o.logger)
}

func migrate(db *sql.DB, logger *slog.Logger) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		m := migrations[i]
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		logger.Debug("trace store migrated", "version", i+1, "migration", m.name)
	}
	if version < len(migrations) {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
			return fmt.Errorf("write user_version: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("pragma %s: %w", name, err)
	}
	return value, nil
}
