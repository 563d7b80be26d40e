package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// msPerSecond converts seconds to milliseconds for the busy timeout pragma.
	msPerSecond = 1000

	// connectTimeout bounds the connectivity check at open.
	connectTimeout = 5 * time.Second

	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// schema holds the command history table. One row per dispatched frame.
const schema = `
CREATE TABLE IF NOT EXISTS command_history (
	id          TEXT PRIMARY KEY,
	command     TEXT NOT NULL,
	accepted    INTEGER NOT NULL,
	received_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_command_history_received_at
	ON command_history (received_at DESC);
`

// Config contains audit store options.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	Path string

	// WALMode enables Write-Ahead Logging.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Entry is one dispatched command outcome.
type Entry struct {
	ID         string
	Command    string
	Accepted   bool
	ReceivedAt time.Time
}

// NewEntry creates an Entry for a just-dispatched command.
func NewEntry(command string, accepted bool) Entry {
	return Entry{
		ID:         uuid.NewString(),
		Command:    command,
		Accepted:   accepted,
		ReceivedAt: time.Now().UTC(),
	}
}

// Store is the local command history, kept outside the broker path so a
// dead uplink still leaves a trace of what it actuated.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the audit store, creating the database file and schema if
// they do not exist.
//
// Parameters:
//   - cfg: Store configuration
//
// Returns:
//   - *Store: Ready store
//   - error: If the directory, connection or schema setup fails
func Open(cfg Config) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying audit database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

// Record inserts one command outcome.
//
// Returns:
//   - error: nil on success, otherwise the underlying database error. The
//     supervisor logs failures and carries on; history is best-effort.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}

	accepted := 0
	if entry.Accepted {
		accepted = 1
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO command_history (id, command, accepted, received_at) VALUES (?, ?, ?, ?)",
		entry.ID,
		entry.Command,
		accepted,
		entry.ReceivedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting command history: %w", err)
	}
	return nil
}

// Recent returns the latest command outcomes, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, accepted, received_at
		 FROM command_history
		 ORDER BY received_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying command history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var accepted int
		var receivedAt string

		if err := rows.Scan(&entry.ID, &entry.Command, &accepted, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning command history: %w", err)
		}
		entry.Accepted = accepted != 0

		ts, parseErr := time.Parse(time.RFC3339Nano, receivedAt)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing command timestamp: %w", parseErr)
		}
		entry.ReceivedAt = ts

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command history: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the store is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("audit health check: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
