package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Fresh or foreign file (no catalog schema yet)
// 1 - protocols(seq, id, body)
const currentSchemaVersion = 1

var (
	// ErrStorageUnavailable is returned when the store file cannot be opened
	// or read by the storage engine for reasons other than absence.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrReplaceFailed is returned when ReplaceAll could not commit.
	// The previous contents are left intact.
	ErrReplaceFailed = errors.New("replace failed")
)

// Store provides durable storage for the protocol catalog.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the catalog schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Every failure matches ErrStorageUnavailable. A file that exists but is not
// a SQLite database, or carries an unsupported schema version, fails here.
func Open(path string) (*Store, error) {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", ErrStorageUnavailable, path, err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, path, err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, path, err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenReadOnly opens an existing store file without writing to it: no
// pragmas that change the file, no schema, no user_version update. The file
// is not created if it is missing.
//
// A store opened this way may lack the protocols table; use Initialized
// before scanning. Every failure matches ErrStorageUnavailable.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, path, err)
	}

	dsn := (&url.URL{Scheme: "file", OmitHost: true, Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorageUnavailable, path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, path, err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s: get user_version: %w", ErrStorageUnavailable, path, err)
	}
	if version > currentSchemaVersion {
		db.Close()
		return nil, fmt.Errorf("%w: %s: unsupported schema version %d (want <= %d)",
			ErrStorageUnavailable, path, version, currentSchemaVersion)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the catalog table if it doesn't exist and checks the
// schema version. This function is idempotent.
func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want <= %d)", version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// Quarantine moves an unreadable store file and its WAL sidecars out of the
// way so a fresh file can be created at path. It returns the new location of
// the main file, or "" if there was nothing to move.
//
// The caller must not hold an open Store on path.
func Quarantine(path string, now time.Time) (string, error) {
	suffix := fmt.Sprintf(".corrupt-%d", now.UnixNano())
	dest := path + suffix

	moved := ""
	for _, f := range []string{path, path + "-wal", path + "-shm"} {
		err := os.Rename(f, f+suffix)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("quarantine %s: %w", f, err)
		}
		if f == path {
			moved = dest
		}
	}
	return moved, nil
}
