package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on history.image_id
const currentSchemaVersion = 1

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// memoryReaderDriver opens read connections onto a shared-cache in-memory
// database. Uncommitted reads keep an open cursor from holding table locks
// that would block the writer.
const memoryReaderDriver = "sqlite3_memory_reader"

func init() {
	sql.Register(memoryReaderDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA read_uncommitted = 1; PRAGMA query_only = 1", nil)
			return err
		},
	})
}

// DefaultBusyTimeout is used when Options.BusyTimeout is zero.
const DefaultBusyTimeout = 5 * time.Second

// Options configures a Store.
type Options struct {
	// BusyTimeout bounds how long a connection waits on a locked database.
	BusyTimeout time.Duration

	// Logger receives lifecycle events. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Store is the SQLite storage engine.
type Store struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu     sync.RWMutex
	writer *sql.DB
	reader *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// Use MemoryPath for a private in-memory database.
//
// This function is idempotent - safe to call multiple times on one path.
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty database path")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Store{path: path, opts: opts, logger: logger}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenMemory opens a private in-memory store.
func OpenMemory(opts Options) (*Store, error) {
	return Open(MemoryPath, opts)
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// IsMemory reports whether the store is in-memory.
func (s *Store) IsMemory() bool {
	return s.path == MemoryPath
}

// Readable returns the handle used for reads.
func (s *Store) Readable() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reader
}

// Writable returns the handle used for writes.
func (s *Store) Writable() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writer
}

// Close closes both handles.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// Reset drops the whole database and recreates it with an empty schema.
//
// On failure the store has no open handles; a later Reset may succeed.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return fmt.Errorf("close for reset: %w", err)
	}

	if !s.IsMemory() {
		for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm", s.path + "-journal"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", p, err)
			}
		}
	}

	if err := s.openLocked(); err != nil {
		return fmt.Errorf("reopen after reset: %w", err)
	}

	s.logger.Info("store reset", "path", s.path)
	return nil
}

func (s *Store) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Store) openLocked() error {
	path := s.path
	if s.IsMemory() {
		// Every open gets a fresh name, so a connection left over from before
		// a reset can never resurrect the old contents.
		path = fmt.Sprintf("file:dataprovider-%s?mode=memory&cache=shared", uuid.NewString())
	}

	writer, err := openWriter(path, s.opts.BusyTimeout)
	if err != nil {
		return err
	}

	var reader *sql.DB
	if s.IsMemory() {
		reader, err = openMemoryReader(path, s.opts.BusyTimeout)
	} else {
		reader, err = openReader(path, s.opts.BusyTimeout)
	}
	if err != nil {
		writer.Close()
		return err
	}

	s.writer, s.reader = writer, reader
	return nil
}

func (s *Store) closeLocked() error {
	var errs []error
	if s.reader != nil {
		errs = append(errs, s.reader.Close())
	}
	if s.writer != nil {
		errs = append(errs, s.writer.Close())
	}
	s.writer, s.reader = nil, nil
	return errors.Join(errs...)
}

// openWriter opens the single-connection write pool and applies the schema.
func openWriter(path string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// For in-memory stores the idle writer connection also keeps the
	// database alive between operations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db, busyTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// openReader opens a read-only pool onto a file database.
func openReader(path string, busyTimeout time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d&_foreign_keys=on",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open read handle: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect read handle: %w", err)
	}
	return db, nil
}

// openMemoryReader opens a read pool onto the shared-cache in-memory
// database named by dsn.
func openMemoryReader(dsn string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(memoryReaderDriver, fmt.Sprintf("%s&_busy_timeout=%d", dsn, busyTimeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to open read handle: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect read handle: %w", err)
	}
	return db, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes history by image for per-image history reads.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_image_id
		ON history(image_id)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.Writable().QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
