package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// Store owns the database handle. File databases are guarded by an exclusive
// lock file next to them for the lifetime of the store.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// NewStore opens the database, creating its directory when needed, and
// applies pending migrations.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}
	var lock *flock.Flock
	if cfg.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create database directory: %w", err)
		}
		var err error
		if lock, err = acquireLock(cfg.Path); err != nil {
			return nil, err
		}
	}
	store, err := openDB(ctx, cfg)
	if err != nil {
		releaseLock(lock)
		return nil, err
	}
	store.lock = lock
	return store, nil
}

func openDB(ctx context.Context, cfg *Config) (*Store, error) {
	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 || cfg.Path == memoryPath {
		// each in-memory connection would see its own empty database
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	releaseLock(s.lock)
	s.lock = nil
	return err
}

func acquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("sqlite: lock database: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("sqlite: database %s is in use by another run", path)
	}
	return lock, nil
}

func releaseLock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

func buildDSN(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	pragmas := []string{
		"_pragma=foreign_keys(ON)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy.Milliseconds()),
	}
	if cfg.Path == memoryPath {
		return "file::memory:?cache=shared&" + strings.Join(pragmas, "&")
	}
	pragmas = append([]string{"_pragma=journal_mode(WAL)"}, pragmas...)
	return "file:" + cfg.Path + "?" + strings.Join(pragmas, "&")
}
