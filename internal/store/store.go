// Package store implements Cord's persistent coordination store: the node
// tree, dependency edges, and status transitions that every other component
// reads and writes through. It is backed by SQLite in WAL mode.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Sentinel errors translated by the Tool Server into structured wire
// errors.
var (
	ErrNotFound      = errors.New("not_found")
	ErrAlreadyExists = errors.New("already_exists")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrInvalidNeeds  = errors.New("invalid_needs")
	ErrConflict      = errors.New("conflict")
)

// Store is a single-writer, multi-reader coordination store. All mutations
// go through Transaction so that the caller never has to reason about
// interleaving with another writer.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens (creating if necessary) a Cord store at path. Pass ":memory:"
// for an ephemeral in-process store, used by tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if path == ":memory:" {
		// A single shared connection keeps the in-memory database alive;
		// sql.DB otherwise opens a fresh, empty database per connection.
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

// Path returns the filesystem path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Transaction runs fn inside a single serializable SQLite transaction,
// committing on success and rolling back if fn returns an error or panics.
func (s *Store) Transaction(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// readLocked runs a read-only query while holding the read lock, so it can
// run concurrently with other readers but never during a writer's
// transaction.
func (s *Store) readLocked(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}
