// Package store is the embedded SQL persistence layer (spec §4.A): a single
// connection, a single writer mutex shared by every component, and the
// numbered-migration bootstrap.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the shared *sql.DB behind the exclusive mutex spec §5 calls
// for: "single mutex<connection>, exclusive... readers take the same lock
// (the underlying store is not relied upon for in-process concurrency)".
// It is reference-counted across components simply by being held as a
// pointer in each component's constructor — no explicit refcount is needed
// in Go, where the GC already keeps it alive as long as any holder exists.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and applies
// every pending migration forward.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // the driver itself is not asked to arbitrate concurrency; Store.mu does.

	s := &Store{db: db}
	if err := s.migrateToLatest(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Exec runs a write statement under the exclusive writer lock.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.ExecContext(ctx, query, args...)
}

// Query runs a read statement under the same lock — spec §5: "readers take
// the same lock" since the store is not relied on for in-process
// concurrency control.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryRow runs a single-row read statement under the writer lock.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.QueryRowContext(ctx, query, args...)
}

// WithTx runs fn inside a transaction held under the exclusive writer lock,
// used by the multi-statement "single locked section" operations spec §4.F
// requires (replace, activate).
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing transaction: %w", err)
	}
	return nil
}

// DB exposes the raw connection without taking the writer lock. Nothing in
// the repository calls it; /admin/sql runs through Query like every other
// reader.
func (s *Store) DB() *sql.DB { return s.db }

// Lock/Unlock expose the writer mutex directly. Nothing in the repository
// calls them.
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }
