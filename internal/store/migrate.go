package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations
var migrationsFS embed.FS

const migrationsRoot = "migrations"

// migration is one numbered directory's up/down scripts.
type migration struct {
	id   int
	up   string
	down string
}

// availableMigrations scans migrationsFS for numeric directory prefixes
// (e.g. "0001_init"), ordered ascending by the numeric id — spec §4.A:
// "Migration resolves by scanning available numeric directory names, picks
// the max, and applies up scripts forward... to reach the target."
func availableMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, migrationsRoot)
	if err != nil {
		return nil, fmt.Errorf("store: reading migrations directory: %w", err)
	}

	var out []migration
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		idStr, _, _ := strings.Cut(e.Name(), "_")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue // not a numbered migration directory; ignore
		}
		up, err := migrationsFS.ReadFile(migrationsRoot + "/" + e.Name() + "/up.sql")
		if err != nil {
			return nil, fmt.Errorf("store: reading up.sql for migration %d: %w", id, err)
		}
		down, err := migrationsFS.ReadFile(migrationsRoot + "/" + e.Name() + "/down.sql")
		if err != nil {
			return nil, fmt.Errorf("store: reading down.sql for migration %d: %w", id, err)
		}
		out = append(out, migration{id: id, up: string(up), down: string(down)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

// migrateToLatest bootstraps the Migrations table if missing, then applies,
// in ascending id order, every migration whose id is not yet recorded.
// Failure at any step aborts without recording partial progress (spec
// §4.A): each migration runs as its own transaction via WithTx.
func (s *Store) migrateToLatest(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS Migrations (migration_id INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("store: bootstrapping Migrations table: %w", err)
	}

	migrations, err := availableMigrations()
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		return nil
	}

	applied, err := s.appliedMigrationIDs(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.id] {
			continue
		}
		if err := s.applyUp(ctx, m); err != nil {
			return fmt.Errorf("store: applying migration %d: %w", m.id, err)
		}
	}
	return nil
}

func (s *Store) appliedMigrationIDs(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT migration_id FROM Migrations`)
	if err != nil {
		return nil, fmt.Errorf("store: reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scanning applied migration id: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

func (s *Store) applyUp(ctx context.Context, m migration) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("running up.sql: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO Migrations (migration_id) VALUES (?)`, m.id); err != nil {
			return fmt.Errorf("recording migration id: %w", err)
		}
		return nil
	})
}

// Downgrade reverses every applied migration with id greater than target,
// in descending order — spec §4.A's "applies... down scripts in reverse to
// reach the target." Called only from the store tests; `servo clean`
// removes the whole servo directory instead.
func (s *Store) Downgrade(ctx context.Context, target int) error {
	migrations, err := availableMigrations()
	if err != nil {
		return err
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].id > migrations[j].id })

	applied, err := s.appliedMigrationIDs(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.id <= target || !applied[m.id] {
			continue
		}
		if err := s.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.down); err != nil {
				return fmt.Errorf("running down.sql: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM Migrations WHERE migration_id = ?`, m.id); err != nil {
				return fmt.Errorf("removing migration id: %w", err)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("store: reverting migration %d: %w", m.id, err)
		}
	}
	return nil
}
