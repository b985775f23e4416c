package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestOpenRunsMigrations(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	wantTables := []string{
		"NodeMappings", "Sequences", "ForwardingTargets", "VehicleSnapshots", "ExportRecords", "RequestLog",
	}
	for _, table := range wantTables {
		var name string
		err := st.QueryRow(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after Open: %v", table, err)
		}
	}
}

func TestOpenIsIdempotentAcrossReopens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() + "/database.sqlite"

	first, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := first.Exec(ctx,
		`INSERT INTO Sequences (name, script, configuration_id) VALUES (?, ?, NULL)`,
		"seq-a", "do-thing",
	); err != nil {
		t.Fatalf("inserting row: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("closing first handle: %v", err)
	}

	second, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("second Open (re-running migrations against existing schema): %v", err)
	}
	defer second.Close()

	var count int
	if err := second.QueryRow(ctx, `SELECT COUNT(*) FROM Sequences WHERE name = ?`, "seq-a").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1 (data must survive a migration re-run)", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	sentinelErr := errors.New("boom")
	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, execErr := tx.ExecContext(ctx,
			`INSERT INTO Sequences (name, script, configuration_id) VALUES (?, ?, NULL)`,
			"seq-rolled-back", "do-thing",
		); execErr != nil {
			t.Fatalf("inserting within tx: %v", execErr)
		}
		return sentinelErr
	})
	if !errors.Is(err, sentinelErr) {
		t.Fatalf("WithTx error = %v, want %v", err, sentinelErr)
	}

	var count int
	if err := st.QueryRow(ctx, `SELECT COUNT(*) FROM Sequences WHERE name = ?`, "seq-rolled-back").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("row count = %d, want 0 (transaction should have rolled back)", count)
	}
}

func TestDowngradeThenReopenReappliesMigrations(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir() + "/database.sqlite"

	st, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Downgrade(ctx, 0); err != nil {
		t.Fatalf("Downgrade(0): %v", err)
	}

	var name string
	err = st.QueryRow(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ExportRecords'`,
	).Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("ExportRecords still exists after downgrading to 0, lookup err = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("reopening after downgrade: %v", err)
	}
	defer reopened.Close()

	if err := reopened.QueryRow(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'ExportRecords'`,
	).Scan(&name); err != nil {
		t.Fatalf("ExportRecords missing after reopen re-applies migrations: %v", err)
	}
}
