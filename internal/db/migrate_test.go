package db_test

import (
	"context"
	"testing"

	migrationFS "github.com/sboruta/tracker/db"
	dbpkg "github.com/sboruta/tracker/internal/db"
)

func TestMigrate_AppliesSchema(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer d.Close()

	if err := dbpkg.Migrate(ctx, d, migrationFS.Migrations); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	// every migration file must be recorded
	var applied int
	row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`)
	if err := row.Scan(&applied); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if applied == 0 {
		t.Fatalf("expected at least one recorded migration, got 0")
	}

	// spot-check tables the agent depends on
	for _, table := range []string{"companies", "employees", "sessions", "screenshots", "activity_logs", "sync_cursors"} {
		var name string
		row := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err := row.Scan(&name); err != nil {
			t.Fatalf("expected table %q to exist: %v", table, err)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	d, err := dbpkg.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer d.Close()

	if err := dbpkg.Migrate(ctx, d, migrationFS.Migrations); err != nil {
		t.Fatalf("first Migrate returned error: %v", err)
	}

	var first int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&first); err != nil {
		t.Fatalf("scan count after first run: %v", err)
	}

	// running again must not re-apply or fail
	if err := dbpkg.Migrate(ctx, d, migrationFS.Migrations); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}

	var second int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&second); err != nil {
		t.Fatalf("scan count after second run: %v", err)
	}
	if first != second {
		t.Fatalf("expected %d applied migrations after rerun, got %d", first, second)
	}
}
