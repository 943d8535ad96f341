package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/robalobadob/flagguessr/internal/database"
)

func TestMigrate(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	for _, table := range []string{"flags", "scores", "_migrations"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db, err := database.Open(database.Memory)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 recorded migrations, got %d", n)
	}
}
