package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/capcost/internal/db"
	"github.com/Simplici0/capcost/internal/migrations"
	"github.com/Simplici0/capcost/internal/preset"
)

func TestRunIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	cfg := Config{Catalog: preset.Default()}

	for i := 0; i < 10; i++ {
		stats, err := Run(database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 6 {
				t.Fatalf("expected 6 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Updates != 0 {
			t.Fatalf("expected no writes in iteration %d, got %+v", i, stats)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM cap_types`, nil, 6)
	assertCount(t, database, `SELECT COUNT(*) FROM cap_types WHERE cavities IS NULL AND caps_per_sack IS NULL`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM cap_types WHERE label = ? AND cavities = 6 AND caps_per_sack = 3000`, "83mm", 1)
}

func TestRunUpdatesChangedOverrides(t *testing.T) {
	database := openTestDB(t)
	if _, err := Run(database, Config{Catalog: preset.Default()}); err != nil {
		t.Fatalf("initial seed: %v", err)
	}

	twelve := 12.0
	changed := preset.NewCatalog(append(preset.Default().Presets(), preset.Preset{Label: "53mm", Cavities: &twelve}))

	stats, err := Run(database, Config{Catalog: changed})
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if stats.Inserts != 0 || stats.Updates != 1 {
		t.Fatalf("expected a single update, got %+v", stats)
	}

	catalog, err := preset.Query(context.Background(), database)
	if err != nil {
		t.Fatalf("query catalog: %v", err)
	}
	p, ok := catalog.Lookup("53mm")
	if !ok || p.Cavities == nil || *p.Cavities != 12 || p.CapsPerSack != nil {
		t.Fatalf("unexpected 53mm preset after reseed: %+v", p)
	}
	if got := catalog.Labels(); got[0] != "53mm" || got[5] != "120mm" {
		t.Fatalf("unexpected label order: %v", got)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
