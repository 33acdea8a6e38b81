package seed

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/capcost/internal/preset"
)

// Config contains the values required by startup seed.
type Config struct {
	Catalog preset.Catalog
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way. Cap types missing from
// the table are inserted; existing rows whose overrides or position differ
// from the catalog are updated.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	for i, p := range cfg.Catalog.Presets() {
		if err := ensureCapType(tx, p, i, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureCapType(tx *sql.Tx, p preset.Preset, sortOrder int, stats *Stats) error {
	var (
		cavities    sql.NullFloat64
		capsPerSack sql.NullFloat64
		order       int
	)
	err := tx.QueryRow(`
		SELECT cavities, caps_per_sack, sort_order
		FROM cap_types
		WHERE label = ?
	`, p.Label).Scan(&cavities, &capsPerSack, &order)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.Exec(`
			INSERT INTO cap_types (label, cavities, caps_per_sack, sort_order)
			VALUES (?, ?, ?, ?)
		`, p.Label, nullable(p.Cavities), nullable(p.CapsPerSack), sortOrder); err != nil {
			return fmt.Errorf("insert cap type %q: %w", p.Label, err)
		}
		stats.Inserts++
		return nil
	}
	if err != nil {
		return fmt.Errorf("check cap type %q existence: %w", p.Label, err)
	}

	if sameValue(cavities, p.Cavities) && sameValue(capsPerSack, p.CapsPerSack) && order == sortOrder {
		return nil
	}

	if _, err := tx.Exec(`
		UPDATE cap_types
		SET
			cavities = ?,
			caps_per_sack = ?,
			sort_order = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE label = ?
	`, nullable(p.Cavities), nullable(p.CapsPerSack), sortOrder, p.Label); err != nil {
		return fmt.Errorf("update cap type %q: %w", p.Label, err)
	}
	stats.Updates++
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func sameValue(stored sql.NullFloat64, want *float64) bool {
	if want == nil {
		return !stored.Valid
	}
	return stored.Valid && stored.Float64 == *want
}
