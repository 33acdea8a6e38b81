package preset

import (
	"context"
	"database/sql"
	"fmt"
)

// Query loads the catalog stored in the cap_types table, in selector order.
func Query(ctx context.Context, db *sql.DB) (Catalog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT label, cavities, caps_per_sack
		FROM cap_types
		ORDER BY sort_order, id
	`)
	if err != nil {
		return Catalog{}, fmt.Errorf("query cap types: %w", err)
	}
	defer rows.Close()

	presets := make([]Preset, 0)
	for rows.Next() {
		var (
			p           Preset
			cavities    sql.NullFloat64
			capsPerSack sql.NullFloat64
		)
		if err := rows.Scan(&p.Label, &cavities, &capsPerSack); err != nil {
			return Catalog{}, fmt.Errorf("scan cap type: %w", err)
		}
		if cavities.Valid {
			p.Cavities = ptr(cavities.Float64)
		}
		if capsPerSack.Valid {
			p.CapsPerSack = ptr(capsPerSack.Float64)
		}
		presets = append(presets, p)
	}

	if err := rows.Err(); err != nil {
		return Catalog{}, fmt.Errorf("iterate cap types: %w", err)
	}

	return NewCatalog(presets), nil
}
