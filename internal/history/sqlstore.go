package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// SQLStore is a Store backed by the history_entries table.
//
// SQLite turns NaN into NULL, so a non-finite metric is written as NULL and its
// value is kept in the undefined_metrics column as "name=value" pairs.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore returns a Store using db. The schema must already be migrated.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const entryColumns = `
	id, created_at, time_label, cap_type,
	caps_per_minute, cap_weight, raw_material, electricity, labour,
	transport, packaging, eb, total_cost, selling_price, undefined_metrics`

func (s *SQLStore) Prepend(ctx context.Context, e Entry) error {
	metrics := e.metricFields()
	args := []any{e.ID, e.CreatedAt.UTC(), e.Time, e.CapType}
	var nonFinite []string
	for _, f := range metrics {
		v := *f.value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			args = append(args, nil)
			nonFinite = append(nonFinite, f.name+"="+formatNonFinite(v))
			continue
		}
		args = append(args, v)
	}
	args = append(args, strings.Join(nonFinite, ","))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM history_entries
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query history entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}

	return entries, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM history_entries
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e         Entry
		createdAt time.Time
		values    [10]sql.NullFloat64
		undefined string
	)
	dest := []any{&e.ID, &createdAt, &e.Time, &e.CapType}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &undefined)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	e.CreatedAt = createdAt

	nonFinite := parseNonFinite(undefined)
	for i, f := range e.metricFields() {
		switch {
		case values[i].Valid:
			*f.value = values[i].Float64
		default:
			v, ok := nonFinite[f.name]
			if !ok {
				v = math.NaN()
			}
			*f.value = v
			e.Undefined = append(e.Undefined, f.jsonName)
		}
	}

	return e, nil
}

type metricField struct {
	name     string
	jsonName string
	value    *float64
}

// metricFields lists the stored metric columns in table order, paired with
// the Entry JSON keys reported in Undefined.
func (e *Entry) metricFields() []metricField {
	return []metricField{
		{"caps_per_minute", "capsPerMin", &e.CapsPerMinute},
		{"cap_weight", "capWeight", &e.CapWeight},
		{"raw_material", "rmCost", &e.RawMaterial},
		{"electricity", "electricity", &e.Electricity},
		{"labour", "labour", &e.Labour},
		{"transport", "transport", &e.Transport},
		{"packaging", "packaging", &e.Packaging},
		{"eb", "eb", &e.EB},
		{"total_cost", "totalCost", &e.TotalCost},
		{"selling_price", "sellingPrice", &e.SellingPrice},
	}
}

func formatNonFinite(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return "NaN"
}

func parseNonFinite(raw string) map[string]float64 {
	out := make(map[string]float64)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		switch value {
		case "+Inf":
			out[name] = math.Inf(1)
		case "-Inf":
			out[name] = math.Inf(-1)
		default:
			out[name] = math.NaN()
		}
	}
	return out
}
