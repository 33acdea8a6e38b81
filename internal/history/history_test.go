package history

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/capcost/internal/calc"
	"github.com/Simplici0/capcost/internal/db"
	"github.com/Simplici0/capcost/internal/migrations"
)

// fixedClock returns the same instant on every call.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecord_PrependsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Second)
	}
	log := NewLog(NewMemoryStore(), WithClock(clock), WithLocation(time.UTC))

	labels := []string{"53mm", "83mm", "96mm"}
	for _, label := range labels {
		_, err := log.Record(ctx, calc.DefaultConfig(), label)
		require.NoError(t, err)
	}

	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "96mm", entries[0].CapType)
	assert.Equal(t, "83mm", entries[1].CapType)
	assert.Equal(t, "53mm", entries[2].CapType)
	assert.Equal(t, "10/19/2026, 3:04:08 PM", entries[0].Time)
}

func TestRecord_IDsAreUniqueWithinOneMillisecond(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	log := NewLog(NewMemoryStore(), WithClock(fixedClock(now)))

	first, err := log.Record(ctx, calc.DefaultConfig(), "53mm")
	require.NoError(t, err)
	second, err := log.Record(ctx, calc.DefaultConfig(), "53mm")
	require.NoError(t, err)

	assert.Equal(t, now.UnixMilli(), first.ID)
	assert.Equal(t, first.ID+1, second.ID)
}

func TestRecord_MetricsAreRoundedDerivedValues(t *testing.T) {
	cfg := calc.Config{
		ShotWeight: 7.3, RMKg: 104.5, Cavities: 6, CycleTime: 11.2,
		PowerKWhHr: 42, PowerRate: 9.1, Labour: 64000, Transport: 9000,
		EBCost: 12500, Days: 25, Hours: 20, PackCost: 28, CapsPerSack: 3000,
		Margin: 0.4,
	}
	log := NewLog(NewMemoryStore())

	e, err := log.Record(context.Background(), cfg, "83mm")
	require.NoError(t, err)

	m := calc.Derive(cfg)
	assert.Equal(t, calc.Round2(m.CapsPerMinute), e.CapsPerMinute)
	assert.Equal(t, calc.Round2(m.CapWeight), e.CapWeight)
	assert.Equal(t, calc.Round2(m.RawMaterial), e.RawMaterial)
	assert.Equal(t, calc.Round2(m.Power), e.Electricity)
	assert.Equal(t, calc.Round2(m.Labour), e.Labour)
	assert.Equal(t, calc.Round2(m.Transport), e.Transport)
	assert.Equal(t, calc.Round2(m.Packaging), e.Packaging)
	assert.Equal(t, calc.Round2(m.EB), e.EB)
	assert.Equal(t, calc.Round2(m.TotalCost), e.TotalCost)
	assert.Equal(t, calc.Round2(m.SellingPrice), e.SellingPrice)
	assert.Empty(t, e.Undefined)
}

func TestRecord_DefaultConfigurationSnapshot(t *testing.T) {
	e, err := NewLog(NewMemoryStore()).Record(context.Background(), calc.DefaultConfig(), "53mm")
	require.NoError(t, err)

	assert.Equal(t, 35.56, e.CapsPerMinute)
	assert.Equal(t, 0.81, e.CapWeight)
	assert.Equal(t, 0.37, e.TotalCost)
	assert.Equal(t, 0.62, e.SellingPrice)
}

func TestSnapshot_FlagsUndefinedMetrics(t *testing.T) {
	cfg := calc.DefaultConfig()
	cfg.CapsPerSack = 0

	e := Snapshot(calc.Derive(cfg))

	assert.True(t, math.IsInf(e.Packaging, 1))
	assert.Equal(t, []string{"packaging", "totalCost", "sellingPrice"}, e.Undefined)
}

func TestMemoryStore_GetUnknownID(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLStore_RoundTripsEntriesInRecencyOrder(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(openTestDB(t))
	start := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	step := 0
	log := NewLog(store, WithClock(func() time.Time {
		step++
		return start.Add(time.Duration(step) * time.Minute)
	}), WithLocation(time.UTC))

	first, err := log.Record(ctx, calc.DefaultConfig(), "53mm")
	require.NoError(t, err)

	broken := calc.DefaultConfig()
	broken.CycleTime = 0
	broken.Days = 0
	broken.Labour = 0
	second, err := log.Record(ctx, broken, "63mm")
	require.NoError(t, err)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)

	got := entries[1]
	assert.Equal(t, first.Time, got.Time)
	assert.Equal(t, "53mm", got.CapType)
	assert.Equal(t, first.SellingPrice, got.SellingPrice)
	assert.Equal(t, first.CapsPerMinute, got.CapsPerMinute)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
	assert.Empty(t, got.Undefined)

	undefined := entries[0]
	assert.Equal(t, second.Undefined, undefined.Undefined)
	assert.Equal(t, []string{"capsPerMin", "labour", "transport", "eb", "totalCost", "sellingPrice"}, undefined.Undefined)
	assert.True(t, math.IsInf(undefined.CapsPerMinute, 1))
	assert.True(t, math.IsNaN(undefined.Labour))
}

func TestSQLStore_Get(t *testing.T) {
	ctx := context.Background()
	store := NewSQLStore(openTestDB(t))

	e, err := NewLog(store).Record(ctx, calc.DefaultConfig(), "120mm")
	require.NoError(t, err)

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "120mm", got.CapType)
	assert.Equal(t, e.TotalCost, got.TotalCost)

	_, err = store.Get(ctx, e.ID+1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "history-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, migrations.Up(database))
	return database
}
