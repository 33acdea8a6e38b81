package calc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestDerive_DefaultConfiguration(t *testing.T) {
	m := Derive(DefaultConfig())

	nearlyEqual(t, "minutesPerMonth", m.MinutesPerMonth, 34320)
	nearlyEqual(t, "capsPerMinute", m.CapsPerMinute, (60/13.5)*8)
	nearlyEqual(t, "capWeight", m.CapWeight, 0.8125)
	nearlyEqual(t, "rawMaterial", m.RawMaterial, 0.0723125)
	nearlyEqual(t, "packaging", m.Packaging, 0.0064)
	nearlyEqual(t, "sellingPrice", m.SellingPrice, m.TotalCost+0.25)

	assert.Equal(t, 35.56, Round2(m.CapsPerMinute))
	assert.Equal(t, 0.81, Round2(m.CapWeight))
	assert.Equal(t, 0.07, Round2(m.RawMaterial))
	assert.Equal(t, 0.07, Round2(m.Labour))
	assert.Equal(t, 0.01, Round2(m.Transport))
	assert.Equal(t, 0.19, Round2(m.Power))
	assert.Equal(t, 0.01, Round2(m.EB))
	assert.Equal(t, 0.01, Round2(m.Packaging))
	assert.Equal(t, 0.37, Round2(m.TotalCost))
	assert.Equal(t, 0.62, Round2(m.SellingPrice))
	assert.Empty(t, m.Undefined())
}

func TestDerive_TotalExcludesMargin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Margin = 3

	m := Derive(cfg)

	sum := m.RawMaterial + m.Labour + m.Transport + m.Power + m.Packaging + m.EB
	nearlyEqual(t, "totalCost", m.TotalCost, sum)
	nearlyEqual(t, "sellingPrice", m.SellingPrice, sum+3)
}

func TestDerive_ThroughputAndWeightFormulas(t *testing.T) {
	for _, cfg := range []Config{
		{ShotWeight: 12, Cavities: 4, CycleTime: 10},
		{ShotWeight: 3.3, Cavities: 1, CycleTime: 7.25},
		{ShotWeight: 40, Cavities: 16, CycleTime: 0.5},
	} {
		m := Derive(cfg)
		nearlyEqual(t, "capsPerMinute", m.CapsPerMinute, (60/cfg.CycleTime)*cfg.Cavities)
		nearlyEqual(t, "capWeight", m.CapWeight, cfg.ShotWeight/cfg.Cavities)
	}
}

func TestDerive_ZeroCavitiesGuardsOnlyCapWeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cavities = 0

	m := Derive(cfg)

	assert.Equal(t, 0.0, m.CapWeight)
	assert.Equal(t, 0.0, m.RawMaterial)
	assert.True(t, math.IsInf(m.Labour, 1))
	assert.Contains(t, m.Undefined(), "labour")
	assert.Contains(t, m.Undefined(), "totalCost")
	assert.NotContains(t, m.Undefined(), "capWeight")
}

func TestDerive_ZeroCycleTimeAndSackCountAreUndefined(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CycleTime = 0
	cfg.CapsPerSack = 0

	m := Derive(cfg)

	assert.True(t, math.IsInf(m.CapsPerMinute, 1))
	assert.True(t, math.IsInf(m.Packaging, 1))
	assert.Equal(t, []string{"capsPerMinute", "packaging", "totalCost", "sellingPrice"}, m.Undefined())
}

func TestDerive_ZeroRunTimeWithZeroCostIsNaN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Days = 0
	cfg.Labour = 0

	m := Derive(cfg)

	assert.True(t, math.IsNaN(m.Labour))
	assert.True(t, math.IsInf(m.Transport, 1))
	assert.True(t, math.IsNaN(m.TotalCost))
}

func TestConfigWith_ReturnsCopy(t *testing.T) {
	base := DefaultConfig()

	next, err := base.With("cycleTime", 20)
	require.NoError(t, err)

	assert.Equal(t, 20.0, next.CycleTime)
	assert.Equal(t, 13.5, base.CycleTime)

	got, err := next.Get("cycleTime")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got)
}

func TestConfigWith_UnknownField(t *testing.T) {
	_, err := DefaultConfig().With("colour", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestFieldNames_AllResolve(t *testing.T) {
	cfg := DefaultConfig()
	for _, name := range FieldNames {
		_, err := cfg.Get(name)
		assert.NoError(t, err, name)
	}
	assert.Len(t, FieldNames, 14)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.235))
	assert.Equal(t, -1.24, Round2(-1.235))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, 34320.0, Round2(34320))
	assert.True(t, math.IsNaN(Round2(math.NaN())))
	assert.True(t, math.IsInf(Round2(math.Inf(-1)), -1))
}

func TestRound2_UsesBinaryValueAtHalfCent(t *testing.T) {
	assert.Equal(t, 1.0, Round2(1.005))
	assert.Equal(t, 1.01, Round2(1.015))
	assert.Equal(t, 2.67, Round2(2.675))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, -0.13, Round2(-0.125))

	m := Derive(Config{PackCost: 1.005, CapsPerSack: 1})
	assert.Equal(t, 1.0, Round2(m.Packaging))
	assert.Equal(t, "1.00", FormatFixed2(m.Packaging))
	assert.Equal(t, "2.67", FormatFixed2(2.675))
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, 0.0, Coerce(""))
	assert.Equal(t, 0.0, Coerce("   "))
	assert.Equal(t, 13.5, Coerce("13.5"))
	assert.Equal(t, -2.0, Coerce(" -2 "))
	assert.True(t, math.IsNaN(Coerce("abc")))
	assert.True(t, math.IsInf(Coerce("1e400"), 1))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "35.56", FormatNumber(35.56))
	assert.Equal(t, "0.8", FormatNumber(0.8))
	assert.Equal(t, "5000", FormatNumber(5000))
	assert.Equal(t, "0", FormatNumber(math.Copysign(0, -1)))
	assert.Equal(t, "NaN", FormatNumber(math.NaN()))
	assert.Equal(t, "Infinity", FormatNumber(math.Inf(1)))
	assert.Equal(t, "-Infinity", FormatNumber(math.Inf(-1)))
}

func TestFormatFixed2(t *testing.T) {
	assert.Equal(t, "0.25", FormatFixed2(0.25))
	assert.Equal(t, "35.56", FormatFixed2(35.5555))
	assert.Equal(t, "3.00", FormatFixed2(3))
	assert.Equal(t, "Infinity", FormatFixed2(math.Inf(1)))
}
