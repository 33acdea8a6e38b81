package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownField is returned when a configuration field name is not recognised.
var ErrUnknownField = errors.New("unknown configuration field")

// Config holds the mould, process and cost inputs of one calculation.
// Monetary fields share a single currency; per-month amounts are spread over
// the run time given by Days and Hours.
type Config struct {
	ShotWeight  float64 `json:"shotWeight"`
	RMKg        float64 `json:"rmKg"`
	Cavities    float64 `json:"cavities"`
	CycleTime   float64 `json:"cycleTime"`
	PowerKWhHr  float64 `json:"powerKwhHr"`
	PowerRate   float64 `json:"powerRate"`
	Labour      float64 `json:"labour"`
	Transport   float64 `json:"transport"`
	EBCost      float64 `json:"ebCost"`
	Days        float64 `json:"days"`
	Hours       float64 `json:"hours"`
	PackCost    float64 `json:"packCost"`
	CapsPerSack float64 `json:"capsPerSack"`
	Margin      float64 `json:"margin"`
}

// DefaultConfig returns the starting configuration of a new session.
func DefaultConfig() Config {
	return Config{
		ShotWeight:  6.5,
		RMKg:        89,
		Cavities:    8,
		CycleTime:   13.5,
		PowerKWhHr:  50,
		PowerRate:   8.25,
		Labour:      81600,
		Transport:   14000,
		EBCost:      18000,
		Days:        26,
		Hours:       22,
		PackCost:    32,
		CapsPerSack: 5000,
		Margin:      0.25,
	}
}

// FieldNames lists the configuration field keys in input order.
var FieldNames = []string{
	"shotWeight",
	"cavities",
	"cycleTime",
	"powerKwhHr",
	"powerRate",
	"ebCost",
	"packCost",
	"capsPerSack",
	"transport",
	"labour",
	"rmKg",
	"days",
	"hours",
	"margin",
}

func (c *Config) field(name string) (*float64, bool) {
	switch name {
	case "shotWeight":
		return &c.ShotWeight, true
	case "rmKg":
		return &c.RMKg, true
	case "cavities":
		return &c.Cavities, true
	case "cycleTime":
		return &c.CycleTime, true
	case "powerKwhHr":
		return &c.PowerKWhHr, true
	case "powerRate":
		return &c.PowerRate, true
	case "labour":
		return &c.Labour, true
	case "transport":
		return &c.Transport, true
	case "ebCost":
		return &c.EBCost, true
	case "days":
		return &c.Days, true
	case "hours":
		return &c.Hours, true
	case "packCost":
		return &c.PackCost, true
	case "capsPerSack":
		return &c.CapsPerSack, true
	case "margin":
		return &c.Margin, true
	}
	return nil, false
}

// With returns a copy of c with the named field set to value.
func (c Config) With(name string, value float64) (Config, error) {
	p, ok := c.field(name)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	*p = value
	return c, nil
}

// Get returns the value of the named field.
func (c Config) Get(name string) (float64, error) {
	p, ok := c.field(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return *p, nil
}

// Metrics contains the values derived from a Config. Per-cap costs are in the
// configuration's currency.
type Metrics struct {
	MinutesPerMonth float64 `json:"minutesPerMonth"`
	CapsPerMinute   float64 `json:"capsPerMinute"`
	CapWeight       float64 `json:"capWeight"`
	RawMaterial     float64 `json:"rawMaterial"`
	Labour          float64 `json:"labour"`
	Transport       float64 `json:"transport"`
	Power           float64 `json:"power"`
	EB              float64 `json:"eb"`
	Packaging       float64 `json:"packaging"`
	TotalCost       float64 `json:"totalCost"`
	SellingPrice    float64 `json:"sellingPrice"`
}

// Derive computes the per-cap cost breakdown for c.
//
// Only the cap weight guards against a zero cavity count. A zero cycle time,
// run time or sack count produces infinite or NaN metrics, reported by
// Metrics.Undefined.
func Derive(c Config) Metrics {
	minutesPerMonth := c.Days * c.Hours * 60
	capsPerMinute := (60 / c.CycleTime) * c.Cavities

	capWeight := 0.0
	if c.Cavities != 0 {
		capWeight = c.ShotWeight / c.Cavities
	}

	rawMaterial := (c.RMKg / 1000) * capWeight
	labour := (c.Labour / minutesPerMonth) / capsPerMinute
	transport := (c.Transport / minutesPerMonth) / capsPerMinute
	power := ((c.PowerKWhHr * c.PowerRate) / 60) / capsPerMinute
	eb := (c.EBCost / minutesPerMonth) / capsPerMinute
	packaging := c.PackCost / c.CapsPerSack

	totalCost := rawMaterial + labour + transport + power + packaging + eb

	return Metrics{
		MinutesPerMonth: minutesPerMonth,
		CapsPerMinute:   capsPerMinute,
		CapWeight:       capWeight,
		RawMaterial:     rawMaterial,
		Labour:          labour,
		Transport:       transport,
		Power:           power,
		EB:              eb,
		Packaging:       packaging,
		TotalCost:       totalCost,
		SellingPrice:    totalCost + c.Margin,
	}
}

// Undefined returns the JSON names of all non-finite metrics, in declaration order.
func (m Metrics) Undefined() []string {
	var names []string
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"minutesPerMonth", m.MinutesPerMonth},
		{"capsPerMinute", m.CapsPerMinute},
		{"capWeight", m.CapWeight},
		{"rawMaterial", m.RawMaterial},
		{"labour", m.Labour},
		{"transport", m.Transport},
		{"power", m.Power},
		{"eb", m.EB},
		{"packaging", m.Packaging},
		{"totalCost", m.TotalCost},
		{"sellingPrice", m.SellingPrice},
	} {
		if !IsFinite(f.value) {
			names = append(names, f.name)
		}
	}
	return names
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// exactDigits is enough fractional digits to hold a float64 in the ranges the
// calculator works with, so rounding sees its binary value and not its
// shortest decimal form.
const exactDigits = -30

// Round2 rounds the exact binary value of v to two decimal places, half away
// from zero. 1.005 is stored just below 1.005 and rounds to 1.
// Non-finite values are returned unchanged.
func Round2(v float64) float64 {
	if !IsFinite(v) {
		return v
	}
	return decimal.NewFromFloatWithExponent(v, exactDigits).Round(2).InexactFloat64()
}

// Coerce converts raw form input to a number. Blank input is 0 and input that
// does not parse is NaN.
func Coerce(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v
		}
		return math.NaN()
	}
	return v
}

// FormatNumber renders v in its shortest decimal form. Non-finite values
// render as NaN, Infinity or -Infinity.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatFixed2 renders v with exactly two decimals, like the live results panel.
func FormatFixed2(v float64) string {
	if !IsFinite(v) {
		return FormatNumber(v)
	}
	return decimal.NewFromFloatWithExponent(v, exactDigits).StringFixed(2)
}
