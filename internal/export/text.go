package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/capcost/internal/calc"
	"github.com/Simplici0/capcost/internal/history"
)

// DefaultGlyph prefixes currency values in reports.
const DefaultGlyph = "₹"

// FormatEntry renders one history entry as "Field: Value" lines.
func FormatEntry(e history.Entry, glyph string) string {
	return strings.Join(entryLines(e, glyph), "\n")
}

// FormatAll renders every entry, each introduced by a 1-based "=== Entry N ==="
// header and followed by a blank line.
func FormatAll(entries []history.Entry, glyph string) string {
	lines := make([]string, 0, len(entries)*14)
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("=== Entry %d ===", i+1))
		lines = append(lines, entryLines(e, glyph)...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func entryLines(e history.Entry, glyph string) []string {
	money := func(v float64) string { return glyph + calc.FormatNumber(v) }

	return []string{
		"Time: " + e.Time,
		"Cap Type: " + e.CapType,
		"Caps / Minute: " + calc.FormatNumber(e.CapsPerMinute),
		"Cap weight (g): " + calc.FormatNumber(e.CapWeight),
		"Raw Material / Cap: " + money(e.RawMaterial),
		"Electricity / Cap: " + money(e.Electricity),
		"Labour / Cap: " + money(e.Labour),
		"Transport / Cap: " + money(e.Transport),
		"Packaging / Cap: " + money(e.Packaging),
		"EB / Cap: " + money(e.EB),
		"Total Cost / Cap: " + money(e.TotalCost),
		"Selling Price / Cap: " + money(e.SellingPrice),
	}
}

// SanitizeFilename replaces every character outside [0-9a-zA-Z-_.] with "-".
func SanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		case r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, s)
}

// EntryFilename names the single entry report of e.
func EntryFilename(e history.Entry) string {
	return "cap-result-" + SanitizeFilename(e.Time) + ".txt"
}

// HistoryFilename names an all-history report produced at t.
func HistoryFilename(t time.Time) string {
	return "cap-history-" + SanitizeFilename(t.Format(history.TimeLayout)) + ".txt"
}
