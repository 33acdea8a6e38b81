package main

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/capcost/internal/calc"
	"github.com/Simplici0/capcost/internal/export"
	"github.com/Simplici0/capcost/internal/history"
)

type fieldView struct {
	Name  string
	Label string
	Value string
}

type fieldGroup struct {
	Heading string
	Fields  []fieldView
}

type resultRow struct {
	Label string
	Value string
	Class string
	Muted bool
}

type homeViewData struct {
	baseViewData
	Revision  uint64
	CapType   string
	CapTypes  []string
	Groups    []fieldGroup
	Results   []resultRow
	Undefined []string
	History   []history.Entry
}

var inputGroups = []struct {
	heading string
	fields  [][2]string
}{
	{"Mould Running Configuration", [][2]string{
		{"shotWeight", "Shot weight (g)"},
		{"cavities", "No. of Cavities"},
		{"cycleTime", "Cycle Time (s)"},
	}},
	{"Electricity Costs", [][2]string{
		{"powerKwhHr", "EB Consumption (kWh/hr)"},
		{"powerRate", "Rate per Unit (/kWh)"},
		{"ebCost", "Fixed Cost per Month"},
	}},
	{"Packaging Costs", [][2]string{
		{"packCost", "Cost per Sack"},
		{"capsPerSack", "Count per Sack"},
	}},
	{"Transport Charges", [][2]string{{"transport", "Per Month"}}},
	{"Labour Costs", [][2]string{{"labour", "Per Month"}}},
	{"Raw Material Costs", [][2]string{{"rmKg", "Material Cost per Kg"}}},
	{"Running Details", [][2]string{
		{"days", "No. of Days Run"},
		{"hours", "No. of Hrs/Day"},
	}},
	{"Margin Cost", [][2]string{{"margin", "Margin"}}},
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	rev, m := s.bench.Metrics()
	entries, err := s.bench.History(r.Context())
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	groups := make([]fieldGroup, 0, len(inputGroups))
	for _, g := range inputGroups {
		group := fieldGroup{Heading: g.heading}
		for _, f := range g.fields {
			value, _ := rev.Config.Get(f[0])
			group.Fields = append(group.Fields, fieldView{Name: f[0], Label: f[1], Value: calc.FormatNumber(value)})
		}
		groups = append(groups, group)
	}

	money := func(v float64) string { return s.glyph + calc.FormatFixed2(v) }
	results := []resultRow{
		{Label: "Run minutes / month", Value: formatCount(m.MinutesPerMonth), Class: "strong"},
		{Label: "Caps / Minute", Value: calc.FormatFixed2(m.CapsPerMinute), Class: "strong"},
		{Label: "Cap weight (g)", Value: calc.FormatFixed2(m.CapWeight) + " g", Class: "strong"},
		{Label: "Raw Material", Value: money(m.RawMaterial), Class: "strong"},
		{Label: "Electricity Consumption", Value: money(m.Power), Class: "strong"},
		{Label: "Labour", Value: money(m.Labour), Class: "strong"},
		{Label: "Transport Charges", Value: money(m.Transport), Class: "strong"},
		{Label: "Packaging Charges", Value: money(m.Packaging), Class: "strong"},
		{Label: "EB Fixed Cost", Value: money(m.EB), Class: "strong"},
		{Label: "Total Cost / Cap", Value: money(m.TotalCost), Class: "total", Muted: true},
		{Label: "Margin / Cap", Value: money(rev.Config.Margin), Class: "margin", Muted: true},
		{Label: "Selling Price / Cap", Value: money(m.SellingPrice), Class: "price", Muted: true},
	}

	s.renderTemplate(w, http.StatusOK, "home.html", homeViewData{
		baseViewData: s.baseView(r),
		Revision:     rev.Number,
		CapType:      rev.CapType,
		CapTypes:     s.capTypeOptions(rev.CapType),
		Groups:       groups,
		Results:      results,
		Undefined:    m.Undefined(),
		History:      entries,
	})
}

// capTypeOptions returns the catalog labels, plus current when it is not one of them.
func (s *server) capTypeOptions(current string) []string {
	labels := s.bench.Catalog().Labels()
	for _, l := range labels {
		if l == current {
			return labels
		}
	}
	return append(labels, current)
}

func (s *server) handleConfigSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	values := make(map[string]float64)
	for _, name := range calc.FieldNames {
		if _, ok := r.PostForm[name]; ok {
			values[name] = calc.Coerce(r.PostForm.Get(name))
		}
	}
	if len(values) == 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if _, err := s.bench.SetFields(values); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleCapTypeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	label := strings.TrimSpace(r.PostForm.Get("cap_type"))
	if label == "" {
		http.Redirect(w, r, "/?error=cap_type+is+required", http.StatusSeeOther)
		return
	}

	s.bench.SelectCapType(label)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	rev := s.bench.Reset(calc.DefaultConfig(), initialCapType(s.bench.Catalog()))
	s.logger.Info("calculator reset to defaults", zap.Uint64("revision", rev.Number))
	http.Redirect(w, r, "/?success=Defaults+restored", http.StatusSeeOther)
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	entry, err := s.bench.Generate(r.Context())
	if err != nil {
		s.logger.Error("failed to generate history entry", zap.Error(err))
		http.Error(w, "failed to generate result", http.StatusInternalServerError)
		return
	}
	s.metrics.EntryGenerated(entry.Undefined)
	if len(entry.Undefined) > 0 {
		s.logger.Warn("generated entry with undefined metrics",
			zap.Int64("entry_id", entry.ID),
			zap.Strings("undefined", entry.Undefined),
		)
	}

	http.Redirect(w, r, "/?success=Result+saved", http.StatusSeeOther)
}

func (s *server) handleExportEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid history entry id", http.StatusBadRequest)
		return
	}

	entry, err := s.bench.Entry(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("failed to load history entry", zap.Int64("entry_id", id), zap.Error(err))
		http.Error(w, "failed to load history entry", http.StatusInternalServerError)
		return
	}

	art := s.artifacts.Put(export.EntryFilename(entry), []byte(export.FormatEntry(entry, s.glyph)))
	s.metrics.ExportProduced("entry")
	http.Redirect(w, r, "/downloads/"+art.Token, http.StatusSeeOther)
}

func (s *server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	entries, err := s.bench.History(r.Context())
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	art := s.artifacts.Put(export.HistoryFilename(s.now()), []byte(export.FormatAll(entries, s.glyph)))
	s.metrics.ExportProduced("history")
	http.Redirect(w, r, "/downloads/"+art.Token, http.StatusSeeOther)
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	art, ok := s.artifacts.Open(token)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	n, err := w.Write(art.Body)
	if err != nil || n != len(art.Body) {
		s.logger.Warn("export download incomplete; artifact kept until expiry",
			zap.String("filename", art.Filename),
			zap.Int("written", n),
			zap.Error(err),
		)
		return
	}
	s.artifacts.Release(token)
}

type stateResponse struct {
	Revision  uint64         `json:"revision"`
	CapType   string         `json:"capType"`
	CapTypes  []string       `json:"capTypes"`
	Config    map[string]any `json:"config"`
	Metrics   map[string]any `json:"metrics"`
	Undefined []string       `json:"undefined"`
}

func (s *server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	rev, m := s.bench.Metrics()

	cfg := make(map[string]any, len(calc.FieldNames))
	for _, name := range calc.FieldNames {
		v, _ := rev.Config.Get(name)
		cfg[name] = jsonNumber(v)
	}

	undefined := m.Undefined()
	if undefined == nil {
		undefined = []string{}
	}

	writeJSON(w, http.StatusOK, stateResponse{
		Revision: rev.Number,
		CapType:  rev.CapType,
		CapTypes: s.bench.Catalog().Labels(),
		Config:   cfg,
		Metrics: map[string]any{
			"minutesPerMonth": jsonNumber(m.MinutesPerMonth),
			"capsPerMinute":   jsonNumber(m.CapsPerMinute),
			"capWeight":       jsonNumber(m.CapWeight),
			"rawMaterial":     jsonNumber(m.RawMaterial),
			"labour":          jsonNumber(m.Labour),
			"transport":       jsonNumber(m.Transport),
			"power":           jsonNumber(m.Power),
			"eb":              jsonNumber(m.EB),
			"packaging":       jsonNumber(m.Packaging),
			"totalCost":       jsonNumber(m.TotalCost),
			"sellingPrice":    jsonNumber(m.SellingPrice),
		},
		Undefined: undefined,
	})
}

func (s *server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.bench.History(r.Context())
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"id":           e.ID,
			"time":         e.Time,
			"capType":      e.CapType,
			"capsPerMin":   jsonNumber(e.CapsPerMinute),
			"capWeight":    jsonNumber(e.CapWeight),
			"rmCost":       jsonNumber(e.RawMaterial),
			"electricity":  jsonNumber(e.Electricity),
			"labour":       jsonNumber(e.Labour),
			"transport":    jsonNumber(e.Transport),
			"packaging":    jsonNumber(e.Packaging),
			"eb":           jsonNumber(e.EB),
			"totalCost":    jsonNumber(e.TotalCost),
			"sellingPrice": jsonNumber(e.SellingPrice),
			"undefined":    e.Undefined,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// jsonNumber keeps finite values numeric and spells out NaN and infinities,
// which JSON cannot encode.
func jsonNumber(v float64) any {
	if calc.IsFinite(v) {
		return v
	}
	return calc.FormatNumber(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) baseView(r *http.Request) baseViewData {
	return baseViewData{
		AuthEnabled:    s.auth != nil,
		ErrorMessage:   r.URL.Query().Get("error"),
		SuccessMessage: r.URL.Query().Get("success"),
	}
}
