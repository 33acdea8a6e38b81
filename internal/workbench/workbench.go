// Package workbench owns the calculator state of a session: the current
// configuration revision, its derived metrics and the generate action that
// records revisions into the history log.
package workbench

import (
	"context"
	"sync"

	"github.com/Simplici0/capcost/internal/calc"
	"github.com/Simplici0/capcost/internal/history"
	"github.com/Simplici0/capcost/internal/preset"
)

// Revision is one configuration state. A Revision is never modified; every
// change produces a new one with the next Number.
type Revision struct {
	Number  uint64      `json:"revision"`
	CapType string      `json:"capType"`
	Config  calc.Config `json:"config"`
}

// Workbench serializes changes to the current revision.
type Workbench struct {
	catalog preset.Catalog
	log     *history.Log

	mu   sync.Mutex
	rev  Revision
	memo *memoMetrics
}

type memoMetrics struct {
	revision uint64
	metrics  calc.Metrics
}

// New starts a workbench at revision 1 with cfg and capType. The cap type is
// recorded as given; its preset is not applied.
func New(cfg calc.Config, capType string, catalog preset.Catalog, log *history.Log) *Workbench {
	return &Workbench{
		catalog: catalog,
		log:     log,
		rev:     Revision{Number: 1, CapType: capType, Config: cfg},
	}
}

// Catalog returns the selectable cap types.
func (w *Workbench) Catalog() preset.Catalog {
	return w.catalog
}

// Current returns the current revision.
func (w *Workbench) Current() Revision {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.rev
}

// Metrics returns the derived metrics of the current revision, computing them
// at most once per revision.
func (w *Workbench) Metrics() (Revision, calc.Metrics) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.rev, w.metricsLocked()
}

func (w *Workbench) metricsLocked() calc.Metrics {
	if w.memo == nil || w.memo.revision != w.rev.Number {
		w.memo = &memoMetrics{revision: w.rev.Number, metrics: calc.Derive(w.rev.Config)}
	}
	return w.memo.metrics
}

// SetField sets one configuration field and returns the new revision.
func (w *Workbench) SetField(name string, value float64) (Revision, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cfg, err := w.rev.Config.With(name, value)
	if err != nil {
		return w.rev, err
	}
	w.advance(w.rev.CapType, cfg)
	return w.rev, nil
}

// SetFields applies several field changes as a single revision. No change is
// applied when any name is unknown.
func (w *Workbench) SetFields(values map[string]float64) (Revision, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cfg := w.rev.Config
	for name, value := range values {
		var err error
		if cfg, err = cfg.With(name, value); err != nil {
			return w.rev, err
		}
	}
	w.advance(w.rev.CapType, cfg)
	return w.rev, nil
}

// SelectCapType records label as the cap type and applies its preset, if the
// catalog has one with overrides.
func (w *Workbench) SelectCapType(label string) Revision {
	w.mu.Lock()
	defer w.mu.Unlock()

	cfg, _ := w.catalog.Apply(w.rev.Config, label)
	w.advance(label, cfg)
	return w.rev
}

// Reset returns to cfg and capType as a new revision.
func (w *Workbench) Reset(cfg calc.Config, capType string) Revision {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.advance(capType, cfg)
	return w.rev
}

func (w *Workbench) advance(capType string, cfg calc.Config) {
	w.rev = Revision{Number: w.rev.Number + 1, CapType: capType, Config: cfg}
}

// Generate snapshots the current revision into the history log.
func (w *Workbench) Generate(ctx context.Context) (history.Entry, error) {
	rev := w.Current()
	return w.log.Record(ctx, rev.Config, rev.CapType)
}

// History returns the recorded entries, latest first.
func (w *Workbench) History(ctx context.Context) ([]history.Entry, error) {
	return w.log.List(ctx)
}

// Entry returns one recorded entry.
func (w *Workbench) Entry(ctx context.Context, id int64) (history.Entry, error) {
	return w.log.Get(ctx, id)
}
