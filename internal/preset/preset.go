package preset

import (
	"github.com/Simplici0/capcost/internal/calc"
)

// DefaultLabel is the cap type selected when a session starts.
const DefaultLabel = "53mm"

// Preset is a named mould configuration. Nil fields are not overridden when
// the preset is applied.
type Preset struct {
	Label       string
	Cavities    *float64
	CapsPerSack *float64
}

// Overrides reports whether applying p changes any configuration field.
func (p Preset) Overrides() bool {
	return p.Cavities != nil || p.CapsPerSack != nil
}

// Catalog is the ordered set of selectable cap types.
type Catalog struct {
	presets []Preset
	byLabel map[string]int
}

// NewCatalog builds a catalog from presets in selector order. A repeated label
// replaces the earlier definition but keeps its position.
func NewCatalog(presets []Preset) Catalog {
	c := Catalog{byLabel: make(map[string]int, len(presets))}
	for _, p := range presets {
		if i, ok := c.byLabel[p.Label]; ok {
			c.presets[i] = p
			continue
		}
		c.byLabel[p.Label] = len(c.presets)
		c.presets = append(c.presets, p)
	}
	return c
}

// Default returns the built-in cap types.
func Default() Catalog {
	return NewCatalog([]Preset{
		{Label: "53mm", Cavities: ptr(8), CapsPerSack: ptr(5000)},
		{Label: "63mm"},
		{Label: "83mm", Cavities: ptr(6), CapsPerSack: ptr(3000)},
		{Label: "96mm", Cavities: ptr(4), CapsPerSack: ptr(2500)},
		{Label: "96mm lollipop", Cavities: ptr(4), CapsPerSack: ptr(2000)},
		{Label: "120mm", Cavities: ptr(4), CapsPerSack: ptr(1500)},
	})
}

// Labels returns the selectable labels in order.
func (c Catalog) Labels() []string {
	labels := make([]string, 0, len(c.presets))
	for _, p := range c.presets {
		labels = append(labels, p.Label)
	}
	return labels
}

// Presets returns a copy of the catalog entries in order.
func (c Catalog) Presets() []Preset {
	return append([]Preset(nil), c.presets...)
}

// Lookup returns the preset registered under label.
func (c Catalog) Lookup(label string) (Preset, bool) {
	i, ok := c.byLabel[label]
	if !ok {
		return Preset{}, false
	}
	return c.presets[i], true
}

// Apply overwrites the fields that the preset for label defines and leaves
// every other field of cfg untouched. Unknown labels and presets without
// overrides return cfg unchanged and false.
func (c Catalog) Apply(cfg calc.Config, label string) (calc.Config, bool) {
	p, ok := c.Lookup(label)
	if !ok || !p.Overrides() {
		return cfg, false
	}
	if p.Cavities != nil {
		cfg.Cavities = *p.Cavities
	}
	if p.CapsPerSack != nil {
		cfg.CapsPerSack = *p.CapsPerSack
	}
	return cfg, true
}

func ptr(v float64) *float64 {
	return &v
}
