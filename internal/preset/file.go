package preset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type catalogFile struct {
	CapTypes []struct {
		Label       string   `toml:"label"`
		Cavities    *float64 `toml:"cavities"`
		CapsPerSack *float64 `toml:"caps_per_sack"`
	} `toml:"cap_type"`
}

// LoadFile reads a cap type catalog from a TOML file of the form:
//
//	[[cap_type]]
//	label = "53mm"
//	cavities = 8
//	caps_per_sack = 5000
//
// Entries without cavities or caps_per_sack are selectable but override nothing.
func LoadFile(path string) (Catalog, error) {
	var f catalogFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Catalog{}, fmt.Errorf("decode preset file %s: %w", path, err)
	}
	if len(f.CapTypes) == 0 {
		return Catalog{}, errors.New("preset file defines no cap_type entries")
	}

	presets := make([]Preset, 0, len(f.CapTypes))
	for i, ct := range f.CapTypes {
		label := strings.TrimSpace(ct.Label)
		if label == "" {
			return Catalog{}, fmt.Errorf("cap_type %d: label is required", i+1)
		}
		presets = append(presets, Preset{Label: label, Cavities: ct.Cavities, CapsPerSack: ct.CapsPerSack})
	}

	return NewCatalog(presets), nil
}
