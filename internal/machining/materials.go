package machining

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Material holds the cutting properties the calculators consult.
type Material struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// SpecificCuttingForce in N/mm^2 (Kc1.1 simplification).
	SpecificCuttingForce float64 `yaml:"specific_cutting_force"`
	// Recommended surface-speed band, m/min.
	SurfaceSpeedMin float64 `yaml:"surface_speed_min"`
	SurfaceSpeedMax float64 `yaml:"surface_speed_max"`
	// Recommended chip load band as a fraction of tool diameter.
	ChipLoadPerDiaMin float64 `yaml:"chip_load_per_dia_min"`
	ChipLoadPerDiaMax float64 `yaml:"chip_load_per_dia_max"`
}

// builtinMaterials covers the common shop stock. A tuning file can extend or
// override it (LoadMaterials).
var builtinMaterials = map[string]Material{
	"al-6061": {
		ID: "al-6061", Name: "Aluminium 6061",
		SpecificCuttingForce: 700,
		SurfaceSpeedMin:      150, SurfaceSpeedMax: 600,
		ChipLoadPerDiaMin: 0.005, ChipLoadPerDiaMax: 0.02,
	},
	"steel-1045": {
		ID: "steel-1045", Name: "Steel 1045",
		SpecificCuttingForce: 2200,
		SurfaceSpeedMin:      60, SurfaceSpeedMax: 180,
		ChipLoadPerDiaMin: 0.003, ChipLoadPerDiaMax: 0.012,
	},
	"ss-304": {
		ID: "ss-304", Name: "Stainless 304",
		SpecificCuttingForce: 2600,
		SurfaceSpeedMin:      40, SurfaceSpeedMax: 120,
		ChipLoadPerDiaMin: 0.002, ChipLoadPerDiaMax: 0.01,
	},
	"ti-6al4v": {
		ID: "ti-6al4v", Name: "Titanium 6Al-4V",
		SpecificCuttingForce: 2800,
		SurfaceSpeedMin:      25, SurfaceSpeedMax: 80,
		ChipLoadPerDiaMin: 0.002, ChipLoadPerDiaMax: 0.008,
	},
	"delrin": {
		ID: "delrin", Name: "Acetal (Delrin)",
		SpecificCuttingForce: 300,
		SurfaceSpeedMin:      200, SurfaceSpeedMax: 900,
		ChipLoadPerDiaMin: 0.01, ChipLoadPerDiaMax: 0.04,
	},
}

// MaterialByID resolves a material id against the built-in table.
// Unknown ids return ok=false; calculators treat that as an UNKNOWN-risk
// signal rather than an error.
func MaterialByID(id string) (Material, bool) {
	m, ok := builtinMaterials[id]
	return m, ok
}

// LoadMaterials merges materials from a YAML tuning file into the built-in
// table. Entries with an existing id override it.
func LoadMaterials(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read materials file: %w", err)
	}
	var doc struct {
		Materials []Material `yaml:"materials"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse materials yaml: %w", err)
	}
	for _, m := range doc.Materials {
		if m.ID == "" {
			return fmt.Errorf("materials file %s: entry with empty id", path)
		}
		builtinMaterials[m.ID] = m
	}
	return nil
}
