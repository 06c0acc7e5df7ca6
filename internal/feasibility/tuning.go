package feasibility

import (
	"fmt"
	"math"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// LoadWeights reads a calculator weight table from a YAML tuning file:
//
//	weights:
//	  chip_load: 0.25
//	  spindle_power: 0.25
//	  ...
//
// The weights must sum to 1.0 (within a small tolerance) so tuned and
// default engines stay on the same score scale.
func LoadWeights(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	var doc struct {
		Weights map[string]float64 `yaml:"weights"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tuning yaml: %w", err)
	}
	if len(doc.Weights) == 0 {
		return nil, fmt.Errorf("tuning file %s: no weights", path)
	}
	var sum float64
	for name, w := range doc.Weights {
		if w < 0 {
			return nil, fmt.Errorf("tuning file %s: negative weight for %s", path, name)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 0.001 {
		return nil, fmt.Errorf("tuning file %s: weights sum to %.3f, want 1.0", path, sum)
	}
	return doc.Weights, nil
}
