package eval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights are the tunable coefficients of the evaluator. Every term is
// additive; zero disables a term.
type Weights struct {
	// Health is paid per point of health up to Satiation. Health above
	// Satiation is worth nothing extra, so eating earlier is never worse than
	// eating later within the horizon. Satiation <= 0 means no cap.
	Health    int   `yaml:"health"`
	Satiation int32 `yaml:"satiation"`

	// Hunger is the penalty per cell of distance to the nearest food, scaled
	// by the fraction of health missing.
	Hunger int `yaml:"hunger"`

	Length int `yaml:"length"`

	// Space is paid per cell reachable from the head, counting at most
	// SpaceCap cells. SpaceCap <= 0 skips the flood fill.
	Space    int `yaml:"space"`
	SpaceCap int `yaml:"space_cap"`

	FreeNeighbors int `yaml:"free_neighbors"`

	// Threat is the penalty per cell a dangerous rival's predicted head is
	// inside ThreatRadius of our head.
	Threat       int `yaml:"threat"`
	ThreatRadius int `yaml:"threat_radius"`
}

var DefaultWeights = Weights{
	Health:        2,
	Satiation:     60,
	Hunger:        6,
	Length:        150,
	Space:         3,
	SpaceCap:      40,
	FreeNeighbors: 10,
	Threat:        40,
	ThreatRadius:  3,
}

// LoadWeights reads a YAML weights file. Keys missing from the file keep
// their DefaultWeights value.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &w); err != nil {
		return w, fmt.Errorf("parse weights %s: %w", path, err)
	}
	return w, nil
}
