package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a bracket config from a YAML or JSON file. Absent simulation
// fields keep their defaults.
func LoadConfig(path string) (bracket.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bracket.Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := bracket.NewConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return bracket.Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
