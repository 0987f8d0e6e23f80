// Package harness runs conformance scenarios: YAML files pairing a
// universe manifest with expectations about the run's outcome. It backs
// the `demiurge test` command and the golden trace tests.
package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are keyed
	// by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Manifest is the path to the universe manifest, relative to the
	// scenario file.
	Manifest string `yaml:"manifest"`

	// RunToken is a fixed run token for deterministic traces.
	// Defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// Expect holds the assertions on the run's outcome.
	Expect Expect `yaml:"expect"`
}

// Expect asserts on the terminal RunResult. Nil/empty fields are not
// checked; State is a subset match on the terminal state.
type Expect struct {
	Converged *bool          `yaml:"converged,omitempty"`
	Reason    string         `yaml:"reason,omitempty"`
	Epochs    *int           `yaml:"epochs,omitempty"`
	State     map[string]any `yaml:"state,omitempty"`
}

// LoadScenario reads a scenario file and resolves its manifest path
// relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(source, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if sc.Manifest == "" {
		return nil, fmt.Errorf("scenario %s: manifest is required", path)
	}

	if !filepath.IsAbs(sc.Manifest) {
		sc.Manifest = filepath.Join(filepath.Dir(path), sc.Manifest)
	}
	if sc.RunToken == "" {
		sc.RunToken = "test-run-default"
	}
	return &sc, nil
}
