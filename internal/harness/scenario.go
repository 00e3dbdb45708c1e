package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/ir"
)

// Scenario defines a reproducible mutation test.
// A scenario fixes every source of nondeterminism (clock and random draws),
// runs one or more cycles against a seed organism and asserts on the
// outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fixed cycle time in epoch milliseconds.
	Now int64 `yaml:"now"`

	// StepMs advances the clock between cycles. Zero freezes it.
	StepMs int64 `yaml:"step_ms,omitempty"`

	// Draws scripts the random source, one value per Bernoulli branch.
	// When empty, Seed drives a seeded generator instead.
	Draws []float64 `yaml:"draws,omitempty"`
	Seed  uint64    `yaml:"seed,omitempty"`

	// Thresholds overrides individual engine constants. Fields left out
	// keep their defaults.
	Thresholds engine.Thresholds `yaml:"thresholds,omitempty"`

	// Cycles is the number of cycles to run. Defaults to 1.
	Cycles int `yaml:"cycles,omitempty"`

	// Organism is the seed organism document. It may carry generation and
	// mutation_history keys.
	Organism map[string]any `yaml:"organism"`

	Patterns []ir.UsagePattern    `yaml:"patterns"`
	Feedback ir.EcosystemFeedback `yaml:"feedback"`

	// Assertions validate the final outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a scenario outcome.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Cycle selects which cycle a per-cycle assertion inspects (1-based).
	// Zero means the last completed cycle.
	Cycle int `yaml:"cycle,omitempty"`

	// Set and Events are used by classification.
	Set    string   `yaml:"set,omitempty"`
	Events []string `yaml:"events,omitempty"`

	// Targets is the expected ordered list of proposed mutation targets
	// (used by mutations).
	Targets []string `yaml:"targets,omitempty"`

	// Applied is the expected gate decision (used by applied).
	Applied *bool `yaml:"applied,omitempty"`

	// Count is the expected generation or history length.
	Count *int64 `yaml:"count,omitempty"`

	// Path and Value are used by leaf; Value alone by fitness.
	Path  string `yaml:"path,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Tolerance bounds numeric comparisons. Defaults to 1e-9.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Code is the expected error code (used by error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertClassification = "classification"
	AssertMutations      = "mutations"
	AssertApplied        = "applied"
	AssertGeneration     = "generation"
	AssertHistoryLength  = "history_length"
	AssertLeaf           = "leaf"
	AssertFitness        = "fitness"
	AssertError          = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Pre-populate defaults; yaml.v3 leaves absent fields untouched.
	scenario := Scenario{Thresholds: engine.DefaultThresholds()}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Cycles == 0 {
		scenario.Cycles = 1
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Now <= 0 {
		return fmt.Errorf("now is required and must be positive")
	}
	if s.StepMs < 0 {
		return fmt.Errorf("step_ms must be non-negative")
	}
	if s.Cycles < 0 {
		return fmt.Errorf("cycles must be non-negative")
	}
	for i, d := range s.Draws {
		if d < 0 || d >= 1 {
			return fmt.Errorf("draws[%d]: %v outside [0, 1)", i, d)
		}
	}
	if err := s.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Cycle < 0 {
		return fmt.Errorf("assertions[%d]: cycle must be non-negative", index)
	}

	switch a.Type {
	case AssertClassification:
		switch a.Set {
		case "dominant", "recessive", "emerging":
		default:
			return fmt.Errorf("assertions[%d]: set must be dominant, recessive or emerging", index)
		}
	case AssertMutations:
		if a.Targets == nil {
			return fmt.Errorf("assertions[%d]: targets is required for mutations (use [] for none)", index)
		}
	case AssertApplied:
		if a.Applied == nil {
			return fmt.Errorf("assertions[%d]: applied is required", index)
		}
	case AssertGeneration, AssertHistoryLength:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	case AssertLeaf:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for leaf", index)
		}
	case AssertFitness:
		if _, ok := toFloat(a.Value); !ok {
			return fmt.Errorf("assertions[%d]: numeric value is required for fitness", index)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// toFloat accepts the numeric types yaml.v3 produces.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
