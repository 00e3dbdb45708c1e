package engine

import (
	"fmt"
	"math"
	"time"
)

// Default scoring and gating constants.
const (
	DefaultDominantScore  = 0.8
	DefaultRecessiveScore = 0.3
	DefaultEmergingScore  = 0.5
	DefaultEmergingWindow = time.Hour
	DefaultMutationRate   = 0.1
	DefaultDriftThreshold = 0.7
)

// Thresholds holds every tunable constant of the pipeline.
//
// The score thresholds are only meaningful for inputs on the scale the
// analytics collaborator produces; frequency and resonance_impact are not
// normalized, so callers with other scales should tune these rather than
// rescale their inputs.
type Thresholds struct {
	// DominantScore: score strictly above it marks an event dominant.
	DominantScore float64 `yaml:"dominant_score" env:"DOMINANT_SCORE"`

	// RecessiveScore: score strictly below it marks an event recessive.
	RecessiveScore float64 `yaml:"recessive_score" env:"RECESSIVE_SCORE"`

	// EmergingScore: score strictly above it, seen within EmergingWindow,
	// marks an event emerging.
	EmergingScore  float64       `yaml:"emerging_score" env:"EMERGING_SCORE"`
	EmergingWindow time.Duration `yaml:"emerging_window" env:"EMERGING_WINDOW"`

	// MutationRate scales the per-event Bernoulli probabilities:
	// dominant 2r, recessive r, emerging 1.5r.
	MutationRate float64 `yaml:"mutation_rate" env:"MUTATION_RATE"`

	// DriftThreshold: batches with magnitude strictly below it are not applied.
	DriftThreshold float64 `yaml:"drift_threshold" env:"DRIFT_THRESHOLD"`
}

// DefaultThresholds returns the standard constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DominantScore:  DefaultDominantScore,
		RecessiveScore: DefaultRecessiveScore,
		EmergingScore:  DefaultEmergingScore,
		EmergingWindow: DefaultEmergingWindow,
		MutationRate:   DefaultMutationRate,
		DriftThreshold: DefaultDriftThreshold,
	}
}

// Validate checks that the thresholds describe a usable pipeline.
// Every score, the rate and the drift threshold must be finite, and the
// largest derived probability (2r) must not exceed 1.
func (t Thresholds) Validate() error {
	fields := []struct {
		name string
		f    float64
	}{
		{"dominant_score", t.DominantScore},
		{"recessive_score", t.RecessiveScore},
		{"emerging_score", t.EmergingScore},
		{"mutation_rate", t.MutationRate},
		{"drift_threshold", t.DriftThreshold},
	}
	for _, field := range fields {
		if math.IsNaN(field.f) || math.IsInf(field.f, 0) {
			return fmt.Errorf("%s must be finite, got %v", field.name, field.f)
		}
	}
	if t.MutationRate < 0 || 2*t.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be in [0, 0.5], got %v", t.MutationRate)
	}
	if t.EmergingWindow <= 0 {
		return fmt.Errorf("emerging_window must be positive, got %v", t.EmergingWindow)
	}
	if t.DriftThreshold < 0 {
		return fmt.Errorf("drift_threshold must be non-negative, got %v", t.DriftThreshold)
	}
	if t.RecessiveScore > t.DominantScore {
		return fmt.Errorf("recessive_score (%v) must not exceed dominant_score (%v)", t.RecessiveScore, t.DominantScore)
	}
	return nil
}
