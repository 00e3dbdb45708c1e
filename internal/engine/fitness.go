package engine

import (
	"fmt"
	"math"

	"github.com/roach88/morphic/internal/ir"
)

// Fitness weights.
const (
	weightSuccess   = 0.3
	weightResonance = 0.3
	weightClones    = 0.2
	weightEnergy    = 0.2

	// clonesSaturation is the clone count at which the clone term saturates.
	clonesSaturation = 10
)

// Fitness summarizes outcome quality:
//
//	mean(success_rate)×0.3 + min(resonance_received,1)×0.3
//	  + min(clones_spawned/10,1)×0.2 + min(energy_flow,1)×0.2
//
// The result lies in [0,1] when success rates, resonance and energy flow are
// in [0,1] and clones_spawned is non-negative; inputs outside those ranges
// are not clamped from below. An empty pattern sequence or a non-finite field
// fails with INVALID_INPUT. Fitness is independent of the mutation pipeline.
func Fitness(patterns []ir.UsagePattern, fb ir.EcosystemFeedback) (float64, error) {
	if len(patterns) == 0 {
		return 0, NewInvalidInputError("fitness requires at least one usage pattern", nil)
	}
	if err := fb.Validate(); err != nil {
		return 0, NewInvalidInputError("feedback", err)
	}

	var sum float64
	for i, p := range patterns {
		if err := p.Validate(); err != nil {
			return 0, NewInvalidInputError(fmt.Sprintf("pattern %d", i), err)
		}
		sum += p.SuccessRate
	}
	mean := sum / float64(len(patterns))

	fitness := mean*weightSuccess +
		math.Min(fb.ResonanceReceived, 1)*weightResonance +
		math.Min(float64(fb.ClonesSpawned)/clonesSaturation, 1)*weightClones +
		math.Min(fb.EnergyFlow, 1)*weightEnergy

	if math.IsNaN(fitness) || math.IsInf(fitness, 0) {
		return 0, NewInvalidInputError("fitness is not finite", nil)
	}
	return fitness, nil
}
