package engine

import (
	"github.com/roach88/morphic/internal/ir"
)

// Color tags carried on generated mutations. They have no engine semantics.
const (
	ColorGreen  = "green"
	ColorRed    = "red"
	ColorYellow = "yellow"
	ColorCyan   = "cyan"
	ColorPurple = "purple"
	ColorBlue   = "blue"
)

// Feedback triggers. These are fixed, unlike the score thresholds.
const (
	glowResonance   = 0.8
	lowEnergyFlow   = 0.3
	replicateClones = 3
)

// Generate turns a classification and ecosystem feedback into a candidate
// mutation sequence.
//
// Generation order is fixed: one Bernoulli draw per dominant event, then per
// recessive event, then per emerging event, then the feedback-triggered
// mutations. Feedback branches are deterministic and never consult rnd, so
// the number of draws equals the total size of the three sets.
func Generate(c Classification, fb ir.EcosystemFeedback, rnd RandSource, th Thresholds) ([]ir.Mutation, error) {
	if err := th.Validate(); err != nil {
		return nil, NewInvalidInputError("invalid thresholds", err)
	}
	if err := fb.Validate(); err != nil {
		return nil, NewInvalidInputError("feedback", err)
	}

	rate := th.MutationRate
	mutations := []ir.Mutation{}

	for _, event := range c.Dominant {
		if rnd.Float64() < 2*rate {
			mutations = append(mutations, ir.Mutation{
				Type:     ir.ModifyState,
				Target:   "behaviors." + event + ".efficiency",
				Value:    ir.IRNumber(1.1),
				Strength: 0.8,
				Color:    ColorGreen,
			})
		}
	}

	for _, event := range c.Recessive {
		if rnd.Float64() < rate {
			mutations = append(mutations, ir.Mutation{
				Type:     ir.AlterBehavior,
				Target:   "behaviors." + event,
				Value:    ir.IRString("deprecate"),
				Strength: 0.3,
				Color:    ColorRed,
			})
		}
	}

	for _, event := range c.Emerging {
		if rnd.Float64() < 1.5*rate {
			mutations = append(mutations, ir.Mutation{
				Type:     ir.AddEvent,
				Target:   "manifest.events",
				Value:    ir.IRString(event + "_enhanced"),
				Strength: 0.6,
				Color:    ColorYellow,
			})
		}
	}

	return append(mutations, feedbackMutations(fb)...), nil
}

func feedbackMutations(fb ir.EcosystemFeedback) []ir.Mutation {
	var out []ir.Mutation
	if fb.ResonanceReceived > glowResonance {
		out = append(out, ir.Mutation{
			Type:     ir.VisualChange,
			Target:   "svg.glow",
			Value:    ir.IRBool(true),
			Strength: 0.9,
			Color:    ColorCyan,
		})
	}
	if fb.EnergyFlow < lowEnergyFlow {
		out = append(out, ir.Mutation{
			Type:     ir.AddEvent,
			Target:   "behaviors",
			Value:    ir.IRString("seekEnergy"),
			Strength: 0.7,
			Color:    ColorPurple,
		})
	}
	if fb.ClonesSpawned > replicateClones {
		out = append(out, ir.Mutation{
			Type:     ir.ModifyState,
			Target:   "replication.rate",
			Value:    ir.IRNumber(1.2),
			Strength: 0.8,
			Color:    ColorBlue,
		})
	}
	return out
}
