package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationTypeIndex(t *testing.T) {
	assert.Equal(t, 0, AddEvent.Index())
	assert.Equal(t, 1, ModifyState.Index())
	assert.Equal(t, 2, AlterBehavior.Index())
	assert.Equal(t, 3, VisualChange.Index())
	assert.Equal(t, -1, MutationType("Teleport").Index())
	assert.False(t, MutationType("").Valid())
}

func TestUsagePatternValidate(t *testing.T) {
	ok := UsagePattern{Event: "replicate", Frequency: 10, SuccessRate: 0.9, ResonanceImpact: 0.9}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.ResonanceImpact = math.NaN()
	assert.ErrorContains(t, bad.Validate(), "resonance_impact")

	bad = ok
	bad.Frequency = math.Inf(1)
	assert.ErrorContains(t, bad.Validate(), "frequency")
}

func TestEcosystemFeedbackValidate(t *testing.T) {
	assert.NoError(t, EcosystemFeedback{ResonanceReceived: 0.9, EnergyFlow: 0.5}.Validate())
	assert.Error(t, EcosystemFeedback{EnergyFlow: math.Inf(-1)}.Validate())
}

func TestOrganismDocumentRoundTrip(t *testing.T) {
	org := &Organism{
		Graph: IRObject{
			"manifest": IRObject{"events": IRArray{IRString("boot")}},
		},
		Generation: 2,
		History: []BatchRecord{{
			Timestamp: 1700000000000,
			Mutations: []HistoryMutation{{Type: VisualChange, Target: "svg.glow", Strength: 0.9}},
			Vector: DriftVector{
				Dimensions: []int{3417},
				Direction:  []float64{0.9},
				Magnitude:  0.9,
			},
		}},
	}

	doc := org.Document()
	assert.Equal(t, IRNumber(2), doc[KeyGeneration])
	assert.Len(t, doc[KeyMutationHistory], 1)
	_, inGraph := org.Graph[KeyGeneration]
	assert.False(t, inGraph, "Document must not write into the graph")

	back, err := DecodeOrganism(doc)
	require.NoError(t, err)
	assert.Equal(t, org, back)
}

func TestDecodeOrganismDefaults(t *testing.T) {
	org, err := DecodeOrganism(IRObject{"state": IRObject{}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), org.Generation)
	assert.Empty(t, org.History)
	assert.Contains(t, org.Graph, "state")
}

func TestDecodeOrganismRejectsBadGeneration(t *testing.T) {
	_, err := DecodeOrganism(IRObject{KeyGeneration: IRNumber(-1)})
	assert.Error(t, err)

	_, err = DecodeOrganism(IRObject{KeyGeneration: IRNumber(1.5)})
	assert.Error(t, err)

	_, err = DecodeOrganism(IRObject{KeyGeneration: IRString("one")})
	assert.Error(t, err)
}

func TestDecodeOrganismRejectsBadHistory(t *testing.T) {
	_, err := DecodeOrganism(IRObject{KeyMutationHistory: IRObject{}})
	assert.Error(t, err)

	_, err = DecodeOrganism(IRObject{KeyMutationHistory: IRArray{IRString("x")}})
	assert.Error(t, err)
}

func TestOrganismCloneIndependent(t *testing.T) {
	org := NewOrganism(IRObject{"a": IRObject{"b": IRNumber(1)}})
	clone := org.Clone()
	clone.Graph["a"].(IRObject)["b"] = IRNumber(2)
	clone.Generation++

	assert.Equal(t, IRNumber(1), org.Graph["a"].(IRObject)["b"])
	assert.Equal(t, int64(0), org.Generation)
}

func TestOrganismCloneCopiesHistory(t *testing.T) {
	org := NewOrganism(nil)
	org.History = []BatchRecord{{
		Timestamp: 1,
		Mutations: []HistoryMutation{{Type: VisualChange, Target: "svg.glow", Strength: 0.9}},
		Vector:    DriftVector{Dimensions: []int{3}, Direction: []float64{0.9}, Magnitude: 0.9},
	}}

	clone := org.Clone()
	clone.History[0].Mutations[0].Target = "svg.dim"
	clone.History[0].Vector.Dimensions[0] = 0
	clone.History[0].Vector.Direction[0] = 0.1

	rec := org.History[0]
	assert.Equal(t, "svg.glow", rec.Mutations[0].Target)
	assert.Equal(t, []int{3}, rec.Vector.Dimensions)
	assert.Equal(t, []float64{0.9}, rec.Vector.Direction)
}

func TestReservedTarget(t *testing.T) {
	key, ok := ReservedTarget("generation")
	assert.True(t, ok)
	assert.Equal(t, KeyGeneration, key)

	key, ok = ReservedTarget("mutation_history.0")
	assert.True(t, ok)
	assert.Equal(t, KeyMutationHistory, key)

	_, ok = ReservedTarget("state.generation")
	assert.False(t, ok)
	_, ok = ReservedTarget("generations")
	assert.False(t, ok)
}

func TestMutationDocumentNilValue(t *testing.T) {
	doc := Mutation{Type: AlterBehavior, Target: "x"}.Document()
	assert.Equal(t, IRNull{}, doc["value"])
}
