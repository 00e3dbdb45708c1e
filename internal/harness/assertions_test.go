package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/ir"
)

func sampleResult() *Result {
	f := 0.62
	r := NewResult()
	r.Cycles = []CycleOutcome{{
		Classification: engine.Classification{
			Dominant:  []string{"replicate"},
			Recessive: []string{},
			Emerging:  []string{"replicate"},
		},
		Proposed: []ir.Mutation{{Type: ir.VisualChange, Target: "svg.glow", Value: ir.IRBool(true), Strength: 0.9}},
		Applied:  true,
	}}
	r.Organism = ir.NewOrganism(ir.IRObject{
		"svg":    ir.IRObject{"glow": ir.IRBool(true)},
		"events": ir.IRArray{ir.IRString("a"), ir.IRNumber(1.0000000001)},
	})
	r.Organism.Generation = 1
	r.Fitness = &f
	return r
}

func TestEvaluateAssertions_Passing(t *testing.T) {
	applied := true
	one := int64(1)
	assertions := []Assertion{
		{Type: AssertClassification, Set: "dominant", Events: []string{"replicate"}},
		{Type: AssertClassification, Set: "recessive"},
		{Type: AssertMutations, Cycle: 1, Targets: []string{"svg.glow"}},
		{Type: AssertApplied, Applied: &applied},
		{Type: AssertGeneration, Count: &one},
		{Type: AssertLeaf, Path: "svg.glow", Value: true},
		{Type: AssertLeaf, Path: "events", Value: []any{"a", 1}},
		{Type: AssertLeaf, Path: "svg.pulse"},
		{Type: AssertFitness, Value: 0.62},
	}

	assert.Empty(t, EvaluateAssertions(sampleResult(), assertions))
}

func TestEvaluateAssertions_Failing(t *testing.T) {
	applied := false
	two := int64(2)
	tests := map[string]Assertion{
		"wrong set":        {Type: AssertClassification, Set: "emerging", Events: []string{}},
		"wrong targets":    {Type: AssertMutations, Targets: []string{"svg.pulse"}},
		"missing cycle":    {Type: AssertMutations, Cycle: 3, Targets: []string{}},
		"wrong gate":       {Type: AssertApplied, Applied: &applied},
		"wrong generation": {Type: AssertGeneration, Count: &two},
		"wrong history":    {Type: AssertHistoryLength, Count: &two},
		"wrong leaf":       {Type: AssertLeaf, Path: "svg.glow", Value: false},
		"absent leaf":      {Type: AssertLeaf, Path: "svg.pulse", Value: true},
		"present leaf":     {Type: AssertLeaf, Path: "svg.glow"},
		"wrong kind":       {Type: AssertLeaf, Path: "events", Value: "a"},
		"wrong fitness":    {Type: AssertFitness, Value: 0.7},
		"no error":         {Type: AssertError, Code: "PATH_CONFLICT"},
	}

	for name, a := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, EvaluateAssertions(sampleResult(), []Assertion{a}), 1)
		})
	}
}

func TestAssertLeaf_Tolerance(t *testing.T) {
	r := sampleResult()
	r.Organism.Graph["rate"] = ir.IRNumber(1.2100000000000002)

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertLeaf, Path: "rate", Value: 1.21}}))
	assert.Len(t, EvaluateAssertions(r, []Assertion{{Type: AssertLeaf, Path: "rate", Value: 1.2}}), 1)
	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertLeaf, Path: "rate", Value: 1.2, Tolerance: 0.05}}))
}

func TestAssertError_MatchesFitnessFailure(t *testing.T) {
	r := sampleResult()
	r.Fitness = nil
	r.FitnessErrorCode = string(engine.ErrCodeInvalidInput)

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertError, Code: "INVALID_INPUT"}}))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertApplied, Expected: "applied = true", Actual: "applied = false"}
	assert.Equal(t, "Assertion failed: applied\n  Expected: applied = true\n  Actual: applied = false", err.Error())
}
