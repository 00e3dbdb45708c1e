package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/morphic/internal/ir"
)

// passing is a drift vector that always clears the default gate.
var passing = ir.DriftVector{Dimensions: []int{0}, Direction: []float64{1}, Magnitude: 1}

func applyOK(t *testing.T, org *ir.Organism, muts ...ir.Mutation) ApplyResult {
	t.Helper()
	res, err := Apply(org, muts, passing, now, DefaultThresholds())
	require.NoError(t, err)
	require.True(t, res.Applied)
	return res
}

func leaf(t *testing.T, org *ir.Organism, path string) ir.IRValue {
	t.Helper()
	v, ok := org.Graph.Lookup(path)
	require.True(t, ok, "missing %s", path)
	return v
}

func TestApply_GateRejectsLowMagnitude(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{"manifest": ir.IRObject{"name": ir.IRString("seed")}})
	before := org.Clone()

	muts := []ir.Mutation{mut(ir.AddEvent, "fresh.dimension", 0.1)}
	vec, err := Drift(muts)
	require.NoError(t, err)

	res, err := Apply(org, muts, vec, now, DefaultThresholds())
	require.NoError(t, err)

	assert.False(t, res.Applied)
	assert.Empty(t, res.Mutations)
	assert.InDelta(t, 0.1, res.Vector.Magnitude, 1e-12)
	assert.Equal(t, int64(0), org.Generation)
	assert.Empty(t, org.History)
	assert.Empty(t, cmp.Diff(before, org))
}

func TestApply_GateAtThresholdPasses(t *testing.T) {
	org := ir.NewOrganism(nil)
	vec := ir.DriftVector{Magnitude: DefaultDriftThreshold}

	res, err := Apply(org, []ir.Mutation{mut(ir.VisualChange, "svg.glow", 0.7)}, vec, now, DefaultThresholds())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, int64(1), org.Generation)
}

func TestApply_ModifyStateTwiceMultiplies(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{
		"behaviors": ir.IRObject{
			"replicate": ir.IRObject{"efficiency": ir.IRNumber(1.0)},
		},
	})
	m := ir.Mutation{
		Type: ir.ModifyState, Target: "behaviors.replicate.efficiency",
		Value: ir.IRNumber(1.1), Strength: 0.8, Color: ColorGreen,
	}

	applyOK(t, org, m, m)

	got := leaf(t, org, "behaviors.replicate.efficiency").(ir.IRNumber)
	assert.InDelta(t, 1.21, float64(got), 1e-12)
	assert.Equal(t, int64(1), org.Generation)
}

// ModifyState on an absent leaf stores the value itself. This is a chosen
// convention: an absent leaf is not numeric, so it is replaced.
func TestApply_ModifyStateOnAbsentLeafReplaces(t *testing.T) {
	org := ir.NewOrganism(nil)

	applyOK(t, org, ir.Mutation{Type: ir.ModifyState, Target: "replication.rate", Value: ir.IRNumber(1.2), Strength: 0.8})

	assert.Equal(t, ir.IRNumber(1.2), leaf(t, org, "replication.rate"))
}

func TestApply_ModifyStateOnNonNumericReplaces(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{"replication": ir.IRObject{"rate": ir.IRString("fast")}})

	applyOK(t, org, ir.Mutation{Type: ir.ModifyState, Target: "replication.rate", Value: ir.IRNumber(1.2), Strength: 0.8})

	assert.Equal(t, ir.IRNumber(1.2), leaf(t, org, "replication.rate"))
}

func TestApply_AddEventCreatesThenAppends(t *testing.T) {
	org := ir.NewOrganism(nil)
	add := func(v string) ir.Mutation {
		return ir.Mutation{Type: ir.AddEvent, Target: "manifest.events", Value: ir.IRString(v), Strength: 0.6}
	}

	applyOK(t, org, add("sing_enhanced"))
	assert.Equal(t, ir.IRArray{ir.IRString("sing_enhanced")}, leaf(t, org, "manifest.events"))

	applyOK(t, org, add("dance_enhanced"))
	assert.Equal(t, ir.IRArray{ir.IRString("sing_enhanced"), ir.IRString("dance_enhanced")}, leaf(t, org, "manifest.events"))
	assert.Equal(t, int64(2), org.Generation)
	assert.Len(t, org.History, 2)
}

func TestApply_AddEventReplacesNonSequence(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{"behaviors": ir.IRObject{"replicate": ir.IRObject{}}})

	applyOK(t, org, ir.Mutation{Type: ir.AddEvent, Target: "behaviors", Value: ir.IRString("seekEnergy"), Strength: 0.7})

	assert.Equal(t, ir.IRArray{ir.IRString("seekEnergy")}, leaf(t, org, "behaviors"))
}

func TestApply_ReplaceTypes(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{
		"behaviors": ir.IRObject{"idle": ir.IRObject{"efficiency": ir.IRNumber(2)}},
		"svg":       ir.IRObject{"glow": ir.IRBool(false)},
	})

	applyOK(t, org,
		ir.Mutation{Type: ir.AlterBehavior, Target: "behaviors.idle", Value: ir.IRString("deprecate"), Strength: 0.3},
		ir.Mutation{Type: ir.VisualChange, Target: "svg.glow", Value: ir.IRBool(true), Strength: 0.9},
	)

	assert.Equal(t, ir.IRString("deprecate"), leaf(t, org, "behaviors.idle"))
	assert.Equal(t, ir.IRBool(true), leaf(t, org, "svg.glow"))
}

func TestApply_PathConflictRejectsWholeBatch(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{
		"behaviors": ir.IRObject{"replicate": ir.IRString("deprecate")},
	})
	before := org.Clone()

	_, err := Apply(org, []ir.Mutation{
		{Type: ir.VisualChange, Target: "svg.glow", Value: ir.IRBool(true), Strength: 0.9},
		{Type: ir.ModifyState, Target: "behaviors.replicate.efficiency", Value: ir.IRNumber(1.1), Strength: 0.8},
	}, passing, now, DefaultThresholds())

	require.Error(t, err)
	assert.True(t, IsPathConflict(err))
	var ee *EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "behaviors.replicate.efficiency", ee.Path)
	assert.Equal(t, "1", ee.Details["mutation_index"])

	// Neither the first mutation nor the counters leaked into org.
	assert.Empty(t, cmp.Diff(before, org))
}

func TestApply_EmptySegmentIsPathConflict(t *testing.T) {
	org := ir.NewOrganism(nil)
	_, err := Apply(org, []ir.Mutation{mut(ir.VisualChange, "svg..glow", 1)}, passing, now, DefaultThresholds())
	assert.True(t, IsPathConflict(err))
}

func TestApply_ReservedTopLevelKeyIsPathConflict(t *testing.T) {
	for _, target := range []string{"generation", "mutation_history", "mutation_history.latest"} {
		t.Run(target, func(t *testing.T) {
			org := ir.NewOrganism(nil)
			before := org.Clone()

			_, err := Apply(org, []ir.Mutation{
				mut(ir.VisualChange, "svg.glow", 0.9),
				{Type: ir.AlterBehavior, Target: target, Value: ir.IRNumber(99), Strength: 0.6},
			}, passing, now, DefaultThresholds())

			require.Error(t, err)
			assert.True(t, IsPathConflict(err))
			var ee *EngineError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, "1", ee.Details["mutation_index"])
			assert.Empty(t, cmp.Diff(before, org))
		})
	}
}

func TestApply_NestedReservedNameIsAllowed(t *testing.T) {
	org := ir.NewOrganism(nil)
	applyOK(t, org, ir.Mutation{Type: ir.AlterBehavior, Target: "state.generation", Value: ir.IRNumber(7), Strength: 0.6})

	assert.Equal(t, ir.IRNumber(7), leaf(t, org, "state.generation"))
	assert.Equal(t, ir.IRNumber(1), org.Document()[ir.KeyGeneration])
}

func TestApply_AuditRecords(t *testing.T) {
	org := ir.NewOrganism(nil)

	applyOK(t, org,
		ir.Mutation{Type: ir.VisualChange, Target: "svg.glow", Value: ir.IRBool(true), Strength: 0.9, Color: ColorCyan},
		ir.Mutation{Type: ir.AddEvent, Target: "behaviors", Value: ir.IRString("seekEnergy"), Strength: 0.7, Color: ColorPurple},
	)

	audit := leaf(t, org, AuditPath).(ir.IRArray)
	require.Len(t, audit, 2)
	assert.Equal(t, ir.IRObject{
		"color":     ir.IRString(ColorCyan),
		"strength":  ir.IRNumber(0.9),
		"type":      ir.IRString(ir.VisualChange),
		"timestamp": ir.IRNumber(nowMs),
	}, audit[0])
	assert.Equal(t, ir.IRString(ColorPurple), audit[1].(ir.IRObject)["color"])
}

func TestApply_AuditAppendsToExisting(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{
		"state": ir.IRObject{"mutations": ir.IRArray{ir.IRObject{"color": ir.IRString("old")}}},
	})

	applyOK(t, org, mut(ir.VisualChange, "svg.glow", 0.9))

	assert.Len(t, leaf(t, org, AuditPath), 2)
}

func TestApply_AuditConflictRejectsBatch(t *testing.T) {
	org := ir.NewOrganism(ir.IRObject{"state": ir.IRString("frozen")})
	before := org.Clone()

	_, err := Apply(org, []ir.Mutation{mut(ir.VisualChange, "svg.glow", 0.9)}, passing, now, DefaultThresholds())
	assert.True(t, IsPathConflict(err))
	assert.Empty(t, cmp.Diff(before, org))
}

func TestApply_OneHistoryRecordPerBatch(t *testing.T) {
	org := ir.NewOrganism(nil)
	muts := []ir.Mutation{
		mut(ir.VisualChange, "svg.glow", 0.9),
		mut(ir.AddEvent, "manifest.events", 0.6),
		mut(ir.ModifyState, "replication.rate", 0.8),
		mut(ir.AlterBehavior, "behaviors.idle", 0.3),
	}

	applyOK(t, org, muts...)

	require.Len(t, org.History, 1)
	rec := org.History[0]
	assert.Equal(t, nowMs, rec.Timestamp)
	assert.Equal(t, passing, rec.Vector)
	require.Len(t, rec.Mutations, 4)
	assert.Equal(t, ir.HistoryMutation{Type: ir.AlterBehavior, Target: "behaviors.idle", Strength: 0.3}, rec.Mutations[3])
	assert.Equal(t, int64(1), org.Generation)
}

func TestApply_ResultDoesNotAliasInput(t *testing.T) {
	org := ir.NewOrganism(nil)
	muts := []ir.Mutation{mut(ir.VisualChange, "svg.glow", 0.9)}

	res := applyOK(t, org, muts...)
	muts[0].Target = "changed"

	assert.Equal(t, "svg.glow", res.Mutations[0].Target)
}

func TestApply_ValueIsCopied(t *testing.T) {
	org := ir.NewOrganism(nil)
	value := ir.IRObject{"k": ir.IRNumber(1)}

	applyOK(t, org, ir.Mutation{Type: ir.VisualChange, Target: "svg.style", Value: value, Strength: 1})
	value["k"] = ir.IRNumber(2)

	assert.Equal(t, ir.IRNumber(1), leaf(t, org, "svg.style.k"))
}
