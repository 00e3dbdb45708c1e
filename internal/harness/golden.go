package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/morphic/internal/ir"
)

// Snapshot renders the deterministic parts of a result as an IR object:
// per-cycle classification, proposed mutations and gate decision, plus the
// final generation and graph. Drift magnitudes and fitness are left out
// because they are derived floating-point values; assert on them instead.
func Snapshot(name string, result *Result) ir.IRObject {
	cycles := make(ir.IRArray, len(result.Cycles))
	for i, c := range result.Cycles {
		muts := make(ir.IRArray, len(c.Proposed))
		for j, m := range c.Proposed {
			muts[j] = m.Document()
		}
		cycles[i] = ir.IRObject{
			"applied": ir.IRBool(c.Applied),
			"classification": ir.IRObject{
				"dominant":  stringArray(c.Classification.Dominant),
				"recessive": stringArray(c.Classification.Recessive),
				"emerging":  stringArray(c.Classification.Emerging),
			},
			"mutations": muts,
		}
	}

	snap := ir.IRObject{
		"scenario_name": ir.IRString(name),
		"cycles":        cycles,
	}
	if result.Organism != nil {
		snap["generation"] = ir.IRNumber(result.Organism.Generation)
		snap["graph"] = result.Organism.Graph.Clone()
	}
	if result.ErrorCode != "" {
		snap["error_code"] = ir.IRString(result.ErrorCode)
	}
	return snap
}

// SnapshotBytes is the canonical JSON encoding of Snapshot, the exact
// content of a golden file.
func SnapshotBytes(name string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot(name, result))
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

func stringArray(ss []string) ir.IRArray {
	arr := make(ir.IRArray, len(ss))
	for i, s := range ss {
		arr[i] = ir.IRString(s)
	}
	return arr
}
