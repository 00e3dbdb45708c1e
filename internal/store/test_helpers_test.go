package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/ir"
)

const testNowMs = 1700000000000

// createTestStore creates a new file-backed store in a temp directory with a
// fixed clock and predictable batch IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithClock(engine.NewFixedClockMillis(testNowMs)),
		WithIDGenerator(NewFixedGenerator("batch-1", "batch-2", "batch-3", "batch-4")),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestOrganism returns a generation-zero organism with a small graph.
func createTestOrganism() *ir.Organism {
	return ir.NewOrganism(ir.IRObject{
		"manifest": ir.IRObject{"name": ir.IRString("seed")},
		"behaviors": ir.IRObject{
			"replicate": ir.IRObject{"efficiency": ir.IRNumber(1)},
		},
	})
}

// advance simulates an accepted batch on org at the given timestamp.
func advance(org *ir.Organism, ts int64, target string, strength float64) {
	org.Generation++
	org.History = append(org.History, ir.BatchRecord{
		Timestamp: ts,
		Mutations: []ir.HistoryMutation{{Type: ir.VisualChange, Target: target, Strength: strength}},
		Vector:    ir.DriftVector{Dimensions: []int{3000}, Direction: []float64{strength}, Magnitude: strength},
	})
	parent, leaf, err := org.Graph.Walk(target)
	if err != nil {
		panic(err)
	}
	parent[leaf] = ir.IRBool(true)
}
