package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/ir"
	"github.com/roach88/morphic/internal/store"
	"github.com/roach88/morphic/internal/testutil"
)

// ErrCodeHarness marks a run stopped by a scenario problem rather than an
// engine error, such as an exhausted draw script.
const ErrCodeHarness = "HARNESS_ERROR"

// Harness executes scenarios against the real engine and a fresh store.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	scenario *Scenario
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
//  1. Create fresh in-memory database and insert the seed organism
//  2. Run the configured number of cycles, committing each accepted batch
//  3. Reload the organism from the store and check it matches
//  4. Evaluate fitness
//  5. Evaluate assertions
//
// An engine error (INVALID_INPUT, PATH_CONFLICT) stops the cycle loop and is
// recorded on the result; it fails the scenario unless an error assertion
// expects it. Only infrastructure failures are returned as errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, zap.NewNop())
}

// RunWithLogger is Run with engine logging routed to logger.
func RunWithLogger(scenario *Scenario, logger *zap.Logger) (*Result, error) {
	org, err := seedOrganism(scenario.Organism)
	if err != nil {
		return nil, fmt.Errorf("invalid organism: %w", err)
	}

	st, err := store.Open(":memory:",
		store.WithClock(engine.NewFixedClockMillis(scenario.Now)),
		store.WithIDGenerator(&sequenceIDs{prefix: scenario.Name}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.CreateOrganism(ctx, scenario.Name, org); err != nil {
		return nil, err
	}

	var rnd engine.RandSource = engine.NewSeededRand(scenario.Seed)
	if len(scenario.Draws) > 0 {
		rnd = testutil.NewScriptedRand(scenario.Draws...)
	}

	h := &Harness{
		store: st,
		engine: engine.New(
			engine.WithThresholds(scenario.Thresholds),
			engine.WithRand(rnd),
			engine.WithClock(testutil.NewDeterministicClock(scenario.Now, time.Duration(scenario.StepMs)*time.Millisecond)),
			engine.WithLogger(logger),
		),
		scenario: scenario,
	}

	result := NewResult()
	if err := h.runCycles(ctx, org, result); err != nil {
		return nil, err
	}

	stored, err := st.LoadOrganism(ctx, scenario.Name)
	if err != nil {
		return nil, err
	}
	if err := sameOrganism(org, stored); err != nil {
		result.AddError(err.Error())
	}
	result.Organism = org

	h.evaluateFitness(ctx, org, result)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	if result.ErrorCode != "" && !expectsError(scenario.Assertions) {
		result.AddError(fmt.Sprintf("unexpected engine error: %s", result.Error))
	}

	return result, nil
}

func (h *Harness) runCycles(ctx context.Context, org *ir.Organism, result *Result) error {
	for i := 0; i < h.scenario.Cycles; i++ {
		prev := org.Generation

		res, err := h.cycle(org)
		if err != nil {
			result.ErrorCode = string(engine.CodeOf(err))
			if result.ErrorCode == "" {
				result.ErrorCode = ErrCodeHarness
			}
			result.Error = err.Error()
			return nil
		}

		outcome := CycleOutcome{
			Classification: res.Classification,
			Proposed:       res.Proposed,
			Magnitude:      res.Vector.Magnitude,
			Applied:        res.Applied,
		}
		if res.Applied {
			id, err := h.store.CommitCycle(ctx, h.scenario.Name, org, prev)
			if err != nil {
				return fmt.Errorf("cycle %d: %w", i+1, err)
			}
			outcome.BatchID = id
		}
		result.Cycles = append(result.Cycles, outcome)
	}
	return nil
}

// cycle runs one engine cycle, converting an exhausted draw script into an
// error rather than a panic.
func (h *Harness) cycle(org *ir.Organism) (res engine.CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scenario %s: %v", h.scenario.Name, r)
		}
	}()
	return h.engine.Cycle(org, h.scenario.Patterns, h.scenario.Feedback)
}

func (h *Harness) evaluateFitness(ctx context.Context, org *ir.Organism, result *Result) {
	f, err := h.engine.Evaluate(h.scenario.Patterns, h.scenario.Feedback)
	if err != nil {
		result.FitnessErrorCode = string(engine.CodeOf(err))
		return
	}
	result.Fitness = &f
	if err := h.store.RecordFitness(ctx, h.scenario.Name, org.Generation, f, h.scenario.Now); err != nil {
		result.AddError(fmt.Sprintf("record fitness: %v", err))
	}
}

func seedOrganism(doc map[string]any) (*ir.Organism, error) {
	if doc == nil {
		return ir.NewOrganism(nil), nil
	}
	v, err := ir.FromAny(doc)
	if err != nil {
		return nil, err
	}
	return ir.DecodeOrganism(v.(ir.IRObject))
}

func sameOrganism(want, got *ir.Organism) error {
	wantDigest, err := ir.OrganismDigest(want)
	if err != nil {
		return err
	}
	gotDigest, err := ir.OrganismDigest(got)
	if err != nil {
		return err
	}
	if wantDigest != gotDigest {
		return fmt.Errorf("stored organism diverged: digest %s, want %s", gotDigest, wantDigest)
	}
	return nil
}

func expectsError(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertError {
			return true
		}
	}
	return false
}

// sequenceIDs yields "<prefix>-batch-1", "<prefix>-batch-2", ...
type sequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (g *sequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-batch-%d", g.prefix, g.n)
}
