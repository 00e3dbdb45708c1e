package harness

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/morphic/internal/ir"
)

const defaultTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertClassification:
		return assertClassification(result, a)
	case AssertMutations:
		return assertMutations(result, a)
	case AssertApplied:
		return assertApplied(result, a)
	case AssertGeneration:
		return assertCount(a.Type, *a.Count, result.Organism.Generation)
	case AssertHistoryLength:
		return assertCount(a.Type, *a.Count, int64(len(result.Organism.History)))
	case AssertLeaf:
		return assertLeaf(result, a)
	case AssertFitness:
		return assertFitness(result, a)
	case AssertError:
		return assertError(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func cycleFor(result *Result, a Assertion) (CycleOutcome, error) {
	c, ok := result.cycle(a.Cycle)
	if !ok {
		return CycleOutcome{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("cycle %d to have completed", a.Cycle),
			Actual:   fmt.Sprintf("%d cycles completed", len(result.Cycles)),
		}
	}
	return c, nil
}

func assertClassification(result *Result, a Assertion) error {
	c, err := cycleFor(result, a)
	if err != nil {
		return err
	}

	var got []string
	switch a.Set {
	case "dominant":
		got = c.Classification.Dominant
	case "recessive":
		got = c.Classification.Recessive
	case "emerging":
		got = c.Classification.Emerging
	}

	want := a.Events
	if want == nil {
		want = []string{}
	}
	if !equalStrings(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", a.Set, want),
			Actual:   fmt.Sprintf("%s = %v", a.Set, got),
		}
	}
	return nil
}

func assertMutations(result *Result, a Assertion) error {
	c, err := cycleFor(result, a)
	if err != nil {
		return err
	}

	got := make([]string, len(c.Proposed))
	for i, m := range c.Proposed {
		got[i] = m.Target
	}
	if !equalStrings(a.Targets, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("targets %v", a.Targets),
			Actual:   fmt.Sprintf("targets %v", got),
		}
	}
	return nil
}

func assertApplied(result *Result, a Assertion) error {
	c, err := cycleFor(result, a)
	if err != nil {
		return err
	}
	if c.Applied != *a.Applied {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("applied = %v", *a.Applied),
			Actual:   fmt.Sprintf("applied = %v (magnitude %v)", c.Applied, c.Magnitude),
		}
	}
	return nil
}

func assertCount(typ string, want, got int64) error {
	if want != got {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%d", want),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

// assertLeaf compares a graph leaf. A nil value asserts the leaf is absent.
func assertLeaf(result *Result, a Assertion) error {
	got, found := result.Organism.Graph.Lookup(a.Path)

	if a.Value == nil {
		if found {
			return &AssertionError{Type: a.Type, Expected: a.Path + " absent", Actual: describe(got)}
		}
		return nil
	}

	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("leaf %s: %w", a.Path, err)
	}
	if !found {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %s", a.Path, describe(want)), Actual: "absent"}
	}
	if !equalValues(want, got, tolerance(a)) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", a.Path, describe(want)),
			Actual:   fmt.Sprintf("%s = %s", a.Path, describe(got)),
		}
	}
	return nil
}

func assertFitness(result *Result, a Assertion) error {
	want, _ := toFloat(a.Value)
	if result.Fitness == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", want),
			Actual:   "evaluation failed: " + result.FitnessErrorCode,
		}
	}
	if math.Abs(*result.Fitness-want) > tolerance(a) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", *result.Fitness),
		}
	}
	return nil
}

// assertError passes if either the cycle loop or fitness evaluation failed
// with the expected code.
func assertError(result *Result, a Assertion) error {
	if result.ErrorCode == a.Code || result.FitnessErrorCode == a.Code {
		return nil
	}
	actual := "no error"
	if result.ErrorCode != "" {
		actual = result.ErrorCode
	} else if result.FitnessErrorCode != "" {
		actual = "fitness " + result.FitnessErrorCode
	}
	return &AssertionError{Type: a.Type, Expected: a.Code, Actual: actual}
}

func tolerance(a Assertion) float64 {
	if a.Tolerance > 0 {
		return a.Tolerance
	}
	return defaultTolerance
}

// equalValues compares IR values structurally, with numbers compared
// within tol.
func equalValues(want, got ir.IRValue, tol float64) bool {
	switch w := want.(type) {
	case ir.IRNumber:
		g, ok := got.(ir.IRNumber)
		return ok && math.Abs(float64(w)-float64(g)) <= tol
	case ir.IRArray:
		g, ok := got.(ir.IRArray)
		if !ok || len(w) != len(g) {
			return false
		}
		for i := range w {
			if !equalValues(w[i], g[i], tol) {
				return false
			}
		}
		return true
	case ir.IRObject:
		g, ok := got.(ir.IRObject)
		if !ok || len(w) != len(g) {
			return false
		}
		for k, wv := range w {
			gv, present := g[k]
			if !present || !equalValues(wv, gv, tol) {
				return false
			}
		}
		return true
	default:
		wb, err1 := ir.MarshalCanonical(want)
		gb, err2 := ir.MarshalCanonical(got)
		return err1 == nil && err2 == nil && bytes.Equal(wb, gb)
	}
}

func describe(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%s>", ir.KindOf(v))
	}
	return string(b)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
