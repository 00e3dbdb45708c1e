package harness

import (
	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/ir"
)

// CycleOutcome records what one completed cycle produced.
type CycleOutcome struct {
	Classification engine.Classification `json:"classification"`
	Proposed       []ir.Mutation         `json:"proposed"`
	Magnitude      float64               `json:"magnitude"`
	Applied        bool                  `json:"applied"`

	// BatchID is the store ID of the accepted batch, empty if not applied.
	BatchID string `json:"batch_id,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Cycles holds one entry per completed cycle. A cycle that failed with
	// an engine error is not included.
	Cycles []CycleOutcome `json:"cycles"`

	// Organism is the final organism state.
	Organism *ir.Organism `json:"-"`

	// ErrorCode and Error describe the engine error that stopped the run,
	// if any.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// Fitness is the evaluated fitness, nil if evaluation failed.
	Fitness *float64 `json:"fitness,omitempty"`

	// FitnessErrorCode is set when fitness evaluation failed.
	FitnessErrorCode string `json:"fitness_error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cycles: []CycleOutcome{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// cycle returns the n-th (1-based) cycle outcome, or the last one for n == 0.
func (r *Result) cycle(n int) (CycleOutcome, bool) {
	if n == 0 {
		n = len(r.Cycles)
	}
	if n < 1 || n > len(r.Cycles) {
		return CycleOutcome{}, false
	}
	return r.Cycles[n-1], true
}
