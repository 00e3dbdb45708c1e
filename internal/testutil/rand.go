package testutil

import (
	"fmt"
	"sync"
)

// ScriptedRand returns a predetermined sequence of draws.
//
// This makes each Bernoulli branch of the mutation generator individually
// controllable: a draw of 0 always fires, a draw of 0.99 never does.
//
// Panics when the script is exhausted. This is a fail-fast approach: a test
// that consumes more draws than it scripted has a wrong expectation about
// how many stochastic branches ran.
//
// Thread-safety: ScriptedRand is safe for concurrent use via internal mutex.
type ScriptedRand struct {
	mu    sync.Mutex
	draws []float64
	idx   int
}

// NewScriptedRand creates a source that yields draws in order.
func NewScriptedRand(draws ...float64) *ScriptedRand {
	return &ScriptedRand{draws: draws}
}

// Float64 returns the next scripted draw.
func (r *ScriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx >= len(r.draws) {
		panic(fmt.Sprintf("ScriptedRand: exhausted after %d draws", len(r.draws)))
	}
	d := r.draws[r.idx]
	r.idx++
	return d
}

// Used returns the number of draws consumed so far.
func (r *ScriptedRand) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idx
}

// ConstRand returns the same draw forever.
type ConstRand float64

// Float64 returns the constant.
func (r ConstRand) Float64() float64 {
	return float64(r)
}

// Always fires every stochastic branch with a positive probability.
const Always = ConstRand(0)

// Never fires no stochastic branch (every probability is below 1).
const Never = ConstRand(0.999999)
