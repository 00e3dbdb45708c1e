package engine

import "math/rand/v2"

// RandSource supplies uniform draws in [0, 1) for the Generator's stochastic
// branches. Feedback-triggered branches never consult it.
//
// Implementations need not be safe for concurrent use; an Engine is driven
// from one goroutine at a time.
type RandSource interface {
	Float64() float64
}

// NewSeededRand returns a reproducible PCG source for the given seed.
func NewSeededRand(seed uint64) RandSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
