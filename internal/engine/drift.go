package engine

import (
	"math"
	"slices"
	"strconv"

	"github.com/roach88/morphic/internal/ir"
)

// dimensionBlock separates the dimension ranges of the four mutation types.
const dimensionBlock = 1000

// Dimension maps a mutation to its drift dimension:
// typeIndex×1000 + TargetHash(target) mod 1000.
// Mutations sharing (type, target) always share a dimension.
func Dimension(m ir.Mutation) int {
	return m.Type.Index()*dimensionBlock + int(ir.TargetHash(m.Target)%dimensionBlock)
}

// Drift projects a mutation batch onto its drift vector.
//
// Strengths of mutations that land on the same dimension are summed.
// Direction is enumerated in ascending dimension order; Magnitude is the
// Euclidean norm of Direction. An empty batch has zero magnitude.
func Drift(mutations []ir.Mutation) (ir.DriftVector, error) {
	acc := make(map[int]float64, len(mutations))
	for i, m := range mutations {
		if !m.Type.Valid() {
			return ir.DriftVector{}, NewInvalidInputError("unknown mutation type "+string(m.Type), nil)
		}
		if math.IsNaN(m.Strength) || math.IsInf(m.Strength, 0) {
			return ir.DriftVector{}, &EngineError{
				Code:    ErrCodeInvalidInput,
				Message: "mutation strength is not finite",
				Path:    m.Target,
				Details: map[string]string{"mutation_index": strconv.Itoa(i)},
			}
		}
		acc[Dimension(m)] += m.Strength
	}

	dims := make([]int, 0, len(acc))
	for d := range acc {
		dims = append(dims, d)
	}
	slices.Sort(dims)

	vec := ir.DriftVector{
		Dimensions: dims,
		Direction:  make([]float64, len(dims)),
	}
	var sumSq float64
	for i, d := range dims {
		vec.Direction[i] = acc[d]
		sumSq += acc[d] * acc[d]
	}
	vec.Magnitude = math.Sqrt(sumSq)
	return vec, nil
}
