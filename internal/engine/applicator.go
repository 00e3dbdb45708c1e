package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/roach88/morphic/internal/ir"
)

// AuditPath is where every applied mutation leaves a {color, strength, type,
// timestamp} record inside the organism graph.
const AuditPath = "state.mutations"

// ApplyResult reports the outcome of one Apply call.
//
// Applied is false when the drift magnitude did not reach the threshold;
// that outcome is a no-op, not an error, and Mutations is empty.
type ApplyResult struct {
	Applied   bool
	Mutations []ir.Mutation
	Vector    ir.DriftVector
}

// Apply gates a mutation batch on its drift magnitude and, if it passes,
// applies every mutation to org.
//
// The gate is evaluated once, before anything is touched. Mutations are
// applied in order to a deep copy of the graph; the copy replaces org.Graph
// only after every mutation and the audit records succeed. A PATH_CONFLICT
// on any mutation rejects the whole batch and leaves org exactly as it was.
// Targets rooted at a reserved document key (generation, mutation_history)
// are a PATH_CONFLICT.
//
// On success Generation increases by exactly one and exactly one BatchRecord
// is appended to History, regardless of batch size.
//
// The caller must hold exclusive access to org for the duration of the call.
func Apply(org *ir.Organism, mutations []ir.Mutation, vec ir.DriftVector, now time.Time, th Thresholds) (ApplyResult, error) {
	if err := th.Validate(); err != nil {
		return ApplyResult{}, NewInvalidInputError("invalid thresholds", err)
	}
	if vec.Magnitude < th.DriftThreshold {
		return ApplyResult{Applied: false, Mutations: []ir.Mutation{}, Vector: vec}, nil
	}

	graph := org.Graph.Clone()
	if graph == nil {
		graph = ir.IRObject{}
	}

	for i, m := range mutations {
		if key, ok := ir.ReservedTarget(m.Target); ok {
			return ApplyResult{}, NewPathConflictError(m.Target, i,
				fmt.Errorf("top-level key %q is managed by the engine", key))
		}
		if err := applyOne(graph, m); err != nil {
			var pe *ir.PathError
			if errors.As(err, &pe) {
				return ApplyResult{}, NewPathConflictError(m.Target, i, err)
			}
			return ApplyResult{}, err
		}
	}

	ts := now.UnixMilli()
	if err := appendAudit(graph, mutations, ts); err != nil {
		return ApplyResult{}, err
	}

	record := ir.BatchRecord{
		Timestamp: ts,
		Mutations: make([]ir.HistoryMutation, len(mutations)),
		Vector:    vec,
	}
	for i, m := range mutations {
		record.Mutations[i] = ir.HistoryMutation{Type: m.Type, Target: m.Target, Strength: m.Strength}
	}

	org.Graph = graph
	org.Generation++
	org.History = append(org.History, record)

	return ApplyResult{
		Applied:   true,
		Mutations: slices.Clone(mutations),
		Vector:    vec,
	}, nil
}

// applyOne mutates graph in place according to m.Type.
func applyOne(graph ir.IRObject, m ir.Mutation) error {
	parent, leaf, err := graph.Walk(m.Target)
	if err != nil {
		return err
	}

	value := ir.Clone(m.Value)
	if value == nil {
		value = ir.IRNull{}
	}

	switch m.Type {
	case ir.AddEvent:
		if seq, ok := parent[leaf].(ir.IRArray); ok {
			parent[leaf] = append(seq, value)
		} else {
			parent[leaf] = ir.IRArray{value}
		}

	case ir.ModifyState:
		// A numeric leaf is scaled by a numeric value; anything else,
		// including an absent leaf, is replaced.
		cur, curNum := parent[leaf].(ir.IRNumber)
		factor, facNum := value.(ir.IRNumber)
		if curNum && facNum {
			product := float64(cur) * float64(factor)
			if math.IsInf(product, 0) || math.IsNaN(product) {
				return &EngineError{
					Code:    ErrCodeInvalidInput,
					Message: "ModifyState overflows",
					Path:    m.Target,
				}
			}
			parent[leaf] = ir.IRNumber(product)
		} else {
			parent[leaf] = value
		}

	case ir.AlterBehavior, ir.VisualChange:
		parent[leaf] = value

	default:
		return &EngineError{
			Code:    ErrCodeInvalidInput,
			Message: fmt.Sprintf("unknown mutation type %q", m.Type),
			Path:    m.Target,
		}
	}
	return nil
}

// appendAudit appends one record per mutation to the AuditPath sequence.
func appendAudit(graph ir.IRObject, mutations []ir.Mutation, ts int64) error {
	parent, leaf, err := graph.Walk(AuditPath)
	if err != nil {
		return NewPathConflictError(AuditPath, -1, err)
	}

	audit, ok := parent[leaf].(ir.IRArray)
	if !ok {
		audit = ir.IRArray{}
	}
	for _, m := range mutations {
		audit = append(audit, ir.IRObject{
			"color":     ir.IRString(m.Color),
			"strength":  ir.IRNumber(m.Strength),
			"type":      ir.IRString(m.Type),
			"timestamp": ir.IRNumber(ts),
		})
	}
	parent[leaf] = audit
	return nil
}
