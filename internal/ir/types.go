package ir

import (
	"fmt"
	"math"
	"slices"
)

// UsagePattern is one observed behavior event within an observation window.
// Supplied by the analytics collaborator; never modified by the engine.
type UsagePattern struct {
	Event           string  `json:"event" yaml:"event"`
	Frequency       float64 `json:"frequency" yaml:"frequency"`
	SuccessRate     float64 `json:"success_rate" yaml:"success_rate"`
	ResonanceImpact float64 `json:"resonance_impact" yaml:"resonance_impact"`
	Timestamp       int64   `json:"timestamp" yaml:"timestamp"` // epoch milliseconds
}

// Validate rejects non-finite numeric fields.
func (p UsagePattern) Validate() error {
	fields := []struct {
		name string
		f    float64
	}{
		{"frequency", p.Frequency},
		{"success_rate", p.SuccessRate},
		{"resonance_impact", p.ResonanceImpact},
	}
	for _, field := range fields {
		if math.IsNaN(field.f) || math.IsInf(field.f, 0) {
			return fmt.Errorf("pattern %q: %s is not finite", p.Event, field.name)
		}
	}
	return nil
}

// EcosystemFeedback summarizes one evaluation cycle of ecosystem interaction.
type EcosystemFeedback struct {
	Interactions      int64   `json:"interactions" yaml:"interactions"`
	ResonanceReceived float64 `json:"resonance_received" yaml:"resonance_received"`
	ClonesSpawned     int64   `json:"clones_spawned" yaml:"clones_spawned"`
	MutationsSurvived int64   `json:"mutations_survived" yaml:"mutations_survived"`
	EnergyFlow        float64 `json:"energy_flow" yaml:"energy_flow"`
}

// Validate rejects non-finite numeric fields.
func (f EcosystemFeedback) Validate() error {
	if math.IsNaN(f.ResonanceReceived) || math.IsInf(f.ResonanceReceived, 0) {
		return fmt.Errorf("feedback: resonance_received is not finite")
	}
	if math.IsNaN(f.EnergyFlow) || math.IsInf(f.EnergyFlow, 0) {
		return fmt.Errorf("feedback: energy_flow is not finite")
	}
	return nil
}

// MutationType selects how a mutation changes its target leaf.
type MutationType string

const (
	// AddEvent appends to a sequence leaf, or replaces the leaf with a
	// one-element sequence.
	AddEvent MutationType = "AddEvent"

	// ModifyState multiplies a numeric leaf by the mutation value, or
	// replaces a non-numeric leaf.
	ModifyState MutationType = "ModifyState"

	// AlterBehavior replaces the leaf.
	AlterBehavior MutationType = "AlterBehavior"

	// VisualChange replaces the leaf.
	VisualChange MutationType = "VisualChange"
)

// mutationTypeIndex fixes the drift dimension block of each type.
var mutationTypeIndex = map[MutationType]int{
	AddEvent:      0,
	ModifyState:   1,
	AlterBehavior: 2,
	VisualChange:  3,
}

// Index returns the fixed dimension block of t, or -1 for an unknown type.
func (t MutationType) Index() int {
	if i, ok := mutationTypeIndex[t]; ok {
		return i
	}
	return -1
}

// Valid reports whether t is one of the four mutation types.
func (t MutationType) Valid() bool {
	return t.Index() >= 0
}

// Mutation is a single proposed or applied change to an organism.
// Color is an opaque tag carried for audit and rendering.
type Mutation struct {
	Type     MutationType `json:"type"`
	Target   string       `json:"target"`
	Value    IRValue      `json:"value"`
	Strength float64      `json:"strength"`
	Color    string       `json:"color"`
}

// DriftVector is the numeric projection of a mutation batch.
// Dimensions[i] is the dimension index that Direction[i] accumulates.
type DriftVector struct {
	Dimensions []int     `json:"dimensions"`
	Direction  []float64 `json:"direction"`
	Magnitude  float64   `json:"magnitude"`
}

// HistoryMutation is the per-mutation summary kept in a batch record.
type HistoryMutation struct {
	Type     MutationType `json:"type"`
	Target   string       `json:"target"`
	Strength float64      `json:"strength"`
}

// BatchRecord is one accepted mutation batch in an organism's history.
type BatchRecord struct {
	Timestamp int64             `json:"timestamp"` // epoch milliseconds
	Mutations []HistoryMutation `json:"mutations"`
	Vector    DriftVector       `json:"vector"`
}

// Clone returns a copy of the record that shares no slices with rec.
func (rec BatchRecord) Clone() BatchRecord {
	return BatchRecord{
		Timestamp: rec.Timestamp,
		Mutations: slices.Clone(rec.Mutations),
		Vector: DriftVector{
			Dimensions: slices.Clone(rec.Vector.Dimensions),
			Direction:  slices.Clone(rec.Vector.Direction),
			Magnitude:  rec.Vector.Magnitude,
		},
	}
}

// Organism is the mutable configuration graph plus its engine-managed
// counters. Generation and History are kept out of Graph so that mutation
// targets can never clobber them.
type Organism struct {
	Graph      IRObject
	Generation int64
	History    []BatchRecord
}

// NewOrganism wraps graph in a generation-zero organism.
func NewOrganism(graph IRObject) *Organism {
	if graph == nil {
		graph = IRObject{}
	}
	return &Organism{Graph: graph}
}

// Clone returns a deep copy of the organism.
func (o *Organism) Clone() *Organism {
	var history []BatchRecord
	if o.History != nil {
		history = make([]BatchRecord, len(o.History))
		for i, rec := range o.History {
			history[i] = rec.Clone()
		}
	}
	return &Organism{
		Graph:      o.Graph.Clone(),
		Generation: o.Generation,
		History:    history,
	}
}
