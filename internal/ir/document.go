package ir

import (
	"fmt"
	"math"
	"strings"
)

// Reserved top-level document keys managed by the engine rather than by
// mutations.
const (
	KeyGeneration      = "generation"
	KeyMutationHistory = "mutation_history"
)

// ReservedTarget reports whether the first segment of a dot path names a
// reserved document key, and returns that key.
func ReservedTarget(path string) (string, bool) {
	head, _, _ := strings.Cut(path, ".")
	switch head {
	case KeyGeneration, KeyMutationHistory:
		return head, true
	}
	return "", false
}

// Document merges the organism graph with its engine-managed fields into a
// single object, the shape persisted by the store and the loader.
// The returned object shares no structure with o.
func (o *Organism) Document() IRObject {
	doc := o.Graph.Clone()
	if doc == nil {
		doc = IRObject{}
	}
	doc[KeyGeneration] = IRNumber(o.Generation)

	history := make(IRArray, len(o.History))
	for i, rec := range o.History {
		history[i] = rec.Document()
	}
	doc[KeyMutationHistory] = history
	return doc
}

// Document renders the batch record as an IRObject.
func (rec BatchRecord) Document() IRObject {
	muts := make(IRArray, len(rec.Mutations))
	for i, m := range rec.Mutations {
		muts[i] = IRObject{
			"type":     IRString(m.Type),
			"target":   IRString(m.Target),
			"strength": IRNumber(m.Strength),
		}
	}
	return IRObject{
		"timestamp": IRNumber(rec.Timestamp),
		"mutations": muts,
		"vector":    rec.Vector.Document(),
	}
}

// Document renders the drift vector as an IRObject.
func (v DriftVector) Document() IRObject {
	dims := make(IRArray, len(v.Dimensions))
	for i, d := range v.Dimensions {
		dims[i] = IRNumber(d)
	}
	dir := make(IRArray, len(v.Direction))
	for i, d := range v.Direction {
		dir[i] = IRNumber(d)
	}
	return IRObject{
		"dimensions": dims,
		"direction":  dir,
		"magnitude":  IRNumber(v.Magnitude),
	}
}

// Document renders the mutation as an IRObject.
func (m Mutation) Document() IRObject {
	value := m.Value
	if value == nil {
		value = IRNull{}
	}
	return IRObject{
		"type":     IRString(m.Type),
		"target":   IRString(m.Target),
		"value":    value,
		"strength": IRNumber(m.Strength),
		"color":    IRString(m.Color),
	}
}

// DecodeOrganism splits a document into graph, generation and history.
// Missing engine-managed keys default to generation 0 and an empty history.
// The input object is not modified.
func DecodeOrganism(doc IRObject) (*Organism, error) {
	graph := doc.Clone()
	if graph == nil {
		graph = IRObject{}
	}
	org := &Organism{Graph: graph}

	if raw, ok := graph[KeyGeneration]; ok {
		gen, err := asInt64(raw)
		if err != nil || gen < 0 {
			return nil, fmt.Errorf("%s: expected non-negative integer, got %s", KeyGeneration, KindOf(raw))
		}
		org.Generation = gen
		delete(graph, KeyGeneration)
	}

	if raw, ok := graph[KeyMutationHistory]; ok {
		arr, isArr := raw.(IRArray)
		if !isArr {
			return nil, fmt.Errorf("%s: expected array, got %s", KeyMutationHistory, KindOf(raw))
		}
		for i, elem := range arr {
			rec, err := DecodeBatchRecord(elem)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", KeyMutationHistory, i, err)
			}
			org.History = append(org.History, rec)
		}
		delete(graph, KeyMutationHistory)
	}

	return org, nil
}

// DecodeBatchRecord parses one mutation_history entry.
func DecodeBatchRecord(v IRValue) (BatchRecord, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return BatchRecord{}, fmt.Errorf("expected object, got %s", KindOf(v))
	}

	var rec BatchRecord
	ts, err := asInt64(obj["timestamp"])
	if err != nil {
		return BatchRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	rec.Timestamp = ts

	if raw, ok := obj["mutations"]; ok {
		arr, isArr := raw.(IRArray)
		if !isArr {
			return BatchRecord{}, fmt.Errorf("mutations: expected array, got %s", KindOf(raw))
		}
		for i, elem := range arr {
			m, isObj := elem.(IRObject)
			if !isObj {
				return BatchRecord{}, fmt.Errorf("mutations[%d]: expected object, got %s", i, KindOf(elem))
			}
			typ, _ := m["type"].(IRString)
			target, _ := m["target"].(IRString)
			strength, _ := m["strength"].(IRNumber)
			rec.Mutations = append(rec.Mutations, HistoryMutation{
				Type:     MutationType(typ),
				Target:   string(target),
				Strength: float64(strength),
			})
		}
	}

	if raw, ok := obj["vector"]; ok {
		vec, err := decodeDriftVector(raw)
		if err != nil {
			return BatchRecord{}, fmt.Errorf("vector: %w", err)
		}
		rec.Vector = vec
	}
	return rec, nil
}

func decodeDriftVector(v IRValue) (DriftVector, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return DriftVector{}, fmt.Errorf("expected object, got %s", KindOf(v))
	}

	var vec DriftVector
	if dims, ok := obj["dimensions"].(IRArray); ok {
		for _, d := range dims {
			n, err := asInt64(d)
			if err != nil {
				return DriftVector{}, fmt.Errorf("dimensions: %w", err)
			}
			vec.Dimensions = append(vec.Dimensions, int(n))
		}
	}
	if dir, ok := obj["direction"].(IRArray); ok {
		for _, d := range dir {
			n, isNum := d.(IRNumber)
			if !isNum {
				return DriftVector{}, fmt.Errorf("direction: expected number, got %s", KindOf(d))
			}
			vec.Direction = append(vec.Direction, float64(n))
		}
	}
	if mag, ok := obj["magnitude"].(IRNumber); ok {
		vec.Magnitude = float64(mag)
	}
	return vec, nil
}

func asInt64(v IRValue) (int64, error) {
	n, ok := v.(IRNumber)
	if !ok {
		return 0, fmt.Errorf("expected number, got %s", KindOf(v))
	}
	f := float64(n)
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}
