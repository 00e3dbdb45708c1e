package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/morphic/internal/ir"
)

// marshalDocument converts an organism to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so that stored documents hash identically
// to ir.OrganismDigest.
func marshalDocument(org *ir.Organism) (string, error) {
	data, err := ir.MarshalCanonical(org.Document())
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses canonical JSON TEXT back into an organism.
// Uses ir.IRObject.UnmarshalJSON which decodes numbers via json.Number.
func unmarshalDocument(data string) (*ir.Organism, error) {
	var doc ir.IRObject
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	org, err := ir.DecodeOrganism(doc)
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return org, nil
}

// marshalBatch splits a batch record into its mutations and vector columns.
func marshalBatch(rec ir.BatchRecord) (mutations, vector string, err error) {
	doc := rec.Document()

	m, err := ir.MarshalCanonical(doc["mutations"])
	if err != nil {
		return "", "", fmt.Errorf("marshal batch mutations: %w", err)
	}
	v, err := ir.MarshalCanonical(doc["vector"])
	if err != nil {
		return "", "", fmt.Errorf("marshal batch vector: %w", err)
	}
	return string(m), string(v), nil
}

// unmarshalBatch rebuilds a batch record from its stored columns.
func unmarshalBatch(timestamp int64, mutations, vector string) (ir.BatchRecord, error) {
	var muts ir.IRArray
	if err := json.Unmarshal([]byte(mutations), &muts); err != nil {
		return ir.BatchRecord{}, fmt.Errorf("unmarshal batch mutations: %w", err)
	}
	var vec ir.IRObject
	if err := json.Unmarshal([]byte(vector), &vec); err != nil {
		return ir.BatchRecord{}, fmt.Errorf("unmarshal batch vector: %w", err)
	}

	rec, err := ir.DecodeBatchRecord(ir.IRObject{
		"timestamp": ir.IRNumber(timestamp),
		"mutations": muts,
		"vector":    vec,
	})
	if err != nil {
		return ir.BatchRecord{}, fmt.Errorf("unmarshal batch: %w", err)
	}
	return rec, nil
}
