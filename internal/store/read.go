package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/morphic/internal/ir"
)

// OrganismInfo summarizes a stored organism without decoding its document.
type OrganismInfo struct {
	ID         string `json:"id"`
	Generation int64  `json:"generation"`
	Digest     string `json:"digest"`
	UpdatedAt  int64  `json:"updated_at"`
}

// Batch is a stored mutation batch.
type Batch struct {
	ID         string         `json:"id"`
	OrganismID string         `json:"organism_id"`
	Generation int64          `json:"generation"`
	Digest     string         `json:"digest"`
	Record     ir.BatchRecord `json:"record"`
}

// FitnessSample is one recorded fitness evaluation.
type FitnessSample struct {
	Generation int64   `json:"generation"`
	Value      float64 `json:"value"`
	Timestamp  int64   `json:"timestamp"`
}

// LoadOrganism returns the stored organism for id.
// Returns ErrNotFound if no such organism exists.
func (s *Store) LoadOrganism(ctx context.Context, id string) (*ir.Organism, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM organisms WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load organism %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load organism: %w", err)
	}
	return unmarshalDocument(doc)
}

// ListOrganisms returns every stored organism ordered by ID.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListOrganisms(ctx context.Context) ([]OrganismInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generation, digest, updated_at
		FROM organisms
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query organisms: %w", err)
	}
	defer rows.Close()

	infos := []OrganismInfo{}
	for rows.Next() {
		var info OrganismInfo
		if err := rows.Scan(&info.ID, &info.Generation, &info.Digest, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organism: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organisms: %w", err)
	}
	return infos, nil
}

// ListBatches returns the batches of an organism ordered by generation.
// Returns an empty slice (not nil) if no batches exist.
func (s *Store) ListBatches(ctx context.Context, organismID string) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organism_id, generation, timestamp, mutations, vector, digest
		FROM batches
		WHERE organism_id = ?
		ORDER BY generation ASC
	`, organismID)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}

// FitnessHistory returns the fitness samples of an organism ordered by
// generation, then by recording order.
func (s *Store) FitnessHistory(ctx context.Context, organismID string) ([]FitnessSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation, value, timestamp
		FROM fitness
		WHERE organism_id = ?
		ORDER BY generation ASC, seq ASC
	`, organismID)
	if err != nil {
		return nil, fmt.Errorf("query fitness: %w", err)
	}
	defer rows.Close()

	samples := []FitnessSample{}
	for rows.Next() {
		var f FitnessSample
		if err := rows.Scan(&f.Generation, &f.Value, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("scan fitness: %w", err)
		}
		samples = append(samples, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fitness: %w", err)
	}
	return samples, nil
}

func scanBatch(rows *sql.Rows) (Batch, error) {
	var (
		b                 Batch
		timestamp         int64
		mutations, vector string
	)
	if err := rows.Scan(&b.ID, &b.OrganismID, &b.Generation, &timestamp, &mutations, &vector, &b.Digest); err != nil {
		return Batch{}, fmt.Errorf("scan batch: %w", err)
	}
	rec, err := unmarshalBatch(timestamp, mutations, vector)
	if err != nil {
		return Batch{}, err
	}
	b.Record = rec
	return b, nil
}
