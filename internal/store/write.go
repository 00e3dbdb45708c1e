package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/morphic/internal/ir"
)

// CreateOrganism inserts a new organism. Returns ErrOrganismExists if the
// ID is already taken.
func (s *Store) CreateOrganism(ctx context.Context, id string, org *ir.Organism) error {
	row, err := s.organismRow(org)
	if err != nil {
		return fmt.Errorf("create organism: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO organisms (id, document, generation, digest, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, row.document, org.Generation, row.digest, row.updatedAt)
	if err != nil {
		return fmt.Errorf("create organism: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create organism: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("create organism %q: %w", id, ErrOrganismExists)
	}
	return nil
}

// SaveOrganism replaces the stored document for id. The write happens only
// if the stored generation equals prevGeneration; otherwise it returns a
// *GenerationConflictError and the store is unchanged.
//
// Batches are not written; use CommitCycle after an accepted cycle.
func (s *Store) SaveOrganism(ctx context.Context, id string, org *ir.Organism, prevGeneration int64) error {
	row, err := s.organismRow(org)
	if err != nil {
		return fmt.Errorf("save organism: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save organism: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := checkGeneration(ctx, tx, id, prevGeneration); err != nil {
		return fmt.Errorf("save organism: %w", err)
	}
	if err := updateOrganism(ctx, tx, id, org.Generation, row); err != nil {
		return fmt.Errorf("save organism: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save organism: commit: %w", err)
	}
	return nil
}

// CommitCycle persists the result of an accepted mutation cycle: the
// updated organism document and its newest history record, in a single
// transaction. org must be exactly one generation ahead of prevGeneration.
//
// Returns the ID assigned to the batch row.
func (s *Store) CommitCycle(ctx context.Context, id string, org *ir.Organism, prevGeneration int64) (string, error) {
	if org.Generation != prevGeneration+1 {
		return "", fmt.Errorf("commit cycle: organism generation %d does not follow %d", org.Generation, prevGeneration)
	}
	if len(org.History) == 0 {
		return "", fmt.Errorf("commit cycle: organism has no history")
	}
	rec := org.History[len(org.History)-1]

	row, err := s.organismRow(org)
	if err != nil {
		return "", fmt.Errorf("commit cycle: %w", err)
	}
	mutations, vector, err := marshalBatch(rec)
	if err != nil {
		return "", fmt.Errorf("commit cycle: %w", err)
	}
	digest, err := ir.BatchDigest(rec)
	if err != nil {
		return "", fmt.Errorf("commit cycle: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("commit cycle: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkGeneration(ctx, tx, id, prevGeneration); err != nil {
		return "", fmt.Errorf("commit cycle: %w", err)
	}
	if err := updateOrganism(ctx, tx, id, org.Generation, row); err != nil {
		return "", fmt.Errorf("commit cycle: %w", err)
	}

	batchID := s.ids.Generate()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, organism_id, generation, timestamp, mutations, vector, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, batchID, id, org.Generation, rec.Timestamp, mutations, vector, digest)
	if err != nil {
		return "", fmt.Errorf("commit cycle: insert batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit cycle: commit: %w", err)
	}
	return batchID, nil
}

// RecordFitness appends a fitness sample for an existing organism.
func (s *Store) RecordFitness(ctx context.Context, id string, generation int64, value float64, timestampMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fitness (organism_id, generation, value, timestamp)
		VALUES (?, ?, ?, ?)
	`, id, generation, value, timestampMs)
	if err != nil {
		return fmt.Errorf("record fitness: %w", err)
	}
	return nil
}

type organismRow struct {
	document  string
	digest    string
	updatedAt int64
}

func (s *Store) organismRow(org *ir.Organism) (organismRow, error) {
	doc, err := marshalDocument(org)
	if err != nil {
		return organismRow{}, err
	}
	digest, err := ir.OrganismDigest(org)
	if err != nil {
		return organismRow{}, err
	}
	return organismRow{
		document:  doc,
		digest:    digest,
		updatedAt: s.clock.Now().UnixMilli(),
	}, nil
}

func checkGeneration(ctx context.Context, tx *sql.Tx, id string, expected int64) error {
	var stored int64
	err := tx.QueryRowContext(ctx, `SELECT generation FROM organisms WHERE id = ?`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read generation: %w", err)
	}
	if stored != expected {
		return &GenerationConflictError{OrganismID: id, Expected: expected, Actual: stored}
	}
	return nil
}

func updateOrganism(ctx context.Context, tx *sql.Tx, id string, generation int64, row organismRow) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE organisms
		SET document = ?, generation = ?, digest = ?, updated_at = ?
		WHERE id = ?
	`, row.document, generation, row.digest, row.updatedAt, id)
	if err != nil {
		return fmt.Errorf("update organism: %w", err)
	}
	return nil
}
