package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/morphic/internal/ir"
)

func TestCreateOrganism_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	org := createTestOrganism()

	if err := s.CreateOrganism(ctx, "org-1", org); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	var generation, updatedAt int64
	var digest string
	err := s.db.QueryRow(`SELECT generation, digest, updated_at FROM organisms WHERE id = ?`, "org-1").
		Scan(&generation, &digest, &updatedAt)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	want, err := ir.OrganismDigest(org)
	if err != nil {
		t.Fatalf("OrganismDigest() failed: %v", err)
	}
	if digest != want {
		t.Errorf("digest = %q, want %q", digest, want)
	}
	if generation != 0 {
		t.Errorf("generation = %d, want 0", generation)
	}
	if updatedAt != testNowMs {
		t.Errorf("updated_at = %d, want %d", updatedAt, testNowMs)
	}
}

func TestCreateOrganism_Duplicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.CreateOrganism(ctx, "org-1", createTestOrganism()); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}
	err := s.CreateOrganism(ctx, "org-1", createTestOrganism())
	if !errors.Is(err, ErrOrganismExists) {
		t.Errorf("second CreateOrganism() = %v, want ErrOrganismExists", err)
	}
}

func TestDocument_StoredCanonical(t *testing.T) {
	s := createTestStore(t)
	if err := s.CreateOrganism(context.Background(), "org-1", createTestOrganism()); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	var doc string
	if err := s.db.QueryRow(`SELECT document FROM organisms WHERE id = 'org-1'`).Scan(&doc); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	want := `{"behaviors":{"replicate":{"efficiency":1}},"generation":0,"manifest":{"name":"seed"},"mutation_history":[]}`
	if doc != want {
		t.Errorf("document = %s\nwant %s", doc, want)
	}
}

func TestSaveOrganism_MatchingGeneration(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	org := createTestOrganism()
	if err := s.CreateOrganism(ctx, "org-1", org); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	advance(org, testNowMs, "svg.glow", 0.9)
	if err := s.SaveOrganism(ctx, "org-1", org, 0); err != nil {
		t.Fatalf("SaveOrganism() failed: %v", err)
	}

	got, err := s.LoadOrganism(ctx, "org-1")
	if err != nil {
		t.Fatalf("LoadOrganism() failed: %v", err)
	}
	if diff := cmp.Diff(org, got); diff != "" {
		t.Errorf("LoadOrganism() mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveOrganism_StaleGeneration(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	org := createTestOrganism()
	if err := s.CreateOrganism(ctx, "org-1", org); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	// Host A commits generation 1.
	a := org.Clone()
	advance(a, testNowMs, "svg.glow", 0.9)
	if err := s.SaveOrganism(ctx, "org-1", a, 0); err != nil {
		t.Fatalf("SaveOrganism(A) failed: %v", err)
	}

	// Host B read generation 0 and tries to write on top of it.
	b := org.Clone()
	advance(b, testNowMs, "svg.pulse", 0.8)
	err := s.SaveOrganism(ctx, "org-1", b, 0)
	if !errors.Is(err, ErrGenerationConflict) {
		t.Fatalf("SaveOrganism(B) = %v, want ErrGenerationConflict", err)
	}

	var conflict *GenerationConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error %v is not a *GenerationConflictError", err)
	}
	if conflict.Expected != 0 || conflict.Actual != 1 {
		t.Errorf("conflict = %+v, want expected 0 actual 1", conflict)
	}

	// A's write survives.
	got, err := s.LoadOrganism(ctx, "org-1")
	if err != nil {
		t.Fatalf("LoadOrganism() failed: %v", err)
	}
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("stored organism changed (-want +got):\n%s", diff)
	}
}

func TestSaveOrganism_NotFound(t *testing.T) {
	s := createTestStore(t)
	err := s.SaveOrganism(context.Background(), "missing", createTestOrganism(), 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveOrganism() = %v, want ErrNotFound", err)
	}
}

func TestCommitCycle_WritesOrganismAndBatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	org := createTestOrganism()
	if err := s.CreateOrganism(ctx, "org-1", org); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	advance(org, testNowMs, "svg.glow", 0.9)
	id, err := s.CommitCycle(ctx, "org-1", org, 0)
	if err != nil {
		t.Fatalf("CommitCycle() failed: %v", err)
	}
	if id != "batch-1" {
		t.Errorf("batch id = %q, want batch-1", id)
	}

	advance(org, testNowMs+1000, "svg.pulse", 0.8)
	if _, err := s.CommitCycle(ctx, "org-1", org, 1); err != nil {
		t.Fatalf("second CommitCycle() failed: %v", err)
	}

	batches, err := s.ListBatches(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListBatches() failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("len(batches) = %d, want 2", len(batches))
	}
	for i, b := range batches {
		if b.Generation != int64(i+1) {
			t.Errorf("batches[%d].Generation = %d, want %d", i, b.Generation, i+1)
		}
		if diff := cmp.Diff(org.History[i], b.Record); diff != "" {
			t.Errorf("batches[%d].Record mismatch (-want +got):\n%s", i, diff)
		}
		want, _ := ir.BatchDigest(org.History[i])
		if b.Digest != want {
			t.Errorf("batches[%d].Digest = %q, want %q", i, b.Digest, want)
		}
	}
}

func TestCommitCycle_ConflictWritesNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	org := createTestOrganism()
	if err := s.CreateOrganism(ctx, "org-1", org); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	a := org.Clone()
	advance(a, testNowMs, "svg.glow", 0.9)
	if _, err := s.CommitCycle(ctx, "org-1", a, 0); err != nil {
		t.Fatalf("CommitCycle(A) failed: %v", err)
	}

	b := org.Clone()
	advance(b, testNowMs, "svg.pulse", 0.8)
	if _, err := s.CommitCycle(ctx, "org-1", b, 0); !errors.Is(err, ErrGenerationConflict) {
		t.Fatalf("CommitCycle(B) = %v, want ErrGenerationConflict", err)
	}

	batches, err := s.ListBatches(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListBatches() failed: %v", err)
	}
	if len(batches) != 1 {
		t.Errorf("len(batches) = %d, want 1", len(batches))
	}
}

func TestCommitCycle_RequiresNextGeneration(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	org := createTestOrganism()
	if err := s.CreateOrganism(ctx, "org-1", org); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	if _, err := s.CommitCycle(ctx, "org-1", org, 0); err == nil {
		t.Error("CommitCycle() without an accepted batch should fail")
	}
}

func TestRecordFitness_History(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.CreateOrganism(ctx, "org-1", createTestOrganism()); err != nil {
		t.Fatalf("CreateOrganism() failed: %v", err)
	}

	samples := []FitnessSample{
		{Generation: 1, Value: 0.7, Timestamp: testNowMs + 2},
		{Generation: 0, Value: 0.62, Timestamp: testNowMs},
		{Generation: 1, Value: 0.65, Timestamp: testNowMs + 3},
	}
	for _, f := range samples {
		if err := s.RecordFitness(ctx, "org-1", f.Generation, f.Value, f.Timestamp); err != nil {
			t.Fatalf("RecordFitness() failed: %v", err)
		}
	}

	got, err := s.FitnessHistory(ctx, "org-1")
	if err != nil {
		t.Fatalf("FitnessHistory() failed: %v", err)
	}
	want := []FitnessSample{samples[1], samples[0], samples[2]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FitnessHistory() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordFitness_UnknownOrganism(t *testing.T) {
	s := createTestStore(t)
	if err := s.RecordFitness(context.Background(), "missing", 0, 0.5, testNowMs); err == nil {
		t.Error("expected foreign key violation, got nil")
	}
}
