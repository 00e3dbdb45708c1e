package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no organism exists for an ID.
	ErrNotFound = errors.New("organism not found")

	// ErrOrganismExists is returned by CreateOrganism for a taken ID.
	ErrOrganismExists = errors.New("organism already exists")

	// ErrGenerationConflict is returned when the stored generation differs
	// from the generation the caller read. Callers should reload and retry.
	ErrGenerationConflict = errors.New("generation conflict")
)

// GenerationConflictError carries the generations involved in a failed
// optimistic write. It matches ErrGenerationConflict under errors.Is.
type GenerationConflictError struct {
	OrganismID string
	Expected   int64
	Actual     int64
}

func (e *GenerationConflictError) Error() string {
	return fmt.Sprintf("%s: organism %q expected generation %d, stored %d",
		ErrGenerationConflict, e.OrganismID, e.Expected, e.Actual)
}

func (e *GenerationConflictError) Is(target error) bool {
	return target == ErrGenerationConflict
}
