package engine

import (
	"errors"
	"fmt"
)

// EngineError represents an error detected while scoring or applying
// mutations.
//
// Engine errors include:
//   - Invalid input: empty pattern sequence for fitness, non-finite numbers
//   - Path conflict: a mutation target traverses through a non-object value
//
// A drift magnitude below the threshold is NOT an error; see ApplyResult.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the mutation target (for path conflicts).
	Path string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates malformed or insufficient input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodePathConflict indicates a target path runs through a leaf.
	ErrCodePathConflict ErrorCode = "PATH_CONFLICT"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsInvalidInput returns true if the error is an invalid input error.
// Uses errors.As to handle wrapped errors.
func IsInvalidInput(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvalidInput
	}
	return false
}

// IsPathConflict returns true if the error is a path conflict error.
// Uses errors.As to handle wrapped errors.
func IsPathConflict(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodePathConflict
	}
	return false
}

// CodeOf returns the error code of err, or "" if err is not an EngineError.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// NewInvalidInputError creates an EngineError for invalid input.
func NewInvalidInputError(message string, cause error) *EngineError {
	return &EngineError{
		Code:    ErrCodeInvalidInput,
		Message: message,
		Err:     cause,
	}
}

// NewPathConflictError creates an EngineError for a path conflict on the
// index-th mutation of a batch.
func NewPathConflictError(path string, index int, cause error) *EngineError {
	return &EngineError{
		Code:    ErrCodePathConflict,
		Message: "mutation target cannot be written; batch rejected",
		Path:    path,
		Details: map[string]string{
			"mutation_index": fmt.Sprintf("%d", index),
		},
		Err: cause,
	}
}
