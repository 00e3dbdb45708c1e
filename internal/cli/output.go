package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Engine rejected the input, or scenarios failed
	ExitCommandError = 2 // Command error (missing files, bad flags, database errors)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E002" // File or organism not found
	ErrCodeLoadFailed   = "E003" // Input document could not be decoded
	ErrCodeWriteFailed  = "E004" // Output file could not be written
	ErrCodeStore        = "E005" // Database error
	ErrCodeInvalidInput = "E101" // Engine INVALID_INPUT
	ErrCodePathConflict = "E102" // Engine PATH_CONFLICT
	ErrCodeConflict     = "E103" // Stored generation moved underneath us
	ErrCodeTestFailed   = "E201" // One or more scenarios failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	ErrCode string // CLIError code, optional
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the command
	// output, so main does not print it twice.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported reports whether err was already written to the command output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// classifyError maps an error from the engine or store onto an exit code and
// CLI error code.
func classifyError(message string, err error) *ExitError {
	exitErr := WrapExitError(ExitCommandError, message, err)
	switch {
	case engine.IsInvalidInput(err):
		exitErr.Code, exitErr.ErrCode = ExitFailure, ErrCodeInvalidInput
	case engine.IsPathConflict(err):
		exitErr.Code, exitErr.ErrCode = ExitFailure, ErrCodePathConflict
	case errors.Is(err, store.ErrGenerationConflict):
		exitErr.Code, exitErr.ErrCode = ExitFailure, ErrCodeConflict
	case errors.Is(err, store.ErrNotFound):
		exitErr.ErrCode = ErrCodeNotFound
	default:
		exitErr.ErrCode = ErrCodeGeneric
	}
	return exitErr
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// textRenderer is implemented by payloads with a custom text rendering.
type textRenderer interface {
	RenderText(w io.Writer)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if r, ok := data.(textRenderer); ok {
		r.RenderText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err through the formatter and returns it as an ExitError so
// the command exits with the matching code. Errors that are not already an
// ExitError are classified first.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = classifyError("command failed", err)
	}
	code := exitErr.ErrCode
	if code == "" {
		code = ErrCodeGeneric
	}
	var details interface{}
	var ee *engine.EngineError
	if errors.As(exitErr, &ee) && (ee.Path != "" || len(ee.Details) > 0) {
		d := map[string]string{}
		for k, v := range ee.Details {
			d[k] = v
		}
		if ee.Path != "" {
			d["path"] = ee.Path
		}
		details = d
	}
	if outErr := f.Error(code, exitErr.Error(), details); outErr != nil {
		return outErr
	}
	exitErr.Reported = true
	return exitErr
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
