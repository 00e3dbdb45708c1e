package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/roach88/morphic/internal/engine"
	"github.com/roach88/morphic/internal/ir"
	"github.com/roach88/morphic/internal/loader"
)

// loadErr wraps a loader failure with the matching CLI error code.
func loadErr(what, path string, err error) *ExitError {
	exitErr := WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s %s", what, path), err)
	if errors.Is(err, fs.ErrNotExist) {
		exitErr.ErrCode = ErrCodeNotFound
	} else {
		exitErr.ErrCode = ErrCodeLoadFailed
	}
	return exitErr
}

func readPatterns(path string) ([]ir.UsagePattern, error) {
	patterns, err := loader.LoadPatterns(path)
	if err != nil {
		return nil, loadErr("patterns", path, err)
	}
	return patterns, nil
}

func readFeedback(path string) (ir.EcosystemFeedback, error) {
	fb, err := loader.LoadFeedback(path)
	if err != nil {
		return ir.EcosystemFeedback{}, loadErr("feedback", path, err)
	}
	return fb, nil
}

// clockFor returns a clock pinned to nowMs, or the system clock when nowMs
// is zero.
func clockFor(nowMs int64) engine.Clock {
	if nowMs != 0 {
		return engine.NewFixedClockMillis(nowMs)
	}
	return engine.SystemClock{}
}

// seedFor picks the random seed: the flag, then config, then the wall clock.
func seedFor(flag, configured uint64) uint64 {
	if flag != 0 {
		return flag
	}
	if configured != 0 {
		return configured
	}
	return uint64(time.Now().UnixNano())
}

func storeErr(message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, ErrCode: ErrCodeStore, Message: message, Err: err}
}

// resolveDB returns the --db flag, falling back to store.path from config.
func resolveDB(flag string, opts *RootOptions) string {
	if flag != "" {
		return flag
	}
	return opts.Config().Store.Path
}
