package errors

import (
	"errors"
	"strings"
)

// CycleError reports a rejected dependency addition that would have
// created a cycle. Path holds the full cycle in precedence order,
// starting and ending at the same task id, e.g. [T1 T2 T3 T1].
//
// CycleError unwraps to ErrCycle, so callers can categorize it with
// errors.Is(err, ErrCycle) and recover the path with AsCycleError.
type CycleError struct {
	Path []string
}

// NewCycleError creates a CycleError carrying the given cycle path.
func NewCycleError(path []string) *CycleError {
	return &CycleError{Path: path}
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Unwrap returns the ErrCycle sentinel.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// AsCycleError extracts a *CycleError from an error chain.
// Returns nil if the chain contains no CycleError.
func AsCycleError(err error) *CycleError {
	var e *CycleError
	if errors.As(err, &e) {
		return e
	}
	return nil
}
