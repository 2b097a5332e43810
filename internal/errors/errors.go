// Package errors provides centralized error handling for maestro.
//
// This package defines sentinel errors used for programmatic error
// categorization throughout the engine. All error types can be checked
// using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
var (
	// ErrValidation indicates a malformed entity: missing required
	// fields, out-of-range values, a duplicate id, or a dependency that
	// references a nonexistent task.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an unknown task, workflow, phase or step id.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict indicates an illegal status transition, or a
	// structural operation blocked by current state (for example,
	// removing a task that still has dependents without cascade).
	ErrStateConflict = errors.New("state conflict")

	// ErrCycle indicates a dependency addition that would create a cycle.
	// Concrete occurrences are carried by *CycleError, which records the
	// full cycle path.
	ErrCycle = errors.New("dependency cycle")

	// ErrSelfDependency indicates a task referencing itself as a
	// dependency. Self references are a validation failure.
	ErrSelfDependency = errors.New("task cannot depend on itself")

	// ErrExternalGeneration indicates the external generation
	// collaborator was unreachable or its response could not be used.
	// Callers always recover locally via the deterministic fallback;
	// this is never surfaced as a fatal failure.
	ErrExternalGeneration = errors.New("external generation failed")

	// ErrUnparsableResponse indicates a collaborator response that could
	// not be normalized into a structured subtask list.
	ErrUnparsableResponse = errors.New("unparsable generation response")

	// ErrPersistence indicates an I/O failure while saving or loading the
	// graph document. The triggering operation is aborted; previously
	// persisted state remains intact because writes are atomic.
	ErrPersistence = errors.New("persistence failed")

	// ErrLockTimeout indicates the document file lock could not be
	// acquired within the configured timeout.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrInvalidTransition indicates an attempt to make an invalid
	// lifecycle transition. It wraps into the StateConflict category.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownOperation indicates a dispatch request for an operation
	// name that is not registered.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidInput indicates an operation request that does not
	// satisfy the operation's input contract.
	ErrInvalidInput = errors.New("invalid operation input")

	// ErrEmptyValue indicates a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")
)
