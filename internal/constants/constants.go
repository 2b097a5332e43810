// Package constants provides shared constants for the maestro
// orchestration engine. This package has no internal dependencies and
// may be imported from anywhere.
package constants

import "time"

// Schema versions stamped into persisted documents. Bump on any
// incompatible change to the serialized shape.
const (
	// GraphSchemaVersion is the version of the persisted graph document.
	GraphSchemaVersion = 1

	// WorkflowSchemaVersion is the version of persisted workflow documents.
	WorkflowSchemaVersion = 1
)

// Task field bounds.
const (
	// MinEffort is the lowest allowed task effort score.
	MinEffort = 1

	// MaxEffort is the highest allowed task effort score.
	MaxEffort = 5
)

// Expansion defaults.
const (
	// DefaultExpandThreshold is the effort score at or above which a task
	// is considered over-sized and eligible for subtask expansion.
	DefaultExpandThreshold = 3

	// DefaultSubtaskCount is the number of subtasks produced when the
	// caller does not request a specific count.
	DefaultSubtaskCount = 5

	// DefaultGenerationTimeout bounds a single call to the external
	// generation collaborator. After this the deterministic fallback
	// catalogue is used.
	DefaultGenerationTimeout = 2 * time.Minute
)

// Generation retry policy. Only transient collaborator failures are
// retried; the expansion advisor falls back to the catalogue once the
// attempts are exhausted.
const (
	// MaxGenerationAttempts is the total number of collaborator calls
	// made for one expansion before giving up.
	MaxGenerationAttempts = 3

	// InitialBackoff is the delay before the first retry.
	InitialBackoff = 1 * time.Second

	// BackoffMultiplier grows the delay between successive retries.
	BackoffMultiplier = 2
)

// Persistence defaults.
const (
	// DefaultLockTimeout is the maximum duration to wait for the graph
	// document file lock.
	DefaultLockTimeout = 5 * time.Second
)
