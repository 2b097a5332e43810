// Package gen defines the interface to the external generation
// collaborator used for subtask expansion, and the normalization of its
// responses into structured subtask descriptors.
//
// The engine never depends on a concrete collaborator: expansion is
// generated through the Generator interface so that tests and the
// deterministic fallback path work identically. Implementations are
// expected to be slow and unreliable; callers bound every invocation
// with a context deadline and recover from any failure locally.
//
// IMPORTANT: This package may import internal/constants, internal/errors
// and internal/domain. It MUST NOT import internal/task or
// internal/workflow.
package gen

import (
	"context"

	"github.com/mrz1836/maestro/internal/domain"
)

// Request describes one subtask generation call.
type Request struct {
	// TaskID is the task being expanded, for logging and tracing.
	TaskID string

	// Title and Description describe the work to split.
	Title       string
	Description string

	// Count is the number of subtasks requested. Responses with a
	// different count are normalized by the caller.
	Count int

	// Effort is the parent's effort score, given to the collaborator as
	// a sizing hint.
	Effort int
}

// Response is the raw outcome of one generation call. Exactly one of
// the two fields is expected to be populated: Descriptors when the
// collaborator produced structured output, Text when it produced
// freeform prose that still needs parsing.
type Response struct {
	// Descriptors is the structured subtask list.
	Descriptors []domain.SubtaskDescriptor

	// Text is the unparsed collaborator output.
	Text string
}

// Generator produces subtask proposals for a task. Implementations must
// honor context cancellation; callers treat every error (and every
// unusable response) as recoverable.
type Generator interface {
	// Generate proposes subtasks for the request.
	Generate(ctx context.Context, req Request) (*Response, error)
}
