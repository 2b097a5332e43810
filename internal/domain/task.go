// Package domain provides shared domain types for the maestro
// orchestration engine. These types are used across all internal
// packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case per architecture requirements.
package domain

import (
	"fmt"
	"time"

	"github.com/mrz1836/maestro/internal/constants"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// Task represents a single unit of work in the dependency graph.
// The Dependencies field is the authoritative source of graph edges;
// the dependency index is always recomputable from it.
//
// Example JSON representation:
//
//	{
//	    "id": "task-7",
//	    "title": "Implement session cache",
//	    "status": "blocked",
//	    "priority": "high",
//	    "effort": 4,
//	    "estimated_hours": 12,
//	    "dependencies": ["task-3", "task-5"],
//	    "subtasks": [],
//	    "created_at": "2026-08-01T10:00:00Z",
//	    "updated_at": "2026-08-01T10:05:00Z"
//	}
type Task struct {
	// ID is the stable opaque identifier for the task, unique per graph.
	ID string `json:"id"`

	// Title is a short human-readable name.
	Title string `json:"title"`

	// Description elaborates on what the task entails.
	Description string `json:"description,omitempty"`

	// Status is the current lifecycle state.
	Status constants.TaskStatus `json:"status"`

	// Priority is the scheduling priority (high, medium, low).
	Priority constants.TaskPriority `json:"priority"`

	// Effort is a relative size score in [1, 5]. Tasks at or above the
	// configured threshold are candidates for subtask expansion.
	Effort int `json:"effort"`

	// EstimatedHours is the positive time estimate for the task.
	EstimatedHours float64 `json:"estimated_hours"`

	// Dependencies holds ids of tasks that must complete before this
	// task can start. No self references; every id must exist.
	Dependencies []string `json:"dependencies"`

	// Subtasks holds ordered ids of child tasks produced by expansion.
	// Subtasks are exclusively owned by their parent.
	Subtasks []string `json:"subtasks,omitempty"`

	// Tags is a free-form label set.
	Tags []string `json:"tags,omitempty"`

	// Assignee is an optional agent-role reference.
	Assignee string `json:"assignee,omitempty"`

	// Seq is the monotonic creation sequence within the graph, used for
	// deterministic tie-breaking in topological ordering.
	Seq int64 `json:"seq"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// Transitions is the audit trail of lifecycle changes.
	Transitions []Transition `json:"transitions,omitempty"`
}

// Transition records a single lifecycle change for the audit trail.
type Transition struct {
	// FromStatus is the status before the transition.
	FromStatus constants.TaskStatus `json:"from_status"`

	// ToStatus is the status after the transition.
	ToStatus constants.TaskStatus `json:"to_status"`

	// Timestamp is when the transition occurred.
	Timestamp time.Time `json:"timestamp"`

	// Reason is an optional explanation for the transition.
	Reason string `json:"reason,omitempty"`
}

// Validate checks the structural requirements on a task that do not
// need graph context: required fields, value ranges, self references.
// Graph-level checks (dependency existence, acyclicity) belong to the
// store.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: task id %w", maestroerrors.ErrValidation, maestroerrors.ErrEmptyValue)
	}
	if t.Title == "" {
		return fmt.Errorf("%w: task title %w", maestroerrors.ErrValidation, maestroerrors.ErrEmptyValue)
	}
	if !constants.ValidPriority(t.Priority) {
		return fmt.Errorf("%w: unknown priority %q", maestroerrors.ErrValidation, t.Priority)
	}
	if t.Effort < constants.MinEffort || t.Effort > constants.MaxEffort {
		return fmt.Errorf("%w: effort %d outside [%d, %d]",
			maestroerrors.ErrValidation, t.Effort, constants.MinEffort, constants.MaxEffort)
	}
	if t.EstimatedHours <= 0 {
		return fmt.Errorf("%w: estimated hours must be positive, got %v",
			maestroerrors.ErrValidation, t.EstimatedHours)
	}
	for _, dep := range t.Dependencies {
		if dep == t.ID {
			return fmt.Errorf("%w: %q", maestroerrors.ErrSelfDependency, t.ID)
		}
	}
	return nil
}

// DependsOn reports whether the task has a direct dependency on id.
func (t *Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the task. Stores hand out clones so
// read-only callers never alias canonical state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Dependencies != nil {
		cp.Dependencies = append([]string(nil), t.Dependencies...)
	}
	if t.Subtasks != nil {
		cp.Subtasks = append([]string(nil), t.Subtasks...)
	}
	if t.Tags != nil {
		cp.Tags = append([]string(nil), t.Tags...)
	}
	if t.Transitions != nil {
		cp.Transitions = append([]Transition(nil), t.Transitions...)
	}
	return &cp
}
