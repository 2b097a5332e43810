// Package domain provides shared domain types for the maestro
// orchestration engine.
package domain

import "github.com/mrz1836/maestro/internal/constants"

// Re-export status and priority types from the constants package.
// This lets consumers import domain types and status values together.
type (
	// TaskStatus represents the state of a task in the lifecycle machine.
	TaskStatus = constants.TaskStatus

	// TaskPriority represents the scheduling priority of a task.
	TaskPriority = constants.TaskPriority

	// PhaseStatus represents the state of a workflow phase.
	PhaseStatus = constants.PhaseStatus

	// WorkflowStatus represents the state of a workflow instance.
	WorkflowStatus = constants.WorkflowStatus

	// StepStatus represents the state of a step within a phase.
	StepStatus = constants.StepStatus
)

// Re-export task status constants for convenience.
const (
	TaskStatusPending    = constants.TaskStatusPending
	TaskStatusBlocked    = constants.TaskStatusBlocked
	TaskStatusInProgress = constants.TaskStatusInProgress
	TaskStatusCompleted  = constants.TaskStatusCompleted
	TaskStatusFailed     = constants.TaskStatusFailed
	TaskStatusCancelled  = constants.TaskStatusCancelled
)

// Re-export task priority constants for convenience.
const (
	TaskPriorityHigh   = constants.TaskPriorityHigh
	TaskPriorityMedium = constants.TaskPriorityMedium
	TaskPriorityLow    = constants.TaskPriorityLow
)
