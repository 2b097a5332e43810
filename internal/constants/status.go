package constants

// TaskStatus represents the state of a task in the maestro lifecycle.
// Status values are serialized verbatim into the graph document.
type TaskStatus string

// Task status constants define the valid states a task can be in.
// These follow the lifecycle state machine:
//
//	(create) → Pending | Blocked
//	Blocked → Pending (automatic, last unmet dependency completed)
//	Pending → InProgress
//	InProgress → Completed, Failed, Cancelled
//	Failed → Pending (retry)
//	Completed → Pending (reopen, cascades re-blocking to dependents)
//	any non-terminal → Cancelled
const (
	// TaskStatusPending indicates a task whose dependencies are all met
	// but which has not been started.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusBlocked indicates a task with at least one dependency
	// that is not yet completed.
	TaskStatusBlocked TaskStatus = "blocked"

	// TaskStatusInProgress indicates a task that has been started.
	TaskStatusInProgress TaskStatus = "in-progress"

	// TaskStatusCompleted indicates a task that finished successfully.
	// Completed is terminal except for an explicit reopen.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed indicates a task that was started and failed.
	// Failed tasks can be retried back to Pending.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusCancelled indicates a task that was explicitly cancelled.
	// Cancelled is fully terminal.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// String returns the string representation of the TaskStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s TaskStatus) String() string {
	return string(s)
}

// TaskPriority represents the scheduling priority of a task.
type TaskPriority string

// Task priority constants.
const (
	// TaskPriorityHigh marks a task as high priority.
	TaskPriorityHigh TaskPriority = "high"

	// TaskPriorityMedium marks a task as medium priority.
	TaskPriorityMedium TaskPriority = "medium"

	// TaskPriorityLow marks a task as low priority.
	TaskPriorityLow TaskPriority = "low"
)

// String returns the string representation of the TaskPriority.
func (p TaskPriority) String() string {
	return string(p)
}

// ValidPriority reports whether p is one of the known priority values.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

// PhaseStatus represents the state of a single workflow phase.
type PhaseStatus string

// Phase status constants. Phases move strictly
// pending → in-progress → {completed, failed}; cancellation of the
// enclosing workflow marks the active phase cancelled.
const (
	// PhaseStatusPending indicates a phase that has not been entered yet.
	PhaseStatusPending PhaseStatus = "pending"

	// PhaseStatusInProgress indicates the currently executing phase.
	PhaseStatusInProgress PhaseStatus = "in-progress"

	// PhaseStatusCompleted indicates all steps of the phase succeeded.
	PhaseStatusCompleted PhaseStatus = "completed"

	// PhaseStatusFailed indicates at least one step of the phase failed.
	PhaseStatusFailed PhaseStatus = "failed"

	// PhaseStatusCancelled indicates the phase was active when the
	// enclosing workflow was cancelled.
	PhaseStatusCancelled PhaseStatus = "cancelled"
)

// String returns the string representation of the PhaseStatus.
func (s PhaseStatus) String() string {
	return string(s)
}

// StepStatus represents the state of a single step within a phase.
type StepStatus string

// Step status constants.
const (
	// StepStatusPending indicates a step that has not been dispatched.
	StepStatusPending StepStatus = "pending"

	// StepStatusInProgress indicates a step that has been dispatched.
	StepStatusInProgress StepStatus = "in-progress"

	// StepStatusCompleted indicates a step that reported success.
	StepStatusCompleted StepStatus = "completed"

	// StepStatusFailed indicates a step that reported failure.
	StepStatusFailed StepStatus = "failed"
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	return string(s)
}

// WorkflowStatus represents the state of a workflow instance.
// It mirrors the active phase at the workflow granularity, plus the
// terminal Completed and Cancelled states.
type WorkflowStatus string

// Workflow status constants.
const (
	// WorkflowStatusInProgress indicates a workflow with an active phase.
	WorkflowStatusInProgress WorkflowStatus = "in-progress"

	// WorkflowStatusFailed indicates a workflow halted by a step failure.
	// Failed workflows can be resumed.
	WorkflowStatusFailed WorkflowStatus = "failed"

	// WorkflowStatusCompleted indicates all phases completed.
	WorkflowStatusCompleted WorkflowStatus = "completed"

	// WorkflowStatusCancelled indicates the workflow was explicitly cancelled.
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// String returns the string representation of the WorkflowStatus.
func (s WorkflowStatus) String() string {
	return string(s)
}
