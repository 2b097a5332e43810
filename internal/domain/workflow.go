package domain

import (
	"time"

	"github.com/mrz1836/maestro/internal/constants"
)

// Workflow is a running instance created from a named definition.
// Phases execute strictly in sequence; steps within a phase may be
// dispatched concurrently subject to their intra-phase prerequisites.
//
// Workflows are mutated only by the workflow engine.
type Workflow struct {
	// ID is the unique instance identifier (UUID).
	ID string `json:"id"`

	// DefinitionName names the definition this instance was started from.
	DefinitionName string `json:"definition_name"`

	// Context carries project metadata supplied at start.
	Context map[string]string `json:"context,omitempty"`

	// Status mirrors the active phase at workflow granularity, plus the
	// terminal completed/cancelled states.
	Status constants.WorkflowStatus `json:"status"`

	// CurrentPhaseIndex is the zero-based index of the active phase.
	// It stays on the failed phase while a workflow is failed so that
	// resume re-enters the right place.
	CurrentPhaseIndex int `json:"current_phase_index"`

	// Phases is the ordered phase list, owned exclusively by the workflow.
	Phases []Phase `json:"phases"`

	// CreatedAt is when the instance was started.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the instance was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// SchemaVersion enables forward-compatible schema migrations.
	SchemaVersion int `json:"schema_version"`
}

// Phase is an ordered unit of a workflow containing one or more steps.
type Phase struct {
	// Name identifies the phase (e.g. "analysis", "planning").
	Name string `json:"name"`

	// Steps is the ordered step list for this phase.
	Steps []Step `json:"steps"`

	// Status is the phase state.
	Status constants.PhaseStatus `json:"status"`

	// StartedAt is when the phase entered in-progress (nil if pending).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the phase reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Step is a single dispatchable unit within a phase, bound to a
// required agent-role capability.
type Step struct {
	// ID identifies the step within its phase.
	ID string `json:"id"`

	// Role is the agent-role capability required to execute the step.
	Role string `json:"role"`

	// TaskID optionally references a task in the graph. The reference is
	// a non-owning lookup relation.
	TaskID string `json:"task_id,omitempty"`

	// After lists step ids within the same phase that must complete
	// before this step is dispatchable.
	After []string `json:"after,omitempty"`

	// Status is the step state.
	Status constants.StepStatus `json:"status"`

	// Error holds the failure message when Status is failed.
	Error string `json:"error,omitempty"`
}

// ActivePhase returns a pointer to the phase at CurrentPhaseIndex, or
// nil when the index is out of range (completed workflows).
func (w *Workflow) ActivePhase() *Phase {
	if w.CurrentPhaseIndex < 0 || w.CurrentPhaseIndex >= len(w.Phases) {
		return nil
	}
	return &w.Phases[w.CurrentPhaseIndex]
}

// StepByID returns a pointer to the step with the given id, or nil.
func (p *Phase) StepByID(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// CompletedSteps counts steps that have reported success.
func (p *Phase) CompletedSteps() int {
	n := 0
	for i := range p.Steps {
		if p.Steps[i].Status == constants.StepStatusCompleted {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the workflow. The engine hands out
// clones so callers never alias engine-owned state.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	cp := *w
	if w.Context != nil {
		cp.Context = make(map[string]string, len(w.Context))
		for k, v := range w.Context {
			cp.Context[k] = v
		}
	}
	cp.Phases = make([]Phase, len(w.Phases))
	for i := range w.Phases {
		cp.Phases[i] = w.Phases[i].clone()
	}
	return &cp
}

func (p Phase) clone() Phase {
	cp := p
	cp.Steps = make([]Step, len(p.Steps))
	for i := range p.Steps {
		cp.Steps[i] = p.Steps[i]
		if p.Steps[i].After != nil {
			cp.Steps[i].After = append([]string(nil), p.Steps[i].After...)
		}
	}
	if p.StartedAt != nil {
		t := *p.StartedAt
		cp.StartedAt = &t
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}
