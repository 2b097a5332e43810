// Package workflow provides the multi-phase workflow engine: named
// definitions describing phases and steps, a registry of built-in and
// operator-supplied definitions, and the engine that executes instances
// phase by phase with concurrent step dispatch.
package workflow

import (
	"fmt"

	"github.com/gammazero/toposort"

	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// Definition is a named workflow template. Definitions are immutable
// once registered; starting a workflow copies the structure into the
// instance.
type Definition struct {
	// Name uniquely identifies the definition in the registry.
	Name string `yaml:"name" json:"name"`

	// Description is a human-readable summary.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Phases execute strictly in order.
	Phases []PhaseDefinition `yaml:"phases" json:"phases"`
}

// PhaseDefinition describes one sequential phase.
type PhaseDefinition struct {
	// Name identifies the phase within its definition.
	Name string `yaml:"name" json:"name"`

	// Steps are the units dispatched within the phase. Steps without
	// After constraints may run concurrently.
	Steps []StepDefinition `yaml:"steps" json:"steps"`
}

// StepDefinition describes one dispatchable step.
type StepDefinition struct {
	// ID identifies the step within its phase.
	ID string `yaml:"id" json:"id"`

	// Role is the agent-role capability required to execute the step.
	Role string `yaml:"role" json:"role"`

	// TaskID optionally targets a task in the graph. The reference is
	// carried into the instance as-is; it is non-owning and not
	// validated against the store.
	TaskID string `yaml:"task_id,omitempty" json:"task_id,omitempty"`

	// After lists step ids in the same phase that must complete first.
	After []string `yaml:"after,omitempty" json:"after,omitempty"`
}

// Validate checks the structural requirements on a definition: naming,
// at least one phase with at least one step, unique step ids, and
// intra-phase After references that exist and form no cycle.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: definition name %w", maestroerrors.ErrValidation, maestroerrors.ErrEmptyValue)
	}
	if len(d.Phases) == 0 {
		return fmt.Errorf("%w: definition %q has no phases", maestroerrors.ErrValidation, d.Name)
	}

	for pi, phase := range d.Phases {
		if phase.Name == "" {
			return fmt.Errorf("%w: definition %q phase %d has no name", maestroerrors.ErrValidation, d.Name, pi)
		}
		if len(phase.Steps) == 0 {
			return fmt.Errorf("%w: definition %q phase %q has no steps", maestroerrors.ErrValidation, d.Name, phase.Name)
		}

		ids := make(map[string]bool, len(phase.Steps))
		for _, step := range phase.Steps {
			if step.ID == "" {
				return fmt.Errorf("%w: definition %q phase %q has an unnamed step", maestroerrors.ErrValidation, d.Name, phase.Name)
			}
			if step.Role == "" {
				return fmt.Errorf("%w: definition %q step %q has no role", maestroerrors.ErrValidation, d.Name, step.ID)
			}
			if ids[step.ID] {
				return fmt.Errorf("%w: definition %q phase %q has duplicate step id %q",
					maestroerrors.ErrValidation, d.Name, phase.Name, step.ID)
			}
			ids[step.ID] = true
		}

		var edges []toposort.Edge
		for _, step := range phase.Steps {
			if len(step.After) == 0 {
				edges = append(edges, toposort.Edge{nil, step.ID})
				continue
			}
			for _, dep := range step.After {
				if dep == step.ID {
					return fmt.Errorf("%w: step %q in phase %q waits on itself",
						maestroerrors.ErrValidation, step.ID, phase.Name)
				}
				if !ids[dep] {
					return fmt.Errorf("%w: step %q in phase %q waits on unknown step %q",
						maestroerrors.ErrValidation, step.ID, phase.Name, dep)
				}
				edges = append(edges, toposort.Edge{dep, step.ID})
			}
		}
		if _, err := toposort.Toposort(edges); err != nil {
			return fmt.Errorf("%w: phase %q step ordering contains a cycle",
				maestroerrors.ErrValidation, phase.Name)
		}
	}

	return nil
}
