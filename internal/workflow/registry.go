package workflow

import (
	"fmt"
	"sort"
	"sync"

	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// Builtin definition names, always present in a new registry.
const (
	// DefinitionAnalysis investigates a problem before any planning.
	DefinitionAnalysis = "analysis"

	// DefinitionPlanning turns analysis output into an ordered plan.
	DefinitionPlanning = "planning"

	// DefinitionArchitecture produces a reviewed technical design.
	DefinitionArchitecture = "architecture"
)

// Registry holds workflow definitions by name. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates a registry seeded with the built-in definitions.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*Definition)}
	for _, def := range builtinDefinitions() {
		r.defs[def.Name] = def
	}
	return r
}

// Register adds a validated definition. Re-registering a name replaces
// the previous definition, which is how operators override builtins.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
	return nil
}

// Get returns the definition with the given name.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("workflow definition %q: %w", name, maestroerrors.ErrNotFound)
	}
	return def, nil
}

// Names returns all registered definition names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDir registers every definition found in dir.
func (r *Registry) LoadDir(dir string) error {
	defs, err := LoadDir(dir)
	if err != nil {
		return err
	}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// builtinDefinitions returns the definitions shipped with the engine.
func builtinDefinitions() []*Definition {
	return []*Definition{
		{
			Name:        DefinitionAnalysis,
			Description: "Investigate a problem area and report findings",
			Phases: []PhaseDefinition{
				{
					Name: "investigation",
					Steps: []StepDefinition{
						{ID: "gather-context", Role: "researcher"},
						{ID: "explore-code", Role: "engineer"},
					},
				},
				{
					Name: "reporting",
					Steps: []StepDefinition{
						{ID: "summarize-findings", Role: "researcher"},
						{ID: "review-summary", Role: "reviewer", After: []string{"summarize-findings"}},
					},
				},
			},
		},
		{
			Name:        DefinitionPlanning,
			Description: "Turn findings into an ordered, estimated plan",
			Phases: []PhaseDefinition{
				{
					Name: "drafting",
					Steps: []StepDefinition{
						{ID: "draft-plan", Role: "planner"},
					},
				},
				{
					Name: "estimation",
					Steps: []StepDefinition{
						{ID: "estimate-effort", Role: "planner"},
						{ID: "identify-risks", Role: "reviewer"},
						{ID: "finalize-plan", Role: "planner", After: []string{"estimate-effort", "identify-risks"}},
					},
				},
			},
		},
		{
			Name:        DefinitionArchitecture,
			Description: "Produce and review a technical design",
			Phases: []PhaseDefinition{
				{
					Name: "design",
					Steps: []StepDefinition{
						{ID: "draft-design", Role: "architect"},
						{ID: "prototype-risky-parts", Role: "engineer"},
					},
				},
				{
					Name: "review",
					Steps: []StepDefinition{
						{ID: "design-review", Role: "reviewer"},
						{ID: "address-feedback", Role: "architect", After: []string{"design-review"}},
					},
				},
				{
					Name: "signoff",
					Steps: []StepDefinition{
						{ID: "final-approval", Role: "reviewer"},
					},
				},
			},
		},
	}
}
