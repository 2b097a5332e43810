package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// validDefinition builds a minimal two-phase definition.
func validDefinition() *Definition {
	return &Definition{
		Name: "review-cycle",
		Phases: []PhaseDefinition{
			{
				Name: "draft",
				Steps: []StepDefinition{
					{ID: "write", Role: "author"},
				},
			},
			{
				Name: "review",
				Steps: []StepDefinition{
					{ID: "read", Role: "reviewer"},
					{ID: "approve", Role: "reviewer", After: []string{"read"}},
				},
			},
		},
	}
}

// TestDefinition_Validate covers structural rejections.
func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr bool
	}{
		{"valid", func(*Definition) {}, false},
		{"missing name", func(d *Definition) { d.Name = "" }, true},
		{"no phases", func(d *Definition) { d.Phases = nil }, true},
		{"unnamed phase", func(d *Definition) { d.Phases[0].Name = "" }, true},
		{"empty phase", func(d *Definition) { d.Phases[0].Steps = nil }, true},
		{"unnamed step", func(d *Definition) { d.Phases[0].Steps[0].ID = "" }, true},
		{"step without role", func(d *Definition) { d.Phases[0].Steps[0].Role = "" }, true},
		{"duplicate step id", func(d *Definition) {
			d.Phases[1].Steps[1].ID = "read"
		}, true},
		{"self wait", func(d *Definition) {
			d.Phases[1].Steps[0].After = []string{"read"}
		}, true},
		{"unknown prerequisite", func(d *Definition) {
			d.Phases[1].Steps[1].After = []string{"ghost"}
		}, true},
		{"cross-phase prerequisite rejected", func(d *Definition) {
			d.Phases[1].Steps[1].After = []string{"write"}
		}, true},
		{"ordering cycle", func(d *Definition) {
			d.Phases[1].Steps[0].After = []string{"approve"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)

			err := def.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, maestroerrors.ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

// TestBuiltinDefinitions_AreValid guards the shipped definitions.
func TestBuiltinDefinitions_AreValid(t *testing.T) {
	for _, def := range builtinDefinitions() {
		t.Run(def.Name, func(t *testing.T) {
			require.NoError(t, def.Validate())
		})
	}
}
