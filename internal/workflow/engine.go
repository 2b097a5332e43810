package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/maestro/internal/clock"
	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// Engine file permissions match the graph store.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// StepExecutor performs the actual work of a step. The engine calls it
// from concurrently running goroutines; implementations must be safe
// for concurrent use and honor context cancellation.
type StepExecutor interface {
	// Execute runs one step of a workflow. A non-nil error marks the
	// step (and with it the phase and workflow) failed.
	Execute(ctx context.Context, workflowID string, step domain.Step) error
}

// StepExecutorFunc adapts a function to the StepExecutor interface.
type StepExecutorFunc func(ctx context.Context, workflowID string, step domain.Step) error

// Execute implements StepExecutor.
func (f StepExecutorFunc) Execute(ctx context.Context, workflowID string, step domain.Step) error {
	return f(ctx, workflowID, step)
}

// Options configures an Engine.
type Options struct {
	// Registry supplies workflow definitions. Required.
	Registry *Registry

	// Dir is where instance documents are persisted, one JSON file per
	// workflow. Empty disables persistence.
	Dir string

	// Clock supplies timestamps. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives engine events. Zero value discards them.
	Logger zerolog.Logger
}

// Engine executes workflow instances: strictly sequential phases, with
// concurrent step dispatch inside a phase, fail-fast on step failure,
// and resumable failed instances.
type Engine struct {
	mu        sync.RWMutex
	workflows map[string]*domain.Workflow
	registry  *Registry
	dir       string
	clock     clock.Clock
	logger    zerolog.Logger
}

// NewEngine creates an Engine and reloads any persisted instances.
func NewEngine(opts Options) (*Engine, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	e := &Engine{
		workflows: make(map[string]*domain.Workflow),
		registry:  opts.Registry,
		dir:       opts.Dir,
		clock:     clk,
		logger:    opts.Logger,
	}

	if err := e.reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// reload reads persisted instance documents from the engine directory.
func (e *Engine) reload() error {
	if e.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to read workflow directory %s: %v", e.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(e.dir, entry.Name())
		data, err := os.ReadFile(path) //#nosec G304 -- path enumerated from engine-owned dir
		if err != nil {
			return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to read workflow document %s: %v", path, err)
		}

		var wf domain.Workflow
		if err := json.Unmarshal(data, &wf); err != nil {
			return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "malformed workflow document %s: %v", path, err)
		}
		e.workflows[wf.ID] = &wf
	}

	e.logger.Debug().Int("workflows", len(e.workflows)).Msg("workflow instances reloaded")
	return nil
}

// persistLocked writes one instance document. Caller holds mu.
func (e *Engine) persistLocked(wf *domain.Workflow) error {
	if e.dir == "" {
		return nil
	}

	if err := os.MkdirAll(e.dir, dirPerm); err != nil {
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to create workflow directory: %v", err)
	}

	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return maestroerrors.Wrap(err, "failed to marshal workflow")
	}

	path := filepath.Join(e.dir, wf.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to write workflow document: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return maestroerrors.Wrapf(maestroerrors.ErrPersistence, "failed to rename workflow document: %v", err)
	}
	return nil
}

// Start creates a new instance of the named definition. The first
// phase enters in-progress immediately.
func (e *Engine) Start(_ context.Context, definitionName string, wfContext map[string]string) (*domain.Workflow, error) {
	def, err := e.registry.Get(definitionName)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	wf := &domain.Workflow{
		ID:             uuid.NewString(),
		DefinitionName: def.Name,
		Context:        wfContext,
		Status:         constants.WorkflowStatusInProgress,
		Phases:         instantiatePhases(def),
		CreatedAt:      now,
		UpdatedAt:      now,
		SchemaVersion:  constants.WorkflowSchemaVersion,
	}
	wf.Phases[0].Status = constants.PhaseStatusInProgress
	wf.Phases[0].StartedAt = &now

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.persistLocked(wf); err != nil {
		return nil, err
	}
	e.workflows[wf.ID] = wf

	e.logger.Info().Str("workflow_id", wf.ID).Str("definition", def.Name).Msg("workflow started")
	return wf.Clone(), nil
}

// instantiatePhases copies the definition structure into fresh
// instance state.
func instantiatePhases(def *Definition) []domain.Phase {
	phases := make([]domain.Phase, len(def.Phases))
	for i, pd := range def.Phases {
		steps := make([]domain.Step, len(pd.Steps))
		for j, sd := range pd.Steps {
			steps[j] = domain.Step{
				ID:     sd.ID,
				Role:   sd.Role,
				TaskID: sd.TaskID,
				After:  append([]string(nil), sd.After...),
				Status: constants.StepStatusPending,
			}
		}
		phases[i] = domain.Phase{
			Name:   pd.Name,
			Steps:  steps,
			Status: constants.PhaseStatusPending,
		}
	}
	return phases
}

// Get returns a clone of the instance with the given id.
func (e *Engine) Get(_ context.Context, id string) (*domain.Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	wf, ok := e.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %q: %w", id, maestroerrors.ErrNotFound)
	}
	return wf.Clone(), nil
}

// List returns clones of all instances, newest first.
func (e *Engine) List(_ context.Context) ([]*domain.Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.Workflow, 0, len(e.workflows))
	for _, wf := range e.workflows {
		out = append(out, wf.Clone())
	}
	// Deterministic order: newest first, id as tiebreak.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DispatchableSteps returns the steps of the active phase that may be
// dispatched now: pending, with every After prerequisite completed.
// Only in-progress workflows have dispatchable steps.
func (e *Engine) DispatchableSteps(_ context.Context, id string) ([]domain.Step, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	wf, ok := e.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %q: %w", id, maestroerrors.ErrNotFound)
	}
	if wf.Status != constants.WorkflowStatusInProgress {
		return nil, nil
	}

	phase := wf.ActivePhase()
	if phase == nil || phase.Status != constants.PhaseStatusInProgress {
		return nil, nil
	}

	var out []domain.Step
	for _, step := range phase.Steps {
		if step.Status != constants.StepStatusPending {
			continue
		}
		if prerequisitesMet(phase, step.After) {
			out = append(out, step)
		}
	}
	return out, nil
}

func prerequisitesMet(phase *domain.Phase, after []string) bool {
	for _, dep := range after {
		pre := phase.StepByID(dep)
		if pre == nil || pre.Status != constants.StepStatusCompleted {
			return false
		}
	}
	return true
}

// BeginStep marks a dispatchable step in-progress.
func (e *Engine) BeginStep(_ context.Context, id, stepID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	wf, phase, step, err := e.activeStepLocked(id, stepID)
	if err != nil {
		return err
	}
	if step.Status != constants.StepStatusPending {
		return fmt.Errorf("%w: step %q is %s, not pending", maestroerrors.ErrStateConflict, stepID, step.Status)
	}
	if !prerequisitesMet(phase, step.After) {
		return fmt.Errorf("%w: step %q has unmet prerequisites", maestroerrors.ErrStateConflict, stepID)
	}

	step.Status = constants.StepStatusInProgress
	wf.UpdatedAt = e.clock.Now()
	return e.persistLocked(wf)
}

// CompleteStep marks an in-progress step completed. When it was the
// last open step of the phase, the phase completes and the workflow
// advances: the next phase enters in-progress, or the workflow itself
// completes after the final phase.
func (e *Engine) CompleteStep(_ context.Context, id, stepID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	wf, phase, step, err := e.activeStepLocked(id, stepID)
	if err != nil {
		return err
	}
	if step.Status != constants.StepStatusInProgress {
		return fmt.Errorf("%w: step %q is %s, not in-progress", maestroerrors.ErrStateConflict, stepID, step.Status)
	}

	now := e.clock.Now()
	step.Status = constants.StepStatusCompleted
	step.Error = ""
	wf.UpdatedAt = now

	if phase.Status == constants.PhaseStatusInProgress && phase.CompletedSteps() == len(phase.Steps) {
		phase.Status = constants.PhaseStatusCompleted
		phase.CompletedAt = &now
		e.advanceLocked(wf, now)
	}

	return e.persistLocked(wf)
}

// FailStep marks an in-progress step failed and fails the phase and
// workflow with it. Sibling steps already running are left to finish;
// nothing new is dispatched from a failed workflow.
func (e *Engine) FailStep(_ context.Context, id, stepID, message string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	wf, phase, step, err := e.activeStepLocked(id, stepID)
	if err != nil {
		return err
	}
	if step.Status != constants.StepStatusInProgress {
		return fmt.Errorf("%w: step %q is %s, not in-progress", maestroerrors.ErrStateConflict, stepID, step.Status)
	}

	now := e.clock.Now()
	step.Status = constants.StepStatusFailed
	step.Error = message
	wf.UpdatedAt = now

	if phase.Status == constants.PhaseStatusInProgress {
		phase.Status = constants.PhaseStatusFailed
		phase.CompletedAt = &now
	}
	if wf.Status == constants.WorkflowStatusInProgress {
		wf.Status = constants.WorkflowStatusFailed
	}

	e.logger.Warn().Str("workflow_id", id).Str("step", stepID).Str("error", message).Msg("workflow step failed")
	return e.persistLocked(wf)
}

// advanceLocked moves an in-progress workflow past its just-completed
// active phase: the next phase enters in-progress, or the workflow
// completes when no phases remain. Caller holds mu.
func (e *Engine) advanceLocked(wf *domain.Workflow, now time.Time) {
	wf.CurrentPhaseIndex++
	if wf.CurrentPhaseIndex >= len(wf.Phases) {
		wf.Status = constants.WorkflowStatusCompleted
		e.logger.Info().Str("workflow_id", wf.ID).Msg("workflow completed")
		return
	}

	next := &wf.Phases[wf.CurrentPhaseIndex]
	next.Status = constants.PhaseStatusInProgress
	next.StartedAt = &now
	e.logger.Info().Str("workflow_id", wf.ID).Str("phase", next.Name).Msg("workflow phase entered")
}

// activeStepLocked resolves a step of the active phase. Caller holds mu.
func (e *Engine) activeStepLocked(id, stepID string) (*domain.Workflow, *domain.Phase, *domain.Step, error) {
	wf, ok := e.workflows[id]
	if !ok {
		return nil, nil, nil, fmt.Errorf("workflow %q: %w", id, maestroerrors.ErrNotFound)
	}

	phase := wf.ActivePhase()
	if phase == nil {
		return nil, nil, nil, fmt.Errorf("%w: workflow %q has no active phase", maestroerrors.ErrStateConflict, id)
	}

	step := phase.StepByID(stepID)
	if step == nil {
		return nil, nil, nil, fmt.Errorf("step %q in workflow %q: %w", stepID, id, maestroerrors.ErrNotFound)
	}

	return wf, phase, step, nil
}

// Resume re-arms a failed workflow: failed steps of the active phase
// return to pending, the phase re-enters in-progress, and the workflow
// becomes in-progress again. Completed steps keep their results, so a
// subsequent run re-dispatches only the unfinished work.
func (e *Engine) Resume(_ context.Context, id string) (*domain.Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wf, ok := e.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %q: %w", id, maestroerrors.ErrNotFound)
	}
	if wf.Status != constants.WorkflowStatusFailed {
		return nil, fmt.Errorf("%w: cannot resume workflow %q in status %s",
			maestroerrors.ErrStateConflict, id, wf.Status)
	}

	phase := wf.ActivePhase()
	if phase == nil {
		return nil, fmt.Errorf("%w: failed workflow %q has no active phase", maestroerrors.ErrStateConflict, id)
	}

	now := e.clock.Now()
	for i := range phase.Steps {
		step := &phase.Steps[i]
		if step.Status == constants.StepStatusFailed || step.Status == constants.StepStatusInProgress {
			step.Status = constants.StepStatusPending
			step.Error = ""
		}
	}
	phase.Status = constants.PhaseStatusInProgress
	phase.CompletedAt = nil
	wf.Status = constants.WorkflowStatusInProgress
	wf.UpdatedAt = now

	if err := e.persistLocked(wf); err != nil {
		return nil, err
	}

	e.logger.Info().Str("workflow_id", id).Str("phase", phase.Name).Msg("workflow resumed")
	return wf.Clone(), nil
}

// Cancel terminates a non-terminal workflow. The active phase is
// marked cancelled; completed phases keep their results.
func (e *Engine) Cancel(_ context.Context, id string) (*domain.Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wf, ok := e.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %q: %w", id, maestroerrors.ErrNotFound)
	}
	switch wf.Status {
	case constants.WorkflowStatusCompleted, constants.WorkflowStatusCancelled:
		return nil, fmt.Errorf("%w: cannot cancel workflow %q in status %s",
			maestroerrors.ErrStateConflict, id, wf.Status)
	}

	now := e.clock.Now()
	if phase := wf.ActivePhase(); phase != nil {
		phase.Status = constants.PhaseStatusCancelled
		phase.CompletedAt = &now
	}
	wf.Status = constants.WorkflowStatusCancelled
	wf.UpdatedAt = now

	if err := e.persistLocked(wf); err != nil {
		return nil, err
	}

	e.logger.Info().Str("workflow_id", id).Msg("workflow cancelled")
	return wf.Clone(), nil
}

// Progress summarizes how far a workflow has come.
type Progress struct {
	// WorkflowID is the inspected instance.
	WorkflowID string `json:"workflow_id"`

	// Status is the instance status.
	Status constants.WorkflowStatus `json:"status"`

	// PhasesCompleted and PhasesTotal count whole phases.
	PhasesCompleted int `json:"phases_completed"`
	PhasesTotal     int `json:"phases_total"`

	// ActivePhase names the current phase; empty once terminal.
	ActivePhase string `json:"active_phase,omitempty"`

	// StepsCompleted and StepsTotal count steps of the active phase.
	StepsCompleted int `json:"steps_completed"`
	StepsTotal     int `json:"steps_total"`

	// Fraction is overall completion in [0, 1]: completed phases plus
	// the completed share of the active phase, over total phases.
	Fraction float64 `json:"fraction"`
}

// GetProgress computes the progress summary for a workflow.
func (e *Engine) GetProgress(_ context.Context, id string) (*Progress, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	wf, ok := e.workflows[id]
	if !ok {
		return nil, fmt.Errorf("workflow %q: %w", id, maestroerrors.ErrNotFound)
	}

	p := &Progress{
		WorkflowID:  wf.ID,
		Status:      wf.Status,
		PhasesTotal: len(wf.Phases),
	}

	var done float64
	for i := range wf.Phases {
		phase := &wf.Phases[i]
		switch phase.Status {
		case constants.PhaseStatusCompleted:
			p.PhasesCompleted++
			done++
		case constants.PhaseStatusInProgress, constants.PhaseStatusFailed:
			if len(phase.Steps) > 0 {
				done += float64(phase.CompletedSteps()) / float64(len(phase.Steps))
			}
		}
	}

	if phase := wf.ActivePhase(); phase != nil && wf.Status != constants.WorkflowStatusCompleted {
		p.ActivePhase = phase.Name
		p.StepsCompleted = phase.CompletedSteps()
		p.StepsTotal = len(phase.Steps)
	}

	if p.PhasesTotal > 0 {
		p.Fraction = done / float64(p.PhasesTotal)
	}

	return p, nil
}

// RunPhase drives the active phase of an in-progress workflow to a
// terminal state using the executor. Dispatchable steps run in
// concurrent waves via errgroup; the first failure cancels the wave
// and leaves the workflow failed. Returns the first step error, if any.
//
// On success the workflow has advanced past the phase (or completed).
func (e *Engine) RunPhase(ctx context.Context, id string, executor StepExecutor) error {
	start, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	if start.Status != constants.WorkflowStatusInProgress {
		return fmt.Errorf("%w: cannot run workflow %q in status %s",
			maestroerrors.ErrStateConflict, id, start.Status)
	}
	phaseIndex := start.CurrentPhaseIndex

	for {
		wf, err := e.Get(ctx, id)
		if err != nil {
			return err
		}
		// The phase completed and the workflow advanced, or something
		// terminal happened. Either way this run is over.
		if wf.Status != constants.WorkflowStatusInProgress || wf.CurrentPhaseIndex != phaseIndex {
			return nil
		}

		steps, err := e.DispatchableSteps(ctx, id)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			return fmt.Errorf("%w: phase %q has no dispatchable steps",
				maestroerrors.ErrStateConflict, wf.ActivePhase().Name)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, step := range steps {
			if err := e.BeginStep(ctx, id, step.ID); err != nil {
				return err
			}

			g.Go(func() error {
				if execErr := executor.Execute(gctx, id, step); execErr != nil {
					if failErr := e.FailStep(ctx, id, step.ID, execErr.Error()); failErr != nil {
						return failErr
					}
					return execErr
				}
				return e.CompleteStep(ctx, id, step.ID)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}
}
