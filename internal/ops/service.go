package ops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
	"github.com/mrz1836/maestro/internal/expand"
	"github.com/mrz1836/maestro/internal/task"
	"github.com/mrz1836/maestro/internal/workflow"
)

// Operation names. The names are part of the wire contract.
const (
	OpTaskCreate   = "task.create"
	OpTaskGet      = "task.get"
	OpTaskList     = "task.list"
	OpTaskUpdate   = "task.update"
	OpTaskRemove   = "task.remove"
	OpTaskStart    = "task.start"
	OpTaskComplete = "task.complete"
	OpTaskFail     = "task.fail"
	OpTaskCancel   = "task.cancel"
	OpTaskRetry    = "task.retry"
	OpTaskReopen   = "task.reopen"
	OpTaskReady    = "task.ready"
	OpTaskOrder    = "task.order"
	OpTaskAssess   = "task.assess"
	OpTaskExpand   = "task.expand"

	OpDepAdd      = "dep.add"
	OpDepRemove   = "dep.remove"
	OpDepValidate = "dep.validate"

	OpWorkflowStart        = "workflow.start"
	OpWorkflowGet          = "workflow.get"
	OpWorkflowList         = "workflow.list"
	OpWorkflowResume       = "workflow.resume"
	OpWorkflowCancel       = "workflow.cancel"
	OpWorkflowProgress     = "workflow.progress"
	OpWorkflowDispatchable = "workflow.dispatchable"
	OpWorkflowStepBegin    = "workflow.step.begin"
	OpWorkflowStepComplete = "workflow.step.complete"
	OpWorkflowStepFail     = "workflow.step.fail"
	OpWorkflowDefinitions  = "workflow.definitions"
)

// Service wires the engine components behind the operation registry.
type Service struct {
	store    *task.Store
	advisor  *expand.Advisor
	engine   *workflow.Engine
	defs     *workflow.Registry
	registry *Registry
}

// NewService creates a Service and registers every operation.
func NewService(store *task.Store, advisor *expand.Advisor, engine *workflow.Engine, defs *workflow.Registry, logger zerolog.Logger) *Service {
	s := &Service{
		store:    store,
		advisor:  advisor,
		engine:   engine,
		defs:     defs,
		registry: NewRegistry(logger),
	}
	s.registerAll()
	return s
}

// Registry exposes the underlying operation registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Dispatch runs a named operation against the engine.
func (s *Service) Dispatch(ctx context.Context, name string, params json.RawMessage) (any, *maestroerrors.Payload) {
	return s.registry.Dispatch(ctx, name, params)
}

// taskIDParams is the parameter shape shared by single-task operations.
type taskIDParams struct {
	ID string `json:"id"`
}

func (p *taskIDParams) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", maestroerrors.ErrInvalidInput)
	}
	return nil
}

// edgeParams identifies a dependency edge: To depends on From.
type edgeParams struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (p *edgeParams) validate() error {
	if p.From == "" || p.To == "" {
		return fmt.Errorf("%w: from and to are required", maestroerrors.ErrInvalidInput)
	}
	return nil
}

func (s *Service) registerAll() {
	s.registry.Register(OpTaskCreate, s.taskCreate)
	s.registry.Register(OpTaskGet, s.taskGet)
	s.registry.Register(OpTaskList, s.taskList)
	s.registry.Register(OpTaskUpdate, s.taskUpdate)
	s.registry.Register(OpTaskRemove, s.taskRemove)
	s.registry.Register(OpTaskStart, s.taskLifecycle(s.store.Start))
	s.registry.Register(OpTaskComplete, s.taskLifecycle(s.store.Complete))
	s.registry.Register(OpTaskFail, s.taskLifecycle(s.store.Fail))
	s.registry.Register(OpTaskCancel, s.taskLifecycle(s.store.Cancel))
	s.registry.Register(OpTaskRetry, s.taskLifecycle(s.store.Retry))
	s.registry.Register(OpTaskReopen, s.taskLifecycle(s.store.Reopen))
	s.registry.Register(OpTaskReady, s.taskReady)
	s.registry.Register(OpTaskOrder, s.taskOrder)
	s.registry.Register(OpTaskAssess, s.taskAssess)
	s.registry.Register(OpTaskExpand, s.taskExpand)

	s.registry.Register(OpDepAdd, s.depAdd)
	s.registry.Register(OpDepRemove, s.depRemove)
	s.registry.Register(OpDepValidate, s.depValidate)

	s.registry.Register(OpWorkflowStart, s.workflowStart)
	s.registry.Register(OpWorkflowGet, s.workflowGet)
	s.registry.Register(OpWorkflowList, s.workflowList)
	s.registry.Register(OpWorkflowResume, s.workflowResume)
	s.registry.Register(OpWorkflowCancel, s.workflowCancel)
	s.registry.Register(OpWorkflowProgress, s.workflowProgress)
	s.registry.Register(OpWorkflowDispatchable, s.workflowDispatchable)
	s.registry.Register(OpWorkflowStepBegin, s.workflowStepBegin)
	s.registry.Register(OpWorkflowStepComplete, s.workflowStepComplete)
	s.registry.Register(OpWorkflowStepFail, s.workflowStepFail)
	s.registry.Register(OpWorkflowDefinitions, s.workflowDefinitions)
}

func (s *Service) taskCreate(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Title          string   `json:"title"`
		Description    string   `json:"description"`
		Priority       string   `json:"priority"`
		Effort         int      `json:"effort"`
		EstimatedHours float64  `json:"estimated_hours"`
		Dependencies   []string `json:"dependencies"`
		Tags           []string `json:"tags"`
		Assignee       string   `json:"assignee"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	return s.store.Create(ctx, task.CreateRequest{
		Title:          p.Title,
		Description:    p.Description,
		Priority:       constants.TaskPriority(p.Priority),
		Effort:         p.Effort,
		EstimatedHours: p.EstimatedHours,
		Dependencies:   p.Dependencies,
		Tags:           p.Tags,
		Assignee:       p.Assignee,
	})
}

func (s *Service) taskGet(ctx context.Context, params json.RawMessage) (any, error) {
	var p taskIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, p.ID)
}

func (s *Service) taskList(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Status string `json:"status"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	if p.Status == "" {
		return s.store.List(ctx)
	}
	return s.store.List(ctx, constants.TaskStatus(p.Status))
}

func (s *Service) taskUpdate(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ID             string                  `json:"id"`
		Title          *string                 `json:"title"`
		Description    *string                 `json:"description"`
		Priority       *constants.TaskPriority `json:"priority"`
		Effort         *int                    `json:"effort"`
		EstimatedHours *float64                `json:"estimated_hours"`
		Tags           *[]string               `json:"tags"`
		Assignee       *string                 `json:"assignee"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: id is required", maestroerrors.ErrInvalidInput)
	}

	return s.store.Update(ctx, p.ID, task.Patch{
		Title:          p.Title,
		Description:    p.Description,
		Priority:       p.Priority,
		Effort:         p.Effort,
		EstimatedHours: p.EstimatedHours,
		Tags:           p.Tags,
		Assignee:       p.Assignee,
	})
}

func (s *Service) taskRemove(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ID      string `json:"id"`
		Cascade bool   `json:"cascade"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: id is required", maestroerrors.ErrInvalidInput)
	}

	if err := s.store.Remove(ctx, p.ID, p.Cascade); err != nil {
		return nil, err
	}
	return map[string]string{"removed": p.ID}, nil
}

// taskLifecycle adapts the store's single-task lifecycle methods to the
// handler shape.
func (s *Service) taskLifecycle(op func(context.Context, string) (*domain.Task, error)) Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var p taskIDParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		return op(ctx, p.ID)
	}
}

func (s *Service) taskReady(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.store.ReadyTasks(ctx)
}

func (s *Service) taskOrder(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.store.TopologicalOrder(ctx)
}

func (s *Service) taskAssess(ctx context.Context, params json.RawMessage) (any, error) {
	var p taskIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.advisor.Assess(ctx, p.ID)
}

func (s *Service) taskExpand(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: id is required", maestroerrors.ErrInvalidInput)
	}
	return s.advisor.Expand(ctx, p.ID, p.Count)
}

func (s *Service) depAdd(ctx context.Context, params json.RawMessage) (any, error) {
	var p edgeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	if err := s.store.AddDependency(ctx, p.From, p.To); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, p.To)
}

func (s *Service) depRemove(ctx context.Context, params json.RawMessage) (any, error) {
	var p edgeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	if err := s.store.RemoveDependency(ctx, p.From, p.To); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, p.To)
}

func (s *Service) depValidate(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.store.ValidateGraph(ctx)
}

func (s *Service) workflowStart(ctx context.Context, params json.RawMessage) (any, error) {
	var p struct {
		Definition string            `json:"definition"`
		Context    map[string]string `json:"context"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Definition == "" {
		return nil, fmt.Errorf("%w: definition is required", maestroerrors.ErrInvalidInput)
	}
	return s.engine.Start(ctx, p.Definition, p.Context)
}

// workflowIDParams is the parameter shape for single-workflow operations.
type workflowIDParams struct {
	ID string `json:"id"`
}

func (p *workflowIDParams) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", maestroerrors.ErrInvalidInput)
	}
	return nil
}

func (s *Service) workflowGet(ctx context.Context, params json.RawMessage) (any, error) {
	var p workflowIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.engine.Get(ctx, p.ID)
}

func (s *Service) workflowList(ctx context.Context, _ json.RawMessage) (any, error) {
	return s.engine.List(ctx)
}

func (s *Service) workflowResume(ctx context.Context, params json.RawMessage) (any, error) {
	var p workflowIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.engine.Resume(ctx, p.ID)
}

func (s *Service) workflowCancel(ctx context.Context, params json.RawMessage) (any, error) {
	var p workflowIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.engine.Cancel(ctx, p.ID)
}

func (s *Service) workflowProgress(ctx context.Context, params json.RawMessage) (any, error) {
	var p workflowIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.engine.GetProgress(ctx, p.ID)
}

func (s *Service) workflowDispatchable(ctx context.Context, params json.RawMessage) (any, error) {
	var p workflowIDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.engine.DispatchableSteps(ctx, p.ID)
}

// stepParams identifies a step of a workflow.
type stepParams struct {
	ID     string `json:"id"`
	StepID string `json:"step_id"`
	Error  string `json:"error,omitempty"`
}

func (p *stepParams) validate() error {
	if p.ID == "" || p.StepID == "" {
		return fmt.Errorf("%w: id and step_id are required", maestroerrors.ErrInvalidInput)
	}
	return nil
}

func (s *Service) workflowStepBegin(ctx context.Context, params json.RawMessage) (any, error) {
	var p stepParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	if err := s.engine.BeginStep(ctx, p.ID, p.StepID); err != nil {
		return nil, err
	}
	return s.engine.Get(ctx, p.ID)
}

func (s *Service) workflowStepComplete(ctx context.Context, params json.RawMessage) (any, error) {
	var p stepParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	if err := s.engine.CompleteStep(ctx, p.ID, p.StepID); err != nil {
		return nil, err
	}
	return s.engine.Get(ctx, p.ID)
}

func (s *Service) workflowStepFail(ctx context.Context, params json.RawMessage) (any, error) {
	var p stepParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	if err := s.engine.FailStep(ctx, p.ID, p.StepID, p.Error); err != nil {
		return nil, err
	}
	return s.engine.Get(ctx, p.ID)
}

func (s *Service) workflowDefinitions(_ context.Context, _ json.RawMessage) (any, error) {
	return s.defs.Names(), nil
}
