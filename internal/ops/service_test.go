package ops

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/maestro/internal/clock"
	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
	"github.com/mrz1836/maestro/internal/expand"
	"github.com/mrz1836/maestro/internal/task"
	"github.com/mrz1836/maestro/internal/workflow"
)

// newTestService wires a full engine stack on temp storage.
func newTestService(t *testing.T) *Service {
	t.Helper()

	clk := clock.NewFixed(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	dir := t.TempDir()

	store, err := task.NewStore(context.Background(), task.Options{
		Path:   filepath.Join(dir, "tasks.json"),
		Clock:  clk,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	advisor := expand.NewAdvisor(expand.Options{Store: store, Threshold: 3})

	defs := workflow.NewRegistry()
	engine, err := workflow.NewEngine(workflow.Options{
		Registry: defs,
		Clock:    clk,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	return NewService(store, advisor, engine, defs, zerolog.Nop())
}

// dispatch runs an operation built from a param map and requires
// success.
func dispatch(t *testing.T, s *Service, op string, params map[string]any) any {
	t.Helper()

	result, errPayload := s.Dispatch(context.Background(), op, marshalParams(t, params))
	require.Nil(t, errPayload, "operation %s failed: %+v", op, errPayload)
	return result
}

// dispatchErr runs an operation and requires the error payload.
func dispatchErr(t *testing.T, s *Service, op string, params map[string]any) *maestroerrors.Payload {
	t.Helper()

	result, errPayload := s.Dispatch(context.Background(), op, marshalParams(t, params))
	require.Nil(t, result)
	require.NotNil(t, errPayload)
	assert.True(t, errPayload.Error)
	return errPayload
}

func marshalParams(t *testing.T, params map[string]any) json.RawMessage {
	t.Helper()

	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	require.NoError(t, err)
	return data
}

// TestDispatch_UnknownOperation verifies the dispatch guard.
func TestDispatch_UnknownOperation(t *testing.T) {
	s := newTestService(t)

	p := dispatchErr(t, s, "task.explode", nil)
	assert.Equal(t, maestroerrors.KindValidation, p.ErrorType)
	assert.Contains(t, p.Message, "task.explode")
}

// TestDispatch_MalformedParams verifies broken JSON maps to a
// validation payload.
func TestDispatch_MalformedParams(t *testing.T) {
	s := newTestService(t)

	result, p := s.Dispatch(context.Background(), OpTaskGet, json.RawMessage(`{"id": `))
	require.Nil(t, result)
	require.NotNil(t, p)
	assert.Equal(t, maestroerrors.KindValidation, p.ErrorType)
}

// TestTaskOperations_CRUD drives create/get/update/list/remove through
// the wire surface.
func TestTaskOperations_CRUD(t *testing.T) {
	s := newTestService(t)

	created, ok := dispatch(t, s, OpTaskCreate, map[string]any{
		"title":           "wire a parser",
		"priority":        "high",
		"effort":          2,
		"estimated_hours": 3,
	}).(*domain.Task)
	require.True(t, ok)
	assert.Equal(t, constants.TaskPriorityHigh, created.Priority)

	got := dispatch(t, s, OpTaskGet, map[string]any{"id": created.ID}).(*domain.Task)
	assert.Equal(t, created.ID, got.ID)

	updated := dispatch(t, s, OpTaskUpdate, map[string]any{
		"id":    created.ID,
		"title": "wire a faster parser",
	}).(*domain.Task)
	assert.Equal(t, "wire a faster parser", updated.Title)

	list := dispatch(t, s, OpTaskList, map[string]any{"status": "pending"}).([]*domain.Task)
	require.Len(t, list, 1)

	dispatch(t, s, OpTaskRemove, map[string]any{"id": created.ID})

	p := dispatchErr(t, s, OpTaskGet, map[string]any{"id": created.ID})
	assert.Equal(t, maestroerrors.KindNotFound, p.ErrorType)
}

// TestTaskOperations_MissingID verifies the input contract.
func TestTaskOperations_MissingID(t *testing.T) {
	s := newTestService(t)

	for _, op := range []string{OpTaskGet, OpTaskStart, OpTaskExpand, OpTaskAssess} {
		p := dispatchErr(t, s, op, map[string]any{})
		assert.Equal(t, maestroerrors.KindValidation, p.ErrorType, "operation %s", op)
	}
}

// TestDependencyOperations_CyclePayload verifies the cycle rejection
// carries the full path on the wire.
func TestDependencyOperations_CyclePayload(t *testing.T) {
	s := newTestService(t)

	t1 := dispatch(t, s, OpTaskCreate, map[string]any{"title": "T1"}).(*domain.Task)
	t2 := dispatch(t, s, OpTaskCreate, map[string]any{"title": "T2", "dependencies": []string{t1.ID}}).(*domain.Task)
	t3 := dispatch(t, s, OpTaskCreate, map[string]any{"title": "T3", "dependencies": []string{t2.ID}}).(*domain.Task)

	p := dispatchErr(t, s, OpDepAdd, map[string]any{"from": t3.ID, "to": t1.ID})
	assert.Equal(t, maestroerrors.KindCycle, p.ErrorType)
	assert.Equal(t, []string{t1.ID, t2.ID, t3.ID, t1.ID}, p.CyclePath)
}

// TestDependencyOperations_AddRemoveValidate exercises the edge
// operations end to end.
func TestDependencyOperations_AddRemoveValidate(t *testing.T) {
	s := newTestService(t)

	a := dispatch(t, s, OpTaskCreate, map[string]any{"title": "a"}).(*domain.Task)
	b := dispatch(t, s, OpTaskCreate, map[string]any{"title": "b"}).(*domain.Task)

	dependent := dispatch(t, s, OpDepAdd, map[string]any{"from": a.ID, "to": b.ID}).(*domain.Task)
	assert.Equal(t, constants.TaskStatusBlocked, dependent.Status)

	report := dispatch(t, s, OpDepValidate, nil).(*task.ValidationReport)
	assert.True(t, report.Valid)

	dependent = dispatch(t, s, OpDepRemove, map[string]any{"from": a.ID, "to": b.ID}).(*domain.Task)
	assert.Equal(t, constants.TaskStatusPending, dependent.Status)
}

// TestTaskOperations_LifecycleAndReady drives the lifecycle operations
// and the ready/order queries.
func TestTaskOperations_LifecycleAndReady(t *testing.T) {
	s := newTestService(t)

	a := dispatch(t, s, OpTaskCreate, map[string]any{"title": "a"}).(*domain.Task)
	b := dispatch(t, s, OpTaskCreate, map[string]any{"title": "b", "dependencies": []string{a.ID}}).(*domain.Task)

	ready := dispatch(t, s, OpTaskReady, nil).([]*domain.Task)
	require.Len(t, ready, 1)
	assert.Equal(t, a.ID, ready[0].ID)

	dispatch(t, s, OpTaskStart, map[string]any{"id": a.ID})
	dispatch(t, s, OpTaskComplete, map[string]any{"id": a.ID})

	ready = dispatch(t, s, OpTaskReady, nil).([]*domain.Task)
	require.Len(t, ready, 1)
	assert.Equal(t, b.ID, ready[0].ID)

	ordered := dispatch(t, s, OpTaskOrder, nil).([]*domain.Task)
	require.Len(t, ordered, 2)
	assert.Equal(t, a.ID, ordered[0].ID)

	p := dispatchErr(t, s, OpTaskComplete, map[string]any{"id": b.ID})
	assert.Equal(t, maestroerrors.KindStateConflict, p.ErrorType)
}

// TestTaskOperations_AssessAndExpand drives the advisor operations.
func TestTaskOperations_AssessAndExpand(t *testing.T) {
	s := newTestService(t)

	big := dispatch(t, s, OpTaskCreate, map[string]any{
		"title":           "oversized",
		"effort":          5,
		"estimated_hours": 10,
	}).(*domain.Task)

	assessment := dispatch(t, s, OpTaskAssess, map[string]any{"id": big.ID}).(*expand.Assessment)
	assert.True(t, assessment.ShouldExpand)

	subs := dispatch(t, s, OpTaskExpand, map[string]any{"id": big.ID, "count": 3}).([]*domain.Task)
	require.Len(t, subs, 3)
	assert.Equal(t, big.ID+".1", subs[0].ID)
}

// TestWorkflowOperations drives a workflow through the wire surface:
// start, dispatch steps, fail, resume, progress, cancel.
func TestWorkflowOperations(t *testing.T) {
	s := newTestService(t)

	names := dispatch(t, s, OpWorkflowDefinitions, nil).([]string)
	assert.Contains(t, names, workflow.DefinitionAnalysis)

	wf := dispatch(t, s, OpWorkflowStart, map[string]any{
		"definition": workflow.DefinitionAnalysis,
		"context":    map[string]string{"project": "maestro"},
	}).(*domain.Workflow)
	require.Equal(t, constants.WorkflowStatusInProgress, wf.Status)

	steps := dispatch(t, s, OpWorkflowDispatchable, map[string]any{"id": wf.ID}).([]domain.Step)
	require.Len(t, steps, 2)

	dispatch(t, s, OpWorkflowStepBegin, map[string]any{"id": wf.ID, "step_id": steps[0].ID})
	got := dispatch(t, s, OpWorkflowStepFail, map[string]any{
		"id": wf.ID, "step_id": steps[0].ID, "error": "no access",
	}).(*domain.Workflow)
	assert.Equal(t, constants.WorkflowStatusFailed, got.Status)

	resumed := dispatch(t, s, OpWorkflowResume, map[string]any{"id": wf.ID}).(*domain.Workflow)
	assert.Equal(t, constants.WorkflowStatusInProgress, resumed.Status)

	progress := dispatch(t, s, OpWorkflowProgress, map[string]any{"id": wf.ID}).(*workflow.Progress)
	assert.Equal(t, 2, progress.PhasesTotal)

	cancelled := dispatch(t, s, OpWorkflowCancel, map[string]any{"id": wf.ID}).(*domain.Workflow)
	assert.Equal(t, constants.WorkflowStatusCancelled, cancelled.Status)

	p := dispatchErr(t, s, OpWorkflowStart, map[string]any{"definition": "nope"})
	assert.Equal(t, maestroerrors.KindNotFound, p.ErrorType)
}

// TestRegistry_Names verifies every operation registers.
func TestRegistry_Names(t *testing.T) {
	s := newTestService(t)

	names := s.Registry().Names()
	assert.Len(t, names, 29)
	assert.Contains(t, names, OpTaskCreate)
	assert.Contains(t, names, OpDepAdd)
	assert.Contains(t, names, OpWorkflowStepComplete)
}
