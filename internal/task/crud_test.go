package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/maestro/internal/constants"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// TestCreate_Defaults verifies omitted optional fields get defaults and
// ids follow the creation sequence.
func TestCreate_Defaults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created, err := s.Create(ctx, CreateRequest{Title: "bare"})
	require.NoError(t, err)

	assert.Equal(t, "task-1", created.ID)
	assert.Equal(t, constants.TaskPriorityMedium, created.Priority)
	assert.Equal(t, constants.MinEffort, created.Effort)
	assert.InDelta(t, 1.0, created.EstimatedHours, 0.001)
	assert.Equal(t, constants.TaskStatusPending, created.Status)
	assert.Equal(t, int64(1), created.Seq)

	second, err := s.Create(ctx, CreateRequest{Title: "next"})
	require.NoError(t, err)
	assert.Equal(t, "task-2", second.ID)
}

// TestCreate_Validation covers the structural rejections.
func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{"empty title", CreateRequest{}, maestroerrors.ErrValidation},
		{"bad priority", CreateRequest{Title: "x", Priority: "urgent"}, maestroerrors.ErrValidation},
		{"effort out of range", CreateRequest{Title: "x", Effort: 9}, maestroerrors.ErrValidation},
		{"negative hours", CreateRequest{Title: "x", EstimatedHours: -2}, maestroerrors.ErrValidation},
		{"unknown dependency", CreateRequest{Title: "x", Dependencies: []string{"task-99"}}, maestroerrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestCreate_InitialStatusFromDependencies verifies new tasks start
// blocked when any dependency is not completed.
func TestCreate_InitialStatusFromDependencies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	blocked := mustCreate(t, s, "waits on a", a.ID)
	assert.Equal(t, constants.TaskStatusBlocked, blocked.Status)

	_, err := s.Start(ctx, a.ID)
	require.NoError(t, err)
	_, err = s.Complete(ctx, a.ID)
	require.NoError(t, err)

	free, err := s.Create(ctx, CreateRequest{Title: "dep already done", Dependencies: []string{a.ID}})
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusPending, free.Status)
}

// TestGet_NotFound verifies unknown ids are rejected.
func TestGet_NotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "task-404")
	require.ErrorIs(t, err, maestroerrors.ErrNotFound)
}

// TestGet_ReturnsClone verifies callers cannot mutate store state
// through a returned task.
func TestGet_ReturnsClone(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a")

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	got.Title = "mutated"
	got.Dependencies = append(got.Dependencies, "task-999")

	again, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Title)
	assert.Empty(t, again.Dependencies)
}

// TestList_StatusFilter verifies filtering and sequence ordering.
func TestList_StatusFilter(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	mustCreate(t, s, "b", a.ID)
	c := mustCreate(t, s, "c")

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Title)
	assert.Equal(t, "b", all[1].Title)
	assert.Equal(t, "c", all[2].Title)

	pending, err := s.List(ctx, constants.TaskStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, a.ID, pending[0].ID)
	assert.Equal(t, c.ID, pending[1].ID)

	blocked, err := s.List(ctx, constants.TaskStatusBlocked)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "b", blocked[0].Title)
}

// TestUpdate_PartialPatch verifies only supplied fields change.
func TestUpdate_PartialPatch(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestStore(t)
	a := mustCreate(t, s, "a")

	clk.Advance(1)
	title := "renamed"
	effort := 4
	updated, err := s.Update(ctx, a.ID, Patch{Title: &title, Effort: &effort})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, 4, updated.Effort)
	assert.Equal(t, a.Priority, updated.Priority)
	assert.True(t, updated.UpdatedAt.After(a.UpdatedAt))
}

// TestUpdate_RejectsInvalidPatch verifies patched values are validated
// and the task is left unchanged on rejection.
func TestUpdate_RejectsInvalidPatch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a")

	bad := 0
	_, err := s.Update(ctx, a.ID, Patch{Effort: &bad})
	require.ErrorIs(t, err, maestroerrors.ErrValidation)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Effort)
}

// TestRemove_RejectsWithDependents verifies removal without cascade is
// a state conflict while dependents exist.
func TestRemove_RejectsWithDependents(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	mustCreate(t, s, "b", a.ID)

	err := s.Remove(ctx, a.ID, false)
	require.ErrorIs(t, err, maestroerrors.ErrStateConflict)

	_, err = s.Get(ctx, a.ID)
	require.NoError(t, err)
}

// TestRemove_CascadeUnblocksDependents verifies cascade strips the
// dangling edge and re-derives the dependent's status.
func TestRemove_CascadeUnblocksDependents(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b", a.ID)
	require.Equal(t, constants.TaskStatusBlocked, b.Status)

	require.NoError(t, s.Remove(ctx, a.ID, true))

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Dependencies)
	assert.Equal(t, constants.TaskStatusPending, got.Status)
}

// TestRemove_TakesSubtasksAlong verifies removing a parent removes its
// owned subtask subtree.
func TestRemove_TakesSubtasksAlong(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	parent := mustCreate(t, s, "parent")
	subs, err := s.CommitSubtasks(ctx, parent.ID, stubDescriptors(2), nil)
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, parent.ID, true))

	for _, sub := range subs {
		_, err := s.Get(ctx, sub.ID)
		assert.ErrorIs(t, err, maestroerrors.ErrNotFound)
	}
}

// TestRemove_NotFound verifies unknown ids are rejected.
func TestRemove_NotFound(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Remove(context.Background(), "task-404", true)
	require.ErrorIs(t, err, maestroerrors.ErrNotFound)
}
