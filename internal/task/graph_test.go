package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// chainOfThree builds T1 ← T2 ← T3 (T2 depends on T1, T3 on T2).
func chainOfThree(t *testing.T, s *Store) (*domain.Task, *domain.Task, *domain.Task) {
	t.Helper()

	t1 := mustCreate(t, s, "T1")
	t2 := mustCreate(t, s, "T2", t1.ID)
	t3 := mustCreate(t, s, "T3", t2.ID)
	return t1, t2, t3
}

// TestAddDependency_Basic verifies the edge lands on the dependent and
// a pending dependent with an uncompleted prerequisite re-blocks.
func TestAddDependency_Basic(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")

	require.NoError(t, s.AddDependency(ctx, a.ID, b.ID))

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, got.Dependencies)
	assert.Equal(t, constants.TaskStatusBlocked, got.Status)
}

// TestAddDependency_Idempotent verifies a duplicate edge is a no-op.
func TestAddDependency_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b", a.ID)

	require.NoError(t, s.AddDependency(ctx, a.ID, b.ID))

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, got.Dependencies)
}

// TestAddDependency_Rejections covers self edges and unknown ids.
func TestAddDependency_Rejections(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "a")

	require.ErrorIs(t, s.AddDependency(ctx, a.ID, a.ID), maestroerrors.ErrSelfDependency)
	require.ErrorIs(t, s.AddDependency(ctx, "task-404", a.ID), maestroerrors.ErrNotFound)
	require.ErrorIs(t, s.AddDependency(ctx, a.ID, "task-404"), maestroerrors.ErrNotFound)
}

// TestAddDependency_CyclePath verifies a closing edge on a chain is
// rejected with the full cycle in precedence order: with T2 depending
// on T1 and T3 on T2, making T1 depend on T3 reports T1 → T2 → T3 → T1.
func TestAddDependency_CyclePath(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	t1, t2, t3 := chainOfThree(t, s)

	err := s.AddDependency(ctx, t3.ID, t1.ID)
	require.ErrorIs(t, err, maestroerrors.ErrCycle)

	ce := maestroerrors.AsCycleError(err)
	require.NotNil(t, ce)
	assert.Equal(t, []string{t1.ID, t2.ID, t3.ID, t1.ID}, ce.Path)

	// The rejected edge must not have landed.
	got, err := s.Get(ctx, t1.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Dependencies)
}

// TestAddDependency_TwoNodeCycle verifies the minimal cycle case.
func TestAddDependency_TwoNodeCycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b", a.ID)

	err := s.AddDependency(ctx, b.ID, a.ID)
	require.ErrorIs(t, err, maestroerrors.ErrCycle)

	ce := maestroerrors.AsCycleError(err)
	require.NotNil(t, ce)
	assert.Equal(t, []string{a.ID, b.ID, a.ID}, ce.Path)
}

// TestAddDependency_DoesNotBlockInProgress verifies started work is not
// retroactively suspended by a new edge.
func TestAddDependency_DoesNotBlockInProgress(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	_, err := s.Start(ctx, b.ID)
	require.NoError(t, err)

	require.NoError(t, s.AddDependency(ctx, a.ID, b.ID))

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusInProgress, got.Status)
}

// TestRemoveDependency_Unblocks verifies dropping the last unmet edge
// moves the dependent back to pending, and absent edges are no-ops.
func TestRemoveDependency_Unblocks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b", a.ID)
	require.Equal(t, constants.TaskStatusBlocked, b.Status)

	require.NoError(t, s.RemoveDependency(ctx, a.ID, b.ID))

	got, err := s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Dependencies)
	assert.Equal(t, constants.TaskStatusPending, got.Status)

	// Removing again is a no-op; unknown ids still fail.
	require.NoError(t, s.RemoveDependency(ctx, a.ID, b.ID))
	require.ErrorIs(t, s.RemoveDependency(ctx, "task-404", b.ID), maestroerrors.ErrNotFound)
}

// TestReadyTasks_Frontier verifies the ready set tracks completions
// across a chain: only T1 is ready at first, then T2 after T1
// completes, then T3.
func TestReadyTasks_Frontier(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	t1, t2, t3 := chainOfThree(t, s)

	ready, err := s.ReadyTasks(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, t1.ID, ready[0].ID)

	_, err = s.Start(ctx, t1.ID)
	require.NoError(t, err)
	_, err = s.Complete(ctx, t1.ID)
	require.NoError(t, err)

	ready, err = s.ReadyTasks(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, t2.ID, ready[0].ID)

	_, err = s.Start(ctx, t2.ID)
	require.NoError(t, err)
	_, err = s.Complete(ctx, t2.ID)
	require.NoError(t, err)

	ready, err = s.ReadyTasks(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, t3.ID, ready[0].ID)
}

// TestReadyTasks_ExcludesStartedAndTerminal verifies only pending tasks
// with met dependencies appear.
func TestReadyTasks_ExcludesStartedAndTerminal(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	c := mustCreate(t, s, "c")

	_, err := s.Start(ctx, a.ID)
	require.NoError(t, err)
	_, err = s.Cancel(ctx, b.ID)
	require.NoError(t, err)

	ready, err := s.ReadyTasks(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, c.ID, ready[0].ID)
}

// TestTopologicalOrder verifies prerequisites precede dependents and
// ties break by creation sequence.
func TestTopologicalOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// Diamond: b and c depend on a; d depends on both.
	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b", a.ID)
	c := mustCreate(t, s, "c", a.ID)
	d := mustCreate(t, s, "d", b.ID, c.ID)

	ordered, err := s.TopologicalOrder(ctx)
	require.NoError(t, err)
	require.Len(t, ordered, 4)

	ids := make([]string, len(ordered))
	for i, task := range ordered {
		ids[i] = task.ID
	}
	assert.Equal(t, []string{a.ID, b.ID, c.ID, d.ID}, ids)
}

// TestTopologicalOrder_IndependentTasksBySequence verifies disconnected
// tasks come out in creation order.
func TestTopologicalOrder_IndependentTasksBySequence(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	x := mustCreate(t, s, "x")
	y := mustCreate(t, s, "y")
	z := mustCreate(t, s, "z")

	ordered, err := s.TopologicalOrder(ctx)
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, x.ID, ordered[0].ID)
	assert.Equal(t, y.ID, ordered[1].ID)
	assert.Equal(t, z.ID, ordered[2].ID)
}

// TestValidateGraph_Healthy verifies a clean graph reports valid.
func TestValidateGraph_Healthy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	chainOfThree(t, s)

	report, err := s.ValidateGraph(ctx)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.False(t, report.CycleDetected)
	assert.Empty(t, report.MissingReferences)
	assert.Empty(t, report.SelfDependencies)
}
