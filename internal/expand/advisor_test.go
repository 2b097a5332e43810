package expand

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/mrz1836/maestro/internal/gen"
	"github.com/mrz1836/maestro/internal/task"
)

// staticGenerator returns a canned response and records requests.
type staticGenerator struct {
	resp *gen.Response
	err  error
	got  []gen.Request
}

func (g *staticGenerator) Generate(_ context.Context, req gen.Request) (*gen.Response, error) {
	g.got = append(g.got, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

// blockingGenerator never returns until its context is cancelled.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ gen.Request) (*gen.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newTestStore(t *testing.T) *task.Store {
	t.Helper()

	s, err := task.NewStore(context.Background(), task.Options{
		Path:   filepath.Join(t.TempDir(), "tasks.json"),
		Clock:  clock.NewFixed(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	return s
}

func createTask(t *testing.T, s *task.Store, effort int) *domain.Task {
	t.Helper()

	created, err := s.Create(context.Background(), task.CreateRequest{
		Title:          fmt.Sprintf("effort-%d task", effort),
		Effort:         effort,
		EstimatedHours: 8,
	})
	require.NoError(t, err)
	return created
}

// TestAssess verifies the threshold comparison and the suggestion
// scaling.
func TestAssess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	advisor := NewAdvisor(Options{Store: s, Threshold: 3, DefaultCount: 5})

	small := createTask(t, s, 2)
	big := createTask(t, s, 5)

	a1, err := advisor.Assess(ctx, small.ID)
	require.NoError(t, err)
	assert.False(t, a1.ShouldExpand)
	assert.Zero(t, a1.SuggestedSubtasks)

	a2, err := advisor.Assess(ctx, big.ID)
	require.NoError(t, err)
	assert.True(t, a2.ShouldExpand)
	assert.Equal(t, 4, a2.SuggestedSubtasks)

	_, err = advisor.Assess(ctx, "task-404")
	require.ErrorIs(t, err, maestroerrors.ErrNotFound)
}

// TestExpand_UsesGeneratorOutput verifies the happy path end to end:
// collaborator output becomes a committed subtask chain.
func TestExpand_UsesGeneratorOutput(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	parent := createTask(t, s, 4)

	g := &staticGenerator{resp: &gen.Response{Descriptors: []domain.SubtaskDescriptor{
		{Title: "first", Effort: 2},
		{Title: "second", Effort: 1},
	}}}
	advisor := NewAdvisor(Options{Store: s, Generator: g, Threshold: 3})

	subs, err := advisor.Expand(ctx, parent.ID, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "first", subs[0].Title)
	assert.Equal(t, parent.ID+".1", subs[0].ID)
	assert.Equal(t, []string{subs[0].ID}, subs[1].Dependencies)

	require.Len(t, g.got, 1)
	assert.Equal(t, parent.ID, g.got[0].TaskID)
	assert.Equal(t, 2, g.got[0].Count)
	assert.Equal(t, 4, g.got[0].Effort)
}

// TestExpand_FallbackOnGeneratorError verifies collaborator failures
// degrade to the catalogue instead of failing the expansion.
func TestExpand_FallbackOnGeneratorError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	prereq := createTask(t, s, 2)
	parent, err := s.Create(ctx, task.CreateRequest{
		Title:          "over-sized work",
		Effort:         5,
		EstimatedHours: 8,
		Dependencies:   []string{prereq.ID},
	})
	require.NoError(t, err)

	g := &staticGenerator{err: errors.New("collaborator down")}
	advisor := NewAdvisor(Options{Store: s, Generator: g, Threshold: 3})

	subs, err := advisor.Expand(ctx, parent.ID, 4)
	require.NoError(t, err)
	require.Len(t, subs, 4)
	assert.Equal(t, "Analyze requirements", subs[0].Title)
	assert.Equal(t, "Design solution", subs[1].Title)

	// Catalogue subtasks form the usual chain: the first inherits the
	// parent's dependencies, each later one waits on its predecessor.
	assert.Equal(t, []string{prereq.ID}, subs[0].Dependencies)
	for k := 1; k < len(subs); k++ {
		assert.Equal(t, []string{subs[k-1].ID}, subs[k].Dependencies)
	}

	// Expansion never edits the parent's own dependency set.
	got, err := s.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{prereq.ID}, got.Dependencies)
}

// TestExpand_FallbackOnUnparsableResponse verifies unusable responses
// degrade the same way.
func TestExpand_FallbackOnUnparsableResponse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	parent := createTask(t, s, 4)

	g := &staticGenerator{resp: &gen.Response{Text: "sorry, no list today"}}
	advisor := NewAdvisor(Options{Store: s, Generator: g, Threshold: 3})

	subs, err := advisor.Expand(ctx, parent.ID, 3)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "Analyze requirements", subs[0].Title)
}

// TestExpand_GenerationTimeout verifies a hung collaborator is cut off
// by the configured timeout and the fallback is used.
func TestExpand_GenerationTimeout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	parent := createTask(t, s, 4)

	advisor := NewAdvisor(Options{
		Store:     s,
		Generator: blockingGenerator{},
		Threshold: 3,
		Timeout:   10 * time.Millisecond,
	})

	start := time.Now()
	subs, err := advisor.Expand(ctx, parent.ID, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Less(t, time.Since(start), 5*time.Second)
}

// TestExpand_NilGeneratorUsesFallback verifies fallback-only operation.
func TestExpand_NilGeneratorUsesFallback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	parent := createTask(t, s, 3)

	advisor := NewAdvisor(Options{Store: s, Threshold: 3, DefaultCount: 5})

	// Zero count means the configured default.
	subs, err := advisor.Expand(ctx, parent.ID, 0)
	require.NoError(t, err)
	assert.Len(t, subs, 5)
}

// TestExpand_FitToCount verifies trimming and padding to the exact
// requested count.
func TestExpand_FitToCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Over-long response is trimmed.
	p1 := createTask(t, s, 4)
	g := &staticGenerator{resp: &gen.Response{Descriptors: []domain.SubtaskDescriptor{
		{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"},
	}}}
	advisor := NewAdvisor(Options{Store: s, Generator: g, Threshold: 3})

	subs, err := advisor.Expand(ctx, p1.ID, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a", subs[0].Title)
	assert.Equal(t, "b", subs[1].Title)

	// Short response is padded from the catalogue.
	p2 := createTask(t, s, 4)
	g.resp = &gen.Response{Descriptors: []domain.SubtaskDescriptor{{Title: "only one"}}}

	subs, err = advisor.Expand(ctx, p2.ID, 3)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "only one", subs[0].Title)
	assert.Equal(t, "Analyze requirements", subs[1].Title)
	assert.Equal(t, "Design solution", subs[2].Title)
}

// TestExpand_BelowThreshold verifies under-sized tasks are rejected.
func TestExpand_BelowThreshold(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	small := createTask(t, s, 2)

	advisor := NewAdvisor(Options{Store: s, Threshold: 3})

	_, err := advisor.Expand(ctx, small.ID, 2)
	require.ErrorIs(t, err, maestroerrors.ErrValidation)
}

// TestExpand_AlreadyExpanded verifies expansion is one-shot.
func TestExpand_AlreadyExpanded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	parent := createTask(t, s, 4)

	advisor := NewAdvisor(Options{Store: s, Threshold: 3})
	_, err := advisor.Expand(ctx, parent.ID, 2)
	require.NoError(t, err)

	_, err = advisor.Expand(ctx, parent.ID, 2)
	require.ErrorIs(t, err, maestroerrors.ErrStateConflict)
}

// TestExpand_SubtaskStatuses verifies the committed chain respects the
// graph's status rules.
func TestExpand_SubtaskStatuses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	parent := createTask(t, s, 4)

	advisor := NewAdvisor(Options{Store: s, Threshold: 3})
	subs, err := advisor.Expand(ctx, parent.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, constants.TaskStatusPending, subs[0].Status)
	assert.Equal(t, constants.TaskStatusBlocked, subs[1].Status)
	assert.Equal(t, constants.TaskStatusBlocked, subs[2].Status)
}
