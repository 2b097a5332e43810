// Package expand provides the complexity and expansion advisor: it
// scores tasks against the configured effort threshold and splits
// over-sized tasks into subtask chains, using the external generation
// collaborator when available and a deterministic fallback catalogue
// when not.
//
// Generation runs outside the graph lock. Only the final commit of the
// generated subtasks takes the lock, so a slow collaborator never
// stalls other graph operations.
package expand

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
	"github.com/mrz1836/maestro/internal/gen"
	"github.com/mrz1836/maestro/internal/task"
)

// Options configures an Advisor.
type Options struct {
	// Store is the task graph store. Required.
	Store *task.Store

	// Generator is the external collaborator. Nil means fallback-only.
	Generator gen.Generator

	// Threshold is the effort score at or above which a task is
	// eligible for expansion. Zero uses the default.
	Threshold int

	// DefaultCount is the subtask count when the caller does not ask
	// for a specific number. Zero uses the default.
	DefaultCount int

	// Timeout bounds one collaborator call. Zero uses the default.
	Timeout time.Duration

	// Logger receives advisor events. Zero value discards them.
	Logger zerolog.Logger
}

// Advisor assesses task complexity and performs subtask expansion.
type Advisor struct {
	store        *task.Store
	generator    gen.Generator
	threshold    int
	defaultCount int
	timeout      time.Duration
	logger       zerolog.Logger
}

// NewAdvisor creates an Advisor with defaults applied.
func NewAdvisor(opts Options) *Advisor {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = constants.DefaultExpandThreshold
	}
	count := opts.DefaultCount
	if count <= 0 {
		count = constants.DefaultSubtaskCount
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultGenerationTimeout
	}

	return &Advisor{
		store:        opts.Store,
		generator:    opts.Generator,
		threshold:    threshold,
		defaultCount: count,
		timeout:      timeout,
		logger:       opts.Logger,
	}
}

// Assessment is the result of a complexity check.
type Assessment struct {
	// TaskID is the assessed task.
	TaskID string `json:"task_id"`

	// Effort is the task's effort score.
	Effort int `json:"effort"`

	// Threshold is the configured expansion threshold.
	Threshold int `json:"threshold"`

	// ShouldExpand is true when Effort is at or above Threshold.
	ShouldExpand bool `json:"should_expand"`

	// SuggestedSubtasks is the recommended subtask count: proportional
	// to how far the effort exceeds the threshold, at least two.
	SuggestedSubtasks int `json:"suggested_subtasks"`
}

// Assess scores a task against the expansion threshold.
func (a *Advisor) Assess(ctx context.Context, taskID string) (*Assessment, error) {
	t, err := a.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assessment := &Assessment{
		TaskID:    t.ID,
		Effort:    t.Effort,
		Threshold: a.threshold,
	}
	if t.Effort >= a.threshold {
		assessment.ShouldExpand = true
		assessment.SuggestedSubtasks = suggestedCount(t.Effort, a.threshold, a.defaultCount)
	}

	return assessment, nil
}

// suggestedCount scales the subtask recommendation with the effort
// overshoot, capped at the configured default.
func suggestedCount(effort, threshold, defaultCount int) int {
	n := 2 + (effort - threshold)
	if n > defaultCount {
		n = defaultCount
	}
	if n < 2 {
		n = 2
	}
	return n
}

// Expand splits a task into exactly count subtasks (the default count
// when count is zero). The task must be at or above the expansion
// threshold and must not already have subtasks.
//
// The collaborator is consulted first, outside the graph lock, bounded
// by the configured timeout. Any failure there — unreachable
// collaborator, unusable response, timeout — falls back to the
// deterministic catalogue; expansion itself never fails for external
// reasons. The generated list is trimmed or padded to exactly count
// entries, then committed atomically.
func (a *Advisor) Expand(ctx context.Context, taskID string, count int) ([]*domain.Task, error) {
	t, err := a.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.Effort < a.threshold {
		return nil, fmt.Errorf("%w: task %q effort %d is below expansion threshold %d",
			maestroerrors.ErrValidation, taskID, t.Effort, a.threshold)
	}
	if len(t.Subtasks) > 0 {
		return nil, fmt.Errorf("%w: task %q already has subtasks", maestroerrors.ErrStateConflict, taskID)
	}

	if count <= 0 {
		count = a.defaultCount
	}

	descs := a.generate(ctx, t, count)
	descs = fitToCount(descs, count)

	created, err := a.store.CommitSubtasks(ctx, taskID, descs, nil)
	if err != nil {
		return nil, err
	}

	a.logger.Info().Str("task_id", taskID).Int("subtasks", len(created)).Msg("task expanded")
	return created, nil
}

// generate asks the collaborator for descriptors, falling back to the
// catalogue on any failure. The returned list is non-empty.
func (a *Advisor) generate(ctx context.Context, t *domain.Task, count int) []domain.SubtaskDescriptor {
	if a.generator == nil {
		return Fallback(count)
	}

	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.generator.Generate(genCtx, gen.Request{
		TaskID:      t.ID,
		Title:       t.Title,
		Description: t.Description,
		Count:       count,
		Effort:      t.Effort,
	})
	if err != nil {
		a.logger.Warn().Err(err).Str("task_id", t.ID).Msg("generation failed, using fallback catalogue")
		return Fallback(count)
	}

	descs, err := gen.Normalize(resp)
	if err != nil {
		a.logger.Warn().Err(err).Str("task_id", t.ID).Msg("generation response unusable, using fallback catalogue")
		return Fallback(count)
	}

	return descs
}

// fitToCount trims an over-long descriptor list and pads a short one
// from the fallback catalogue.
func fitToCount(descs []domain.SubtaskDescriptor, count int) []domain.SubtaskDescriptor {
	if len(descs) > count {
		return descs[:count]
	}
	for _, filler := range Fallback(count) {
		if len(descs) == count {
			break
		}
		if !titleTaken(descs, filler.Title) {
			descs = append(descs, filler)
		}
	}
	// Duplicate-title collisions can leave the list short; pad with
	// numbered placeholders so the count contract holds.
	for i := len(descs); len(descs) < count; i++ {
		descs = append(descs, domain.SubtaskDescriptor{
			Title: fmt.Sprintf("Additional work item %d", i+1),
		})
	}
	return descs
}

func titleTaken(descs []domain.SubtaskDescriptor, title string) bool {
	for _, d := range descs {
		if d.Title == title {
			return true
		}
	}
	return false
}
