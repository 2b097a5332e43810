package task

import (
	"context"
	"fmt"
	"time"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// ValidTransitions defines the lifecycle state machine. Every status
// change made by the store consults this table; transitions it does not
// list are rejected with ErrInvalidTransition.
//
//	pending     → in-progress, blocked, cancelled
//	blocked     → pending, cancelled
//	in-progress → completed, failed, cancelled, blocked
//	completed   → pending (explicit reopen)
//	failed      → pending (retry), cancelled
//	cancelled   → (terminal)
var ValidTransitions = map[constants.TaskStatus][]constants.TaskStatus{
	constants.TaskStatusPending: {
		constants.TaskStatusInProgress,
		constants.TaskStatusBlocked,
		constants.TaskStatusCancelled,
	},
	constants.TaskStatusBlocked: {
		constants.TaskStatusPending,
		constants.TaskStatusCancelled,
	},
	constants.TaskStatusInProgress: {
		constants.TaskStatusCompleted,
		constants.TaskStatusFailed,
		constants.TaskStatusCancelled,
		constants.TaskStatusBlocked,
	},
	constants.TaskStatusCompleted: {
		constants.TaskStatusPending,
	},
	constants.TaskStatusFailed: {
		constants.TaskStatusPending,
		constants.TaskStatusCancelled,
	},
	constants.TaskStatusCancelled: {},
}

// CanTransition reports whether the state machine allows moving from
// one status to another.
func CanTransition(from, to constants.TaskStatus) bool {
	for _, allowed := range ValidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transitionLocked moves a task to a new status, recording the change
// in the audit trail. Caller holds mu and has verified (or relies on
// this check) that the transition is legal.
func (s *Store) transitionLocked(t *domain.Task, to constants.TaskStatus, reason string, now time.Time) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s → %s for task %q",
			maestroerrors.ErrInvalidTransition, t.Status, to, t.ID)
	}

	t.Transitions = append(t.Transitions, domain.Transition{
		FromStatus: t.Status,
		ToStatus:   to,
		Timestamp:  now,
		Reason:     reason,
	})
	t.Status = to
	t.UpdatedAt = now
	return nil
}

// refreshBlockedLocked re-derives a task's pending/blocked split after
// its dependency set or a prerequisite's status changed. Only tasks
// currently blocked or pending are touched; started and terminal tasks
// keep their state. Caller holds mu.
func (s *Store) refreshBlockedLocked(t *domain.Task, now time.Time, reason string) {
	unmet := s.unmetDependenciesLocked(t)

	switch {
	case t.Status == constants.TaskStatusBlocked && unmet == 0:
		_ = s.transitionLocked(t, constants.TaskStatusPending, reason, now)
	case t.Status == constants.TaskStatusPending && unmet > 0:
		_ = s.transitionLocked(t, constants.TaskStatusBlocked, reason, now)
	}
}

// Start moves a pending task to in-progress. Blocked tasks cannot be
// started; their prerequisites must complete first.
func (s *Store) Start(ctx context.Context, id string) (*domain.Task, error) {
	return s.lifecycle(ctx, id, constants.TaskStatusInProgress, "started")
}

// Complete moves an in-progress task to completed, then unblocks every
// dependent whose dependency set became fully met.
//
// Completion is gated on the dependency set: a task whose prerequisites
// are not all completed cannot complete, even if an edge was added
// after the task started. This keeps "completed implies all
// dependencies completed" true under any interleaving of dependency
// and status operations.
func (s *Store) Complete(ctx context.Context, id string) (*domain.Task, error) {
	var completed *domain.Task
	err := s.withWrite(ctx, func() error {
		t, ok := s.tasks[id]
		if !ok {
			return fmt.Errorf("task %q: %w", id, maestroerrors.ErrNotFound)
		}
		if unmet := s.unmetDependenciesLocked(t); unmet > 0 {
			return fmt.Errorf("%w: cannot complete task %q with %d unmet dependencies",
				maestroerrors.ErrStateConflict, id, unmet)
		}

		now := s.clock.Now()
		if err := s.transitionLocked(t, constants.TaskStatusCompleted, "completed", now); err != nil {
			return err
		}

		for _, depID := range s.dependentsLocked()[id] {
			s.refreshBlockedLocked(s.tasks[depID], now, fmt.Sprintf("dependency %s completed", id))
		}

		completed = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("task_id", id).Msg("task completed")
	return completed, nil
}

// Fail moves an in-progress task to failed. The failure does not
// propagate: dependents simply stay blocked on the unmet prerequisite.
func (s *Store) Fail(ctx context.Context, id string) (*domain.Task, error) {
	return s.lifecycle(ctx, id, constants.TaskStatusFailed, "failed")
}

// Cancel moves a non-terminal task to cancelled. Dependents of a
// cancelled task remain blocked until the edge is removed or the
// dependent is cancelled too.
func (s *Store) Cancel(ctx context.Context, id string) (*domain.Task, error) {
	return s.lifecycle(ctx, id, constants.TaskStatusCancelled, "cancelled")
}

// Retry moves a failed task back to pending for another attempt.
// The task's dependency set is re-derived, so a retried task whose
// prerequisites regressed lands in blocked instead.
func (s *Store) Retry(ctx context.Context, id string) (*domain.Task, error) {
	var retried *domain.Task
	err := s.withWrite(ctx, func() error {
		t, ok := s.tasks[id]
		if !ok {
			return fmt.Errorf("task %q: %w", id, maestroerrors.ErrNotFound)
		}
		if t.Status != constants.TaskStatusFailed {
			return fmt.Errorf("%w: cannot retry task %q in status %s",
				maestroerrors.ErrStateConflict, id, t.Status)
		}

		now := s.clock.Now()
		if err := s.transitionLocked(t, constants.TaskStatusPending, "retried", now); err != nil {
			return err
		}
		s.refreshBlockedLocked(t, now, "retried with unmet dependencies")

		retried = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return retried, nil
}

// Reopen moves a completed task back to pending and cascades the
// regression: every transitive dependent that is pending or in-progress
// and now has an unmet prerequisite moves to blocked. Terminal
// dependents are left untouched.
func (s *Store) Reopen(ctx context.Context, id string) (*domain.Task, error) {
	var reopened *domain.Task
	err := s.withWrite(ctx, func() error {
		t, ok := s.tasks[id]
		if !ok {
			return fmt.Errorf("task %q: %w", id, maestroerrors.ErrNotFound)
		}
		if t.Status != constants.TaskStatusCompleted {
			return fmt.Errorf("%w: cannot reopen task %q in status %s",
				maestroerrors.ErrStateConflict, id, t.Status)
		}

		now := s.clock.Now()
		if err := s.transitionLocked(t, constants.TaskStatusPending, "reopened", now); err != nil {
			return err
		}
		s.refreshBlockedLocked(t, now, "reopened with unmet dependencies")

		// Breadth-first over transitive dependents. Re-blocking one
		// dependent never unblocks another, so a single visit per task
		// suffices.
		dependents := s.dependentsLocked()
		reason := fmt.Sprintf("dependency %s reopened", id)
		visited := map[string]bool{id: true}
		queue := append([]string(nil), dependents[id]...)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if visited[cur] {
				continue
			}
			visited[cur] = true

			dep := s.tasks[cur]
			switch dep.Status {
			case constants.TaskStatusPending, constants.TaskStatusInProgress:
				if s.unmetDependenciesLocked(dep) > 0 {
					_ = s.transitionLocked(dep, constants.TaskStatusBlocked, reason, now)
				}
			}

			queue = append(queue, dependents[cur]...)
		}

		reopened = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("task_id", id).Msg("task reopened")
	return reopened, nil
}

// lifecycle applies a single-task status transition with no cascade.
func (s *Store) lifecycle(ctx context.Context, id string, to constants.TaskStatus, reason string) (*domain.Task, error) {
	var out *domain.Task
	err := s.withWrite(ctx, func() error {
		t, ok := s.tasks[id]
		if !ok {
			return fmt.Errorf("task %q: %w", id, maestroerrors.ErrNotFound)
		}
		if err := s.transitionLocked(t, to, reason, s.clock.Now()); err != nil {
			return err
		}
		out = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
