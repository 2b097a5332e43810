package task

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// CreateRequest carries the caller-supplied fields for a new task.
// The store assigns id, sequence, timestamps and initial status.
type CreateRequest struct {
	Title          string
	Description    string
	Priority       constants.TaskPriority
	Effort         int
	EstimatedHours float64
	Dependencies   []string
	Tags           []string
	Assignee       string
}

// normalize applies defaults for omitted optional fields.
func (r *CreateRequest) normalize() {
	if r.Priority == "" {
		r.Priority = constants.TaskPriorityMedium
	}
	if r.Effort == 0 {
		r.Effort = constants.MinEffort
	}
	if r.EstimatedHours == 0 {
		r.EstimatedHours = 1
	}
}

// Create adds a new task to the graph. Initial status is derived from
// the dependency set: blocked while any dependency is not completed,
// pending otherwise. Returns a clone of the created task.
func (s *Store) Create(ctx context.Context, req CreateRequest) (*domain.Task, error) {
	req.normalize()

	var created *domain.Task
	err := s.withWrite(ctx, func() error {
		now := s.clock.Now()
		id := s.nextTaskIDLocked()
		t := &domain.Task{
			ID:             id,
			Title:          req.Title,
			Description:    req.Description,
			Priority:       req.Priority,
			Effort:         req.Effort,
			EstimatedHours: req.EstimatedHours,
			Dependencies:   append([]string(nil), req.Dependencies...),
			Tags:           append([]string(nil), req.Tags...),
			Assignee:       req.Assignee,
			Seq:            s.nextSeq,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := t.Validate(); err != nil {
			return err
		}

		for _, dep := range t.Dependencies {
			if _, ok := s.tasks[dep]; !ok {
				return fmt.Errorf("%w: dependency %q does not exist", maestroerrors.ErrValidation, dep)
			}
		}

		t.Status = s.deriveInitialStatusLocked(t)

		s.tasks[t.ID] = t
		s.nextSeq++
		created = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("task_id", created.ID).Str("status", created.Status.String()).Msg("task created")
	return created, nil
}

// Get returns a clone of the task with the given id.
func (s *Store) Get(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, maestroerrors.ErrNotFound)
	}
	return t.Clone(), nil
}

// List returns clones of all tasks ordered by creation sequence.
// When statuses are given, only tasks in one of those states are
// returned.
func (s *Store) List(_ context.Context, statuses ...constants.TaskStatus) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.sortedTasksLocked() {
		if len(statuses) > 0 && !statusIn(t.Status, statuses) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

// Patch carries the updatable task fields. Nil pointers leave the field
// unchanged. Status and dependencies are not patchable here: status
// moves through the lifecycle operations and edges through the
// dependency operations, so their invariants cannot be bypassed.
type Patch struct {
	Title          *string
	Description    *string
	Priority       *constants.TaskPriority
	Effort         *int
	EstimatedHours *float64
	Tags           *[]string
	Assignee       *string
}

// Update applies a partial update to the task with the given id and
// returns a clone of the updated task.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*domain.Task, error) {
	var updated *domain.Task
	err := s.withWrite(ctx, func() error {
		t, ok := s.tasks[id]
		if !ok {
			return fmt.Errorf("task %q: %w", id, maestroerrors.ErrNotFound)
		}

		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.Effort != nil {
			t.Effort = *patch.Effort
		}
		if patch.EstimatedHours != nil {
			t.EstimatedHours = *patch.EstimatedHours
		}
		if patch.Tags != nil {
			t.Tags = append([]string(nil), (*patch.Tags)...)
		}
		if patch.Assignee != nil {
			t.Assignee = *patch.Assignee
		}

		if err := t.Validate(); err != nil {
			return err
		}

		t.UpdatedAt = s.clock.Now()
		updated = t.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Remove deletes the task with the given id. A task with dependents is
// rejected with a state conflict unless cascade is set, in which case
// the dangling edges are removed from every dependent and their blocked
// status is re-derived. Subtasks are exclusively owned by their parent
// and are removed with it.
func (s *Store) Remove(ctx context.Context, id string, cascade bool) error {
	err := s.withWrite(ctx, func() error {
		if _, ok := s.tasks[id]; !ok {
			return fmt.Errorf("task %q: %w", id, maestroerrors.ErrNotFound)
		}

		doomed := s.collectSubtreeLocked(id)

		if !cascade {
			for _, t := range s.tasks {
				if doomed[t.ID] {
					continue
				}
				for _, dep := range t.Dependencies {
					if doomed[dep] {
						return fmt.Errorf("%w: task %q has dependent %q (use cascade to remove edges)",
							maestroerrors.ErrStateConflict, dep, t.ID)
					}
				}
			}
		}

		for victim := range doomed {
			delete(s.tasks, victim)
		}

		now := s.clock.Now()
		for _, t := range s.tasks {
			if stripDoomed(t, doomed) {
				t.UpdatedAt = now
			}
			s.refreshBlockedLocked(t, now, "dependency removed with task")
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("task_id", id).Bool("cascade", cascade).Msg("task removed")
	return nil
}

// collectSubtreeLocked returns the set of ids rooted at id via subtask
// ownership. Caller holds mu.
func (s *Store) collectSubtreeLocked(id string) map[string]bool {
	doomed := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if doomed[cur] {
			continue
		}
		doomed[cur] = true
		if t, ok := s.tasks[cur]; ok {
			queue = append(queue, t.Subtasks...)
		}
	}
	return doomed
}

// stripDoomed removes references to doomed ids from a surviving task's
// dependency and subtask lists. Reports whether anything changed.
func stripDoomed(t *domain.Task, doomed map[string]bool) bool {
	changed := false

	deps := t.Dependencies[:0]
	for _, dep := range t.Dependencies {
		if doomed[dep] {
			changed = true
			continue
		}
		deps = append(deps, dep)
	}
	t.Dependencies = deps

	subs := t.Subtasks[:0]
	for _, sub := range t.Subtasks {
		if doomed[sub] {
			changed = true
			continue
		}
		subs = append(subs, sub)
	}
	t.Subtasks = subs

	return changed
}

// nextTaskIDLocked returns the id for the next created task, advancing
// the sequence past any id already present. Documents written by other
// tools may carry tasks without sequence numbers, so the counter alone
// cannot be trusted to avoid collisions. Caller holds mu.
func (s *Store) nextTaskIDLocked() string {
	for {
		id := "task-" + strconv.FormatInt(s.nextSeq, 10)
		if _, taken := s.tasks[id]; !taken {
			return id
		}
		s.nextSeq++
	}
}

// deriveInitialStatusLocked computes the initial status for a new task
// from its dependency set. Caller holds mu.
func (s *Store) deriveInitialStatusLocked(t *domain.Task) constants.TaskStatus {
	for _, dep := range t.Dependencies {
		if d, ok := s.tasks[dep]; ok && d.Status != constants.TaskStatusCompleted {
			return constants.TaskStatusBlocked
		}
	}
	return constants.TaskStatusPending
}

func statusIn(status constants.TaskStatus, set []constants.TaskStatus) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}
