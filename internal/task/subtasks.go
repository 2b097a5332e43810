package task

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gammazero/toposort"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// SubtaskEdge wires one generated subtask to another by descriptor
// index (0-based): To depends on From.
type SubtaskEdge struct {
	From int
	To   int
}

// linearChain is the default wiring: subtask k depends on subtask k-1.
func linearChain(n int) []SubtaskEdge {
	edges := make([]SubtaskEdge, 0, n-1)
	for k := 1; k < n; k++ {
		edges = append(edges, SubtaskEdge{From: k - 1, To: k})
	}
	return edges
}

// subtaskWiring validates an edge list against the descriptor count and
// returns the per-subtask prerequisite index sets. Indices out of
// range, self-edges and cyclic wirings are rejected.
func subtaskWiring(n int, edges []SubtaskEdge) ([][]int, error) {
	incoming := make([][]int, n)
	topo := make([]toposort.Edge, 0, n+len(edges))
	for k := 0; k < n; k++ {
		topo = append(topo, toposort.Edge{nil, k})
	}

	for _, e := range edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return nil, fmt.Errorf("%w: subtask edge %d→%d is out of range", maestroerrors.ErrValidation, e.From, e.To)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("%w: subtask %d cannot depend on itself", maestroerrors.ErrValidation, e.To)
		}
		incoming[e.To] = append(incoming[e.To], e.From)
		topo = append(topo, toposort.Edge{e.From, e.To})
	}

	if _, err := toposort.Toposort(topo); err != nil {
		return nil, fmt.Errorf("%w: subtask wiring contains a cycle", maestroerrors.ErrValidation)
	}
	return incoming, nil
}

// CommitSubtasks materializes generated subtask descriptors as real
// tasks under the given parent, atomically. Either every subtask is
// created and wired or the graph is untouched.
//
// Subtasks get ids <parent>.<k> (1-based). A nil edge list wires the
// default linear chain: subtask k depends on subtask k-1. Callers may
// supply an alternate wiring instead; it is validated for acyclicity
// under the same lock as the insertion. Subtasks without prerequisites
// inherit the parent's dependency set, so no part of the expansion can
// start before the parent could have. The parent records the ordered
// subtask ids.
//
// A parent that already has subtasks is rejected: expansion is
// one-shot, re-expanding requires removing the previous subtasks first.
func (s *Store) CommitSubtasks(ctx context.Context, parentID string, descs []domain.SubtaskDescriptor, edges []SubtaskEdge) ([]*domain.Task, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w: no subtask descriptors", maestroerrors.ErrValidation)
	}
	if edges == nil {
		edges = linearChain(len(descs))
	}
	incoming, err := subtaskWiring(len(descs), edges)
	if err != nil {
		return nil, err
	}

	var created []*domain.Task
	err = s.withWrite(ctx, func() error {
		parent, ok := s.tasks[parentID]
		if !ok {
			return fmt.Errorf("task %q: %w", parentID, maestroerrors.ErrNotFound)
		}
		if len(parent.Subtasks) > 0 {
			return fmt.Errorf("%w: task %q already has subtasks", maestroerrors.ErrStateConflict, parentID)
		}
		switch parent.Status {
		case constants.TaskStatusCompleted, constants.TaskStatusCancelled:
			return fmt.Errorf("%w: cannot expand task %q in status %s",
				maestroerrors.ErrStateConflict, parentID, parent.Status)
		}

		now := s.clock.Now()
		subtaskIDs := make([]string, len(descs))
		for k := range descs {
			subtaskIDs[k] = parentID + "." + strconv.Itoa(k+1)
			if _, exists := s.tasks[subtaskIDs[k]]; exists {
				return fmt.Errorf("%w: subtask id %q already exists", maestroerrors.ErrValidation, subtaskIDs[k])
			}
		}
		created = make([]*domain.Task, 0, len(descs))

		for k, desc := range descs {
			id := subtaskIDs[k]

			var deps []string
			if len(incoming[k]) == 0 {
				deps = append([]string(nil), parent.Dependencies...)
			} else {
				for _, from := range incoming[k] {
					deps = append(deps, subtaskIDs[from])
				}
			}

			t := &domain.Task{
				ID:             id,
				Title:          desc.Title,
				Description:    desc.Description,
				Priority:       subtaskPriority(desc, parent),
				Effort:         subtaskEffort(desc),
				EstimatedHours: subtaskHours(desc, parent, len(descs)),
				Dependencies:   deps,
				Tags:           append([]string(nil), desc.Tags...),
				Seq:            s.nextSeq,
				CreatedAt:      now,
				UpdatedAt:      now,
			}

			if err := t.Validate(); err != nil {
				return maestroerrors.Wrapf(err, "subtask %d of %s", k+1, parentID)
			}

			s.tasks[id] = t
			s.nextSeq++
		}

		// Statuses are derived after the whole set is inserted: a custom
		// wiring may point a subtask at a sibling with a higher index.
		for _, id := range subtaskIDs {
			t := s.tasks[id]
			t.Status = s.deriveInitialStatusLocked(t)
			created = append(created, t.Clone())
		}

		parent.Subtasks = subtaskIDs
		parent.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("task_id", parentID).Int("subtasks", len(created)).Msg("subtasks committed")
	return created, nil
}

// subtaskPriority picks the descriptor priority when it is a known
// value, otherwise the parent's.
func subtaskPriority(desc domain.SubtaskDescriptor, parent *domain.Task) constants.TaskPriority {
	p := constants.TaskPriority(desc.Priority)
	if constants.ValidPriority(p) {
		return p
	}
	return parent.Priority
}

// subtaskEffort clamps the descriptor effort into the valid range.
// An omitted effort defaults to the minimum: subtasks are by definition
// smaller units of work than the task they split.
func subtaskEffort(desc domain.SubtaskDescriptor) int {
	switch {
	case desc.Effort <= 0:
		return constants.MinEffort
	case desc.Effort < constants.MinEffort:
		return constants.MinEffort
	case desc.Effort > constants.MaxEffort:
		return constants.MaxEffort
	}
	return desc.Effort
}

// subtaskHours uses the descriptor estimate when positive, otherwise an
// even split of the parent's estimate.
func subtaskHours(desc domain.SubtaskDescriptor, parent *domain.Task, n int) float64 {
	if desc.EstimatedHours > 0 {
		return desc.EstimatedHours
	}
	return parent.EstimatedHours / float64(n)
}
