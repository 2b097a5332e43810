package task

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/domain"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// AddDependency records that dependent `to` requires prerequisite
// `from` to complete first. The edge is rejected when either task is
// unknown, when from == to, or when the edge would create a cycle;
// cycle rejections carry the full cycle path in precedence order.
// Adding an edge that already exists is a no-op.
//
// A pending dependent whose new prerequisite is not completed moves to
// blocked. In-progress dependents are left alone: work already started
// is not retroactively suspended.
func (s *Store) AddDependency(ctx context.Context, from, to string) error {
	err := s.withWrite(ctx, func() error {
		if from == to {
			return fmt.Errorf("%w: %q", maestroerrors.ErrSelfDependency, from)
		}

		prereq, ok := s.tasks[from]
		if !ok {
			return fmt.Errorf("task %q: %w", from, maestroerrors.ErrNotFound)
		}
		dependent, ok := s.tasks[to]
		if !ok {
			return fmt.Errorf("task %q: %w", to, maestroerrors.ErrNotFound)
		}

		if dependent.DependsOn(from) {
			return nil
		}

		// The edge closes a cycle exactly when the prerequisite already
		// (transitively) depends on the dependent. Walk the dependent
		// chains from `to` looking for `from`; the discovered chain plus
		// the new edge is the full cycle in precedence order.
		if path := s.findPathLocked(to, from); path != nil {
			return maestroerrors.NewCycleError(append(path, to))
		}

		now := s.clock.Now()
		dependent.Dependencies = append(dependent.Dependencies, from)
		dependent.UpdatedAt = now

		if dependent.Status == constants.TaskStatusPending &&
			prereq.Status != constants.TaskStatusCompleted {
			s.transitionLocked(dependent, constants.TaskStatusBlocked, "dependency added", now)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("from", from).Str("to", to).Msg("dependency added")
	return nil
}

// RemoveDependency deletes the edge making `to` depend on `from`.
// Removing an absent edge is a no-op; unknown task ids are still
// rejected. A blocked dependent whose remaining prerequisites are all
// completed moves back to pending.
func (s *Store) RemoveDependency(ctx context.Context, from, to string) error {
	return s.withWrite(ctx, func() error {
		if _, ok := s.tasks[from]; !ok {
			return fmt.Errorf("task %q: %w", from, maestroerrors.ErrNotFound)
		}
		dependent, ok := s.tasks[to]
		if !ok {
			return fmt.Errorf("task %q: %w", to, maestroerrors.ErrNotFound)
		}

		if !dependent.DependsOn(from) {
			return nil
		}

		deps := dependent.Dependencies[:0]
		for _, dep := range dependent.Dependencies {
			if dep != from {
				deps = append(deps, dep)
			}
		}
		dependent.Dependencies = deps

		now := s.clock.Now()
		dependent.UpdatedAt = now
		s.refreshBlockedLocked(dependent, now, "dependency removed")
		return nil
	})
}

// ReadyTasks returns clones of every task that is pending with all
// dependencies completed, ordered by creation sequence.
func (s *Store) ReadyTasks(_ context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, t := range s.sortedTasksLocked() {
		if t.Status != constants.TaskStatusPending {
			continue
		}
		if s.unmetDependenciesLocked(t) == 0 {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// TopologicalOrder returns clones of all tasks in a dependency-respecting
// order: every task appears after all of its prerequisites. Ties are
// broken by creation sequence so the order is deterministic.
func (s *Store) TopologicalOrder(_ context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Kahn's algorithm with a sequence-ordered frontier.
	indegree := make(map[string]int, len(s.tasks))
	dependents := s.dependentsLocked()
	for id, t := range s.tasks {
		indegree[id] = len(t.Dependencies)
	}

	var frontier []*domain.Task
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, s.tasks[id])
		}
	}

	out := make([]*domain.Task, 0, len(s.tasks))
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool { return frontier[i].Seq < frontier[j].Seq })
		next := frontier[0]
		frontier = frontier[1:]
		out = append(out, next.Clone())

		for _, depID := range dependents[next.ID] {
			indegree[depID]--
			if indegree[depID] == 0 {
				frontier = append(frontier, s.tasks[depID])
			}
		}
	}

	if len(out) != len(s.tasks) {
		// Unreachable while mutation-time cycle rejection holds.
		return nil, maestroerrors.Wrap(maestroerrors.ErrCycle, "graph is not a DAG")
	}

	return out, nil
}

// ValidationReport is the result of a whole-graph invariant check.
type ValidationReport struct {
	// Valid is true when no violations were found.
	Valid bool `json:"valid"`

	// MissingReferences maps task ids to dependency ids that do not exist.
	MissingReferences map[string][]string `json:"missing_references,omitempty"`

	// SelfDependencies lists task ids that reference themselves.
	SelfDependencies []string `json:"self_dependencies,omitempty"`

	// CycleDetected is true when the graph contains at least one cycle.
	CycleDetected bool `json:"cycle_detected"`
}

func (r *ValidationReport) summary() string {
	var parts []string
	for id, missing := range r.MissingReferences {
		parts = append(parts, fmt.Sprintf("task %s references missing %s", id, strings.Join(missing, ", ")))
	}
	for _, id := range r.SelfDependencies {
		parts = append(parts, fmt.Sprintf("task %s depends on itself", id))
	}
	if r.CycleDetected {
		parts = append(parts, "dependency cycle present")
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateGraph checks the whole graph against its invariants:
// every dependency references an existing task, no self references,
// and the edge set is acyclic.
func (s *Store) ValidateGraph(_ context.Context) (*ValidationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateLocked(), nil
}

// validateLocked performs the whole-graph check. Caller holds mu.
// Acyclicity is checked by attempting a full topological sort of the
// edge set.
func (s *Store) validateLocked() *ValidationReport {
	report := &ValidationReport{Valid: true}

	var edges []toposort.Edge
	for id, t := range s.tasks {
		if len(t.Dependencies) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, dep := range t.Dependencies {
			if dep == id {
				report.SelfDependencies = append(report.SelfDependencies, id)
				continue
			}
			if _, ok := s.tasks[dep]; !ok {
				if report.MissingReferences == nil {
					report.MissingReferences = make(map[string][]string)
				}
				report.MissingReferences[id] = append(report.MissingReferences[id], dep)
				continue
			}
			edges = append(edges, toposort.Edge{dep, id})
		}
	}
	sort.Strings(report.SelfDependencies)

	if _, err := toposort.Toposort(edges); err != nil {
		report.CycleDetected = true
	}

	if len(report.MissingReferences) > 0 || len(report.SelfDependencies) > 0 || report.CycleDetected {
		report.Valid = false
	}

	return report
}

// findPathLocked returns the task ids on a dependency-precedence path
// from start to goal (inclusive), or nil when goal is unreachable.
// Edges are walked in the dependent direction: from each task to the
// tasks that depend on it. Traversal order is deterministic (sequence
// order) so reported cycle paths are stable. Caller holds mu.
func (s *Store) findPathLocked(start, goal string) []string {
	dependents := s.dependentsLocked()

	var dfs func(cur string, path []string) []string
	visited := make(map[string]bool)
	dfs = func(cur string, path []string) []string {
		path = append(path, cur)
		if cur == goal {
			return append([]string(nil), path...)
		}
		visited[cur] = true
		for _, next := range dependents[cur] {
			if visited[next] {
				continue
			}
			if found := dfs(next, path); found != nil {
				return found
			}
		}
		return nil
	}

	return dfs(start, nil)
}

// dependentsLocked builds the reverse adjacency: prerequisite id to the
// ids of tasks that depend on it, each list in sequence order.
// Caller holds mu.
func (s *Store) dependentsLocked() map[string][]string {
	dependents := make(map[string][]string)
	for _, t := range s.sortedTasksLocked() {
		for _, dep := range t.Dependencies {
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}
	return dependents
}

// unmetDependenciesLocked counts dependencies of t that are not
// completed. Dangling references count as unmet. Caller holds mu.
func (s *Store) unmetDependenciesLocked(t *domain.Task) int {
	unmet := 0
	for _, dep := range t.Dependencies {
		d, ok := s.tasks[dep]
		if !ok || d.Status != constants.TaskStatusCompleted {
			unmet++
		}
	}
	return unmet
}
