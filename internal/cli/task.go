package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/maestro/internal/ops"
)

// newTaskCmd builds the task command group.
func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks in the dependency graph",
	}

	cmd.AddCommand(
		newTaskCreateCmd(a),
		newTaskGetCmd(a),
		newTaskListCmd(a),
		newTaskUpdateCmd(a),
		newTaskRemoveCmd(a),
		newTaskLifecycleCmd(a, "start", "Start a pending task", ops.OpTaskStart),
		newTaskLifecycleCmd(a, "complete", "Complete an in-progress task", ops.OpTaskComplete),
		newTaskLifecycleCmd(a, "fail", "Mark an in-progress task failed", ops.OpTaskFail),
		newTaskLifecycleCmd(a, "cancel", "Cancel a task", ops.OpTaskCancel),
		newTaskLifecycleCmd(a, "retry", "Retry a failed task", ops.OpTaskRetry),
		newTaskLifecycleCmd(a, "reopen", "Reopen a completed task", ops.OpTaskReopen),
		newTaskReadyCmd(a),
		newTaskOrderCmd(a),
		newTaskAssessCmd(a),
		newTaskExpandCmd(a),
	)

	return cmd
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var (
		description string
		priority    string
		effort      int
		hours       float64
		deps        []string
		tags        []string
		assignee    string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpTaskCreate, map[string]any{
				"title":           args[0],
				"description":     description,
				"priority":        priority,
				"effort":          effort,
				"estimated_hours": hours,
				"dependencies":    deps,
				"tags":            tags,
				"assignee":        assignee,
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "task description")
	cmd.Flags().StringVar(&priority, "priority", "", "priority: high, medium, low")
	cmd.Flags().IntVar(&effort, "effort", 0, "effort score in [1, 5]")
	cmd.Flags().Float64Var(&hours, "hours", 0, "estimated hours")
	cmd.Flags().StringSliceVar(&deps, "depends-on", nil, "prerequisite task ids")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "task tags")
	cmd.Flags().StringVar(&assignee, "assignee", "", "agent role assignee")

	return cmd
}

func newTaskGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpTaskGet, map[string]any{"id": args[0]})
		},
	}
}

func newTaskListCmd(a *app) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, ops.OpTaskList, map[string]any{"status": status})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only flags the caller actually set become patch fields, so
			// unset flags never clobber existing values.
			params := map[string]any{"id": args[0]}
			addChanged := func(name, key string, value any) {
				if cmd.Flags().Changed(name) {
					params[key] = value
				}
			}

			title, _ := cmd.Flags().GetString("title")
			addChanged("title", "title", title)
			description, _ := cmd.Flags().GetString("description")
			addChanged("description", "description", description)
			priority, _ := cmd.Flags().GetString("priority")
			addChanged("priority", "priority", priority)
			effort, _ := cmd.Flags().GetInt("effort")
			addChanged("effort", "effort", effort)
			hours, _ := cmd.Flags().GetFloat64("hours")
			addChanged("hours", "estimated_hours", hours)
			tags, _ := cmd.Flags().GetStringSlice("tag")
			addChanged("tag", "tags", tags)
			assignee, _ := cmd.Flags().GetString("assignee")
			addChanged("assignee", "assignee", assignee)

			return a.run(cmd, ops.OpTaskUpdate, params)
		},
	}

	cmd.Flags().String("title", "", "new title")
	cmd.Flags().String("description", "", "new description")
	cmd.Flags().String("priority", "", "new priority")
	cmd.Flags().Int("effort", 0, "new effort score")
	cmd.Flags().Float64("hours", 0, "new estimated hours")
	cmd.Flags().StringSlice("tag", nil, "replacement tag set")
	cmd.Flags().String("assignee", "", "new assignee")

	return cmd
}

func newTaskRemoveCmd(a *app) *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a task (and its subtasks)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpTaskRemove, map[string]any{
				"id":      args[0],
				"cascade": cascade,
			})
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "also strip edges from dependents")
	return cmd
}

// newTaskLifecycleCmd builds the shared single-id lifecycle commands.
func newTaskLifecycleCmd(a *app, use, short, op string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, op, map[string]any{"id": args[0]})
		},
	}
}

func newTaskReadyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "List tasks ready to start",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, ops.OpTaskReady, nil)
		},
	}
}

func newTaskOrderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print all tasks in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, ops.OpTaskOrder, nil)
		},
	}
}

func newTaskAssessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assess <id>",
		Short: "Assess a task against the expansion threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpTaskAssess, map[string]any{"id": args[0]})
		},
	}
}

func newTaskExpandCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "expand <id>",
		Short: "Split an over-sized task into a subtask chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpTaskExpand, map[string]any{
				"id":    args[0],
				"count": count,
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "number of subtasks (default from config)")
	return cmd
}
