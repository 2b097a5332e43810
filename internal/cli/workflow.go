package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/maestro/internal/ops"
)

// newWorkflowCmd builds the workflow command group.
func newWorkflowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wf"},
		Short:   "Run multi-phase workflows",
	}

	cmd.AddCommand(
		newWorkflowStartCmd(a),
		newWorkflowGetCmd(a),
		newWorkflowListCmd(a),
		newWorkflowResumeCmd(a),
		newWorkflowCancelCmd(a),
		newWorkflowProgressCmd(a),
		newWorkflowStepsCmd(a),
		newWorkflowStepCmd(a),
		newWorkflowDefinitionsCmd(a),
	)

	return cmd
}

func newWorkflowStartCmd(a *app) *cobra.Command {
	var contextPairs map[string]string

	cmd := &cobra.Command{
		Use:   "start <definition>",
		Short: "Start a workflow from a named definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpWorkflowStart, map[string]any{
				"definition": args[0],
				"context":    contextPairs,
			})
		},
	}

	cmd.Flags().StringToStringVar(&contextPairs, "context", nil, "context key=value pairs")
	return cmd
}

func newWorkflowGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a workflow instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpWorkflowGet, map[string]any{"id": args[0]})
		},
	}
}

func newWorkflowListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, ops.OpWorkflowList, nil)
		},
	}
}

func newWorkflowResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a failed workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpWorkflowResume, map[string]any{"id": args[0]})
		},
	}
}

func newWorkflowCancelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpWorkflowCancel, map[string]any{"id": args[0]})
		},
	}
}

func newWorkflowProgressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id>",
		Short: "Show workflow progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpWorkflowProgress, map[string]any{"id": args[0]})
		},
	}
}

func newWorkflowStepsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "steps <id>",
		Short: "List dispatchable steps of the active phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpWorkflowDispatchable, map[string]any{"id": args[0]})
		},
	}
}

// newWorkflowStepCmd groups the step report commands used by external
// step executors.
func newWorkflowStepCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Report step progress",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "begin <id> <step-id>",
			Short: "Mark a step dispatched",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, ops.OpWorkflowStepBegin, map[string]any{
					"id": args[0], "step_id": args[1],
				})
			},
		},
		&cobra.Command{
			Use:   "complete <id> <step-id>",
			Short: "Mark a step completed",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, ops.OpWorkflowStepComplete, map[string]any{
					"id": args[0], "step_id": args[1],
				})
			},
		},
	)

	failCmd := &cobra.Command{
		Use:   "fail <id> <step-id>",
		Short: "Mark a step failed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")
			return a.run(cmd, ops.OpWorkflowStepFail, map[string]any{
				"id": args[0], "step_id": args[1], "error": message,
			})
		},
	}
	failCmd.Flags().String("message", "", "failure message")
	cmd.AddCommand(failCmd)

	return cmd
}

func newWorkflowDefinitionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "definitions",
		Short: "List registered workflow definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, ops.OpWorkflowDefinitions, nil)
		},
	}
}
