package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/maestro/internal/ops"
)

// newDepCmd builds the dependency edge command group.
func newDepCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage dependency edges",
	}

	cmd.AddCommand(
		newDepAddCmd(a),
		newDepRemoveCmd(a),
		newDepValidateCmd(a),
	)

	return cmd
}

func newDepAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <prerequisite> <dependent>",
		Short: "Make the dependent task require the prerequisite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpDepAdd, map[string]any{
				"from": args[0],
				"to":   args[1],
			})
		},
	}
}

func newDepRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <prerequisite> <dependent>",
		Short: "Remove a dependency edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, ops.OpDepRemove, map[string]any{
				"from": args[0],
				"to":   args[1],
			})
		},
	}
}

func newDepValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the whole graph against its invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, ops.OpDepValidate, nil)
		},
	}
}
