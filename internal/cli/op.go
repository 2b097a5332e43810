package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// newOpCmd builds the raw operation dispatch command, the generic
// entry point for embedding hosts that drive maestro as a subprocess.
func newOpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "op <name> [params-json]",
		Short: "Dispatch a named operation with raw JSON parameters",
		Long: `Dispatch any registered operation by name. The optional second
argument is the JSON parameter object. The result (or the error
payload) is printed as JSON, making this command a stable wire surface
for external tooling.

Run "maestro op list" to see the registered operation names.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "list" {
				return printJSON(cmd.OutOrStdout(), a.service.Registry().Names())
			}

			var params json.RawMessage
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("parameters are not valid JSON: %s", args[1])
				}
				params = json.RawMessage(args[1])
			}

			result, payload := a.service.Dispatch(cmd.Context(), args[0], params)
			if payload != nil {
				if err := printJSON(cmd.OutOrStdout(), payload); err != nil {
					return err
				}
				return errors.New(payload.Message)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	return cmd
}
