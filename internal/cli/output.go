package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// run dispatches an operation and prints the outcome. Successful
// results go to stdout; error payloads are printed to stdout too (they
// are part of the wire contract) and reported through the exit code.
func (a *app) run(cmd *cobra.Command, op string, params map[string]any) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = data
	}

	result, payload := a.service.Dispatch(cmd.Context(), op, raw)
	if payload != nil {
		if err := printJSON(cmd.OutOrStdout(), payload); err != nil {
			return err
		}
		return errors.New(payload.Message)
	}

	return printJSON(cmd.OutOrStdout(), result)
}
