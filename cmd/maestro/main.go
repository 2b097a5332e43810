// Package main provides the entry point for the maestro CLI.
package main

import (
	"context"
	"os"

	"github.com/mrz1836/maestro/internal/cli"
	"github.com/mrz1836/maestro/internal/signal"
)

// Build metadata injected via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	h := signal.NewHandler(context.Background())
	defer h.Stop()

	info := cli.BuildInfo{Version: version, Commit: commit, Date: date}
	if err := cli.ExecuteWithInfo(h.Context(), info); err != nil {
		os.Exit(1)
	}
}
