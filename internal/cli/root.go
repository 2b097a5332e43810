// Package cli provides the command-line interface for maestro. Every
// command is a thin wrapper over the operation registry: it assembles
// the parameter object, dispatches the named operation, and prints the
// result (or the wire error payload) as JSON.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/maestro/internal/config"
	"github.com/mrz1836/maestro/internal/constants"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
	"github.com/mrz1836/maestro/internal/expand"
	"github.com/mrz1836/maestro/internal/gen"
	"github.com/mrz1836/maestro/internal/logging"
	"github.com/mrz1836/maestro/internal/ops"
	"github.com/mrz1836/maestro/internal/task"
	"github.com/mrz1836/maestro/internal/workflow"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		return "dev"
	}
	return fmt.Sprintf("%s (commit %s, built %s)", info.Version, info.Commit, info.Date)
}

// app carries the wired engine for the lifetime of one invocation.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
	service   *ops.Service
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	graphPath  string
	logLevel   string
}

// Execute runs the maestro CLI. The returned error is already printed;
// callers only translate it into the process exit code.
func Execute(ctx context.Context) error {
	return ExecuteWithInfo(ctx, BuildInfo{})
}

// ExecuteWithInfo runs the CLI with build metadata for --version.
func ExecuteWithInfo(ctx context.Context, info BuildInfo) error {
	a := &app{}
	cmd := newRootCmd(a, info)
	defer a.close()

	if err := cmd.ExecuteContext(ctx); err != nil {
		return err
	}
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

// newRootCmd creates the root command. Engine wiring happens in
// PersistentPreRunE so that --help and --version never touch storage.
func newRootCmd(a *app, info BuildInfo) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "maestro",
		Short: "Maestro - task dependency and workflow orchestration engine",
		Long: `Maestro manages a persistent graph of interdependent tasks: dependency
edges with cycle rejection, an automatic blocked/pending lifecycle,
subtask expansion for over-sized tasks, and multi-phase workflows with
concurrent step dispatch.`,
		Version:       formatVersion(info),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Help and version subcommands need no engine.
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.setup(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flags.graphPath, "graph", "", "graph document path (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newTaskCmd(a),
		newDepCmd(a),
		newWorkflowCmd(a),
		newOpCmd(a),
	)

	return cmd
}

// setup loads configuration and wires the engine stack.
func (a *app) setup(ctx context.Context, flags *globalFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.graphPath != "" {
		cfg.Storage.Path = flags.graphPath
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	a.cfg = cfg

	logFile, err := resolveLogFile(cfg)
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logging.New(logging.Options{
		Level: cfg.Logging.Level,
		File:  logFile,
	})

	store, err := task.NewStore(ctx, task.Options{
		Path:        cfg.Storage.Path,
		LockTimeout: cfg.Storage.LockTimeout,
		Logger:      a.logger.With().Str("component", "store").Logger(),
	})
	if err != nil {
		return err
	}

	var generator gen.Generator
	if len(cfg.Generation.Command) > 0 {
		generator, err = gen.NewExecGenerator(cfg.Generation.Command,
			gen.WithLogger(a.logger.With().Str("component", "gen").Logger()))
		if err != nil {
			return err
		}
	}

	advisor := expand.NewAdvisor(expand.Options{
		Store:        store,
		Generator:    generator,
		Threshold:    cfg.Expansion.Threshold,
		DefaultCount: cfg.Expansion.DefaultSubtasks,
		Timeout:      cfg.Generation.Timeout,
		Logger:       a.logger.With().Str("component", "advisor").Logger(),
	})

	home, err := maestroHome()
	if err != nil {
		return err
	}
	defs := workflow.NewRegistry()
	if err := defs.LoadDir(filepath.Join(home, constants.DefinitionsDir)); err != nil {
		return err
	}

	engine, err := workflow.NewEngine(workflow.Options{
		Registry: defs,
		Dir:      filepath.Join(home, "instances"),
		Logger:   a.logger.With().Str("component", "workflow").Logger(),
	})
	if err != nil {
		return err
	}

	a.service = ops.NewService(store, advisor, engine, defs, a.logger.With().Str("component", "ops").Logger())
	return nil
}

// maestroHome resolves the maestro home directory.
func maestroHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", maestroerrors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, constants.MaestroHome), nil
}

// resolveLogFile maps the configured log file to a concrete path.
// Empty means the default under the maestro home; "-" disables file
// logging.
func resolveLogFile(cfg *config.Config) (string, error) {
	switch cfg.Logging.File {
	case "-":
		return "", nil
	case "":
		home, err := maestroHome()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, constants.LogsDir, constants.LogFileName), nil
	default:
		return cfg.Logging.File, nil
	}
}
