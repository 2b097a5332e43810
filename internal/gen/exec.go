package gen

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/maestro/internal/constants"
	"github.com/mrz1836/maestro/internal/ctxutil"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// timeSleep wraps time.After so tests can skip real backoff waits.
var timeSleep = func(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// CommandExecutor abstracts subprocess execution so tests can substitute
// a mock. The production implementation runs the command and captures
// its output.
type CommandExecutor interface {
	// Execute runs the command and returns stdout, stderr, and any error.
	Execute(ctx context.Context, cmd *exec.Cmd) (stdout, stderr []byte, err error)
}

// DefaultExecutor runs commands using the operating system's process
// execution.
type DefaultExecutor struct{}

// Execute runs the command and captures its output.
func (e *DefaultExecutor) Execute(_ context.Context, cmd *exec.Cmd) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExecGenerator invokes an external collaborator command for subtask
// generation. The prompt is written to the command's stdin; whatever the
// command prints to stdout is returned as raw text for normalization.
type ExecGenerator struct {
	command  []string
	executor CommandExecutor
	logger   zerolog.Logger
}

// ExecOption configures an ExecGenerator.
type ExecOption func(*ExecGenerator)

// WithExecutor substitutes the command executor. Nil is ignored.
func WithExecutor(executor CommandExecutor) ExecOption {
	return func(g *ExecGenerator) {
		if executor != nil {
			g.executor = executor
		}
	}
}

// WithLogger sets the generator logger.
func WithLogger(logger zerolog.Logger) ExecOption {
	return func(g *ExecGenerator) {
		g.logger = logger
	}
}

// NewExecGenerator creates a subprocess-backed generator. The command
// slice is the program followed by its arguments and must not be empty.
func NewExecGenerator(command []string, opts ...ExecOption) (*ExecGenerator, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("%w: generation command is empty", maestroerrors.ErrValidation)
	}

	g := &ExecGenerator{
		command:  command,
		executor: &DefaultExecutor{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate runs the collaborator command with retry on transient
// failure. Context cancellation aborts immediately and is never retried.
func (g *ExecGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	prompt := buildPrompt(req)

	var lastErr error
	backoff := constants.InitialBackoff
	for attempt := 1; attempt <= constants.MaxGenerationAttempts; attempt++ {
		resp, err := g.runOnce(ctx, prompt)
		if err == nil {
			if attempt > 1 {
				g.logger.Info().
					Str("task_id", req.TaskID).
					Int("attempt", attempt).
					Msg("generation succeeded after retry")
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if attempt < constants.MaxGenerationAttempts {
			g.logger.Warn().
				Err(err).
				Str("task_id", req.TaskID).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("generation failed, will retry")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timeSleep(backoff):
				backoff *= constants.BackoffMultiplier
			}
		}
	}

	return nil, fmt.Errorf("%w: max attempts exceeded: %w", maestroerrors.ErrExternalGeneration, lastErr)
}

func (g *ExecGenerator) runOnce(ctx context.Context, prompt string) (*Response, error) {
	cmd := exec.CommandContext(ctx, g.command[0], g.command[1:]...) //nolint:gosec // command comes from operator config
	cmd.Stdin = strings.NewReader(prompt)

	stdout, stderr, err := g.executor.Execute(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s failed: %w (stderr: %s)",
			maestroerrors.ErrExternalGeneration, g.command[0], err, truncate(stderr, 512))
	}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", maestroerrors.ErrExternalGeneration, g.command[0])
	}

	return &Response{Text: string(stdout)}, nil
}

func truncate(b []byte, limit int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
