package config

import (
	"fmt"

	"github.com/mrz1836/maestro/internal/constants"
	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// Validate checks a loaded configuration for out-of-range values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", maestroerrors.ErrValidation)
	}

	if cfg.Storage.LockTimeout <= 0 {
		return fmt.Errorf("%w: storage.lock_timeout must be positive", maestroerrors.ErrValidation)
	}

	if cfg.Expansion.Threshold < constants.MinEffort || cfg.Expansion.Threshold > constants.MaxEffort {
		return fmt.Errorf("%w: expansion.threshold %d outside [%d, %d]",
			maestroerrors.ErrValidation, cfg.Expansion.Threshold, constants.MinEffort, constants.MaxEffort)
	}
	if cfg.Expansion.DefaultSubtasks < 1 {
		return fmt.Errorf("%w: expansion.default_subtasks must be at least 1", maestroerrors.ErrValidation)
	}

	if cfg.Generation.Timeout <= 0 {
		return fmt.Errorf("%w: generation.timeout must be positive", maestroerrors.ErrValidation)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("%w: unknown logging.level %q", maestroerrors.ErrValidation, cfg.Logging.Level)
	}

	return nil
}
