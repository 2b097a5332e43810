package config

import (
	"github.com/spf13/viper"

	"github.com/mrz1836/maestro/internal/constants"
)

// setDefaults registers built-in defaults on the viper instance.
// Keys mirror the mapstructure tags in config.go.
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.lock_timeout", constants.DefaultLockTimeout)

	v.SetDefault("expansion.threshold", constants.DefaultExpandThreshold)
	v.SetDefault("expansion.default_subtasks", constants.DefaultSubtaskCount)

	v.SetDefault("generation.timeout", constants.DefaultGenerationTimeout)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Default returns the built-in configuration without consulting files
// or the environment.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			LockTimeout: constants.DefaultLockTimeout,
		},
		Expansion: ExpansionConfig{
			Threshold:       constants.DefaultExpandThreshold,
			DefaultSubtasks: constants.DefaultSubtaskCount,
		},
		Generation: GenerationConfig{
			Timeout: constants.DefaultGenerationTimeout,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
