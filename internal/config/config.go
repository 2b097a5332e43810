// Package config provides configuration loading and validation for
// maestro. Configuration merges built-in defaults, an optional YAML
// config file, and MAESTRO_* environment variables, in that order of
// increasing precedence.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	// Storage configures graph document persistence.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Expansion configures the complexity/expansion advisor.
	Expansion ExpansionConfig `yaml:"expansion" mapstructure:"expansion"`

	// Generation configures calls to the external generation collaborator.
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`

	// Logging configures engine logging.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// StorageConfig configures the graph document store.
type StorageConfig struct {
	// Path is the graph document location. Empty resolves to
	// ~/.maestro/tasks.json.
	Path string `yaml:"path" mapstructure:"path"`

	// LockTimeout bounds acquisition of the document file lock.
	LockTimeout time.Duration `yaml:"lock_timeout" mapstructure:"lock_timeout"`
}

// ExpansionConfig configures subtask expansion.
type ExpansionConfig struct {
	// Threshold is the effort score at or above which a task is
	// considered over-sized and eligible for expansion.
	Threshold int `yaml:"threshold" mapstructure:"threshold"`

	// DefaultSubtasks is the subtask count used when the caller does not
	// request a specific number.
	DefaultSubtasks int `yaml:"default_subtasks" mapstructure:"default_subtasks"`
}

// GenerationConfig configures the external generation collaborator.
type GenerationConfig struct {
	// Command is the collaborator command line (program plus arguments).
	// The generation prompt is written to its stdin and structured
	// subtask proposals are read from its stdout. Empty disables the
	// collaborator; expansion then uses the fallback catalogue only.
	Command []string `yaml:"command" mapstructure:"command"`

	// Timeout bounds a single collaborator call; after it expires the
	// deterministic fallback catalogue is used.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LoggingConfig configures engine logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// File is the rotated log file path. Empty resolves to
	// ~/.maestro/logs/maestro.log; "-" disables file logging.
	File string `yaml:"file" mapstructure:"file"`
}
