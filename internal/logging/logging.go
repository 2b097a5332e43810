// Package logging provides zerolog setup for the maestro engine.
//
// Loggers write structured JSON to the configured console writer and,
// when a log file is configured, to a size-rotated file as well. Engine
// components receive loggers by injection; nothing in this package is a
// hidden global.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the engine log file.
const (
	maxSizeMB  = 10 // megabytes per file before rotation
	maxBackups = 3
	maxAgeDays = 28
)

// Options configures logger construction.
type Options struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	// Unrecognized values fall back to info.
	Level string

	// File is the rotated log file path. Empty disables file output.
	File string

	// Console is the console writer. Defaults to os.Stderr when nil.
	Console io.Writer
}

// New builds a zerolog.Logger from the options. The returned closer
// flushes and closes the rotated file writer; it is a no-op closer when
// no file is configured.
func New(opts Options) (zerolog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writer := console
	closer := io.Closer(nopCloser{})
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		writer = zerolog.MultiLevelWriter(console, lj)
		closer = lj
	}

	logger := zerolog.New(writer).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()

	return logger, closer
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Nop returns a disabled logger for tests and optional dependencies.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
