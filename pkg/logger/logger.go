// Package logger provides leveled logging for the engine.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
	Level(zerolog.InfoLevel).
	With().Timestamp().Logger()

// SetLevel sets the log level.
func SetLevel(level zerolog.Level) {
	log = log.Level(level)
}

// SetLevelFromString sets the log level from its string name.
// Unknown names fall back to info.
func SetLevelFromString(level string) {
	switch strings.ToLower(level) {
	case "debug":
		SetLevel(zerolog.DebugLevel)
	case "info":
		SetLevel(zerolog.InfoLevel)
	case "warn", "warning":
		SetLevel(zerolog.WarnLevel)
	case "error":
		SetLevel(zerolog.ErrorLevel)
	default:
		SetLevel(zerolog.InfoLevel)
	}
}

// EnableDebug enables debug logging.
func EnableDebug() {
	SetLevel(zerolog.DebugLevel)
}

// IsDebugEnabled reports whether debug logging is enabled.
func IsDebugEnabled() bool {
	return log.GetLevel() <= zerolog.DebugLevel
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	log.Debug().Msgf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	log.Info().Msgf(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	log.Warn().Msgf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	log.Error().Msgf(format, args...)
}

// With returns the underlying zerolog logger for callers that need
// structured fields.
func With() zerolog.Context {
	return log.With()
}
