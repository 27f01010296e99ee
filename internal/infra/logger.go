package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging contract passed between packages.
type Logger = zerolog.Logger

// NewLogger constructs the service logger: JSON on stdout, or a console
// writer with debug level in development.
func NewLogger(appEnv string) zerolog.Logger {
	if appEnv == "development" {
		return newConsoleLogger(os.Stdout, zerolog.DebugLevel, time.RFC3339)
	}
	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// NewCLILogger writes human-readable lines to w, typically stderr so they
// do not interleave with command output. Only warnings pass unless verbose.
func NewCLILogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	return newConsoleLogger(w, level, time.Kitchen)
}

func newConsoleLogger(w io.Writer, level zerolog.Level, timeFormat string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
