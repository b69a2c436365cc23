// Package logging builds the zerolog loggers every WADES subsystem logs
// through. Each logging subsystem gets its own component-tagged Logger
// (the daemon builds them for sampler, controller and query) so log lines
// can be filtered by subsystem.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how the root logger is built.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Pretty enables a human-readable console writer; false emits JSON,
	// appropriate for a daemon whose stdout/stderr is captured by a
	// supervisor.
	Pretty bool
	// Output is where log lines are written. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration used when the daemon runs
// unattended (JSON lines to stderr at info level).
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Pretty: false,
		Output: os.Stderr,
	}
}

// New builds the root logger for cfg.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "", "info":
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given subsystem name,
// e.g. "sampler", "detector", "controller", "store", "query", "probe".
func Component(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}
