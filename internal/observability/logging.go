// Package observability carries the ambient stack cmd/server wires up
// before anything else: structured logging, OpenTelemetry metrics/tracing,
// and a redaction helper for log payloads that might carry provider
// secrets. Grounded on the donor's internal/observability package.
package observability

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures zerolog as both the package-global logger and the
// sink for the stdlib "log" package, then returns the configured logger so
// callers can thread it into constructors that take a zerolog.Logger
// explicitly (every component in this module does). If logPath is
// non-empty, logs go to that file instead of stdout; a file that can't be
// opened falls back to stdout with a warning on stderr.
func InitLogger(logPath, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stdout
	if logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			w = f
		} else {
			fmt.Fprintf(os.Stderr, "observability: failed to open log file %q: %v\n", logPath, err)
		}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	logger = logger.Level(parseLevel(level))

	log.Logger = logger
	zerolog.SetGlobalLevel(logger.GetLevel())
	stdlog.SetFlags(0)
	stdlog.SetOutput(logger)

	return logger
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
