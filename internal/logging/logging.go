// Package logging wires the structured logger used by the ingestion
// pipeline. The composition root's own entrypoint still logs through the
// standard library for startup/fatal messages, matching the teacher's
// daemon style; this package covers the high-volume, field-heavy logging
// inside adapters, the job runner, and the enrichment clients.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger from level/format strings. Unknown levels
// fall back to info; format "console" produces human-readable output for
// local development, anything else emits JSON lines suitable for a log
// aggregator.
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if strings.EqualFold(format, "console") {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		out = zerolog.New(writer).With().Timestamp().Logger()
	} else {
		out = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return out.Level(lvl)
}
