// Package logging builds the zerolog loggers used by the review tools.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w. debug lowers the level to Debug; human switches from JSON
// lines to a console writer. The level is set on the logger itself, not globally.
func New(w io.Writer, debug bool, human bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := w
	if human {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// WithRun tags a logger with the run id and tool name.
func WithRun(l zerolog.Logger, tool, runID string) zerolog.Logger {
	return l.With().Str("tool", tool).Str("run_id", runID).Logger()
}
