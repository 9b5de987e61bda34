package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// NewLogger returns a structured logger tagged with the component name.
// PRED_LOG_LEVEL selects the level (default info); PRED_LOG_FORMAT=console
// switches from JSON to human-readable output for local runs.
func NewLogger(component string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if os.Getenv("PRED_LOG_FORMAT") == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	}

	level := zerolog.InfoLevel
	if raw := os.Getenv("PRED_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
