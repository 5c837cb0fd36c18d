// Package logging builds the zerolog loggers used across Laminark's two
// runtime shapes: the long-lived RPC process and the short-lived hook
// process. Both write structured JSON to stderr only — stdout is reserved
// for the host protocol (see internal/capture).
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// DebugEnabled reports whether LAMINARK_DEBUG requests verbose logging.
func DebugEnabled() bool {
	switch os.Getenv("LAMINARK_DEBUG") {
	case "1", "true", "TRUE", "True":
		return true
	default:
		return false
	}
}

// New builds the RPC process logger: info level by default, debug when
// LAMINARK_DEBUG is set.
func New(component string) zerolog.Logger {
	return newWithWriter(os.Stderr, component, DebugEnabled())
}

// NewQuiet builds the hook process logger. The hook must never risk
// surprising host stdout, and under normal operation it has nothing
// interesting to say, so it defaults to warn level even when
// LAMINARK_DEBUG is unset elsewhere in the RPC process's config — the
// two processes size their own verbosity independently.
func NewQuiet(component string) zerolog.Logger {
	level := zerolog.WarnLevel
	if DebugEnabled() {
		level = zerolog.DebugLevel
	}
	return build(os.Stderr, component, level)
}

func newWithWriter(w io.Writer, component string, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return build(w, component, level)
}

func build(w io.Writer, component string, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
