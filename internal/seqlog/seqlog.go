// Package seqlog provides the structured logger used to report the
// non-fatal diagnostics described in spec §7: missing banks/instruments,
// disabled loops, unsupported sub-events, and anti-freeze trips.
package seqlog

import (
	"fmt"
	"log/slog"
	"os"
)

var global *slog.Logger

// Init configures the package-level logger for the given level name
// ("debug", "info", "warn", "error").
func Init(level string) error {
	var lvl slog.Level

	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	global = slog.New(handler)
	slog.SetDefault(global)
	return nil
}

// Default returns the package-level logger, falling back to slog's own
// default if Init was never called.
func Default() *slog.Logger {
	if global == nil {
		return slog.Default()
	}
	return global
}

// Or returns l if non-nil, otherwise the package default. Sequencer and
// parser constructors accept an optional *slog.Logger and funnel it
// through this helper so a nil logger is always safe to log through.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Default()
}
