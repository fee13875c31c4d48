// Package logutil builds the structured loggers handed to each component.
package logutil

import (
	"io"
	"log/slog"
)

// EnvDebug enables debug logging when set to a true value.
const EnvDebug = "LONGOVERDUE_DEBUG"

// New returns a text logger writing to w. Without debug only warnings and
// errors are written, so normal runs keep stderr quiet.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. Used in tests and as the
// fallback for components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Component scopes a logger to a named component. A nil logger yields Discard.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("component", name)
}
