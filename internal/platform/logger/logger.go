package logger

import (
	"log/slog"
	"os"
)

// New returns the default structured logger. Services take a *slog.Logger via
// options so callers can substitute their own handler.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
