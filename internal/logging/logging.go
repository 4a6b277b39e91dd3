// Package logging builds the process-wide structured logger. Library packages
// receive a *slog.Logger through their options and never construct handlers
// themselves.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a text-handler logger writing to dest at the given level and
// installs it as the slog default. Level accepts debug/info/warn/error,
// case-insensitive; anything else means info.
func New(level string, dest io.Writer) *slog.Logger {
	if dest == nil {
		dest = os.Stderr
	}

	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(dest, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}
