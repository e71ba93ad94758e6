// Package logging configures the process-wide structured logger.
package logging

import (
	"os"
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Log is the shared logger instance. It works at info level until
// InitFromEnv is called.
var Log = New("info")

// InitFromEnv reads the log level from POSTLENS_LOG_LEVEL and rebuilds the
// shared logger. Empty or unknown values fall back to info.
func InitFromEnv() {
	level := strings.ToLower(os.Getenv("POSTLENS_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	Log = New(level)
}

// New builds a console logger at the given level.
func New(level string) *slog.Logger {
	logLevel := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	return slog.NewWithHandlers(h)
}
