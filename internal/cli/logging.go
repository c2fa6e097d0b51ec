package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"trivia-quiz-service/internal/config"
)

// loadConfig reads the config file and installs the default logger from its
// log section.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, cfg.Log.Level, cfg.Log.Format)))
	return cfg, nil
}

func newLogHandler(w io.Writer, level, format string) slog.Handler {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}
