package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"mop.org/internal/config"
)

var shared atomic.Pointer[slog.Logger]

// Logger returns the shared structured logger used across the service.
func Logger() *slog.Logger {
	if l := shared.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// NewLogger builds a logger from cfg writing to stderr, installs it as the
// process default and returns it.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	return NewLoggerTo(os.Stderr, cfg)
}

// NewLoggerTo is NewLogger with an explicit destination.
func NewLoggerTo(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text"),
	}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(handler)
	SetLogger(logger)
	return logger
}

// SetLogger replaces the shared logger and the slog default.
func SetLogger(l *slog.Logger) {
	shared.Store(l)
	slog.SetDefault(l)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
