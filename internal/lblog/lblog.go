// Package lblog provides the structured logger that lb-server builds at
// startup and passes to the ingress handler and the attempt journal. It
// wraps slog.Logger so every call site depends on this
// package's encoding decision rather than on log/slog directly; there is
// no redaction layer since the dispatcher never logs request bodies or
// credentials.
package lblog

import (
	"io"
	"log/slog"
	"os"
)

// Config controls the logger's level, output, and encoding.
type Config struct {
	Level      slog.Level
	Output     io.Writer
	AddSource  bool
	JSONFormat bool
}

// Logger wraps slog.Logger so call sites depend on this package rather
// than on log/slog directly, keeping the encoding decision centralised.
type Logger struct {
	logger *slog.Logger
}

// New creates a Logger from cfg. A nil Output defaults to stdout.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.JSONFormat {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return &Logger{logger: slog.New(handler)}
}

// With returns a logger with additional fields attached to every
// subsequent record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Slog returns the underlying slog.Logger for call sites that need it
// directly (e.g. passing into a library that accepts *slog.Logger).
func (l *Logger) Slog() *slog.Logger { return l.logger }
