package vecstream

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with vecstream-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// WithSegment adds segment and field to the logger.
func (l *Logger) WithSegment(segment, field string) *Logger {
	return &Logger{
		Logger: l.Logger.With("segment", segment, "field", field),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogTransfer logs one native transfer call.
func (l *Logger) LogTransfer(ctx context.Context, batch, vectors int, bytes int64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "vector transfer failed",
			"batch", batch,
			"vectors", vectors,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "vector batch transferred",
			"batch", batch,
			"vectors", vectors,
			"size", humanize.IBytes(uint64(bytes)), //nolint:gosec // non-negative
			"duration", duration,
		)
	}
}

// LogStream logs the end of a stream.
func (l *Logger) LogStream(ctx context.Context, vectors, batches int, perTransfer int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "vector stream failed",
			"vectors", vectors,
			"batches", batches,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "vector stream completed",
			"vectors", vectors,
			"batches", batches,
			"vectors_per_transfer", perTransfer,
		)
	}
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, vectors int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"vectors", vectors,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index built",
			"vectors", vectors,
			"duration", duration,
		)
	}
}
