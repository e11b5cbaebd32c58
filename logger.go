package recgo

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/recgo/pipeline"
)

// Logger wraps slog.Logger with pipeline-specific context.
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
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithPhase adds a phase field to the logger.
func (l *Logger) WithPhase(p pipeline.Phase) *Logger {
	return &Logger{Logger: l.Logger.With("phase", p.String())}
}

// LogPhaseSkip logs that a completed phase is being skipped on resume.
func (l *Logger) LogPhaseSkip(ctx context.Context, p pipeline.Phase, records uint64) {
	l.InfoContext(ctx, "phase already complete, skipping",
		"phase", p.String(),
		"records", records,
	)
}

// LogPhaseComplete logs a finished phase.
func (l *Logger) LogPhaseComplete(ctx context.Context, p pipeline.Phase, records uint64) {
	l.InfoContext(ctx, "phase complete",
		"phase", p.String(),
		"records", records,
	)
}

// LogPhaseFailed logs a failed phase before the run aborts.
func (l *Logger) LogPhaseFailed(ctx context.Context, p pipeline.Phase, err error) {
	l.ErrorContext(ctx, "phase failed",
		"phase", p.String(),
		"error", err,
	)
}
