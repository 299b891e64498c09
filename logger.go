package bwtree

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with bwtree-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPID adds a page identifier field to the logger.
func (l *Logger) WithPID(pid PID) *Logger {
	return &Logger{
		Logger: l.Logger.With("pid", uint64(pid)),
	}
}

// WithLevel adds a tree-level field to the logger.
func (l *Logger) WithLevel(level int) *Logger {
	return &Logger{
		Logger: l.Logger.With("level", level),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed")
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, allPairs bool) {
	l.DebugContext(ctx, "delete completed",
		"all_pairs", allPairs,
	)
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, applied bool) {
	l.DebugContext(ctx, "update completed",
		"applied", applied,
	)
}

// LogSplit logs a structural split.
func (l *Logger) LogSplit(ctx context.Context, pid, sibling PID, level int) {
	l.DebugContext(ctx, "node split",
		"pid", uint64(pid),
		"sibling", uint64(sibling),
		"level", level,
	)
}

// LogRootGrowth logs the installation of a new root.
func (l *Logger) LogRootGrowth(ctx context.Context, root PID, height int) {
	l.InfoContext(ctx, "root grown",
		"root", uint64(root),
		"height", height,
	)
}

// LogConsolidate logs a chain consolidation.
func (l *Logger) LogConsolidate(ctx context.Context, pid PID, chainLength int) {
	l.DebugContext(ctx, "chain consolidated",
		"pid", uint64(pid),
		"chain_length", chainLength,
	)
}

// LogSweep logs a maintenance sweep.
func (l *Logger) LogSweep(ctx context.Context, consolidated int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "maintenance sweep failed",
			"consolidated", consolidated,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "maintenance sweep completed",
			"consolidated", consolidated,
		)
	}
}
