// Package ieqllog provides the structured logger shared by the engine,
// loader, and CLI.
package ieqllog

import (
	"log/slog"
	"os"
)

// Level controls the minimum severity a Logger emits.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger wraps slog.Logger with a component tag attached to every record.
type Logger struct {
	*slog.Logger
	component string
}

// New creates a structured logger for one engine component.
func New(component string, level Level) *Logger {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})

	return &Logger{
		Logger:    slog.New(handler),
		component: component,
	}
}

// WithComponent returns a logger scoped to a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"component", l.component}, args...)...)
}

// LogEngineStart records the parameters a scan engine was constructed with.
func (l *Logger) LogEngineStart(workers int, batchSize int) {
	l.Info("scan engine starting",
		"workers", workers,
		"batch_size", batchSize,
		"pid", os.Getpid())
}

// LogDocumentSkipped records a per-document IoError or DecodeError. These
// are isolated failures per the error handling policy and never abort
// the batch they belong to.
func (l *Logger) LogDocumentSkipped(path string, err error) {
	l.Warn("document skipped",
		"path", path,
		"error", err.Error())
}

// LogQueryRejected records a query (or query file) that was skipped
// because it failed to load, validate, or compile; the rest of the run
// continues without it.
func (l *Logger) LogQueryRejected(queryID string, err error) {
	l.Error("query rejected during compilation",
		"query_id", queryID,
		"error", err.Error())
}

// LogWorkerPanic records a recovered worker panic and that the worker's
// slot is being restarted rather than taking down the engine.
func (l *Logger) LogWorkerPanic(workerID int, recovered any) {
	l.Error("worker panicked, restarting slot",
		"worker_id", workerID,
		"panic", recovered)
}
