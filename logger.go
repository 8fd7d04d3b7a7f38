package histogo

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/histogo/core"
)

// Logger is a thin wrapper over slog.Logger that pins down the field names
// the library logs with, so operators can filter on session, name, and
// subset without chasing free-form messages.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps handler. A nil handler logs text to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger logs human-readable lines to stderr at the given level.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger logs one JSON object per line to stderr at the given level.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithSession tags every record with the session ID.
func (l *Logger) WithSession(id string) *Logger { return l.with("session", id) }

// WithSubset tags every record with a payload subset.
func (l *Logger) WithSubset(subset core.Subset) *Logger {
	return l.with("subset", subset.String())
}

// LogDrop records a dropped sample. It sits on the recording hot path, so it
// only ever emits at debug level.
func (l *Logger) LogDrop(ctx context.Context, dropped uint64) {
	l.DebugContext(ctx, "sample dropped, op buffer full", "dropped_total", dropped)
}

// LogPayload records the outcome of a payload render.
func (l *Logger) LogPayload(ctx context.Context, subset core.Subset, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "payload failed", "subset", subset.String(), "error", err)
		return
	}
	l.DebugContext(ctx, "payload rendered", "subset", subset.String(), "bytes", size)
}

// LogUpload records the outcome of a payload upload.
func (l *Logger) LogUpload(ctx context.Context, object string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upload failed", "object", object, "error", err)
		return
	}
	l.InfoContext(ctx, "payload uploaded", "object", object, "bytes", size)
}

// LogSnapshotSave records the outcome of a snapshot save.
func (l *Logger) LogSnapshotSave(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot save failed", "path", path, "error", err)
		return
	}
	l.InfoContext(ctx, "snapshot saved", "path", path)
}

// LogSnapshotRestore records the outcome of a snapshot restore.
func (l *Logger) LogSnapshotRestore(ctx context.Context, path string, applied int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot restore failed", "path", path, "error", err)
		return
	}
	l.InfoContext(ctx, "snapshot restored", "path", path, "states_applied", applied)
}
