// Package observability carries per-call log fields through a context so
// every line logged while handling a snap request names the request.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/snapbridge/internal/logfields"
)

// LogContext holds the request-scoped fields attached to every log line.
type LogContext struct {
	RequestID string
	SnapID    string
	Origin    string
	Method    string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

func with(ctx context.Context, set func(*LogContext)) context.Context {
	lc := GetContext(ctx)
	set(&lc)
	return context.WithValue(ctx, logContextKey, lc)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.RequestID = id })
}

// WithSnapID adds the target snap ID to the context.
func WithSnapID(ctx context.Context, snapID string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.SnapID = snapID })
}

// WithOrigin adds the calling origin to the context.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.Origin = origin })
}

// WithMethod adds the RPC method to the context.
func WithMethod(ctx context.Context, method string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.Method = method })
}

// GetContext returns the log fields stored on ctx.
func GetContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	lc, _ := ctx.Value(logContextKey).(LogContext)
	return lc
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := GetContext(ctx)
	attrs := make([]slog.Attr, 0, 4)
	if lc.RequestID != "" {
		attrs = append(attrs, logfields.RequestID(lc.RequestID))
	}
	if lc.SnapID != "" {
		attrs = append(attrs, logfields.SnapID(lc.SnapID))
	}
	if lc.Origin != "" {
		attrs = append(attrs, logfields.Origin(lc.Origin))
	}
	if lc.Method != "" {
		attrs = append(attrs, logfields.Method(lc.Method))
	}
	return attrs
}

func logWithContext(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	slog.LogAttrs(ctx, level, msg, append(getLogAttrs(ctx), attrs...)...)
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelInfo, msg, attrs)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelWarn, msg, attrs)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelError, msg, attrs)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logWithContext(ctx, slog.LevelDebug, msg, attrs)
}
