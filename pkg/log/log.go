package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	defaultLogLevel slog.LevelVar
	defaultLogger   atomic.Pointer[slog.Logger]
)

func init() {
	defaultLogLevel.Set(slog.LevelInfo)
	SetOutput(os.Stdout)
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger from the context. If no logger is found, it returns the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger.Load()
}

// With returns a new context with the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// SetDefaultLogLevel changes the level of the default logger.
func SetDefaultLogLevel(level slog.Level) {
	defaultLogLevel.Set(level)
}

// SetOutput replaces the default logger with a JSON logger writing to w and
// returns it. The level stays controlled by SetDefaultLogLevel.
func SetOutput(w io.Writer) *slog.Logger {
	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     &defaultLogLevel,
	}))
	defaultLogger.Store(l)
	return l
}
