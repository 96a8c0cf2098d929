// Package logger is the diagnostic channel of the module: a levelled
// log/slog logger that every data-access failure is reported through.
//
// Operations never return their errors to callers; they log them here and
// hand back a sentinel instead:
//
//	logger.Error("create user failed", "op", "create-user", "error", err)
//	// → time=... level=ERROR msg="create user failed" op=create-user error="..."
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/config"
)

var L *slog.Logger

func init() {
	L = New(os.Stderr, config.AppEnv())
	slog.SetDefault(L)
}

// New builds a logger for env: JSON at INFO in production, text at DEBUG
// everywhere else.
func New(w io.Writer, env string) *slog.Logger {
	switch env {
	case "production", "prod":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// SetOutput replaces the base logger. Tests use it to capture diagnostics.
func SetOutput(w io.Writer, env string) {
	L = New(w, env)
	slog.SetDefault(L)
}

// ctxKey is the unexported key used to store a per-request *slog.Logger.
type ctxKey struct{}

// WithCtx returns the logger stored in ctx by InjectLogger, or the base
// logger when there is none.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a *slog.Logger (pre-tagged with request_id) into ctx.
// Called by the Logger middleware.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// Debug logs at DEBUG level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
