// Package logger configures the process-wide slog logger and derives
// request-scoped loggers from a context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5/middleware"
)

type ContextKey string

const (
	// UserEmailKey carries the authenticated user's email.
	UserEmailKey ContextKey = "user_email"
	// ReviewIDKey carries the contract review being worked on.
	ReviewIDKey ContextKey = "review_id"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Init installs the default slog logger writing to stdout.
func Init(cfg *Config) {
	slog.SetDefault(New(cfg, os.Stdout))
}

// New builds a logger for cfg writing to w.
func New(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// FromContext returns the default logger enriched with request_id, user_email
// and review_id when ctx carries them.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()

	if id := middleware.GetReqID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if email, ok := ctx.Value(UserEmailKey).(string); ok && email != "" {
		l = l.With("user_email", email)
	}
	if id, ok := ctx.Value(ReviewIDKey).(string); ok && id != "" {
		l = l.With("review_id", id)
	}
	return l
}

// WithReviewID tags ctx with the review id for later log lines.
func WithReviewID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ReviewIDKey, id)
}

func Info(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}
