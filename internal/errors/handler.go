package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/donation-bot/pkg/logger"
	"github.com/Proton-105/donation-bot/pkg/metrics"
)

const codeUnknown = "unknown"

// Handler turns a failed update into a log entry, a metric, an optional Sentry event
// and the localized reply shown to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Reply is the localized answer for a failed update.
type Reply struct {
	MessageKey string
	Args       []any
	Retryable  bool
}

// Handle reports err and returns the reply. Errors outside the AppError taxonomy are
// treated as high severity and answered with the generic message.
func (h *Handler) Handle(ctx context.Context, err error) (Reply, bool) {
	if err == nil {
		return Reply{}, false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	code, severity := codeUnknown, SeverityHigh
	reply := Reply{MessageKey: MsgGeneric}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		code, severity = appErr.Code, appErr.Severity
		reply = Reply{MessageKey: appErr.MessageKey, Args: appErr.Args, Retryable: appErr.Retryable}
		if reply.MessageKey == "" {
			reply.MessageKey = MsgGeneric
		}
	}

	level := slog.LevelError
	if severity == SeverityLow {
		level = slog.LevelWarn
	}
	attrs := []any{
		slog.String("code", code),
		slog.String("severity", string(severity)),
		slog.Bool("retryable", reply.Retryable),
		slog.Any("error", err),
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	h.log.Log(ctx, level, "update failed", attrs...)
	metrics.RecordError(code, string(severity))

	if h.sentryEnabled && (severity == SeverityHigh || severity == SeverityCritical) {
		capture(ctx, err, code, severity)
	}

	return reply, true
}

// capture sends err through the hub bound to ctx, or the global hub.
func capture(ctx context.Context, err error, code string, severity Severity) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", code)
		scope.SetTag("severity", string(severity))
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		hub.CaptureException(err)
	})
}
