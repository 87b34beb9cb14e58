package audit

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"

	"mop.org/internal/auth"
	"mop.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with the request id and acting user.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	copyFields := make(map[string]any, len(fields))
	maps.Copy(copyFields, fields)

	attrs := []slog.Attr{
		slog.String("type", "audit"),
		slog.String("event", event),
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if userID := auth.ActorFromContext(ctx); userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}
	attrs = append(attrs, slog.Any("fields", copyFields))

	if ctx == nil {
		ctx = context.Background()
	}
	obs.Logger().LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}
