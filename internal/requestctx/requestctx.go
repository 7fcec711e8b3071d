// Package requestctx carries per-request identifiers below the transport
// layer so domain code can log against the request that triggered it.
package requestctx

import (
	"context"
	"log/slog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorNPKKey  ctxKey = "actor_npk"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithActorNPK(ctx context.Context, npk string) context.Context {
	return context.WithValue(ctx, actorNPKKey, npk)
}

func GetActorNPK(ctx context.Context) string {
	if value, ok := ctx.Value(actorNPKKey).(string); ok {
		return value
	}
	return ""
}

// Logger returns the default logger annotated with whatever request id and
// actor the context carries.
func Logger(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := GetRequestID(ctx); id != "" {
		logger = logger.With("requestId", id)
	}
	if npk := GetActorNPK(ctx); npk != "" {
		logger = logger.With("actor", npk)
	}
	return logger
}
