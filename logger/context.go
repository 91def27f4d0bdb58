package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// ContextWithRequestID stores the inbound request id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithUserID stores the authenticated caller for WithContext.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// WithContext adds the request id, the caller and the active trace id
// found in ctx. Without any of them l itself is returned.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	added := false
	for _, kv := range []struct {
		field string
		key   ctxKey
	}{{FieldRequestID, requestIDKey}, {FieldUserID, userIDKey}} {
		if v, ok := ctx.Value(kv.key).(string); ok && v != "" {
			zc = zc.Str(kv.field, v)
			added = true
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String())
		added = true
	}
	if !added {
		return l
	}
	return l.derive(zc.Logger())
}
