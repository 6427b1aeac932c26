package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys shared with the gin middleware. They are plain strings so that
// gin.Context.Value resolves them from c.Keys.
const (
	KeyLogger  = "logger"
	KeyTraceID = "traceID"
	KeyUserID  = "user_id"
	KeyAdminID = "admin_id"
)

// FromGin returns a request-scoped logger from gin.Context if present,
// otherwise returns the provided base logger.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get(KeyLogger); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns a logger from context if set, otherwise attempts to enrich
// base with trace_id/user_id/admin_id from context values.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value(KeyLogger).(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	var fields []interface{}
	for _, kv := range [][2]string{{KeyTraceID, "trace_id"}, {KeyUserID, "user_id"}, {KeyAdminID, "admin_id"}} {
		if v, ok := ctx.Value(kv[0]).(string); ok && v != "" {
			fields = append(fields, kv[1], v)
		}
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// WithLogger stores lg on ctx for code running outside gin handlers (sweeper, CLI).
func WithLogger(ctx context.Context, lg *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, KeyLogger, lg) //nolint:staticcheck // string keys are shared with gin
}

// Detach returns a context that keeps the request logger but not the request's
// cancellation, for work that outlives the request.
func Detach(ctx context.Context, base *zap.SugaredLogger) context.Context {
	return WithLogger(context.WithoutCancel(ctx), FromCtx(ctx, base))
}
