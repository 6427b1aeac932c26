package middleware

import (
	"context"

	"github.com/fatflowers/dukabill/pkg/logctx"
	"github.com/fatflowers/dukabill/pkg/tool"
	"github.com/gin-gonic/gin"
)

const HeaderRequestID = "X-Request-ID"

// TraceMiddleware adds a trace ID to the request context.
// It reads X-Request-ID if provided by the client; otherwise generates a UUID v7.
// The trace ID is stored in both gin.Context and the request's context.Context.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderRequestID)
		if traceID == "" || len(traceID) > 128 {
			traceID = tool.GenerateUUIDV7()
		}

		c.Set(logctx.KeyTraceID, traceID)
		ctx := context.WithValue(c.Request.Context(), logctx.KeyTraceID, traceID) //nolint:staticcheck // shared with gin keys
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
