package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TraceHeader is the HTTP header carrying the request trace ID.
const TraceHeader = "X-Trace-ID"

// TraceMiddleware attaches a trace ID to every request and logs the
// request outcome. An incoming X-Trace-ID header is honored so callers
// can correlate across services; otherwise a new ID is generated. The
// trace ID is placed on the request context and echoed back in the
// response header.
func TraceMiddleware(log *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = NewTraceID()
		}

		ctx := WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		c.Next()

		log.WithTraceID(traceID).Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
