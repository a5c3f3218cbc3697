package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	loggerKey     = "logger"
	TraceIDHeader = "X-Trace-ID"
)

// RequestLogger tags every request with a trace id and logs its outcome. The
// request-scoped logger is available to handlers through Logger.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Header(TraceIDHeader, traceID)

		log := base.With("trace_id", traceID)
		c.Set(loggerKey, log)

		start := time.Now()
		c.Next()

		attrs := []any{
			"http_method", c.Request.Method,
			"http_path", c.FullPath(),
			"status_code", c.Writer.Status(),
			"bytes_written", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request finished", attrs...)
		case status >= 400:
			log.Warn("request finished", attrs...)
		default:
			log.Info("request finished", attrs...)
		}
	}
}

// Logger returns the request-scoped logger, or slog.Default outside a request.
func Logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if log, ok := v.(*slog.Logger); ok {
			return log
		}
	}
	return slog.Default()
}
