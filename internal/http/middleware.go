package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	tenantHTTP "github.com/allisson/tenantvault/internal/tenant/http"
)

// CustomLoggerMiddleware logs every request through slog, tagged with the tenant
// the request resolved to. Health check endpoints log at debug level.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
			slog.String("request_id", requestid.Get(c)),
		}
		// The tenant middleware swaps c.Request, so the scope is visible after c.Next.
		if sc, ok := tenantHTTP.GetScope(c.Request.Context()); ok && sc.IsResolved() {
			attrs = append(attrs,
				slog.String("tenant_id", sc.TenantID().String()),
				slog.String("routing_key", sc.RoutingKey()),
			)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		logger.LogAttrs(c.Request.Context(), requestLogLevel(path, status), "http request", attrs...)
	}
}

func requestLogLevel(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case path == "/up" || path == "/ready" || path == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
