package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// createCORSMiddleware builds the CORS middleware, or returns nil when CORS is off.
//
// Browser clients live on tenant subdomains, so with no explicit origin list the
// middleware admits https://*.<tenantBaseDomain>. Origins are matched before the
// tenant middleware runs; an allowed origin grants no tenant access by itself.
func createCORSMiddleware(enabled bool, allowOriginsStr, tenantBaseDomain string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOriginsStr, logger)
	if len(origins) == 0 {
		if base := strings.Trim(tenantBaseDomain, "."); base != "" {
			origins = []string{"https://*." + base}
		}
	}
	if len(origins) == 0 {
		logger.Warn("CORS enabled but no origins configured, CORS will not be applied")
		return nil
	}

	logger.Info("CORS enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowWildcard:    hasWildcard(origins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// parseOrigins splits a comma-separated origin list. Entries without an http(s)
// scheme are dropped: cors.New panics on them.
func parseOrigins(originsStr string, logger *slog.Logger) []string {
	if originsStr == "" {
		return nil
	}

	parts := strings.Split(originsStr, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimRight(strings.TrimSpace(part), "/")
		if origin == "" {
			continue
		}
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://") {
			logger.Warn("ignoring CORS origin without scheme", slog.String("origin", origin))
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

func hasWildcard(origins []string) bool {
	for _, origin := range origins {
		if strings.Contains(origin, "*") {
			return true
		}
	}
	return false
}
