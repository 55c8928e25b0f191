package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/tenantvault/internal/httputil"
	"github.com/allisson/tenantvault/internal/metrics"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// ScopeResolver resolves the tenant of an inbound request.
type ScopeResolver interface {
	Resolve(ctx context.Context, host, path string) (scope.Context, error)
}

// TenantMiddleware resolves the tenant from the request host and stores the
// resulting scope in the request context.
//
// Error handling:
//   - No usable routing key → 403 Forbidden (ErrTenantRequired)
//   - Unknown or inactive tenant → 403 Forbidden (ErrTenantNotFound)
//   - Admin tenant reached through a regular routing key → 403 Forbidden
//   - Lookup failures → 500 Internal Server Error
//
// All rejections share the same "access denied" body.
func TenantMiddleware(resolver ScopeResolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := resolver.Resolve(c.Request.Context(), c.Request.Host, c.Request.URL.Path)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithScope(c.Request.Context(), sc))
		c.Set(metrics.ScopeLabelKey, metrics.ScopeTenant)
		c.Next()
	}
}

// AdminGuard is the part of scope.Guard the admin middleware needs.
type AdminGuard interface {
	RequireAdmin(ctx context.Context, sc scope.Context) error
}

// AdminMiddleware rejects requests whose scope is not the platform-admin tenant.
// MUST be used after TenantMiddleware.
func AdminMiddleware(guard AdminGuard, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := guard.RequireAdmin(c.Request.Context(), ScopeFrom(c)); err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}
		c.Set(metrics.ScopeLabelKey, metrics.ScopeAdmin)
		c.Next()
	}
}
