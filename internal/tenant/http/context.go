// Package http provides the tenant resolution middleware and the tenant
// administration handlers.
package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// scopeKey is a context key type for storing the resolved tenant scope.
type scopeKey struct{}

// WithScope stores a resolved tenant scope in the request context.
// Only TenantMiddleware calls this; handlers read it back with GetScope and pass
// it explicitly to every use case.
func WithScope(ctx context.Context, sc scope.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, sc)
}

// GetScope retrieves the tenant scope from the context.
// Returns the zero (unresolved) Context and false when the middleware did not run.
func GetScope(ctx context.Context) (scope.Context, bool) {
	sc, ok := ctx.Value(scopeKey{}).(scope.Context)
	return sc, ok
}

// ScopeFrom is the gin shorthand for GetScope. An absent scope is returned as the
// zero Context, which every use case rejects.
func ScopeFrom(c *gin.Context) scope.Context {
	sc, _ := GetScope(c.Request.Context())
	return sc
}
