// Package scopetest builds resolved tenant contexts for tests of packages that
// consume scope.Context. Contexts still go through a real Resolver.
package scopetest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tenantvault/internal/metrics"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

type staticLookup struct {
	tenant *tenantDomain.Tenant
}

func (s staticLookup) FindByRoutingKey(_ context.Context, routingKey string) (*tenantDomain.Tenant, error) {
	if s.tenant.RoutingKey != routingKey {
		return nil, tenantDomain.ErrTenantRecordNotFound
	}
	return s.tenant, nil
}

func (s staticLookup) FindByID(_ context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	if s.tenant.ID != tenantID {
		return nil, tenantDomain.ErrTenantRecordNotFound
	}
	return s.tenant, nil
}

// NewTenant returns an active regular tenant.
func NewTenant(routingKey string) *tenantDomain.Tenant {
	now := time.Now().UTC()
	return &tenantDomain.Tenant{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       routingKey,
		RoutingKey: routingKey,
		Plan:       tenantDomain.PlanFree,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewAdminTenant returns the active platform-admin tenant.
func NewAdminTenant() *tenantDomain.Tenant {
	tenant := NewTenant(tenantDomain.AdminRoutingKey)
	tenant.IsAdmin = true
	tenant.Plan = tenantDomain.PlanEnterprise
	return tenant
}

// Resolve returns a resolved Context for tenant.
func Resolve(t testing.TB, tenant *tenantDomain.Tenant) scope.Context {
	t.Helper()

	resolver := scope.NewResolver(
		staticLookup{tenant: tenant},
		"",
		metrics.NewNoOpSecurityMetrics(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	sc, err := resolver.ResolveTenant(context.Background(), tenant.ID)
	require.NoError(t, err)
	return sc
}
