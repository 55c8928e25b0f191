package scope

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tenantvault/internal/metrics"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope/mocks"
)

func resolveForTest(t *testing.T, tenant *tenantDomain.Tenant) Context {
	t.Helper()
	lookup := &mocks.MockTenantLookup{}
	lookup.On("FindByID", context.Background(), tenant.ID).Return(tenant, nil)
	resolver, _ := newTestResolver(lookup, "")
	sc, err := resolver.ResolveTenant(context.Background(), tenant.ID)
	require.NoError(t, err)
	return sc
}

func TestGuard_CheckRecord(t *testing.T) {
	ctx := context.Background()
	security := &recordingSecurityMetrics{}
	guard := NewGuard(security, slog.New(slog.NewTextHandler(io.Discard, nil)))

	acme := resolveForTest(t, newTestTenant("acme", true, false))
	globex := resolveForTest(t, newTestTenant("globex", true, false))

	t.Run("same tenant", func(t *testing.T) {
		assert.NoError(t, guard.CheckRecord(ctx, acme, acme.TenantID(), "record-1"))
	})

	t.Run("other tenant", func(t *testing.T) {
		err := guard.CheckRecord(ctx, acme, globex.TenantID(), "record-2")
		assert.ErrorIs(t, err, tenantDomain.ErrCrossTenantAccessDenied)
		assert.Contains(t, security.kinds, metrics.SecurityEventCrossTenantAccess)
	})

	t.Run("unresolved context", func(t *testing.T) {
		err := guard.CheckRecord(ctx, Context{}, acme.TenantID(), "record-3")
		assert.ErrorIs(t, err, tenantDomain.ErrTenantRequired)
	})

	t.Run("unresolved context and nil record tenant", func(t *testing.T) {
		err := guard.CheckRecord(ctx, Context{}, uuid.Nil, "record-4")
		assert.ErrorIs(t, err, tenantDomain.ErrTenantRequired)
	})
}

func TestGuard_RequireAdmin(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(metrics.NewNoOpSecurityMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	admin := resolveForTest(t, newTestTenant(tenantDomain.AdminRoutingKey, true, true))
	acme := resolveForTest(t, newTestTenant("acme", true, false))

	assert.NoError(t, guard.RequireAdmin(ctx, admin))
	assert.ErrorIs(t, guard.RequireAdmin(ctx, acme), tenantDomain.ErrAdminBoundaryViolation)
	assert.ErrorIs(t, guard.RequireAdmin(ctx, Context{}), tenantDomain.ErrTenantRequired)
}
