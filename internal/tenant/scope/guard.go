package scope

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/tenantvault/internal/metrics"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

// Guard enforces that a secret operation stays inside its Context.
//
// CheckRecord compares the record's own tenant reference with the context,
// independent of whatever query filter fetched the record, and fails closed.
type Guard struct {
	security metrics.SecurityMetrics
	logger   *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(security metrics.SecurityMetrics, logger *slog.Logger) *Guard {
	return &Guard{security: security, logger: logger}
}

// RequireTenant rejects an unresolved context.
func (g *Guard) RequireTenant(ctx context.Context, sc Context) error {
	if !sc.IsResolved() {
		logSecurityEvent(ctx, g.logger, g.security, metrics.SecurityEventTenantRequired, "secret operation without tenant")
		return tenantDomain.ErrTenantRequired
	}
	return nil
}

// RequireAdmin rejects any context that does not belong to the admin tenant.
func (g *Guard) RequireAdmin(ctx context.Context, sc Context) error {
	if err := g.RequireTenant(ctx, sc); err != nil {
		return err
	}
	if !sc.IsAdmin() {
		logSecurityEvent(
			ctx,
			g.logger,
			g.security,
			metrics.SecurityEventAdminBoundaryViolation,
			"admin operation outside admin tenant",
			slog.String("tenant_id", sc.TenantID().String()),
		)
		return tenantDomain.ErrAdminBoundaryViolation
	}
	return nil
}

// CheckRecord verifies that recordTenantID is the context's tenant. It must run
// immediately before every decrypt.
func (g *Guard) CheckRecord(ctx context.Context, sc Context, recordTenantID uuid.UUID, recordID string) error {
	if err := g.RequireTenant(ctx, sc); err != nil {
		return err
	}
	if recordTenantID != sc.TenantID() {
		logSecurityEvent(
			ctx,
			g.logger,
			g.security,
			metrics.SecurityEventCrossTenantAccess,
			"cross-tenant access denied",
			slog.String("tenant_id", sc.TenantID().String()),
			slog.String("record_tenant_id", recordTenantID.String()),
			slog.String("record_id", recordID),
		)
		return tenantDomain.ErrCrossTenantAccessDenied
	}
	return nil
}
