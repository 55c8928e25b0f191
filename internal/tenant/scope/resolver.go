package scope

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/tenantvault/internal/metrics"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

// TenantLookup finds tenants without any tenant filter applied. It is the only
// unscoped read in the system and is used solely to establish a Context.
type TenantLookup interface {
	// FindByRoutingKey returns ErrTenantRecordNotFound when no tenant matches.
	FindByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error)

	// FindByID returns ErrTenantRecordNotFound when no tenant matches.
	FindByID(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)
}

// Resolver turns an inbound routing identifier into a Context.
//
// Each call walks Unresolved -> Resolving -> Resolved, or ends in Rejected with
// one of the isolation errors. A rejection is terminal for the unit of work.
type Resolver struct {
	lookup     TenantLookup
	baseDomain string
	security   metrics.SecurityMetrics
	logger     *slog.Logger
}

// NewResolver creates a Resolver. baseDomain may be empty.
func NewResolver(
	lookup TenantLookup,
	baseDomain string,
	security metrics.SecurityMetrics,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		lookup:     lookup,
		baseDomain: baseDomain,
		security:   security,
		logger:     logger,
	}
}

// Resolve resolves the tenant of an inbound request from its host and path.
//
// Tenant-agnostic health checks return the zero Context and no error. Any other
// request without a usable routing key is rejected with ErrTenantRequired.
func (r *Resolver) Resolve(ctx context.Context, host, path string) (Context, error) {
	if IsTenantAgnostic(path) {
		return Context{}, nil
	}

	routingKey, ok := ExtractRoutingKey(host, r.baseDomain)
	if !ok || tenantDomain.IsReservedRoutingKey(routingKey) {
		return r.reject(
			ctx,
			tenantDomain.ErrTenantRequired,
			metrics.SecurityEventTenantRequired,
			slog.String("host", host),
			slog.String("path", path),
		)
	}

	return r.ResolveRoutingKey(ctx, routingKey)
}

// ResolveRoutingKey resolves a routing key supplied directly, as CLI commands do.
func (r *Resolver) ResolveRoutingKey(ctx context.Context, routingKey string) (Context, error) {
	if routingKey == "" || tenantDomain.IsReservedRoutingKey(routingKey) {
		return r.reject(ctx, tenantDomain.ErrTenantRequired, metrics.SecurityEventTenantRequired)
	}

	tenant, err := r.lookup.FindByRoutingKey(ctx, routingKey)
	if err != nil {
		if errors.Is(err, tenantDomain.ErrTenantRecordNotFound) {
			return r.reject(
				ctx,
				tenantDomain.ErrTenantNotFound,
				metrics.SecurityEventTenantNotFound,
				slog.String("routing_key", routingKey),
			)
		}
		return Context{}, err
	}

	return r.admit(ctx, routingKey, tenant)
}

// ResolveTenant establishes a Context for a background task that already knows
// the tenant identifier. The same active and admin checks apply.
func (r *Resolver) ResolveTenant(ctx context.Context, tenantID uuid.UUID) (Context, error) {
	if tenantID == uuid.Nil {
		return r.reject(ctx, tenantDomain.ErrTenantRequired, metrics.SecurityEventTenantRequired)
	}

	tenant, err := r.lookup.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenantDomain.ErrTenantRecordNotFound) {
			return r.reject(
				ctx,
				tenantDomain.ErrTenantNotFound,
				metrics.SecurityEventTenantNotFound,
				slog.String("tenant_id", tenantID.String()),
			)
		}
		return Context{}, err
	}

	return r.admit(ctx, tenant.RoutingKey, tenant)
}

func (r *Resolver) admit(ctx context.Context, routingKey string, tenant *tenantDomain.Tenant) (Context, error) {
	attrs := []slog.Attr{
		slog.String("routing_key", routingKey),
		slog.String("tenant_id", tenant.ID.String()),
	}

	if routingKey == tenantDomain.AdminRoutingKey {
		if !tenant.IsAdmin || tenant.RoutingKey != routingKey {
			return r.reject(
				ctx,
				tenantDomain.ErrAdminBoundaryViolation,
				metrics.SecurityEventAdminBoundaryViolation,
				attrs...,
			)
		}
	} else if tenant.IsAdmin || tenant.RoutingKey != routingKey {
		return r.reject(ctx, tenantDomain.ErrTenantNotFound, metrics.SecurityEventTenantNotFound, attrs...)
	}

	if !tenant.IsActive {
		return r.reject(ctx, tenantDomain.ErrTenantNotFound, metrics.SecurityEventTenantNotFound, attrs...)
	}

	return Context{
		tenantID:   tenant.ID,
		routingKey: tenant.RoutingKey,
		admin:      tenant.IsAdmin,
	}, nil
}

func (r *Resolver) reject(ctx context.Context, err error, kind string, attrs ...slog.Attr) (Context, error) {
	logSecurityEvent(ctx, r.logger, r.security, kind, "tenant resolution rejected", attrs...)
	return Context{}, err
}

// logSecurityEvent logs an isolation violation at WARN and counts it.
func logSecurityEvent(
	ctx context.Context,
	logger *slog.Logger,
	security metrics.SecurityMetrics,
	kind, msg string,
	attrs ...slog.Attr,
) {
	security.RecordSecurityEvent(ctx, kind)
	logger.LogAttrs(ctx, slog.LevelWarn, msg, append([]slog.Attr{slog.String("security_event", kind)}, attrs...)...)
}
