// Package usecase implements tenant administration: provisioning, status changes
// and listing.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

type tenantUseCase struct {
	tenantRepo TenantRepository
	resolver   ContextResolver
	keys       KeyProvisioner
	cache      CacheInvalidator
	logger     *slog.Logger
}

// NewTenantUseCase creates a new TenantUseCase.
func NewTenantUseCase(
	tenantRepo TenantRepository,
	resolver ContextResolver,
	keys KeyProvisioner,
	cache CacheInvalidator,
	logger *slog.Logger,
) TenantUseCase {
	return &tenantUseCase{
		tenantRepo: tenantRepo,
		resolver:   resolver,
		keys:       keys,
		cache:      cache,
		logger:     logger,
	}
}

// Provision creates an active regular tenant and eagerly creates key version 1.
//
// The tenant row is committed first. If key creation then fails the tenant is
// still returned and its first key is created lazily on the first seal.
func (t *tenantUseCase) Provision(
	ctx context.Context,
	name, routingKey string,
	plan tenantDomain.Plan,
) (*tenantDomain.Tenant, error) {
	if plan == "" {
		plan = tenantDomain.PlanFree
	}

	now := time.Now().UTC()
	tenant := &tenantDomain.Tenant{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       strings.TrimSpace(name),
		RoutingKey: routingKey,
		Plan:       plan,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	if err := t.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	t.provisionKey(ctx, tenant)

	t.logger.InfoContext(
		ctx,
		"tenant provisioned",
		slog.String("tenant_id", tenant.ID.String()),
		slog.String("routing_key", tenant.RoutingKey),
		slog.String("plan", string(tenant.Plan)),
	)
	return tenant, nil
}

// ProvisionAdmin is idempotent. Concurrent callers race on the unique admin index;
// the loser reads the winner's row.
func (t *tenantUseCase) ProvisionAdmin(ctx context.Context, name string) (*tenantDomain.Tenant, error) {
	existing, err := t.tenantRepo.GetAdmin(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, tenantDomain.ErrTenantRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	tenant := &tenantDomain.Tenant{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       strings.TrimSpace(name),
		RoutingKey: tenantDomain.AdminRoutingKey,
		Plan:       tenantDomain.PlanEnterprise,
		IsActive:   true,
		IsAdmin:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	if err := t.tenantRepo.Create(ctx, tenant); err != nil {
		if errors.Is(err, tenantDomain.ErrRoutingKeyTaken) {
			if existing, getErr := t.tenantRepo.GetAdmin(ctx); getErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	t.provisionKey(ctx, tenant)

	t.logger.InfoContext(ctx, "admin tenant provisioned", slog.String("tenant_id", tenant.ID.String()))
	return tenant, nil
}

// Activate marks a tenant active.
func (t *tenantUseCase) Activate(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	return t.setActive(ctx, tenantID, true)
}

// Deactivate marks a tenant inactive; its routing key stops resolving at once.
// The admin tenant cannot be deactivated.
func (t *tenantUseCase) Deactivate(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	return t.setActive(ctx, tenantID, false)
}

// Get retrieves a tenant by ID.
func (t *tenantUseCase) Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	return t.tenantRepo.Get(ctx, tenantID)
}

// GetByRoutingKey retrieves a tenant by routing key.
func (t *tenantUseCase) GetByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error) {
	return t.tenantRepo.GetByRoutingKey(ctx, routingKey)
}

// List returns every tenant.
func (t *tenantUseCase) List(ctx context.Context) ([]*tenantDomain.Tenant, error) {
	return t.tenantRepo.List(ctx)
}

func (t *tenantUseCase) setActive(
	ctx context.Context,
	tenantID uuid.UUID,
	active bool,
) (*tenantDomain.Tenant, error) {
	tenant, err := t.tenantRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if tenant.IsAdmin && !active {
		return nil, tenantDomain.ErrAdminTenantImmutable
	}
	if tenant.IsActive == active {
		return tenant, nil
	}

	tenant.IsActive = active
	tenant.UpdatedAt = time.Now().UTC()
	if err := t.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}

	if err := t.cache.Invalidate(ctx, tenant); err != nil {
		t.logger.WarnContext(
			ctx,
			"failed to invalidate tenant cache",
			slog.String("tenant_id", tenant.ID.String()),
			slog.Any("error", err),
		)
	}

	t.logger.InfoContext(
		ctx,
		"tenant status changed",
		slog.String("tenant_id", tenant.ID.String()),
		slog.Bool("active", active),
	)
	return tenant, nil
}

// provisionKey creates key version 1 for a freshly committed tenant. A failure is
// logged and left to lazy creation on first use.
func (t *tenantUseCase) provisionKey(ctx context.Context, tenant *tenantDomain.Tenant) {
	sc, err := t.resolver.ResolveTenant(ctx, tenant.ID)
	if err == nil {
		_, err = t.keys.EnsureActiveKey(ctx, sc)
	}
	if err != nil {
		t.logger.WarnContext(
			ctx,
			"failed to create first tenant key, deferring to first use",
			slog.String("tenant_id", tenant.ID.String()),
			slog.Any("error", err),
		)
	}
}
