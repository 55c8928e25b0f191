package usecase

import (
	"context"

	"github.com/google/uuid"

	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// TenantRepository defines the interface for Tenant persistence. Lookups are
// unscoped: tenant administration is what establishes scopes.
type TenantRepository interface {
	Create(ctx context.Context, tenant *tenantDomain.Tenant) error
	Update(ctx context.Context, tenant *tenantDomain.Tenant) error
	Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)
	GetByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error)
	GetAdmin(ctx context.Context) (*tenantDomain.Tenant, error)
	List(ctx context.Context) ([]*tenantDomain.Tenant, error)
}

// ContextResolver establishes a tenant context for a background unit of work.
type ContextResolver interface {
	ResolveTenant(ctx context.Context, tenantID uuid.UUID) (scope.Context, error)
}

// KeyProvisioner creates the first data key version of a tenant.
type KeyProvisioner interface {
	EnsureActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error)
}

// CacheInvalidator drops cached lookups of a tenant after a status change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenant *tenantDomain.Tenant) error
}

// TenantUseCase defines tenant administration operations.
type TenantUseCase interface {
	// Provision creates a regular tenant and attempts its first key version;
	// a failed key creation is deferred to the first seal.
	Provision(ctx context.Context, name, routingKey string, plan tenantDomain.Plan) (*tenantDomain.Tenant, error)
	// ProvisionAdmin returns the admin tenant, creating it if it does not exist.
	ProvisionAdmin(ctx context.Context, name string) (*tenantDomain.Tenant, error)
	Activate(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)
	Deactivate(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)
	Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error)
	GetByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error)
	List(ctx context.Context) ([]*tenantDomain.Tenant, error)
}
