package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// TenantKeyRepository defines the interface for TenantKey persistence.
type TenantKeyRepository interface {
	Create(ctx context.Context, key *keysDomain.TenantKey) error
	GetActive(ctx context.Context, tenantID uuid.UUID) (*keysDomain.TenantKey, error)
	GetByVersion(ctx context.Context, tenantID uuid.UUID, version uint32) (*keysDomain.TenantKey, error)
	GetMaxVersion(ctx context.Context, tenantID uuid.UUID) (uint32, error)
	DeactivateActive(ctx context.Context, tenantID uuid.UUID, deactivatedAt time.Time) error
	Activate(ctx context.Context, tenantID uuid.UUID, version uint32) error
	Deactivate(ctx context.Context, tenantID uuid.UUID, version uint32, deactivatedAt time.Time) error
	List(ctx context.Context, tenantID uuid.UUID) ([]*keysDomain.TenantKey, error)
}

// KeyHierarchyUseCase manages the versioned data keys of a tenant.
//
// Every method takes the scope.Context of the current unit of work; the tenant is
// never passed any other way.
type KeyHierarchyUseCase interface {
	// GetActiveKey returns the unwrapped active data key, creating the first
	// version on first use.
	//
	// Security Note: callers MUST call DataKey.Zero once the seal completes.
	GetActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.DataKey, error)
	// GetKeyByVersion returns the unwrapped data key of a specific version.
	// A missing version, or a row owned by another tenant, yields ErrKeyNotFound.
	GetKeyByVersion(ctx context.Context, sc scope.Context, version uint32) (*keysDomain.DataKey, error)
	// EnsureActiveKey returns the active key row, creating the first version if
	// needed, without unwrapping it.
	EnsureActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error)
	Rotate(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error)
	Activate(ctx context.Context, sc scope.Context, version uint32) error
	Deactivate(ctx context.Context, sc scope.Context, version uint32) error
	List(ctx context.Context, sc scope.Context) ([]*keysDomain.TenantKey, error)
}
