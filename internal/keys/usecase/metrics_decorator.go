package usecase

import (
	"context"
	"time"

	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/metrics"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

const metricsDomain = "keys"

// keyHierarchyUseCaseWithMetrics decorates KeyHierarchyUseCase with metrics instrumentation.
type keyHierarchyUseCaseWithMetrics struct {
	next    KeyHierarchyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyHierarchyUseCaseWithMetrics wraps a KeyHierarchyUseCase with metrics recording.
func NewKeyHierarchyUseCaseWithMetrics(useCase KeyHierarchyUseCase, m metrics.BusinessMetrics) KeyHierarchyUseCase {
	return &keyHierarchyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyHierarchyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, k.metrics, metricsDomain, operation, start, err)
}

// GetActiveKey records metrics for active key lookups.
func (k *keyHierarchyUseCaseWithMetrics) GetActiveKey(
	ctx context.Context,
	sc scope.Context,
) (*keysDomain.DataKey, error) {
	start := time.Now()
	key, err := k.next.GetActiveKey(ctx, sc)
	k.record(ctx, "get_active_key", start, err)
	return key, err
}

// GetKeyByVersion records metrics for versioned key lookups.
func (k *keyHierarchyUseCaseWithMetrics) GetKeyByVersion(
	ctx context.Context,
	sc scope.Context,
	version uint32,
) (*keysDomain.DataKey, error) {
	start := time.Now()
	key, err := k.next.GetKeyByVersion(ctx, sc, version)
	k.record(ctx, "get_key_by_version", start, err)
	return key, err
}

// EnsureActiveKey records metrics for active key provisioning.
func (k *keyHierarchyUseCaseWithMetrics) EnsureActiveKey(
	ctx context.Context,
	sc scope.Context,
) (*keysDomain.TenantKey, error) {
	start := time.Now()
	key, err := k.next.EnsureActiveKey(ctx, sc)
	k.record(ctx, "ensure_active_key", start, err)
	return key, err
}

// Rotate records metrics for key rotations.
func (k *keyHierarchyUseCaseWithMetrics) Rotate(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error) {
	start := time.Now()
	key, err := k.next.Rotate(ctx, sc)
	k.record(ctx, "rotate", start, err)
	return key, err
}

// Activate records metrics for key activations.
func (k *keyHierarchyUseCaseWithMetrics) Activate(ctx context.Context, sc scope.Context, version uint32) error {
	start := time.Now()
	err := k.next.Activate(ctx, sc, version)
	k.record(ctx, "activate", start, err)
	return err
}

// Deactivate records metrics for key deactivations.
func (k *keyHierarchyUseCaseWithMetrics) Deactivate(ctx context.Context, sc scope.Context, version uint32) error {
	start := time.Now()
	err := k.next.Deactivate(ctx, sc, version)
	k.record(ctx, "deactivate", start, err)
	return err
}

// List records metrics for key listings.
func (k *keyHierarchyUseCaseWithMetrics) List(ctx context.Context, sc scope.Context) ([]*keysDomain.TenantKey, error) {
	start := time.Now()
	keys, err := k.next.List(ctx, sc)
	k.record(ctx, "list", start, err)
	return keys, err
}
