// Package keystest provides an in-memory TenantKey store for tests of packages
// built on the key hierarchy.
package keystest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
)

// Repository is an in-memory TenantKey repository enforcing the same uniqueness
// rules as the database indexes: one row per (tenant, version) and at most one
// active row per tenant.
type Repository struct {
	mu   sync.Mutex
	keys map[uuid.UUID][]*keysDomain.TenantKey
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{keys: make(map[uuid.UUID][]*keysDomain.TenantKey)}
}

func (r *Repository) Create(_ context.Context, key *keysDomain.TenantKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.keys[key.TenantID] {
		if existing.Version == key.Version || (existing.Active && key.Active) {
			return keysDomain.ErrConcurrentActivationConflict
		}
	}
	stored := *key
	r.keys[key.TenantID] = append(r.keys[key.TenantID], &stored)
	return nil
}

func (r *Repository) GetActive(_ context.Context, tenantID uuid.UUID) (*keysDomain.TenantKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.keys[tenantID] {
		if key.Active {
			found := *key
			return &found, nil
		}
	}
	return nil, keysDomain.ErrNoActiveKey
}

func (r *Repository) GetByVersion(
	_ context.Context,
	tenantID uuid.UUID,
	version uint32,
) (*keysDomain.TenantKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.find(tenantID, version)
	if key == nil {
		return nil, keysDomain.ErrKeyNotFound
	}
	found := *key
	return &found, nil
}

func (r *Repository) GetMaxVersion(_ context.Context, tenantID uuid.UUID) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var maxVersion uint32
	for _, key := range r.keys[tenantID] {
		maxVersion = max(maxVersion, key.Version)
	}
	return maxVersion, nil
}

func (r *Repository) DeactivateActive(_ context.Context, tenantID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.keys[tenantID] {
		if key.Active {
			key.Active = false
			key.DeactivatedAt = &at
		}
	}
	return nil
}

func (r *Repository) Activate(_ context.Context, tenantID uuid.UUID, version uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.find(tenantID, version)
	if key == nil {
		return keysDomain.ErrKeyNotFound
	}
	for _, other := range r.keys[tenantID] {
		if other.Active && other.Version != version {
			return keysDomain.ErrConcurrentActivationConflict
		}
	}
	key.Active = true
	key.DeactivatedAt = nil
	return nil
}

func (r *Repository) Deactivate(_ context.Context, tenantID uuid.UUID, version uint32, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.find(tenantID, version)
	if key == nil {
		return keysDomain.ErrKeyNotFound
	}
	key.Active = false
	key.DeactivatedAt = &at
	return nil
}

func (r *Repository) List(_ context.Context, tenantID uuid.UUID) ([]*keysDomain.TenantKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]*keysDomain.TenantKey, 0, len(r.keys[tenantID]))
	for _, key := range r.keys[tenantID] {
		found := *key
		keys = append(keys, &found)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Version > keys[j].Version })
	return keys, nil
}

// Put stores key as is, bypassing the uniqueness rules. Tests use it to plant
// corrupted or foreign rows.
func (r *Repository) Put(key *keysDomain.TenantKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *key
	r.keys[key.TenantID] = append(r.keys[key.TenantID], &stored)
}

// ActiveCount returns how many rows of the tenant are active.
func (r *Repository) ActiveCount(tenantID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, key := range r.keys[tenantID] {
		if key.Active {
			count++
		}
	}
	return count
}

func (r *Repository) find(tenantID uuid.UUID, version uint32) *keysDomain.TenantKey {
	for _, key := range r.keys[tenantID] {
		if key.Version == version {
			return key
		}
	}
	return nil
}

// TxManager runs transactions one at a time, which gives the in-memory Repository
// serializable semantics. It does not roll back.
type TxManager struct {
	mu sync.Mutex
}

// WithTx runs fn while holding the transaction lock.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}
