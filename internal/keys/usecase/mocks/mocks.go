// Package mocks provides mock implementations of the key hierarchy interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// MockTenantKeyRepository is a mock implementation of usecase.TenantKeyRepository.
type MockTenantKeyRepository struct {
	mock.Mock
}

func (m *MockTenantKeyRepository) Create(ctx context.Context, key *keysDomain.TenantKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockTenantKeyRepository) GetActive(ctx context.Context, tenantID uuid.UUID) (*keysDomain.TenantKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.TenantKey), args.Error(1)
}

func (m *MockTenantKeyRepository) GetByVersion(
	ctx context.Context,
	tenantID uuid.UUID,
	version uint32,
) (*keysDomain.TenantKey, error) {
	args := m.Called(ctx, tenantID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.TenantKey), args.Error(1)
}

func (m *MockTenantKeyRepository) GetMaxVersion(ctx context.Context, tenantID uuid.UUID) (uint32, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockTenantKeyRepository) DeactivateActive(ctx context.Context, tenantID uuid.UUID, at time.Time) error {
	return m.Called(ctx, tenantID, at).Error(0)
}

func (m *MockTenantKeyRepository) Activate(ctx context.Context, tenantID uuid.UUID, version uint32) error {
	return m.Called(ctx, tenantID, version).Error(0)
}

func (m *MockTenantKeyRepository) Deactivate(
	ctx context.Context,
	tenantID uuid.UUID,
	version uint32,
	at time.Time,
) error {
	return m.Called(ctx, tenantID, version, at).Error(0)
}

func (m *MockTenantKeyRepository) List(ctx context.Context, tenantID uuid.UUID) ([]*keysDomain.TenantKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keysDomain.TenantKey), args.Error(1)
}

// MockKeyHierarchyUseCase is a mock implementation of usecase.KeyHierarchyUseCase.
type MockKeyHierarchyUseCase struct {
	mock.Mock
}

func (m *MockKeyHierarchyUseCase) GetActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.DataKey, error) {
	args := m.Called(ctx, sc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.DataKey), args.Error(1)
}

func (m *MockKeyHierarchyUseCase) GetKeyByVersion(
	ctx context.Context,
	sc scope.Context,
	version uint32,
) (*keysDomain.DataKey, error) {
	args := m.Called(ctx, sc, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.DataKey), args.Error(1)
}

func (m *MockKeyHierarchyUseCase) EnsureActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error) {
	args := m.Called(ctx, sc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.TenantKey), args.Error(1)
}

func (m *MockKeyHierarchyUseCase) Rotate(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error) {
	args := m.Called(ctx, sc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.TenantKey), args.Error(1)
}

func (m *MockKeyHierarchyUseCase) Activate(ctx context.Context, sc scope.Context, version uint32) error {
	return m.Called(ctx, sc, version).Error(0)
}

func (m *MockKeyHierarchyUseCase) Deactivate(ctx context.Context, sc scope.Context, version uint32) error {
	return m.Called(ctx, sc, version).Error(0)
}

func (m *MockKeyHierarchyUseCase) List(ctx context.Context, sc scope.Context) ([]*keysDomain.TenantKey, error) {
	args := m.Called(ctx, sc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keysDomain.TenantKey), args.Error(1)
}
