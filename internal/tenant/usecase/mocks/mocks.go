// Package mocks provides testify mocks for the tenant use case interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

// MockTenantUseCase is a mock implementation of usecase.TenantUseCase.
type MockTenantUseCase struct {
	mock.Mock
}

func (m *MockTenantUseCase) tenant(args mock.Arguments) (*tenantDomain.Tenant, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenantDomain.Tenant), args.Error(1)
}

func (m *MockTenantUseCase) Provision(
	ctx context.Context,
	name, routingKey string,
	plan tenantDomain.Plan,
) (*tenantDomain.Tenant, error) {
	return m.tenant(m.Called(ctx, name, routingKey, plan))
}

func (m *MockTenantUseCase) ProvisionAdmin(ctx context.Context, name string) (*tenantDomain.Tenant, error) {
	return m.tenant(m.Called(ctx, name))
}

func (m *MockTenantUseCase) Activate(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	return m.tenant(m.Called(ctx, tenantID))
}

func (m *MockTenantUseCase) Deactivate(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	return m.tenant(m.Called(ctx, tenantID))
}

func (m *MockTenantUseCase) Get(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	return m.tenant(m.Called(ctx, tenantID))
}

func (m *MockTenantUseCase) GetByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error) {
	return m.tenant(m.Called(ctx, routingKey))
}

func (m *MockTenantUseCase) List(ctx context.Context) ([]*tenantDomain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenantDomain.Tenant), args.Error(1)
}
