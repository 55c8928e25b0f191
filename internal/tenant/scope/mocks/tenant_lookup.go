// Package mocks provides mock implementations for testing tenant resolution.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

// MockTenantLookup is a mock implementation of scope.TenantLookup.
type MockTenantLookup struct {
	mock.Mock
}

// FindByRoutingKey mocks the FindByRoutingKey method.
func (m *MockTenantLookup) FindByRoutingKey(ctx context.Context, routingKey string) (*tenantDomain.Tenant, error) {
	args := m.Called(ctx, routingKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenantDomain.Tenant), args.Error(1)
}

// FindByID mocks the FindByID method.
func (m *MockTenantLookup) FindByID(ctx context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenantDomain.Tenant), args.Error(1)
}
