// Package mocks provides mock implementations of the credential interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	"github.com/allisson/tenantvault/internal/credentials/usecase"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// MockCredentialRepository is a mock implementation of usecase.CredentialRepository.
type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Create(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
) error {
	return m.Called(ctx, sc, credential).Error(0)
}

func (m *MockCredentialRepository) Update(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
) error {
	return m.Called(ctx, sc, credential).Error(0)
}

func (m *MockCredentialRepository) Get(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*credentialsDomain.Credential, error) {
	args := m.Called(ctx, sc, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialsDomain.Credential), args.Error(1)
}

func (m *MockCredentialRepository) List(
	ctx context.Context,
	sc scope.Context,
	filter credentialsDomain.ListFilter,
) ([]*credentialsDomain.Credential, error) {
	args := m.Called(ctx, sc, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialsDomain.Credential), args.Error(1)
}

func (m *MockCredentialRepository) ListSealedBefore(
	ctx context.Context,
	sc scope.Context,
	version uint32,
	limit int,
) ([]*credentialsDomain.Credential, error) {
	args := m.Called(ctx, sc, version, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialsDomain.Credential), args.Error(1)
}

func (m *MockCredentialRepository) Delete(ctx context.Context, sc scope.Context, credentialID uuid.UUID) error {
	return m.Called(ctx, sc, credentialID).Error(0)
}

func (m *MockCredentialRepository) MarkViewed(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
	viewedAt time.Time,
) error {
	return m.Called(ctx, sc, credentialID, viewedAt).Error(0)
}

// MockCredentialUseCase is a mock implementation of usecase.CredentialUseCase.
type MockCredentialUseCase struct {
	mock.Mock
}

func (m *MockCredentialUseCase) Create(
	ctx context.Context,
	sc scope.Context,
	input usecase.CreateInput,
) (*credentialsDomain.Credential, error) {
	args := m.Called(ctx, sc, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialsDomain.Credential), args.Error(1)
}

func (m *MockCredentialUseCase) Get(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*credentialsDomain.Credential, error) {
	args := m.Called(ctx, sc, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialsDomain.Credential), args.Error(1)
}

func (m *MockCredentialUseCase) List(
	ctx context.Context,
	sc scope.Context,
	filter credentialsDomain.ListFilter,
) ([]*credentialsDomain.Credential, error) {
	args := m.Called(ctx, sc, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialsDomain.Credential), args.Error(1)
}

func (m *MockCredentialUseCase) Reveal(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*usecase.Revealed, error) {
	args := m.Called(ctx, sc, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Revealed), args.Error(1)
}

func (m *MockCredentialUseCase) RotateSecret(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
	secret []byte,
) (*credentialsDomain.Credential, error) {
	args := m.Called(ctx, sc, credentialID, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialsDomain.Credential), args.Error(1)
}

func (m *MockCredentialUseCase) Delete(ctx context.Context, sc scope.Context, credentialID uuid.UUID) error {
	return m.Called(ctx, sc, credentialID).Error(0)
}

func (m *MockCredentialUseCase) Reseal(
	ctx context.Context,
	sc scope.Context,
	batchSize int,
) (*usecase.ResealResult, error) {
	args := m.Called(ctx, sc, batchSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ResealResult), args.Error(1)
}
