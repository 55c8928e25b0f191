// Package mocks provides mock implementations of the envelope API interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/tenantvault/internal/audit/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
)

// MockVaultUseCase is a mock implementation of usecase.VaultUseCase.
type MockVaultUseCase struct {
	mock.Mock
}

func (m *MockVaultUseCase) Seal(
	ctx context.Context,
	sc scope.Context,
	plaintext []byte,
) (vaultDomain.SecretEnvelope, error) {
	args := m.Called(ctx, sc, plaintext)
	return args.Get(0).(vaultDomain.SecretEnvelope), args.Error(1)
}

func (m *MockVaultUseCase) SealRecord(
	ctx context.Context,
	sc scope.Context,
	recordID string,
	plaintext []byte,
) (vaultDomain.SecretEnvelope, error) {
	args := m.Called(ctx, sc, recordID, plaintext)
	return args.Get(0).(vaultDomain.SecretEnvelope), args.Error(1)
}

func (m *MockVaultUseCase) Open(
	ctx context.Context,
	sc scope.Context,
	record vaultDomain.Record,
	env vaultDomain.SecretEnvelope,
) ([]byte, error) {
	args := m.Called(ctx, sc, record, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockAuditSink is a mock implementation of usecase.AuditSink.
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Emit(ctx context.Context, event auditDomain.Event) error {
	return m.Called(ctx, event).Error(0)
}
