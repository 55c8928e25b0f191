package usecase

import (
	"context"

	auditDomain "github.com/allisson/tenantvault/internal/audit/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
)

// AuditSink receives one event per seal or open. Implementations live in
// internal/audit/service.
type AuditSink interface {
	Emit(ctx context.Context, event auditDomain.Event) error
}

// VaultUseCase is the secret field envelope API used by the record layer.
//
// The tenant is taken only from sc, which must come from a scope.Resolver.
type VaultUseCase interface {
	// Seal encrypts plaintext under the tenant's active data key. The first seal
	// for a tenant creates key version 1.
	Seal(ctx context.Context, sc scope.Context, plaintext []byte) (vaultDomain.SecretEnvelope, error)

	// SealRecord is Seal with the record id attached to the audit event.
	SealRecord(
		ctx context.Context,
		sc scope.Context,
		recordID string,
		plaintext []byte,
	) (vaultDomain.SecretEnvelope, error)

	// Open checks that record belongs to the context's tenant, then decrypts env with
	// the key version it names.
	//
	// Security Note: callers should zero the returned plaintext once it has been used.
	Open(
		ctx context.Context,
		sc scope.Context,
		record vaultDomain.Record,
		env vaultDomain.SecretEnvelope,
	) ([]byte, error)
}
