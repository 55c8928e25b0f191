package usecase

import (
	"context"
	"time"

	"github.com/allisson/tenantvault/internal/metrics"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
)

// vaultUseCaseWithMetrics decorates VaultUseCase with metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Seal records metrics for seal operations.
func (v *vaultUseCaseWithMetrics) Seal(
	ctx context.Context,
	sc scope.Context,
	plaintext []byte,
) (vaultDomain.SecretEnvelope, error) {
	start := time.Now()
	env, err := v.next.Seal(ctx, sc, plaintext)

	metrics.Observe(ctx, v.metrics, "vault", "seal", start, err)
	return env, err
}

// SealRecord records metrics for record seal operations.
func (v *vaultUseCaseWithMetrics) SealRecord(
	ctx context.Context,
	sc scope.Context,
	recordID string,
	plaintext []byte,
) (vaultDomain.SecretEnvelope, error) {
	start := time.Now()
	env, err := v.next.SealRecord(ctx, sc, recordID, plaintext)

	metrics.Observe(ctx, v.metrics, "vault", "seal_record", start, err)
	return env, err
}

// Open records metrics for open operations.
func (v *vaultUseCaseWithMetrics) Open(
	ctx context.Context,
	sc scope.Context,
	record vaultDomain.Record,
	env vaultDomain.SecretEnvelope,
) ([]byte, error) {
	start := time.Now()
	plaintext, err := v.next.Open(ctx, sc, record, env)

	metrics.Observe(ctx, v.metrics, "vault", "open", start, err)
	return plaintext, err
}
