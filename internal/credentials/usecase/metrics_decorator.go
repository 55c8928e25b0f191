package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	"github.com/allisson/tenantvault/internal/metrics"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

const metricsDomain = "credentials"

// credentialUseCaseWithMetrics decorates CredentialUseCase with metrics instrumentation.
type credentialUseCaseWithMetrics struct {
	next    CredentialUseCase
	metrics metrics.BusinessMetrics
}

// NewCredentialUseCaseWithMetrics wraps a CredentialUseCase with metrics recording.
func NewCredentialUseCaseWithMetrics(useCase CredentialUseCase, m metrics.BusinessMetrics) CredentialUseCase {
	return &credentialUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *credentialUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, c.metrics, metricsDomain, operation, start, err)
}

func (c *credentialUseCaseWithMetrics) Create(
	ctx context.Context,
	sc scope.Context,
	input CreateInput,
) (*credentialsDomain.Credential, error) {
	start := time.Now()
	credential, err := c.next.Create(ctx, sc, input)
	c.record(ctx, "create", start, err)
	return credential, err
}

func (c *credentialUseCaseWithMetrics) Get(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*credentialsDomain.Credential, error) {
	start := time.Now()
	credential, err := c.next.Get(ctx, sc, credentialID)
	c.record(ctx, "get", start, err)
	return credential, err
}

func (c *credentialUseCaseWithMetrics) List(
	ctx context.Context,
	sc scope.Context,
	filter credentialsDomain.ListFilter,
) ([]*credentialsDomain.Credential, error) {
	start := time.Now()
	credentials, err := c.next.List(ctx, sc, filter)
	c.record(ctx, "list", start, err)
	return credentials, err
}

func (c *credentialUseCaseWithMetrics) Reveal(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*Revealed, error) {
	start := time.Now()
	revealed, err := c.next.Reveal(ctx, sc, credentialID)
	c.record(ctx, "reveal", start, err)
	return revealed, err
}

func (c *credentialUseCaseWithMetrics) RotateSecret(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
	secret []byte,
) (*credentialsDomain.Credential, error) {
	start := time.Now()
	credential, err := c.next.RotateSecret(ctx, sc, credentialID, secret)
	c.record(ctx, "rotate_secret", start, err)
	return credential, err
}

func (c *credentialUseCaseWithMetrics) Delete(ctx context.Context, sc scope.Context, credentialID uuid.UUID) error {
	start := time.Now()
	err := c.next.Delete(ctx, sc, credentialID)
	c.record(ctx, "delete", start, err)
	return err
}

func (c *credentialUseCaseWithMetrics) Reseal(
	ctx context.Context,
	sc scope.Context,
	batchSize int,
) (*ResealResult, error) {
	start := time.Now()
	result, err := c.next.Reseal(ctx, sc, batchSize)
	c.record(ctx, "reseal", start, err)
	return result, err
}
