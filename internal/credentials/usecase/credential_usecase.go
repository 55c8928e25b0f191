// Package usecase implements the credential record layer.
//
// Sealing and opening are explicit steps taken here, before persistence and after
// load. Envelopes are never decrypted anywhere else.
package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
	vaultUseCase "github.com/allisson/tenantvault/internal/vault/usecase"
)

const defaultResealBatchSize = 100

type credentialUseCase struct {
	repo              CredentialRepository
	vault             vaultUseCase.VaultUseCase
	keys              ActiveKeySource
	guard             *scope.Guard
	resealConcurrency int
	logger            *slog.Logger
}

// NewCredentialUseCase creates a CredentialUseCase. resealConcurrency bounds the
// number of records resealed in parallel.
func NewCredentialUseCase(
	repo CredentialRepository,
	vault vaultUseCase.VaultUseCase,
	keys ActiveKeySource,
	guard *scope.Guard,
	resealConcurrency int,
	logger *slog.Logger,
) CredentialUseCase {
	if resealConcurrency < 1 {
		resealConcurrency = 1
	}
	return &credentialUseCase{
		repo:              repo,
		vault:             vault,
		keys:              keys,
		guard:             guard,
		resealConcurrency: resealConcurrency,
		logger:            logger,
	}
}

// Create validates the metadata, seals the secrets and stores the credential.
func (c *credentialUseCase) Create(
	ctx context.Context,
	sc scope.Context,
	input CreateInput,
) (*credentialsDomain.Credential, error) {
	if err := c.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	credential := &credentialsDomain.Credential{
		ID:        uuid.Must(uuid.NewV7()),
		TenantID:  sc.TenantID(),
		Name:      strings.TrimSpace(input.Name),
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.TrimSpace(input.Email),
		URL:       strings.TrimSpace(input.URL),
		Category:  input.Category,
		Notes:     input.Notes,
		Tags:      credentialsDomain.NormalizeTags(input.Tags),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Active != nil {
		credential.Active = *input.Active
	}
	if publicKey := strings.TrimSpace(input.SSHPublicKey); publicKey != "" {
		fingerprint, err := credentialsDomain.SSHFingerprint(publicKey)
		if err != nil {
			return nil, err
		}
		credential.SSHPublicKey = publicKey
		credential.SSHFingerprint = fingerprint
	}
	if err := credential.Validate(); err != nil {
		return nil, err
	}
	if len(input.Secret) == 0 {
		return nil, credentialsDomain.ErrSecretRequired
	}

	recordID := credential.ID.String()
	secret, err := c.vault.SealRecord(ctx, sc, recordID, input.Secret)
	if err != nil {
		return nil, err
	}
	credential.Secret = secret

	if len(input.SSHPrivateKey) > 0 {
		sshKey, err := c.vault.SealRecord(ctx, sc, recordID, input.SSHPrivateKey)
		if err != nil {
			return nil, err
		}
		credential.SSHPrivateKey = &sshKey
	}

	if err := c.repo.Create(ctx, sc, credential); err != nil {
		return nil, err
	}
	return credential, nil
}

// Get returns credential metadata and envelopes, never plaintext.
func (c *credentialUseCase) Get(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*credentialsDomain.Credential, error) {
	if err := c.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}

	credential, err := c.repo.Get(ctx, sc, credentialID)
	if err != nil {
		return nil, err
	}
	if err := c.guard.CheckRecord(ctx, sc, credential.TenantID, credential.ID.String()); err != nil {
		return nil, err
	}
	return credential, nil
}

// List returns the tenant's credentials matching filter.
func (c *credentialUseCase) List(
	ctx context.Context,
	sc scope.Context,
	filter credentialsDomain.ListFilter,
) ([]*credentialsDomain.Credential, error) {
	if err := c.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}

	credentials, err := c.repo.List(ctx, sc, filter)
	if err != nil {
		return nil, err
	}
	for _, credential := range credentials {
		if err := c.guard.CheckRecord(ctx, sc, credential.TenantID, credential.ID.String()); err != nil {
			return nil, err
		}
	}
	return credentials, nil
}

// Reveal opens the credential's secret and SSH key. Failing to record the view
// time is logged and does not fail the reveal; the vault's audit event is the
// authoritative record.
func (c *credentialUseCase) Reveal(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
) (*Revealed, error) {
	credential, err := c.Get(ctx, sc, credentialID)
	if err != nil {
		return nil, err
	}

	secret, err := c.vault.Open(ctx, sc, credential.VaultRecord(), credential.Secret)
	if err != nil {
		return nil, err
	}

	revealed := &Revealed{Credential: credential, Secret: secret}
	if credential.SSHPrivateKey != nil {
		sshKey, err := c.vault.Open(ctx, sc, credential.VaultRecord(), *credential.SSHPrivateKey)
		if err != nil {
			cryptoDomain.Zero(secret)
			return nil, err
		}
		revealed.SSHPrivateKey = sshKey
	}

	now := time.Now().UTC()
	if err := c.repo.MarkViewed(ctx, sc, credential.ID, now); err != nil {
		c.logger.WarnContext(
			ctx,
			"failed to record credential view",
			slog.String("tenant_id", sc.TenantID().String()),
			slog.String("credential_id", credential.ID.String()),
			slog.Any("error", err),
		)
	} else {
		credential.ViewedAt = &now
	}
	return revealed, nil
}

// RotateSecret replaces the credential's secret with a newly sealed value.
func (c *credentialUseCase) RotateSecret(
	ctx context.Context,
	sc scope.Context,
	credentialID uuid.UUID,
	secret []byte,
) (*credentialsDomain.Credential, error) {
	if len(secret) == 0 {
		return nil, credentialsDomain.ErrSecretRequired
	}

	credential, err := c.Get(ctx, sc, credentialID)
	if err != nil {
		return nil, err
	}

	envelope, err := c.vault.SealRecord(ctx, sc, credential.ID.String(), secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	credential.Secret = envelope
	credential.LastRotatedAt = &now
	credential.UpdatedAt = now

	if err := c.repo.Update(ctx, sc, credential); err != nil {
		return nil, err
	}
	return credential, nil
}

// Delete removes a credential of the tenant.
func (c *credentialUseCase) Delete(ctx context.Context, sc scope.Context, credentialID uuid.UUID) error {
	if err := c.guard.RequireTenant(ctx, sc); err != nil {
		return err
	}
	return c.repo.Delete(ctx, sc, credentialID)
}

// Reseal walks the tenant's stale envelopes in batches. Each batch is resealed in
// parallel; the first failure stops the run and is returned with the count so far.
func (c *credentialUseCase) Reseal(ctx context.Context, sc scope.Context, batchSize int) (*ResealResult, error) {
	if err := c.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = defaultResealBatchSize
	}

	active, err := c.keys.EnsureActiveKey(ctx, sc)
	if err != nil {
		return nil, err
	}
	result := &ResealResult{ActiveVersion: active.Version}

	for {
		batch, err := c.repo.ListSealedBefore(ctx, sc, active.Version, batchSize)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			break
		}

		var resealed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.resealConcurrency)
		for _, credential := range batch {
			g.Go(func() error {
				if err := c.resealOne(gctx, sc, credential, active.Version); err != nil {
					return err
				}
				resealed.Add(1)
				return nil
			})
		}
		err = g.Wait()
		result.Resealed += int(resealed.Load())
		if err != nil {
			c.logger.ErrorContext(ctx, "reseal batch failed",
				slog.String("tenant_id", sc.TenantID().String()),
				slog.Int("resealed", result.Resealed),
				slog.Any("error", err),
			)
			return result, err
		}
	}

	c.logger.InfoContext(ctx, "reseal completed",
		slog.String("tenant_id", sc.TenantID().String()),
		slog.Uint64("active_version", uint64(result.ActiveVersion)),
		slog.Int("resealed", result.Resealed),
	)
	return result, nil
}

func (c *credentialUseCase) resealOne(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
	target uint32,
) error {
	secret, err := c.reseal(ctx, sc, credential, credential.Secret, target)
	if err != nil {
		return err
	}
	credential.Secret = secret

	if credential.SSHPrivateKey != nil {
		sshKey, err := c.reseal(ctx, sc, credential, *credential.SSHPrivateKey, target)
		if err != nil {
			return err
		}
		credential.SSHPrivateKey = &sshKey
	}

	credential.UpdatedAt = time.Now().UTC()
	return c.repo.Update(ctx, sc, credential)
}

// reseal opens env and seals the plaintext under the active key. Envelopes already
// at or above target are returned unchanged.
func (c *credentialUseCase) reseal(
	ctx context.Context,
	sc scope.Context,
	credential *credentialsDomain.Credential,
	env vaultDomain.SecretEnvelope,
	target uint32,
) (vaultDomain.SecretEnvelope, error) {
	if env.KeyVersion >= target {
		return env, nil
	}

	plaintext, err := c.vault.Open(ctx, sc, credential.VaultRecord(), env)
	if err != nil {
		return vaultDomain.SecretEnvelope{}, err
	}
	defer cryptoDomain.Zero(plaintext)

	resealed, err := c.vault.SealRecord(ctx, sc, credential.ID.String(), plaintext)
	if err != nil {
		return vaultDomain.SecretEnvelope{}, err
	}
	if resealed.KeyVersion < target {
		return vaultDomain.SecretEnvelope{}, apperrors.Wrap(
			keysDomain.ErrConcurrentActivationConflict,
			"active key changed during reseal",
		)
	}
	return resealed, nil
}
