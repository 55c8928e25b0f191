// Package usecase implements the key hierarchy manager.
//
// Data keys are random 256-bit keys wrapped under the root-derived wrapping key and
// persisted as TenantKey rows. Activation is protected by unique indexes in the
// database: a writer that loses a race gets ErrConcurrentActivationConflict and is
// retried with exponential backoff up to a fixed number of attempts. Within one
// process, concurrent first use for the same tenant is coalesced with singleflight
// so only one caller goes to the database. The shared creation runs detached from
// any one caller's cancellation and is bounded by its own timeout; each caller
// still stops waiting when its own context ends.
package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantvault/internal/crypto/service"
	"github.com/allisson/tenantvault/internal/database"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/metrics"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

const (
	retryInitialInterval = 10 * time.Millisecond
	retryMaxInterval     = 250 * time.Millisecond
	firstUseTimeout      = 5 * time.Second
)

type keyHierarchyUseCase struct {
	txManager  database.TxManager
	keyRepo    TenantKeyRepository
	codec      cryptoService.Codec
	wrapping   cryptoService.WrappingKeyProvider
	guard      *scope.Guard
	algorithm  cryptoDomain.Algorithm
	maxRetries uint64
	random     io.Reader
	security   metrics.SecurityMetrics
	logger     *slog.Logger

	group         singleflight.Group
	flightTimeout time.Duration
	newBackOff    func() backoff.BackOff
}

// NewKeyHierarchyUseCase creates a KeyHierarchyUseCase. New key versions use alg;
// existing versions keep the algorithm they were created with.
func NewKeyHierarchyUseCase(
	txManager database.TxManager,
	keyRepo TenantKeyRepository,
	codec cryptoService.Codec,
	wrapping cryptoService.WrappingKeyProvider,
	guard *scope.Guard,
	alg cryptoDomain.Algorithm,
	maxRetries int,
	security metrics.SecurityMetrics,
	logger *slog.Logger,
) KeyHierarchyUseCase {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &keyHierarchyUseCase{
		txManager:  txManager,
		keyRepo:    keyRepo,
		codec:      codec,
		wrapping:   wrapping,
		guard:      guard,
		algorithm:  alg,
		maxRetries: uint64(maxRetries),
		random:     rand.Reader,
		security:   security,
		logger:     logger,

		flightTimeout: firstUseTimeout,

		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = retryInitialInterval
			b.MaxInterval = retryMaxInterval
			return b
		},
	}
}

// GetActiveKey returns the tenant's active data key, unwrapped.
func (k *keyHierarchyUseCase) GetActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.DataKey, error) {
	tk, err := k.EnsureActiveKey(ctx, sc)
	if err != nil {
		return nil, err
	}
	return k.unwrap(ctx, tk)
}

// GetKeyByVersion loads a version of the tenant's key and cross-checks that the
// row belongs to the context's tenant before unwrapping it.
func (k *keyHierarchyUseCase) GetKeyByVersion(
	ctx context.Context,
	sc scope.Context,
	version uint32,
) (*keysDomain.DataKey, error) {
	if err := k.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}

	tk, err := k.keyRepo.GetByVersion(ctx, sc.TenantID(), version)
	if err != nil {
		if errors.Is(err, keysDomain.ErrKeyNotFound) {
			k.keyNotFound(ctx, sc, version)
		}
		return nil, err
	}

	if tk.TenantID != sc.TenantID() || tk.Version != version {
		k.keyNotFound(ctx, sc, version)
		return nil, keysDomain.ErrKeyNotFound
	}

	return k.unwrap(ctx, tk)
}

// EnsureActiveKey returns the active TenantKey, creating one when the tenant has none.
func (k *keyHierarchyUseCase) EnsureActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error) {
	if err := k.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}

	tenantID := sc.TenantID()
	tk, err := k.keyRepo.GetActive(ctx, tenantID)
	if err == nil {
		return tk, nil
	}
	if !errors.Is(err, keysDomain.ErrNoActiveKey) {
		return nil, err
	}

	ch := k.group.DoChan(tenantID.String(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.flightTimeout)
		defer cancel()

		return retryOnConflict(flightCtx, k, "create_first_key", tenantID, func() (*keysDomain.TenantKey, error) {
			return k.createActiveKey(flightCtx, tenantID)
		})
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*keysDomain.TenantKey), nil
	}
}

// createActiveKey re-reads the active key and, if there still is none, inserts
// the next version as active. A concurrent writer makes the insert fail with
// ErrConcurrentActivationConflict.
func (k *keyHierarchyUseCase) createActiveKey(ctx context.Context, tenantID uuid.UUID) (*keysDomain.TenantKey, error) {
	tk, err := k.keyRepo.GetActive(ctx, tenantID)
	if err == nil {
		return tk, nil
	}
	if !errors.Is(err, keysDomain.ErrNoActiveKey) {
		return nil, err
	}

	var created *keysDomain.TenantKey
	err = k.txManager.WithTx(ctx, func(ctx context.Context) error {
		maxVersion, err := k.keyRepo.GetMaxVersion(ctx, tenantID)
		if err != nil {
			return err
		}

		created, err = k.newTenantKey(ctx, tenantID, maxVersion+1)
		if err != nil {
			return err
		}
		return k.keyRepo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	k.logger.InfoContext(
		ctx,
		"tenant key created",
		slog.String("tenant_id", tenantID.String()),
		slog.Uint64("key_version", uint64(created.Version)),
	)
	return created, nil
}

// Rotate creates the next key version and activates it, deactivating the previous
// active version in the same transaction.
func (k *keyHierarchyUseCase) Rotate(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error) {
	if err := k.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}

	tenantID := sc.TenantID()
	tk, err := retryOnConflict(ctx, k, "rotate", tenantID, func() (*keysDomain.TenantKey, error) {
		var created *keysDomain.TenantKey
		err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
			if err := k.keyRepo.DeactivateActive(ctx, tenantID, time.Now().UTC()); err != nil {
				return err
			}

			maxVersion, err := k.keyRepo.GetMaxVersion(ctx, tenantID)
			if err != nil {
				return err
			}

			created, err = k.newTenantKey(ctx, tenantID, maxVersion+1)
			if err != nil {
				return err
			}
			return k.keyRepo.Create(ctx, created)
		})
		return created, err
	})
	if err != nil {
		return nil, err
	}

	k.logger.InfoContext(
		ctx,
		"tenant key rotated",
		slog.String("tenant_id", tenantID.String()),
		slog.Uint64("key_version", uint64(tk.Version)),
	)
	return tk, nil
}

// Activate makes an existing version the active one.
func (k *keyHierarchyUseCase) Activate(ctx context.Context, sc scope.Context, version uint32) error {
	if err := k.guard.RequireTenant(ctx, sc); err != nil {
		return err
	}

	tenantID := sc.TenantID()
	_, err := retryOnConflict(ctx, k, "activate", tenantID, func() (struct{}, error) {
		return struct{}{}, k.txManager.WithTx(ctx, func(ctx context.Context) error {
			tk, err := k.keyRepo.GetByVersion(ctx, tenantID, version)
			if err != nil {
				return err
			}
			if tk.Active {
				return nil
			}
			if err := k.keyRepo.DeactivateActive(ctx, tenantID, time.Now().UTC()); err != nil {
				return err
			}
			return k.keyRepo.Activate(ctx, tenantID, version)
		})
	})
	return err
}

// Deactivate marks a version inactive. The row is kept so envelopes sealed under
// it stay readable. If it was the active version, the next seal creates a new one.
func (k *keyHierarchyUseCase) Deactivate(ctx context.Context, sc scope.Context, version uint32) error {
	if err := k.guard.RequireTenant(ctx, sc); err != nil {
		return err
	}
	return k.keyRepo.Deactivate(ctx, sc.TenantID(), version, time.Now().UTC())
}

// List returns key metadata, newest version first.
func (k *keyHierarchyUseCase) List(ctx context.Context, sc scope.Context) ([]*keysDomain.TenantKey, error) {
	if err := k.guard.RequireTenant(ctx, sc); err != nil {
		return nil, err
	}
	return k.keyRepo.List(ctx, sc.TenantID())
}

// newTenantKey generates a random data key and wraps it under the root-derived
// wrapping key. The plaintext key is zeroed before returning.
func (k *keyHierarchyUseCase) newTenantKey(
	ctx context.Context,
	tenantID uuid.UUID,
	version uint32,
) (*keysDomain.TenantKey, error) {
	wrappingKey, err := k.wrapping.WrappingKey(ctx)
	if err != nil {
		return nil, err
	}

	dataKey := make([]byte, cryptoDomain.KeySize)
	defer cryptoDomain.Zero(dataKey)
	if _, err := io.ReadFull(k.random, dataKey); err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrCryptoFault, "failed to generate data key")
	}

	sealed, err := k.codec.Seal(
		wrappingKey,
		k.algorithm,
		dataKey,
		cryptoDomain.AssociatedData(cryptoDomain.PurposeKeyWrap, tenantID, version),
	)
	if err != nil {
		return nil, err
	}

	return &keysDomain.TenantKey{
		ID:         uuid.Must(uuid.NewV7()),
		TenantID:   tenantID,
		Version:    version,
		Algorithm:  k.algorithm,
		WrappedKey: sealed.Ciphertext,
		Nonce:      sealed.Nonce,
		Tag:        sealed.Tag,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// unwrap opens a wrapped data key. Failure here means key corruption or a wrong
// root secret and is reported as ErrCryptoFault.
func (k *keyHierarchyUseCase) unwrap(ctx context.Context, tk *keysDomain.TenantKey) (*keysDomain.DataKey, error) {
	wrappingKey, err := k.wrapping.WrappingKey(ctx)
	if err != nil {
		return nil, err
	}

	key, err := k.codec.Open(
		wrappingKey,
		tk.Algorithm,
		tk.Sealed(),
		cryptoDomain.AssociatedData(cryptoDomain.PurposeKeyWrap, tk.TenantID, tk.Version),
	)
	if err != nil {
		k.security.RecordSecurityEvent(ctx, metrics.SecurityEventCryptoFault)
		k.logger.ErrorContext(
			ctx,
			"failed to unwrap tenant key",
			slog.String("security_event", metrics.SecurityEventCryptoFault),
			slog.String("tenant_id", tk.TenantID.String()),
			slog.Uint64("key_version", uint64(tk.Version)),
			slog.Any("error", err),
		)
		return nil, apperrors.Wrap(cryptoDomain.ErrCryptoFault, "failed to unwrap tenant key")
	}

	return &keysDomain.DataKey{
		TenantID:  tk.TenantID,
		Version:   tk.Version,
		Algorithm: tk.Algorithm,
		Key:       key,
	}, nil
}

func (k *keyHierarchyUseCase) keyNotFound(ctx context.Context, sc scope.Context, version uint32) {
	k.security.RecordSecurityEvent(ctx, metrics.SecurityEventKeyNotFound)
	k.logger.WarnContext(
		ctx,
		"tenant key version not found",
		slog.String("security_event", metrics.SecurityEventKeyNotFound),
		slog.String("tenant_id", sc.TenantID().String()),
		slog.Uint64("key_version", uint64(version)),
	)
}

// retryOnConflict runs op until it succeeds, fails with anything other than
// ErrConcurrentActivationConflict, or the retry budget is spent.
func retryOnConflict[T any](
	ctx context.Context,
	k *keyHierarchyUseCase,
	operation string,
	tenantID uuid.UUID,
	op func() (T, error),
) (T, error) {
	b := backoff.WithContext(backoff.WithMaxRetries(k.newBackOff(), k.maxRetries), ctx)

	return backoff.RetryNotifyWithData(func() (T, error) {
		result, err := op()
		if err != nil && !errors.Is(err, keysDomain.ErrConcurrentActivationConflict) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, b, func(err error, wait time.Duration) {
		k.logger.WarnContext(
			ctx,
			"key activation conflict, retrying",
			slog.String("operation", operation),
			slog.String("tenant_id", tenantID.String()),
			slog.Duration("wait", wait),
		)
	})
}
