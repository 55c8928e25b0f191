// Package usecase implements the secret field envelope API on top of the key
// hierarchy and the AEAD codec.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	auditDomain "github.com/allisson/tenantvault/internal/audit/domain"
	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantvault/internal/crypto/service"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	keysUseCase "github.com/allisson/tenantvault/internal/keys/usecase"
	"github.com/allisson/tenantvault/internal/metrics"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
)

type vaultUseCase struct {
	keys     keysUseCase.KeyHierarchyUseCase
	codec    cryptoService.Codec
	guard    *scope.Guard
	sink     AuditSink
	timeout  time.Duration
	security metrics.SecurityMetrics
	logger   *slog.Logger
}

// NewVaultUseCase creates a VaultUseCase. A non-positive timeout disables the bound.
func NewVaultUseCase(
	keys keysUseCase.KeyHierarchyUseCase,
	codec cryptoService.Codec,
	guard *scope.Guard,
	sink AuditSink,
	timeout time.Duration,
	security metrics.SecurityMetrics,
	logger *slog.Logger,
) VaultUseCase {
	return &vaultUseCase{
		keys:     keys,
		codec:    codec,
		guard:    guard,
		sink:     sink,
		timeout:  timeout,
		security: security,
		logger:   logger,
	}
}

// Seal encrypts plaintext for the context's tenant.
func (v *vaultUseCase) Seal(
	ctx context.Context,
	sc scope.Context,
	plaintext []byte,
) (vaultDomain.SecretEnvelope, error) {
	return v.SealRecord(ctx, sc, "", plaintext)
}

// SealRecord encrypts plaintext and attributes the audit event to recordID.
func (v *vaultUseCase) SealRecord(
	ctx context.Context,
	sc scope.Context,
	recordID string,
	plaintext []byte,
) (vaultDomain.SecretEnvelope, error) {
	if err := v.guard.RequireTenant(ctx, sc); err != nil {
		return vaultDomain.SecretEnvelope{}, err
	}

	opCtx, cancel := v.withTimeout(ctx)
	defer cancel()

	dataKey, err := v.keys.GetActiveKey(opCtx, sc)
	if err != nil {
		err = v.timeoutError(opCtx, err)
		v.logger.ErrorContext(ctx, "failed to seal secret",
			slog.String("tenant_id", sc.TenantID().String()),
			slog.String("record_id", recordID),
			slog.Any("error", err),
		)
		return vaultDomain.SecretEnvelope{}, err
	}
	defer dataKey.Zero()

	aad := cryptoDomain.AssociatedData(cryptoDomain.PurposePayload, sc.TenantID(), dataKey.Version)
	sealed, err := v.codec.Seal(dataKey.Key, dataKey.Algorithm, plaintext, aad)
	if err != nil {
		v.security.RecordSecurityEvent(ctx, metrics.SecurityEventCryptoFault)
		v.logger.ErrorContext(ctx, "failed to seal secret",
			slog.String("tenant_id", sc.TenantID().String()),
			slog.String("record_id", recordID),
			slog.Any("error", err),
		)
		return vaultDomain.SecretEnvelope{}, apperrors.Wrap(cryptoDomain.ErrCryptoFault, "failed to seal secret")
	}

	v.emit(ctx, auditDomain.ActionSealed, sc, recordID)

	return vaultDomain.SecretEnvelope{
		Ciphertext: sealed.Ciphertext,
		Nonce:      sealed.Nonce,
		Tag:        sealed.Tag,
		KeyVersion: dataKey.Version,
	}, nil
}

// Open decrypts env for record. The guard check runs before any key is loaded.
func (v *vaultUseCase) Open(
	ctx context.Context,
	sc scope.Context,
	record vaultDomain.Record,
	env vaultDomain.SecretEnvelope,
) ([]byte, error) {
	if err := v.guard.CheckRecord(ctx, sc, record.TenantID, record.ID); err != nil {
		v.emit(ctx, auditDomain.ActionOpenDenied, sc, record.ID)
		return nil, err
	}

	opCtx, cancel := v.withTimeout(ctx)
	defer cancel()

	dataKey, err := v.keys.GetKeyByVersion(opCtx, sc, env.KeyVersion)
	if err != nil {
		err = v.timeoutError(opCtx, err)
		v.openFailed(ctx, sc, record, env, err)
		return nil, err
	}
	defer dataKey.Zero()

	aad := cryptoDomain.AssociatedData(cryptoDomain.PurposePayload, sc.TenantID(), env.KeyVersion)
	plaintext, err := v.codec.Open(dataKey.Key, dataKey.Algorithm, env.Sealed(), aad)
	if err != nil {
		v.security.RecordSecurityEvent(ctx, metrics.SecurityEventAuthenticationFailed)
		v.openFailed(ctx, sc, record, env, err)
		return nil, err
	}

	v.emit(ctx, auditDomain.ActionOpened, sc, record.ID)
	return plaintext, nil
}

func (v *vaultUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}

// timeoutError replaces err with ErrOperationTimeout when the operation's own
// bound expired. Cancellation of the caller's context is returned unchanged.
func (v *vaultUseCase) timeoutError(opCtx context.Context, err error) error {
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return vaultDomain.ErrOperationTimeout
	}
	return err
}

func (v *vaultUseCase) openFailed(
	ctx context.Context,
	sc scope.Context,
	record vaultDomain.Record,
	env vaultDomain.SecretEnvelope,
	err error,
) {
	level := slog.LevelError
	if apperrors.Retryable(err) {
		level = slog.LevelWarn
	}
	v.logger.Log(ctx, level, "failed to open secret",
		slog.String("tenant_id", sc.TenantID().String()),
		slog.String("record_id", record.ID),
		slog.Uint64("key_version", uint64(env.KeyVersion)),
		slog.Any("error", err),
	)
	v.emit(ctx, auditDomain.ActionOpenFailed, sc, record.ID)
}

// emit hands an event to the sink. Sink failures never fail the operation.
func (v *vaultUseCase) emit(ctx context.Context, action auditDomain.Action, sc scope.Context, recordID string) {
	event := auditDomain.NewEvent(action, sc.TenantID(), recordID)
	if err := v.sink.Emit(ctx, event); err != nil {
		v.logger.WarnContext(ctx, "failed to emit audit event",
			slog.String("action", string(action)),
			slog.String("tenant_id", sc.TenantID().String()),
			slog.String("record_id", recordID),
			slog.Any("error", err),
		)
	}
}
