package service

import (
	"bytes"
	"context"
	"encoding/base64"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	apperrors "github.com/allisson/tenantvault/internal/errors"
)

// StaticRootSecret serves a root secret supplied directly through configuration.
type StaticRootSecret struct {
	secret []byte
}

// NewStaticRootSecret creates a StaticRootSecret from the raw ROOT_SECRET value.
func NewStaticRootSecret(secret string) *StaticRootSecret {
	return &StaticRootSecret{secret: []byte(secret)}
}

// RootSecret returns a copy of the configured secret.
func (s *StaticRootSecret) RootSecret(_ context.Context) ([]byte, error) {
	if len(s.secret) == 0 {
		return nil, cryptoDomain.ErrRootSecretUnavailable
	}
	return bytes.Clone(s.secret), nil
}

// KMSRootSecret recovers the root secret by decrypting a base64 KMS ciphertext.
type KMSRootSecret struct {
	kmsService KMSService
	keyURI     string
	ciphertext string
}

// NewKMSRootSecret creates a KMSRootSecret. ciphertext is the base64 value produced
// by the create-root-secret command.
func NewKMSRootSecret(kmsService KMSService, keyURI, ciphertext string) *KMSRootSecret {
	return &KMSRootSecret{kmsService: kmsService, keyURI: keyURI, ciphertext: ciphertext}
}

// RootSecret opens the keeper, decrypts the ciphertext and closes the keeper.
func (k *KMSRootSecret) RootSecret(ctx context.Context) ([]byte, error) {
	if k.ciphertext == "" || k.keyURI == "" {
		return nil, cryptoDomain.ErrRootSecretUnavailable
	}

	encrypted, err := base64.StdEncoding.DecodeString(k.ciphertext)
	if err != nil {
		return nil, apperrors.Wrapf(cryptoDomain.ErrRootSecretUnavailable, "invalid root secret encoding: %v", err)
	}

	keeper, err := k.kmsService.OpenKeeper(ctx, k.keyURI)
	if err != nil {
		return nil, apperrors.Wrapf(cryptoDomain.ErrRootSecretUnavailable, "%v", err)
	}
	defer func() {
		_ = keeper.Close()
	}()

	secret, err := keeper.Decrypt(ctx, encrypted)
	if err != nil {
		return nil, apperrors.Wrapf(cryptoDomain.ErrRootSecretUnavailable, "failed to decrypt root secret: %v", err)
	}
	if len(secret) == 0 {
		return nil, cryptoDomain.ErrRootSecretUnavailable
	}
	return secret, nil
}
