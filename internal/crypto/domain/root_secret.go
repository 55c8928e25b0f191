package domain

import "context"

// KMSKeeper is the subset of *secrets.Keeper (gocloud.dev) needed to recover a
// KMS-wrapped root secret.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// RootSecretSource provides the raw process root secret.
//
// Implementations return a fresh copy on every call; the caller zeroes it once the
// wrapping key has been derived.
type RootSecretSource interface {
	RootSecret(ctx context.Context) ([]byte, error)
}
