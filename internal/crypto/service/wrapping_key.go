package service

import (
	"context"
	"crypto/sha256"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

const deriveTimeout = 30 * time.Second

// WrappingKeyDeriver derives the root-derived wrapping key with PBKDF2-HMAC-SHA256
// and memoizes it for the lifetime of the process.
//
// The root secret is never used directly as an AEAD key. Derivation runs at most
// once at a time: concurrent first callers share a single KDF run and no lock is
// held while it executes. A failed derivation is not memoized, so a transient KMS
// outage at startup can recover on the next call. The shared derivation is not
// canceled by the caller that started it and is bounded by deriveTimeout.
type WrappingKeyDeriver struct {
	source     cryptoDomain.RootSecretSource
	salt       []byte
	iterations int
	timeout    time.Duration

	group singleflight.Group
	key   atomic.Pointer[[]byte]
}

// NewWrappingKeyDeriver creates a deriver reading the root secret from source.
func NewWrappingKeyDeriver(
	source cryptoDomain.RootSecretSource,
	salt string,
	iterations int,
) *WrappingKeyDeriver {
	return &WrappingKeyDeriver{
		source:     source,
		salt:       []byte(salt),
		iterations: iterations,
		timeout:    deriveTimeout,
	}
}

// WrappingKey returns the memoized wrapping key, deriving it on first use.
func (d *WrappingKeyDeriver) WrappingKey(ctx context.Context) ([]byte, error) {
	if key := d.key.Load(); key != nil {
		return *key, nil
	}

	ch := d.group.DoChan("wrapping-key", func() (any, error) {
		if key := d.key.Load(); key != nil {
			return *key, nil
		}

		deriveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		secret, err := d.source.RootSecret(deriveCtx)
		if err != nil {
			return nil, err
		}
		defer cryptoDomain.Zero(secret)

		if len(secret) == 0 || d.iterations <= 0 || len(d.salt) == 0 {
			return nil, cryptoDomain.ErrRootSecretUnavailable
		}

		key := pbkdf2.Key(secret, d.salt, d.iterations, cryptoDomain.KeySize, sha256.New)
		d.key.Store(&key)
		return key, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Close zeroes the memoized key. The next WrappingKey call derives it again.
func (d *WrappingKeyDeriver) Close() {
	if key := d.key.Swap(nil); key != nil {
		cryptoDomain.Zero(*key)
	}
}
