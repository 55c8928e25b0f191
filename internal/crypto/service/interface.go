// Package service provides the cryptographic primitives of the vault: the AEAD
// codec used for payloads and wrapped keys, the root-derived wrapping key, and the
// sources the root secret can be read from.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

// AEAD defines a cipher bound to a single key.
type AEAD interface {
	// Seal encrypts plaintext under a fresh random nonce and authenticates aad.
	Seal(plaintext, aad []byte) (cryptoDomain.Sealed, error)

	// Open verifies and decrypts a sealed value. Any failure is reported as
	// cryptoDomain.ErrAuthenticationFailed.
	Open(sealed cryptoDomain.Sealed, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Codec is the stateless authenticated encryption codec. Callers pass the key on
// every call; the codec never retains it.
type Codec interface {
	// Seal encrypts plaintext under key, binding aad into the authentication tag.
	Seal(key []byte, alg cryptoDomain.Algorithm, plaintext, aad []byte) (cryptoDomain.Sealed, error)

	// Open authenticates and decrypts sealed under key with the same aad used to seal.
	Open(key []byte, alg cryptoDomain.Algorithm, sealed cryptoDomain.Sealed, aad []byte) ([]byte, error)
}

// WrappingKeyProvider returns the root-derived wrapping key used to wrap tenant
// data keys. The returned slice is shared and must not be modified.
type WrappingKeyProvider interface {
	WrappingKey(ctx context.Context) ([]byte, error)
}
