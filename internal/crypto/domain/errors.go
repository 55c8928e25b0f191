package domain

import (
	"github.com/allisson/tenantvault/internal/errors"
)

// Cryptographic error definitions.
//
// These errors wrap the standard errors from internal/errors so that the HTTP
// layer can map them without knowing about cryptography. Messages are generic on
// purpose: callers only ever learn that an operation failed, never why.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is unknown.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrAuthenticationFailed indicates the authentication tag did not verify or the
	// sealed input was malformed (wrong nonce or tag length, wrong associated data,
	// wrong key, tampered ciphertext). The specific cause is never disclosed.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")

	// ErrCryptoFault indicates the cipher itself could not run: the secure random
	// source was unavailable or key material could not be unwrapped. It should never
	// happen absent corruption and is treated as fatal.
	ErrCryptoFault = errors.Wrap(errors.ErrInternal, "cryptographic fault")

	// ErrRootSecretUnavailable indicates the process root secret is missing or could
	// not be recovered from the KMS. No tenant can be served.
	ErrRootSecretUnavailable = errors.Wrap(errors.ErrInternal, "root secret unavailable")
)
