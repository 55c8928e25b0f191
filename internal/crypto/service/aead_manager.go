package service

import (
	"crypto/rand"
	"io"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

// AEADManagerService implements the AEADManager interface for creating AEAD cipher instances.
type AEADManagerService struct {
	random io.Reader
}

// NewAEADManager creates a new AEADManagerService reading nonces from crypto/rand.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{random: rand.Reader}
}

// CreateCipher creates an AEAD cipher instance for the specified algorithm.
// Returns ErrInvalidKeySize if key is not 32 bytes or ErrUnsupportedAlgorithm if algorithm is unknown.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	switch alg {
	case cryptoDomain.AESGCM:
		return newAESGCM(key, am.random)
	case cryptoDomain.ChaCha20:
		return newChaCha20Poly1305(key, am.random)
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}
