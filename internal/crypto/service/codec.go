package service

import (
	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

// CodecService implements Codec on top of an AEADManager.
type CodecService struct {
	aeadManager AEADManager
}

// NewCodec creates a new CodecService.
func NewCodec(aeadManager AEADManager) *CodecService {
	return &CodecService{aeadManager: aeadManager}
}

// Seal encrypts plaintext under key with a fresh random nonce.
func (c *CodecService) Seal(
	key []byte,
	alg cryptoDomain.Algorithm,
	plaintext, aad []byte,
) (cryptoDomain.Sealed, error) {
	aead, err := c.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return cryptoDomain.Sealed{}, err
	}
	return aead.Seal(plaintext, aad)
}

// Open authenticates and decrypts sealed. A wrong key, wrong aad, malformed
// nonce or tag, or any modified byte all yield ErrAuthenticationFailed.
func (c *CodecService) Open(
	key []byte,
	alg cryptoDomain.Algorithm,
	sealed cryptoDomain.Sealed,
	aad []byte,
) ([]byte, error) {
	aead, err := c.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return nil, err
	}
	return aead.Open(sealed, aad)
}
