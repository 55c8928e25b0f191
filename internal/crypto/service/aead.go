package service

import (
	"crypto/cipher"
	"io"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

// sealer adapts a standard library cipher.AEAD to the detached-tag Sealed layout.
//
// cipher.AEAD appends the tag to the ciphertext; Seal splits it off and Open
// joins it back before verification. Tag comparison happens inside the GCM and
// Poly1305 implementations, which compare in constant time.
type sealer struct {
	aead   cipher.AEAD
	random io.Reader
}

func (s *sealer) Seal(plaintext, aad []byte) (cryptoDomain.Sealed, error) {
	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return cryptoDomain.Sealed{}, cryptoDomain.ErrCryptoFault
	}

	out := s.aead.Seal(nil, nonce, plaintext, aad)
	split := len(out) - cryptoDomain.TagSize

	return cryptoDomain.Sealed{
		Ciphertext: out[:split:split],
		Nonce:      nonce,
		Tag:        out[split:],
	}, nil
}

func (s *sealer) Open(sealed cryptoDomain.Sealed, aad []byte) ([]byte, error) {
	if len(sealed.Nonce) != cryptoDomain.NonceSize || len(sealed.Tag) != cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	joined := make([]byte, 0, len(sealed.Ciphertext)+len(sealed.Tag))
	joined = append(joined, sealed.Ciphertext...)
	joined = append(joined, sealed.Tag...)

	plaintext, err := s.aead.Open(nil, sealed.Nonce, joined, aad)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}
	return plaintext, nil
}
