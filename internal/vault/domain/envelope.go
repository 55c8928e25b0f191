// Package domain defines the secret envelope stored in place of a plaintext
// secret, and the record reference every open is checked against.
package domain

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	apperrors "github.com/allisson/tenantvault/internal/errors"
)

// envelopeFormat prefixes the portable string form.
const envelopeFormat = "v1"

// SecretEnvelope is the sealed form of one secret value.
//
// It carries no tenant identity: the tenant comes from the caller's scope.Context
// and is bound into the authentication tag through the associated data.
type SecretEnvelope struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
	KeyVersion uint32
}

// Sealed returns the envelope in codec form.
func (e SecretEnvelope) Sealed() cryptoDomain.Sealed {
	return cryptoDomain.Sealed{
		Ciphertext: e.Ciphertext,
		Nonce:      e.Nonce,
		Tag:        e.Tag,
	}
}

// IsZero reports whether the envelope is empty.
func (e SecretEnvelope) IsZero() bool {
	return e.KeyVersion == 0 && len(e.Ciphertext) == 0 && len(e.Nonce) == 0 && len(e.Tag) == 0
}

// String serializes the envelope as "v1:<keyVersion>:<nonce>:<ciphertext>:<tag>"
// with standard base64 for the binary parts.
func (e SecretEnvelope) String() string {
	return fmt.Sprintf(
		"%s:%d:%s:%s:%s",
		envelopeFormat,
		e.KeyVersion,
		base64.StdEncoding.EncodeToString(e.Nonce),
		base64.StdEncoding.EncodeToString(e.Ciphertext),
		base64.StdEncoding.EncodeToString(e.Tag),
	)
}

// ParseEnvelope parses the String form. Any malformed input yields
// ErrAuthenticationFailed, the same outcome as a tampered envelope.
func ParseEnvelope(content string) (SecretEnvelope, error) {
	parts := strings.Split(content, ":")
	if len(parts) != 5 || parts[0] != envelopeFormat {
		return SecretEnvelope{}, malformed("unexpected envelope layout")
	}

	version, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || version == 0 {
		return SecretEnvelope{}, malformed("invalid envelope key version")
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(nonce) != cryptoDomain.NonceSize {
		return SecretEnvelope{}, malformed("invalid envelope nonce")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return SecretEnvelope{}, malformed("invalid envelope ciphertext")
	}

	tag, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(tag) != cryptoDomain.TagSize {
		return SecretEnvelope{}, malformed("invalid envelope tag")
	}

	return SecretEnvelope{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Tag:        tag,
		KeyVersion: uint32(version),
	}, nil
}

func malformed(msg string) error {
	return apperrors.Wrap(cryptoDomain.ErrAuthenticationFailed, msg)
}

// Record identifies the secret-bearing record an envelope belongs to. TenantID is
// the record's own tenant reference as loaded from storage.
type Record struct {
	TenantID uuid.UUID
	ID       string
}
