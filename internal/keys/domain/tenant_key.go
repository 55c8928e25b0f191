// Package domain defines the per-tenant data key hierarchy.
//
// The hierarchy has two tiers. A root secret, external to the process, derives the
// root wrapping key through PBKDF2. Each tenant owns a chain of versioned data keys,
// each a random 256-bit key sealed under the wrapping key and persisted as a
// TenantKey row:
//
//	Root secret → PBKDF2 → Wrapping key → TenantKey v1, v2, ... (one active)
//	                                         ↓
//	                                 Seal/Open secret payloads
//
// Versions are strictly increasing per tenant and never reused. Deactivated
// versions are kept forever so that payloads sealed under them stay readable.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

// TenantKey is one persisted version of a tenant's data key, stored wrapped.
type TenantKey struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Version       uint32
	Algorithm     cryptoDomain.Algorithm
	WrappedKey    []byte // Data key sealed under the root wrapping key
	Nonce         []byte
	Tag           []byte
	Active        bool
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// Sealed returns the wrapped data key in codec form.
func (k *TenantKey) Sealed() cryptoDomain.Sealed {
	return cryptoDomain.Sealed{
		Ciphertext: k.WrappedKey,
		Nonce:      k.Nonce,
		Tag:        k.Tag,
	}
}

// DataKey is an unwrapped data key. It lives only for the duration of one seal or
// open; callers zero it when done.
type DataKey struct {
	TenantID  uuid.UUID
	Version   uint32
	Algorithm cryptoDomain.Algorithm
	Key       []byte
}

// Zero clears the plaintext key material.
func (d *DataKey) Zero() {
	if d == nil {
		return
	}
	cryptoDomain.Zero(d.Key)
}
