package domain

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Sealed is the output of an AEAD seal: ciphertext, nonce and tag stored apart.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
}

// Purpose separates the associated data of wrapped keys from that of payloads, so
// a wrapped data key can never be opened as a payload and vice versa.
type Purpose byte

const (
	// PurposeKeyWrap binds a tenant data key wrapped under the root wrapping key.
	PurposeKeyWrap Purpose = 'k'
	// PurposePayload binds a secret payload sealed under a tenant data key.
	PurposePayload Purpose = 'd'
)

// associatedDataVersion is bumped if the encoding below ever changes.
const associatedDataVersion byte = 1

// AssociatedData builds the fixed-length associated data binding a sealed value to
// its tenant and key version:
//
//	[format version (1)] [purpose (1)] [tenant id (16)] [key version, big endian (4)]
//
// A ciphertext moved to another tenant or relabelled with another key version fails
// authentication.
func AssociatedData(purpose Purpose, tenantID uuid.UUID, keyVersion uint32) []byte {
	aad := make([]byte, 0, 2+16+4)
	aad = append(aad, associatedDataVersion, byte(purpose))
	aad = append(aad, tenantID[:]...)
	aad = binary.BigEndian.AppendUint32(aad, keyVersion)
	return aad
}
