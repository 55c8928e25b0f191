// Package domain defines the cryptographic value types shared by the key hierarchy
// and the secret envelope API.
//
// Every key in the system is 256 bits. Payloads and wrapped keys are sealed with an
// AEAD cipher and carried as a Sealed value: ciphertext, 96-bit nonce and 128-bit
// authentication tag kept in separate fields so that they can be persisted in
// separate columns.
package domain

// Algorithm represents the AEAD algorithm used to seal a payload or a wrapped key.
//
// Both algorithms provide equivalent 256-bit security:
//   - Use AESGCM on CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on platforms without AES acceleration
type Algorithm string

const (
	// AESGCM represents AES-256 in Galois/Counter Mode.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 construction.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the size in bytes of every data key and wrapping key.
	KeySize = 32
	// NonceSize is the size in bytes of the per-call random nonce (96 bits).
	NonceSize = 12
	// TagSize is the size in bytes of the authentication tag (128 bits).
	TagSize = 16
)

// ParseAlgorithm converts a configuration or database string into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
