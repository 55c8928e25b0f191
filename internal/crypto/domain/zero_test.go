package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	secret := []byte("S3cr3t!")
	sshKey := bytes.Repeat([]byte{0xAB}, 256)

	Zero(secret, nil, sshKey)

	assert.Equal(t, make([]byte, 7), secret)
	assert.Equal(t, make([]byte, 256), sshKey)
	assert.NotPanics(t, func() { Zero() })
	assert.NotPanics(t, func() { Zero(nil) })
}

func TestZero_SharedBackingArray(t *testing.T) {
	envelope := []byte("nonce|ciphertext|tag")
	ciphertext := envelope[6:16]

	Zero(ciphertext)

	assert.Equal(t, []byte("nonce|"), envelope[:6])
	assert.Equal(t, make([]byte, 10), envelope[6:16])
	assert.Equal(t, []byte("|tag"), envelope[16:])
}
