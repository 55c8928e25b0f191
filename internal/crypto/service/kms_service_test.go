package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

// generateLocalSecretsURI generates a base64key:// URI for testing.
func generateLocalSecretsURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

// encryptRootSecret mimics the create-root-secret command.
func encryptRootSecret(t *testing.T, keyURI string, secret []byte) string {
	t.Helper()
	ctx := context.Background()
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, keeper.Close())
	}()

	ciphertext, err := keeper.Encrypt(ctx, secret)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(ciphertext)
}

func TestKMSService_OpenKeeper(t *testing.T) {
	ctx := context.Background()
	kmsService := NewKMSService()

	t.Run("local secrets", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, generateLocalSecretsURI(t))
		require.NoError(t, err)
		_, ok := keeper.(*secrets.Keeper)
		assert.True(t, ok, "keeper should be *secrets.Keeper")
		assert.NoError(t, keeper.Close())
	})

	t.Run("invalid uri", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, "invalid://uri")
		assert.ErrorIs(t, err, ErrUnsupportedKMS)
		assert.Nil(t, keeper)
		assert.Contains(t, err.Error(), "failed to open KMS keeper")
	})

	t.Run("malformed local key", func(t *testing.T) {
		keeper, err := kmsService.OpenKeeper(ctx, "base64key://not-a-key")
		assert.Error(t, err)
		assert.Nil(t, keeper)
	})
}

func TestValidateKeyURI(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		keyURI   string
		errMsg   string
	}{
		{name: "local", provider: "localsecrets", keyURI: "base64key://c2VjcmV0"},
		{name: "aws", provider: "awskms", keyURI: "awskms://alias/vault?region=us-east-1"},
		{name: "vault transit", provider: "hashivault", keyURI: "hashivault://tenantvault"},
		{name: "scheme only", provider: "", keyURI: "gcpkms://projects/p/locations/l/keyRings/r/cryptoKeys/k"},
		{name: "provider mismatch", provider: "awskms", keyURI: "gcpkms://projects/p", errMsg: "does not match provider"},
		{name: "unknown provider", provider: "vaultx", keyURI: "base64key://c2VjcmV0", errMsg: "unsupported KMS provider"},
		{name: "unknown scheme", provider: "", keyURI: "ftp://host/key", errMsg: "unsupported KMS provider"},
		{name: "no scheme", provider: "", keyURI: "just-a-key", errMsg: "missing scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyURI(tt.provider, tt.keyURI)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestKMSProviders(t *testing.T) {
	assert.Equal(t,
		[]string{"awskms", "azurekeyvault", "gcpkms", "hashivault", "localsecrets"},
		KMSProviders(),
	)
}

func TestStaticRootSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a copy", func(t *testing.T) {
		source := NewStaticRootSecret("opaque")
		secret, err := source.RootSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("opaque"), secret)

		cryptoDomain.Zero(secret)
		again, err := source.RootSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("opaque"), again)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewStaticRootSecret("").RootSecret(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)
	})
}

func TestKMSRootSecret(t *testing.T) {
	ctx := context.Background()
	keyURI := generateLocalSecretsURI(t)
	ciphertext := encryptRootSecret(t, keyURI, []byte("kms-protected-root"))

	t.Run("decrypts", func(t *testing.T) {
		source := NewKMSRootSecret(NewKMSService(), keyURI, ciphertext)
		secret, err := source.RootSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("kms-protected-root"), secret)
	})

	t.Run("feeds the wrapping key deriver", func(t *testing.T) {
		deriver := NewWrappingKeyDeriver(NewKMSRootSecret(NewKMSService(), keyURI, ciphertext), "salt", 1000)
		key, err := deriver.WrappingKey(ctx)
		require.NoError(t, err)
		assert.Len(t, key, cryptoDomain.KeySize)
	})

	t.Run("wrong key", func(t *testing.T) {
		source := NewKMSRootSecret(NewKMSService(), generateLocalSecretsURI(t), ciphertext)
		_, err := source.RootSecret(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)
	})

	t.Run("invalid base64", func(t *testing.T) {
		source := NewKMSRootSecret(NewKMSService(), keyURI, "not base64!!")
		_, err := source.RootSecret(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)
	})

	t.Run("invalid uri", func(t *testing.T) {
		source := NewKMSRootSecret(NewKMSService(), "invalid://uri", ciphertext)
		_, err := source.RootSecret(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)
	})

	t.Run("missing configuration", func(t *testing.T) {
		_, err := NewKMSRootSecret(NewKMSService(), "", ciphertext).RootSecret(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)
	})
}
