package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	apperrors "github.com/allisson/tenantvault/internal/errors"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
)

func TestCredential_Validate(t *testing.T) {
	valid := func() *Credential {
		return &Credential{
			Name:     "production db",
			Username: "app",
			Email:    "ops@acme.test",
			Category: CategoryDatabase,
			Tags:     []string{"prod"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Credential)
		wantErr bool
	}{
		{name: "Valid", mutate: func(*Credential) {}},
		{name: "EmptyEmailAllowed", mutate: func(c *Credential) { c.Email = "" }},
		{name: "BlankName", mutate: func(c *Credential) { c.Name = "   " }, wantErr: true},
		{name: "BadEmail", mutate: func(c *Credential) { c.Email = "not-an-email" }, wantErr: true},
		{name: "UnknownCategory", mutate: func(c *Credential) { c.Category = "vault" }, wantErr: true},
		{name: "MissingCategory", mutate: func(c *Credential) { c.Category = "" }, wantErr: true},
		{name: "DatabaseURL", mutate: func(c *Credential) { c.URL = "postgres://db.internal:5432/app" }},
		{name: "RelativeURL", mutate: func(c *Credential) { c.URL = "db.internal/app" }, wantErr: true},
		{name: "BlankTag", mutate: func(c *Credential) { c.Tags = []string{" "} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCredential_VaultRecord(t *testing.T) {
	c := &Credential{ID: uuid.Must(uuid.NewV7()), TenantID: uuid.Must(uuid.NewV7())}
	record := c.VaultRecord()
	assert.Equal(t, c.TenantID, record.TenantID)
	assert.Equal(t, c.ID.String(), record.ID)
}

func TestCredential_SealedBefore(t *testing.T) {
	c := &Credential{Secret: vaultDomain.SecretEnvelope{KeyVersion: 2}}
	assert.False(t, c.SealedBefore(2))
	assert.True(t, c.SealedBefore(3))

	c.SSHPrivateKey = &vaultDomain.SecretEnvelope{KeyVersion: 1}
	assert.True(t, c.SealedBefore(2))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"prod", "db"}, NormalizeTags([]string{" prod", "", "db", "prod "}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestCredential_NeedsRotation(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name          string
		lastRotatedAt *time.Time
		want          bool
	}{
		{name: "NeverRotated", lastRotatedAt: nil, want: true},
		{name: "RotatedYesterday", lastRotatedAt: at(24 * time.Hour), want: false},
		{name: "RotatedAtCutoff", lastRotatedAt: at(RotationPeriod), want: false},
		{name: "RotatedBeforeCutoff", lastRotatedAt: at(RotationPeriod + time.Second), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credential{LastRotatedAt: tt.lastRotatedAt}
			assert.Equal(t, tt.want, c.NeedsRotation(now))
		})
	}
}

func TestSSHFingerprint(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	authorized := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " deploy@acme"

	t.Run("Success", func(t *testing.T) {
		fingerprint, err := SSHFingerprint(authorized)
		require.NoError(t, err)
		assert.Equal(t, ssh.FingerprintSHA256(sshPub), fingerprint)
		assert.True(t, strings.HasPrefix(fingerprint, "SHA256:"))
	})

	t.Run("Error_NotAKey", func(t *testing.T) {
		_, err := SSHFingerprint("ssh-ed25519 not-base64")
		assert.ErrorIs(t, err, ErrInvalidSSHPublicKey)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
