// Package domain defines the tenant-owned credential record.
//
// A credential stores its secret, and optionally an SSH private key, only as
// sealed envelopes. The plaintext never touches persistence: the record layer
// seals before insert and opens after load through the envelope API.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"golang.org/x/crypto/ssh"

	customValidation "github.com/allisson/tenantvault/internal/validation"
	vaultDomain "github.com/allisson/tenantvault/internal/vault/domain"
)

// Category classifies what a credential unlocks.
type Category string

const (
	CategoryWebsite  Category = "website"
	CategoryApp      Category = "app"
	CategoryDatabase Category = "database"
	CategoryServer   Category = "server"
	CategorySSH      Category = "ssh"
	CategoryAPI      Category = "api"
	CategoryOther    Category = "other"
)

// RotationPeriod is how long a secret may go without rotation before it is due.
const RotationPeriod = 90 * 24 * time.Hour

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryWebsite, CategoryApp, CategoryDatabase, CategoryServer, CategorySSH, CategoryAPI, CategoryOther:
		return true
	}
	return false
}

// Credential is a secret-bearing record owned by exactly one tenant.
type Credential struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Name          string
	Username      string
	Email         string
	URL           string
	Category      Category
	Notes         string
	Tags          []string
	Secret        vaultDomain.SecretEnvelope
	SSHPrivateKey *vaultDomain.SecretEnvelope
	SSHPublicKey  string
	// SSHFingerprint is the SHA256 fingerprint of SSHPublicKey, empty without one.
	SSHFingerprint string
	Active         bool
	LastRotatedAt  *time.Time
	ViewedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VaultRecord returns the reference the guard checks before every open.
func (c *Credential) VaultRecord() vaultDomain.Record {
	return vaultDomain.Record{TenantID: c.TenantID, ID: c.ID.String()}
}

// SealedBefore reports whether any envelope of c uses a key version older than version.
func (c *Credential) SealedBefore(version uint32) bool {
	if c.Secret.KeyVersion < version {
		return true
	}
	return c.SSHPrivateKey != nil && c.SSHPrivateKey.KeyVersion < version
}

// NeedsRotation reports whether the secret was never rotated or was last rotated
// more than RotationPeriod before now.
func (c *Credential) NeedsRotation(now time.Time) bool {
	return c.LastRotatedAt == nil || c.LastRotatedAt.Before(RotationCutoff(now))
}

// RotationCutoff is the rotation time before which a secret is due.
func RotationCutoff(now time.Time) time.Time {
	return now.Add(-RotationPeriod)
}

// SSHFingerprint parses an authorized_keys formatted public key and returns its
// SHA256 fingerprint.
func SSHFingerprint(publicKey string) (string, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", ErrInvalidSSHPublicKey
	}
	return ssh.FingerprintSHA256(key), nil
}

// Validate checks the metadata of a credential.
func (c *Credential) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&c.Username, validation.Length(0, 255)),
		validation.Field(&c.Email, customValidation.Email, validation.Length(0, 255)),
		validation.Field(&c.URL, customValidation.AbsoluteURL, validation.Length(0, 2048)),
		validation.Field(&c.Category, validation.Required, validation.By(func(value interface{}) error {
			if !value.(Category).Valid() {
				return validation.NewError(
					"validation_category",
					"must be one of website, app, database, server, ssh, api, other",
				)
			}
			return nil
		})),
		validation.Field(&c.Tags, validation.Length(0, 32), validation.Each(customValidation.NotBlank)),
		validation.Field(&c.SSHPublicKey, validation.Length(0, 16384)),
	)
	return customValidation.WrapValidationError(err)
}

// NormalizeTags trims, drops empty and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ListFilter narrows a credential listing. Nil fields are not filtered on.
type ListFilter struct {
	Category *Category
	Active   *bool
	// RotatedBefore keeps credentials never rotated or last rotated before it.
	RotatedBefore *time.Time
	Offset        int
	Limit         int
}
