package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
)

// CredentialRepository defines tenant-scoped Credential persistence.
type CredentialRepository interface {
	Create(ctx context.Context, sc scope.Context, credential *credentialsDomain.Credential) error
	Update(ctx context.Context, sc scope.Context, credential *credentialsDomain.Credential) error
	Get(ctx context.Context, sc scope.Context, credentialID uuid.UUID) (*credentialsDomain.Credential, error)
	List(
		ctx context.Context,
		sc scope.Context,
		filter credentialsDomain.ListFilter,
	) ([]*credentialsDomain.Credential, error)
	ListSealedBefore(
		ctx context.Context,
		sc scope.Context,
		version uint32,
		limit int,
	) ([]*credentialsDomain.Credential, error)
	Delete(ctx context.Context, sc scope.Context, credentialID uuid.UUID) error
	MarkViewed(ctx context.Context, sc scope.Context, credentialID uuid.UUID, viewedAt time.Time) error
}

// ActiveKeySource reports the tenant's active key version, creating it if needed.
type ActiveKeySource interface {
	EnsureActiveKey(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error)
}

// CreateInput holds the fields of a new credential. Secret and SSHPrivateKey are
// plaintext and are sealed before anything is persisted.
type CreateInput struct {
	Name          string
	Username      string
	Email         string
	URL           string
	Category      credentialsDomain.Category
	Notes         string
	Tags          []string
	Secret        []byte
	SSHPrivateKey []byte
	// SSHPublicKey is stored in clear, in authorized_keys format.
	SSHPublicKey string
	Active       *bool
}

// Revealed is a credential together with its opened secrets.
//
// Security Note: callers must zero Secret and SSHPrivateKey after use.
type Revealed struct {
	Credential    *credentialsDomain.Credential
	Secret        []byte
	SSHPrivateKey []byte
}

// ResealResult summarizes one reseal batch run.
type ResealResult struct {
	ActiveVersion uint32
	Resealed      int
}

// CredentialUseCase is the record layer built on the envelope API.
type CredentialUseCase interface {
	Create(ctx context.Context, sc scope.Context, input CreateInput) (*credentialsDomain.Credential, error)
	Get(ctx context.Context, sc scope.Context, credentialID uuid.UUID) (*credentialsDomain.Credential, error)
	List(
		ctx context.Context,
		sc scope.Context,
		filter credentialsDomain.ListFilter,
	) ([]*credentialsDomain.Credential, error)
	// Reveal opens the secrets and stamps the credential's viewed-at time.
	Reveal(ctx context.Context, sc scope.Context, credentialID uuid.UUID) (*Revealed, error)
	RotateSecret(
		ctx context.Context,
		sc scope.Context,
		credentialID uuid.UUID,
		secret []byte,
	) (*credentialsDomain.Credential, error)
	Delete(ctx context.Context, sc scope.Context, credentialID uuid.UUID) error

	// Reseal re-encrypts every envelope of the tenant sealed under a key version
	// older than the active one, batchSize records at a time.
	Reseal(ctx context.Context, sc scope.Context, batchSize int) (*ResealResult, error)
}
