package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// ErrUnsupportedKMS is returned for providers or key URI schemes no driver is
// registered for.
var ErrUnsupportedKMS = errors.New("unsupported KMS provider")

// kmsSchemes maps KMS_PROVIDER values to the key URI scheme of their driver.
var kmsSchemes = map[string]string{
	"localsecrets":  "base64key",
	"gcpkms":        "gcpkms",
	"awskms":        "awskms",
	"azurekeyvault": "azurekeyvault",
	"hashivault":    "hashivault",
}

// KMSProviders lists the accepted KMS_PROVIDER values.
func KMSProviders() []string {
	providers := make([]string, 0, len(kmsSchemes))
	for provider := range kmsSchemes {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}

// ValidateKeyURI checks that keyURI uses a registered scheme and, when provider
// is set, that the scheme belongs to that provider. A root secret wrapped under
// one provider is never handed to another.
func ValidateKeyURI(provider, keyURI string) error {
	u, err := url.Parse(keyURI)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("invalid KMS key URI: missing scheme")
	}

	if provider == "" {
		for _, scheme := range kmsSchemes {
			if scheme == u.Scheme {
				return nil
			}
		}
		return fmt.Errorf("%w: scheme %q", ErrUnsupportedKMS, u.Scheme)
	}

	scheme, ok := kmsSchemes[provider]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedKMS, provider)
	}
	if scheme != u.Scheme {
		return fmt.Errorf("KMS key URI scheme %q does not match provider %q (expected %s://)", u.Scheme, provider, scheme)
	}
	return nil
}

// KMSService opens the keepers that protect the process root secret at rest.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

type kmsService struct{}

// NewKMSService creates a KMSService backed by the gocloud.dev drivers.
func NewKMSService() KMSService {
	return &kmsService{}
}

func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	if err := ValidateKeyURI("", keyURI); err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}
