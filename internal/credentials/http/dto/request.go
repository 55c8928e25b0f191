// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	credentialsUseCase "github.com/allisson/tenantvault/internal/credentials/usecase"
	customValidation "github.com/allisson/tenantvault/internal/validation"
)

// CreateCredentialRequest contains the parameters for creating a credential.
// Secret and SSHPrivateKey are base64-encoded plaintext.
type CreateCredentialRequest struct {
	Name          string   `json:"name"`
	Username      string   `json:"username"`
	Email         string   `json:"email"`
	URL           string   `json:"url"`
	Category      string   `json:"category"`
	Notes         string   `json:"notes"`
	Tags          []string `json:"tags"`
	Secret        string   `json:"secret"`
	SSHPrivateKey string   `json:"ssh_private_key"`
	SSHPublicKey  string   `json:"ssh_public_key"`
	Active        *bool    `json:"active"`
}

// Validate checks the request shape. Metadata rules are enforced again by the
// domain.
func (r *CreateCredentialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.Secret,
			validation.Required,
			customValidation.Base64,
		),
		validation.Field(&r.SSHPrivateKey, customValidation.Base64),
		validation.Field(&r.SSHPublicKey, validation.Length(0, 16384)),
	)
}

// ToInput decodes the secrets and builds the use case input.
//
// Security Note: callers must zero input.Secret and input.SSHPrivateKey after use.
func (r *CreateCredentialRequest) ToInput() (credentialsUseCase.CreateInput, error) {
	secret, err := base64.StdEncoding.DecodeString(r.Secret)
	if err != nil {
		return credentialsUseCase.CreateInput{}, err
	}

	var sshKey []byte
	if r.SSHPrivateKey != "" {
		sshKey, err = base64.StdEncoding.DecodeString(r.SSHPrivateKey)
		if err != nil {
			return credentialsUseCase.CreateInput{}, err
		}
	}

	return credentialsUseCase.CreateInput{
		Name:          r.Name,
		Username:      r.Username,
		Email:         r.Email,
		URL:           r.URL,
		Category:      credentialsDomain.Category(r.Category),
		Notes:         r.Notes,
		Tags:          r.Tags,
		Secret:        secret,
		SSHPrivateKey: sshKey,
		SSHPublicKey:  r.SSHPublicKey,
		Active:        r.Active,
	}, nil
}

// RotateSecretRequest contains the replacement secret, base64-encoded.
type RotateSecretRequest struct {
	Secret string `json:"secret"`
}

// Validate checks if the rotate secret request is valid.
func (r *RotateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Secret,
			validation.Required,
			customValidation.Base64,
		),
	)
}

// DecodeSecret decodes a base64 secret from a request body.
func DecodeSecret(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
