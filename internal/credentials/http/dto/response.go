package dto

import (
	"encoding/base64"
	"time"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	credentialsUseCase "github.com/allisson/tenantvault/internal/credentials/usecase"
)

// CredentialResponse represents credential metadata in API responses. Sealed
// envelopes are never returned.
type CredentialResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Username       string     `json:"username,omitempty"`
	Email          string     `json:"email,omitempty"`
	URL            string     `json:"url,omitempty"`
	Category       string     `json:"category"`
	Notes          string     `json:"notes,omitempty"`
	Tags           []string   `json:"tags"`
	HasSSHKey      bool       `json:"has_ssh_key"`
	SSHPublicKey   string     `json:"ssh_public_key,omitempty"`
	SSHFingerprint string     `json:"ssh_fingerprint,omitempty"`
	Active         bool       `json:"active"`
	NeedsRotation  bool       `json:"needs_rotation"`
	LastRotatedAt  *time.Time `json:"last_rotated_at,omitempty"`
	ViewedAt       *time.Time `json:"viewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MapCredentialToResponse converts a domain credential to an API response.
func MapCredentialToResponse(credential *credentialsDomain.Credential) CredentialResponse {
	tags := credential.Tags
	if tags == nil {
		tags = []string{}
	}
	return CredentialResponse{
		ID:             credential.ID.String(),
		Name:           credential.Name,
		Username:       credential.Username,
		Email:          credential.Email,
		URL:            credential.URL,
		Category:       string(credential.Category),
		Notes:          credential.Notes,
		Tags:           tags,
		HasSSHKey:      credential.SSHPrivateKey != nil,
		SSHPublicKey:   credential.SSHPublicKey,
		SSHFingerprint: credential.SSHFingerprint,
		Active:         credential.Active,
		NeedsRotation:  credential.NeedsRotation(time.Now().UTC()),
		LastRotatedAt:  credential.LastRotatedAt,
		ViewedAt:       credential.ViewedAt,
		CreatedAt:      credential.CreatedAt,
		UpdatedAt:      credential.UpdatedAt,
	}
}

// ListCredentialsResponse represents a page of credentials in API responses.
type ListCredentialsResponse struct {
	Data []CredentialResponse `json:"data"`
}

// MapCredentialsToListResponse converts a slice of domain credentials to a list response.
func MapCredentialsToListResponse(credentials []*credentialsDomain.Credential) ListCredentialsResponse {
	data := make([]CredentialResponse, 0, len(credentials))
	for _, credential := range credentials {
		data = append(data, MapCredentialToResponse(credential))
	}
	return ListCredentialsResponse{Data: data}
}

// RevealResponse carries the opened secrets, base64-encoded.
type RevealResponse struct {
	CredentialResponse
	Secret        string `json:"secret"`
	SSHPrivateKey string `json:"ssh_private_key,omitempty"`
}

// MapRevealedToResponse converts opened secrets to an API response.
func MapRevealedToResponse(revealed *credentialsUseCase.Revealed) RevealResponse {
	response := RevealResponse{
		CredentialResponse: MapCredentialToResponse(revealed.Credential),
		Secret:             base64.StdEncoding.EncodeToString(revealed.Secret),
	}
	if revealed.SSHPrivateKey != nil {
		response.SSHPrivateKey = base64.StdEncoding.EncodeToString(revealed.SSHPrivateKey)
	}
	return response
}
