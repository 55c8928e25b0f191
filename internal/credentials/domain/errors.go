package domain

import (
	"github.com/allisson/tenantvault/internal/errors"
)

var (
	// ErrCredentialNotFound indicates the credential does not exist in the caller's tenant.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrSecretRequired indicates an empty secret value.
	ErrSecretRequired = errors.Wrap(errors.ErrInvalidInput, "secret must not be empty")

	// ErrInvalidSSHPublicKey indicates a public key not in authorized_keys format.
	ErrInvalidSSHPublicKey = errors.Wrap(errors.ErrInvalidInput, "invalid ssh public key")
)
