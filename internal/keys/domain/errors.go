package domain

import (
	"github.com/allisson/tenantvault/internal/errors"
)

var (
	// ErrKeyNotFound indicates the requested key version does not exist for the
	// tenant. It implies a corrupted envelope or a cross-tenant reference and is
	// never retried.
	ErrKeyNotFound = errors.Wrap(errors.ErrIntegrity, "key not found")

	// ErrNoActiveKey indicates the tenant has no active key yet.
	ErrNoActiveKey = errors.Wrap(errors.ErrNotFound, "no active key")

	// ErrConcurrentActivationConflict indicates another worker activated a key for
	// the same tenant at the same time. It is transient and retried with backoff.
	ErrConcurrentActivationConflict = errors.Wrap(errors.ErrUnavailable, "concurrent key activation")
)
