package domain

import (
	"github.com/allisson/tenantvault/internal/errors"
)

// ErrOperationTimeout indicates a seal or open exceeded its time bound. It is
// transient and safe to retry.
var ErrOperationTimeout = errors.Wrap(errors.ErrUnavailable, "vault operation timed out")
