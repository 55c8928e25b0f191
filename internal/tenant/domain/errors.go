package domain

import (
	"github.com/allisson/tenantvault/internal/errors"
)

// Isolation violations. All of them surface to callers as a generic access-denied
// outcome; the specific kind is only logged.
var (
	// ErrTenantRequired indicates the unit of work carries no routing key.
	ErrTenantRequired = errors.Wrap(errors.ErrForbidden, "tenant required")

	// ErrTenantNotFound indicates the routing key names no active regular tenant.
	ErrTenantNotFound = errors.Wrap(errors.ErrForbidden, "tenant not found")

	// ErrAdminBoundaryViolation indicates the admin routing key resolved to a tenant
	// without the admin flag, or a non-admin context reached an admin operation.
	ErrAdminBoundaryViolation = errors.Wrap(errors.ErrForbidden, "admin boundary violation")

	// ErrCrossTenantAccessDenied indicates a record of one tenant was accessed from
	// the context of another.
	ErrCrossTenantAccessDenied = errors.Wrap(errors.ErrForbidden, "cross-tenant access denied")
)

// Administration errors.
var (
	// ErrTenantRecordNotFound indicates no tenant row matched a lookup.
	ErrTenantRecordNotFound = errors.Wrap(errors.ErrNotFound, "tenant not found")

	// ErrRoutingKeyTaken indicates another tenant already uses the routing key.
	ErrRoutingKeyTaken = errors.Wrap(errors.ErrConflict, "routing key already in use")

	// ErrReservedRoutingKey indicates the routing key is reserved.
	ErrReservedRoutingKey = errors.Wrap(errors.ErrInvalidInput, "routing key is reserved")

	// ErrAdminTenantImmutable indicates an attempt to deactivate the admin tenant.
	ErrAdminTenantImmutable = errors.Wrap(errors.ErrInvalidInput, "admin tenant cannot be deactivated")
)
