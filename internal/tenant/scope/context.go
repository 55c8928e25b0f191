// Package scope establishes and enforces the tenant boundary of a unit of work.
//
// A Context is obtained only from a Resolver and must be passed explicitly to every
// call that touches secrets. The Guard re-validates, right before every decrypt,
// that the record being accessed belongs to the context's tenant.
package scope

import (
	"github.com/google/uuid"
)

// Context carries the single resolved tenant of one request or background task.
//
// The zero value is an unresolved context; every secret operation rejects it with
// ErrTenantRequired. Fields are unexported so a Context cannot be assembled outside
// this package.
type Context struct {
	tenantID   uuid.UUID
	routingKey string
	admin      bool
}

// TenantID returns the resolved tenant identifier.
func (c Context) TenantID() uuid.UUID {
	return c.tenantID
}

// RoutingKey returns the routing key the context was resolved from.
func (c Context) RoutingKey() string {
	return c.routingKey
}

// IsAdmin reports whether the context belongs to the platform-admin tenant.
func (c Context) IsAdmin() bool {
	return c.admin
}

// IsResolved reports whether the context names a tenant.
func (c Context) IsResolved() bool {
	return c.tenantID != uuid.Nil
}
