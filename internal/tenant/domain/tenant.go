// Package domain defines the tenant security boundary.
//
// A tenant owns its secrets and its versioned data keys. Each tenant is addressed
// by a routing key (the subdomain label of inbound requests) that is globally
// unique and immutable once assigned. Exactly one tenant, addressed by the
// reserved "admin" routing key, carries the platform-admin flag.
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/tenantvault/internal/validation"
)

// AdminRoutingKey is the routing key reserved for the platform-admin tenant.
const AdminRoutingKey = "admin"

// reservedRoutingKeys never identify a tenant.
var reservedRoutingKeys = []string{"www", "api"}

// Plan is the subscription tier of a tenant.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// Tenant represents an isolated customer boundary.
type Tenant struct {
	ID         uuid.UUID // Unique identifier (UUIDv7)
	Name       string
	RoutingKey string // Subdomain label, unique and immutable
	Plan       Plan
	IsActive   bool
	IsAdmin    bool // Platform-admin tenant flag, at most one tenant carries it
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsReservedRoutingKey reports whether key can never name a tenant.
func IsReservedRoutingKey(key string) bool {
	return slices.Contains(reservedRoutingKeys, key)
}

// ValidateRoutingKey checks the format and reservation rules of a routing key
// for a regular tenant.
func ValidateRoutingKey(key string) error {
	err := validation.Validate(key,
		validation.Required,
		customValidation.RoutingKey,
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	if IsReservedRoutingKey(key) || key == AdminRoutingKey {
		return ErrReservedRoutingKey
	}
	return nil
}

// Validate checks a tenant about to be provisioned.
func (t *Tenant) Validate() error {
	err := validation.ValidateStruct(t,
		validation.Field(&t.Name, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&t.Plan, validation.Required, validation.By(func(value interface{}) error {
			if !value.(Plan).Valid() {
				return validation.NewError("validation_plan", "must be one of free, basic, premium, enterprise")
			}
			return nil
		})),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}

	if t.IsAdmin {
		if t.RoutingKey != AdminRoutingKey {
			return ErrReservedRoutingKey
		}
		return nil
	}
	return ValidateRoutingKey(t.RoutingKey)
}
