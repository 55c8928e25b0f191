// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	customValidation "github.com/allisson/tenantvault/internal/validation"
)

// CreateTenantRequest contains the parameters for provisioning a tenant.
type CreateTenantRequest struct {
	Name       string `json:"name"`
	RoutingKey string `json:"routing_key"`
	Plan       string `json:"plan"`
}

// Validate checks the request shape. Reserved routing keys are rejected by the
// domain on provisioning.
func (r *CreateTenantRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.RoutingKey,
			validation.Required,
			customValidation.RoutingKey,
		),
		validation.Field(&r.Plan,
			validation.In(
				string(tenantDomain.PlanFree),
				string(tenantDomain.PlanBasic),
				string(tenantDomain.PlanPremium),
				string(tenantDomain.PlanEnterprise),
			),
		),
	)
}

// PlanOrDefault returns the requested plan, or the free plan when omitted.
func (r *CreateTenantRequest) PlanOrDefault() tenantDomain.Plan {
	if r.Plan == "" {
		return tenantDomain.PlanFree
	}
	return tenantDomain.Plan(r.Plan)
}
