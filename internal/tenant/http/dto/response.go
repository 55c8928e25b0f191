package dto

import (
	"time"

	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

// TenantResponse represents a tenant in API responses.
type TenantResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RoutingKey string    `json:"routing_key"`
	Plan       string    `json:"plan"`
	IsActive   bool      `json:"is_active"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MapTenantToResponse converts a domain tenant to an API response.
func MapTenantToResponse(tenant *tenantDomain.Tenant) TenantResponse {
	return TenantResponse{
		ID:         tenant.ID.String(),
		Name:       tenant.Name,
		RoutingKey: tenant.RoutingKey,
		Plan:       string(tenant.Plan),
		IsActive:   tenant.IsActive,
		IsAdmin:    tenant.IsAdmin,
		CreatedAt:  tenant.CreatedAt,
		UpdatedAt:  tenant.UpdatedAt,
	}
}

// ListTenantsResponse represents a list of tenants in API responses.
type ListTenantsResponse struct {
	Data []TenantResponse `json:"data"`
}

// MapTenantsToListResponse converts a slice of domain tenants to a list response.
func MapTenantsToListResponse(tenants []*tenantDomain.Tenant) ListTenantsResponse {
	data := make([]TenantResponse, 0, len(tenants))
	for _, tenant := range tenants {
		data = append(data, MapTenantToResponse(tenant))
	}
	return ListTenantsResponse{Data: data}
}

// TenantKeyResponse represents key metadata. Wrapped key bytes are never exposed.
type TenantKeyResponse struct {
	Version   uint32    `json:"version"`
	Algorithm string    `json:"algorithm"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// MapTenantKeyToResponse converts a domain key to an API response.
func MapTenantKeyToResponse(key *keysDomain.TenantKey) TenantKeyResponse {
	return TenantKeyResponse{
		Version:   key.Version,
		Algorithm: string(key.Algorithm),
		Active:    key.Active,
		CreatedAt: key.CreatedAt,
	}
}
