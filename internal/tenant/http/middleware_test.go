package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/tenantvault/internal/metrics"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	"github.com/allisson/tenantvault/internal/tenant/scope/scopetest"
)

// mapLookup serves tenants from memory.
type mapLookup map[string]*tenantDomain.Tenant

func (m mapLookup) FindByRoutingKey(_ context.Context, routingKey string) (*tenantDomain.Tenant, error) {
	if tenant, ok := m[routingKey]; ok {
		return tenant, nil
	}
	return nil, tenantDomain.ErrTenantRecordNotFound
}

func (m mapLookup) FindByID(_ context.Context, tenantID uuid.UUID) (*tenantDomain.Tenant, error) {
	for _, tenant := range m {
		if tenant.ID == tenantID {
			return tenant, nil
		}
	}
	return nil, tenantDomain.ErrTenantRecordNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestResolver(tenants ...*tenantDomain.Tenant) *scope.Resolver {
	lookup := mapLookup{}
	for _, tenant := range tenants {
		lookup[tenant.RoutingKey] = tenant
	}
	return scope.NewResolver(lookup, "", metrics.NewNoOpSecurityMetrics(), testLogger())
}

func TestTenantMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	acme := scopetest.NewTenant("acme")
	suspended := scopetest.NewTenant("suspended")
	suspended.IsActive = false
	admin := scopetest.NewAdminTenant()

	var captured scope.Context
	router := gin.New()
	router.Use(TenantMiddleware(newTestResolver(acme, suspended, admin), testLogger()))
	router.GET("/v1/credentials", func(c *gin.Context) {
		captured = ScopeFrom(c)
		c.Status(http.StatusOK)
	})
	router.GET("/up", func(c *gin.Context) {
		captured = ScopeFrom(c)
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedTenant uuid.UUID
		expectedAdmin  bool
	}{
		{
			name:           "resolves tenant subdomain",
			url:            "http://acme.localhost/v1/credentials",
			expectedStatus: http.StatusOK,
			expectedTenant: acme.ID,
		},
		{
			name:           "resolves admin subdomain",
			url:            "http://admin.localhost:8080/v1/credentials",
			expectedStatus: http.StatusOK,
			expectedTenant: admin.ID,
			expectedAdmin:  true,
		},
		{
			name:           "bare host is rejected",
			url:            "http://localhost/v1/credentials",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "reserved subdomain is rejected",
			url:            "http://www.localhost/v1/credentials",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "unknown tenant is rejected",
			url:            "http://initech.localhost/v1/credentials",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "inactive tenant is rejected",
			url:            "http://suspended.localhost/v1/credentials",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "health check needs no tenant",
			url:            "http://localhost/up",
			expectedStatus: http.StatusOK,
			expectedTenant: uuid.Nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captured = scope.Context{}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"forbidden","message":"access denied"}`, w.Body.String())
				return
			}
			assert.Equal(t, tt.expectedTenant, captured.TenantID())
			assert.Equal(t, tt.expectedAdmin, captured.IsAdmin())
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	acme := scopetest.NewTenant("acme")
	admin := scopetest.NewAdminTenant()
	guard := scope.NewGuard(metrics.NewNoOpSecurityMetrics(), testLogger())

	router := gin.New()
	router.Use(TenantMiddleware(newTestResolver(acme, admin), testLogger()))
	router.Use(AdminMiddleware(guard, testLogger()))
	router.GET("/v1/admin/tenants", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("Success_AdminTenant", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://admin.localhost/v1/admin/tenants", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_RegularTenant", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://acme.localhost/v1/admin/tenants", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"forbidden","message":"access denied"}`, w.Body.String())
	})
}

func TestGetScope_Missing(t *testing.T) {
	sc, ok := GetScope(context.Background())
	assert.False(t, ok)
	assert.False(t, sc.IsResolved())
}
