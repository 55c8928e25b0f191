package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/tenantvault/internal/httputil"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	"github.com/allisson/tenantvault/internal/tenant/http/dto"
	"github.com/allisson/tenantvault/internal/tenant/scope"
	tenantUseCase "github.com/allisson/tenantvault/internal/tenant/usecase"
	customValidation "github.com/allisson/tenantvault/internal/validation"
)

// KeyRotator rotates the data key of a tenant scope.
type KeyRotator interface {
	Rotate(ctx context.Context, sc scope.Context) (*keysDomain.TenantKey, error)
}

// TenantHandler handles the platform-admin tenant routes. All routes are mounted
// behind AdminMiddleware.
type TenantHandler struct {
	tenantUseCase tenantUseCase.TenantUseCase
	resolver      tenantUseCase.ContextResolver
	keys          KeyRotator
	logger        *slog.Logger
}

// NewTenantHandler creates a new tenant handler with required dependencies.
func NewTenantHandler(
	tenantUseCase tenantUseCase.TenantUseCase,
	resolver tenantUseCase.ContextResolver,
	keys KeyRotator,
	logger *slog.Logger,
) *TenantHandler {
	return &TenantHandler{
		tenantUseCase: tenantUseCase,
		resolver:      resolver,
		keys:          keys,
		logger:        logger,
	}
}

// CreateHandler provisions a tenant and its first key version.
// POST /v1/admin/tenants
// Returns 201 Created with the tenant.
func (h *TenantHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateTenantRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	tenant, err := h.tenantUseCase.Provision(c.Request.Context(), req.Name, req.RoutingKey, req.PlanOrDefault())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTenantToResponse(tenant))
}

// ListHandler lists every tenant.
// GET /v1/admin/tenants
func (h *TenantHandler) ListHandler(c *gin.Context) {
	tenants, err := h.tenantUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTenantsToListResponse(tenants))
}

// DeactivateHandler deactivates a tenant.
// POST /v1/admin/tenants/:id/deactivate
func (h *TenantHandler) DeactivateHandler(c *gin.Context) {
	tenantID, ok := h.parseTenantID(c)
	if !ok {
		return
	}

	tenant, err := h.tenantUseCase.Deactivate(c.Request.Context(), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTenantToResponse(tenant))
}

// ActivateHandler re-activates a tenant.
// POST /v1/admin/tenants/:id/activate
func (h *TenantHandler) ActivateHandler(c *gin.Context) {
	tenantID, ok := h.parseTenantID(c)
	if !ok {
		return
	}

	tenant, err := h.tenantUseCase.Activate(c.Request.Context(), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTenantToResponse(tenant))
}

// RotateKeyHandler creates and activates a new data key version for a tenant.
// POST /v1/admin/tenants/:id/keys/rotate
// Returns 201 Created with the new key metadata. Existing payloads are not
// resealed; that is the reseal-credentials batch.
func (h *TenantHandler) RotateKeyHandler(c *gin.Context) {
	tenantID, ok := h.parseTenantID(c)
	if !ok {
		return
	}

	sc, err := h.resolver.ResolveTenant(c.Request.Context(), tenantID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	key, err := h.keys.Rotate(c.Request.Context(), sc)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.InfoContext(c.Request.Context(), "tenant key rotated",
		slog.String("tenant_id", tenantID.String()),
		slog.Uint64("version", uint64(key.Version)),
	)
	c.JSON(http.StatusCreated, dto.MapTenantKeyToResponse(key))
}

func (h *TenantHandler) parseTenantID(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid tenant ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return tenantID, true
}
