// Package http provides HTTP handlers for tenant-scoped credential operations.
// Every handler passes the scope set by the tenant middleware to the use case.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/tenantvault/internal/credentials/domain"
	"github.com/allisson/tenantvault/internal/credentials/http/dto"
	credentialsUseCase "github.com/allisson/tenantvault/internal/credentials/usecase"
	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	"github.com/allisson/tenantvault/internal/httputil"
	tenantHTTP "github.com/allisson/tenantvault/internal/tenant/http"
	customValidation "github.com/allisson/tenantvault/internal/validation"
)

// CredentialHandler handles HTTP requests for credential operations.
type CredentialHandler struct {
	credentialUseCase credentialsUseCase.CredentialUseCase
	logger            *slog.Logger
}

// NewCredentialHandler creates a new credential handler with required dependencies.
func NewCredentialHandler(
	credentialUseCase credentialsUseCase.CredentialUseCase,
	logger *slog.Logger,
) *CredentialHandler {
	return &CredentialHandler{
		credentialUseCase: credentialUseCase,
		logger:            logger,
	}
}

// CreateHandler seals and stores a new credential.
// POST /v1/credentials
// Returns 201 Created with metadata only.
func (h *CredentialHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateCredentialRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToInput()
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}
	defer cryptoDomain.Zero(input.Secret, input.SSHPrivateKey)

	credential, err := h.credentialUseCase.Create(c.Request.Context(), tenantHTTP.ScopeFrom(c), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCredentialToResponse(credential))
}

// GetHandler returns credential metadata.
// GET /v1/credentials/:id
func (h *CredentialHandler) GetHandler(c *gin.Context) {
	credentialID, ok := h.parseCredentialID(c)
	if !ok {
		return
	}

	credential, err := h.credentialUseCase.Get(c.Request.Context(), tenantHTTP.ScopeFrom(c), credentialID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialToResponse(credential))
}

// ListHandler lists credentials with optional filters.
// GET /v1/credentials?category=database&active=true&needs_rotation=true&offset=0&limit=50
func (h *CredentialHandler) ListHandler(c *gin.Context) {
	page, err := httputil.ParsePage(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := credentialsDomain.ListFilter{Offset: page.Offset, Limit: page.Limit}

	if categoryStr := c.Query("category"); categoryStr != "" {
		category := credentialsDomain.Category(categoryStr)
		if !category.Valid() {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid category parameter"),
				h.logger)
			return
		}
		filter.Category = &category
	}

	if activeStr := c.Query("active"); activeStr != "" {
		active, parseErr := strconv.ParseBool(activeStr)
		if parseErr != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid active parameter: must be true or false"),
				h.logger)
			return
		}
		filter.Active = &active
	}

	if needsRotationStr := c.Query("needs_rotation"); needsRotationStr != "" {
		needsRotation, parseErr := strconv.ParseBool(needsRotationStr)
		if parseErr != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid needs_rotation parameter: must be true or false"),
				h.logger)
			return
		}
		if needsRotation {
			cutoff := credentialsDomain.RotationCutoff(time.Now().UTC())
			filter.RotatedBefore = &cutoff
		}
	}

	credentials, err := h.credentialUseCase.List(c.Request.Context(), tenantHTTP.ScopeFrom(c), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialsToListResponse(credentials))
}

// RevealHandler opens the credential's secrets.
// POST /v1/credentials/:id/reveal
// Returns 200 OK with base64 plaintext. SECURITY: Plaintext is zeroed after response.
func (h *CredentialHandler) RevealHandler(c *gin.Context) {
	credentialID, ok := h.parseCredentialID(c)
	if !ok {
		return
	}

	revealed, err := h.credentialUseCase.Reveal(c.Request.Context(), tenantHTTP.ScopeFrom(c), credentialID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(revealed.Secret, revealed.SSHPrivateKey)

	c.JSON(http.StatusOK, dto.MapRevealedToResponse(revealed))
}

// RotateSecretHandler replaces the credential's secret.
// PUT /v1/credentials/:id/secret
func (h *CredentialHandler) RotateSecretHandler(c *gin.Context) {
	credentialID, ok := h.parseCredentialID(c)
	if !ok {
		return
	}

	var req dto.RotateSecretRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	secret, err := dto.DecodeSecret(req.Secret)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}
	defer cryptoDomain.Zero(secret)

	credential, err := h.credentialUseCase.RotateSecret(
		c.Request.Context(),
		tenantHTTP.ScopeFrom(c),
		credentialID,
		secret,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialToResponse(credential))
}

// DeleteHandler removes a credential.
// DELETE /v1/credentials/:id
// Returns 204 No Content.
func (h *CredentialHandler) DeleteHandler(c *gin.Context) {
	credentialID, ok := h.parseCredentialID(c)
	if !ok {
		return
	}

	if err := h.credentialUseCase.Delete(c.Request.Context(), tenantHTTP.ScopeFrom(c), credentialID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

func (h *CredentialHandler) parseCredentialID(c *gin.Context) (uuid.UUID, bool) {
	credentialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid credential ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return credentialID, true
}
