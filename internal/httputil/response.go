// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/tenantvault/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// HandleErrorGin maps domain errors to HTTP status codes and writes a JSON response.
//
// Isolation and decryption failures get fixed bodies: the client never learns
// which tenant, record or key version was involved.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := errorResponseFor(err)

	if logger != nil {
		logger.ErrorContext(requestContext(c), "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

func errorResponseFor(err error) (int, ErrorResponse) {
	switch apperrors.KindOf(err) {
	case apperrors.KindForbidden:
		return http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: "access denied"}
	case apperrors.KindIntegrity:
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "decryption_failed", Message: "decryption failed"}
	case apperrors.KindUnavailable:
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "The service is temporarily unavailable, retry later",
		}
	case apperrors.KindNotFound:
		return http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "The requested resource was not found"}
	case apperrors.KindConflict:
		return http.StatusConflict, ErrorResponse{Error: "conflict", Message: "A conflict occurred with existing data"}
	case apperrors.KindInvalidInput:
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid_input", Message: err.Error()}
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Authentication is required"}
	default:
		// Internal details never reach the client.
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}
	}
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.WarnContext(requestContext(c), "bad request", slog.Any("error", err))
	}

	errorResponse := ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	}

	c.JSON(http.StatusBadRequest, errorResponse)
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors using Gin.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.WarnContext(requestContext(c), "validation failed", slog.Any("error", err))
	}

	errorResponse := ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	}

	c.JSON(http.StatusUnprocessableEntity, errorResponse)
}

// requestContext returns the request context so request-scoped log handlers see it.
func requestContext(c *gin.Context) context.Context {
	if c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}
