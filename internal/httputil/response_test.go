package httputil_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	apperrors "github.com/allisson/tenantvault/internal/errors"
	"github.com/allisson/tenantvault/internal/httputil"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
)

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "cross tenant access",
			err:             tenantDomain.ErrCrossTenantAccessDenied,
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "access denied",
		},
		{
			name:            "tenant required",
			err:             tenantDomain.ErrTenantRequired,
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "access denied",
		},
		{
			name:            "authentication failed",
			err:             apperrors.Wrap(cryptoDomain.ErrAuthenticationFailed, "tenant 42 version 3"),
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedError:   "decryption_failed",
			expectedMessage: "decryption failed",
		},
		{
			name:            "key not found",
			err:             keysDomain.ErrKeyNotFound,
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedError:   "decryption_failed",
			expectedMessage: "decryption failed",
		},
		{
			name:           "activation conflict",
			err:            keysDomain.ErrConcurrentActivationConflict,
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "unavailable",
		},
		{
			name:           "not found",
			err:            apperrors.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name:           "conflict",
			err:            apperrors.ErrConflict,
			expectedStatus: http.StatusConflict,
			expectedError:  "conflict",
		},
		{
			name:            "invalid input",
			err:             apperrors.Wrap(apperrors.ErrInvalidInput, "name: cannot be blank"),
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedError:   "invalid_input",
			expectedMessage: "name: cannot be blank: invalid input",
		},
		{
			name:           "unauthorized",
			err:            apperrors.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:            "crypto fault",
			err:             cryptoDomain.ErrCryptoFault,
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:           "unknown",
			err:            errors.New("driver: bad connection"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			httputil.HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var body httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedError, body.Error)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, body.Message)
			}
		})
	}
}

func TestHandleErrorGin_NilError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	httputil.HandleErrorGin(c, nil, nil)

	assert.Empty(t, w.Body.String())
}

func TestHandleValidationErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	httputil.HandleValidationErrorGin(c, errors.New("invalid base64 secret"), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"validation_error","message":"invalid base64 secret"}`, w.Body.String())
}

func TestHandleBadRequestGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	httputil.HandleBadRequestGin(c, errors.New("unexpected EOF"), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"bad_request","message":"unexpected EOF"}`, w.Body.String())
}
