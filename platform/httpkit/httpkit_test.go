package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk_backend/platform/apperr"
)

type jwtSecret string

func (s jwtSecret) GetJWTAccessSecret() string { return string(s) }

func init() {
	gin.SetMode(gin.TestMode)
}

func serveError(err error) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		HandleError(c, err)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleErrorMapsDomainKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"forbidden", apperr.Forbidden("role may not set shipped"), http.StatusForbidden},
		{"precondition", apperr.PreconditionFailed("transition not allowed"), http.StatusPreconditionFailed},
		{"insufficient stock", fmt.Errorf("ship: %w", apperr.InsufficientStock("insufficient stock")), http.StatusConflict},
		{"not found", apperr.NotFound("order not found"), http.StatusNotFound},
		{"validation", apperr.Validation("restock amount must be positive"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveError(tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decodeError(t, w).Error)
		})
	}
}

func TestHandleErrorMasksUntypedErrors(t *testing.T) {
	w := serveError(errors.New("pq: relation orders does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal error", decodeError(t, w).Error)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthRequired(t *testing.T) {
	userID := uuid.New()
	r := gin.New()
	r.Use(AuthRequired(jwtSecret("s3cret")))
	r.GET("/me", func(c *gin.Context) {
		id := MustGetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"id": id.UserID().String(), "agent": id.HasRole("agent")})
	})

	valid := signToken(t, "s3cret", jwt.MapClaims{
		"sub":   userID.String(),
		"roles": []string{"agent"},
		"type":  "access",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	refresh := signToken(t, "s3cret", jwt.MapClaims{"sub": userID.String(), "type": "refresh"})
	foreign := signToken(t, "other", jwt.MapClaims{"sub": userID.String(), "type": "access"})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong type", "Bearer " + refresh, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireAnyRole(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserIDKey, uuid.New())
		c.Set(ContextRolesKey, []string{"manager"})
		c.Next()
	})
	r.GET("/admin", RequireAnyRole("admin", "manager"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/wh", RequireAnyRole("warehouse"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wh", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
