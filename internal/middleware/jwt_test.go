package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaville/backend/internal/auth"
)

func jwtTestRouter(t *testing.T, svc *auth.JWTService) (*gin.Engine, *uuid.UUID, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var gotID uuid.UUID
	var gotEmail string
	r := gin.New()
	r.Use(JWT(svc))
	r.GET("/protected", func(c *gin.Context) {
		gotID = c.MustGet(auth.ContextUserID).(uuid.UUID)
		gotEmail = c.MustGet(auth.ContextUserEmail).(string)
		c.Status(http.StatusOK)
	})
	return r, &gotID, &gotEmail
}

func TestJWTMiddleware_SetsClaimsInContext(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	userID := uuid.New()
	token, err := svc.Generate(userID, "user@example.com")
	require.NoError(t, err)

	router, gotID, gotEmail := jwtTestRouter(t, svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, *gotID)
	assert.Equal(t, "user@example.com", *gotEmail)
}

func TestJWTMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 1)
	router, _, _ := jwtTestRouter(t, svc)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-token"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}
