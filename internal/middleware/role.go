package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agendaville/backend/internal/auth"
	"github.com/agendaville/backend/pkg/response"
)

// SuperAdminChecker reports whether a user holds the platform-wide role.
type SuperAdminChecker interface {
	IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// RequireSuperAdmin returns a middleware that allows only super admins.
// The check hits the database so a revoked grant takes effect immediately.
func RequireSuperAdmin(checker SuperAdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		idVal, ok := c.Get(auth.ContextUserID)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		userID, _ := idVal.(uuid.UUID)
		isSuper, err := checker.IsSuperAdmin(c.Request.Context(), userID)
		if err != nil || !isSuper {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
