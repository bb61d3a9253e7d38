package emaillogs

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/internal/scope"
	"github.com/agendaville/backend/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   *Repository
	scopes *scope.Handler
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository, scopes *scope.Handler) *Handler {
	return &Handler{repo: repo, scopes: scopes}
}

// ListByOrganization handles GET /admin/organizations/:id/emails. Allowed for
// super admins and that organization's admins.
func (h *Handler) ListByOrganization(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	userCtx := h.scopes.Context(c)
	if !userCtx.IsSuperAdmin {
		allowed := false
		for _, m := range userCtx.Organizations {
			if m.OrganizationID == orgID && m.Role == models.OrgRoleAdmin {
				allowed = true
				break
			}
		}
		if !allowed {
			response.Forbidden(c, "not authorized for this organization")
			return
		}
	}
	logs, err := h.repo.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}
