package scope

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendaville/backend/internal/auth"
	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/pkg/response"
)

// UserLoader fetches the authenticated user record. Implemented by the auth
// repository.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Handler exposes the user context over HTTP.
type Handler struct {
	dir    Directory
	users  UserLoader
	logger *zap.Logger
}

// NewHandler creates a scope handler.
func NewHandler(dir Directory, users UserLoader, logger *zap.Logger) *Handler {
	return &Handler{dir: dir, users: users, logger: logger}
}

// resolve builds a request-scoped resolver, refreshes it for the
// authenticated user and applies the persisted selection.
func (h *Handler) resolve(c *gin.Context) *Resolver {
	userID := c.MustGet(auth.ContextUserID).(uuid.UUID)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		// No resolvable user behaves like no session.
		h.logger.Warn("load user failed", zap.Error(err))
		user = nil
	}
	r := NewResolver(h.dir, NewCookieStore(c), h.logger)
	r.Refresh(c.Request.Context(), user)
	return r
}

// GetContext handles GET /me/context.
func (h *Handler) GetContext(c *gin.Context) {
	response.OK(c, h.resolve(c).Snapshot())
}

// SelectOrganizationRequest is the body for PUT /me/organization. A null
// organization_id selects "all organizations".
type SelectOrganizationRequest struct {
	OrganizationID *uuid.UUID `json:"organization_id"`
}

// SelectOrganization handles PUT /me/organization. The selection is not
// validated against the user's memberships; visibility filtering downstream
// is what actually gates data access.
func (h *Handler) SelectOrganization(c *gin.Context) {
	var req SelectOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	r := h.resolve(c)
	if req.OrganizationID == nil {
		r.SetCurrentOrganization(c.Request.Context(), nil)
		response.OK(c, r.Snapshot())
		return
	}
	target := &models.OrganizationUser{OrganizationID: *req.OrganizationID}
	for _, m := range r.Snapshot().Organizations {
		if m.OrganizationID == *req.OrganizationID {
			edge := m
			target = &edge
			break
		}
	}
	r.SetCurrentOrganization(c.Request.Context(), target)
	response.OK(c, r.Snapshot())
}

// Context returns the resolved user context for middleware/handler use.
func (h *Handler) Context(c *gin.Context) UserContext {
	return h.resolve(c).Snapshot()
}
