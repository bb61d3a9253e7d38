package organizations

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendaville/backend/internal/emaillogs"
	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/internal/scope"
	"github.com/agendaville/backend/pkg/queue"
	"github.com/agendaville/backend/pkg/response"
)

// UserProvisioner looks up and creates accounts for invitations. Implemented
// by the auth repository.
type UserProvisioner interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateInvited(ctx context.Context, email string) (*models.User, error)
}

// Handler handles organization HTTP endpoints. Organization CRUD and super
// admin management are super admin only (route-group enforced); member
// operations also allow the organization's own admins.
type Handler struct {
	repo      *Repository
	scopes    *scope.Handler
	users     UserProvisioner
	emailLogs *emaillogs.Repository
	jobQueue  *queue.Queue
	logger    *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, scopes *scope.Handler, users UserProvisioner, emailLogs *emaillogs.Repository, jobQueue *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, scopes: scopes, users: users, emailLogs: emailLogs, jobQueue: jobQueue, logger: logger}
}

// SaveRequest is the body for organization create and update.
type SaveRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
	WebsiteURL   string `json:"website_url"`
}

// List handles GET /admin/organizations (super admin).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list organizations")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/organizations (super admin).
func (h *Handler) Create(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	org := &models.Organization{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		WebsiteURL:   req.WebsiteURL,
	}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		response.Internal(c, "failed to create organization")
		return
	}
	response.Created(c, org)
}

// Update handles PUT /admin/organizations/:id (super admin).
func (h *Handler) Update(c *gin.Context) {
	org, ok := h.loadOrg(c)
	if !ok {
		return
	}
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	org.Name = strings.TrimSpace(req.Name)
	org.Description = req.Description
	org.ContactEmail = req.ContactEmail
	org.ContactPhone = req.ContactPhone
	org.Address = req.Address
	org.WebsiteURL = req.WebsiteURL
	if err := h.repo.Update(c.Request.Context(), org); err != nil {
		response.Internal(c, "failed to update organization")
		return
	}
	response.OK(c, org)
}

// Deactivate handles POST /admin/organizations/:id/deactivate (super admin).
func (h *Handler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate handles POST /admin/organizations/:id/reactivate (super admin).
func (h *Handler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	org, ok := h.loadOrg(c)
	if !ok {
		return
	}
	if err := h.repo.SetActive(c.Request.Context(), org.ID, active); err != nil {
		response.Internal(c, "failed to update organization")
		return
	}
	org.IsActive = active
	response.OK(c, org)
}

// Delete handles DELETE /admin/organizations/:id (super admin).
func (h *Handler) Delete(c *gin.Context) {
	org, ok := h.loadOrg(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), org.ID); err != nil {
		response.Internal(c, "failed to delete organization")
		return
	}
	response.NoContent(c)
}

// ListMembers handles GET /admin/organizations/:id/members. Allowed for
// super admins and that organization's admins.
func (h *Handler) ListMembers(c *gin.Context) {
	org, ok := h.loadManagedOrg(c)
	if !ok {
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), org.ID)
	if err != nil {
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}

// InviteRequest is the body for POST /admin/organizations/:id/invitations.
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// Invite handles POST /admin/organizations/:id/invitations: provisions the
// account if needed, adds the membership and queues the invitation email.
func (h *Handler) Invite(c *gin.Context) {
	org, ok := h.loadManagedOrg(c)
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and role are required")
		return
	}
	if req.Role != models.OrgRoleAdmin && req.Role != models.OrgRoleMember {
		response.BadRequest(c, "invalid role")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx := c.Request.Context()
	user, err := h.users.GetByEmail(ctx, email)
	if err != nil {
		user, err = h.users.CreateInvited(ctx, email)
		if err != nil {
			response.Internal(c, "failed to create invited user")
			return
		}
	}
	if err := h.repo.UpsertMembership(ctx, org.ID, user.ID, req.Role); err != nil {
		response.Internal(c, "failed to add membership")
		return
	}

	subject := fmt.Sprintf("Invitation à rejoindre %s", org.Name)
	log := &models.EmailLog{
		OrganizationID: &org.ID,
		EmailType:      models.EmailTypeInvitation,
		RecipientEmail: email,
		Subject:        subject,
		Status:         models.EmailLogStatusPending,
	}
	if err := h.emailLogs.Create(ctx, log); err != nil {
		h.logger.Warn("invitation email log failed", zap.Error(err))
	} else {
		payload := queue.EmailPayload{
			EmailLogID:     log.ID,
			EmailType:      models.EmailTypeInvitation,
			OrganizationID: &org.ID,
			RecipientEmail: email,
			Subject:        subject,
			BodyHTML:       fmt.Sprintf("<p>Vous avez été invité·e à rejoindre <strong>%s</strong> sur Agendaville.</p>", org.Name),
		}
		if err := h.jobQueue.EnqueueEmail(ctx, payload); err != nil {
			h.logger.Warn("enqueue invitation email failed", zap.Error(err))
		}
	}
	response.Created(c, gin.H{"organization_id": org.ID, "user_id": user.ID, "role": req.Role})
}

// MemberRoleRequest is the body for PATCH /admin/organizations/:id/members/:userId.
type MemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateMemberRole handles PATCH /admin/organizations/:id/members/:userId.
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	org, ok := h.loadManagedOrg(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req MemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "role is required")
		return
	}
	if req.Role != models.OrgRoleAdmin && req.Role != models.OrgRoleMember {
		response.BadRequest(c, "invalid role")
		return
	}
	if err := h.repo.SetMembershipRole(c.Request.Context(), org.ID, userID, req.Role); err != nil {
		response.Internal(c, "failed to update role")
		return
	}
	response.OK(c, gin.H{"organization_id": org.ID, "user_id": userID, "role": req.Role})
}

// RemoveMember handles DELETE /admin/organizations/:id/members/:userId. Soft
// delete only: the edge is kept with is_active=false.
func (h *Handler) RemoveMember(c *gin.Context) {
	org, ok := h.loadManagedOrg(c)
	if !ok {
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.DeactivateMembership(c.Request.Context(), org.ID, userID); err != nil {
		response.Internal(c, "failed to remove member")
		return
	}
	response.NoContent(c)
}

// ListSuperAdmins handles GET /admin/super-admins (super admin).
func (h *Handler) ListSuperAdmins(c *gin.Context) {
	list, err := h.repo.SuperAdmins(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list super admins")
		return
	}
	response.OK(c, list)
}

// SuperAdminRequest is the body for POST /admin/super-admins.
type SuperAdminRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// GrantSuperAdmin handles POST /admin/super-admins (super admin).
func (h *Handler) GrantSuperAdmin(c *gin.Context) {
	var req SuperAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "user_id is required")
		return
	}
	if err := h.repo.GrantSuperAdmin(c.Request.Context(), req.UserID); err != nil {
		response.Internal(c, "failed to grant super admin")
		return
	}
	response.Created(c, gin.H{"user_id": req.UserID})
}

// RevokeSuperAdmin handles DELETE /admin/super-admins/:userId (super admin).
func (h *Handler) RevokeSuperAdmin(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.RevokeSuperAdmin(c.Request.Context(), userID); err != nil {
		response.Internal(c, "failed to revoke super admin")
		return
	}
	response.NoContent(c)
}

func (h *Handler) loadOrg(c *gin.Context) (*models.Organization, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return nil, false
	}
	org, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "organization not found")
		return nil, false
	}
	return org, true
}

// loadManagedOrg loads :id and checks the caller is a super admin or an
// admin of that organization.
func (h *Handler) loadManagedOrg(c *gin.Context) (*models.Organization, bool) {
	org, ok := h.loadOrg(c)
	if !ok {
		return nil, false
	}
	userCtx := h.scopes.Context(c)
	if userCtx.IsSuperAdmin {
		return org, true
	}
	for _, m := range userCtx.Organizations {
		if m.OrganizationID == org.ID && m.Role == models.OrgRoleAdmin {
			return org, true
		}
	}
	response.Forbidden(c, "not authorized for this organization")
	return nil, false
}
