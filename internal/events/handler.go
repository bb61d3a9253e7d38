package events

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendaville/backend/internal/agenda"
	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/internal/scope"
	"github.com/agendaville/backend/pkg/queue"
	"github.com/agendaville/backend/pkg/response"
	"github.com/agendaville/backend/pkg/storage"
)

const defaultPageSize = 20

// Handler handles event HTTP endpoints.
type Handler struct {
	repo     *Repository
	scopes   *scope.Handler
	jobQueue *queue.Queue
	logger   *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, scopes *scope.Handler, jobQueue *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, scopes: scopes, jobQueue: jobQueue, logger: logger}
}

// Section is one half of the public calendar payload.
type Section struct {
	Count  int                 `json:"count"`
	Groups []agenda.MonthGroup `json:"groups"`
}

// PublicAgenda is the response for GET /events.
type PublicAgenda struct {
	Upcoming Section `json:"upcoming"`
	Past     Section `json:"past"`
}

// ListPublic handles GET /events: accepted events split into upcoming and
// past around today and grouped month-then-day for rendering. Counts include
// dateless past events even though grouping drops them.
func (h *Handler) ListPublic(c *gin.Context) {
	events, err := h.repo.ListAccepted(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to load events")
		return
	}
	upcoming, past := agenda.Classify(events, time.Now())
	agenda.SortUpcoming(upcoming)
	agenda.SortPast(past)
	response.OK(c, PublicAgenda{
		Upcoming: Section{Count: len(upcoming), Groups: agenda.GroupByMonthThenDay(upcoming)},
		Past:     Section{Count: len(past), Groups: agenda.GroupByMonthThenDay(past)},
	})
}

// ProposeRequest is the body for POST /events/propose.
type ProposeRequest struct {
	Name          string `json:"name" binding:"required"`
	Datetime      string `json:"datetime" binding:"required"`
	Date          string `json:"date"`
	EndTime       string `json:"end_time"`
	Place         string `json:"place"`
	City          string `json:"city" binding:"required"`
	Department    string `json:"department"`
	Price         string `json:"price"`
	Audience      string `json:"audience"`
	Emoji         string `json:"emoji"`
	URL           string `json:"url"`
	ProposerName  string `json:"proposer_name" binding:"required"`
	ProposerEmail string `json:"proposer_email" binding:"required,email"`
}

// Propose handles POST /events/propose: a public submission entering the
// moderation queue as pending. The proposer snapshot is captured here and
// never updated afterwards.
func (h *Handler) Propose(c *gin.Context) {
	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name, datetime, city and proposer contact are required")
		return
	}
	e := &models.Event{
		Name:       strings.TrimSpace(req.Name),
		Datetime:   strings.TrimSpace(req.Datetime),
		Date:       req.Date,
		EndTime:    req.EndTime,
		Place:      req.Place,
		City:       strings.TrimSpace(req.City),
		Department: req.Department,
		Price:      req.Price,
		Audience:   req.Audience,
		Emoji:      req.Emoji,
		URL:        req.URL,
		Status:     models.EventPending,
		CreatedBy:  &models.Proposer{Name: req.ProposerName, Email: req.ProposerEmail},
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to submit event")
		return
	}
	response.Created(c, e)
}

// List handles GET /admin/events. Query params: page, per_page, q (name
// search), status, show_past. Visibility follows the caller's resolved
// scope.
func (h *Handler) List(c *gin.Context) {
	userCtx := h.scopes.Context(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPageSize)))
	if perPage < 1 || perPage > 100 {
		perPage = defaultPageSize
	}

	p := ListParams{
		Search:   c.Query("q"),
		Today:    time.Now().Format("2006-01-02"),
		ShowPast: c.Query("show_past") == "1",
		Filter:   userCtx.EventFilter(),
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
	}
	if s := c.Query("status"); s != "" {
		switch models.EventStatus(s) {
		case models.EventPending, models.EventAccepted, models.EventRejected:
			p.Status = models.EventStatus(s)
		default:
			response.BadRequest(c, "invalid status")
			return
		}
	}

	list, total, err := h.repo.List(c.Request.Context(), p)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, gin.H{"events": list, "total": total, "page": page, "per_page": perPage})
}

// CreateRequest is the body for POST /admin/events.
type CreateRequest struct {
	Name           string     `json:"name" binding:"required"`
	Datetime       string     `json:"datetime" binding:"required"`
	Date           string     `json:"date"`
	EndTime        string     `json:"end_time"`
	Place          string     `json:"place"`
	City           string     `json:"city" binding:"required"`
	Department     string     `json:"department"`
	Price          string     `json:"price"`
	Audience       string     `json:"audience"`
	Emoji          string     `json:"emoji"`
	URL            string     `json:"url"`
	ImageURL       string     `json:"image_url"`
	ThemeID        *uuid.UUID `json:"theme_id"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

// Create handles POST /admin/events: direct creation, already accepted.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name, datetime and city are required")
		return
	}
	userCtx := h.scopes.Context(c)
	if !canManageOrg(userCtx, req.OrganizationID) {
		response.Forbidden(c, "not authorized for this organization")
		return
	}
	e := &models.Event{
		Name:           strings.TrimSpace(req.Name),
		Datetime:       strings.TrimSpace(req.Datetime),
		Date:           req.Date,
		EndTime:        req.EndTime,
		Place:          req.Place,
		City:           strings.TrimSpace(req.City),
		Department:     req.Department,
		Price:          req.Price,
		Audience:       req.Audience,
		Emoji:          req.Emoji,
		URL:            req.URL,
		ImageURL:       req.ImageURL,
		ThemeID:        req.ThemeID,
		OrganizationID: req.OrganizationID,
		Status:         models.EventAccepted,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// UpdateRequest is the body for PATCH /admin/events/:id. Explicit nulls for
// theme_id/organization_id clear the reference.
type UpdateRequest struct {
	Name           *string    `json:"name"`
	Datetime       *string    `json:"datetime"`
	Date           *string    `json:"date"`
	EndTime        *string    `json:"end_time"`
	Place          *string    `json:"place"`
	City           *string    `json:"city"`
	Department     *string    `json:"department"`
	Price          *string    `json:"price"`
	Audience       *string    `json:"audience"`
	Emoji          *string    `json:"emoji"`
	URL            *string    `json:"url"`
	ImageURL       *string    `json:"image_url"`
	ThemeID        *uuid.UUID `json:"theme_id"`
	ClearTheme     bool       `json:"clear_theme"`
	OrganizationID *uuid.UUID `json:"organization_id"`
	ClearOrg       bool       `json:"clear_organization"`
}

// Update handles PATCH /admin/events/:id.
func (h *Handler) Update(c *gin.Context) {
	e, userCtx, ok := h.loadManaged(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		response.BadRequest(c, "name cannot be empty")
		return
	}
	if req.City != nil && strings.TrimSpace(*req.City) == "" {
		response.BadRequest(c, "city cannot be empty")
		return
	}
	if msg := updateForbidden(userCtx, req); msg != "" {
		response.Forbidden(c, msg)
		return
	}
	p := UpdateParams{
		Name: req.Name, Datetime: req.Datetime, Date: req.Date, EndTime: req.EndTime,
		Place: req.Place, City: req.City, Department: req.Department, Price: req.Price,
		Audience: req.Audience, Emoji: req.Emoji, URL: req.URL, ImageURL: req.ImageURL,
		ThemeID: req.ThemeID, ClearTheme: req.ClearTheme,
		OrganizationID: req.OrganizationID, ClearOrg: req.ClearOrg,
	}
	if err := h.repo.Update(c.Request.Context(), e.ID, p); err != nil {
		response.Internal(c, "failed to update event")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), e.ID)
	if err != nil {
		response.Internal(c, "failed to reload event")
		return
	}
	response.OK(c, updated)
}

// Accept handles POST /admin/events/:id/accept.
func (h *Handler) Accept(c *gin.Context) {
	h.moderate(c, models.EventAccepted)
}

// Reject handles POST /admin/events/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	h.moderate(c, models.EventRejected)
}

func (h *Handler) moderate(c *gin.Context, status models.EventStatus) {
	e, _, ok := h.loadManaged(c)
	if !ok {
		return
	}
	if err := h.repo.UpdateStatus(c.Request.Context(), e.ID, status); err != nil {
		response.Internal(c, "failed to update event status")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), e.ID)
	if err != nil {
		response.Internal(c, "failed to reload event")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /admin/events/:id. The cover image, if any, is
// removed from storage asynchronously.
func (h *Handler) Delete(c *gin.Context) {
	e, _, ok := h.loadManaged(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), e.ID); err != nil {
		response.Internal(c, "failed to delete event")
		return
	}
	if key := storage.KeyFromPublicURL(e.ImageURL); key != "" {
		if err := h.jobQueue.EnqueueStorageCleanup(c.Request.Context(), queue.StorageCleanupPayload{Keys: []string{key}}); err != nil {
			h.logger.Warn("enqueue image cleanup failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		}
	}
	response.NoContent(c)
}

// loadManaged loads the event from :id and checks the caller may manage it.
func (h *Handler) loadManaged(c *gin.Context) (*models.Event, scope.UserContext, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, scope.UserContext{}, false
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return nil, scope.UserContext{}, false
	}
	userCtx := h.scopes.Context(c)
	if !canManageOrg(userCtx, e.OrganizationID) {
		response.Forbidden(c, "not authorized for this event")
		return nil, scope.UserContext{}, false
	}
	return e, userCtx, true
}

// updateForbidden returns the reason an update request exceeds the caller's
// permissions, or "" when it is allowed. Detaching an event from its
// organization makes it global, so that is super admin territory like any
// other global event.
func updateForbidden(userCtx scope.UserContext, req UpdateRequest) string {
	if req.ClearOrg && !userCtx.IsSuperAdmin {
		return "only super admins can detach an event from its organization"
	}
	if req.OrganizationID != nil && !canManageOrg(userCtx, req.OrganizationID) {
		return "not authorized for the target organization"
	}
	return ""
}

// canManageOrg decides whether the caller may manage content owned by the
// given organization. Super admins may everywhere; unscoped (global) content
// is super admin territory only; otherwise the caller needs the
// organization_admin role in that specific organization.
func canManageOrg(userCtx scope.UserContext, orgID *uuid.UUID) bool {
	if userCtx.IsSuperAdmin {
		return true
	}
	if orgID == nil {
		return false
	}
	for _, m := range userCtx.Organizations {
		if m.OrganizationID == *orgID {
			return m.Role == models.OrgRoleAdmin
		}
	}
	return false
}
