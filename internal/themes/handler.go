package themes

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/pkg/queue"
	"github.com/agendaville/backend/pkg/response"
	"github.com/agendaville/backend/pkg/storage"
)

// Handler handles theme HTTP endpoints. All mutations are super admin only;
// the route group enforces that.
type Handler struct {
	repo     *Repository
	jobQueue *queue.Queue
	logger   *zap.Logger
}

// NewHandler creates a themes handler.
func NewHandler(repo *Repository, jobQueue *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jobQueue: jobQueue, logger: logger}
}

// SaveRequest is the body for theme create and update.
type SaveRequest struct {
	Name          string `json:"name" binding:"required"`
	ImageURL      string `json:"image_url"`
	ImageURLLight string `json:"image_url_light"`
}

// List handles GET /admin/themes.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list themes")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/themes.
func (h *Handler) Create(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	t := &models.Theme{Name: strings.TrimSpace(req.Name), ImageURL: req.ImageURL, ImageURLLight: req.ImageURLLight}
	if err := h.repo.Create(c.Request.Context(), t); err != nil {
		response.Internal(c, "failed to create theme")
		return
	}
	response.Created(c, t)
}

// Update handles PUT /admin/themes/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid theme id")
		return
	}
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		response.NotFound(c, "theme not found")
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, strings.TrimSpace(req.Name), req.ImageURL, req.ImageURLLight); err != nil {
		response.Internal(c, "failed to update theme")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to reload theme")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /admin/themes/:id. Both skin images are removed from
// storage asynchronously.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid theme id")
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "theme not found")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete theme")
		return
	}
	var keys []string
	for _, u := range []string{t.ImageURL, t.ImageURLLight} {
		if key := storage.KeyFromPublicURL(u); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		if err := h.jobQueue.EnqueueStorageCleanup(c.Request.Context(), queue.StorageCleanupPayload{Keys: keys}); err != nil {
			h.logger.Warn("enqueue theme image cleanup failed", zap.Error(err), zap.String("theme_id", id.String()))
		}
	}
	response.NoContent(c)
}
