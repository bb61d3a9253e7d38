package uploads

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agendaville/backend/pkg/response"
	"github.com/agendaville/backend/pkg/storage"
)

// Handler accepts multipart image uploads and stores them in S3.
type Handler struct {
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates an uploads handler.
func NewHandler(s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{s3: s3, logger: logger}
}

// Upload handles POST /uploads/:folder with a multipart "file" field.
// Folder must be one of events, themes or avatars.
func (h *Handler) Upload(c *gin.Context) {
	// S3 may be disabled (no region configured or client init failed).
	if h.s3 == nil {
		response.ServiceUnavailable(c, "file storage is not configured")
		return
	}
	folder := c.Param("folder")
	if !storage.ValidFolder(folder) {
		response.BadRequest(c, "unknown upload folder")
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required")
		return
	}
	if fileHeader.Size > storage.MaxImageSize {
		response.BadRequest(c, "file too large (max 5MB)")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateImageType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer file.Close()

	key := storage.ObjectKey(folder, fileHeader.Filename)
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, file, fileHeader.Size)
	if err != nil {
		h.logger.Error("upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to store file")
		return
	}
	response.Created(c, gin.H{"url": url, "key": key})
}
