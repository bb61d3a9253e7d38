package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agendaville/backend/internal/models"
	"github.com/agendaville/backend/pkg/queue"
	"github.com/agendaville/backend/pkg/response"
	"github.com/agendaville/backend/pkg/utils"
)

// EmailAuditor records outbound mail for the audit trail. Implemented by the
// emaillogs repository.
type EmailAuditor interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo      *Repository
	jwt       *JWTService
	otp       *OTPStore
	emailLogs EmailAuditor
	jobQueue  *queue.Queue
	logger    *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, otp *OTPStore, emailLogs EmailAuditor, jobQueue *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, otp: otp, emailLogs: emailLogs, jobQueue: jobQueue, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := h.repo.GetByEmail(c.Request.Context(), email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.repo.Create(c.Request.Context(), email, hash, strings.TrimSpace(req.FullName))
	if err != nil {
		response.Internal(c, "failed to create user")
		return
	}
	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.repo.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || user.Password == "" || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// EmailRequest carries just an email address.
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestOTP handles POST /auth/otp. Always answers 200 so the endpoint
// does not reveal which addresses have accounts.
func (h *Handler) RequestOTP(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email is required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ctx := c.Request.Context()

	if _, err := h.repo.GetByEmail(ctx, email); err == nil {
		code, err := h.otp.IssueCode(ctx, email)
		if err != nil {
			h.logger.Warn("issue otp failed", zap.Error(err))
		} else {
			h.sendMail(c, models.EmailTypeOTPCode, email, "Votre code de connexion",
				fmt.Sprintf("<p>Votre code de connexion : <strong>%s</strong> (valable 10 minutes).</p>", code))
		}
	}
	response.OK(c, gin.H{"message": "if the address exists, a code has been sent"})
}

// VerifyOTPRequest is the body for POST /auth/otp/verify.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// VerifyOTP handles POST /auth/otp/verify.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and code are required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ok, err := h.otp.ConsumeCode(c.Request.Context(), email, req.Code)
	if err != nil {
		h.logger.Warn("otp check failed", zap.Error(err))
	}
	if !ok {
		response.Unauthorized(c, "invalid or expired code")
		return
	}
	user, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		response.Unauthorized(c, "invalid or expired code")
		return
	}
	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// RequestPasswordReset handles POST /auth/password-reset.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email is required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ctx := c.Request.Context()

	if _, err := h.repo.GetByEmail(ctx, email); err == nil {
		token, err := h.otp.IssueResetToken(ctx, email)
		if err != nil {
			h.logger.Warn("issue reset token failed", zap.Error(err))
		} else {
			h.sendMail(c, models.EmailTypePasswordReset, email, "Réinitialisation de votre mot de passe",
				fmt.Sprintf("<p>Utilisez ce jeton pour réinitialiser votre mot de passe : <code>%s</code> (valable 1 heure).</p>", token))
		}
	}
	response.OK(c, gin.H{"message": "if the address exists, a reset link has been sent"})
}

// ConfirmPasswordResetRequest is the body for POST /auth/password-reset/confirm.
type ConfirmPasswordResetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ConfirmPasswordReset handles POST /auth/password-reset/confirm.
func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req ConfirmPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "token and password are required")
		return
	}
	email, ok, err := h.otp.ConsumeResetToken(c.Request.Context(), req.Token)
	if err != nil {
		h.logger.Warn("reset token check failed", zap.Error(err))
	}
	if !ok {
		response.Unauthorized(c, "invalid or expired token")
		return
	}
	user, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		response.Internal(c, "failed to update password")
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}

// UpdateMeRequest is the body for PATCH /auth/me.
type UpdateMeRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Password  *string `json:"password"`
}

// UpdateMe handles PATCH /auth/me (JWT required).
func (h *Handler) UpdateMe(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	ctx := c.Request.Context()
	if req.FullName != nil || req.AvatarURL != nil {
		if err := h.repo.UpdateProfile(ctx, userID, req.FullName, req.AvatarURL); err != nil {
			response.Internal(c, "failed to update profile")
			return
		}
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			response.BadRequest(c, "password must be at least 8 characters")
			return
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			response.Internal(c, "failed to hash password")
			return
		}
		if err := h.repo.UpdatePassword(ctx, userID, hash); err != nil {
			response.Internal(c, "failed to update password")
			return
		}
	}
	user, err := h.repo.GetByID(ctx, userID)
	if err != nil {
		response.Internal(c, "failed to reload user")
		return
	}
	response.OK(c, user.ToPublic())
}

// List handles GET /admin/users (super admin only; for invitations and
// super admin grants).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// sendMail records an audit row and enqueues delivery. Failures are logged,
// never surfaced: mail is best effort.
func (h *Handler) sendMail(c *gin.Context, emailType, recipient, subject, bodyHTML string) {
	ctx := c.Request.Context()
	log := &models.EmailLog{
		EmailType:      emailType,
		RecipientEmail: recipient,
		Subject:        subject,
		Status:         models.EmailLogStatusPending,
	}
	if err := h.emailLogs.Create(ctx, log); err != nil {
		h.logger.Warn("email log failed", zap.Error(err), zap.String("email_type", emailType))
		return
	}
	payload := queue.EmailPayload{
		EmailLogID:     log.ID,
		EmailType:      emailType,
		RecipientEmail: recipient,
		Subject:        subject,
		BodyHTML:       bodyHTML,
	}
	if err := h.jobQueue.EnqueueEmail(ctx, payload); err != nil {
		h.logger.Warn("enqueue email failed", zap.Error(err), zap.String("email_type", emailType))
	}
}
