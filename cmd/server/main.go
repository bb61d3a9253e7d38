// Package main runs the community agenda HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agendaville/backend/config"
	"github.com/agendaville/backend/internal/auth"
	"github.com/agendaville/backend/internal/emaillogs"
	"github.com/agendaville/backend/internal/events"
	"github.com/agendaville/backend/internal/middleware"
	"github.com/agendaville/backend/internal/organizations"
	"github.com/agendaville/backend/internal/scope"
	"github.com/agendaville/backend/internal/themes"
	"github.com/agendaville/backend/internal/uploads"
	"github.com/agendaville/backend/pkg/database"
	"github.com/agendaville/backend/pkg/queue"
	"github.com/agendaville/backend/pkg/redis"
	"github.com/agendaville/backend/pkg/response"
	"github.com/agendaville/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.UploadsBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	otpStore := auth.NewOTPStore(rdb.Client)
	emailLogsRepo := emaillogs.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, otpStore, emailLogsRepo, jobQueue, logger)

	// Scope resolution (super admin / organization roles and selection)
	directory := scope.NewPgDirectory(pool)
	scopeHandler := scope.NewHandler(directory, authRepo, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, scopeHandler, jobQueue, logger)

	// Themes
	themeRepo := themes.NewRepository(pool)
	themeHandler := themes.NewHandler(themeRepo, jobQueue, logger)

	// Organizations and super admins
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo, scopeHandler, authRepo, emailLogsRepo, jobQueue, logger)

	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, scopeHandler)
	uploadHandler := uploads.NewHandler(s3Client, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public calendar and proposals
	router.GET("/events", eventHandler.ListPublic)
	router.POST("/events/propose", eventHandler.Propose)
	router.GET("/themes", themeHandler.List)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/otp", authHandler.RequestOTP)
		authGroup.POST("/otp/verify", authHandler.VerifyOTP)
		authGroup.POST("/password-reset", authHandler.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.PATCH("/auth/me", authHandler.UpdateMe)

		// Resolved scope: who am I, which organizations, which is selected
		api.GET("/me/context", scopeHandler.GetContext)
		api.PUT("/me/organization", scopeHandler.SelectOrganization)

		// Uploads (events, themes, avatars)
		api.POST("/uploads/:folder", uploadHandler.Upload)

		// Back office events: visibility follows the caller's resolved scope,
		// per-organization permission is checked in the handlers.
		api.GET("/admin/events", eventHandler.List)
		api.POST("/admin/events", eventHandler.Create)
		api.PATCH("/admin/events/:id", eventHandler.Update)
		api.POST("/admin/events/:id/accept", eventHandler.Accept)
		api.POST("/admin/events/:id/reject", eventHandler.Reject)
		api.DELETE("/admin/events/:id", eventHandler.Delete)

		// Member management: super admins or the organization's own admins.
		api.GET("/admin/organizations/:id/members", orgHandler.ListMembers)
		api.POST("/admin/organizations/:id/invitations", orgHandler.Invite)
		api.PATCH("/admin/organizations/:id/members/:userId", orgHandler.UpdateMemberRole)
		api.DELETE("/admin/organizations/:id/members/:userId", orgHandler.RemoveMember)
		api.GET("/admin/organizations/:id/emails", emailLogsHandler.ListByOrganization)

		// Super admin only
		super := api.Group("", middleware.RequireSuperAdmin(directory))
		{
			super.GET("/admin/users", authHandler.List)

			super.GET("/admin/organizations", orgHandler.List)
			super.POST("/admin/organizations", orgHandler.Create)
			super.PUT("/admin/organizations/:id", orgHandler.Update)
			super.POST("/admin/organizations/:id/deactivate", orgHandler.Deactivate)
			super.POST("/admin/organizations/:id/reactivate", orgHandler.Reactivate)
			super.DELETE("/admin/organizations/:id", orgHandler.Delete)

			super.GET("/admin/themes", themeHandler.List)
			super.POST("/admin/themes", themeHandler.Create)
			super.PUT("/admin/themes/:id", themeHandler.Update)
			super.DELETE("/admin/themes/:id", themeHandler.Delete)

			super.GET("/admin/super-admins", orgHandler.ListSuperAdmins)
			super.POST("/admin/super-admins", orgHandler.GrantSuperAdmin)
			super.DELETE("/admin/super-admins/:userId", orgHandler.RevokeSuperAdmin)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
