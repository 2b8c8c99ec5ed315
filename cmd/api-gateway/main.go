package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/attendance-grid-api/api/swagger"
	"github.com/noah-isme/attendance-grid-api/internal/handler"
	"github.com/noah-isme/attendance-grid-api/internal/middleware"
	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/internal/repository"
	"github.com/noah-isme/attendance-grid-api/internal/service"
	"github.com/noah-isme/attendance-grid-api/pkg/cache"
	"github.com/noah-isme/attendance-grid-api/pkg/config"
	"github.com/noah-isme/attendance-grid-api/pkg/database"
	"github.com/noah-isme/attendance-grid-api/pkg/jobs"
	"github.com/noah-isme/attendance-grid-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attendance-grid-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attendance-grid-api/pkg/middleware/requestid"
	"github.com/noah-isme/attendance-grid-api/pkg/notify"
)

// @title Attendance Grid API
// @version 1.0.0
// @description Weekly attendance grid with daily rollups, staged editing and batch submission
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, grid caching disabled", "error", err)
		redisClient = nil
	}

	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grid.CacheTTL, logr, cfg.Grid.CacheEnabled && redisClient != nil)

	gridRepo := repository.NewGridRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	writeRepo := repository.NewAttendanceWriteRepository(db)
	userRepo := repository.NewUserRepository(db)

	rollup := service.NewRollupEngine(metrics, logr)
	stats := service.NewStatisticsAggregator()
	gridSvc := service.NewGridService(gridRepo, subjectRepo, rollup, stats, cacheSvc, cfg.Grid, logr)

	sender := notify.NewTelegramSender(notify.TelegramConfig{
		BotToken: cfg.Notifier.BotToken,
		ChatID:   cfg.Notifier.ChatID,
		Timeout:  cfg.Notifier.HTTPTimeout,
	})
	notifier := service.NewNotificationService(sender, cfg.Notifier.Enabled, jobs.QueueConfig{
		Workers:    cfg.Notifier.Workers,
		MaxRetries: cfg.Notifier.MaxRetries,
		RetryDelay: cfg.Notifier.RetryDelay,
		Logger:     logr,
	}, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	sessionSvc := service.NewEditSessionService(gridSvc, writeRepo, notifier, metrics, cfg.Sessions, logr)
	sessionSvc.StartCleanup(ctx)

	exportSvc := service.NewExportService(gridSvc, cfg.Export.Enabled, logr, nil, nil)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "attendance-grid-api",
	})

	authHandler := handler.NewAuthHandler(authSvc)
	gridHandler := handler.NewGridHandler(gridSvc, exportSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	attendance := api.Group("/attendance", middleware.JWT(authSvc))
	attendance.GET("/grid", gridHandler.Grid)
	attendance.GET("/grid/export", gridHandler.Export)

	sessions := attendance.Group("/sessions", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	sessions.POST("", sessionHandler.Open)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.DELETE("/:id", sessionHandler.Discard)
	sessions.POST("/:id/changes", sessionHandler.Stage)
	sessions.GET("/:id/changes", sessionHandler.Changes)
	sessions.DELETE("/:id/changes", sessionHandler.ClearChanges)
	sessions.POST("/:id/changes/remove", sessionHandler.Unstage)
	sessions.POST("/:id/bulk/activate", sessionHandler.BulkActivate)
	sessions.POST("/:id/bulk/toggle", sessionHandler.BulkToggle)
	sessions.POST("/:id/bulk/select-all", sessionHandler.BulkSelectAll)
	sessions.POST("/:id/bulk/deselect-all", sessionHandler.BulkDeselectAll)
	sessions.POST("/:id/bulk/status", sessionHandler.BulkSetStatus)
	sessions.POST("/:id/bulk/apply", sessionHandler.BulkApply)
	sessions.POST("/:id/bulk/cancel", sessionHandler.BulkCancel)
	sessions.GET("/:id/bulk", sessionHandler.BulkSession)
	sessions.POST("/:id/global/toggle", sessionHandler.GlobalToggle)
	sessions.GET("/:id/global", sessionHandler.GlobalSelection)
	sessions.DELETE("/:id/global", sessionHandler.GlobalClear)
	sessions.POST("/:id/global/apply", sessionHandler.GlobalApply)
	sessions.POST("/:id/submit", sessionHandler.Submit)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
