package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-roadmap-api/api/swagger"
	"github.com/noah-isme/sma-roadmap-api/internal/handler"
	"github.com/noah-isme/sma-roadmap-api/internal/middleware"
	"github.com/noah-isme/sma-roadmap-api/internal/planner"
	"github.com/noah-isme/sma-roadmap-api/internal/repository"
	"github.com/noah-isme/sma-roadmap-api/internal/service"
	"github.com/noah-isme/sma-roadmap-api/pkg/cache"
	"github.com/noah-isme/sma-roadmap-api/pkg/config"
	"github.com/noah-isme/sma-roadmap-api/pkg/database"
	"github.com/noah-isme/sma-roadmap-api/pkg/jobs"
	"github.com/noah-isme/sma-roadmap-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-roadmap-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-roadmap-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-roadmap-api/pkg/storage"
)

// @title Term Roadmap API
// @version 1.0.0
// @description Lays lessons over the instructional days of a school term.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pattern, err := planner.ParsePattern(cfg.Planner.InstructionalDays)
	if err != nil {
		logr.Fatal("invalid INSTRUCTIONAL_DAYS", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, lesson detail cache disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, "roadmap", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Enrichment.CacheTTL, logr, redisClient != nil)

	planRepo := repository.NewPlanRepository(db)
	userRepo := repository.NewUserRepository(db)

	enrichmentSvc := service.NewEnrichmentService(service.EnrichmentConfig{
		Enabled:         cfg.Enrichment.Enabled,
		URL:             cfg.Enrichment.URL,
		APIKey:          cfg.Enrichment.APIKey,
		Timeout:         cfg.Enrichment.Timeout,
		CacheTTL:        cfg.Enrichment.CacheTTL,
		BreakerFailures: cfg.Enrichment.BreakerFailures,
		BreakerTimeout:  cfg.Enrichment.BreakerTimeout,
	}, &http.Client{}, cacheSvc, metrics, logr)

	warmupQueue := jobs.NewQueue("lesson-detail-warmup", enrichmentSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Enrichment.Workers,
		MaxRetries: cfg.Enrichment.WorkerRetries,
		RetryDelay: cfg.Enrichment.WarmupRetryDelay,
		Logger:     logr,
	})
	warmupQueue.Start(ctx)
	defer warmupQueue.Stop()

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	roadmapSvc := service.NewRoadmapService(planner.New(pattern), planRepo, validate, metrics, logr, cfg.Planner.MaxRangeDays)
	planSvc := service.NewPlanService(planRepo, enrichmentSvc, warmupQueue, validate, logr, cfg.Planner.MaxRangeDays)
	exportSvc := service.NewExportService(roadmapSvc, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, metrics, logr, nil, nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)

	readiness := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		readiness["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, routeHandlers{
		auth:       handler.NewAuthHandler(authSvc),
		roadmap:    handler.NewRoadmapHandler(roadmapSvc),
		plan:       handler.NewPlanHandler(planSvc),
		export:     handler.NewExportHandler(exportSvc),
		enrichment: handler.NewEnrichmentHandler(enrichmentSvc),
		metrics:    handler.NewMetricsHandler(metrics, readiness),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeHandlers struct {
	auth       *handler.AuthHandler
	roadmap    *handler.RoadmapHandler
	plan       *handler.PlanHandler
	export     *handler.ExportHandler
	enrichment *handler.EnrichmentHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers, tokens middleware.TokenValidator) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)
	api.GET("/auth/me", middleware.JWT(tokens), h.auth.Me)

	api.POST("/roadmap/preview", h.roadmap.Preview)
	api.POST("/roadmap/stats", h.roadmap.Stats)
	api.GET("/roadmap/weeks", h.roadmap.WeekRanges)

	api.GET("/exports/:token", h.export.Download)

	ops := api.Group("/enrichment", middleware.JWT(tokens), middleware.RequireRoles(middleware.Operators...))
	ops.GET("/status", h.enrichment.Status)
	ops.DELETE("/cache", h.enrichment.PurgeCache)

	plans := api.Group("/plans")
	read := plans.Group("", middleware.OptionalJWT(tokens))
	read.GET("", h.plan.List)
	read.GET("/:id", h.plan.Get)
	read.GET("/:id/roadmap", h.roadmap.PlanRoadmap)
	read.GET("/:id/lessons/details", h.plan.LessonDetails)
	read.GET("/:id/lessons/:lessonId/days", h.roadmap.LessonDays)
	read.GET("/:id/exclusions/export", h.plan.ExportExclusions)

	write := plans.Group("", middleware.JWT(tokens), middleware.RequireRoles(middleware.PlanEditors...))
	write.POST("", h.plan.Create)
	write.PUT("/:id", h.plan.Update)
	write.DELETE("/:id", h.plan.Delete)
	write.PUT("/:id/lessons", h.plan.ReplaceLessons)
	write.PUT("/:id/exclusions", h.plan.ReplaceExclusions)
	write.POST("/:id/exclusions/import", h.plan.ImportExclusions)
	write.POST("/:id/exports", h.export.Create)
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.Cleanup(0); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
