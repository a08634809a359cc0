package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/konversi-api/api/swagger"
	"github.com/noah-isme/konversi-api/internal/handler"
	"github.com/noah-isme/konversi-api/internal/middleware"
	"github.com/noah-isme/konversi-api/internal/models"
	"github.com/noah-isme/konversi-api/internal/repository"
	"github.com/noah-isme/konversi-api/internal/service"
	"github.com/noah-isme/konversi-api/pkg/cache"
	"github.com/noah-isme/konversi-api/pkg/config"
	"github.com/noah-isme/konversi-api/pkg/database"
	"github.com/noah-isme/konversi-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/konversi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/konversi-api/pkg/middleware/requestid"
	"github.com/noah-isme/konversi-api/pkg/storage"
)

// @title Konversi API
// @version 1.0.0
// @description Credit conversion service for transfer students
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, curriculum cache disabled", zap.Error(err))
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewConversionRequestRepository(db)
	detailRepo := repository.NewConversionDetailRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	txManager := repository.NewTxManager(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	curriculumSvc := service.NewCurriculumService(curriculumRepo, cacheRepo, cfg.Curriculum.CacheTTL, logr)
	extractionSvc := service.NewExtractionService(cfg.Extraction, cfg.Uploads, uploads, metricsSvc, logr)
	conversionSvc := service.NewConversionService(requestRepo, detailRepo, approvalRepo, curriculumRepo, txManager, metricsSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	curriculumHandler := handler.NewCurriculumHandler(curriculumSvc)
	conversionHandler := handler.NewConversionHandler(conversionSvc, extractionSvc, uploads, signer)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/files/transcript", conversionHandler.DownloadTranscript)

		authed := api.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			authed.GET("/auth/me", authHandler.Me)

			authed.GET("/programs", curriculumHandler.ListPrograms)
			authed.GET("/programs/:id", curriculumHandler.GetProgram)
			authed.GET("/programs/:id/courses", curriculumHandler.ListCourses)

			conversions := authed.Group("/conversions")
			{
				conversions.POST("", middleware.RequireRoles(models.RoleStudent), conversionHandler.Create)
				conversions.GET("/mine", middleware.RequireRoles(models.RoleStudent), conversionHandler.ListMine)
				conversions.GET("/queue", conversionHandler.Queue)
				conversions.GET("/archive", middleware.RequireRoles(models.RoleAdmin, models.RoleBAA, models.RoleDekan), conversionHandler.Archive)
				conversions.GET("/:id", conversionHandler.Get)
				conversions.GET("/:id/history", conversionHandler.History)
				conversions.GET("/:id/transcript-url", conversionHandler.TranscriptURL)
				conversions.POST("/:id/transcript", middleware.RequireRoles(models.RoleStudent), conversionHandler.UploadTranscript)
				conversions.PUT("/:id/courses", middleware.RequireRoles(models.RoleStudent), conversionHandler.AttachCourses)
				conversions.POST("/:id/submit", middleware.RequireRoles(models.RoleStudent), conversionHandler.Submit)
				conversions.POST("/:id/kaprodi-review", middleware.RequireRoles(models.RoleKaprodi), conversionHandler.ReviewKaprodi)
				conversions.POST("/:id/confirm", middleware.RequireRoles(models.RoleStudent), conversionHandler.Confirm)
				conversions.POST("/:id/dean-review", middleware.RequireRoles(models.RoleDekan), conversionHandler.ReviewDean)
				conversions.POST("/:id/baa-review", middleware.RequireRoles(models.RoleBAA), conversionHandler.ReviewBAA)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
