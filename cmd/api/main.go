package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tailms-api/api/swagger"
	"github.com/noah-isme/tailms-api/internal/handler"
	"github.com/noah-isme/tailms-api/internal/repository"
	"github.com/noah-isme/tailms-api/internal/router"
	"github.com/noah-isme/tailms-api/internal/service"
	"github.com/noah-isme/tailms-api/pkg/cache"
	"github.com/noah-isme/tailms-api/pkg/config"
	"github.com/noah-isme/tailms-api/pkg/database"
	"github.com/noah-isme/tailms-api/pkg/jobs"
	"github.com/noah-isme/tailms-api/pkg/logger"
)

// @title TailMS API
// @version 1.0.0
// @description Learning management backend: accounts, course catalog, enrollments and progress.
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

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("migrations failed", zap.Error(err))
		}
	}

	// A nil client keeps the cache repository in always-miss mode.
	var redisClient redis.UniversalClient
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	audit := service.NewAuditRecorder(auditRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
	})
	audit.Start(context.Background())
	cacheRepo := repository.NewCacheRepository(redisClient)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, audit, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, audit, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, metrics, logr, service.EnrollmentConfig{
		AllowUnpublished: cfg.Enrollment.AllowUnpublished,
	})
	exportSvc := service.NewExportService(enrollmentSvc, courseSvc, logr, nil, nil)

	optional := map[string]handler.ReadinessCheck{}
	if redisClient != nil {
		optional["cache"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	handlers := router.Handlers{
		Auth:           handler.NewAuthHandler(authSvc),
		Users:          handler.NewUserHandler(userSvc),
		AdminCourses:   handler.NewAdminCourseHandler(courseSvc, enrollmentSvc, exportSvc),
		StudentCourses: handler.NewStudentCourseHandler(courseSvc, enrollmentSvc),
		Metrics: handler.NewMetricsHandler(metrics.Handler(),
			map[string]handler.ReadinessCheck{"database": db.PingContext},
			optional),
	}

	r := router.New(cfg, handlers, router.Deps{
		Tokens:    authSvc,
		Audit:     audit,
		Observer:  metrics,
		Validator: validate,
		Logger:    logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	audit.Stop()
	logr.Info("server stopped")
}
