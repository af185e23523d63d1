package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-tc-api/api/swagger"
	"github.com/noah-isme/sma-tc-api/internal/handler"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/repository"
	"github.com/noah-isme/sma-tc-api/internal/server"
	"github.com/noah-isme/sma-tc-api/internal/service"
	"github.com/noah-isme/sma-tc-api/pkg/cache"
	"github.com/noah-isme/sma-tc-api/pkg/config"
	"github.com/noah-isme/sma-tc-api/pkg/database"
	"github.com/noah-isme/sma-tc-api/pkg/export"
	"github.com/noah-isme/sma-tc-api/pkg/logger"
	"github.com/noah-isme/sma-tc-api/pkg/storage"
)

// @title SMA TC API
// @version 1.0.0
// @description Transfer certificate administration API
// @BasePath /
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

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.NewMigrator(db, logr).Up(ctx); err != nil {
		return err
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Students.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	tcRepo := repository.NewTransferCertificateRepository(db)

	store, err := storage.NewLocalObjectStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return err
	}
	signer := storage.NewCertificateSigner(cfg.TC.VerifySecret, cfg.TC.VerifyTTL)
	renderer := export.NewCertificateRenderer(cfg.TC.Format)

	cleaner := service.NewOrphanCleaner(store, metricsSvc, logr, service.OrphanCleanerConfig{
		Workers:     cfg.TC.CleanupWorkers,
		MaxRetries:  cfg.TC.CleanupRetries,
		QueueSize:   cfg.TC.CleanupQueue,
		CallTimeout: cfg.TC.CallTimeout,
	})
	cleaner.Start(ctx)
	defer cleaner.Stop()

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, sessionRepo, cacheSvc, metricsSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AllowSignup:       cfg.Auth.AllowSignup,
		DefaultRole:       models.UserRole(cfg.Auth.DefaultRole),
	})
	studentSvc := service.NewStudentService(studentRepo, userRepo, cacheSvc, metricsSvc, validate, logr, service.StudentServiceConfig{
		ListCacheTTL: cfg.Students.CacheTTL,
	})
	registrationSvc := service.NewRegistrationService(studentSvc, cacheSvc, cfg.Registration.DraftTTL, logr)
	tcSvc := service.NewTCService(tcRepo, store, renderer, signer, cleaner, userRepo, cacheSvc, metricsSvc, validate, logr, service.TCServiceConfig{
		Bucket:           cfg.TC.Bucket,
		CallTimeout:      cfg.TC.CallTimeout,
		LookupRetries:    cfg.TC.LookupRetries,
		LookupRetryDelay: cfg.TC.LookupRetryDelay,
		IdempotencyTTL:   cfg.TC.IdempotencyTTL,
		VerifyBaseURL:    cfg.TC.VerifyBaseURL,
	})
	listSvc := service.NewStudentListService(studentSvc, tcSvc, logr)
	dashboardSvc := service.NewDashboardService(studentSvc, tcSvc, cacheSvc, logr, service.DashboardServiceConfig{
		APIPrefix: cfg.APIPrefix,
		CacheTTL:  cfg.Students.CacheTTL,
	})

	router := server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Logger:   logr,
		Sessions: authSvc,
		Metrics:  metricsSvc,
		Handlers: server.Handlers{
			Auth:         handler.NewAuthHandler(authSvc),
			Registration: handler.NewRegistrationHandler(registrationSvc, dashboardSvc),
			Student:      handler.NewStudentHandler(studentSvc, listSvc, tcSvc, dashboardSvc),
			TC:           handler.NewTCHandler(tcSvc, dashboardSvc),
			Storage:      handler.NewStorageHandler(store),
			Dashboard:    handler.NewDashboardHandler(dashboardSvc),
			Metrics:      handler.NewMetricsHandler(metricsSvc, cleaner),
		},
	})

	logr.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
	return server.New(cfg.Port, router, logr).Run(ctx)
}
