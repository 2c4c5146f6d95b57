package main

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	_ "github.com/medibook/medibook-api/api/swagger"
	"github.com/medibook/medibook-api/internal/handler"
	"github.com/medibook/medibook-api/internal/repository"
	"github.com/medibook/medibook-api/internal/router"
	"github.com/medibook/medibook-api/internal/service"
	"github.com/medibook/medibook-api/pkg/cache"
	"github.com/medibook/medibook-api/pkg/config"
	"github.com/medibook/medibook-api/pkg/database"
	"github.com/medibook/medibook-api/pkg/jobs"
	"github.com/medibook/medibook-api/pkg/logger"
	"github.com/medibook/medibook-api/pkg/storage"
)

// @title MediBook API
// @version 1.0.0
// @description Appointment booking platform for patients, doctors and administrators
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	bookingSvc := service.NewBookingService(appointmentRepo, userRepo, cacheRepo, metricsSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, cacheRepo, validate, logr)
	doctorSvc := service.NewDoctorService(userRepo, availabilityRepo, cacheRepo, metricsSvc, cfg.Cache.AvailabilityTTL, logr)
	adminSvc := service.NewAdminService(userRepo, appointmentRepo, logr)

	var reportSvc *service.ReportService
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(reportRepo, appointmentRepo, service.NewExportService(), store, signer,
			cfg.APIPrefix+"/admin/reports/download", validate, logr)

		reportQueue = jobs.NewQueue("reports", reportSvc.Process, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(context.Background())
		defer reportQueue.Stop()
		reportSvc.SetQueue(reportQueue)
	} else {
		reportSvc = service.NewReportService(reportRepo, appointmentRepo, service.NewExportService(), nil, nil,
			cfg.APIPrefix+"/admin/reports/download", validate, logr)
	}

	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc, cfg.JWT.CookieName, cfg.JWT.Expiration),
		Appointments: handler.NewAppointmentHandler(bookingSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Doctors:      handler.NewDoctorHandler(doctorSvc),
		Admin:        handler.NewAdminHandler(adminSvc),
		Reports:      handler.NewReportHandler(reportSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc, db),
	}

	r := router.New(cfg, logr, authSvc, metricsSvc, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
