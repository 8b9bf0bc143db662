package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"invoicer/internal/caching"
	"invoicer/internal/config"
	"invoicer/internal/handlers"
	"invoicer/internal/jobs/background"
	"invoicer/internal/logger"
	"invoicer/internal/middleware"
	"invoicer/internal/repositories"
	"invoicer/internal/services"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "invoicer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine
	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer func() { _ = log.Sync() }()

	store, err := newSlotStore(cfg, log)
	if err != nil {
		return errors.Wrap(err, "create slot store")
	}

	sink, err := newExportSink(cfg)
	if err != nil {
		return errors.Wrap(err, "create export sink")
	}

	notifier := services.NewNotificationService(0, log.With("component", "notifications"))

	scheduler, err := background.NewJobScheduler(notifier, cfg.Jobs.NotificationRetention, cfg.Jobs.PruneInterval, log.With("component", "scheduler"))
	if err != nil {
		return errors.Wrap(err, "create job scheduler")
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Errorw("failed to stop job scheduler", "error", err)
		}
	}()

	draftRepo := repositories.NewDraftRepository(store, cfg.Storage.Key, log.With("component", "draft_repository"))
	draftSvc := services.NewDraftService(
		draftRepo,
		notifier,
		services.NewPDFRenderer(),
		sink,
		services.NewSimulatedMailer(log.With("component", "mailer")),
		scheduler,
		services.DraftServiceConfig{
			ExportDelay:   cfg.Jobs.ExportDelay,
			EmailDelay:    cfg.Jobs.EmailDelay,
			ExportTimeout: cfg.Jobs.ExportTimeout,
		},
		log.With("component", "draft_service"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := draftSvc.Init(ctx)
	log.Infow("draft initialized", "load_status", result.Status)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(log.With("component", "http")))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	handlers.RegisterRoutes(e, middleware.NewVersionMiddleware(), handlers.Handlers{
		Draft:        handlers.NewDraftHandlers(draftSvc),
		Notification: handlers.NewNotificationHandlers(notifier),
		Health:       handlers.NewHealthHandlers(store, string(cfg.Storage.Backend)),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("invoicer server starting",
			"version", version,
			"address", cfg.Server.Address,
			"storage_backend", cfg.Storage.Backend,
			"export_sink", cfg.Export.Sink,
		)
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return errors.Wrap(err, "server")
		}
	case <-ctx.Done():
		log.Infow("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(e.Shutdown(shutdownCtx), "shutdown")
}

func newSlotStore(cfg *config.Configuration, log *logger.Logger) (caching.SlotStore, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		return caching.NewMemorySlotStore(cfg.Storage.MaxBytes), nil
	case config.StorageBackendRedis:
		return caching.NewRedisSlotStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log.With("component", "redis")), nil
	default:
		return caching.NewFileSlotStore(cfg.Storage.Dir, cfg.Storage.MaxBytes)
	}
}

func newExportSink(cfg *config.Configuration) (services.ExportSink, error) {
	if cfg.Export.Sink != config.ExportSinkMinio {
		return services.NewLocalExportSink(cfg.Export.Dir), nil
	}

	store, err := services.NewMinioObjectStore(services.MinioOptions{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		UseSSL:    cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect export object store")
	}
	return services.NewMinioExportSink(store, cfg.Minio.Bucket, cfg.Minio.URLExpiry), nil
}
