package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/octane-tech/nfc-tracker/internal/app"
	"github.com/octane-tech/nfc-tracker/internal/companies"
	"github.com/octane-tech/nfc-tracker/internal/events"
	"github.com/octane-tech/nfc-tracker/internal/imagestore"
	jobmetrics "github.com/octane-tech/nfc-tracker/internal/jobs"
	"github.com/octane-tech/nfc-tracker/internal/nfc"
	"github.com/octane-tech/nfc-tracker/internal/observability"
	"github.com/octane-tech/nfc-tracker/internal/platform/db"
	"github.com/octane-tech/nfc-tracker/internal/platform/redisx"
	"github.com/octane-tech/nfc-tracker/internal/shared"
	"github.com/octane-tech/nfc-tracker/jobs"
)

const (
	metricsAddr          = ":9091"
	idempotencyRetention = 7 * 24 * time.Hour
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	loc, _ := cfg.Location()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := redisx.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	if err := redisClient.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}

	publisher := events.Publisher(events.Nop{})
	if cfg.AMQPURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.AMQPURL, events.DefaultExchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events disabled", slog.Any("error", err))
		} else {
			defer rabbit.Close()
			publisher = rabbit
		}
	}

	images := imagestore.NewCloudinary(imagestore.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	}, logger)
	auditLogger := shared.NewAuditLogger(pool)
	companiesService := companies.NewService(companies.NewRepository(pool), auditLogger, logger)
	nfcService := nfc.NewService(nfc.NewRepository(pool), images, companiesService, logger, nfc.Options{
		Location: loc,
		Events:   publisher,
		Audit:    auditLogger,
	})

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	purgeJob := jobs.NewPurgeMonthJob(nfcService, logger, jobMetrics)

	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, jobMetrics)
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(idempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisx.AsynqOpt(cfg.RedisAddr),
		Logger:    logger,
		Location:  loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPurgeMonth, Handler: purgeJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
