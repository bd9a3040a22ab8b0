package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/octane-tech/nfc-tracker/internal/app"
	"github.com/octane-tech/nfc-tracker/internal/audit"
	"github.com/octane-tech/nfc-tracker/internal/auth"
	"github.com/octane-tech/nfc-tracker/internal/companies"
	"github.com/octane-tech/nfc-tracker/internal/events"
	"github.com/octane-tech/nfc-tracker/internal/imagestore"
	"github.com/octane-tech/nfc-tracker/internal/nfc"
	"github.com/octane-tech/nfc-tracker/internal/observability"
	"github.com/octane-tech/nfc-tracker/internal/platform/db"
	"github.com/octane-tech/nfc-tracker/internal/platform/redisx"
	"github.com/octane-tech/nfc-tracker/internal/reports"
	"github.com/octane-tech/nfc-tracker/internal/shared"
	"github.com/octane-tech/nfc-tracker/internal/users"
	"github.com/octane-tech/nfc-tracker/jobs"
	"github.com/octane-tech/nfc-tracker/report"
)

func main() {
	migrate := flag.Bool("migrate", false, "apply the database schema before serving")
	migrateOnly := flag.Bool("migrate-only", false, "apply the database schema and exit")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if *migrate || *migrateOnly {
		if err := db.Migrate(ctx, dbpool); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("schema applied")
		if *migrateOnly {
			return
		}
	}

	healthChecks := map[string]app.HealthCheck{
		"postgres": dbpool.Ping,
	}

	var enqueuer nfc.PurgeEnqueuer
	var jobHandler *jobs.Handler
	redisClient, err := redisx.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, async purge disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

		jobClient := jobs.NewClient(redisx.AsynqOpt(cfg.RedisAddr))
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		enqueuer = jobClient

		inspector := asynq.NewInspector(redisx.AsynqOpt(cfg.RedisAddr))
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
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
	auditLogger := shared.NewAuditLogger(dbpool)

	accounts := auth.NewRepository(dbpool)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(logger, auth.NewService(accounts, tokens, cfg.SignupEmailDomain))
	gate := auth.NewGate(tokens, accounts, logger)

	usersService := users.NewService(users.NewRepository(dbpool), images, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, cfg.UploadMaxBytes)

	companiesService := companies.NewService(companies.NewRepository(dbpool), auditLogger, logger)
	companiesHandler := companies.NewHandler(companiesService, logger, cfg.UploadMaxBytes)

	nfcService := nfc.NewService(nfc.NewRepository(dbpool), images, companiesService, logger, nfc.Options{
		Location: loc,
		Events:   publisher,
		Audit:    auditLogger,
	})
	nfcHandler := nfc.NewHandler(nfcService, enqueuer, logger, cfg.UploadMaxBytes).
		WithIdempotency(shared.NewIdempotencyStore(dbpool))

	pdfClient := report.NewClient(cfg.GotenbergURL)
	reportsHandler := reports.NewHandler(reports.NewService(reports.NewRepository(dbpool), loc), pdfClient, logger)

	auditHandler := audit.NewHandler(audit.NewService(audit.NewRepository(dbpool)), loc, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		Gate:             gate,
		UsersHandler:     usersHandler,
		NFCHandler:       nfcHandler,
		CompaniesHandler: companiesHandler,
		ReportsHandler:   reportsHandler,
		AuditHandler:     auditHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
		HealthChecks:     healthChecks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
