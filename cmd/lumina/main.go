package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lumina-dist/lumina/internal/app"
	"github.com/lumina-dist/lumina/internal/auth"
	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/brands"
	"github.com/lumina-dist/lumina/internal/customers"
	"github.com/lumina-dist/lumina/internal/items"
	"github.com/lumina-dist/lumina/internal/observability"
	"github.com/lumina-dist/lumina/internal/platform/cache"
	"github.com/lumina-dist/lumina/internal/platform/db"
	"github.com/lumina-dist/lumina/internal/pricing"
	"github.com/lumina-dist/lumina/internal/reports"
	"github.com/lumina-dist/lumina/internal/shared"
	"github.com/lumina-dist/lumina/internal/transactions"
	"github.com/lumina-dist/lumina/jobs"
)

func main() {
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "lumina_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)
	authzMiddleware := authz.Middleware{Source: authService, Logger: logger}

	brandService := brands.NewService(brands.NewRepository(pool))
	brandHandler := brands.NewHandler(logger, brandService)

	itemService := items.NewService(items.NewRepository(pool))
	itemHandler := items.NewHandler(logger, itemService)

	customerService := customers.NewService(customers.NewRepository(pool))
	customerHandler := customers.NewHandler(logger, customerService)

	pricingService := pricing.NewService(pricing.NewRepository(pool))
	pricingHandler := pricing.NewHandler(logger, pricingService)

	txService := transactions.NewService(logger, transactions.NewStore(pool), customerService, auditLogger, idempotencyStore)
	txHandler := transactions.NewHandler(logger, txService, itemService, transactions.NewDraftStore())

	reportService := reports.NewService(reports.NewRepository(pool), cfg.LowStockThreshold)
	reportHandler := reports.NewHandler(logger, reportService)

	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(jobClient, inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		Authz:               authzMiddleware,
		AuthHandler:         authHandler,
		BrandsHandler:       brandHandler,
		ItemsHandler:        itemHandler,
		CustomersHandler:    customerHandler,
		PricingHandler:      pricingHandler,
		TransactionsHandler: txHandler,
		ReportsHandler:      reportHandler,
		JobsHandler:         jobHandler,
		Metrics:             metrics,
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
