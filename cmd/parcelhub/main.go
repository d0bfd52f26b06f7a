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

	"github.com/parcelhub/parcelhub/internal/analytics"
	analytichttp "github.com/parcelhub/parcelhub/internal/analytics/http"
	"github.com/parcelhub/parcelhub/internal/app"
	"github.com/parcelhub/parcelhub/internal/auth"
	"github.com/parcelhub/parcelhub/internal/branches"
	"github.com/parcelhub/parcelhub/internal/buses"
	"github.com/parcelhub/parcelhub/internal/notify"
	"github.com/parcelhub/parcelhub/internal/observability"
	"github.com/parcelhub/parcelhub/internal/platform/cache"
	"github.com/parcelhub/parcelhub/internal/platform/db"
	"github.com/parcelhub/parcelhub/internal/rbac"
	"github.com/parcelhub/parcelhub/internal/shared"
	"github.com/parcelhub/parcelhub/internal/shipment"
	"github.com/parcelhub/parcelhub/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		// Token revocation fails closed without redis, so there is nothing useful to serve.
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditStore := shared.NewAuditStore(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	issuer := auth.NewIssuer(auth.IssuerConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	authService := auth.NewService(auth.NewRepository(dbpool), issuer, auth.NewRevocationStore(redisClient))
	authenticator := auth.NewAuthenticator(authService, logger)
	authHandler := auth.NewHandler(logger, authService, authenticator)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analytics.NewPGRepository(dbpool), analyticsCache)
	analyticsService.SetLogger(logger)
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService)

	redisOpts := cfg.Redis().QueueOpt()
	jobClient, err := jobs.NewClient(redisOpts, cfg.SMSMaxRetry)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	hub := notify.NewHub(logger)
	hub.OnCountChange(metrics.SetLiveClients)
	messageRepo := notify.NewPGRepository(dbpool)
	dispatcher := notify.NewDispatcher(messageRepo, jobClient, hub, logger)
	messageHandler := notify.NewHandler(logger, messageRepo, hub)

	shipmentService := shipment.NewService(
		shipment.NewPGRepository(dbpool),
		dispatcher,
		shipment.Messages{Signature: cfg.SMSSignature, TrackingBaseURL: cfg.TrackingBaseURL},
		logger,
	)
	shipmentService.SetIdempotencyStore(idempotencyStore)
	shipmentService.SetCacheInvalidator(analyticsCache)
	shipmentService.SetMetrics(metrics)
	shipmentHandler := shipment.NewHandler(logger, shipmentService, authenticator.Middleware, rbacMiddleware)

	branchService := branches.NewService(branches.NewPGRepository(dbpool), auditStore, auth.HashPassword, logger)
	branchService.SetCacheInvalidator(analyticsCache)
	branchHandler := branches.NewHandler(logger, branchService, rbacMiddleware)

	busService := buses.NewService(buses.NewPGRepository(dbpool), auditStore, logger)
	busHandler := buses.NewHandler(logger, busService, rbacMiddleware)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Authenticator:      authenticator,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		ShipmentHandler:    shipmentHandler,
		BranchHandler:      branchHandler,
		BusHandler:         busHandler,
		AnalyticsHandler:   analyticsHandler,
		MessageHandler:     messageHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService),
		JobHandler:         jobHandler,
		Metrics:            metrics,
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
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
