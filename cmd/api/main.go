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

	"github.com/luxecajou/api/internal/catalog"
	"github.com/luxecajou/api/internal/checkout/app"
	"github.com/luxecajou/api/internal/config"
	"github.com/luxecajou/api/internal/httpx"
	"github.com/luxecajou/api/internal/notify"
	"github.com/luxecajou/api/internal/payment/fedapay"
	"github.com/luxecajou/api/internal/pkg/cache"
	"github.com/luxecajou/api/internal/pkg/metrics"
	"github.com/luxecajou/api/internal/pkg/telemetry"
	"github.com/luxecajou/api/internal/storage/sqlite"
)

const serviceName = "luxecajou-api"

func main() {
	cfg := config.Load()
	logger := telemetry.NewLogger(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	redisCache := cache.New(cfg.RedisAddr, "catalog")
	defer redisCache.Close()

	m := metrics.NewServerMetrics("api")
	gateway := fedapay.NewClient(cfg.FedaPayBaseURL, cfg.FedaPayAPIKey)
	notifier := notify.WithMetrics(notify.NewLogNotifier(logger), m)

	checkoutSvc := app.NewService(store, gateway, notifier, store, logger,
		cfg.Currency, cfg.CallbackBaseURL)
	cartSvc := app.NewCartService(store)
	catalogSvc := catalog.NewService(store, redisCache, logger)

	handler := httpx.NewHandler(checkoutSvc, cartSvc, catalogSvc, m, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(handler, m, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server running", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
}
