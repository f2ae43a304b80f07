package main

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"userdir/internal/app"
	"userdir/internal/config"
	apperrors "userdir/internal/errors"
	"userdir/internal/infrastructure"
	"userdir/internal/middleware"
	"userdir/internal/services"
	"userdir/internal/store"
	transport "userdir/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	memStore := store.NewMemoryStore(cfg.Store, logger)
	userService := services.NewUserService(memStore, logger)

	errorHandler := apperrors.NewHandler(logger, false)
	userHandler := transport.NewUserHandler(userService, errorHandler, logger)
	healthHandler := transport.NewHealthHandler(memStore, logger)

	application, err := app.New(app.Dependencies{
		Config:         cfg,
		Logger:         logger,
		Store:          memStore,
		Users:          userHandler,
		ErrorFilter:    apperrors.NewMiddleware(errorHandler, logger),
		Health:         healthHandler.Check,
		Metrics:        middleware.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	if err != nil {
		logger.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
