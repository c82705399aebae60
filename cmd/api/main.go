package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ncnews/ncnews-backend/internal/api"
	"github.com/ncnews/ncnews-backend/internal/config"
	"github.com/ncnews/ncnews-backend/internal/db"
	"github.com/ncnews/ncnews-backend/internal/events"
	"github.com/ncnews/ncnews-backend/internal/log"
	"github.com/ncnews/ncnews-backend/internal/metrics"
	"github.com/ncnews/ncnews-backend/internal/news"
	"github.com/ncnews/ncnews-backend/internal/repository"
	"github.com/ncnews/ncnews-backend/internal/stream"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting news API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db_driver", cfg.Database.Driver,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("ncnews-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, db.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		logger.Fatalw("Failed to open database", "error", err)
	}
	defer conn.Close()

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(ctx, conn.DB, cfg.Database.Driver); err != nil {
			logger.Fatalw("Failed to migrate database", "error", err)
		}
	}
	version, err := db.SchemaVersion(ctx, conn.DB, cfg.Database.Driver)
	if err != nil {
		logger.Fatalw("Failed to read schema version", "error", err)
	}
	logger.Infow("Database initialized", "schema_version", version)

	if cfg.Database.Seed {
		if err := db.Seed(ctx, conn, db.TestFixtures); err != nil {
			logger.Fatalw("Failed to seed database", "error", err)
		}
		logger.Warnw("Database reseeded with fixture data")
	}

	// Event bus: Redis when configured and reachable, in-process otherwise
	bus := events.NewBus(cfg.Events.RedisAddr, logger, metricsObj)

	repo := repository.NewRepository(conn, logger)
	svc := news.NewService(repo, bus, metricsObj, logger)

	// Live feeds
	wsHandler := stream.NewWebSocketHandler(bus, cfg.Security.CORSAllowedOrigins, logger, metricsObj)
	sseHandler := stream.NewSSEHandler(bus, logger, metricsObj)

	// Setup API handler and middleware
	handler, err := api.NewHandler(svc, bus, wsHandler, sseHandler, logger)
	if err != nil {
		logger.Fatalw("Failed to create handler", "error", err)
	}
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, api.RouterConfig{
		CORSAllowedOrigins: cfg.Security.CORSAllowedOrigins,
		RateLimitRPM:       cfg.Security.RateLimitRPM,
		RequestTimeout:     cfg.Security.RequestTimeout,
		MetricsHandler:     metricsHandler,
	})

	// Log configured CORS origins for easier debugging in dev
	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// No WriteTimeout: the event streams stay open. API routes are bounded
	// by the router's request timeout instead.
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// End event streams first so Shutdown is not held open by them
	server.RegisterOnShutdown(func() {
		wsHandler.Shutdown()
		bus.Close()
	})

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server startup failed", "error", err)
		}
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
