package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/vibepin/vibepin/internal/adapters/auth"
	"github.com/vibepin/vibepin/internal/adapters/http"
	natsadapter "github.com/vibepin/vibepin/internal/adapters/nats"
	"github.com/vibepin/vibepin/internal/adapters/postgres"
	"github.com/vibepin/vibepin/internal/adapters/valkey"
	"github.com/vibepin/vibepin/internal/core/ports"
	"github.com/vibepin/vibepin/internal/core/usecases"
	"github.com/vibepin/vibepin/internal/pkg/config"
	"github.com/vibepin/vibepin/internal/pkg/logging"
	"github.com/vibepin/vibepin/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("vibepin-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. Wire the port only when the connection came up: a typed-nil
	// *valkey.Cache inside the interface would slip past the services'
	// nil checks and panic on first use.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, feeds run uncached", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS, same rule: a nil *Publisher must not reach the events port.
	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer publisher.Close()
		events = publisher
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable, live updates disabled", "error", err)
		natsConn = nil
	}

	// Repos
	postRepo := postgres.NewPostRepo(db)
	penaltyRepo := postgres.NewPenaltyRepo(db)

	// Token verification is optional; without a secret every submission is
	// treated as anonymous or client-asserted.
	var verifier ports.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	}

	// Use cases
	admissionSvc := usecases.NewAdmissionService(postRepo, penaltyRepo, verifier, events, nil, cfg.Admission.Denylist)
	feedSvc := usecases.NewFeedService(postRepo, cacheSvc)
	moderationSvc := usecases.NewModerationService(postRepo, penaltyRepo, events)

	deps := &http.Dependencies{
		Admission:   admissionSvc,
		Feed:        feedSvc,
		Moderation:  moderationSvc,
		NATS:        natsConn,
		DB:          db,
		Cache:       cache,
		AdminSecret: cfg.Auth.AdminSecret,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "VibePin API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.vibepin.app",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Admin-Secret",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
