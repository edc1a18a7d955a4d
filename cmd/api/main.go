// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the messagely HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the store backend (PostgreSQL + migrations, or in-memory).
//  4. Connect to Redis when configured, otherwise use the in-process hub.
//  5. Build the token service and the domain services.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/messagely/internal/api"
	"github.com/taibuivan/messagely/internal/authz"
	"github.com/taibuivan/messagely/internal/messaging/message"
	"github.com/taibuivan/messagely/internal/messaging/notify"
	"github.com/taibuivan/messagely/internal/platform/config"
	"github.com/taibuivan/messagely/internal/platform/constants"
	"github.com/taibuivan/messagely/internal/platform/middleware"
	"github.com/taibuivan/messagely/internal/platform/migration"
	pgstore "github.com/taibuivan/messagely/internal/platform/postgres"
	redisstore "github.com/taibuivan/messagely/internal/platform/redis"
	"github.com/taibuivan/messagely/internal/platform/sec"
	"github.com/taibuivan/messagely/internal/users/account"
	"github.com/taibuivan/messagely/internal/users/auth"
)

// stores bundles the repositories of the selected backend.
type stores struct {
	users interface {
		auth.UserRepository
		account.Directory
	}
	messages message.Repository
}

// eventBus is both ends of the notification path.
type eventBus interface {
	message.Publisher
	notify.Source
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "messagely"))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "messagely"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
		slog.Bool("notifications_redis", cfg.NotificationsEnabled()),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	health := api.HealthDependencies{}

	// ── 3. Store Backend ──────────────────────────────────────────────────
	var backend stores

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		must(log, migration.RunUp(startupCtx, cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		backend.users = auth.NewUserRepository(pool)
		backend.messages = message.NewPostgresRepository(pool)
		health.CheckDatabase = func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		}

	default:
		log.Warn("memory_store_enabled", slog.String("detail", "data is lost on restart"))

		users := auth.NewMemoryUserRepository()
		backend.users = users
		backend.messages = message.NewMemoryRepository(users)
	}

	// ── 4. Notifications ──────────────────────────────────────────────────
	var bus eventBus = notify.NewHub(log)

	if cfg.NotificationsEnabled() {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()

		bus = notify.NewBus(rdb, log)
		health.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	}

	// ── 5. Security & Domain Services ─────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer, cfg.TokenTTL)
	must(log, err, "initialize token service")

	authService := auth.NewService(backend.users, sec.NewBcryptHasher(cfg.BcryptCost), tokens)
	messageService := message.NewService(backend.messages, bus, log)
	accountService := account.NewService(backend.users, messageService)
	guard := authz.NewGuard(authService)

	// ── 6. HTTP Handlers ──────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	liveness, readiness := api.NewHealthHandlers(health, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(accountService),
		Message:   message.NewHandler(messageService),
		Stream:    notify.NewStreamHandler(bus, middleware.OriginPolicy(cfg, cfg.AllowedOrigins), log),
	}

	server := api.NewServer(cfg, log, guard, middleware.NewMetrics(registry), handlers)

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("step", step),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
