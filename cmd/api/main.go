package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kestrelpay/kestrel/internal/infra/postgres"
	infraredis "github.com/kestrelpay/kestrel/internal/infra/redis"
	"github.com/kestrelpay/kestrel/internal/ledger"
	"github.com/kestrelpay/kestrel/internal/platform/user"
	"github.com/kestrelpay/kestrel/internal/transport/httpapi"
	"github.com/kestrelpay/kestrel/internal/transport/httpapi/handler"
	"github.com/kestrelpay/kestrel/pkg/config"
	"github.com/kestrelpay/kestrel/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting Kestrel API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize database connection pool
	db, err := postgres.NewPool(ctx, postgres.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
	})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db.Pool)
	ledgerRepo := postgres.NewLedgerRepository(db.Pool)

	// Audit sinks: the postgres table is the durable record, the redis
	// channel is an optional operator notification
	sinks := ledger.MultiSink{postgres.NewAuditRepository(db.Pool)}

	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Failed to connect to Redis, failure notifications disabled", "error", err)
		} else {
			sinks = append(sinks, infraredis.NewFailureNotifier(redisClient, ""))
			log.Info("Redis connection established")
		}
	}

	// Initialize services
	userSvc := user.NewService(userRepo)
	ledgerSvc := ledger.NewService(ledgerRepo, sinks, ledger.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}, log)

	// Initialize HTTP handlers
	userHandler := handler.NewUserHandler(userSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc, cfg.CurrencyScale)
	healthHandler := handler.NewHealthHandler(db)

	// Determine allowed origins for CORS
	allowedOrigins := []string{"http://localhost:5173"}
	if cfg.IsProduction() {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = []string{origins}
		}
	}

	// Create HTTP router
	r := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		AllowedOrigins: allowedOrigins,
		UserHandler:    userHandler,
		LedgerHandler:  ledgerHandler,
		HealthHandler:  healthHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
