package httpapi

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kestrelpay/kestrel/internal/transport/httpapi/handler"
	"github.com/kestrelpay/kestrel/internal/transport/httpapi/middleware"
	"github.com/kestrelpay/kestrel/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	UserHandler    *handler.UserHandler
	LedgerHandler  *handler.LedgerHandler
	HealthHandler  *handler.HealthHandler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit()) // Rate limiting: 100 req/s with burst of 20

	// Health check endpoints
	r.Get("/health", handler.GetHealth)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.UserHandler != nil {
			r.Post("/users", cfg.UserHandler.CreateUser)
			r.Get("/users/{id}", cfg.UserHandler.GetUser)
		}

		if cfg.LedgerHandler != nil {
			r.Post("/transfers", cfg.LedgerHandler.CreateTransfer)
			r.Post("/deposits", cfg.LedgerHandler.CreateDeposit)
			r.Get("/users/{id}/balance", cfg.LedgerHandler.GetBalance)
			r.Get("/users/{id}/transactions", cfg.LedgerHandler.GetHistory)
		}
	})

	return r
}
