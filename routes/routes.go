package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/zlwaterfield/scramble/app"
	"github.com/zlwaterfield/scramble/handlers"
	"github.com/zlwaterfield/scramble/middleware"
	"github.com/zlwaterfield/scramble/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config
	logger := deps.Logger

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(chimiddleware.Recoverer)
	if cfg.Server.WriteTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))
	}

	// CORS middleware. The browser extension calls from its own origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	health := handlers.NewHealthHandler(db, logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	enhance := handlers.NewEnhancementHandler(deps.EnhancementService, logger)
	settingsHandler := handlers.NewSettingsHandler(deps.SettingsService, logger)
	historyHandler := handlers.NewHistoryHandler(deps.HistoryService, logger)

	var historyStats handlers.HistoryStats
	if deps.HistoryService != nil {
		historyStats = deps.HistoryService
	}
	status := handlers.NewStatusHandler(deps.Scheduler, historyStats, deps.Registry, app.Version, cfg.Environment, logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.AuthMiddleware != nil {
				r.Use(deps.AuthMiddleware.RequireAuth)
			}

			r.Post("/enhance", enhance.HandleEnhance)
			r.Post("/suggestions", enhance.HandleSuggestions)
			r.Get("/prompts", enhance.HandleListPrompts)

			r.Get("/settings", settingsHandler.HandleGet)
			r.Put("/settings", settingsHandler.HandleUpdate)

			r.Get("/history", historyHandler.HandleList)
			r.Get("/status", status.HandleStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
