// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects the store, services,
// handlers and middleware, and decides which URL maps to which handler.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go: config.Load() → server.New(cfg, logger)
//	New:     sqlite.DB → services (repository interfaces) → handlers (service interfaces)
//
// This is the "composition root" pattern: all dependencies are wired in one
// place instead of being scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/engage/internal/auth"
	"github.com/sakif/engage/internal/config"
	"github.com/sakif/engage/internal/handler"
	"github.com/sakif/engage/internal/middleware"
	sqliteRepo "github.com/sakif/engage/internal/repository/sqlite"
	"github.com/sakif/engage/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown; callers that never Start (tests) call Close.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every layer on top of it.
//
// IMPORT ALIAS:
// repository/sqlite is imported as sqliteRepo so it does not read like the
// driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /api/health                        → store reachability
// POST   /api/auth/signup|signin            → issue a bearer token, ensure the profile
// POST   /api/auth/refresh|signout          → rotate / revoke the bearer token
// GET    /api/me/profile                    → own profile (created on first read)
// PATCH  /api/me/profile                    → edit name and avatar
// POST   /api/me/profile/refresh-stats      → recompute counters
// GET    /api/me/preferences                → saved preferences (204 when none)
// PUT    /api/me/preferences                → save preferences
// PATCH  /api/me/preferences/notifications  → patch notification flags
// GET    /api/me/recommendations?limit=     → ranked, filtered by interest area
// GET    /api/me/matches?limit=             → ranked over the newest opportunities
// GET    /api/me/activities?limit=          → unified activity feed
// POST   /api/me/sessions|registrations|donations → record activity
// PATCH  /api/me/registrations/{id}         → attendance
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (picked up by Logger)
// 2. RealIP: extracts the client IP from proxy headers
// 3. Recoverer: turns panics into 500s instead of crashing
// 4. Logger: logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) implements every repository interface
	//   services receive the repository interfaces
	//   handlers receive the services through small interfaces of their own
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	profileService := service.NewProfileService(s.db, s.logger)
	preferencesService := service.NewPreferencesService(s.db, s.logger)
	matchService := service.NewMatchService(s.db, s.db, s.logger)
	activityService := service.NewActivityService(s.db, s.logger,
		service.WithPlaceholders(s.config.ActivityPlaceholders))

	authHandler := handler.NewAuthHandler(authService, profileService, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	preferencesHandler := handler.NewPreferencesHandler(preferencesService, s.logger)
	opportunityHandler := handler.NewOpportunityHandler(matchService, s.logger)
	activityHandler := handler.NewActivityHandler(activityService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.HandleSignUp)
			r.Post("/signin", authHandler.HandleSignIn)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/signout", authHandler.HandleSignOut)
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(auth.RequireAuth(authService))

			r.Get("/profile", profileHandler.HandleGet)
			r.Patch("/profile", profileHandler.HandleUpdate)
			r.Post("/profile/refresh-stats", profileHandler.HandleRefreshStats)

			r.Get("/preferences", preferencesHandler.HandleGet)
			r.Put("/preferences", preferencesHandler.HandleSave)
			r.Patch("/preferences/notifications", preferencesHandler.HandleUpdateNotifications)

			r.Get("/recommendations", opportunityHandler.HandleRecommendations)
			r.Get("/matches", opportunityHandler.HandleMatches)

			r.Get("/activities", activityHandler.HandleFeed)
			r.Post("/sessions", activityHandler.HandleLogSession)
			r.Post("/registrations", activityHandler.HandleRegister)
			r.Patch("/registrations/{id}", activityHandler.HandleUpdateAttendance)
			r.Post("/donations", activityHandler.HandleRecordDonation)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Environment),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
