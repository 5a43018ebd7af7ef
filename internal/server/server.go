// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer, the composition root. Every
// dependency is built here, once, and passed down explicitly:
//
//	Config → sqlite.DB ─────────────┐
//	       → auth.DiscordProvider ──┼→ service.GiveawayService → handler.GiveawayHandler
//	       → metrics.Collector ─────┘
//	       → auth.Sessions / auth.AdminGate ───────────────────↗
//
// There is no package-level database handle: the store lives on the Server
// and is closed when Start returns.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/solwinner/internal/auth"
	"github.com/sakif/solwinner/internal/handler"
	"github.com/sakif/solwinner/internal/metrics"
	"github.com/sakif/solwinner/internal/middleware"
	sqliteRepo "github.com/sakif/solwinner/internal/repository/sqlite"
	"github.com/sakif/solwinner/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string
	// Zero value means the production Discord API.
	DiscordEndpoints auth.Endpoints
	OAuthTimeout     time.Duration

	AdminSecret     string
	AdminBcryptCost int

	SessionSecret string
	CookieSecure  bool
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection. It is closed when Start returns
// or, for servers that are never started (tests), by Close.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
}

// New creates a Server with the given config and wires every route.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// sessionCodec picks the signed codec when a secret is configured.
func (s *Server) sessionCodec() (auth.SessionCodec, error) {
	if s.config.SessionSecret == "" {
		s.logger.Warn("SESSION_SECRET not set: session cookies are unsigned and can be forged")
		return auth.PlainCodec{}, nil
	}
	return auth.NewSignedCodec(s.config.SessionSecret)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET /             → landing page
// GET /login        → redirect to Discord
// GET /callback     → OAuth callback, sets the session cookie
// GET /logout       → clears cookies
// GET /dashboard    → [session] greeting + entry status
// GET /enter        → [session] record entry (idempotent)
// GET /admin-login  → sets the admin cookie when ?secret= matches, else 401
// GET /admin        → [admin cookie] users table
// GET /healthz      → database ping
// GET /metrics      → Prometheus
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(s.registry)

	opts := []auth.Option{auth.WithTimeout(s.config.OAuthTimeout)}
	if s.config.DiscordEndpoints != (auth.Endpoints{}) {
		opts = append(opts, auth.WithEndpoints(s.config.DiscordEndpoints))
	}
	provider := auth.NewDiscordProvider(
		s.config.DiscordClientID,
		s.config.DiscordClientSecret,
		s.config.DiscordRedirectURI,
		opts...,
	)

	codec, err := s.sessionCodec()
	if err != nil {
		return fmt.Errorf("creating session codec: %w", err)
	}
	sessions := auth.NewSessions(codec, s.config.CookieSecure)

	cost := s.config.AdminBcryptCost
	if cost == 0 {
		cost = auth.DefaultAdminCost
	}
	adminGate, err := auth.NewAdminGate(s.config.AdminSecret, cost)
	if err != nil {
		return fmt.Errorf("creating admin gate: %w", err)
	}
	if !adminGate.Enabled() {
		s.logger.Warn("ADMIN_SECRET not set: /admin-login will always answer 401")
	}

	// The same *sqlite.DB satisfies both repository interfaces.
	giveaway := service.NewGiveawayService(provider, s.db, s.db, collector, s.logger)

	h, err := handler.NewGiveawayHandler(giveaway, provider, sessions, adminGate, s.logger)
	if err != nil {
		return fmt.Errorf("creating giveaway handler: %w", err)
	}

	s.router.Get("/", h.HandleHome)
	s.router.Get("/login", h.HandleLogin)
	s.router.Get("/callback", h.HandleCallback)
	s.router.Get("/logout", h.HandleLogout)
	s.router.Get("/admin-login", h.HandleAdminLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions, s.logger))
		r.Get("/dashboard", h.HandleDashboard)
		r.Get("/enter", h.HandleEnter)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(sessions))
		r.Get("/admin", h.HandleAdmin)
	})

	s.router.Get("/healthz", handler.HealthHandler(s.db, s.logger))
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	return nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it itself on return.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
//
// On cancellation it stops accepting connections, gives in-flight requests
// 30 seconds to finish, then closes the database. main cancels ctx on
// SIGINT/SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second, // covers two bounded OAuth round trips
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("SolWinner running",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown requested", slog.String("reason", context.Cause(ctx).Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
