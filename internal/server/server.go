// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the wiring layer: it connects storage, services, handlers
// and middleware, and owns the lifecycle of everything it opens.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New():
//	  sqlite.DB (+ redisstore.SessionStore when SESSION_STORE=redis)
//	  → IdentityService, SessionGate, CatalogService
//	  → QuoteService, BookingService, AccountService
//	  → handlers → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/energy-advisor/internal/auth"
	"github.com/sakif/energy-advisor/internal/config"
	"github.com/sakif/energy-advisor/internal/handler"
	"github.com/sakif/energy-advisor/internal/metrics"
	"github.com/sakif/energy-advisor/internal/middleware"
	"github.com/sakif/energy-advisor/internal/repository"
	"github.com/sakif/energy-advisor/internal/repository/redisstore"
	sqliteRepo "github.com/sakif/energy-advisor/internal/repository/sqlite"
	"github.com/sakif/energy-advisor/internal/service"
	"github.com/sakif/energy-advisor/internal/view"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and, when configured, the Redis
// client. Close releases both; Start calls it on the way out.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	db       *sqliteRepo.DB
	redis    *redisstore.SessionStore // nil unless sessions live in Redis
	limiter  *middleware.RateLimiter  // nil when rate limiting is off
}

// New opens storage, seeds the catalog and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		db:       db,
	}

	// === SESSION STORE ===
	var sessions repository.SessionRepository = db
	if cfg.Session.Store == config.StoreRedis {
		store, err := redisstore.NewSessionStore(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.IdleTimeout,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting session store: %w", err)
		}
		s.redis = store
		sessions = store
	}

	if err := s.setupRoutes(ctx, sessions); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET      /                        → product catalog
// GET      /products/{slug}         → product page with quote form
// POST     /products/{slug}/quote   → quote + auto-provisioning      [rate limited]
// GET/POST /register, /login        → account entry                  [rate limited POST]
// POST     /logout
// GET/POST /account/password        → change password                [session]
// GET      /account                 → dashboard                      [session, password current]
// GET/POST /bookings/{calcID}       → booking form / submit          [session, password current]
// GET      /healthz, /metrics       → machine endpoints, no CSRF or session
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Recoverer → Logger → Instrument run on every request.
// CSRF and session loading only wrap the HTML routes.
func (s *Server) setupRoutes(ctx context.Context, sessions repository.SessionRepository) error {
	cfg := s.config

	// === METRICS ===
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(s.registry)

	// === SERVICES ===
	gate, err := service.NewSessionGate(sessions, service.SessionConfig{
		Secret:      cfg.Session.Secret,
		IdleTimeout: cfg.Session.IdleTimeout,
		MaxAge:      cfg.Session.MaxAge,
	}, s.logger)
	if err != nil {
		return err
	}

	identity := service.NewIdentityService(s.db, auth.NewPasswordService(cfg.Auth.BcryptCost), cfg.Auth.FallbackTempPassword, m, s.logger)

	catalog := service.NewCatalogService(s.db, s.logger)
	if err := catalog.Seed(ctx, service.DefaultProducts); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	quotes := service.NewQuoteService(s.db, s.db, identity, gate, m, s.logger)
	bookings := service.NewBookingService(s.db, s.db, m, s.logger)
	accounts := service.NewAccountService(s.db, s.db, identity, gate)

	// === HANDLERS ===
	renderer, err := view.New()
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	rs := handler.NewResponder(renderer, s.logger)
	cookie := handler.SessionCookie{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
		MaxAge: gate.CookieMaxAge(),
	}

	catalogHandler := handler.NewCatalogHandler(rs, catalog)
	quoteHandler := handler.NewQuoteHandler(rs, quotes, catalog, gate, cookie)
	bookingHandler := handler.NewBookingHandler(rs, bookings)
	authHandler := handler.NewAuthHandler(rs, identity, gate, cookie)
	accountHandler := handler.NewAccountHandler(rs, accounts)

	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(func(context.Context) error { return s.db.Ping() }),
	}
	if s.redis != nil {
		checks["redis"] = s.redis
	}
	healthHandler := handler.NewHealthHandler(checks, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Instrument(m))

	// === Machine Routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// === Page Routes ===
	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, s.logger)
		limit = s.limiter.Middleware
	}

	s.router.Group(func(r chi.Router) {
		if !cfg.Session.Secure {
			// Without TLS the CSRF middleware must be told not to demand
			// an https Referer.
			r.Use(plaintext)
		}
		r.Use(csrf.Protect([]byte(cfg.CSRF.Key),
			csrf.Secure(cfg.Session.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(http.HandlerFunc(rs.HandleForbidden)),
		))
		r.Use(auth.LoadSession(cfg.Session.CookieName, gate))
		r.NotFound(rs.HandleNotFound)

		r.Get("/", catalogHandler.HandleList)
		r.Get("/products/{slug}", catalogHandler.HandleProduct)
		r.With(limit).Post("/products/{slug}/quote", quoteHandler.HandleSubmit)

		r.Get("/register", authHandler.HandleRegisterForm)
		r.With(limit).Post("/register", authHandler.HandleRegister)
		r.Get(auth.LoginPath, authHandler.HandleLoginForm)
		r.With(limit).Post(auth.LoginPath, authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession)
			r.Get(auth.ChangePasswordPath, accountHandler.HandlePasswordForm)
			r.Post(auth.ChangePasswordPath, accountHandler.HandleChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePasswordCurrent)
				r.Get("/account", accountHandler.HandleView)
				r.Get("/bookings/{calcID}", bookingHandler.HandleForm)
				r.Post("/bookings/{calcID}", bookingHandler.HandleSubmit)
			})
		})
	})

	return nil
}

func plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases storage. It is safe to call on a partly built Server.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// Start serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close storage (flushes WAL, releases file lock)
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if s.limiter != nil {
		go s.limiter.SweepEvery(ctx, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
		IdleTimeout:  s.config.HTTP.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTP.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.HTTP.Port)),
			slog.String("database", s.config.DB.Path),
			slog.String("sessionStore", s.config.Session.Store),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
