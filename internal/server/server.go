// Package server is the composition root: it opens the database, builds
// the services and handlers, and mounts them on a chi router.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB → services → handlers → routes
//
// Everything is wired in New and setupRoutes, so no other package needs to
// know how its collaborators are constructed.
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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/config"
	"github.com/sakif/linkshelf/internal/handler"
	"github.com/sakif/linkshelf/internal/metadata"
	"github.com/sakif/linkshelf/internal/middleware"
	sqliteRepo "github.com/sakif/linkshelf/internal/repository/sqlite"
	"github.com/sakif/linkshelf/internal/service"
)

// providerFactories builds the OAuth providers the server knows about.
// Only those with credentials in the config are registered.
var providerFactories = map[string]func(clientID, clientSecret, callbackURL string, opts ...auth.ProviderOption) auth.TokenProvider{
	"google":  auth.NewGoogleProvider,
	"github":  auth.NewGitHubProvider,
	"discord": auth.NewDiscordProvider,
}

// Server owns the router and the database connection, which it closes on
// shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	providerOpts []auth.ProviderOption
}

// Option customizes a Server. Tests use it to point providers at fakes.
type Option func(*Server)

// WithProviderOptions applies opts to every OAuth provider.
func WithProviderOptions(opts ...auth.ProviderOption) Option {
	return func(s *Server) { s.providerOpts = append(s.providerOpts, opts...) }
}

// New opens and migrates the database and wires every route.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) registry() *auth.Registry {
	var providers []auth.TokenProvider
	for name, build := range providerFactories {
		client, ok := s.config.OAuth[name]
		if !ok {
			s.logger.Info("oauth provider disabled, no client credentials", slog.String("provider", name))
			continue
		}
		providers = append(providers, build(client.ClientID, client.ClientSecret, s.config.CallbackURL(name), s.providerOpts...))
	}
	registry := auth.NewRegistry(providers...)
	s.logger.Info("oauth providers enabled", slog.Any("providers", registry.Names()))
	return registry
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
//
//	GET    /healthz
//	GET    /auth/{provider}/login
//	GET    /auth/{provider}/callback
//	POST   /auth/logout
//	       /api/*                      (session cookie required)
//
// MIDDLEWARE ORDER MATTERS: RequestID runs first so the logger can print
// it, RealIP before the rate limiter so limits apply per client and not
// per proxy.
func (s *Server) setupRoutes() error {
	jwt, err := auth.NewJWTService(s.config.Auth.JWTSecret, s.config.Auth.SessionTTL)
	if err != nil {
		return err
	}
	sealer, err := auth.NewSealer(s.config.Auth.TokenKey)
	if err != nil {
		return err
	}
	tokens := auth.NewTokenService(s.registry())

	categories := service.NewCategoryService(s.db, s.logger)
	genres := service.NewGenreService(s.db, s.logger)
	urls := service.NewURLService(s.db, s.logger)
	identities := service.NewIdentityService(s.db, sealer, s.logger)
	sessions := service.NewSessionService(s.db, tokens, sealer, s.logger)

	authHandler := handler.NewAuthHandler(tokens, jwt, identities, sessions, s.logger)
	authHandler.SecureCookies = strings.HasPrefix(s.config.HTTP.BaseURL, "https://")
	categoryHandler := handler.NewCategoryHandler(categories, genres, s.logger)
	genreHandler := handler.NewGenreHandler(genres, urls, s.logger)
	urlHandler := handler.NewURLHandler(urls, s.logger)
	metadataHandler := handler.NewMetadataHandler(metadata.New(s.config.Metadata.Timeout), s.logger)
	healthHandler := handler.NewHealthHandler(s.db)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", healthHandler.HandleCheck)

	// The limiter counts per process. Several instances behind a load
	// balancer each allow the full rate.
	limit := httprate.LimitByIP(s.config.RateLimit.RequestsPerMinute, time.Minute)

	s.router.Route("/auth", func(r chi.Router) {
		r.Use(limit)
		r.Get("/{provider}/login", authHandler.HandleLogin)
		r.Get("/{provider}/callback", authHandler.HandleCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(limit)
		r.Use(auth.RequireAuth(jwt))

		r.Get("/me", authHandler.HandleMe)
		r.Get("/session", authHandler.HandleSession)
		r.Post("/session/refresh", authHandler.HandleRefresh)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.HandleList)
			r.Post("/", categoryHandler.HandleCreate)
			r.Get("/{id}", categoryHandler.HandleGetByID)
			r.Patch("/{id}", categoryHandler.HandleUpdate)
			r.Delete("/{id}", categoryHandler.HandleDelete)
			r.Get("/{id}/deletion-stats", categoryHandler.HandleDeletionStats)
			r.Get("/{id}/genres", categoryHandler.HandleListGenres)
		})

		r.Route("/genres", func(r chi.Router) {
			r.Post("/", genreHandler.HandleCreate)
			r.Get("/{id}", genreHandler.HandleGetByID)
			r.Patch("/{id}", genreHandler.HandleUpdate)
			r.Delete("/{id}", genreHandler.HandleDelete)
			r.Get("/{id}/deletion-stats", genreHandler.HandleDeletionStats)
			r.Get("/{id}/urls", genreHandler.HandleListURLs)
		})

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", urlHandler.HandleCreate)
			r.Delete("/{id}", urlHandler.HandleDelete)
			r.Post("/{id}/visit", urlHandler.HandleVisit)
		})

		r.Get("/metadata", metadataHandler.HandleFetch)
	})

	return nil
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests and closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // session hydration may wait on a provider
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTP.Port),
			slog.String("url", s.config.HTTP.BaseURL),
			slog.String("database", s.config.Database.Path),
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
