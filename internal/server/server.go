// Package server is the composition root: it opens storage, builds the
// services and handlers, and mounts them on a chi router.
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

	"github.com/sakif/js-playground/internal/assist"
	"github.com/sakif/js-playground/internal/auth"
	"github.com/sakif/js-playground/internal/config"
	"github.com/sakif/js-playground/internal/executor"
	"github.com/sakif/js-playground/internal/handler"
	"github.com/sakif/js-playground/internal/middleware"
	sqliteRepo "github.com/sakif/js-playground/internal/repository/sqlite"
	"github.com/sakif/js-playground/internal/service"
)

// Deps are the collaborators main builds from configuration. Any of them may
// be nil; the matching endpoints then answer 503.
type Deps struct {
	Units     executor.Executor
	Scripts   executor.Executor
	Assistant assist.Provider
}

type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route. The caller owns the
// executors in deps; the server owns the database.
func New(cfg config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
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

	if err := s.setupRoutes(deps); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes(deps Deps) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	validator := handler.NewValidator()

	// Without a JWT secret every request is anonymous and snippets are open
	// to everyone.
	var tokens *auth.TokenService
	if s.config.AuthEnabled() {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret, s.config.SessionTTL)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}
	requireAuth := func(r chi.Router) chi.Router {
		if tokens == nil {
			return r
		}
		return r.With(auth.RequireAuth(tokens))
	}

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	s.router.Get("/healthz", handler.HandleHealth)

	playgroundHandler, err := handler.NewPlaygroundHandler(s.config.TemplateDir, handler.PlaygroundOptions{
		AuthEnabled:   tokens != nil && s.config.GitHubClientID != "",
		AssistEnabled: deps.Assistant != nil,
		ScriptBackend: s.config.ScriptBackend,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating playground handler: %w", err)
	}
	s.router.Get("/", playgroundHandler.HandlePlayground)

	snippetService := service.NewSnippetService(s.db, s.logger)
	runService := service.NewRunService(deps.Units, deps.Scripts, s.db, s.config.MaxUploadBytes, s.logger)
	assistService := service.NewAssistService(deps.Assistant, s.logger)

	snippetHandler := handler.NewSnippetHandler(snippetService, validator, s.logger)
	executeHandler := handler.NewExecuteHandler(runService, validator, s.logger)
	assistHandler := handler.NewAssistHandler(assistService, validator, s.logger)

	var authHandler *handler.AuthHandler
	if tokens != nil {
		authService := service.NewAuthService(s.db, tokens, s.logger)
		if s.config.GitHubClientID != "" {
			github := auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
			authHandler = handler.NewAuthHandler(github, authService, s.logger)

			s.router.Route("/auth", func(r chi.Router) {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
				r.Post("/logout", authHandler.HandleLogout)
			})
		} else {
			s.logger.Warn("JWT_SECRET is set but GITHUB_CLIENT_ID is not; nobody can log in")
			authHandler = handler.NewAuthHandler(nil, authService, s.logger)
		}
	}

	s.router.Route("/api", func(r chi.Router) {
		if tokens != nil {
			r.Use(auth.OptionalAuth(tokens))
			r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		}

		r.Post("/execute", executeHandler.HandleExecute)
		r.Post("/upload", executeHandler.HandleUpload)

		r.Get("/snippets", snippetHandler.HandleList)
		r.Get("/snippets/{id}", snippetHandler.HandleGetByID)
		r.Post("/snippets/{id}/run", executeHandler.HandleRunSnippet)
		requireAuth(r).Post("/snippets", snippetHandler.HandleCreate)
		requireAuth(r).Put("/snippets/{id}", snippetHandler.HandleUpdate)
		requireAuth(r).Delete("/snippets/{id}", snippetHandler.HandleDelete)

		r.Post("/assist/generate", assistHandler.HandleGenerate)
		r.Post("/assist/improve", assistHandler.HandleImprove)
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	// WriteTimeout leaves room for a full run plus container start-up.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RunTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("scriptBackend", s.config.ScriptBackend),
			slog.Bool("auth", s.config.AuthEnabled()),
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
