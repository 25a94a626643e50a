// Package server assembles the HTTP server: it wires the database,
// services, handlers, and middleware into a chi route tree and runs it
// with graceful shutdown.
//
// This is the composition root — every dependency chain is built here,
// and each layer receives only what it needs: services get repository
// interfaces, handlers get services, nothing below the handler layer
// sees HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/threadlines/internal/auth"
	"github.com/sakif/threadlines/internal/config"
	"github.com/sakif/threadlines/internal/handler"
	"github.com/sakif/threadlines/internal/live"
	"github.com/sakif/threadlines/internal/middleware"
	sqliteRepo "github.com/sakif/threadlines/internal/repository/sqlite"
	"github.com/sakif/threadlines/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown — most importantly the database connection, which has to be
// closed to flush the WAL and release the file lock.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency graph and the route tree.
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

// setupRoutes wires middleware, services, and handlers.
//
// Route tree:
//
//	POST   /auth/signup            register (email/password)
//	POST   /auth/signin            sign in
//	POST   /auth/logout            clear the session cookie
//	GET    /auth/github/login      start the OAuth flow (if configured)
//	GET    /auth/github/callback   finish the OAuth flow
//
//	GET    /api/me                 current profile            ─┐
//	PATCH  /api/me                 update display name         │
//	PUT    /api/me/password        change password             │
//	POST   /api/me/wipe            wipe all owned data         │
//	DELETE /api/me                 delete account              │
//	GET    /api/snippets           filtered snippet view       ├ RequireAuth
//	POST   /api/snippets           create snippet              │
//	GET    /api/snippets/{id}      get snippet                 │
//	PATCH  /api/snippets/{id}      partial update              │
//	DELETE /api/snippets/{id}      delete snippet              │
//	GET    /api/folders            list folders                │
//	POST   /api/folders            create folder               │
//	PATCH  /api/folders/{id}       rename folder               │
//	DELETE /api/folders/{id}       delete folder (cascade)     │
//	GET    /api/live               WebSocket live sync        ─┘
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.BcryptCost)

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Info("GitHub OAuth not configured, sign-in is email/password only")
	}

	hub := live.NewHub(s.logger)

	authService := service.NewAuthService(s.db, tokens, passwords, hub, s.logger)
	snippetService := service.NewSnippetService(s.db, hub, s.logger)
	folderService := service.NewFolderService(s.db, hub, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	accountHandler := handler.NewAccountHandler(authService, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	folderHandler := handler.NewFolderHandler(folderService, s.logger)
	liveHandler := handler.NewLiveHandler(s.db, s.db, hub, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignUp)
		r.Post("/signin", authHandler.HandleSignIn)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/me", accountHandler.HandleMe)
		r.Patch("/me", accountHandler.HandleUpdateProfile)
		r.Put("/me/password", accountHandler.HandleUpdatePassword)
		r.Post("/me/wipe", accountHandler.HandleWipeData)
		r.Delete("/me", accountHandler.HandleDeleteAccount)

		r.Get("/snippets", snippetHandler.HandleList)
		r.Post("/snippets", snippetHandler.HandleCreate)
		r.Get("/snippets/{id}", snippetHandler.HandleGet)
		r.Patch("/snippets/{id}", snippetHandler.HandleUpdate)
		r.Delete("/snippets/{id}", snippetHandler.HandleDelete)

		r.Get("/folders", folderHandler.HandleList)
		r.Post("/folders", folderHandler.HandleCreate)
		r.Patch("/folders/{id}", folderHandler.HandleRename)
		r.Delete("/folders/{id}", folderHandler.HandleDelete)

		r.Get("/live", liveHandler.HandleLive)
	})

	return nil
}

// Handler exposes the route tree, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start does this itself; callers that only
// use Handler (tests) call Close directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, give in-flight requests 30 seconds, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	// No WriteTimeout: /api/live holds a WebSocket open for the life of
	// the session. ReadHeaderTimeout still bounds slow-header clients.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
