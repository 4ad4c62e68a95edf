// Package server wires the dev data store together: database, services,
// realtime hub, middleware, and routes. It is the composition root; nothing
// below it constructs its own dependencies.
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

	"github.com/jeyaram1023/doubt-wala/internal/auth"
	"github.com/jeyaram1023/doubt-wala/internal/config"
	"github.com/jeyaram1023/doubt-wala/internal/handler"
	"github.com/jeyaram1023/doubt-wala/internal/middleware"
	"github.com/jeyaram1023/doubt-wala/internal/realtime"
	sqliteRepo "github.com/jeyaram1023/doubt-wala/internal/repository/sqlite"
	"github.com/jeyaram1023/doubt-wala/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown. The database connection is closed after in-flight requests
// drain so the WAL is flushed cleanly.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: sqlite → repositories →
// services → handlers → routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly so tests can run the whole store
// behind an httptest server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Start callers do
// not need it; test callers do.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("configuring token service: %w", err)
	}

	hub := realtime.NewHub(s.logger)

	questionSvc := service.NewQuestionService(s.db, hub, s.logger)
	answerSvc := service.NewAnswerService(s.db, s.db, hub, s.logger)
	authSvc := service.NewAuthService(s.db, s.db, tokens, auth.NewHasher(), s.logger)
	profileSvc := service.NewProfileService(s.db, s.logger)

	questionHandler := handler.NewQuestionHandler(questionSvc, s.logger)
	answerHandler := handler.NewAnswerHandler(answerSvc, s.logger)
	authHandler := handler.NewAuthHandler(authSvc, s.logger)
	profileHandler := handler.NewProfileHandler(profileSvc, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Route("/api", func(r chi.Router) {
		// Sign-in endpoints take no token.
		r.Post("/auth/link", authHandler.HandleRequestLink)
		r.Post("/auth/verify", authHandler.HandleVerify)

		// Reads work anonymously; a valid token still attaches identity.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/questions", questionHandler.HandleList)
			r.Get("/questions/{id}", questionHandler.HandleGet)
			r.Get("/answers", answerHandler.HandleList)
			r.Get("/answers/{id}", answerHandler.HandleGet)
			r.Get("/profiles/{id}", profileHandler.HandleGet)
		})

		// Everything that writes, or is scoped to the acting user,
		// requires a token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/user", authHandler.HandleUser)

			r.Post("/questions", questionHandler.HandleCreate)
			r.Patch("/questions/{id}", questionHandler.HandleUpdate)
			r.Delete("/questions/{id}", questionHandler.HandleDelete)
			r.Get("/me/questions", questionHandler.HandleMine)

			r.Post("/answers", answerHandler.HandleCreate)
			r.Patch("/answers/{id}", answerHandler.HandleUpdate)
			r.Delete("/answers/{id}", answerHandler.HandleDelete)
			r.Get("/me/answers", answerHandler.HandleMine)

			r.Get("/votes", answerHandler.HandleListVotes)
			r.Put("/votes", answerHandler.HandleUpsertVote)
			r.Delete("/votes", answerHandler.HandleDeleteVote)

			r.Post("/profiles", profileHandler.HandleCreate)
			r.Patch("/profiles/{id}", profileHandler.HandleUpdate)
		})

		// The change feed authenticates via ?token= because browser
		// websocket clients cannot set headers.
		r.Get("/realtime", hub.HandleWS)
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.cfg.HTTPAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("store listening",
			slog.String("addr", s.cfg.HTTPAddr),
			slog.String("database", s.cfg.DBPath),
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
