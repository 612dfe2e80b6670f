// Package server wires the report API: it opens the store, builds the
// service and handler chain, mounts the routes and runs the HTTP server
// until the process is told to stop.
//
// DEPENDENCY FLOW:
//
//	Config.DBPath → sqlite.DB → service.ReportService → handler.ReportHandler
//
// All of it is assembled in New, so main only loads configuration.
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

	"github.com/StarterX4/steamlinuxchecker/internal/handler"
	"github.com/StarterX4/steamlinuxchecker/internal/middleware"
	sqliteRepo "github.com/StarterX4/steamlinuxchecker/internal/repository/sqlite"
	"github.com/StarterX4/steamlinuxchecker/internal/service"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// shutdown signal.
const shutdownTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
}

// Server owns the router and the database handle. The handle is closed when
// Start returns, or by Close if Start is never called.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and mounts every route.
//
// repository/sqlite is imported as sqliteRepo so it does not read like the
// driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
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
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures middleware and routes.
//
//	GET /api/users/{id}                → stored profile
//	GET /api/users/{id}/scans          → scans with score, newest first
//	GET /api/scans/{id}/playtimes      → per-game rows of one scan
//
// Middleware runs in the order it is added. RequestID goes first so the
// logger can print the id.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	reports := service.NewReportService(s.db, s.logger)
	reportHandler := handler.NewReportHandler(reports, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/users/{id}", reportHandler.HandleGetUser)
		r.Get("/users/{id}/scans", reportHandler.HandleListScans)
		r.Get("/scans/{id}/playtimes", reportHandler.HandleListPlaytimes)
	})
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

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
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
