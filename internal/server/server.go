// Package server provides the HTTP REST API for nutrition targets and meal plans.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/jonathan/nutricalc/internal/db"
	"github.com/jonathan/nutricalc/internal/reconcile"
	"github.com/jonathan/nutricalc/internal/server/middleware"
	"github.com/jonathan/nutricalc/internal/server/ratelimit"
)

// maxBodyBytes caps request bodies; a full plan is a few kilobytes
const maxBodyBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	resolver    reconcile.Resolver
	store       db.Store
	concurrency int
	rateLimiter *ratelimit.Limiter
	logger      *slog.Logger
}

// Config holds server configuration
type Config struct {
	Port int
	// Resolver estimates food rows; usually an *estimator.Gateway
	Resolver reconcile.Resolver
	// Store is optional. Stored-plan routes are mounted only when it is set.
	Store db.Store
	// Concurrency is the number of slots reconciled in parallel per request
	Concurrency int
	// RateLimit defaults to ratelimit.LoadConfig(os.Getenv) when nil
	RateLimit      *ratelimit.Config
	AllowedOrigins []string
	Logger         *slog.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	rlConfig := cfg.RateLimit
	if rlConfig == nil {
		rlConfig = ratelimit.LoadConfig(os.Getenv)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		resolver:    cfg.Resolver,
		store:       cfg.Store,
		concurrency: cfg.Concurrency,
		rateLimiter: ratelimit.NewLimiter(rlConfig),
		logger:      logger,
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           c.Handler(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// routes builds the router. The stored-plan group exists only with a store.
func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimit(s.rateLimiter))

	r.Get("/health", s.handleHealth)
	r.Post("/targets", s.handleTargets)

	r.Route("/plans", func(r chi.Router) {
		r.Get("/default", s.handleDefaultPlan)
		r.Post("/summary", s.handleSummary)
		r.Post("/reconcile", s.handleReconcile)
		r.Post("/reconcile/stream", s.handleReconcileStream)

		if s.store == nil {
			return
		}
		r.Post("/", s.handleCreatePlan)
		r.Get("/", s.handleListPlans)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPlan)
			r.Put("/", s.handleUpdatePlan)
			r.Delete("/", s.handleDeletePlan)
			r.Post("/reconcile", s.handleReconcileStored)
			r.Post("/reset", s.handleResetPlan)
			r.Get("/reports", s.handleListReports)
		})
	})

	return r
}

// Handler returns the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close stops the rate limiter and closes the store
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"storage": s.store != nil,
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to a status code and writes it. Server errors are logged
// and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON reads a size-capped JSON body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}
