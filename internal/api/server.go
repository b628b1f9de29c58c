// Package api provides the HTTP API server and handlers for the
// invitation service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/refhq/refhq-server/internal/ratelimit"
	"github.com/refhq/refhq-server/internal/service"
	"github.com/refhq/refhq-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       store.Store
	invitations *service.InvitationService
	limiter     *ratelimit.KeyedLimiter
	router      *chi.Mux
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// limiter guards the public token endpoints; pass nil to disable
// rate limiting (tests do).
func NewServer(st store.Store, invitations *service.InvitationService, limiter *ratelimit.KeyedLimiter, logger *slog.Logger) *Server {
	s := &Server{
		store:       st,
		invitations: invitations,
		limiter:     limiter,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	// Admin endpoints.
	s.router.Route("/api/v1/invitations", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/", s.handleCreateInvitation)
		r.Get("/", s.handleListInvitations)
		r.Delete("/{id}", s.handleRevokeInvitation)
	})

	// Public token endpoints, used by the signup page.
	s.router.Route("/api/v1/signup", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/{token}", s.handleGetInvitationDetails)
		r.Post("/{token}/consume", s.handleConsumeInvitation)
	})
}
