// Package api provides the HTTP API server and handlers for the BookTracker application.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/booktrackerapp/booktracker-server/internal/auth"
	"github.com/booktrackerapp/booktracker-server/internal/catalog"
	"github.com/booktrackerapp/booktracker-server/internal/ratelimit"
	"github.com/booktrackerapp/booktracker-server/internal/search"
	"github.com/booktrackerapp/booktracker-server/internal/service"
	"github.com/booktrackerapp/booktracker-server/internal/sse"
	libsync "github.com/booktrackerapp/booktracker-server/internal/sync"
)

// The upstream catalogs are rate limited themselves; the per-IP limit
// keeps one chatty client from starving everyone else's budget.
const (
	searchRatePerSecond = 5
	searchRateBurst     = 10
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	library       *service.LibraryService
	catalog       *catalog.Service
	index         *search.Index
	auth          *auth.Manager
	coordinator   *libsync.Coordinator
	sseHandler    *sse.Handler
	searchLimiter *ratelimit.KeyedRateLimiter
	router        *chi.Mux
	api           huma.API
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(library *service.LibraryService, catalogSvc *catalog.Service, index *search.Index, authManager *auth.Manager, coordinator *libsync.Coordinator, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		library:       library,
		catalog:       catalogSvc,
		index:         index,
		auth:          authManager,
		coordinator:   coordinator,
		sseHandler:    sseHandler,
		searchLimiter: ratelimit.New(searchRatePerSecond, searchRateBurst),
		router:        chi.NewRouter(),
		logger:        logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("BookTracker API", "1.0.0")
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases handler-owned resources.
func (s *Server) Close() {
	s.searchLimiter.Stop()
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(s.searchRateLimitMiddleware)
}

// searchRateLimitMiddleware applies the per-IP limit to catalog searches.
func (s *Server) searchRateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v1/search") && !s.searchLimiter.Allow(r.RemoteAddr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"RATE_LIMITED","message":"too many search requests, slow down"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Plain chi routes: health check and the SSE stream, which needs
	// direct access to the response writer for flushing.
	s.router.Get("/health", s.handleHealthCheck)
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)

	s.registerBookRoutes()
	s.registerSearchRoutes()
	s.registerSettingsRoutes()
	s.registerAuthRoutes()
}
