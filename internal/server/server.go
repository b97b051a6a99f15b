package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apperrors "github.com/limitlens/limitlens/internal/errors"
	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/server/handlers"
	servermw "github.com/limitlens/limitlens/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int
	opts   options
}

type options struct {
	limits          handlers.LimitsService
	allowedOrigins  []string
	defaultInterval time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	metricsPort     int
	adminToken      string
}

// Option configures a Server.
type Option func(*options)

// WithLimitsService backs /api/limits with svc. Without it the route reports
// a missing credential.
func WithLimitsService(svc handlers.LimitsService) Option {
	return func(o *options) { o.limits = svc }
}

// WithAllowedOrigins enables CORS on /api for the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(o *options) { o.allowedOrigins = origins }
}

// WithDefaultInterval sets the interval preselected on the status page.
func WithDefaultInterval(d time.Duration) Option {
	return func(o *options) { o.defaultInterval = d }
}

// WithMetricsPort sets the exporter port /metrics proxies to when the
// exporter cannot report its own.
func WithMetricsPort(port int) Option {
	return func(o *options) { o.metricsPort = port }
}

// WithAdminToken enables POST /admin/signal guarded by token.
func WithAdminToken(token string) Option {
	return func(o *options) { o.adminToken = token }
}

// WithTimeouts overrides the HTTP server timeouts. Zero values keep the defaults.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(o *options) {
		if read > 0 {
			o.readTimeout = read
		}
		if write > 0 {
			o.writeTimeout = write
		}
		if idle > 0 {
			o.idleTimeout = idle
		}
	}
}

// New creates a new HTTP server instance
func New(host string, port int, opts ...Option) *Server {
	o := options{
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		idleTimeout:  120 * time.Second,
		metricsPort:  9090,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	// Standard chi middleware
	r.Use(middleware.RealIP)

	// RequestID first so metrics, logs and error bodies share it; Recovery
	// innermost so a panic is still measured as a 500.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		handlers.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		handlers.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		host:   host,
		port:   port,
		opts:   o,
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.readTimeout,
		WriteTimeout: s.opts.writeTimeout,
		IdleTimeout:  s.opts.idleTimeout,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// corsMiddleware returns nil when no origins are configured.
func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	if len(s.opts.allowedOrigins) == 0 {
		return nil
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.opts.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Cache-Control", "Pragma"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
