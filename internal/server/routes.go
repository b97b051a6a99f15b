package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/server/handlers"
)

const (
	adminSignalPath      = "/admin/signal"
	adminSignalRateLimit = 10 // per minute
	adminSignalBurst     = 5
)

func (s *Server) registerRoutes() {
	r := s.router

	r.Get("/", handlers.NewPageHandler(s.opts.defaultInterval).ServeHTTP)
	r.Route("/api", func(api chi.Router) {
		if mw := s.corsMiddleware(); mw != nil {
			api.Use(mw)
		}
		api.Get("/limits", handlers.NewLimitsHandler(s.opts.limits).ServeHTTP)
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)
	r.Get("/metrics", newMetricsProxy(s.opts.metricsPort).ServeHTTP)

	if s.opts.adminToken != "" {
		s.registerAdminSignal()
	}
}

// registerAdminSignal exposes SIGHUP/SIGTERM delivery over HTTP behind a
// bearer token, for platforms where signals cannot reach the process.
func (s *Server) registerAdminSignal() {
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.adminToken,
		RateLimit: adminSignalRateLimit,
		RateBurst: adminSignalBurst,
	})
	s.router.Post(adminSignalPath, handler.ServeHTTP)

	if logger := observability.ServerLogger; logger != nil {
		logger.Warn("Admin signal endpoint enabled; keep it off the public internet",
			zap.String("path", adminSignalPath),
			zap.Int("rate_limit_per_min", adminSignalRateLimit),
			zap.Int("burst", adminSignalBurst))
	}
}
