package cmd

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/appid"
	"github.com/limitlens/limitlens/internal/config"
	errwrap "github.com/limitlens/limitlens/internal/errors"
	"github.com/limitlens/limitlens/internal/metrics"
	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/server"
	"github.com/limitlens/limitlens/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status page and limits proxy",
	Long: `Start the HTTP server serving the status page (/) and the normalized
Globalping rate limits (/api/limits), with graceful shutdown support.

The upstream credential is read from upstream.api_key (LIMITLENS_API_KEY).
Without it the server still starts; /api/limits answers 500.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload config; upstream URL and credential apply immediately

Setting LIMITLENS_ADMIN_TOKEN enables POST /admin/signal for platforms that
cannot deliver signals.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("api-key", "", "Globalping API key (prefer LIMITLENS_API_KEY)")
	serveCmd.Flags().StringSlice("cors-origin", nil, "origin allowed to call /api (repeatable)")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("upstream.api_key", serveCmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("cors.allowed_origins", serveCmd.Flags().Lookup("cors-origin"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()
	cfg := loadConfig(ctx)

	observability.InitServerLoggerProfile(identity.BinaryName, cfg.Logging.Level, cfg.Logging.Profile, namespace)
	log := observability.ServerLogger

	metricsPort := cfg.Metrics.Port
	if metricsPort == 0 {
		metricsPort = observability.DefaultMetricsPort
	}
	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
			log.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now().Unix())
	}

	log.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("metrics_port", metricsPort),
		zap.String("upstream", cfg.Upstream.URL),
		zap.Bool("credential_configured", cfg.Upstream.APIKey != ""))
	if cfg.Upstream.APIKey == "" {
		log.Warn("No upstream credential configured; /api/limits will answer 500",
			zap.String("env", appid.EnvPrefixOf(identity)+"API_KEY"))
	}

	live := newLiveLimits(cfg)
	handlers.InitHealthManager(versionInfo.Version)
	registerHealthCheckers(handlers.GetHealthManager(), identity, live, cfg.Metrics.Enabled)
	handlers.SetAppIdentity(identity)
	handlers.SetUpstream(cfg.Upstream.URL)

	srv := server.New(cfg.Server.Host, cfg.Server.Port,
		server.WithLimitsService(live),
		server.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
		server.WithDefaultInterval(cfg.Refresh.Interval),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout),
		server.WithMetricsPort(metricsPort),
		server.WithAdminToken(os.Getenv(appid.EnvPrefixOf(identity)+"ADMIN_TOKEN")),
	)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	registerLifecycle(srv, live, shutdownTimeout, cfg.Metrics.Enabled)

	errChan := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	// Listen returns once the shutdown handlers have run.
	go func() {
		err := signals.Listen(ctx)
		if err != nil {
			log.Error("Signal handler error", zap.Error(err))
		}
		errChan <- err
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

// registerHealthCheckers wires the checks behind /health and the probes.
func registerHealthCheckers(hm *handlers.HealthManager, identity *appidentity.Identity, live *liveLimits, telemetryEnabled bool) {
	if telemetryEnabled {
		hm.RegisterChecker("telemetry", handlers.HealthCheckerFunc(func(ctx context.Context) error {
			if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
				return errwrap.NewInternalError("telemetry system not initialized")
			}
			return nil
		}))
	}
	hm.RegisterChecker("upstream_config", handlers.HealthCheckerFunc(live.checkUpstreamURL))
	hm.RegisterChecker("credential", handlers.CredentialChecker{Present: live.credentialPresent})
	hm.RegisterChecker("app_identity", handlers.HealthCheckerFunc(func(ctx context.Context) error {
		if identity == nil || identity.BinaryName == "" || identity.EnvPrefix == "" || identity.ConfigName == "" {
			return errwrap.NewConfigInvalidError("app identity incomplete")
		}
		return nil
	}))
}

// registerLifecycle installs the shutdown handlers (run last registered
// first: HTTP server, exporter, logger flush) and the SIGHUP reload.
func registerLifecycle(srv *server.Server, live *liveLimits, shutdownTimeout time.Duration, metricsEnabled bool) {
	log := observability.ServerLogger

	signals.OnShutdown(func(ctx context.Context) error {
		if err := log.Sync(); err != nil {
			// stdout/stderr may already be closed
			log.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	if metricsEnabled {
		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.StopMetrics(); err != nil {
				log.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
			return nil
		})
	}
	signals.OnShutdown(func(ctx context.Context) error {
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		log.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		log.Info("Received SIGHUP: attempting config reload")
		return reloadUpstream(ctx, viper.GetViper(), live)
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		log.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}
}

// reloadUpstream re-reads the config file and environment and swaps the
// upstream settings into live. Listener, CORS and page settings stay as
// started. A missing config file is not an error.
func reloadUpstream(ctx context.Context, v *viper.Viper, live *liveLimits) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
	}

	reloaded, err := config.Load(ctx, v)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	changed := live.apply(reloaded)
	handlers.SetUpstream(reloaded.Upstream.URL)
	if log := observability.ServerLogger; log != nil {
		log.Info("Configuration reloaded",
			zap.String("file", v.ConfigFileUsed()),
			zap.Bool("upstream_changed", changed),
			zap.Bool("credential_configured", reloaded.Upstream.APIKey != ""))
	}
	return nil
}
