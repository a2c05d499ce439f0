package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/turtacn/FloraTraits/internal/config"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/FloraTraits/internal/interfaces/http"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/handlers"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/middleware"
)

type serveOptions struct {
	port        int
	corsOrigins []string
	rateLimit   float64
	rateBurst   int
	watchConfig bool
}

// NewServeCmd runs the HTTP API.
func NewServeCmd() *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction HTTP API",
		Long: "Starts the HTTP API on the configured port. Every enabled backend\n" +
			"(cache, database, document store, search index, event stream) is\n" +
			"connected before the listener opens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&o.port, "port", "p", 0, "listen port (overrides server.port)")
	f.StringSliceVar(&o.corsOrigins, "cors-origin", nil, "allowed CORS origin; repeatable, \"*\" allows any")
	f.Float64Var(&o.rateLimit, "rate-limit", 0, "requests per second per client IP; 0 disables limiting")
	f.IntVar(&o.rateBurst, "rate-burst", 0, "token bucket burst size (default: twice the rate)")
	f.BoolVar(&o.watchConfig, "watch-config", true, "apply log level changes from the config file without a restart")
	return cmd
}

func runServe(cmd *cobra.Command, o *serveOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, log := cliCtx.Config, cliCtx.Logger
	if o.port > 0 {
		cfg.Server.Port = o.port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := NewRuntime(ctx, cfg, log, runtimeOptions{publishResults: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	var limiter *middleware.TokenBucketLimiter
	if o.rateLimit > 0 {
		burst := o.rateBurst
		if burst <= 0 {
			burst = int(2 * o.rateLimit)
		}
		limiter = middleware.NewTokenBucketLimiter(o.rateLimit, burst, 5*time.Minute)
		defer limiter.Stop()
	}

	router := newAPIRouter(rt, o, limiter)
	srv := httpserver.NewServer(cfg.Server, router, log)

	if o.watchConfig && cliCtx.ConfigPath != "" {
		config.Watch(cliCtx.ConfigPath, func(next *config.Config) {
			log.Info("config file changed",
				logging.String("path", cliCtx.ConfigPath),
				logging.String("log_level", next.Log.Level))
		})
	}

	log.Info("starting floratraits API",
		logging.String("version", Version),
		logging.String("pipeline", rt.Pipeline.Fingerprint()),
		logging.Int("port", cfg.Server.Port))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Stop(context.Background())
}

// newAPIRouter wires the runtime's service, health checks and metrics into
// the gin router. limiter may be nil.
func newAPIRouter(rt *Runtime, o *serveOptions, limiter *middleware.TokenBucketLimiter) http.Handler {
	cfg := rt.Config
	setGinMode(cfg.Server.Mode)

	rc := httpserver.RouterConfig{
		ExtractionHandler: handlers.NewExtractionHandler(rt.Service, cfg.Server.MaxBodySize, rt.Logger),
		HealthHandler:     handlers.NewHealthHandler(Version, rt.Pipeline.Fingerprint(), rt.HealthCheckers()...),
		Logging:           middleware.DefaultLoggingConfig(),
		Logger:            rt.Logger,
		MetricsCollector:  rt.Collector,
		Metrics:           rt.Metrics,
		MetricsPath:       cfg.Metrics.Path,
	}
	if len(o.corsOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = o.corsOrigins
		cors.AllowWildcard = true
		rc.CORS = &cors
	}
	if limiter != nil {
		rc.RateLimit = limiter
		rc.RateCfg = middleware.DefaultRateLimitConfig()
		rc.RateCfg.RequestsPerSecond = o.rateLimit
	}
	return httpserver.NewRouter(rc)
}

func setGinMode(mode string) {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
}
