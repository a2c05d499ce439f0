// Package http assembles the gin engine and the HTTP server for the
// extraction API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FloraTraits/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/handlers"
	"github.com/turtacn/FloraTraits/internal/interfaces/http/middleware"
	"github.com/turtacn/FloraTraits/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware the route tree needs.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	ExtractionHandler *handlers.ExtractionHandler
	HealthHandler     *handlers.HealthHandler

	CORS      *middleware.CORSConfig
	RateLimit middleware.RateLimiter
	RateCfg   middleware.RateLimitConfig
	Logging   middleware.LoggingConfig

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.ExtractionMetrics
	MetricsPath      string
}

// NewRouter builds the gin engine: global middleware, health checks,
// metrics and the /api/v1 group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging, cfg.Metrics))
	if cfg.RateLimit != nil {
		r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateCfg))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Code:      errors.ErrCodeNotFound.String(),
			Message:   "route not found",
			RequestID: middleware.GetRequestID(c),
		})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handlers.ErrorResponse{
			Code:      errors.ErrCodeBadRequest.String(),
			Message:   "method not allowed",
			RequestID: middleware.GetRequestID(c),
		})
	})

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	registerExtractionRoutes(api, cfg.ExtractionHandler)
	return r
}

func registerExtractionRoutes(g *gin.RouterGroup, h *handlers.ExtractionHandler) {
	if h == nil {
		return
	}
	g.POST("/extract", h.Extract)
	g.POST("/extract/batch", h.ExtractBatch)
	g.GET("/records", h.ListRecords)
	g.GET("/records/:id", h.GetRecord)
	g.GET("/search", h.Search)
}
