package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/archd/internal/recommend"
	"github.com/fyrsmithlabs/archd/internal/requirements"
	"github.com/fyrsmithlabs/archd/internal/session"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the analysis and recommendation pipeline over HTTP.
type Server struct {
	echo     *echo.Echo
	analyzer *requirements.Analyzer
	recsvc   *recommend.Service
	sessions *session.Store
	metrics  *Metrics
	logger   *zap.Logger
	config   Config
}

// NewServer wires the server. The analyzer and session store are
// required; the recommendation service may be not-ready when its
// backing resources failed to load, in which case recommendation
// endpoints report 503.
func NewServer(analyzer *requirements.Analyzer, recsvc *recommend.Service, sessions *session.Store, registry *prometheus.Registry, logger *zap.Logger, cfg Config) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewMetrics(registry)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		recsvc:   recsvc,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes(registry)
	return s, nil
}

func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/requirements/analyze", s.handleAnalyze)
	v1.POST("/architecture/recommend", s.handleRecommend)
	v1.POST("/recommendations/validate", s.handleValidate)

	v1.POST("/sessions", s.handleCreateSession)
	v1.GET("/sessions", s.handleListSessions)
	v1.POST("/sessions/cleanup", s.handleCleanupSessions)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.POST("/sessions/:id/messages", s.handleAddMessage)
	v1.DELETE("/sessions/:id", s.handleDeleteSession)
	v1.GET("/sessions/:id/history", s.handleSessionHistory)
	v1.POST("/sessions/:id/constraints", s.handleSetConstraint)
	v1.POST("/sessions/:id/preferences", s.handleAddPreference)
	v1.POST("/sessions/:id/clarifications", s.handleAddClarification)
	v1.POST("/sessions/:id/clarifications/resolve", s.handleResolveClarification)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the server until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
