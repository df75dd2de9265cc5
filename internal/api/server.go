package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
	"github.com/dtrovato997/speech-analysis-go/internal/observability"
)

// Server wraps the echo instance and the API controller.
type Server struct {
	Echo       *echo.Echo
	Settings   *conf.Settings
	Controller *Controller
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	metrics *observability.Metrics
}

// WithServerMetrics attaches the shared metrics instance to the server.
func WithServerMetrics(m *observability.Metrics) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metrics = m
	}
}

// NewServer configures an HTTP server serving the prediction API.
func NewServer(settings *conf.Settings, analyzer Analyzer, registry *inference.Registry, opts ...ServerOption) *Server {
	var cfg serverConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	if settings.WebServer.Debug {
		e.Use(middleware.Logger())
	}

	var controllerOpts []Option
	if cfg.metrics != nil {
		controllerOpts = append(controllerOpts, WithMetrics(cfg.metrics))
	}
	controller := New(e, settings, analyzer, registry, controllerOpts...)

	return &Server{
		Echo:       e,
		Settings:   settings,
		Controller: controller,
	}
}

// Start begins listening and serving HTTP requests. It blocks until the
// listener stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.Settings.WebServer.Host, s.Settings.WebServer.Port)
	logging.ForService("api").Info("HTTP server starting", "addr", addr)

	if err := s.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, draining in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.Echo.Shutdown(ctx)
	if closeErr := s.Controller.Close(); err == nil {
		err = closeErr
	}
	return err
}
