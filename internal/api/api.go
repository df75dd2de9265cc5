// Package api implements the JSON HTTP surface of the speech analysis
// service.
package api

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dtrovato997/speech-analysis-go/internal/analysis"
	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
	"github.com/dtrovato997/speech-analysis-go/internal/observability"
)

// Analyzer runs predictions over one uploaded clip.
type Analyzer interface {
	Analyze(ctx context.Context, family inference.Family, filename string, upload io.Reader) (*analysis.Result, error)
	AnalyzeAll(ctx context.Context, filename string, upload io.Reader) (*analysis.CombinedResult, error)
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	Settings  *conf.Settings
	Analyzer  Analyzer
	Registry  *inference.Registry
	startTime time.Time

	apiLogger      *slog.Logger
	apiLoggerClose func() error
	metrics        *observability.Metrics
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics attaches the shared metrics instance, enabling the metrics
// endpoint and request recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates the API controller and registers all routes on e.
func New(e *echo.Echo, settings *conf.Settings, analyzer Analyzer, registry *inference.Registry, opts ...Option) *Controller {
	c := &Controller{
		Echo:      e,
		Settings:  settings,
		Analyzer:  analyzer,
		Registry:  registry,
		startTime: time.Now(),
		apiLogger: logging.ForService("api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if settings.Main.Log.Enabled && settings.Main.Log.Path != "" {
		fileLogger, closeFn, err := logging.NewFileLogger(settings.Main.Log.Path, "api", slog.LevelInfo)
		if err != nil {
			c.apiLogger.Warn("failed to open API log file, logging to stdout only",
				"path", settings.Main.Log.Path, "error", err.Error())
		} else {
			c.apiLogger = fileLogger
			c.apiLoggerClose = closeFn
		}
	}

	c.Group = e.Group("/api/v1", c.LoggingMiddleware())
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/models", c.ModelStatuses)

	c.Group.POST("/predict/age-gender", c.PredictAgeGender)
	c.Group.POST("/predict/nationality", c.PredictNationality)
	c.Group.POST("/predict/emotion", c.PredictEmotion)
	c.Group.POST("/predict", c.PredictAll)

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// LoggingMiddleware creates a middleware function that logs API requests
// and records request metrics.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			if c.metrics != nil {
				c.metrics.HTTP.RecordRequest(req.Method, ctx.Path(), res.Status, time.Since(start).Seconds())
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.String("user_agent", req.UserAgent()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}

// ErrorResponse is the error body every failing endpoint returns.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error
// tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}
	c.apiLogger.Error("API Error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorStr,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	return ctx.JSON(code, errorResp)
}

// Uptime reports how long the controller has been serving.
func (c *Controller) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Close releases controller resources, closing the API log file if one
// was opened.
func (c *Controller) Close() error {
	if c.apiLoggerClose != nil {
		return c.apiLoggerClose()
	}
	return nil
}
