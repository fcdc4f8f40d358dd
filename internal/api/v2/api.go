// Package api implements the v2 HTTP API. All routes mount under /api/v2.
package api

import (
	"crypto/rand"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/fusion"
	"github.com/aquasentinel/aquasentinel/internal/logging"
	"github.com/aquasentinel/aquasentinel/internal/observability"
	"github.com/aquasentinel/aquasentinel/internal/outbreak"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo       *echo.Echo
	Group      *echo.Group
	DS         datastore.Interface
	Settings   *conf.Settings
	Pipeline   *fusion.Pipeline
	Aggregator *outbreak.Aggregator

	logger           *log.Logger
	apiLogger        *slog.Logger
	aggregationCache *cache.Cache
	metrics          *observability.Metrics
	startTime        time.Time
}

// New creates the API controller and registers all routes on the given Echo
// instance. The metrics argument may be nil.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	pipeline *fusion.Pipeline, aggregator *outbreak.Aggregator,
	logger *log.Logger, metrics *observability.Metrics) *Controller {

	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		Echo:             e,
		Group:            e.Group("/api/v2"),
		DS:               ds,
		Settings:         settings,
		Pipeline:         pipeline,
		Aggregator:       aggregator,
		logger:           logger,
		apiLogger:        logging.ForService("api"),
		aggregationCache: cache.New(time.Minute, 5*time.Minute),
		metrics:          metrics,
		startTime:        time.Now(),
	}

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"outbreak routes", c.initOutbreakRoutes},
		{"hotspot routes", c.initHotspotRoutes},
		{"district routes", c.initDistrictRoutes},
		{"fusion routes", c.initFusionRoutes},
	}

	for _, initializer := range routeInitializers {
		c.Debug("Initializing %s...", initializer.name)
		initializer.fn()
	}

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// HealthCheck handles GET /api/v2/health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"version":   c.Settings.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	dbStatus := "connected"
	if _, err := c.DS.PredictionCountForPair("", ""); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

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

	c.apiLogger.Error("API Error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	return ctx.JSON(code, errorResp)
}

// handleDomainError maps error categories to HTTP status codes before
// delegating to HandleError.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.IsNotFound(err):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case errors.IsCategory(err, errors.CategoryValidation):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	case errors.IsCategory(err, errors.CategoryTimeout):
		return c.HandleError(ctx, err, message, http.StatusGatewayTimeout)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

// Debug logs debug messages when debug mode is enabled.
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.WebServer.Debug {
		c.logger.Printf("[DEBUG] "+format, v...)
	}
}
