package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aquasentinel/aquasentinel/internal/outbreak"
)

// OutbreaksResponse wraps the bucket list with the thresholds that produced
// it, so clients can render legends without re-deriving configuration.
type OutbreaksResponse struct {
	Outbreaks          []outbreak.Bucket `json:"outbreaks"`
	TotalOutbreakAreas int               `json:"total_outbreak_areas"`
	WindowDays         int               `json:"window_days"`
	MinThreshold       int               `json:"min_threshold"`
	HighThreshold      int               `json:"high_threshold"`
}

func (c *Controller) initOutbreakRoutes() {
	outbreakGroup := c.Group.Group("/outbreaks")
	outbreakGroup.GET("", c.GetOutbreaks)
	outbreakGroup.GET("/summary", c.GetOutbreakSummary)
}

// GetOutbreaks handles GET /api/v2/outbreaks.
// Returns severity-tiered outbreak buckets for the requested window.
func (c *Controller) GetOutbreaks(ctx echo.Context) error {
	params := outbreak.Params{
		Disease:  ctx.QueryParam("disease"),
		District: ctx.QueryParam("district"),
	}
	var err error
	if params.WindowDays, err = queryInt(ctx, "days"); err != nil {
		return c.HandleError(ctx, err, "Invalid days parameter", http.StatusBadRequest)
	}
	if params.MinThreshold, err = queryInt(ctx, "min_threshold"); err != nil {
		return c.HandleError(ctx, err, "Invalid min_threshold parameter", http.StatusBadRequest)
	}
	if params.HighThreshold, err = queryInt(ctx, "high_threshold"); err != nil {
		return c.HandleError(ctx, err, "Invalid high_threshold parameter", http.StatusBadRequest)
	}
	if params.Limit, err = queryInt(ctx, "limit"); err != nil {
		return c.HandleError(ctx, err, "Invalid limit parameter", http.StatusBadRequest)
	}

	cacheKey := fmt.Sprintf("outbreaks:%s:%s:%d:%d:%d:%d",
		params.Disease, params.District, params.WindowDays,
		params.MinThreshold, params.HighThreshold, params.Limit)
	if cached, found := c.aggregationCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	params.Normalize(&c.Settings.Outbreak)
	buckets, err := c.Aggregator.Aggregate(ctx.Request().Context(), params)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to aggregate outbreaks")
	}

	response := OutbreaksResponse{
		Outbreaks:          buckets,
		TotalOutbreakAreas: len(buckets),
		WindowDays:         params.WindowDays,
		MinThreshold:       params.MinThreshold,
		HighThreshold:      params.HighThreshold,
	}
	c.aggregationCache.SetDefault(cacheKey, response)
	return ctx.JSON(http.StatusOK, response)
}

// GetOutbreakSummary handles GET /api/v2/outbreaks/summary.
func (c *Controller) GetOutbreakSummary(ctx echo.Context) error {
	days, err := queryInt(ctx, "days")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid days parameter", http.StatusBadRequest)
	}

	cacheKey := fmt.Sprintf("outbreak-summary:%d", days)
	if cached, found := c.aggregationCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	summary, err := c.Aggregator.Summarize(ctx.Request().Context(), days)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to summarize outbreaks")
	}

	c.aggregationCache.SetDefault(cacheKey, summary)
	return ctx.JSON(http.StatusOK, summary)
}

// queryInt parses an optional integer query parameter, zero when absent.
func queryInt(ctx echo.Context, name string) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %s must be an integer: %w", name, err)
	}
	return value, nil
}
