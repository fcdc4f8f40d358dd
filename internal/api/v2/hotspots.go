package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aquasentinel/aquasentinel/internal/outbreak"
)

// HotspotsResponse echoes the threshold and window alongside the results.
type HotspotsResponse struct {
	Hotspots   []outbreak.Hotspot `json:"hotspots"`
	Total      int                `json:"total"`
	WindowDays int                `json:"window_days"`
	Threshold  int                `json:"threshold"`
}

func (c *Controller) initHotspotRoutes() {
	c.Group.GET("/hotspots", c.GetHotspots)
}

// GetHotspots handles GET /api/v2/hotspots.
// Surfaces locations with acute recent prediction activity.
func (c *Controller) GetHotspots(ctx echo.Context) error {
	params := outbreak.HotspotParams{
		Disease:  ctx.QueryParam("disease"),
		District: ctx.QueryParam("district"),
	}
	var err error
	if params.WindowDays, err = queryInt(ctx, "days"); err != nil {
		return c.HandleError(ctx, err, "Invalid days parameter", http.StatusBadRequest)
	}
	if params.Threshold, err = queryInt(ctx, "threshold"); err != nil {
		return c.HandleError(ctx, err, "Invalid threshold parameter", http.StatusBadRequest)
	}

	cacheKey := fmt.Sprintf("hotspots:%s:%s:%d:%d",
		params.Disease, params.District, params.WindowDays, params.Threshold)
	if cached, found := c.aggregationCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	if params.WindowDays == 0 {
		params.WindowDays = outbreak.DefaultHotspotWindowDays
	}
	if params.Threshold == 0 {
		params.Threshold = outbreak.DefaultHotspotThreshold
	}

	hotspots, err := c.Aggregator.Hotspots(ctx.Request().Context(), params)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to compute hotspots")
	}

	response := HotspotsResponse{
		Hotspots:   hotspots,
		Total:      len(hotspots),
		WindowDays: params.WindowDays,
		Threshold:  params.Threshold,
	}
	c.aggregationCache.SetDefault(cacheKey, response)
	return ctx.JSON(http.StatusOK, response)
}
