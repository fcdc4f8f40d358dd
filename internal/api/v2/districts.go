package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initDistrictRoutes() {
	districtGroup := c.Group.Group("/districts")
	districtGroup.GET("", c.GetDistricts)
	districtGroup.GET("/stats", c.GetDistrictStats)
	districtGroup.GET("/alerts", c.GetDistrictAlerts)
}

// GetDistricts handles GET /api/v2/districts.
// Lists districts with recent prediction activity, busiest first.
func (c *Controller) GetDistricts(ctx echo.Context) error {
	days, err := queryInt(ctx, "days")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid days parameter", http.StatusBadRequest)
	}

	cacheKey := fmt.Sprintf("districts:%d", days)
	if cached, found := c.aggregationCache.Get(cacheKey); found {
		return ctx.JSON(http.StatusOK, cached)
	}

	overviews, err := c.Aggregator.Districts(ctx.Request().Context(), days)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list districts")
	}

	response := map[string]any{
		"districts": overviews,
		"total":     len(overviews),
	}
	c.aggregationCache.SetDefault(cacheKey, response)
	return ctx.JSON(http.StatusOK, response)
}

// GetDistrictStats handles GET /api/v2/districts/stats.
// Returns the analytics bundle for one district.
func (c *Controller) GetDistrictStats(ctx echo.Context) error {
	district := ctx.QueryParam("district")
	days, err := queryInt(ctx, "days")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid days parameter", http.StatusBadRequest)
	}

	stats, err := c.Aggregator.Stats(ctx.Request().Context(), district, days)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to compute district stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

// GetDistrictAlerts handles GET /api/v2/districts/alerts.
func (c *Controller) GetDistrictAlerts(ctx echo.Context) error {
	threshold, err := queryInt(ctx, "threshold")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid threshold parameter", http.StatusBadRequest)
	}

	alerts, err := c.Aggregator.Alerts(ctx.Request().Context(), threshold)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to compute district alerts")
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  len(alerts),
	})
}
