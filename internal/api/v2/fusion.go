package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// FuseRequest names the stored report pair to classify.
type FuseRequest struct {
	SymptomID string `json:"symptom_id"`
	WaterID   string `json:"water_id"`
}

// FuseResponse reports the persisted prediction.
type FuseResponse struct {
	PredictionID uint      `json:"prediction_id"`
	Disease      string    `json:"disease"`
	District     string    `json:"district"`
	Location     string    `json:"location"`
	Coordinates  []float64 `json:"coordinates,omitempty"`
}

func (c *Controller) initFusionRoutes() {
	fusionGroup := c.Group.Group("/fusion")
	fusionGroup.POST("", c.PostFusion)
	fusionGroup.POST("/backlog", c.PostFusionBacklog)
}

// PostFusion handles POST /api/v2/fusion.
// Fuses one stored symptom report with one stored water report and persists
// the resulting prediction.
func (c *Controller) PostFusion(ctx echo.Context) error {
	var req FuseRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if req.SymptomID == "" || req.WaterID == "" {
		return c.HandleError(ctx, nil, "symptom_id and water_id are required", http.StatusBadRequest)
	}

	symptom, err := c.DS.GetSymptomReport(req.SymptomID)
	if err != nil {
		return c.handleDomainError(ctx, err, "Symptom report lookup failed")
	}
	water, err := c.DS.GetWaterReport(req.WaterID)
	if err != nil {
		return c.handleDomainError(ctx, err, "Water report lookup failed")
	}

	result, err := c.Pipeline.Fuse(ctx.Request().Context(), &symptom, &water)
	if err != nil {
		return c.handleDomainError(ctx, err, "Fusion failed")
	}

	response := FuseResponse{
		PredictionID: result.PredictionID,
		Disease:      result.Disease,
		District:     result.Vector.District,
		Location:     result.Vector.Location,
	}
	if result.Center != nil {
		response.Coordinates = []float64{result.Center.Lat, result.Center.Lng}
	}
	return ctx.JSON(http.StatusCreated, response)
}

// PostFusionBacklog handles POST /api/v2/fusion/backlog.
// Processes unclassified symptom reports against each district's latest
// water report.
func (c *Controller) PostFusionBacklog(ctx echo.Context) error {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid limit parameter", http.StatusBadRequest)
	}

	result, err := c.Pipeline.FuseBacklog(ctx.Request().Context(), limit)
	if err != nil {
		return c.handleDomainError(ctx, err, "Backlog fusion failed")
	}
	return ctx.JSON(http.StatusOK, result)
}
