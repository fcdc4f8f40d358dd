package outbreak

import (
	"context"
	"strings"
	"time"
)

// Summary is a compact rollup of outbreak activity over a window, for
// dashboard header cards.
type Summary struct {
	WindowDays          int `json:"window_days"`
	TotalPredictions    int `json:"total_predictions"`
	TotalAreasMonitored int `json:"total_areas_monitored"`
	OutbreakAreas       int `json:"outbreak_areas"`
	HighSeverityAreas   int `json:"high_severity_areas"`
}

// Summarize counts monitored areas and how many cross the outbreak
// thresholds. Areas are (district, area) pairs regardless of disease.
func (a *Aggregator) Summarize(ctx context.Context, windowDays int) (Summary, error) {
	if windowDays == 0 {
		windowDays = a.defaults.WindowDays
	}
	if windowDays <= 0 {
		return Summary{}, filterError("window days must be positive", windowDays)
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	predictions, err := a.store.PredictionsSince(since, "", "")
	if err != nil {
		a.countAggregation("summary", "error")
		return Summary{}, err
	}

	areaCounts := make(map[string]int)
	for i := range predictions {
		p := &predictions[i]
		area := firstNonEmpty(p.Location, p.District)
		areaCounts[strings.ToLower(p.District+"\x00"+area)]++
	}

	summary := Summary{
		WindowDays:          windowDays,
		TotalPredictions:    len(predictions),
		TotalAreasMonitored: len(areaCounts),
	}
	for _, count := range areaCounts {
		if count >= a.defaults.MinThreshold {
			summary.OutbreakAreas++
		}
		if count >= a.defaults.HighThreshold {
			summary.HighSeverityAreas++
		}
	}

	a.countAggregation("summary", "success")
	return summary, nil
}
