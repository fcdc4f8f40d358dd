package outbreak

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/geo"
)

// District alert defaults. Alerts look at the last week only.
const (
	DefaultAlertWindowDays = 7
	DefaultAlertThreshold  = 5
	alertHighThreshold     = 10
	alertCriticalThreshold = 15
	defaultStatsWindowDays = 30
	defaultWaterSampleSize = 20
)

// DistrictOverview is one row of the district list, ordered by case count.
type DistrictOverview struct {
	District    string     `json:"district"`
	CaseCount   int        `json:"case_count"`
	LatestCase  time.Time  `json:"latest_case"`
	Coordinates *geo.Point `json:"coordinates"`
}

// DistrictStats bundles the per-district analytics for one district page.
type DistrictStats struct {
	District      string                     `json:"district"`
	WindowDays    int                        `json:"window_days"`
	TotalCases    int                        `json:"total_cases"`
	Diseases      []datastore.DiseaseCount   `json:"diseases"`
	DailyTrend    []datastore.DailyCaseCount `json:"daily_trend"`
	WaterAverages datastore.WaterAverages    `json:"water_averages"`
}

// Alert is a district-level warning raised when one disease crosses the
// alert threshold inside the alert window.
type Alert struct {
	District  string    `json:"district"`
	Disease   string    `json:"disease"`
	Count     int       `json:"count"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Earliest  time.Time `json:"earliest_case"`
	Latest    time.Time `json:"latest_case"`
}

// Districts lists every district with recent predictions, busiest first.
func (a *Aggregator) Districts(ctx context.Context, windowDays int) ([]DistrictOverview, error) {
	if windowDays == 0 {
		windowDays = defaultStatsWindowDays
	}
	if windowDays <= 0 {
		return nil, filterError("window days must be positive", windowDays)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	counts, err := a.store.DistrictCaseCounts(since)
	if err != nil {
		a.countAggregation("districts", "error")
		return nil, err
	}

	overviews := make([]DistrictOverview, 0, len(counts))
	for _, c := range counts {
		overview := DistrictOverview{
			District:   c.District,
			CaseCount:  c.Count,
			LatestCase: c.LatestCase,
		}
		if point, ok := a.registry.Lookup(c.District); ok {
			overview.Coordinates = &point
		}
		overviews = append(overviews, overview)
	}

	a.countAggregation("districts", "success")
	return overviews, nil
}

// Stats returns the analytics bundle for one district.
func (a *Aggregator) Stats(ctx context.Context, district string, windowDays int) (DistrictStats, error) {
	if district == "" {
		return DistrictStats{}, filterError("district is required", district)
	}
	if windowDays == 0 {
		windowDays = defaultStatsWindowDays
	}
	if windowDays <= 0 {
		return DistrictStats{}, filterError("window days must be positive", windowDays)
	}
	if err := ctx.Err(); err != nil {
		return DistrictStats{}, err
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	diseases, err := a.store.DiseaseBreakdown(district, since)
	if err != nil {
		a.countAggregation("district_stats", "error")
		return DistrictStats{}, err
	}
	trend, err := a.store.DailyCaseTrend(district, since)
	if err != nil {
		a.countAggregation("district_stats", "error")
		return DistrictStats{}, err
	}
	water, err := a.store.RecentWaterAverages(district, defaultWaterSampleSize)
	if err != nil {
		a.countAggregation("district_stats", "error")
		return DistrictStats{}, err
	}

	stats := DistrictStats{
		District:      district,
		WindowDays:    windowDays,
		Diseases:      diseases,
		DailyTrend:    trend,
		WaterAverages: water,
	}
	for _, d := range diseases {
		stats.TotalCases += d.Count
	}

	a.countAggregation("district_stats", "success")
	return stats, nil
}

// Alerts scans the alert window for (district, disease) pairs above the
// threshold and tiers them medium, high, or critical.
func (a *Aggregator) Alerts(ctx context.Context, threshold int) ([]Alert, error) {
	if threshold == 0 {
		threshold = DefaultAlertThreshold
	}
	if threshold <= 0 {
		return nil, filterError("threshold must be positive", threshold)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -DefaultAlertWindowDays)
	predictions, err := a.store.PredictionsSince(since, "", "")
	if err != nil {
		a.countAggregation("alerts", "error")
		return nil, err
	}

	type group struct {
		district, disease string
		count             int
		earliest, latest  time.Time
	}
	groups := make(map[string]*group)
	var order []string
	for i := range predictions {
		p := &predictions[i]
		district := firstNonEmpty(p.District, "Unknown")
		disease := firstNonEmpty(p.Disease, "Unknown")

		key := strings.ToLower(district + "\x00" + disease)
		g, ok := groups[key]
		if !ok {
			g = &group{district: district, disease: disease,
				earliest: p.PredictedAt, latest: p.PredictedAt}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		if p.PredictedAt.Before(g.earliest) {
			g.earliest = p.PredictedAt
		}
		if p.PredictedAt.After(g.latest) {
			g.latest = p.PredictedAt
		}
	}

	var alerts []Alert
	for _, key := range order {
		g := groups[key]
		if g.count < threshold {
			continue
		}
		alerts = append(alerts, Alert{
			District: g.district,
			Disease:  g.disease,
			Count:    g.count,
			Severity: alertSeverity(g.count),
			Message:  fmt.Sprintf("%d cases of %s detected in %s", g.count, g.disease, g.district),
			Earliest: g.earliest,
			Latest:   g.latest,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Count > alerts[j].Count
	})

	a.countAggregation("alerts", "success")
	return alerts, nil
}

func alertSeverity(count int) string {
	switch {
	case count >= alertCriticalThreshold:
		return "critical"
	case count >= alertHighThreshold:
		return "high"
	default:
		return "medium"
	}
}
