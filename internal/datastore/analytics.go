// internal/datastore/analytics.go
package datastore

import (
	"fmt"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/errors"
)

// DistrictCaseCount summarizes one district's prediction volume.
type DistrictCaseCount struct {
	District   string    `json:"district"`
	Count      int       `json:"count"`
	LatestCase time.Time `json:"latest_case"`
}

// DiseaseCount is one disease's share of a district's predictions.
type DiseaseCount struct {
	Disease string `json:"disease"`
	Count   int    `json:"count"`
}

// DailyCaseCount represents prediction counts by day.
type DailyCaseCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// WaterAverages holds mean water measurements over recent reports.
type WaterAverages struct {
	SampleSize   int     `json:"sample_size"`
	AvgPh        float64 `json:"avg_ph"`
	AvgTurbidity float64 `json:"avg_turbidity"`
}

// GetDateFormat returns the dialect expression that buckets a timestamp
// column into a calendar date for GROUP BY.
func (ds *DataStore) GetDateFormat(column string) string {
	switch ds.DB.Dialector.Name() {
	case "sqlite":
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
	case "mysql":
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m-%%d')", column)
	default:
		return ""
	}
}

// DistrictCaseCounts lists distinct districts with total predictions and the
// latest classification time, largest first.
func (ds *DataStore) DistrictCaseCounts(since time.Time) ([]DistrictCaseCount, error) {
	var counts []DistrictCaseCount
	err := ds.DB.Table("predictions").
		Select("district, COUNT(*) as count, MAX(predicted_at) as latest_case").
		Where("predicted_at >= ? AND district <> ''", since).
		Group("district").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, aggregationError(err, "district_case_counts")
	}
	return counts, nil
}

// DiseaseBreakdown returns per-disease prediction counts for one district.
func (ds *DataStore) DiseaseBreakdown(district string, since time.Time) ([]DiseaseCount, error) {
	var breakdown []DiseaseCount
	err := ds.DB.Table("predictions").
		Select("disease, COUNT(*) as count").
		Where("LOWER(district) = LOWER(?) AND predicted_at >= ?", district, since).
		Group("disease").
		Order("count DESC").
		Scan(&breakdown).Error
	if err != nil {
		return nil, aggregationError(err, "disease_breakdown")
	}
	return breakdown, nil
}

// DailyCaseTrend returns per-day prediction counts for one district, oldest
// day first, for trend charting.
func (ds *DataStore) DailyCaseTrend(district string, since time.Time) ([]DailyCaseCount, error) {
	dateFormat := ds.GetDateFormat("predicted_at")
	if dateFormat == "" {
		return nil, errors.Newf("unsupported database dialect: %s", ds.DB.Dialector.Name()).
			Component("datastore").
			Category(errors.CategoryAggregation).
			Build()
	}

	var trend []DailyCaseCount
	err := ds.DB.Table("predictions").
		Select(dateFormat+" as date, COUNT(*) as count").
		Where("LOWER(district) = LOWER(?) AND predicted_at >= ?", district, since).
		Group(dateFormat).
		Order("date ASC").
		Scan(&trend).Error
	if err != nil {
		return nil, aggregationError(err, "daily_case_trend")
	}
	return trend, nil
}

// RecentWaterAverages computes mean pH and turbidity over the latest
// sampleSize water reports for a district.
func (ds *DataStore) RecentWaterAverages(district string, sampleSize int) (WaterAverages, error) {
	if sampleSize <= 0 {
		sampleSize = 10
	}

	var averages WaterAverages
	subQuery := ds.DB.Table("water_reports").
		Select("ph, turbidity").
		Where("LOWER(district) = LOWER(?)", district).
		Order("created_at DESC").
		Limit(sampleSize)

	err := ds.DB.Table("(?) as recent", subQuery).
		Select("COUNT(*) as sample_size, COALESCE(AVG(ph), 0) as avg_ph, COALESCE(AVG(turbidity), 0) as avg_turbidity").
		Scan(&averages).Error
	if err != nil {
		return WaterAverages{}, aggregationError(err, "recent_water_averages")
	}
	return averages, nil
}

// aggregationError wraps analytics query failures so callers can surface
// them as retryable aggregation errors rather than generic database ones.
func aggregationError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryAggregation).
		Priority(errors.PriorityMedium).
		Context("operation", operation).
		Build()
}
