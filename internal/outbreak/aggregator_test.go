package outbreak

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupAggregator(t *testing.T) (*Aggregator, *datastore.SQLiteStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&datastore.SymptomReport{}, &datastore.WaterReport{},
		&datastore.Prediction{}, &datastore.User{}, &datastore.ReporterActivity{},
	))
	ds := &datastore.SQLiteStore{DataStore: datastore.DataStore{DB: db}}

	defaults := &conf.OutbreakSettings{WindowDays: 30, MinThreshold: 5, HighThreshold: 15, Limit: 100}
	return New(ds, geo.NewRegistry(), defaults, nil), ds
}

func seedPredictions(t *testing.T, ds *datastore.SQLiteStore, district, location, disease string, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := &datastore.Prediction{
			PatientName: fmt.Sprintf("patient-%s-%d", location, i),
			Disease:     disease,
			District:    district,
			Location:    location,
			PredictedAt: time.Now().UTC().Add(-age),
		}
		require.NoError(t, ds.SavePrediction(p))
	}
}

func seedSymptomCluster(t *testing.T, ds *datastore.SQLiteStore, district, location string, symptoms []string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		raw, err := json.Marshal(map[string]any{
			"district": district, "location": location, "symptoms": symptoms,
		})
		require.NoError(t, err)
		symptomsJSON, _ := json.Marshal(symptoms)
		r := &datastore.SymptomReport{
			ID:        fmt.Sprintf("sr-%s-%s-%d", district, location, i),
			District:  district,
			Location:  location,
			Symptoms:  symptomsJSON,
			Raw:       raw,
			CreatedAt: time.Now(),
		}
		require.NoError(t, ds.SaveSymptomReport(r))
	}
}

func TestAggregateGroupsAndRanks(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 8, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 20, time.Hour)
	seedPredictions(t, ds, "Kamrup", "Rangia", "Cholera", 3, time.Hour) // below min

	buckets, err := a.Aggregate(context.Background(), Params{})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, "Titabor", buckets[0].Area)
	assert.Equal(t, 20, buckets[0].Count)
	assert.Equal(t, "high", buckets[0].Severity)
	assert.Equal(t, "red", buckets[0].Color)
	assert.Equal(t, SourcePredictions, buckets[0].Source)

	assert.Equal(t, "Hajo", buckets[1].Area)
	assert.Equal(t, 8, buckets[1].Count)
	assert.Equal(t, "medium", buckets[1].Severity)
	assert.Equal(t, "yellow", buckets[1].Color)
}

func TestAggregateSeverityFlipsAtThresholds(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 21, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 26, time.Hour)

	buckets, err := a.Aggregate(context.Background(), Params{MinThreshold: 20, HighThreshold: 25})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	bySeverity := map[string]string{}
	for _, b := range buckets {
		bySeverity[b.Area] = b.Severity
	}
	assert.Equal(t, "medium", bySeverity["Hajo"])
	assert.Equal(t, "high", bySeverity["Titabor"])
}

func TestAggregateFilters(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 6, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 6, time.Hour)
	seedPredictions(t, ds, "Kamrup", "Old", "Cholera", 6, 40*24*time.Hour) // outside window

	buckets, err := a.Aggregate(context.Background(), Params{Disease: "CHOLERA"})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Hajo", buckets[0].Area)

	buckets, err = a.Aggregate(context.Background(), Params{District: "jor"})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Jorhat", buckets[0].District)
}

func TestAggregateResolvesCoordinatesDistrictFirst(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Shillong", "Cholera", 6, time.Hour)

	buckets, err := a.Aggregate(context.Background(), Params{})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.NotNil(t, buckets[0].Coordinates)
	// district name wins over the area name even though both are known
	assert.InDelta(t, 26.3161, buckets[0].Coordinates.Lat, 0.0001)
}

func TestAggregateSymptomClusterSource(t *testing.T) {
	a, ds := setupAggregator(t)
	seedSymptomCluster(t, ds, "Nagaon", "Raha", []string{"diarrhea", "vomiting"}, 7)

	buckets, err := a.Aggregate(context.Background(), Params{})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, SourceSymptomClusters, buckets[0].Source)
	assert.Equal(t, "Cholera", buckets[0].Disease)
	assert.Equal(t, "SYMPTOM CLUSTER", buckets[0].Status)
}

func TestAggregateDedupPredictionsWin(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 6, time.Hour)
	seedSymptomCluster(t, ds, "KAMRUP", "hajo", []string{"diarrhea"}, 9)
	seedSymptomCluster(t, ds, "Nagaon", "Raha", []string{"fever", "headache"}, 6)

	buckets, err := a.Aggregate(context.Background(), Params{})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	sources := map[string]string{}
	for _, b := range buckets {
		sources[b.District] = b.Source
	}
	// the symptom cluster for the same (district, area) is suppressed even
	// though its count is larger
	assert.Equal(t, SourcePredictions, sources["Kamrup"])
	assert.Equal(t, SourceSymptomClusters, sources["Nagaon"])
}

func TestAggregateLimit(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 10, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 8, time.Hour)
	seedPredictions(t, ds, "Nagaon", "Raha", "Dysentery", 6, time.Hour)

	buckets, err := a.Aggregate(context.Background(), Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, 10, buckets[0].Count)
	assert.Equal(t, 8, buckets[1].Count)
}

func TestAggregateRejectsBadFilters(t *testing.T) {
	a, _ := setupAggregator(t)

	cases := []Params{
		{WindowDays: -1},
		{MinThreshold: -3},
		{MinThreshold: 10, HighThreshold: 5},
		{Limit: -1},
	}
	for _, params := range cases {
		_, err := a.Aggregate(context.Background(), params)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestInferDisease(t *testing.T) {
	cases := []struct {
		symptoms []string
		want     string
	}{
		{[]string{"diarrhea", "vomiting"}, "Cholera"},
		{[]string{"diarrhea", "dehydration"}, "Cholera"},
		{[]string{"fever", "abdominal pain"}, "Typhoid"},
		{[]string{"fever", "headache"}, "Typhoid"},
		{[]string{"diarrhea"}, "Diarrhea"},
		{[]string{"rash"}, "Unknown"},
		{nil, "Unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, inferDisease(tc.symptoms), "symptoms %v", tc.symptoms)
	}
}

func TestSummarize(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 16, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 6, time.Hour)
	seedPredictions(t, ds, "Nagaon", "Raha", "Dysentery", 2, time.Hour)

	summary, err := a.Summarize(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 30, summary.WindowDays)
	assert.Equal(t, 24, summary.TotalPredictions)
	assert.Equal(t, 3, summary.TotalAreasMonitored)
	assert.Equal(t, 2, summary.OutbreakAreas)
	assert.Equal(t, 1, summary.HighSeverityAreas)
}

func TestHotspots(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 16, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 11, time.Hour)
	seedPredictions(t, ds, "Nagaon", "Raha", "Dysentery", 4, time.Hour) // below threshold

	hotspots, err := a.Hotspots(context.Background(), HotspotParams{})
	require.NoError(t, err)
	require.Len(t, hotspots, 2)

	assert.Equal(t, "Hajo", hotspots[0].Location)
	assert.Equal(t, "high", hotspots[0].Severity) // 16 >= 15
	assert.Len(t, hotspots[0].Samples, 10)

	assert.Equal(t, "Titabor", hotspots[1].Location)
	assert.Equal(t, "medium", hotspots[1].Severity)
	assert.Equal(t, 11, hotspots[1].Count)
}

func TestHotspotsWindowExcludesOldPredictions(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 12, 10*24*time.Hour)

	hotspots, err := a.Hotspots(context.Background(), HotspotParams{})
	require.NoError(t, err)
	assert.Empty(t, hotspots)
}

func TestDistricts(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 5, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 9, time.Hour)

	overviews, err := a.Districts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, overviews, 2)
	assert.Equal(t, "Jorhat", overviews[0].District)
	assert.Equal(t, 9, overviews[0].CaseCount)
	require.NotNil(t, overviews[0].Coordinates)
	assert.InDelta(t, 26.7509, overviews[0].Coordinates.Lat, 0.0001)
}

func TestStats(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 5, time.Hour)
	seedPredictions(t, ds, "Kamrup", "Rangia", "Typhoid", 3, time.Hour)

	stats, err := a.Stats(context.Background(), "Kamrup", 0)
	require.NoError(t, err)
	assert.Equal(t, "Kamrup", stats.District)
	assert.Equal(t, 8, stats.TotalCases)
	assert.Len(t, stats.Diseases, 2)

	_, err = a.Stats(context.Background(), "", 0)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestAlerts(t *testing.T) {
	a, ds := setupAggregator(t)
	seedPredictions(t, ds, "Kamrup", "Hajo", "Cholera", 16, time.Hour)
	seedPredictions(t, ds, "Jorhat", "Titabor", "Typhoid", 11, time.Hour)
	seedPredictions(t, ds, "Nagaon", "Raha", "Dysentery", 6, time.Hour)
	seedPredictions(t, ds, "Silchar", "Town", "Cholera", 3, time.Hour) // below threshold

	alerts, err := a.Alerts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	assert.Equal(t, "critical", alerts[0].Severity)
	assert.Equal(t, "16 cases of Cholera detected in Kamrup", alerts[0].Message)
	assert.Equal(t, "high", alerts[1].Severity)
	assert.Equal(t, "medium", alerts[2].Severity)
}

func TestSeverityFor(t *testing.T) {
	cases := []struct {
		count          int
		severity, color string
	}{
		{20, "high", "red"},
		{15, "high", "red"},
		{14, "medium", "yellow"},
		{5, "medium", "yellow"},
		{4, "low", "green"},
		{0, "low", "green"},
	}
	for _, tc := range cases {
		severity, color := severityFor(tc.count, 5, 15)
		assert.Equal(t, tc.severity, severity, "count %d", tc.count)
		assert.Equal(t, tc.color, color, "count %d", tc.count)
	}
}
