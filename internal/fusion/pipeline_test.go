package fusion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/classifier"
	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/features"
	"github.com/aquasentinel/aquasentinel/internal/identity"
	"github.com/aquasentinel/aquasentinel/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupPipeline(t *testing.T) (*Pipeline, *datastore.SQLiteStore) {
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

	c, err := classifier.New(&conf.Settings{})
	require.NoError(t, err)
	pool := classifier.NewPool(c, 2, 5*time.Second)

	return New(ds, pool, identity.NewResolver(ds), nil), ds
}

func symptomReport(id, district string, symptoms []string, raw map[string]any) *datastore.SymptomReport {
	if raw == nil {
		raw = map[string]any{}
	}
	raw["district"] = district
	raw["symptoms"] = symptoms
	rawJSON, _ := json.Marshal(raw)
	symptomsJSON, _ := json.Marshal(symptoms)
	return &datastore.SymptomReport{
		ID:        id,
		District:  district,
		Symptoms:  symptomsJSON,
		Raw:       rawJSON,
		CreatedAt: time.Now(),
	}
}

func waterReport(id, district string, ph, turbidity float64) *datastore.WaterReport {
	raw, _ := json.Marshal(map[string]any{
		"district": district, "ph": ph, "turbidity": turbidity,
	})
	return &datastore.WaterReport{
		ID:        id,
		District:  district,
		Ph:        ph,
		Turbidity: turbidity,
		Raw:       raw,
		CreatedAt: time.Now(),
	}
}

func TestFuseEndToEnd(t *testing.T) {
	p, ds := setupPipeline(t)

	symptom := symptomReport("sr-1", "Kamrup", []string{"diarrhea", "vomiting"}, nil)
	require.NoError(t, ds.SaveSymptomReport(symptom))
	water := waterReport("wr-1", "Kamrup", 6.2, 8.1)
	require.NoError(t, ds.SaveWaterReport(water))

	result, err := p.Fuse(context.Background(), symptom, water)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Disease)
	assert.Equal(t, 1, result.Vector.Diarrhea)
	assert.Equal(t, 1, result.Vector.Vomiting)
	assert.Equal(t, 0, result.Vector.Fever)
	assert.Equal(t, 6.2, result.Vector.Ph)

	record, err := ds.GetPrediction(result.PredictionID)
	require.NoError(t, err)
	assert.Equal(t, result.Disease, record.Disease)
	assert.Equal(t, "Kamrup", record.District)
	assert.Equal(t, "sr-1", record.SymptomID)
	assert.Equal(t, "wr-1", record.WaterID)

	var inputWater map[string]any
	require.NoError(t, json.Unmarshal(record.InputWater, &inputWater))
	assert.Equal(t, "Kamrup", inputWater["district"])
	assert.Equal(t, 6.2, inputWater["ph"])

	var vector features.Vector
	require.NoError(t, json.Unmarshal(record.FeatureVector, &vector))
	assert.Equal(t, result.Vector, vector)

	processed, err := ds.GetSymptomReport("sr-1")
	require.NoError(t, err)
	assert.True(t, processed.Processed)
}

func TestFuseClassificationFailureWritesNothing(t *testing.T) {
	p, ds := setupPipeline(t)

	symptom := symptomReport("sr-1", "Kamrup", []string{"fever"}, nil)
	require.NoError(t, ds.SaveSymptomReport(symptom))
	water := waterReport("wr-1", "Kamrup", 7.0, 2.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fuse(ctx, symptom, water)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryClassification))

	count, err := ds.PredictionCountForPair("sr-1", "wr-1")
	require.NoError(t, err)
	assert.Zero(t, count, "no partial prediction after a failed classification")

	unprocessed, err := ds.GetSymptomReport("sr-1")
	require.NoError(t, err)
	assert.False(t, unprocessed.Processed)
}

func TestFuseExtractsCenter(t *testing.T) {
	p, ds := setupPipeline(t)

	symptom := symptomReport("sr-1", "Kamrup", []string{"diarrhea"},
		map[string]any{"coords": []any{26.14, 91.73}})
	require.NoError(t, ds.SaveSymptomReport(symptom))

	result, err := p.Fuse(context.Background(), symptom, waterReport("wr-1", "Kamrup", 6.8, 3.0))
	require.NoError(t, err)
	require.NotNil(t, result.Center)
	assert.Equal(t, 26.14, result.Center.Lat)

	record, err := ds.GetPrediction(result.PredictionID)
	require.NoError(t, err)
	require.NotNil(t, record.CenterLat)
	assert.Equal(t, 91.73, *record.CenterLng)
}

func TestFuseAttributesReporter(t *testing.T) {
	p, ds := setupPipeline(t)

	user := datastore.User{
		ID: "64f1c2d3e4a5b6c7d8e9f0a1", FullName: "Rina Das",
		Email: "rina@example.org", Phone: "9876543210",
	}
	require.NoError(t, ds.SaveUser(&user))

	symptom := symptomReport("sr-1", "Kamrup", []string{"diarrhea"},
		map[string]any{"submitted_by": "rina@example.org"})
	require.NoError(t, ds.SaveSymptomReport(symptom))

	_, err := p.Fuse(context.Background(), symptom, waterReport("wr-1", "Kamrup", 6.8, 3.0))
	require.NoError(t, err)
	p.Drain()

	activity, err := ds.GetReporterActivity(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, activity.SymptomReportCount)
	assert.Equal(t, 0, activity.WaterReportCount)
}

func TestFuseUnresolvedReporterIsNotFatal(t *testing.T) {
	p, ds := setupPipeline(t)

	symptom := symptomReport("sr-1", "Kamrup", []string{"diarrhea"},
		map[string]any{"submitted_by": "Unknown Person"})
	require.NoError(t, ds.SaveSymptomReport(symptom))

	result, err := p.Fuse(context.Background(), symptom, waterReport("wr-1", "Kamrup", 6.8, 3.0))
	require.NoError(t, err)
	p.Drain()
	assert.NotZero(t, result.PredictionID, "fusion succeeds without attribution")
}

func TestFuseConcurrentSameReporter(t *testing.T) {
	p, ds := setupPipeline(t)

	user := datastore.User{ID: "64f1c2d3e4a5b6c7d8e9f0a1", FullName: "Rina Das", Email: "rina@example.org"}
	require.NoError(t, ds.SaveUser(&user))

	const n = 10
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		symptom := symptomReport(fmt.Sprintf("sr-%d", i), "Kamrup", []string{"diarrhea"},
			map[string]any{"submitted_by": user.ID})
		require.NoError(t, ds.SaveSymptomReport(symptom))
		go func(s *datastore.SymptomReport) {
			_, err := p.Fuse(context.Background(), s, waterReport("wr-for-"+s.ID, "Kamrup", 6.8, 3.0))
			done <- err
		}(symptom)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-done)
	}
	p.Drain()

	activity, err := ds.GetReporterActivity(user.ID)
	require.NoError(t, err)
	assert.Equal(t, n, activity.SymptomReportCount, "no lost counter updates")
}

func TestFuseBacklog(t *testing.T) {
	p, ds := setupPipeline(t)

	require.NoError(t, ds.SaveSymptomReport(symptomReport("sr-1", "Kamrup", []string{"diarrhea"}, nil)))
	require.NoError(t, ds.SaveSymptomReport(symptomReport("sr-2", "Nagaon", []string{"fever"}, nil)))
	require.NoError(t, ds.SaveWaterReport(waterReport("wr-1", "Kamrup", 6.2, 8.1)))

	result, err := p.FuseBacklog(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Fused)
	assert.Equal(t, 1, result.Skipped, "district without a water report stays pending")
	assert.Equal(t, 0, result.Failed)

	pending, err := ds.UnprocessedSymptomReports(0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "sr-2", pending[0].ID)
}

func TestFuseObservesMetrics(t *testing.T) {
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

	c, err := classifier.New(&conf.Settings{})
	require.NoError(t, err)
	pool := classifier.NewPool(c, 2, 5*time.Second)

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)
	p := New(ds, pool, identity.NewResolver(ds), metrics)

	symptom := symptomReport("sr-1", "Kamrup", []string{"diarrhea"}, nil)
	require.NoError(t, ds.SaveSymptomReport(symptom))
	water := waterReport("wr-1", "Kamrup", 6.2, 8.1)
	require.NoError(t, ds.SaveWaterReport(water))

	_, err = p.Fuse(context.Background(), symptom, water)
	require.NoError(t, err)
	p.Drain()

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `aquasentinel_fusions_total{status="success"} 1`)
	assert.Contains(t, body, `aquasentinel_classifications_total{status="success"} 1`)
	assert.Contains(t, body, "aquasentinel_classification_duration_seconds_count 1")
	assert.Contains(t, body, "aquasentinel_fusion_duration_seconds_count 1")
}
