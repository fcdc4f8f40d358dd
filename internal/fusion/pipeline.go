// Package fusion orchestrates the fuse-classify-store transaction: one
// symptom report and one water report in, one persisted prediction out.
package fusion

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/classifier"
	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/features"
	"github.com/aquasentinel/aquasentinel/internal/geo"
	"github.com/aquasentinel/aquasentinel/internal/identity"
	"github.com/aquasentinel/aquasentinel/internal/logging"
	"github.com/aquasentinel/aquasentinel/internal/observability"
	"github.com/aquasentinel/aquasentinel/internal/report"
)

// Pipeline fuses report pairs. Construction requires a ready classifier
// pool; a process that could not load the model never gets a pipeline.
type Pipeline struct {
	store    datastore.Interface
	pool     *classifier.Pool
	resolver *identity.Resolver
	metrics  *observability.Metrics
	log      *slog.Logger

	// tracks in-flight best-effort attribution tasks
	attribution sync.WaitGroup
}

// Result is the outcome of one successful fusion.
type Result struct {
	PredictionID uint
	Disease      string
	Vector       features.Vector
	Center       *geo.Point
}

// New creates a fusion pipeline. The metrics argument may be nil.
func New(store datastore.Interface, pool *classifier.Pool, resolver *identity.Resolver, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		store:    store,
		pool:     pool,
		resolver: resolver,
		metrics:  metrics,
		log:      logging.ForService("fusion"),
	}
}

// Fuse runs one complete fusion. Classification failure aborts the whole
// operation with nothing persisted; reporter attribution after the commit is
// best-effort and never fails the fusion.
func (p *Pipeline) Fuse(ctx context.Context, symptom *datastore.SymptomReport, water *datastore.WaterReport) (*Result, error) {
	start := time.Now()

	symptomDoc := symptomDocument(symptom)
	waterDoc := waterDocument(water)

	// feature vector and classification; no writes happen before this
	// succeeds, so a failed or timed-out classification leaves no partial
	// prediction behind
	vector := features.Build(waterDoc, symptomDoc)
	classifyStart := time.Now()
	prediction, err := p.pool.Classify(ctx, &vector)
	p.observeClassificationDuration(time.Since(classifyStart))
	if err != nil {
		p.countFusion("classification_failed")
		p.countClassification("error")
		return nil, errors.New(err).
			Component("fusion").
			Category(errors.CategoryClassification).
			Priority(errors.PriorityHigh).
			ReportContext(symptomID(symptom), waterID(water)).
			Build()
	}
	p.countClassification("success")

	// display coordinate, best-effort
	var centerLat, centerLng *float64
	var center *geo.Point
	if point, found := features.ExtractCenter(symptomDoc, waterDoc); found {
		center = &point
		centerLat, centerLng = &point.Lat, &point.Lng
	}

	record := p.assembleRecord(symptom, water, symptomDoc, waterDoc, &prediction, centerLat, centerLng)
	if err := p.store.SavePrediction(record); err != nil {
		p.countFusion("store_failed")
		return nil, errors.New(err).
			Component("fusion").
			Category(errors.CategoryFusion).
			Priority(errors.PriorityHigh).
			ReportContext(symptomID(symptom), waterID(water)).
			Build()
	}

	if symptom != nil && symptom.ID != "" {
		if err := p.store.MarkSymptomProcessed(symptom.ID, time.Now()); err != nil {
			// the prediction is committed; a stale processed flag only means
			// the report may be fused again
			p.log.Warn("failed to mark symptom report processed",
				"symptom_id", symptom.ID, "error", err)
		}
	}

	// reporter attribution runs after the commit, fully isolated from the
	// fusion outcome
	p.queueAttribution(symptomDoc, datastore.SymptomSubmission, symptomID(symptom))
	p.queueAttribution(waterDoc, datastore.WaterSubmission, waterID(water))

	p.countFusion("success")
	p.observeFusionDuration(time.Since(start))

	return &Result{
		PredictionID: record.ID,
		Disease:      prediction.Label,
		Vector:       prediction.Features,
		Center:       center,
	}, nil
}

// Drain waits for queued attribution tasks to finish. Called on shutdown and
// by callers that need attribution visible before reading counters.
func (p *Pipeline) Drain() {
	p.attribution.Wait()
}

// assembleRecord builds the persisted prediction document.
func (p *Pipeline) assembleRecord(symptom *datastore.SymptomReport, water *datastore.WaterReport,
	symptomDoc, waterDoc report.Document, prediction *classifier.Prediction,
	centerLat, centerLng *float64) *datastore.Prediction {

	vector := &prediction.Features

	// the water input sub-document mirrors what the classifier consumed,
	// with defaults already applied
	waterInput := map[string]any{
		"location":             firstNonEmpty(symptomDoc.String("location"), waterDoc.String("location")),
		"district":             waterDoc.String("district"),
		"ph":                   vector.Ph,
		"turbidity":            vector.Turbidity,
		"tds":                  vector.Tds,
		"chlorine":             vector.Chlorine,
		"fluoride":             vector.Fluoride,
		"nitrate":              vector.Nitrate,
		"coliform":             vector.Coliform,
		"temperature":          vector.Temperature,
		"primary_water_source": vector.PrimarySource,
	}

	record := &datastore.Prediction{
		Disease:     prediction.Label,
		PredictedAt: time.Now().UTC(),
		District:    vector.District,
		Location:    vector.Location,
		CenterLat:   centerLat,
		CenterLng:   centerLng,
		SymptomID:   symptomID(symptom),
		WaterID:     waterID(water),
	}
	if symptom != nil {
		record.PatientName = symptom.PatientName
		record.Symptoms = symptom.Symptoms
	}
	record.InputWater = mustJSON(waterInput)
	record.FeatureVector = mustJSON(vector)
	return record
}

// queueAttribution resolves the reporter behind a document and records the
// submission. Failures are logged and swallowed; by the time this runs the
// prediction is already committed and stays committed.
func (p *Pipeline) queueAttribution(doc report.Document, kind datastore.SubmissionKind, reportID string) {
	if reportID == "" {
		return
	}

	user, ok := p.resolver.Resolve(doc)
	if !ok {
		p.countActivity(kind, "unresolved")
		return
	}

	p.attribution.Add(1)
	go func() {
		defer p.attribution.Done()
		if err := p.store.RecordSubmission(&user, kind, reportID, time.Now().UTC()); err != nil {
			p.countActivity(kind, "error")
			p.log.Warn("failed to record reporter activity",
				"user_id", user.ID, "kind", kind.String(), "report_id", reportID, "error", err)
			return
		}
		p.countActivity(kind, "recorded")
	}()
}

// symptomDocument reconstructs the loosely-structured document for a symptom
// report, folding promoted columns back in when the raw payload omits them.
func symptomDocument(record *datastore.SymptomReport) report.Document {
	if record == nil {
		return report.Document{}
	}
	doc := report.FromJSON(record.Raw)
	setIfAbsent(doc, "district", record.District)
	setIfAbsent(doc, "location", record.Location)
	setIfAbsent(doc, "patientName", record.PatientName)
	if !doc.Has("symptoms") && len(record.Symptoms) > 0 {
		var tags []any
		if err := json.Unmarshal(record.Symptoms, &tags); err == nil {
			doc["symptoms"] = tags
		}
	}
	return doc
}

// waterDocument does the same for a water report.
func waterDocument(record *datastore.WaterReport) report.Document {
	if record == nil {
		return report.Document{}
	}
	doc := report.FromJSON(record.Raw)
	setIfAbsent(doc, "district", record.District)
	setIfAbsent(doc, "location", record.Location)
	setIfAbsent(doc, "primary_water_source", record.Source)
	for key, value := range map[string]float64{
		"ph": record.Ph, "turbidity": record.Turbidity, "tds": record.Tds,
		"chlorine": record.Chlorine, "fluoride": record.Fluoride,
		"nitrate": record.Nitrate, "coliform": record.Coliform,
		"temperature": record.Temperature,
	} {
		if !doc.Has(key) && value != 0 {
			doc[key] = value
		}
	}
	return doc
}

func setIfAbsent(doc report.Document, key, value string) {
	if value != "" && doc.String(key) == "" {
		doc[key] = value
	}
}

func symptomID(record *datastore.SymptomReport) string {
	if record == nil {
		return ""
	}
	return record.ID
}

func waterID(record *datastore.WaterReport) string {
	if record == nil {
		return ""
	}
	return record.ID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func (p *Pipeline) countFusion(status string) {
	if p.metrics != nil {
		p.metrics.FusionsTotal.WithLabelValues(status).Inc()
	}
}

func (p *Pipeline) countClassification(status string) {
	if p.metrics != nil {
		p.metrics.ClassificationsTotal.WithLabelValues(status).Inc()
	}
}

func (p *Pipeline) countActivity(kind datastore.SubmissionKind, status string) {
	if p.metrics != nil {
		p.metrics.ActivityRecordsTotal.WithLabelValues(kind.String(), status).Inc()
	}
}

func (p *Pipeline) observeFusionDuration(d time.Duration) {
	if p.metrics != nil {
		p.metrics.FusionDuration.Observe(d.Seconds())
	}
}

func (p *Pipeline) observeClassificationDuration(d time.Duration) {
	if p.metrics != nil {
		p.metrics.ClassificationDuration.Observe(d.Seconds())
	}
}
