// Package outbreak turns the stream of persisted predictions into ranked,
// severity-tiered geographic outbreak buckets. Buckets are recomputed per
// query over a sliding time window; nothing here is persisted.
package outbreak

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aquasentinel/aquasentinel/internal/conf"
	"github.com/aquasentinel/aquasentinel/internal/datastore"
	"github.com/aquasentinel/aquasentinel/internal/errors"
	"github.com/aquasentinel/aquasentinel/internal/geo"
	"github.com/aquasentinel/aquasentinel/internal/logging"
	"github.com/aquasentinel/aquasentinel/internal/observability"
	"github.com/aquasentinel/aquasentinel/internal/report"
)

// Provenance source tags, in priority order. A bucket from a higher-priority
// source suppresses a same-key bucket from a lower one.
const (
	SourcePredictions     = "predictions"
	SourceSymptomClusters = "symptom_clusters"
)

// Params filters and tunes one aggregation call.
type Params struct {
	Disease       string // exact match, case-insensitive
	District      string // substring match, case-insensitive
	WindowDays    int
	MinThreshold  int
	HighThreshold int
	Limit         int
}

// Normalize fills zero fields from configured defaults.
func (p *Params) Normalize(defaults *conf.OutbreakSettings) {
	if p.WindowDays == 0 {
		p.WindowDays = defaults.WindowDays
	}
	if p.MinThreshold == 0 {
		p.MinThreshold = defaults.MinThreshold
	}
	if p.HighThreshold == 0 {
		p.HighThreshold = defaults.HighThreshold
	}
	if p.Limit == 0 {
		p.Limit = defaults.Limit
	}
}

// Validate rejects malformed filter input before any query executes.
func (p *Params) Validate() error {
	switch {
	case p.WindowDays <= 0:
		return filterError("window days must be positive", p.WindowDays)
	case p.MinThreshold <= 0:
		return filterError("minimum threshold must be positive", p.MinThreshold)
	case p.HighThreshold < p.MinThreshold:
		return filterError("high threshold must not be below minimum threshold", p.HighThreshold)
	case p.Limit <= 0:
		return filterError("limit must be positive", p.Limit)
	}
	return nil
}

func filterError(message string, value any) error {
	return errors.Newf("%s", message).
		Component("outbreak").
		Category(errors.CategoryValidation).
		Context("value", value).
		Build()
}

// Bucket is one aggregated outbreak area. Unique by (district, area,
// disease) within a single aggregation call.
type Bucket struct {
	ID          string     `json:"id"`
	District    string     `json:"district"`
	Area        string     `json:"areaName"`
	Disease     string     `json:"disease"`
	Count       int        `json:"totalPredictions"`
	Earliest    time.Time  `json:"earliestPredictionDate"`
	Latest      time.Time  `json:"latestPredictionDate"`
	Coordinates *geo.Point `json:"coordinates"`
	Severity    string     `json:"severity"`
	Color       string     `json:"color"`
	Status      string     `json:"status"`
	Source      string     `json:"source"`
}

// severityTier is one row of the ordered severity table, evaluated top-down
// against a bucket's count.
type severityTier struct {
	bound    int
	severity string
	color    string
}

// severityFor resolves a count against the tier table built for the given
// thresholds. The final low/green row is unreachable in normal operation
// because sub-threshold buckets are discarded before tiering; it stays in the
// table so future threshold changes keep a defined answer.
func severityFor(count, minThreshold, highThreshold int) (severity, color string) {
	table := []severityTier{
		{bound: highThreshold, severity: "high", color: "red"},
		{bound: minThreshold, severity: "medium", color: "yellow"},
		{bound: 0, severity: "low", color: "green"},
	}
	for _, tier := range table {
		if count >= tier.bound {
			return tier.severity, tier.color
		}
	}
	return "low", "green"
}

// Aggregator computes outbreak buckets from the prediction store.
type Aggregator struct {
	store    datastore.Interface
	registry *geo.Registry
	defaults *conf.OutbreakSettings
	metrics  *observability.Metrics
	log      *slog.Logger
}

// New creates an aggregator. The metrics argument may be nil.
func New(store datastore.Interface, registry *geo.Registry, defaults *conf.OutbreakSettings, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		store:    store,
		registry: registry,
		defaults: defaults,
		metrics:  metrics,
		log:      logging.ForService("outbreak"),
	}
}

// Aggregate returns ranked outbreak buckets from both provenance sources:
// classified predictions first, then raw symptom clusters, with
// prediction-source buckets suppressing same-key symptom buckets.
func (a *Aggregator) Aggregate(ctx context.Context, params Params) ([]Bucket, error) {
	start := time.Now()
	params.Normalize(a.defaults)
	if err := params.Validate(); err != nil {
		a.countAggregation("outbreaks", "invalid")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -params.WindowDays)

	buckets, err := a.predictionBuckets(since, &params)
	if err != nil {
		a.countAggregation("outbreaks", "error")
		return nil, err
	}

	symptomBuckets, err := a.symptomClusterBuckets(since, &params)
	if err != nil {
		a.countAggregation("outbreaks", "error")
		return nil, err
	}

	// cross-source dedup: first seen wins by source priority, not by count
	seen := make(map[string]bool, len(buckets))
	for i := range buckets {
		seen[areaKey(buckets[i].District, buckets[i].Area)] = true
	}
	for i := range symptomBuckets {
		if seen[areaKey(symptomBuckets[i].District, symptomBuckets[i].Area)] {
			continue
		}
		buckets = append(buckets, symptomBuckets[i])
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Count > buckets[j].Count
	})
	if len(buckets) > params.Limit {
		buckets = buckets[:params.Limit]
	}

	a.countAggregation("outbreaks", "success")
	a.observeDuration(time.Since(start))
	a.log.Debug("aggregated outbreak buckets",
		"buckets", len(buckets),
		"window_days", params.WindowDays,
		"duration_ms", time.Since(start).Milliseconds())
	return buckets, nil
}

// predictionBuckets groups classified predictions by (district, area,
// disease).
func (a *Aggregator) predictionBuckets(since time.Time, params *Params) ([]Bucket, error) {
	predictions, err := a.store.PredictionsSince(since, params.Disease, params.District)
	if err != nil {
		return nil, err
	}

	type group struct {
		district, area, disease string
		count                   int
		earliest, latest        time.Time
	}
	groups := make(map[string]*group)
	var order []string

	for i := range predictions {
		p := &predictions[i]
		district := p.District
		area := firstNonEmpty(p.Location, district)
		disease := firstNonEmpty(p.Disease, "Unknown")

		key := strings.ToLower(district + "\x00" + area + "\x00" + disease)
		g, ok := groups[key]
		if !ok {
			g = &group{district: district, area: area, disease: disease,
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

	var buckets []Bucket
	for _, key := range order {
		g := groups[key]
		if g.count < params.MinThreshold {
			continue
		}
		severity, color := severityFor(g.count, params.MinThreshold, params.HighThreshold)
		buckets = append(buckets, Bucket{
			ID:          bucketID("pred", g.district, g.area, g.disease),
			District:    g.district,
			Area:        g.area,
			Disease:     g.disease,
			Count:       g.count,
			Earliest:    g.earliest,
			Latest:      g.latest,
			Coordinates: a.resolveCoordinates(g.district, g.area),
			Severity:    severity,
			Color:       color,
			Status:      "PREDICTED OUTBREAK",
			Source:      SourcePredictions,
		})
	}
	return buckets, nil
}

// symptomClusterBuckets groups raw, possibly not-yet-classified symptom
// reports by (district, area). A disease filter suppresses this source
// entirely since raw clusters carry only an inferred disease.
func (a *Aggregator) symptomClusterBuckets(since time.Time, params *Params) ([]Bucket, error) {
	if params.Disease != "" {
		return nil, nil
	}

	reports, err := a.store.SymptomReportsSince(since)
	if err != nil {
		return nil, err
	}

	type group struct {
		district, area string
		count          int
		earliest       time.Time
		latest         time.Time
		symptoms       []string
	}
	groups := make(map[string]*group)
	var order []string

	for i := range reports {
		r := &reports[i]
		doc := report.FromJSON(r.Raw)
		district := firstNonEmpty(doc.String("district"), r.District)
		if params.District != "" &&
			!strings.Contains(strings.ToLower(district), strings.ToLower(params.District)) {
			continue
		}
		// area fallback chain over the raw document
		area := firstNonEmpty(doc.String("location", "village", "area"), r.Location, district)

		key := strings.ToLower(district + "\x00" + area)
		g, ok := groups[key]
		if !ok {
			g = &group{district: district, area: area, earliest: r.CreatedAt, latest: r.CreatedAt}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		if r.CreatedAt.Before(g.earliest) {
			g.earliest = r.CreatedAt
		}
		if r.CreatedAt.After(g.latest) {
			g.latest = r.CreatedAt
		}
		g.symptoms = append(g.symptoms, doc.Strings("symptoms")...)
	}

	var buckets []Bucket
	for _, key := range order {
		g := groups[key]
		if g.count < params.MinThreshold {
			continue
		}
		severity, color := severityFor(g.count, params.MinThreshold, params.HighThreshold)
		disease := inferDisease(g.symptoms)
		buckets = append(buckets, Bucket{
			ID:          bucketID("symptom", g.district, g.area, ""),
			District:    g.district,
			Area:        g.area,
			Disease:     disease,
			Count:       g.count,
			Earliest:    g.earliest,
			Latest:      g.latest,
			Coordinates: a.resolveCoordinates(g.district, g.area),
			Severity:    severity,
			Color:       color,
			Status:      "SYMPTOM CLUSTER",
			Source:      SourceSymptomClusters,
		})
	}
	return buckets, nil
}

// inferDisease guesses a disease from pooled symptom keywords. Only the raw
// symptom-cluster source uses this; classified predictions carry a real
// label.
func inferDisease(symptoms []string) string {
	joined := strings.ToLower(strings.Join(symptoms, " "))
	has := func(keyword string) bool { return strings.Contains(joined, keyword) }
	switch {
	case has("diarrhea") && (has("vomiting") || has("dehydration")):
		return "Cholera"
	case has("fever") && (has("abdominal") || has("headache")):
		return "Typhoid"
	case has("diarrhea"):
		return "Diarrhea"
	default:
		return "Unknown"
	}
}

// resolveCoordinates looks up a display coordinate, district name first.
func (a *Aggregator) resolveCoordinates(district, area string) *geo.Point {
	if point, ok := a.registry.Resolve(district, area); ok {
		return &point
	}
	return nil
}

func bucketID(prefix, district, area, disease string) string {
	id := fmt.Sprintf("%s-%s-%s", prefix, district, area)
	if disease != "" {
		id += "-" + disease
	}
	return strings.ToLower(strings.ReplaceAll(id, " ", "_"))
}

func areaKey(district, area string) string {
	return strings.ToLower(district) + "\x00" + strings.ToLower(area)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (a *Aggregator) countAggregation(endpoint, status string) {
	if a.metrics != nil {
		a.metrics.AggregationsTotal.WithLabelValues(endpoint, status).Inc()
	}
}

func (a *Aggregator) observeDuration(d time.Duration) {
	if a.metrics != nil {
		a.metrics.AggregationDuration.Observe(d.Seconds())
	}
}
