package outbreak

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Hotspot defaults. Hotspots use a shorter window and a higher bar than the
// outbreak map so they surface only currently burning locations.
const (
	DefaultHotspotWindowDays = 7
	DefaultHotspotThreshold  = 10
	maxHotspotSamples        = 10
)

// HotspotParams filters one hotspot query.
type HotspotParams struct {
	Disease    string // exact match, case-insensitive
	District   string // substring match, case-insensitive
	WindowDays int
	Threshold  int
}

func (p *HotspotParams) normalize() {
	if p.WindowDays == 0 {
		p.WindowDays = DefaultHotspotWindowDays
	}
	if p.Threshold == 0 {
		p.Threshold = DefaultHotspotThreshold
	}
}

func (p *HotspotParams) validate() error {
	if p.WindowDays <= 0 {
		return filterError("window days must be positive", p.WindowDays)
	}
	if p.Threshold <= 0 {
		return filterError("threshold must be positive", p.Threshold)
	}
	return nil
}

// HotspotSample is one representative prediction inside a hotspot.
type HotspotSample struct {
	PredictionID uint      `json:"prediction_id"`
	PatientName  string    `json:"patient_name"`
	PredictedAt  time.Time `json:"predicted_at"`
}

// Hotspot is a (location, disease) pair whose recent case count crossed the
// hotspot threshold.
type Hotspot struct {
	Location string          `json:"location"`
	District string          `json:"district"`
	Disease  string          `json:"disease"`
	Count    int             `json:"count"`
	Severity string          `json:"severity"`
	Samples  []HotspotSample `json:"samples"`
}

// Hotspots returns locations with acute recent prediction activity, highest
// count first. Severity escalates to high at one and a half times the
// threshold.
func (a *Aggregator) Hotspots(ctx context.Context, params HotspotParams) ([]Hotspot, error) {
	params.normalize()
	if err := params.validate(); err != nil {
		a.countAggregation("hotspots", "invalid")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -params.WindowDays)
	predictions, err := a.store.PredictionsSince(since, params.Disease, params.District)
	if err != nil {
		a.countAggregation("hotspots", "error")
		return nil, err
	}

	groups := make(map[string]*Hotspot)
	var order []string
	for i := range predictions {
		p := &predictions[i]
		location := firstNonEmpty(p.Location, p.District)
		disease := firstNonEmpty(p.Disease, "Unknown")

		key := strings.ToLower(location + "\x00" + disease)
		h, ok := groups[key]
		if !ok {
			h = &Hotspot{Location: location, District: p.District, Disease: disease}
			groups[key] = h
			order = append(order, key)
		}
		h.Count++
		if len(h.Samples) < maxHotspotSamples {
			h.Samples = append(h.Samples, HotspotSample{
				PredictionID: p.ID,
				PatientName:  p.PatientName,
				PredictedAt:  p.PredictedAt,
			})
		}
	}

	var hotspots []Hotspot
	highBar := params.Threshold + params.Threshold/2
	for _, key := range order {
		h := groups[key]
		if h.Count < params.Threshold {
			continue
		}
		if h.Count >= highBar {
			h.Severity = "high"
		} else {
			h.Severity = "medium"
		}
		hotspots = append(hotspots, *h)
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].Count > hotspots[j].Count
	})

	a.countAggregation("hotspots", "success")
	return hotspots, nil
}
