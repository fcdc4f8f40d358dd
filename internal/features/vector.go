// Package features builds the fixed-schema input vector the disease
// classifier was trained on. The vector has exactly 17 fields in a fixed
// order. The classifier artifact declares the same column list and refuses to
// load on any mismatch, so order and count never drift silently.
package features

import (
	"strings"

	"github.com/aquasentinel/aquasentinel/internal/report"
)

// Columns is the canonical feature column order: 3 categorical fields, 8
// water measurements, 6 symptom indicators.
var Columns = []string{
	"district",
	"location",
	"primary_source",
	"ph",
	"turbidity",
	"tds",
	"chlorine",
	"fluoride",
	"nitrate",
	"coliform",
	"temperature",
	"diarrhea",
	"vomiting",
	"fever",
	"abdominal_pain",
	"dehydration",
	"headache",
}

// CategoricalColumns are the string-valued columns, by canonical name.
var CategoricalColumns = []string{"district", "location", "primary_source"}

// Vector is one classifier input. Field order mirrors Columns.
type Vector struct {
	District      string  `json:"district"`
	Location      string  `json:"location"`
	PrimarySource string  `json:"primary_source"`
	Ph            float64 `json:"ph"`
	Turbidity     float64 `json:"turbidity"`
	Tds           float64 `json:"tds"`
	Chlorine      float64 `json:"chlorine"`
	Fluoride      float64 `json:"fluoride"`
	Nitrate       float64 `json:"nitrate"`
	Coliform      float64 `json:"coliform"`
	Temperature   float64 `json:"temperature"`
	Diarrhea      int     `json:"diarrhea"`
	Vomiting      int     `json:"vomiting"`
	Fever         int     `json:"fever"`
	AbdominalPain int     `json:"abdominal_pain"`
	Dehydration   int     `json:"dehydration"`
	Headache      int     `json:"headache"`
}

// Categorical returns the categorical values in canonical column order.
func (v *Vector) Categorical() []string {
	return []string{v.District, v.Location, v.PrimarySource}
}

// Numeric returns the numeric values in canonical column order, symptom
// indicators included.
func (v *Vector) Numeric() []float64 {
	return []float64{
		v.Ph, v.Turbidity, v.Tds, v.Chlorine, v.Fluoride, v.Nitrate,
		v.Coliform, v.Temperature,
		float64(v.Diarrhea), float64(v.Vomiting), float64(v.Fever),
		float64(v.AbdominalPain), float64(v.Dehydration), float64(v.Headache),
	}
}

// Value returns the vector field for a canonical column name.
func (v *Vector) Value(column string) any {
	switch column {
	case "district":
		return v.District
	case "location":
		return v.Location
	case "primary_source":
		return v.PrimarySource
	case "ph":
		return v.Ph
	case "turbidity":
		return v.Turbidity
	case "tds":
		return v.Tds
	case "chlorine":
		return v.Chlorine
	case "fluoride":
		return v.Fluoride
	case "nitrate":
		return v.Nitrate
	case "coliform":
		return v.Coliform
	case "temperature":
		return v.Temperature
	case "diarrhea":
		return v.Diarrhea
	case "vomiting":
		return v.Vomiting
	case "fever":
		return v.Fever
	case "abdominal_pain":
		return v.AbdominalPain
	case "dehydration":
		return v.Dehydration
	case "headache":
		return v.Headache
	default:
		return nil
	}
}

// Build converts a water report document and a symptom report document into
// a feature vector. Build is total: missing or malformed fields degrade to
// their defaults (empty string, 0.0, 0) and never fail the pipeline.
// District and location prefer the symptom document when both are present.
func Build(waterDoc, symptomDoc report.Document) Vector {
	vector := Vector{
		District:      firstNonEmpty(symptomDoc.String("district"), waterDoc.String("district")),
		Location:      firstNonEmpty(symptomDoc.String("location"), waterDoc.String("location")),
		PrimarySource: waterDoc.String("primary_water_source", "water_source", "primaryWaterSource"),
		Ph:            waterDoc.FloatOr(0, "ph", "pH"),
		Turbidity:     waterDoc.FloatOr(0, "turbidity"),
		Tds:           waterDoc.FloatOr(0, "tds"),
		Chlorine:      waterDoc.FloatOr(0, "chlorine"),
		Fluoride:      waterDoc.FloatOr(0, "fluoride"),
		Nitrate:       waterDoc.FloatOr(0, "nitrate"),
		Coliform:      waterDoc.FloatOr(0, "coliform"),
		Temperature:   waterDoc.FloatOr(0, "temperature"),
	}

	symptoms := NormalizeSymptoms(symptomDoc.Strings("symptoms"))
	vector.Diarrhea = indicator(symptoms, "diarrhea")
	vector.Vomiting = indicator(symptoms, "vomiting")
	vector.Fever = indicator(symptoms, "fever")
	vector.Dehydration = indicator(symptoms, "dehydration")
	vector.Headache = indicator(symptoms, "headache")
	// "stomach pain" is a field-worker synonym for abdominal pain
	if symptoms["abdominal pain"] || symptoms["stomach pain"] {
		vector.AbdominalPain = 1
	}

	return vector
}

// NormalizeSymptoms lower-cases and trims symptom tags into a presence set.
func NormalizeSymptoms(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			set[tag] = true
		}
	}
	return set
}

func indicator(set map[string]bool, tag string) int {
	if set[tag] {
		return 1
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
