package features

import (
	"testing"

	"github.com/aquasentinel/aquasentinel/internal/geo"
	"github.com/aquasentinel/aquasentinel/internal/report"
	"github.com/stretchr/testify/assert"
)

func TestExtractCenterShapes(t *testing.T) {
	tests := []struct {
		name    string
		symptom report.Document
		water   report.Document
		want    geo.Point
		found   bool
	}{
		{
			name:    "bare pair list",
			symptom: report.Document{"coords": []any{26.14, 91.73}},
			want:    geo.Point{Lat: 26.14, Lng: 91.73},
			found:   true,
		},
		{
			name:    "lat lng object under pair key",
			symptom: report.Document{"center": map[string]any{"lat": 26.14, "lng": 91.73}},
			want:    geo.Point{Lat: 26.14, Lng: 91.73},
			found:   true,
		},
		{
			name:    "discrete latitude longitude",
			water:   report.Document{"latitude": 26.75, "longitude": 94.21},
			want:    geo.Point{Lat: 26.75, Lng: 94.21},
			found:   true,
		},
		{
			name: "nested under input",
			symptom: report.Document{"input": map[string]any{
				"sym_doc": map[string]any{"lat": 25.57, "lng": 91.88},
			}},
			want:  geo.Point{Lat: 25.57, Lng: 91.88},
			found: true,
		},
		{
			name: "meta geo",
			water: report.Document{"meta": map[string]any{
				"geo": map[string]any{"lat": 27.47, "lng": 94.91},
			}},
			want:  geo.Point{Lat: 27.47, Lng: 94.91},
			found: true,
		},
		{
			name:    "string coordinates coerce",
			symptom: report.Document{"coords": []any{"26.14", "91.73"}},
			want:    geo.Point{Lat: 26.14, Lng: 91.73},
			found:   true,
		},
		{
			name:    "non numeric skipped silently",
			symptom: report.Document{"coords": []any{"north", "east"}},
			found:   false,
		},
		{
			name:  "nothing present",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractCenter(tt.symptom, tt.water)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// The first structurally valid pair in scan order wins, regardless of shape.
func TestExtractCenterScanOrder(t *testing.T) {
	objectFirst := report.Document{
		"center": map[string]any{"lat": 1.0, "lng": 2.0},
		"lat":    3.0, "lng": 4.0,
	}
	got, found := ExtractCenter(objectFirst, nil)
	assert.True(t, found)
	assert.Equal(t, geo.Point{Lat: 1.0, Lng: 2.0}, got)

	listFirst := report.Document{
		"coords": []any{3.0, 4.0},
		"meta":   map[string]any{"geo": map[string]any{"lat": 1.0, "lng": 2.0}},
	}
	got, found = ExtractCenter(listFirst, nil)
	assert.True(t, found)
	assert.Equal(t, geo.Point{Lat: 3.0, Lng: 4.0}, got)
}

// Symptom document is scanned before the water document.
func TestExtractCenterDocumentPrecedence(t *testing.T) {
	symptom := report.Document{"lat": 10.0, "lng": 20.0}
	water := report.Document{"coords": []any{30.0, 40.0}}

	got, found := ExtractCenter(symptom, water)
	assert.True(t, found)
	assert.Equal(t, geo.Point{Lat: 10.0, Lng: 20.0}, got)
}

// A non-coercible earlier candidate falls through to a later valid one.
func TestExtractCenterSkipsBadCandidate(t *testing.T) {
	symptom := report.Document{"coords": []any{"x", "y"}}
	water := report.Document{"lat": 26.14, "lng": 91.73}

	got, found := ExtractCenter(symptom, water)
	assert.True(t, found)
	assert.Equal(t, geo.Point{Lat: 26.14, Lng: 91.73}, got)
}
