// extract.go implements coordinate extraction from loosely-structured reports.
package features

import (
	"github.com/aquasentinel/aquasentinel/internal/geo"
	"github.com/aquasentinel/aquasentinel/internal/report"
)

// pairKeys are the keys that may hold a coordinate pair directly, either as
// a [lat, lng] list or as a {lat, lng} object.
var pairKeys = []string{"center", "coords", "coordinates", "location_coords", "latlng", "lat_lng"}

// coordinateRule yields candidate coordinate values from one document.
// Candidates are collected in rule order and the first numerically coercible
// one wins; the rules form an auditable scan order rather than implicit
// control flow.
type coordinateRule struct {
	name string
	scan func(report.Document) []any
}

var coordinateRules = []coordinateRule{
	{
		name: "pair-keys",
		scan: func(doc report.Document) []any {
			var candidates []any
			for _, key := range pairKeys {
				if list := doc.List(key); len(list) >= 2 {
					candidates = append(candidates, list)
				}
				if child := doc.Child(key); child.Has("lat") && child.Has("lng") {
					candidates = append(candidates, []any{child.Get("lat"), child.Get("lng")})
				}
			}
			return candidates
		},
	},
	{
		name: "lat-lng",
		scan: func(doc report.Document) []any {
			if doc.Has("lat") && doc.Has("lng") {
				return []any{[]any{doc.Get("lat"), doc.Get("lng")}}
			}
			return nil
		},
	},
	{
		name: "latitude-longitude",
		scan: func(doc report.Document) []any {
			if doc.Has("latitude") && doc.Has("longitude") {
				return []any{[]any{doc.Get("latitude"), doc.Get("longitude")}}
			}
			return nil
		},
	},
	{
		name: "input-nested",
		scan: func(doc report.Document) []any {
			input := doc.Child("input")
			if input == nil {
				return nil
			}
			var candidates []any
			for _, sub := range []string{"sym_doc", "water_doc"} {
				nested := input.Child(sub)
				if nested == nil {
					continue
				}
				if nested.Has("lat") && nested.Has("lng") {
					candidates = append(candidates, []any{nested.Get("lat"), nested.Get("lng")})
				}
				if list := nested.List("location_coords"); list != nil {
					candidates = append(candidates, list)
				}
			}
			return candidates
		},
	},
	{
		name: "meta-geo",
		scan: func(doc report.Document) []any {
			g := doc.Child("meta").Child("geo")
			if g.Has("lat") && g.Has("lng") {
				return []any{[]any{g.Get("lat"), g.Get("lng")}}
			}
			return nil
		},
	},
	{
		name: "meta-lat-lng",
		scan: func(doc report.Document) []any {
			meta := doc.Child("meta")
			if meta.Has("lat") && meta.Has("lng") {
				return []any{[]any{meta.Get("lat"), meta.Get("lng")}}
			}
			return nil
		},
	},
}

// ExtractCenter scans both documents, symptom first, for a coordinate pair.
// It returns the first structurally valid, numerically coercible pair under
// the fixed rule order; candidates that fail numeric coercion are skipped
// silently. Candidates are never merged or averaged.
func ExtractCenter(symptomDoc, waterDoc report.Document) (geo.Point, bool) {
	var candidates []any
	for _, doc := range []report.Document{symptomDoc, waterDoc} {
		if doc == nil {
			continue
		}
		for _, rule := range coordinateRules {
			candidates = append(candidates, rule.scan(doc)...)
		}
	}

	for _, candidate := range candidates {
		if point, ok := coercePair(candidate); ok {
			return point, true
		}
	}
	return geo.Point{}, false
}

// coercePair converts a candidate value to a coordinate point. Only the
// first two elements of longer lists are considered.
func coercePair(candidate any) (geo.Point, bool) {
	list, ok := candidate.([]any)
	if !ok || len(list) < 2 {
		return geo.Point{}, false
	}
	pair := report.Document{"lat": list[0], "lng": list[1]}
	lat, latOK := pair.Float("lat")
	lng, lngOK := pair.Float("lng")
	if !latOK || !lngOK {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lng: lng}, true
}
