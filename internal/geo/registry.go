// Package geo provides a static registry of known place names and their
// geographic centers, used for map rendering when source documents omit
// coordinates.
package geo

import "strings"

// Point is a geographic center as [latitude, longitude].
type Point struct {
	Lat float64
	Lng float64
}

// Registry maps lowercased place names to their geographic centers.
// The registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	centers map[string]Point
}

// districtCenters holds the known district and town centers for the
// monitored region (Northeast India).
var districtCenters = map[string]Point{
	// Assam
	"guwahati":     {26.1445, 91.7362},
	"kamrup":       {26.3161, 91.5984},
	"kamrup metro": {26.17, 91.75},
	"jorhat":       {26.7509, 94.2037},
	"dibrugarh":    {27.4728, 94.9120},
	"silchar":      {24.8333, 92.7789},
	"cachar":       {24.82, 92.78},
	"tezpur":       {26.6528, 92.7926},
	"sonitpur":     {26.63, 92.78},
	"nagaon":       {26.3479, 92.6906},
	"tinsukia":     {27.4886, 95.3558},
	// Meghalaya
	"shillong": {25.5788, 91.8933},
	"tura":     {25.5141, 90.2032},
	"jowai":    {25.4468, 92.2116},
	// Manipur
	"imphal":        {24.8170, 93.9368},
	"churachandpur": {24.3333, 93.6667},
	// Mizoram
	"aizawl":  {23.7271, 92.7176},
	"lunglei": {22.8896, 92.7400},
	// Nagaland
	"kohima":  {25.6701, 94.1077},
	"dimapur": {25.9060, 93.7272},
	// Tripura
	"agartala": {23.8315, 91.2868},
	"udaipur":  {23.5363, 91.4847},
	// Arunachal Pradesh
	"itanagar": {27.0844, 93.6053},
	"tawang":   {27.5861, 91.8594},
	"pasighat": {28.0665, 95.3271},
	// Sikkim
	"gangtok": {27.3389, 88.6065},
	"namchi":  {27.1668, 88.3632},
}

// NewRegistry returns a Registry populated with the built-in district centers.
func NewRegistry() *Registry {
	return &Registry{centers: districtCenters}
}

// NewRegistryWith returns a Registry populated from the given table.
// Keys are normalized to lower case.
func NewRegistryWith(centers map[string]Point) *Registry {
	normalized := make(map[string]Point, len(centers))
	for name, p := range centers {
		normalized[strings.ToLower(strings.TrimSpace(name))] = p
	}
	return &Registry{centers: normalized}
}

// Lookup returns the center for a single place name using a case-insensitive
// exact match. The second return value reports whether the name was known.
func (r *Registry) Lookup(name string) (Point, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Point{}, false
	}
	p, ok := r.centers[key]
	return p, ok
}

// Resolve returns the display coordinate for an aggregation bucket, trying
// the district name first and the area name as fallback.
func (r *Registry) Resolve(district, area string) (Point, bool) {
	if p, ok := r.Lookup(district); ok {
		return p, true
	}
	return r.Lookup(area)
}

// Size returns the number of known places.
func (r *Registry) Size() int {
	return len(r.centers)
}
