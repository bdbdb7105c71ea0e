package db

import (
	"RainMatrix/src/types"
	"context"
	"math"
	"sort"
	"sync"
)

const earthRadiusKm = 6371.0

// MemoryIndex answers nearby queries with a linear haversine scan. It is
// used when no Elasticsearch cluster is configured.
type MemoryIndex struct {
	mu     sync.RWMutex
	places []types.Place
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) IndexPlaces(_ context.Context, places []types.Place) error {
	cp := make([]types.Place, len(places))
	copy(cp, places)

	m.mu.Lock()
	m.places = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) GetNearbyPlaces(_ context.Context, lat, lon float64) ([]types.Place, error) {
	m.mu.RLock()
	cp := make([]types.Place, len(m.places))
	copy(cp, m.places)
	m.mu.RUnlock()

	origin := types.GeoPoint{Lat: lat, Lon: lon}
	sort.SliceStable(cp, func(i, j int) bool {
		return Haversine(origin, cp[i].Location) < Haversine(origin, cp[j].Location)
	})

	if len(cp) > nearbyLimit {
		cp = cp[:nearbyLimit]
	}
	return cp, nil
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(a, b types.GeoPoint) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
