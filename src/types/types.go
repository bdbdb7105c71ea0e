package types

import (
	"context"
	"time"
)

type Place struct {
	Label    string   `json:"label"`
	Query    string   `json:"query"`
	Admin    string   `json:"admin,omitempty"`
	Location GeoPoint `json:"location"`
}

type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// HourlyForecast holds the parallel hourly series returned by the forecast
// provider. Times are wall-clock times in the requested timezone.
type HourlyForecast struct {
	Times  []time.Time
	Precip []float64
	POP    []int
	Cloud  []float64
}

type Cell struct {
	Icon   string  `json:"icon"`
	Precip float64 `json:"precip_mm"`
	POP    int     `json:"pop_pct"`
}

// CacheKey identifies one rendered page.
type CacheKey struct {
	QueryDate  string
	TargetDate string
	TZ         string
	Country    string
	Model      string
	PlacesSig  string
}

type PageCache interface {
	Get(ctx context.Context, key CacheKey) (string, bool, error)
	Put(ctx context.Context, key CacheKey, html string) error
	Prune(ctx context.Context) (int64, error)
	Purge(ctx context.Context) (int64, error)
	Close() error
}

type PlaceIndex interface {
	IndexPlaces(ctx context.Context, places []Place) error
	GetNearbyPlaces(ctx context.Context, lat, lon float64) ([]Place, error)
}

type ForecastSource interface {
	HourlyForecast(ctx context.Context, lat, lon float64, tz, model string) (*HourlyForecast, error)
	Geocode(ctx context.Context, query, country string) (*Place, error)
}
