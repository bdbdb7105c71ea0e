package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourlyForecast(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hourly":{
			"time":["2025-12-31T00:00","2025-12-31T01:00","2025-12-31T02:00"],
			"precipitation":[0.0,1.5,null],
			"precipitation_probability":[10,null,75.9],
			"cloudcover":[20,100,55]
		}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{ForecastURL: srv.URL})
	fc, err := c.HourlyForecast(context.Background(), 13.174, 121.278, "Asia/Manila", "ecmwf_ifs")
	require.NoError(t, err)

	assert.Equal(t, "13.174", got.Get("latitude"))
	assert.Equal(t, "121.278", got.Get("longitude"))
	assert.Equal(t, "precipitation,precipitation_probability,cloudcover", got.Get("hourly"))
	assert.Equal(t, "Asia/Manila", got.Get("timezone"))
	assert.Equal(t, "7", got.Get("forecast_days"))
	assert.Equal(t, "ecmwf_ifs", got.Get("models"))

	require.Len(t, fc.Times, 3)
	assert.Equal(t, 1, fc.Times[1].Hour())
	assert.Equal(t, time.December, fc.Times[1].Month())
	assert.Equal(t, []float64{0, 1.5, 0}, fc.Precip)
	assert.Equal(t, []int{10, 0, 75}, fc.POP)
	assert.Equal(t, []float64{20, 100, 55}, fc.Cloud)
}

func TestHourlyForecast_MissingProbability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly":{"time":["2025-12-31T05:00"],"precipitation":[3.2],"cloudcover":[90]}}`))
	}))
	defer srv.Close()

	fc, err := NewClient(Config{ForecastURL: srv.URL}).HourlyForecast(context.Background(), 1, 2, "UTC", "m")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, fc.POP)
}

func TestHourlyForecast_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not available", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(Config{ForecastURL: srv.URL}).HourlyForecast(context.Background(), 1, 2, "UTC", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "model not available")
	assert.Contains(t, fmt.Sprintf("%+v", err), "openmeteo.go", "error carries a stack trace")
}

func TestGeocode(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"results":[
			{"name":"San Jose","latitude":10.1,"longitude":120.1,"population":500,"admin1":"Antique"},
			{"name":"San Jose","latitude":12.35,"longitude":121.07,"population":143430,"admin1":"Occidental Mindoro"},
			{"name":"San Jose","latitude":15.8,"longitude":120.9}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{GeocodeURL: srv.URL})
	place, err := c.Geocode(context.Background(), "San Jose, Occidental Mindoro", "ph")
	require.NoError(t, err)
	require.NotNil(t, place)

	assert.Equal(t, "San Jose", got.Get("name"))
	assert.Equal(t, "PH", got.Get("country_code"))
	assert.Equal(t, "10", got.Get("count"))
	assert.Equal(t, "en", got.Get("language"))

	assert.Equal(t, "San Jose", place.Label)
	assert.Equal(t, "San Jose, Occidental Mindoro", place.Query)
	assert.Equal(t, "Occidental Mindoro", place.Admin)
	assert.InDelta(t, 12.35, place.Location.Lat, 1e-9)
	assert.InDelta(t, 121.07, place.Location.Lon, 1e-9)
}

func TestGeocode_NoResults(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"generationtime_ms":0.4}`))
	}))
	defer srv.Close()

	place, err := NewClient(Config{GeocodeURL: srv.URL}).Geocode(context.Background(), "Nowhere", "")
	require.NoError(t, err)
	assert.Nil(t, place)
	_, hasCountry := got["country_code"]
	assert.False(t, hasCountry)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly":{"time":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{ForecastURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1})
	_, err := c.HourlyForecast(context.Background(), 1, 2, "UTC", "m")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.HourlyForecast(ctx, 1, 2, "UTC", "m")
	assert.Error(t, err)
}
