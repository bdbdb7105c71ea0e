// Package weather is a client for the Open-Meteo forecast and geocoding APIs.
package weather

import (
	"RainMatrix/src/metrics"
	"RainMatrix/src/places"
	"RainMatrix/src/types"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/dwd-icon"
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"

	hourlyFields  = "precipitation,precipitation_probability,cloudcover"
	forecastDays  = 7
	geocodeCount  = 10
	maxBodyBytes  = 8 << 20
	timeLayoutISO = "2006-01-02T15:04"
)

type Config struct {
	ForecastURL string
	GeocodeURL  string
	Timeout     time.Duration
	// RequestsPerSecond caps outbound calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	forecastURL string
	geocodeURL  string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	forecastURL := cfg.ForecastURL
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	geocodeURL := cfg.GeocodeURL
	if geocodeURL == "" {
		geocodeURL = DefaultGeocodeURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
		forecastURL: forecastURL,
		geocodeURL:  geocodeURL,
	}
}

func (c *Client) get(ctx context.Context, endpoint, base string, params url.Values) (body []byte, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	start := time.Now()
	defer func() { metrics.RecordUpstream(endpoint, time.Since(start), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s request failed", endpoint)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200] + "...(truncated)"
		}
		return nil, errors.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, msg)
	}
	return body, nil
}

type hourlyResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Precipitation []*float64 `json:"precipitation"`
		Probability   []*float64 `json:"precipitation_probability"`
		CloudCover    []*float64 `json:"cloudcover"`
	} `json:"hourly"`
}

// HourlyForecast fetches seven days of hourly precipitation, precipitation
// probability and cloud cover. Missing or null values read as zero.
func (c *Client) HourlyForecast(ctx context.Context, lat, lon float64, tz, model string) (*types.HourlyForecast, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("hourly", hourlyFields)
	params.Set("timezone", tz)
	params.Set("forecast_days", strconv.Itoa(forecastDays))
	params.Set("models", model)

	body, err := c.get(ctx, "forecast", c.forecastURL, params)
	if err != nil {
		return nil, err
	}

	var raw hourlyResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "decode forecast")
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	h := raw.Hourly
	out := &types.HourlyForecast{
		Times:  make([]time.Time, 0, len(h.Time)),
		Precip: make([]float64, 0, len(h.Time)),
		POP:    make([]int, 0, len(h.Time)),
		Cloud:  make([]float64, 0, len(h.Time)),
	}
	for i, ts := range h.Time {
		t, err := time.ParseInLocation(timeLayoutISO, ts, loc)
		if err != nil {
			return nil, errors.Wrapf(err, "parse forecast time %q", ts)
		}
		out.Times = append(out.Times, t)
		out.Precip = append(out.Precip, value(h.Precipitation, i))
		out.POP = append(out.POP, int(value(h.Probability, i)))
		out.Cloud = append(out.Cloud, value(h.CloudCover, i))
	}

	return out, nil
}

func value(xs []*float64, i int) float64 {
	if i < len(xs) && xs[i] != nil {
		return *xs[i]
	}
	return 0
}

// Geocode resolves a free-text place to coordinates, preferring the most
// populous match. It returns nil when nothing matches.
func (c *Client) Geocode(ctx context.Context, query, country string) (*types.Place, error) {
	params := url.Values{}
	params.Set("name", places.LabelFromQuery(query))
	params.Set("count", strconv.Itoa(geocodeCount))
	params.Set("language", "en")
	params.Set("format", "json")
	if country != "" {
		params.Set("country_code", strings.ToUpper(country))
	}

	body, err := c.get(ctx, "geocode", c.geocodeURL, params)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("decode geocode: invalid json")
	}

	results := gjson.GetBytes(body, "results").Array()
	if len(results) == 0 {
		return nil, nil
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Get("population").Int() > best.Get("population").Int() {
			best = r
		}
	}

	return &types.Place{
		Label: places.LabelFromQuery(query),
		Query: query,
		Admin: best.Get("admin1").String(),
		Location: types.GeoPoint{
			Lat: best.Get("latitude").Float(),
			Lon: best.Get("longitude").Float(),
		},
	}, nil
}
