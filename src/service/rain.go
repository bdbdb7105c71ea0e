// Package service implements the rain matrix request flow: resolve the
// day, load places, consult the page cache, fetch forecasts and render.
package service

import (
	"RainMatrix/src/matrix"
	"RainMatrix/src/metrics"
	"RainMatrix/src/places"
	"RainMatrix/src/render"
	"RainMatrix/src/types"
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout      = "2006-01-02"
	// dateInputLayout also accepts unpadded month and day, e.g. 2026-1-3.
	dateInputLayout = "2006-1-2"
)

var (
	ErrInvalidDate    = errors.New("invalid date format")
	ErrDateOutOfRange = errors.New("date out of allowed range")
	ErrNoPlaces       = errors.New("no places configured")
)

type Defaults struct {
	TZ      string
	Country string
	Model   string
}

type Config struct {
	PlacesFile        string
	Defaults          Defaults
	FutureDaysAllowed int
	// Workers bounds concurrent forecast fetches per request.
	Workers int
}

// Query mirrors the index page query parameters. Empty fields take the
// configured defaults.
type Query struct {
	Date    string
	TZ      string
	Country string
	Model   string
	NoCache bool
}

func QueryFromValues(v url.Values) Query {
	return Query{
		Date:    v.Get("date"),
		TZ:      v.Get("tz"),
		Country: v.Get("country"),
		Model:   v.Get("model"),
		NoCache: v.Get("nocache") == "1",
	}
}

type RangeError struct {
	Min, Max time.Time
	TZ       string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("date out of allowed range: use %s to %s (tz=%s)",
		e.Min.Format(dateLayout), e.Max.Format(dateLayout), e.TZ)
}

func (e *RangeError) Unwrap() error { return ErrDateOutOfRange }

// PlacesError reports a places file that exists but could not be parsed.
type PlacesError struct {
	Err error
}

func (e *PlacesError) Error() string {
	return "error reading places file: " + e.Err.Error()
}

func (e *PlacesError) Unwrap() error { return e.Err }

type RainService struct {
	cfg      Config
	cache    types.PageCache
	source   types.ForecastSource
	renderer *render.Renderer
	now      func() time.Time
}

func New(cfg Config, cache types.PageCache, source types.ForecastSource, renderer *render.Renderer) *RainService {
	if cfg.Workers < 1 {
		cfg.Workers = 2
	}
	if cfg.FutureDaysAllowed < 0 {
		cfg.FutureDaysAllowed = 0
	}
	return &RainService{
		cfg:      cfg,
		cache:    cache,
		source:   source,
		renderer: renderer,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (s *RainService) SetClock(now func() time.Time) {
	s.now = now
}

type request struct {
	query   Query
	today   time.Time
	target  time.Time
	maxDate time.Time
	places  []types.Place
	sig     string
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// today returns the current date in tz, falling back to server local time
// when tz is unknown.
func (s *RainService) today(tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.WithField("tz", tz).Debug("unknown timezone, using local time")
		return civilDate(s.now().Local())
	}
	return civilDate(s.now().In(loc))
}

func (s *RainService) resolve(q Query) (*request, error) {
	if q.TZ == "" {
		q.TZ = s.cfg.Defaults.TZ
	}
	if q.Country == "" {
		q.Country = s.cfg.Defaults.Country
	}
	if q.Model == "" {
		q.Model = s.cfg.Defaults.Model
	}

	today := s.today(q.TZ)
	req := &request{
		query:   q,
		today:   today,
		target:  today,
		maxDate: today.AddDate(0, 0, s.cfg.FutureDaysAllowed),
	}

	if q.Date != "" {
		target, err := time.Parse(dateInputLayout, q.Date)
		if err != nil {
			return nil, ErrInvalidDate
		}
		if target.Before(req.today) || target.After(req.maxDate) {
			return nil, &RangeError{Min: req.today, Max: req.maxDate, TZ: q.TZ}
		}
		req.target = target
	}

	list, err := places.Read(s.cfg.PlacesFile)
	if err != nil {
		if errors.Is(err, places.ErrPlacesMissing) {
			return nil, err
		}
		return nil, &PlacesError{Err: err}
	}
	if len(list) == 0 {
		return nil, ErrNoPlaces
	}
	sig, err := places.Signature(s.cfg.PlacesFile)
	if err != nil {
		return nil, err
	}
	req.places = list
	req.sig = sig

	return req, nil
}

func (r *request) cacheKey() types.CacheKey {
	return types.CacheKey{
		QueryDate:  r.today.Format(dateLayout),
		TargetDate: r.target.Format(dateLayout),
		TZ:         r.query.TZ,
		Country:    r.query.Country,
		Model:      r.query.Model,
		PlacesSig:  r.sig,
	}
}

func (r *request) baseParams() url.Values {
	params := url.Values{}
	params.Set("tz", r.query.TZ)
	params.Set("country", r.query.Country)
	params.Set("model", r.query.Model)
	if r.query.NoCache {
		params.Set("nocache", "1")
	}
	return params
}

// Page returns the rendered HTML for q and whether it came from the cache.
func (s *RainService) Page(ctx context.Context, q Query) (string, bool, error) {
	req, err := s.resolve(q)
	if err != nil {
		return "", false, err
	}

	key := req.cacheKey()
	if !req.query.NoCache {
		html, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("cache lookup failed")
		}
		metrics.RecordCacheLookup(ok)
		if ok {
			return html, true, nil
		}
	}

	m, err := s.build(ctx, req)
	if err != nil {
		return "", false, err
	}

	html, err := s.renderer.Render(render.View{
		Matrix:     m,
		MinDate:    req.today,
		MaxDate:    req.maxDate,
		BaseParams: req.baseParams(),
	})
	if err != nil {
		return "", false, err
	}

	if !req.query.NoCache {
		if err := s.cache.Put(ctx, key, html); err != nil {
			log.WithError(err).Warn("cache store failed")
		}
	}
	return html, false, nil
}

// Matrix returns the matrix model for q without touching the page cache.
func (s *RainService) Matrix(ctx context.Context, q Query) (*matrix.Matrix, error) {
	req, err := s.resolve(q)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, req)
}

func (s *RainService) build(ctx context.Context, req *request) (*matrix.Matrix, error) {
	var mu sync.Mutex
	forecasts := make(map[string]*types.HourlyForecast, len(req.places))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, p := range req.places {
		p := p
		g.Go(func() error {
			fc, err := s.source.HourlyForecast(gctx, p.Location.Lat, p.Location.Lon, req.query.TZ, req.query.Model)
			if err != nil {
				return errors.Wrapf(err, "forecast for %s", p.Label)
			}
			mu.Lock()
			forecasts[p.Label] = fc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"target": req.target.Format(dateLayout),
		"places": len(req.places),
		"model":  req.query.Model,
	}).Debug("built rain matrix")

	return matrix.Build(req.places, forecasts, req.target), nil
}

// PlacesFile exposes the configured path for the places endpoints.
func (s *RainService) PlacesFile() string {
	return s.cfg.PlacesFile
}

func (s *RainService) Source() types.ForecastSource {
	return s.source
}
