package cmd

import (
	"RainMatrix/src/config"
	"RainMatrix/src/db"
	"RainMatrix/src/places"
	"RainMatrix/src/types"
	"RainMatrix/src/weather"
	"context"

	log "github.com/sirupsen/logrus"
)

func openCache(ctx context.Context, cfg *config.Config) (types.PageCache, error) {
	opts := db.CacheOptions{TTL: cfg.Cache.TTL, Retention: cfg.Cache.Retention}

	if cfg.Cache.Driver == "redis" {
		log.WithField("addr", cfg.Cache.RedisAddr).Info("using redis page cache")
		return db.OpenRedis(ctx, cfg.Cache.RedisAddr, opts)
	}
	log.WithField("path", cfg.Cache.DB).Info("using sqlite page cache")
	return db.OpenSQLite(ctx, cfg.Cache.DB, opts)
}

func newForecastClient(cfg *config.Config) *weather.Client {
	return weather.NewClient(weather.Config{
		ForecastURL:       cfg.Forecast.URL,
		GeocodeURL:        cfg.Forecast.GeocodeURL,
		Timeout:           cfg.Forecast.Timeout,
		RequestsPerSecond: cfg.Forecast.RateLimit,
		Burst:             cfg.Forecast.Burst,
	})
}

// newPlaceIndex prefers Elasticsearch when configured and falls back to the
// in-memory index if the cluster cannot be reached.
func newPlaceIndex(ctx context.Context, cfg *config.Config) types.PlaceIndex {
	memory := db.NewMemoryIndex()
	list, err := places.Read(cfg.PlacesFile)
	if err != nil {
		log.WithError(err).Warn("places file not indexed")
		return memory
	}
	if err := memory.IndexPlaces(ctx, list); err != nil {
		log.WithError(err).Warn("in-memory place index failed")
		return memory
	}

	if cfg.Elastic.URL == "" {
		return memory
	}

	es, err := db.NewElasticStore(cfg.Elastic.URL, cfg.Elastic.Index)
	if err == nil {
		err = es.IndexPlaces(ctx, list)
	}
	if err != nil {
		log.WithError(err).WithField("url", cfg.Elastic.URL).Warn("elasticsearch unavailable, using in-memory place index")
		return memory
	}

	log.WithFields(log.Fields{"url": cfg.Elastic.URL, "places": len(list)}).Info("places indexed in elasticsearch")
	return es
}
