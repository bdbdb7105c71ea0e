package config

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. RAIN_CACHE_DB.
const EnvPrefix = "RAIN"

type Config struct {
	Addr           string
	LogLevel       string
	LogFormat      string
	TemplatePath   string
	PlacesFile     string
	RequestTimeout time.Duration

	Defaults struct {
		TZ      string
		Country string
		Model   string
	}
	FutureDays int
	Workers    int

	Cache struct {
		Driver     string
		DB         string
		RedisAddr  string
		TTL        time.Duration
		Retention  time.Duration
		PruneEvery string
	}

	Forecast struct {
		URL        string
		GeocodeURL string
		Timeout    time.Duration
		RateLimit  float64
		Burst      int
	}

	Elastic struct {
		URL   string
		Index string
	}

	Auth struct {
		SigningKey string
		AdminUser  string
		AdminHash  string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "0.0.0.0:8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("template", "src/templates/matrix.html")
	v.SetDefault("places.file", "places.txt")
	v.SetDefault("request.timeout", "60s")

	v.SetDefault("default.tz", "Asia/Manila")
	v.SetDefault("default.country", "PH")
	v.SetDefault("default.model", "ecmwf_ifs")
	v.SetDefault("future.days", 4)
	v.SetDefault("workers", 2)

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.db", "rain_cache.sqlite3")
	v.SetDefault("cache.redis", "localhost:6379")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.retention", "48h")
	v.SetDefault("cache.prune", "@every 30m")

	v.SetDefault("forecast.url", "https://api.open-meteo.com/v1/dwd-icon")
	v.SetDefault("forecast.geocode_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("forecast.timeout", "20s")
	v.SetDefault("forecast.rate", 10.0)
	v.SetDefault("forecast.burst", 5)

	v.SetDefault("elastic.url", "")
	v.SetDefault("elastic.index", "places")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_hash", "")
}

// NewViper returns a viper instance with defaults and RAIN_* environment
// bindings. A ".env" file in the working directory is loaded first; real
// environment variables win over it.
func NewViper() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads an optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}

	cfg := &Config{
		Addr:           v.GetString("addr"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		TemplatePath:   v.GetString("template"),
		PlacesFile:     v.GetString("places.file"),
		RequestTimeout: v.GetDuration("request.timeout"),
		FutureDays:     v.GetInt("future.days"),
		Workers:        v.GetInt("workers"),
	}
	cfg.Defaults.TZ = v.GetString("default.tz")
	cfg.Defaults.Country = v.GetString("default.country")
	cfg.Defaults.Model = v.GetString("default.model")

	cfg.Cache.Driver = strings.ToLower(v.GetString("cache.driver"))
	cfg.Cache.DB = v.GetString("cache.db")
	cfg.Cache.RedisAddr = v.GetString("cache.redis")
	cfg.Cache.TTL = v.GetDuration("cache.ttl")
	cfg.Cache.Retention = v.GetDuration("cache.retention")
	cfg.Cache.PruneEvery = v.GetString("cache.prune")

	cfg.Forecast.URL = v.GetString("forecast.url")
	cfg.Forecast.GeocodeURL = v.GetString("forecast.geocode_url")
	cfg.Forecast.Timeout = v.GetDuration("forecast.timeout")
	cfg.Forecast.RateLimit = v.GetFloat64("forecast.rate")
	cfg.Forecast.Burst = v.GetInt("forecast.burst")

	cfg.Elastic.URL = v.GetString("elastic.url")
	cfg.Elastic.Index = v.GetString("elastic.index")

	cfg.Auth.SigningKey = v.GetString("auth.signing_key")
	cfg.Auth.AdminUser = v.GetString("auth.admin_user")
	cfg.Auth.AdminHash = v.GetString("auth.admin_hash")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr must not be empty")
	case c.Workers < 1:
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.FutureDays < 0:
		return errors.Errorf("future.days must not be negative, got %d", c.FutureDays)
	case c.Cache.Driver != "sqlite" && c.Cache.Driver != "redis":
		return errors.Errorf("unknown cache driver %q", c.Cache.Driver)
	case c.Cache.TTL <= 0:
		return errors.New("cache.ttl must be positive")
	}
	if _, err := time.LoadLocation(c.Defaults.TZ); err != nil {
		return errors.Wrapf(err, "default.tz %q", c.Defaults.TZ)
	}
	return nil
}

// AdminUsers returns the bcrypt credential table for the token endpoints.
func (c *Config) AdminUsers() map[string]string {
	if c.Auth.AdminUser == "" || c.Auth.AdminHash == "" {
		return nil
	}
	return map[string]string{c.Auth.AdminUser: c.Auth.AdminHash}
}
