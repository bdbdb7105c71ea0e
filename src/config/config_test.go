package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 4, cfg.FutureDays)
	assert.Equal(t, "places.txt", cfg.PlacesFile)
	assert.Equal(t, "Asia/Manila", cfg.Defaults.TZ)
	assert.Equal(t, "PH", cfg.Defaults.Country)
	assert.Equal(t, "ecmwf_ifs", cfg.Defaults.Model)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "rain_cache.sqlite3", cfg.Cache.DB)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 48*time.Hour, cfg.Cache.Retention)
	assert.Equal(t, 20*time.Second, cfg.Forecast.Timeout)
	assert.Empty(t, cfg.Elastic.URL)
	assert.Nil(t, cfg.AdminUsers())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("RAIN_CACHE_DB", "/var/lib/rain/cache.db")
	t.Setenv("RAIN_WORKERS", "4")
	t.Setenv("RAIN_DEFAULT_MODEL", "icon_seamless")
	t.Setenv("RAIN_AUTH_ADMIN_HASH", "$2a$10$abc")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/rain/cache.db", cfg.Cache.DB)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "icon_seamless", cfg.Defaults.Model)
	assert.Equal(t, map[string]string{"admin": "$2a$10$abc"}, cfg.AdminUsers())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: 127.0.0.1:9000\ncache:\n  driver: redis\n  ttl: 15m\n"), 0o644))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)

	_, err = Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero workers", map[string]string{"RAIN_WORKERS": "0"}},
		{"negative future days", map[string]string{"RAIN_FUTURE_DAYS": "-1"}},
		{"unknown driver", map[string]string{"RAIN_CACHE_DRIVER": "memcached"}},
		{"bad timezone", map[string]string{"RAIN_DEFAULT_TZ": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(NewViper(), "")
			assert.Error(t, err)
		})
	}
}
