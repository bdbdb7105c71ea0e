// Package cmd contains the rainmatrix CLI commands.
package cmd

import (
	"RainMatrix/src/config"
	"context"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set via -ldflags.
	Version = "dev"

	cfgFile string
	v       *viper.Viper

	rootCmd = &cobra.Command{
		Use:   "rainmatrix",
		Short: "Hourly rain forecast matrix for a list of places",
		Long: `rainmatrix serves an hours-by-places rain forecast table built from
the Open-Meteo API, with an HTML page cache in SQLite or Redis.

Places are read from a plain-text file with one "Label, lat, lon" entry
per line. Every setting can be overridden with a RAIN_* environment
variable, e.g. RAIN_CACHE_DB or RAIN_PLACES_FILE.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	v = config.NewViper()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("places", "places.txt", "places file")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("places.file", rootCmd.PersistentFlags().Lookup("places"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(placesCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(geocodeCmd)
}

// loadConfig resolves configuration and applies the logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
