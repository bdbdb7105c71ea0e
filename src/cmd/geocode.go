package cmd

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var geocodeCountry string

var geocodeCmd = &cobra.Command{
	Use:     "geocode <query>",
	Short:   "Look up coordinates and print a places file line",
	Example: `  rainmatrix geocode "Calapan, Oriental Mindoro" >> places.txt`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		country := geocodeCountry
		if country == "" {
			country = cfg.Defaults.Country
		}

		query := strings.Join(args, " ")
		place, err := newForecastClient(cfg).Geocode(cmd.Context(), query, country)
		if err != nil {
			return err
		}
		if place == nil {
			return errors.Errorf("no match for %q", query)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s, %.4f, %.4f\n", place.Label, place.Location.Lat, place.Location.Lon)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeCountry, "country", "", "ISO country code filter (default from config)")
}
