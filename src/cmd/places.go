package cmd

import (
	"RainMatrix/src/places"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Inspect the places file",
}

var placesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse the places file and list its entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		list, err := places.Read(cfg.PlacesFile)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return errors.Errorf("no places found in %s", cfg.PlacesFile)
		}
		sig, err := places.Signature(cfg.PlacesFile)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LABEL\tLAT\tLON")
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%.4f\t%.4f\n", p.Label, p.Location.Lat, p.Location.Lon)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d places, signature %s\n", len(list), sig)
		return nil
	},
}

func init() {
	placesCmd.AddCommand(placesValidateCmd)
}
