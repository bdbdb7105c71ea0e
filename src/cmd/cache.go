package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the page cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached pages older than the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cache, err := openCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cache.Close()

		n, err := cache.Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d cached pages\n", n)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cached page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cache, err := openCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cache.Close()

		n, err := cache.Purge(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d cached pages\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}
