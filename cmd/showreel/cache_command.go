package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"showreel/internal/assetcache"
	"showreel/internal/logging"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the generated asset cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage per service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, err := assetcache.New(cfg.Paths.CacheDir, logging.NewNop())
			if err != nil {
				return err
			}
			stats, err := cache.Stats()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Root:    %s\n", cache.Root())
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			fmt.Fprintf(out, "Size:    %s\n", humanBytes(stats.TotalBytes))
			if len(stats.Services) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(stats.Services))
			for _, svc := range stats.Services {
				rows = append(rows, []string{svc.Service, strconv.Itoa(svc.Entries), humanBytes(svc.TotalBytes)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Service", "Entries", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stats as JSON")
	return cmd
}
