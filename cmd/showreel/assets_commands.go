package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"showreel/internal/assetgen"
	"showreel/internal/logging"
	"showreel/internal/preflight"
	"showreel/internal/runlock"
	"showreel/internal/store"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Generate and inspect episode assets",
	}

	assetsCmd.AddCommand(newAssetsGenerateCommand(ctx))
	assetsCmd.AddCommand(newAssetsListCommand(ctx))

	return assetsCmd
}

func newAssetsGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts assetgen.Options
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate <episode-id>",
		Short: "Generate narration, images, thumbnail, and archival photos for an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := requireEpisodeID(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if opts.Concurrency < 0 {
				return fmt.Errorf("--concurrency must not be negative, got %d", opts.Concurrency)
			}
			if !opts.DryRun {
				stages := preflight.Stages{
					Narration: !opts.SkipNarration,
					Images:    !opts.SkipImages,
					Thumbnail: !opts.SkipThumbnail,
					Archival:  !opts.SkipArchival,
				}
				if err := preflight.CheckCredentials(cfg, stages); err != nil {
					return err
				}
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				lock, err := runlock.Acquire(filepath.Join(cfg.Paths.DataDir, "locks"), episodeID)
				if err != nil {
					return err
				}
				defer lock.Release()

				orch, err := assetgen.New(cfg, st, assetgen.WithLogger(logger))
				if err != nil {
					return err
				}
				manifest, err := orch.Run(cmd.Context(), episodeID, opts)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, manifest)
				}
				printManifest(cmd.OutOrStdout(), manifest)
				if len(manifest.FailedAssets) > 0 {
					logging.WarnWithContext(logger, "episode assets incomplete", "asset_run_incomplete",
						logging.String(logging.FieldEpisodeID, manifest.EpisodeID),
						logging.Int("failed_assets", len(manifest.FailedAssets)),
						logging.String(logging.FieldErrorHint, "rerun to retry failed assets; cached assets are reused"),
					)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Maximum concurrent image generations (default from config)")
	cmd.Flags().BoolVar(&opts.SkipNarration, "skip-narration", false, "Skip narration synthesis")
	cmd.Flags().BoolVar(&opts.SkipImages, "skip-images", false, "Skip segment image generation")
	cmd.Flags().BoolVar(&opts.SkipThumbnail, "skip-thumbnail", false, "Skip thumbnail generation")
	cmd.Flags().BoolVar(&opts.SkipArchival, "skip-archival", false, "Skip archival photo search")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Plan assets without calling external services or writing records")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Ignore cached assets and regenerate")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the manifest as JSON")
	return cmd
}

func printManifest(out io.Writer, m *assetgen.Manifest) {
	headers := []string{"Kind", "Key", "Tier", "Cached", "Cost", "Path"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, m.AssetCount())
	addEntry := func(kind string, entry assetgen.AssetEntry) {
		cached := yesNo(entry.Cached)
		if entry.Planned {
			cached = "planned"
		}
		rows = append(rows, []string{kind, entry.Key, entry.Tier, cached, formatCost(entry.Cost), entry.Path})
	}
	for _, entry := range m.Narrations {
		addEntry("narration", entry)
	}
	for _, entry := range m.Images {
		addEntry("image", entry)
	}
	if m.Thumbnail != nil {
		addEntry("thumbnail", *m.Thumbnail)
	}
	for _, entry := range m.Archival {
		cached := yesNo(entry.Cached)
		if entry.Planned {
			cached = "planned"
		}
		rows = append(rows, []string{"archival", entry.Key, entry.License, cached, formatCost(0), entry.Path})
	}

	title := fmt.Sprintf("Episode %s (run %s)", m.EpisodeID, m.RunID)
	if m.DryRun {
		title += " [dry run]"
	}
	fmt.Fprintln(out, title)
	footer := []string{"total", fmt.Sprintf("%d assets", len(rows)), "", fmt.Sprintf("%d cached", m.CachedAssets), formatCost(m.TotalCost), ""}
	fmt.Fprintln(out, renderTableWithFooter(headers, rows, footer, aligns))

	colorize := shouldColorize(out)
	for _, failure := range m.FailedAssets {
		fmt.Fprintln(out, renderStatusLine("Failed", statusWarn, failure, colorize))
	}
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var typeFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <episode-id>",
		Short: "List persisted asset records for an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := requireEpisodeID(args)
			if err != nil {
				return err
			}
			assetType := store.AssetType(strings.ToLower(strings.TrimSpace(typeFlag)))
			switch assetType {
			case "", store.AssetNarration, store.AssetImage, store.AssetThumbnail, store.AssetArchival:
			default:
				return fmt.Errorf("unknown asset type %q", typeFlag)
			}
			return ctx.withStore(func(st *store.Store) error {
				records, err := st.ListAssets(cmd.Context(), episodeID, assetType)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintf(out, "No assets recorded for %s\n", episodeID)
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						string(record.Type),
						record.Service,
						formatCost(record.Cost),
						record.CreatedAt.Local().Format("2006-01-02 15:04"),
						record.FilePath,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Type", "Service", "Cost", "Created", "Path"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typeFlag, "type", "", "Filter by asset type (narration, image, thumbnail, archival)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print records as JSON")
	return cmd
}
