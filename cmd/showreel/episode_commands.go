package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"showreel/internal/episodes"
	"showreel/internal/services"
	"showreel/internal/store"
)

func newEpisodeCommand(ctx *commandContext) *cobra.Command {
	episodeCmd := &cobra.Command{
		Use:   "episode",
		Short: "Manage episode scripts",
	}

	episodeCmd.AddCommand(newEpisodeImportCommand(ctx))
	episodeCmd.AddCommand(newEpisodeShowCommand(ctx))
	episodeCmd.AddCommand(newEpisodeListCommand(ctx))

	return episodeCmd
}

func newEpisodeImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <script.yaml>",
		Short: "Import or replace an episode from a YAML script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				ep, err := episodes.Import(cmd.Context(), st, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported episode %s (%d segments, %d visuals)\n",
					ep.ID, len(ep.Script.Segments), ep.Script.VisualCount())
				return nil
			})
		},
	}
}

func newEpisodeShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <episode-id>",
		Short: "Show an episode script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := requireEpisodeID(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				ep, err := st.GetEpisode(cmd.Context(), episodeID)
				if err != nil {
					return err
				}
				if ep == nil {
					return services.Wrap(services.ErrNotFound, "episode", "show", "episode "+episodeID+" not found", nil)
				}
				if jsonOutput {
					return writeJSON(cmd, ep)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %s\n", ep.ID, ep.Title)
				if ep.Artist != "" || ep.Venue != "" {
					fmt.Fprintf(out, "%s at %s (%s)\n", ep.Artist, ep.Venue, ep.ShowDate)
				}
				rows := make([][]string, 0, len(ep.Script.Segments))
				for i, seg := range ep.Script.Segments {
					tiers := make([]string, 0, len(seg.Visuals))
					for _, visual := range seg.Visuals {
						tiers = append(tiers, visual.Tier)
					}
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						seg.Title,
						strconv.Itoa(len([]rune(seg.Narration))),
						strings.Join(tiers, ","),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Title", "Chars", "Visual tiers"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the episode as JSON")
	return cmd
}

func newEpisodeListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				eps, err := st.ListEpisodes(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(eps) == 0 {
					fmt.Fprintln(out, "No episodes imported")
					return nil
				}
				rows := make([][]string, 0, len(eps))
				for _, ep := range eps {
					rows = append(rows, []string{ep.ID, ep.Title, ep.ShowDate, strconv.Itoa(len(ep.Script.Segments))})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Show date", "Segments"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
