package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"showreel/internal/store"
)

func newCostCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cost <episode-id>",
		Short: "Summarize external service spend for an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := requireEpisodeID(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				summary, err := st.CostSummary(cmd.Context(), episodeID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				out := cmd.OutOrStdout()
				if len(summary.Lines) == 0 {
					fmt.Fprintf(out, "No spend recorded for %s\n", episodeID)
					return nil
				}
				rows := make([][]string, 0, len(summary.Lines))
				calls := 0
				for _, line := range summary.Lines {
					calls += line.Calls
					rows = append(rows, []string{line.Service, line.Operation, strconv.Itoa(line.Calls), formatCost(line.Cost)})
				}
				fmt.Fprintln(out, renderTableWithFooter(
					[]string{"Service", "Operation", "Calls", "Cost"},
					rows,
					[]string{"total", "", strconv.Itoa(calls), formatCost(summary.Total)},
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	return cmd
}
