package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gleaner/internal/quotes"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show quote counts per status and group totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][2]string, 0, len(quotes.AllStatuses())+3)
			for _, status := range quotes.AllStatuses() {
				rows = append(rows, [2]string{string(status), strconv.Itoa(stats.ByStatus[status])})
			}
			rows = append(rows, [2]string{"groups", strconv.Itoa(stats.Groups)})
			rows = append(rows, [2]string{"grouped quotes", strconv.Itoa(stats.Grouped)})
			ungrouped := stats.ByStatus[quotes.StatusApproved] - stats.Grouped
			if ungrouped < 0 {
				ungrouped = 0
			}
			rows = append(rows, [2]string{"approved individually", strconv.Itoa(ungrouped)})

			fmt.Fprintln(cmd.OutOrStdout(), renderCountTable(rows))
			return nil
		},
	}
}
