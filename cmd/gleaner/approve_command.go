package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gleaner/internal/approval"
)

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve",
		Short: "Group and approve pending quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			client, err := ctx.newLLMClient()
			if err != nil {
				return err
			}

			return ctx.withLock(func() error {
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer store.Close()

				oracle := approval.NewOracle(client, logger)
				engine := approval.NewEngine(store, oracle, approval.Config{
					WindowSize:        cfg.Approval.WindowSize,
					Overlap:           cfg.Approval.Overlap,
					DistanceThreshold: cfg.Approval.DistanceThreshold,
				}, logger)

				sum, err := engine.Run(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run %s finished: %d groups (%d quotes), %d approved, %d declined, %d left pending\n",
					engine.RunID(), sum.GroupsCreated, sum.Grouped, sum.Approved, sum.Declined, sum.LeftPending)
				return nil
			})
		},
	}
}
