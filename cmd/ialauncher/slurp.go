package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rtts/ialauncher/game"
	"github.com/rtts/ialauncher/session"
)

func newSlurpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slurp",
		Short: "Download the assets of every title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			cat, err := loadCatalog(cfg, true)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			report, err := session.Slurp(ctx, cat, game.NewFetcher(nil), func(e *game.Entry, res game.FetchResult) {
				status := "ok"
				if !res.Ready {
					status = fmt.Sprintf("failed (%d errors)", len(res.Errors))
				}
				fmt.Fprintf(out, "%-40s %s\n", e.Identifier, status)
			})
			fmt.Fprintf(out, "fetched %d, failed %d, skipped %d\n", report.Fetched, report.Failed, report.Skipped)
			return err
		},
	}
}
