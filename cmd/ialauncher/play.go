package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rtts/ialauncher/catalog"
	"github.com/rtts/ialauncher/game"
)

func newPlayCommand() *cobra.Command {
	var edit, reset bool
	cmd := &cobra.Command{
		Use:   "play <identifier>",
		Short: "Download if needed and start one title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			cat, err := loadCatalog(cfg, true)
			if err != nil {
				return err
			}
			e, ok := cat.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", catalog.ErrUnknownEntry, args[0])
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			if reset {
				if err := e.Reset(); err != nil {
					return err
				}
			}
			if !e.IsReady() {
				if err := fetch(ctx, cmd.OutOrStdout(), e); err != nil {
					return err
				}
			}

			mode := game.ModeAutorun
			if edit {
				mode = game.ModeEdit
			}
			return newLauncher(cfg).Launch(ctx, e, mode)
		},
	}
	cmd.Flags().BoolVar(&edit, "edit", false, "start DOSBox at the prompt and save the typed commands")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete staged assets and download again")
	return cmd
}

// fetch downloads e's assets, printing each source location as it starts
func fetch(ctx context.Context, out io.Writer, e *game.Entry) error {
	task := game.NewFetcher(nil).Start(e)
	last := -1
	progress := task.Progress()
	for progress != nil {
		select {
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			if p.Index != last {
				last = p.Index
				fmt.Fprintf(out, "downloading %d/%d %s\n", p.Index+1, p.Total, p.URI)
			}
		case <-ctx.Done():
			task.Cancel()
			return ctx.Err()
		}
	}
	res, _ := task.Result()
	return fetchOutcome(e, res)
}

func fetchOutcome(e *game.Entry, res game.FetchResult) error {
	if e.IsReady() {
		return nil
	}
	if n := len(res.Errors); n > 0 {
		return fmt.Errorf("%s is not ready: %w", e.Identifier, res.Errors[n-1])
	}
	return fmt.Errorf("%s is not ready: no source locations", e.Identifier)
}
