package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <identifier> <new-name>",
		Short: "Rename a title and its directory",
		Args:  cobra.ExactArgs(2),
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
			if err := cat.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}
