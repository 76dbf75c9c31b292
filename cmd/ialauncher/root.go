package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtts/ialauncher/catalog"
	"github.com/rtts/ialauncher/frontend"
	"github.com/rtts/ialauncher/game"
	"github.com/rtts/ialauncher/session"
	"github.com/rtts/ialauncher/storage"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ialauncher",
		Short:         "Browse and play DOS titles in DOSBox",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runLauncher,
	}
	addConfigFlags(root.PersistentFlags())

	root.AddCommand(newListCommand())
	root.AddCommand(newSlurpCommand())
	root.AddCommand(newPlayCommand())
	root.AddCommand(newRenameCommand())
	return root
}

// runLauncher opens the launcher window
func runLauncher(cmd *cobra.Command, _ []string) error {
	cfg, closer, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	gamesDir, err := resolveGamesDir(cfg, true)
	if err != nil {
		return err
	}

	scanner := catalog.NewScanner(gamesDir, catalog.Filter{ShowHidden: cfg.Edit, Letters: cfg.Letters}, nil)
	ctrl := session.New(session.Options{
		Slideshow:   time.Duration(cfg.Slideshow) * time.Second,
		StartRandom: cfg.Slideshow > 0,
		Edit:        cfg.Edit,
	}, scanner, game.NewFetcher(nil), newLauncher(cfg))

	if err := frontend.Run(ctrl, frontend.Options{Fullscreen: cfg.Fullscreen, Edit: cfg.Edit}); err != nil {
		if errors.Is(err, session.ErrEmptyCatalog) {
			frontend.ShowError("No games found", fmt.Sprintf("No games were found in %s.", gamesDir))
		}
		return err
	}
	return nil
}

// resolveGamesDir returns the configured catalog directory, falling back to
// the default location. When interactive and the directory does not exist,
// the user is asked to pick one and the choice is saved.
func resolveGamesDir(cfg *storage.Config, interactive bool) (string, error) {
	if cfg.GamesDir != "" {
		return cfg.GamesDir, nil
	}
	dir, err := storage.GetDefaultGamesDir()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err == nil || !interactive {
		return dir, nil
	}

	picked, err := frontend.PickGamesDir()
	if err != nil {
		return "", err
	}
	cfg.GamesDir = picked
	if err := storage.SaveGamesDir(picked); err != nil {
		slog.Warn("failed to save games directory", "error", err)
	}
	return picked, nil
}

// loadCatalog scans the catalog without a window, logging skipped entries
func loadCatalog(cfg *storage.Config, showHidden bool) (*catalog.Catalog, error) {
	dir, err := resolveGamesDir(cfg, false)
	if err != nil {
		return nil, err
	}
	cat, skipped, err := catalog.Scan(dir, catalog.Filter{ShowHidden: showHidden || cfg.Edit, Letters: cfg.Letters}, nil)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		slog.Info("catalog entries skipped", "count", len(skipped))
	}
	cat.SortAndMaybeRandomize(false)
	return cat, nil
}
