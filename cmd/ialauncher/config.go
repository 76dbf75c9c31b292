package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rtts/ialauncher/game"
	"github.com/rtts/ialauncher/logging"
	"github.com/rtts/ialauncher/storage"
)

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"games-dir":   "games_dir",
	"fullscreen":  "fullscreen",
	"slideshow":   "slideshow",
	"edit":        "edit",
	"letters":     "letters",
	"emulator":    "emulator",
	"capture-dir": "capture_dir",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"log-file":    "log.file",
}

func addConfigFlags(flags *pflag.FlagSet) {
	d := storage.DefaultConfig()
	flags.String("games-dir", d.GamesDir, "catalog directory, one subdirectory per title")
	flags.Bool("fullscreen", d.Fullscreen, "run the launcher and DOSBox fullscreen")
	flags.Bool("no-fullscreen", false, "run the launcher and DOSBox in a window")
	flags.Int("slideshow", d.Slideshow, "seconds between random jumps, 0 disables")
	flags.Bool("edit", d.Edit, "show hidden titles and allow hiding with Delete")
	flags.String("letters", d.Letters, "only show titles starting with these characters")
	flags.String("emulator", d.Emulator, "emulator command, tried before searching for DOSBox")
	flags.String("capture-dir", d.CaptureDir, "DOSBox screenshot directory")
	flags.String("log-level", d.Log.Level, "log level: debug|info|warn|error")
	flags.String("log-format", d.Log.Format, "log format: text|json")
	flags.String("log-file", d.Log.File, "log file path (enables rotation)")
}

// loadConfig resolves config.json, IALAUNCHER_* variables and flags, in
// increasing order of precedence, and sets up logging. The returned closer
// flushes the log file.
func loadConfig(cmd *cobra.Command) (*storage.Config, io.Closer, error) {
	if err := storage.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	if err := storage.CreateConfigIfMissing(); err != nil {
		return nil, nil, err
	}
	v, err := storage.NewViper()
	if err != nil {
		return nil, nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, nil, err
	}

	cfg, problems, err := storage.LoadConfig(v)
	if err != nil {
		return nil, nil, err
	}

	closer := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	for _, p := range problems {
		slog.Warn("invalid config value reset to default", "problem", p)
	}
	return cfg, closer, nil
}

// bindFlags makes set flags override config and environment values.
// --no-fullscreen wins over --fullscreen.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	if noFull, err := flags.GetBool("no-fullscreen"); err == nil && noFull {
		v.Set("fullscreen", false)
	}
	return nil
}

// newLauncher builds the emulator launcher for cfg
func newLauncher(cfg *storage.Config) *game.Launcher {
	resolver := game.NewResolver(game.DefaultStrategies(strings.TrimSpace(cfg.Emulator)), game.ProbeVersion)
	return game.NewLauncher(resolver, game.ExecRunner{}, game.LauncherOptions{
		Fullscreen: cfg.Fullscreen,
		CaptureDir: cfg.CaptureDir,
	})
}
