package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "IALAUNCHER"

// NewViper returns a viper instance primed with the default configuration
// and, when it exists, the contents of config.json. Environment variables
// such as IALAUNCHER_GAMES_DIR or IALAUNCHER_LOG_LEVEL take precedence over
// the file.
func NewViper() (*viper.Viper, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return newViperFromPath(path)
}

func newViperFromPath(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Check if file exists
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// File doesn't exist, defaults only
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}

// setDefaults registers every config key so env and flag overrides apply
// even when the key is absent from the file
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("games_dir", d.GamesDir)
	v.SetDefault("fullscreen", d.Fullscreen)
	v.SetDefault("slideshow", d.Slideshow)
	v.SetDefault("edit", d.Edit)
	v.SetDefault("letters", d.Letters)
	v.SetDefault("emulator", d.Emulator)
	v.SetDefault("capture_dir", d.CaptureDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
}

// LoadConfig decodes the effective configuration out of v.
// Invalid values are reset to their defaults; the returned slice describes
// what was corrected.
func LoadConfig(v *viper.Viper) (*Config, []string, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}

	problems := ValidateConfig(config)
	if len(problems) > 0 {
		config = CorrectConfig(config)
	}

	return config, problems, nil
}

// SaveConfig saves the configuration to config.json atomically
func SaveConfig(config *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	return AtomicWriteJSON(path, config)
}

// SaveGamesDir records dir as the catalog root in config.json. Only the
// file's own values are carried over, so environment and flag overrides of
// the current run are not persisted.
func SaveGamesDir(dir string) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return saveGamesDirTo(path, dir)
}

func saveGamesDirTo(path, dir string) error {
	config := DefaultConfig()
	if err := ReadJSON(path, config); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	config.GamesDir = dir

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return AtomicWriteJSON(path, config)
}

// CreateConfigIfMissing creates a default config.json if it doesn't exist
func CreateConfigIfMissing() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Check if file exists
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Create default config
		return SaveConfig(DefaultConfig())
	}

	return nil
}
