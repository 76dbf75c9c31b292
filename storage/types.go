package storage

// Config represents the application configuration stored in config.json.
// Every key can also be supplied as a command-line flag or an
// IALAUNCHER_* environment variable.
type Config struct {
	Version    int       `json:"version" mapstructure:"version"`
	GamesDir   string    `json:"games_dir" mapstructure:"games_dir"`     // Catalog root, one subdirectory per title
	Fullscreen bool      `json:"fullscreen" mapstructure:"fullscreen"`   // Launcher and emulator fullscreen
	Slideshow  int       `json:"slideshow" mapstructure:"slideshow"`     // Seconds between random jumps, 0 = off
	Edit       bool      `json:"edit" mapstructure:"edit"`               // Show hidden titles
	Letters    string    `json:"letters" mapstructure:"letters"`         // Restrict catalog to these leading letters
	Emulator   string    `json:"emulator" mapstructure:"emulator"`       // Explicit emulator command, tried before discovery
	CaptureDir string    `json:"capture_dir" mapstructure:"capture_dir"` // DOSBox screenshot directory
	Log        LogConfig `json:"log" mapstructure:"log"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format     string `json:"format" mapstructure:"format"` // text or json
	File       string `json:"file" mapstructure:"file"`     // Empty = stderr only
	MaxSize    int    `json:"max_size" mapstructure:"max_size"`
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `json:"max_age" mapstructure:"max_age"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// MaxSlideshowSeconds bounds the slideshow interval
const MaxSlideshowSeconds = 3600

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Version:    1,
		Fullscreen: true,
		CaptureDir: GetDefaultCaptureDir(),
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}
