package storage

import (
	"fmt"
	"strings"
	"unicode"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// ValidateConfig checks all config fields against valid ranges and returns
// human-readable error descriptions. An empty slice means the config is valid.
func ValidateConfig(config *Config) []string {
	var errors []string

	// version
	if config.Version != 1 {
		errors = append(errors, fmt.Sprintf("version: %d (valid: 1)", config.Version))
	}

	// slideshow
	if config.Slideshow < 0 || config.Slideshow > MaxSlideshowSeconds {
		errors = append(errors, fmt.Sprintf("slideshow: %d (valid: 0-%d)", config.Slideshow, MaxSlideshowSeconds))
	}

	// letters
	if !validLetters(config.Letters) {
		errors = append(errors, fmt.Sprintf("letters: %q (valid: letters and digits only)", config.Letters))
	}

	// log.level
	if !contains(validLogLevels, strings.ToLower(config.Log.Level)) {
		errors = append(errors, fmt.Sprintf("log.level: %q (valid: %v)", config.Log.Level, validLogLevels))
	}

	// log.format
	if !contains(validLogFormats, strings.ToLower(config.Log.Format)) {
		errors = append(errors, fmt.Sprintf("log.format: %q (valid: %v)", config.Log.Format, validLogFormats))
	}

	// log.max_size
	if config.Log.MaxSize < 1 {
		errors = append(errors, fmt.Sprintf("log.max_size: %d (valid: >= 1)", config.Log.MaxSize))
	}

	// log.max_backups, log.max_age
	if config.Log.MaxBackups < 0 {
		errors = append(errors, fmt.Sprintf("log.max_backups: %d (valid: >= 0)", config.Log.MaxBackups))
	}
	if config.Log.MaxAge < 0 {
		errors = append(errors, fmt.Sprintf("log.max_age: %d (valid: >= 0)", config.Log.MaxAge))
	}

	return errors
}

// CorrectConfig resets any invalid fields to their defaults from DefaultConfig().
// Valid fields are preserved.
func CorrectConfig(config *Config) *Config {
	defaults := DefaultConfig()

	if config.Version != 1 {
		config.Version = defaults.Version
	}
	if config.Slideshow < 0 || config.Slideshow > MaxSlideshowSeconds {
		config.Slideshow = defaults.Slideshow
	}
	if !validLetters(config.Letters) {
		config.Letters = defaults.Letters
	}
	if !contains(validLogLevels, strings.ToLower(config.Log.Level)) {
		config.Log.Level = defaults.Log.Level
	}
	if !contains(validLogFormats, strings.ToLower(config.Log.Format)) {
		config.Log.Format = defaults.Log.Format
	}
	if config.Log.MaxSize < 1 {
		config.Log.MaxSize = defaults.Log.MaxSize
	}
	if config.Log.MaxBackups < 0 {
		config.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if config.Log.MaxAge < 0 {
		config.Log.MaxAge = defaults.Log.MaxAge
	}

	return config
}

func validLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
