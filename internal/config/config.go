package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/snapetech/playlist-dedup/internal/catalog"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PLAYLIST_DEDUP_"

// Config holds run settings. Precedence: defaults < TOML file < environment < flags
// (flags are applied by the caller).
type Config struct {
	// Output
	Format string `toml:"format"` // "plus" (keep attributes) or "plain"
	Backup bool   `toml:"backup"` // copy the input to <input>.bak before overwriting
	Report string `toml:"report"` // "table", "json" or "yaml"

	// Interaction
	AssumeYes bool `toml:"assume_yes"` // skip the overwrite prompt

	// Logging
	LogLevel  string `toml:"log_level"`  // zerolog level name; -v forces debug
	LogFormat string `toml:"log_format"` // "auto", "console" or "json"

	// Optional run records. Empty disables.
	HistoryDB   string `toml:"history_db"`   // SQLite file with one row per run and per removed entry
	MetricsFile string `toml:"metrics_file"` // Prometheus textfile-collector output
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Format:    string(catalog.FormatPlus),
		Report:    "table",
		LogLevel:  "info",
		LogFormat: "auto",
	}
}

// Load builds the config from defaults, the TOML file at path (or PLAYLIST_DEDUP_CONFIG
// when path is empty) and environment overrides. Call LoadEnvFile(".env") first to use
// a .env file.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) loadFile(path string) error {
	path = filepath.Clean(expandHome(path))
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Format = getEnv(EnvPrefix+"FORMAT", c.Format)
	c.Backup = getEnvBool(EnvPrefix+"BACKUP", c.Backup)
	c.Report = getEnv(EnvPrefix+"REPORT", c.Report)
	c.AssumeYes = getEnvBool(EnvPrefix+"ASSUME_YES", c.AssumeYes)
	c.LogLevel = getEnv(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv(EnvPrefix+"LOG_FORMAT", c.LogFormat)
	c.HistoryDB = expandHome(getEnv(EnvPrefix+"HISTORY_DB", c.HistoryDB))
	c.MetricsFile = expandHome(getEnv(EnvPrefix+"METRICS_FILE", c.MetricsFile))
}

// Validate rejects unknown enum values.
func (c *Config) Validate() error {
	var errs []error
	if _, err := catalog.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Report) {
	case "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("unknown report format %q (want table, json or yaml)", c.Report))
	}
	switch strings.ToLower(c.LogFormat) {
	case "auto", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want auto, console or json)", c.LogFormat))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	return errors.Join(errs...)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}
