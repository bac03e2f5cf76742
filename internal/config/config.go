package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SAVESYNC_"

// Defaults for settings left unset.
const (
	DefaultBackend    = "file"
	DefaultFreshness  = 60 * time.Second
	DefaultStaleAfter = time.Hour
	DefaultMaxBytes   = 5 << 20
	DefaultDebounce   = 2 * time.Second
	DefaultInterval   = 30 * time.Second
	DefaultSlot       = 1
	DefaultTimeout    = 10 * time.Second
)

// CacheConfig selects and sizes the local cache.
type CacheConfig struct {
	Backend    string        `toml:"backend" env:"BACKEND"`
	Freshness  time.Duration `toml:"freshness" env:"FRESHNESS" validate:"gte=0"`
	StaleAfter time.Duration `toml:"stale_after" env:"STALE_AFTER" validate:"gte=0"`
	MaxBytes   int64         `toml:"max_bytes" env:"MAX_BYTES" validate:"gte=0"`
}

// AutosaveConfig holds the autosave cadence and the slot it writes.
type AutosaveConfig struct {
	Debounce time.Duration `toml:"debounce" env:"DEBOUNCE" validate:"gte=0"`
	Interval time.Duration `toml:"interval" env:"INTERVAL" validate:"gte=0"` // 0 disables the interval trigger
	Slot     int           `toml:"slot" env:"SLOT" validate:"gte=1"`
}

// RemoteConfig tunes the HTTP client.
type RemoteConfig struct {
	Timeout   time.Duration `toml:"timeout" env:"TIMEOUT" validate:"gte=0"`
	RateLimit float64       `toml:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"` // requests per second, 0 = unlimited
	Burst     int           `toml:"burst" env:"BURST" validate:"gte=0"`
}

// LogConfig controls logging.
type LogConfig struct {
	Verbose bool `toml:"verbose" env:"VERBOSE"`
}

// UIConfig selects the CLI color theme.
type UIConfig struct {
	Theme string `toml:"theme" env:"THEME"` // "default", "nord", "gruvbox", "dracula", or "none"
	Mode  string `toml:"mode" env:"MODE"`   // "auto", "light", or "dark"
}

// Config is the savesync configuration.
type Config struct {
	ServerURL string         `toml:"server_url" env:"SERVER_URL" validate:"omitempty,url"`
	DataDir   string         `toml:"data_dir" env:"DATA_DIR"`
	Identity  string         `toml:"identity" env:"IDENTITY"`
	Cache     CacheConfig    `toml:"cache" envPrefix:"CACHE_"`
	Autosave  AutosaveConfig `toml:"autosave" envPrefix:"AUTOSAVE_"`
	Remote    RemoteConfig   `toml:"remote" envPrefix:"REMOTE_"`
	Log       LogConfig      `toml:"log" envPrefix:"LOG_"`
	UI        UIConfig       `toml:"ui" envPrefix:"UI_"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Backend:    DefaultBackend,
			Freshness:  DefaultFreshness,
			StaleAfter: DefaultStaleAfter,
			MaxBytes:   DefaultMaxBytes,
		},
		Autosave: AutosaveConfig{
			Debounce: DefaultDebounce,
			Interval: DefaultInterval,
			Slot:     DefaultSlot,
		},
		Remote: RemoteConfig{
			Timeout: DefaultTimeout,
		},
	}
}

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil // Empty is allowed (means default)
	}
	if path[0] == '~' {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// Path returns the config file location: $SAVESYNC_CONFIG, or
// ~/.config/savesync/config.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return storage.ExpandHome(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "savesync", "config.toml"), nil
}

// Load reads the config file and applies SAVESYNC_* environment overrides.
// A missing file is not an error.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		path = ""
	}
	return LoadFrom(path, nil)
}

// LoadFrom reads the config file at path (skipped when empty or missing)
// and overlays environ, which defaults to the process environment when nil.
func LoadFrom(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Default(), fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Default(), fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := parseEnv(&cfg, environ); err != nil {
		return Default(), err
	}

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}

	// Expand ~ in data_dir (shell doesn't expand in config files)
	if cfg.DataDir != "" {
		expanded, err := storage.ExpandHome(cfg.DataDir)
		if err != nil {
			return Default(), fmt.Errorf("expand data_dir: %w", err)
		}
		cfg.DataDir = expanded
	}

	// Use defaults for empty values
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultBackend
	}

	return cfg, nil
}

func parseEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks field ranges and enum values.
func (c Config) Validate() error {
	if err := ValidatePath(c.DataDir, "data_dir"); err != nil {
		return err
	}
	if err := validateEnum(c.Cache.Backend, "cache.backend", ValidBackends); err != nil {
		return err
	}
	if err := validateEnum(c.UI.Theme, "ui.theme", ValidThemeNames); err != nil {
		return err
	}
	if err := validateEnum(c.UI.Mode, "ui.mode", ValidThemeModes); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: %s", fieldName(verrs[0]), describe(verrs[0]))
		}
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Cache.StaleAfter > 0 && c.Cache.Freshness > c.Cache.StaleAfter {
		return fmt.Errorf("cache.freshness (%s) must not exceed cache.stale_after (%s)",
			c.Cache.Freshness, c.Cache.StaleAfter)
	}
	return nil
}

const defaultConfig = `# savesync configuration
# Every setting can be overridden with an environment variable:
# SAVESYNC_<SETTING>, e.g. SAVESYNC_SERVER_URL or SAVESYNC_CACHE_BACKEND.
# Point SAVESYNC_CONFIG at another file to use it instead of this one.

# Base URL of the save service. Requests go to {server_url}/api/{action}.
# server_url = "https://saves.example.com"

# Where caches, local slots and the identity file live (default: ~/.savesync)
# data_dir = "~/.savesync"

# Identity used when none has been set with "savesync identity set"
# identity = "guest"

[cache]
# Storage backend: "file", "badger", "sqlite", or "memory"
backend = "file"
# Entries younger than this are served without asking the service
freshness = "60s"
# Entries older than this are evicted when storage is full
stale_after = "1h"
# Storage quota in bytes (0 = unlimited)
max_bytes = 5242880

[autosave]
# Quiet period after a progress change before it is pushed
debounce = "2s"
# Periodic save while running ("0s" disables)
interval = "30s"
# Save slot written by autosave and loaded at startup
slot = 1

[remote]
timeout = "10s"
# Requests per second (0 = unlimited) and burst size
# rate_limit = 5.0
# burst = 5

[log]
verbose = false

[ui]
# Color theme: "default", "nord", "gruvbox", "dracula", or "none"
# theme = "default"
# "auto" follows the terminal background; "light" or "dark" force a variant
# mode = "auto"
`

// Template returns the commented default config file.
func Template() string { return defaultConfig }

// Init creates a default config file at Path().
// If force is true, overwrites existing file
// Returns the path to the created file
func Init(force bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", errors.New("config file already exists: " + path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
