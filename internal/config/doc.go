// Package config handles loading and validation of savesync configuration.
//
// Configuration is read from ~/.config/savesync/config.toml (or the file
// named by SAVESYNC_CONFIG) with environment variable overrides for every
// setting.
//
// # Configuration Sources (highest priority first)
//
//   - SAVESYNC_* env vars, e.g. SAVESYNC_SERVER_URL, SAVESYNC_CACHE_BACKEND
//   - Config file settings
//   - Default values
//
// # Key Settings
//
//   - server_url: Base URL of the save service
//   - data_dir: Caches, local slots and identity file (default: ~/.savesync)
//   - identity: Fallback identity when none was set explicitly
//   - cache.backend: "file", "badger", "sqlite", or "memory"
//   - cache.freshness: Hit window for cached reads (default: 60s)
//   - autosave.debounce / autosave.interval: Autosave cadence
//
// Durations use Go syntax ("2s", "1h").
//
// # Path Validation
//
// data_dir must be absolute or start with ~ (no relative paths like "."
// or "..") to avoid confusion about the working directory.
package config
