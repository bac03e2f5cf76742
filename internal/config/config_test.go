package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"), map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server_url = "https://saves.example.com"
identity = "guest"

[cache]
backend = "sqlite"
freshness = "30s"
max_bytes = 1024

[autosave]
debounce = "500ms"
interval = "0s"
slot = 3

[remote]
timeout = "5s"
rate_limit = 2.5
burst = 4

[log]
verbose = true
`)

	cfg, err := LoadFrom(path, map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	want := Default()
	want.ServerURL = "https://saves.example.com"
	want.Identity = "guest"
	want.Cache.Backend = "sqlite"
	want.Cache.Freshness = 30 * time.Second
	want.Cache.MaxBytes = 1024
	want.Autosave = AutosaveConfig{Debounce: 500 * time.Millisecond, Interval: 0, Slot: 3}
	want.Remote = RemoteConfig{Timeout: 5 * time.Second, RateLimit: 2.5, Burst: 4}
	want.Log.Verbose = true

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server_url = "https://file.example.com"
[cache]
backend = "badger"
`)
	cfg, err := LoadFrom(path, map[string]string{
		"SAVESYNC_SERVER_URL":        "https://env.example.com",
		"SAVESYNC_CACHE_BACKEND":     "memory",
		"SAVESYNC_AUTOSAVE_DEBOUNCE": "1s",
		"SAVESYNC_IDENTITY":          "u-env",
		"SAVESYNC_REMOTE_RATE_LIMIT": "10",
		"UNRELATED_CACHE_BACKEND":    "sqlite",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.ServerURL != "https://env.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Autosave.Debounce != time.Second {
		t.Errorf("Autosave.Debounce = %s, want 1s", cfg.Autosave.Debounce)
	}
	if cfg.Identity != "u-env" {
		t.Errorf("Identity = %q", cfg.Identity)
	}
	if cfg.Remote.RateLimit != 10 {
		t.Errorf("Remote.RateLimit = %v", cfg.Remote.RateLimit)
	}
}

func TestLoadFrom_ExpandsDataDir(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := LoadFrom("", map[string]string{"SAVESYNC_DATA_DIR": "~/games/saves"})
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if want := filepath.Join(home, "games", "saves"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "bad toml",
			file:    `server_url = `,
			wantErr: "failed to parse config file",
		},
		{
			name:    "unknown backend",
			file:    "[cache]\nbackend = \"redis\"",
			wantErr: `invalid cache.backend "redis": must be "file", "badger", "sqlite", or "memory"`,
		},
		{
			name:    "unknown theme",
			file:    "[ui]\ntheme = \"neon\"",
			wantErr: `invalid ui.theme "neon"`,
		},
		{
			name:    "relative data dir",
			file:    `data_dir = "./saves"`,
			wantErr: "data_dir must be absolute or start with ~",
		},
		{
			name:    "not a url",
			file:    `server_url = "saves example"`,
			wantErr: "invalid server_url",
		},
		{
			name:    "slot zero",
			file:    "[autosave]\nslot = 0",
			wantErr: "invalid autosave.slot",
		},
		{
			name:    "negative quota",
			env:     map[string]string{"SAVESYNC_CACHE_MAX_BYTES": "-1"},
			wantErr: "invalid cache.max_bytes",
		},
		{
			name:    "freshness beyond stale_after",
			file:    "[cache]\nfreshness = \"2h\"\nstale_after = \"1h\"",
			wantErr: "must not exceed cache.stale_after",
		},
		{
			name:    "bad env duration",
			env:     map[string]string{"SAVESYNC_REMOTE_TIMEOUT": "soon"},
			wantErr: "parse env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			env := tt.env
			if env == nil {
				env = map[string]string{}
			}

			cfg, err := LoadFrom(path, env)
			if err == nil {
				t.Fatal("LoadFrom() succeeded")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
			if diff := cmp.Diff(Default(), cfg); diff != "" {
				t.Errorf("config on error is not Default() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		wantErr bool
	}{
		{"", false},
		{"~", false},
		{"~/saves", false},
		{"/var/lib/savesync", false},
		{".", true},
		{"../saves", true},
		{"saves", true},
	}
	for _, tt := range tests {
		if err := ValidatePath(tt.path, "data_dir"); (err != nil) != tt.wantErr {
			t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}

func TestFormatOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		opts []string
		want string
	}{
		{[]string{"a"}, `"a"`},
		{[]string{"a", "b"}, `"a" or "b"`},
		{[]string{"a", "b", "c"}, `"a", "b", or "c"`},
	}
	for _, tt := range tests {
		if got := formatOptions(tt.opts); got != tt.want {
			t.Errorf("formatOptions(%v) = %s, want %s", tt.opts, got, tt.want)
		}
	}
}

func TestValidateBackend(t *testing.T) {
	t.Parallel()

	for _, b := range ValidBackends {
		if err := ValidateBackend(b); err != nil {
			t.Errorf("ValidateBackend(%q) error = %v", b, err)
		}
	}
	if err := ValidateBackend("redis"); err == nil {
		t.Error("ValidateBackend(redis) succeeded")
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("SAVESYNC_CONFIG", path)

	got, err := Init(false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got != path {
		t.Errorf("Init() path = %q, want %q", got, path)
	}

	// the template must load cleanly and match the defaults
	cfg, err := LoadFrom(path, map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom(template) error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("template config (-want +got):\n%s", diff)
	}

	if _, err := Init(false); err == nil {
		t.Error("Init() overwrote an existing file without force")
	}
	if _, err := Init(true); err != nil {
		t.Errorf("Init(force) error = %v", err)
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	if got := FromContext(context.Background()); got.Cache.Backend != DefaultBackend {
		t.Errorf("FromContext(empty).Cache.Backend = %q", got.Cache.Backend)
	}

	cfg := Default()
	cfg.Identity = "u1"
	ctx := WithConfig(context.Background(), &cfg)
	if got := FromContext(ctx); got != &cfg {
		t.Error("FromContext() did not return the attached config")
	}
}
