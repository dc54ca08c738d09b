package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"snapshot too fast", func(c *Config) { c.Tracker.SnapshotInterval = 500 * time.Millisecond }, "snapshot interval"},
		{"snapshot too slow", func(c *Config) { c.Tracker.SnapshotInterval = time.Hour }, "snapshot interval"},
		{"window too fast", func(c *Config) { c.Tracker.WindowInterval = 10 * time.Millisecond }, "window interval"},
		{"window slower than snapshot", func(c *Config) {
			c.Tracker.SnapshotInterval = 2 * time.Second
			c.Tracker.WindowInterval = 3 * time.Second
		}, "greater than snapshot interval"},
		{"flush faster than window", func(c *Config) { c.Tracker.FlushInterval = 10 * time.Millisecond }, "flush interval"},
		{"negative TTL", func(c *Config) { c.Tracker.CacheTTL = -time.Second }, "cache TTL"},
		{"bad port", func(c *Config) { c.Web.Port = 70000 }, "web port"},
		{"empty host", func(c *Config) { c.Web.Host = "" }, "web host"},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, "PID file"},
		{"retention disabled", func(c *Config) { c.Database.Retention = 0 }, ""},
		{"retention one week", func(c *Config) { c.Database.Retention = 7 * 24 * time.Hour }, ""},
		{"retention under a day", func(c *Config) { c.Database.Retention = time.Hour }, "retention"},
		{"negative retention", func(c *Config) { c.Database.Retention = -time.Hour }, "retention"},
		{"bad time zone", func(c *Config) { c.Report.TimeZone = "Mars/Olympus_Mons" }, "time zone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSetSnapshotInterval(t *testing.T) {
	cfg := Default()

	if err := cfg.SetSnapshotInterval(30 * time.Second); err != nil {
		t.Fatalf("SetSnapshotInterval(30s) error = %v", err)
	}
	if cfg.Tracker.SnapshotInterval != 30*time.Second {
		t.Errorf("SnapshotInterval = %v, want 30s", cfg.Tracker.SnapshotInterval)
	}

	if err := cfg.SetSnapshotInterval(10 * time.Minute); err == nil {
		t.Error("SetSnapshotInterval(10m) accepted an interval above the maximum")
	}
}

func TestSetWebPort(t *testing.T) {
	cfg := Default()

	if err := cfg.SetWebPort(8080); err != nil {
		t.Fatalf("SetWebPort(8080) error = %v", err)
	}
	if err := cfg.SetWebPort(0); err == nil {
		t.Error("SetWebPort(0) accepted an invalid port")
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Web.Port)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROCSENSE_DB_PATH", "/tmp/test.db")
	t.Setenv("PROCSENSE_SNAPSHOT_INTERVAL", "10")
	t.Setenv("PROCSENSE_WINDOW_INTERVAL", "250")
	t.Setenv("PROCSENSE_FLUSH_INTERVAL", "30")
	t.Setenv("PROCSENSE_CACHE_TTL", "750")
	t.Setenv("PROCSENSE_WEB_HOST", "0.0.0.0")
	t.Setenv("PROCSENSE_WEB_PORT", "9090")
	t.Setenv("PROCSENSE_TIMEZONE", "UTC")
	t.Setenv("PROCSENSE_RETENTION_DAYS", "30")

	cfg := New()

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %s", cfg.Database.Path)
	}
	if cfg.Tracker.SnapshotInterval != 10*time.Second {
		t.Errorf("SnapshotInterval = %v, want 10s", cfg.Tracker.SnapshotInterval)
	}
	if cfg.Tracker.WindowInterval != 250*time.Millisecond {
		t.Errorf("WindowInterval = %v, want 250ms", cfg.Tracker.WindowInterval)
	}
	if cfg.Tracker.FlushInterval != 30*time.Second {
		t.Errorf("FlushInterval = %v, want 30s", cfg.Tracker.FlushInterval)
	}
	if cfg.Tracker.CacheTTL != 750*time.Millisecond {
		t.Errorf("CacheTTL = %v, want 750ms", cfg.Tracker.CacheTTL)
	}
	if cfg.Web.Host != "0.0.0.0" || cfg.Web.Port != 9090 {
		t.Errorf("Web = %s:%d", cfg.Web.Host, cfg.Web.Port)
	}
	if cfg.Report.TimeZone != "UTC" {
		t.Errorf("TimeZone = %s", cfg.Report.TimeZone)
	}
	if cfg.Database.Retention != 30*24*time.Hour {
		t.Errorf("Retention = %v, want 720h", cfg.Database.Retention)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFromEnvIgnoresInvalid(t *testing.T) {
	t.Setenv("PROCSENSE_SNAPSHOT_INTERVAL", "9999")
	t.Setenv("PROCSENSE_WINDOW_INTERVAL", "abc")
	t.Setenv("PROCSENSE_WEB_PORT", "-1")

	cfg := New()
	def := Default()

	if cfg.Tracker.SnapshotInterval != def.Tracker.SnapshotInterval {
		t.Errorf("SnapshotInterval = %v, want default", cfg.Tracker.SnapshotInterval)
	}
	if cfg.Tracker.WindowInterval != def.Tracker.WindowInterval {
		t.Errorf("WindowInterval = %v, want default", cfg.Tracker.WindowInterval)
	}
	if cfg.Web.Port != def.Web.Port {
		t.Errorf("Port = %d, want default", cfg.Web.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procsense.toml")
	content := `
[database]
path = "/var/lib/procsense/data.db"
retention = "168h"

[tracker]
snapshot_interval = "15s"
window_interval = "500ms"

[web]
port = 8181
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PROCSENSE_WEB_PORT", "8282")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/procsense/data.db" {
		t.Errorf("Database.Path = %s", cfg.Database.Path)
	}
	if cfg.Database.Retention != 168*time.Hour {
		t.Errorf("Retention = %v, want 168h", cfg.Database.Retention)
	}
	if cfg.Tracker.SnapshotInterval != 15*time.Second {
		t.Errorf("SnapshotInterval = %v, want 15s", cfg.Tracker.SnapshotInterval)
	}
	if cfg.Tracker.WindowInterval != 500*time.Millisecond {
		t.Errorf("WindowInterval = %v, want 500ms", cfg.Tracker.WindowInterval)
	}
	if cfg.Tracker.FlushInterval != 10*time.Second {
		t.Errorf("FlushInterval = %v, want default 10s", cfg.Tracker.FlushInterval)
	}
	if cfg.Web.Port != 8282 {
		t.Errorf("Port = %d, env should override file", cfg.Web.Port)
	}
}

func TestLoadFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.toml")
	if err := os.WriteFile(path, []byte("[web]\nhost = \"127.0.0.1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Web.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Web.Host)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("Load() accepted a missing file")
	}

	unknown := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknown, []byte("[tracker]\npoll = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(unknown); err == nil || !strings.Contains(err.Error(), "unknown config keys") {
		t.Errorf("Load() error = %v, want unknown keys", err)
	}

	broken := filepath.Join(dir, "broken.toml")
	if err := os.WriteFile(broken, []byte("[tracker\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(broken); err == nil {
		t.Error("Load() accepted malformed TOML")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.toml")
	cfg := Default()
	cfg.Tracker.SnapshotInterval = 20 * time.Second
	cfg.Web.Port = 8383

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Tracker.SnapshotInterval != 20*time.Second || loaded.Web.Port != 8383 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
