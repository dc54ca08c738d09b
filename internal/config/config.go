package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Interval bounds enforced by Validate and the setters.
const (
	MinSnapshotInterval = 1 * time.Second
	MaxSnapshotInterval = 300 * time.Second
	MinWindowInterval   = 100 * time.Millisecond
	MaxWindowInterval   = 60 * time.Second
	MinRetention        = 24 * time.Hour
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Tracker configuration
	Tracker TrackerConfig `toml:"tracker"`

	// Daemon configuration
	Daemon DaemonConfig `toml:"daemon"`

	// Report configuration
	Report ReportConfig `toml:"report"`

	// Web server configuration
	Web WebConfig `toml:"web"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path      string        `toml:"path"`      // Path to SQLite database file
	Retention time.Duration `toml:"retention"` // Samples older than this are pruned; 0 keeps everything
}

// TrackerConfig holds sampling behavior configuration
type TrackerConfig struct {
	SnapshotInterval time.Duration `toml:"snapshot_interval"` // How often to enumerate all processes
	WindowInterval   time.Duration `toml:"window_interval"`   // How often to sample the foreground window
	FlushInterval    time.Duration `toml:"flush_interval"`    // How often accumulated focus time is written
	CacheTTL         time.Duration `toml:"cache_ttl"`         // How long a snapshot may be reused by lookups
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `toml:"pid_file"` // Path to PID file for daemon management
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	TimeZone string `toml:"time_zone"` // Location used for day/week/month boundaries
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `toml:"host"` // Host to bind web server to
	Port int    `toml:"port"` // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/procsense/procsense.db
		},
		Tracker: TrackerConfig{
			SnapshotInterval: 5 * time.Second,
			WindowInterval:   1 * time.Second,
			FlushInterval:    10 * time.Second,
			CacheTTL:         500 * time.Millisecond,
		},
		Daemon: DaemonConfig{
			PIDFile: filepath.Join(os.TempDir(), fmt.Sprintf("procsense-%d.pid", os.Getuid())),
		},
		Report: ReportConfig{
			TimeZone: "Local",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: defaultPort(),
		},
	}
}

// defaultPort derives a per-user port; Getuid is -1 on Windows.
func defaultPort() int {
	uid := os.Getuid()
	if uid < 0 {
		return 10000
	}
	return 10000 + uid%50000
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	t := c.Tracker

	if t.SnapshotInterval < MinSnapshotInterval || t.SnapshotInterval > MaxSnapshotInterval {
		return fmt.Errorf("snapshot interval (%v) must be between %v and %v",
			t.SnapshotInterval, MinSnapshotInterval, MaxSnapshotInterval)
	}

	if t.WindowInterval < MinWindowInterval || t.WindowInterval > MaxWindowInterval {
		return fmt.Errorf("window interval (%v) must be between %v and %v",
			t.WindowInterval, MinWindowInterval, MaxWindowInterval)
	}

	if t.WindowInterval > t.SnapshotInterval {
		return fmt.Errorf("window interval (%v) cannot be greater than snapshot interval (%v)",
			t.WindowInterval, t.SnapshotInterval)
	}

	if t.FlushInterval < t.WindowInterval {
		return fmt.Errorf("flush interval (%v) cannot be less than window interval (%v)",
			t.FlushInterval, t.WindowInterval)
	}

	if t.CacheTTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}

	if r := c.Database.Retention; r != 0 && r < MinRetention {
		return fmt.Errorf("retention (%v) must be 0 or at least %v", r, MinRetention)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid report time zone %q: %w", c.Report.TimeZone, err)
	}

	return nil
}

// SetSnapshotInterval sets the snapshot interval with validation
func (c *Config) SetSnapshotInterval(interval time.Duration) error {
	if interval < MinSnapshotInterval {
		return fmt.Errorf("snapshot interval cannot be less than %v", MinSnapshotInterval)
	}
	if interval > MaxSnapshotInterval {
		return fmt.Errorf("snapshot interval cannot be greater than %v", MaxSnapshotInterval)
	}
	c.Tracker.SnapshotInterval = interval
	return nil
}

// SetWindowInterval sets the window sampling interval with validation
func (c *Config) SetWindowInterval(interval time.Duration) error {
	if interval < MinWindowInterval {
		return fmt.Errorf("window interval cannot be less than %v", MinWindowInterval)
	}
	if interval > MaxWindowInterval {
		return fmt.Errorf("window interval cannot be greater than %v", MaxWindowInterval)
	}
	if interval > c.Tracker.SnapshotInterval {
		return fmt.Errorf("window interval cannot be greater than snapshot interval %v", c.Tracker.SnapshotInterval)
	}
	c.Tracker.WindowInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Location resolves the report time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.TimeZone == "" || c.Report.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.TimeZone)
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
    Retention: %v
  Tracker:
    Snapshot Interval: %v
    Window Interval: %v
    Flush Interval: %v
    Cache TTL: %v
  Daemon:
    PID File: %s
  Report:
    Time Zone: %s
  Web:
    Host: %s
    Port: %d`,
		c.Database.Path,
		c.Database.Retention,
		c.Tracker.SnapshotInterval,
		c.Tracker.WindowInterval,
		c.Tracker.FlushInterval,
		c.Tracker.CacheTTL,
		c.Daemon.PIDFile,
		c.Report.TimeZone,
		c.Web.Host,
		c.Web.Port,
	)
}
