package config

import (
	"os"
	"strconv"
	"time"
)

// ConfigFileEnv names the variable holding an optional TOML config path.
const ConfigFileEnv = "PROCSENSE_CONFIG"

// LoadFromEnv loads configuration from environment variables
// Environment variables override default and file values
func LoadFromEnv(cfg *Config) {
	// Database configuration
	if dbPath := os.Getenv("PROCSENSE_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if v, ok := envDuration("PROCSENSE_RETENTION_DAYS", 24*time.Hour); ok {
		cfg.Database.Retention = v
	}

	// Tracker configuration
	if v, ok := envDuration("PROCSENSE_SNAPSHOT_INTERVAL", time.Second); ok {
		if v >= MinSnapshotInterval && v <= MaxSnapshotInterval {
			cfg.Tracker.SnapshotInterval = v
		}
	}

	if v, ok := envDuration("PROCSENSE_WINDOW_INTERVAL", time.Millisecond); ok {
		if v >= MinWindowInterval && v <= MaxWindowInterval {
			cfg.Tracker.WindowInterval = v
		}
	}

	if v, ok := envDuration("PROCSENSE_FLUSH_INTERVAL", time.Second); ok {
		cfg.Tracker.FlushInterval = v
	}

	if v, ok := envDuration("PROCSENSE_CACHE_TTL", time.Millisecond); ok {
		cfg.Tracker.CacheTTL = v
	}

	// Daemon configuration
	if pidFile := os.Getenv("PROCSENSE_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	// Report configuration
	if timeZone := os.Getenv("PROCSENSE_TIMEZONE"); timeZone != "" {
		cfg.Report.TimeZone = timeZone
	}

	// Web configuration
	if webHost := os.Getenv("PROCSENSE_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("PROCSENSE_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// envDuration reads a positive integer count of unit.
func envDuration(key string, unit time.Duration) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
