package config_test

import (
	"fmt"
	"time"

	"github.com/procsense/procsense/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Snapshot Interval:", cfg.Tracker.SnapshotInterval)
	fmt.Println("Window Interval:", cfg.Tracker.WindowInterval)
	fmt.Println("Cache TTL:", cfg.Tracker.CacheTTL)
	// Output:
	// Snapshot Interval: 5s
	// Window Interval: 1s
	// Cache TTL: 500ms
}

// Example of creating configuration with environment variables
func ExampleNew() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	fmt.Println("Configuration loaded successfully")
	// Output:
	// Configuration loaded successfully
}

// Example of setting the window interval with validation
func ExampleConfig_SetWindowInterval() {
	cfg := config.Default()

	// Valid interval
	if err := cfg.SetWindowInterval(250 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Window interval set to:", cfg.Tracker.WindowInterval)
	}

	// Invalid interval (too low)
	if err := cfg.SetWindowInterval(50 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Window interval set to: 250ms
	// Error: window interval cannot be less than 100ms
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	// Output:
	// Configuration is valid
}
