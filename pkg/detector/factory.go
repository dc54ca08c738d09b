// Package detector picks the window sensor and process source for the
// running platform.
package detector

import (
	"os"

	"github.com/procsense/procsense/pkg/process"
	"github.com/procsense/procsense/pkg/window"
)

// New returns the foreground window sensor for this platform and session.
func New() (window.Sensor, error) {
	return newWindowSensor()
}

// NewProcessSource returns the process enumeration facility for this
// platform.
func NewProcessSource() (process.Source, error) {
	return newProcessSource()
}

// DetectDisplayServer guesses the session type from the environment.
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
