package window

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveWindow means no window has focus, or its owner is unknown.
	// It marks "nothing to report this cycle", not malformed data.
	ErrNoActiveWindow = errors.New("no active window")

	// ErrUnavailable means the sensor cannot run on this system.
	ErrUnavailable = errors.New("window sensor unavailable")
)

// Sample is the owner and caption of the foreground window at one instant.
type Sample struct {
	PID           uint32 `json:"pid"`
	Title         string `json:"title"`
	DisplayServer string `json:"display_server"` // "win32", "x11" or "wayland"
}

// Sensor is the interface that all foreground window implementations must satisfy
type Sensor interface {
	// CaptureActiveWindow returns the focused window's owner pid and title.
	// It fails with an error wrapping ErrNoActiveWindow when there is nothing
	// to report; a nil error always comes with a non-zero PID.
	CaptureActiveWindow() (Sample, error)

	// IsAvailable checks if this sensor can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server this sensor reads from
	GetDisplayServer() string

	// Close cleans up any resources used by the sensor
	Close() error
}

// NoActiveWindow builds the failure return for a sensor, wrapping
// ErrNoActiveWindow with the reason.
func NoActiveWindow(format string, args ...any) (Sample, error) {
	return Sample{}, fmt.Errorf("%w: %s", ErrNoActiveWindow, fmt.Sprintf(format, args...))
}

// Checked enforces the sensor contract on a raw capture result: a sample
// without an owner pid becomes ErrNoActiveWindow, and any failure yields the
// zero sample.
func Checked(s Sample, err error) (Sample, error) {
	if err != nil {
		return Sample{}, err
	}
	if s.PID == 0 {
		return NoActiveWindow("foreground window owner unknown")
	}
	return s, nil
}
