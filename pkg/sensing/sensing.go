// Package sensing bundles the process enumerator, the single-process
// resolver and the foreground window sensor behind one value.
package sensing

import (
	"fmt"
	"strings"

	"github.com/procsense/procsense/pkg/detector"
	"github.com/procsense/procsense/pkg/process"
	"github.com/procsense/procsense/pkg/window"
)

// Sensor answers the three sensing queries for one platform. It holds no
// state between calls and is safe for concurrent use.
type Sensor struct {
	source    process.Source
	window    window.Sensor
	windowErr error
}

// New builds a Sensor from explicit facilities. win may be nil on a headless
// system; CaptureActiveWindow then reports window.ErrUnavailable.
func New(source process.Source, win window.Sensor) *Sensor {
	return &Sensor{source: source, window: win}
}

// NewDefault builds a Sensor from the platform facilities. A missing window
// sensor is not an error: process queries still work without a display.
func NewDefault() (*Sensor, error) {
	source, err := detector.NewProcessSource()
	if err != nil {
		return nil, fmt.Errorf("failed to open process source: %w", err)
	}

	win, werr := detector.New()
	return &Sensor{source: source, window: win, windowErr: werr}, nil
}

// Source returns the underlying process source.
func (s *Sensor) Source() process.Source {
	return s.source
}

// CaptureSnapshot enumerates every visible process.
func (s *Sensor) CaptureSnapshot() *process.Snapshot {
	return process.Capture(s.source)
}

// ReleaseSnapshot invalidates snap. Releasing nil or an already released
// snapshot does nothing.
func (s *Sensor) ReleaseSnapshot(snap *process.Snapshot) {
	snap.Release()
}

// ResolveProcess reads metadata for pid alone. A process that cannot be
// opened yields a record carrying only the pid.
func (s *Sensor) ResolveProcess(pid uint32) process.Record {
	return process.Resolve(s.source, pid)
}

// CaptureActiveWindow samples the foreground window. On any failure the
// sample is zero.
func (s *Sensor) CaptureActiveWindow() (window.Sample, error) {
	if s.window == nil {
		if s.windowErr != nil {
			return window.Sample{}, s.windowErr
		}
		return window.Sample{}, fmt.Errorf("%w: no window sensor configured", window.ErrUnavailable)
	}
	return window.Checked(s.window.CaptureActiveWindow())
}

// DisplayServer names the window sensor in use, or "none".
func (s *Sensor) DisplayServer() string {
	if s.window == nil {
		return "none"
	}
	return s.window.GetDisplayServer()
}

// GetDisplayServer is DisplayServer under the window.Sensor name.
func (s *Sensor) GetDisplayServer() string {
	return s.DisplayServer()
}

// Status describes the window sensor in use. Sensors that report their own
// status, such as the fallback chain on Linux, describe themselves.
func (s *Sensor) Status() string {
	if s.window == nil {
		if s.windowErr != nil {
			return fmt.Sprintf("Window sensor: unavailable (%v)", s.windowErr)
		}
		return "Window sensor: none"
	}
	if st, ok := s.window.(interface{ GetStatus() string }); ok {
		return strings.TrimRight(st.GetStatus(), "\n")
	}
	return fmt.Sprintf("Window sensor: %s (available: %v)", s.window.GetDisplayServer(), s.window.IsAvailable())
}

// IsAvailable reports whether a usable window sensor is configured.
func (s *Sensor) IsAvailable() bool {
	return s.window != nil && s.window.IsAvailable()
}

// Close releases the window sensor.
func (s *Sensor) Close() error {
	if s.window == nil {
		return nil
	}
	return s.window.Close()
}
