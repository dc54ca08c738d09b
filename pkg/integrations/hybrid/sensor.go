package hybrid

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/procsense/procsense/pkg/window"
)

// Sensor tries a list of sensors in order. A sensor that reports no active
// window ends the attempt; any other failure falls through to the next one,
// so a GNOME session that refuses Shell.Eval can still be read over
// XWayland.
type Sensor struct {
	sensors []window.Sensor

	mu                   sync.Mutex
	lastSuccessfulMethod string
}

// NewSensor wraps the available sensors, in priority order.
func NewSensor(candidates ...window.Sensor) (*Sensor, error) {
	s := &Sensor{}
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if !c.IsAvailable() {
			log.Printf("Window sensor unavailable: %s", c.GetDisplayServer())
			continue
		}
		s.sensors = append(s.sensors, c)
	}

	if len(s.sensors) == 0 {
		return nil, fmt.Errorf("%w: no window sensor available", window.ErrUnavailable)
	}

	log.Printf("Window sensor initialized: %s", s.GetDisplayServer())
	return s, nil
}

// CaptureActiveWindow returns the first definitive answer.
func (s *Sensor) CaptureActiveWindow() (window.Sample, error) {
	var errs []error

	for _, sensor := range s.sensors {
		sample, err := window.Checked(sensor.CaptureActiveWindow())
		if err == nil {
			s.setLast(sensor.GetDisplayServer())
			return sample, nil
		}
		if errors.Is(err, window.ErrNoActiveWindow) {
			return window.Sample{}, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", sensor.GetDisplayServer(), err))
	}

	return window.Sample{}, errors.Join(errs...)
}

// IsAvailable reports whether any wrapped sensor is available.
func (s *Sensor) IsAvailable() bool {
	for _, sensor := range s.sensors {
		if sensor.IsAvailable() {
			return true
		}
	}
	return false
}

// GetDisplayServer names the preferred sensor.
func (s *Sensor) GetDisplayServer() string {
	if len(s.sensors) == 0 {
		return "none"
	}
	return s.sensors[0].GetDisplayServer()
}

// LastSuccessfulMethod is the display server of the last sensor that
// produced a sample.
func (s *Sensor) LastSuccessfulMethod() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccessfulMethod
}

func (s *Sensor) setLast(method string) {
	s.mu.Lock()
	s.lastSuccessfulMethod = method
	s.mu.Unlock()
}

// GetStatus describes the wrapped sensors. Wayland sensors also name their
// compositor.
func (s *Sensor) GetStatus() string {
	var b strings.Builder
	b.WriteString("Window Sensor Status:\n")
	for i, sensor := range s.sensors {
		name := sensor.GetDisplayServer()
		if c, ok := sensor.(interface{ Compositor() string }); ok {
			name = fmt.Sprintf("%s (%s)", name, c.Compositor())
		}
		fmt.Fprintf(&b, "  [%d] %s (available: %v)\n", i, name, sensor.IsAvailable())
	}
	fmt.Fprintf(&b, "  Last successful method: %s\n", s.LastSuccessfulMethod())
	return b.String()
}

// Close closes every wrapped sensor.
func (s *Sensor) Close() error {
	for _, sensor := range s.sensors {
		if err := sensor.Close(); err != nil {
			log.Printf("Error closing window sensor: %v", err)
		}
	}
	return nil
}
