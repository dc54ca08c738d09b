//go:build !windows

package detector

import (
	"fmt"

	"github.com/procsense/procsense/pkg/integrations/hybrid"
	"github.com/procsense/procsense/pkg/integrations/wayland"
	"github.com/procsense/procsense/pkg/integrations/x11"
	"github.com/procsense/procsense/pkg/window"
)

func newWindowSensor() (window.Sensor, error) {
	var candidates []window.Sensor

	switch ds := DetectDisplayServer(); ds {
	case "wayland":
		// XWayland covers compositors without a focus query
		candidates = []window.Sensor{wayland.NewSensor(), x11.NewSensor("")}
	case "x11":
		candidates = []window.Sensor{x11.NewSensor("")}
	default:
		return nil, fmt.Errorf("%w: display server %s", window.ErrUnavailable, ds)
	}

	s, err := hybrid.NewSensor(candidates...)
	if err != nil {
		return nil, err
	}
	return s, nil
}
