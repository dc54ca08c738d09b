//go:build windows

package detector

import (
	"github.com/procsense/procsense/pkg/integrations/hybrid"
	"github.com/procsense/procsense/pkg/integrations/win32"
	"github.com/procsense/procsense/pkg/window"
)

func newWindowSensor() (window.Sensor, error) {
	s, err := hybrid.NewSensor(win32.NewSensor())
	if err != nil {
		return nil, err
	}
	return s, nil
}
