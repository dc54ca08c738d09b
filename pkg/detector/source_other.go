//go:build !linux && !windows

package detector

import (
	"github.com/procsense/procsense/pkg/integrations/psutil"
	"github.com/procsense/procsense/pkg/process"
)

func newProcessSource() (process.Source, error) {
	return psutil.NewSource(), nil
}
