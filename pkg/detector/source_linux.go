//go:build linux

package detector

import (
	"log"

	"github.com/procsense/procsense/pkg/integrations/procfs"
	"github.com/procsense/procsense/pkg/integrations/psutil"
	"github.com/procsense/procsense/pkg/process"
)

func newProcessSource() (process.Source, error) {
	src, err := procfs.NewSource()
	if err != nil {
		log.Printf("procfs unavailable, falling back to gopsutil: %v", err)
		return psutil.NewSource(), nil
	}
	return src, nil
}
