//go:build windows

package detector

import (
	"github.com/procsense/procsense/pkg/integrations/toolhelp"
	"github.com/procsense/procsense/pkg/process"
)

func newProcessSource() (process.Source, error) {
	return toolhelp.NewSource(), nil
}
