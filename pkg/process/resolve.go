package process

import (
	"strings"

	"github.com/procsense/procsense/pkg/fixedtext"
)

// Resolve fetches fresh metadata for a pid the caller already knows about,
// without enumerating the table. When the process is gone or cannot be opened
// the record carries only the pid.
func Resolve(src Source, pid uint32) Record {
	rec := Record{PID: pid}
	if pid == 0 {
		return rec
	}
	h, err := src.OpenProcess(pid)
	if err != nil || h == nil {
		return rec
	}
	defer h.Close()

	rec.StartTimeNanos, _ = h.StartTimeNanos()
	if path, err := h.ImagePath(); err == nil && path != "" {
		rec.ExePath = fixedtext.String(path, fixedtext.PathCapacity)
		rec.Name = fixedtext.String(BaseName(rec.ExePath, src.Separators()), fixedtext.NameCapacity)
	}
	return rec
}

// BaseName returns the component after the last of seps in path, or path
// itself when it contains none of them.
func BaseName(path, seps string) string {
	if seps == "" {
		return path
	}
	i := strings.LastIndexAny(path, seps)
	if i < 0 {
		return path
	}
	if i == len(path)-1 {
		// trailing separator
		return path
	}
	return path[i+1:]
}
