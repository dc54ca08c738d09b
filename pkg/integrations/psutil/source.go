// Package psutil is a process.Source backed by gopsutil, for platforms
// without a dedicated enumeration facility.
package psutil

import (
	"context"
	"fmt"
	"os"

	ps "github.com/shirou/gopsutil/v3/process"

	"github.com/procsense/procsense/pkg/process"
)

// Source lists processes through gopsutil. Creation times have millisecond
// resolution.
type Source struct {
	ctx context.Context
}

// NewSource creates a gopsutil-backed source.
func NewSource() *Source {
	return &Source{ctx: context.Background()}
}

// OpenTable returns a cursor that re-lists pids on each Rewind.
func (s *Source) OpenTable() (process.Table, error) {
	return &table{ctx: s.ctx}, nil
}

// OpenProcess looks the pid up. The returned handle does not pin the
// process; its queries fail once it exits.
func (s *Source) OpenProcess(pid uint32) (process.Handle, error) {
	p, err := ps.NewProcessWithContext(s.ctx, int32(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	return &handle{ctx: s.ctx, proc: p}, nil
}

// Separators returns the host path separators.
func (s *Source) Separators() string {
	return separators()
}

func separators() string {
	if os.PathSeparator != '/' {
		return string(os.PathSeparator) + "/"
	}
	return "/"
}

type table struct {
	ctx  context.Context
	pids []int32
	pos  int
}

func (t *table) Rewind() bool {
	pids, err := ps.PidsWithContext(t.ctx)
	if err != nil {
		return false
	}
	t.pids = pids
	t.pos = 0
	return true
}

func (t *table) Next() (process.Entry, bool) {
	for t.pos < len(t.pids) {
		pid := t.pids[t.pos]
		t.pos++

		p, err := ps.NewProcessWithContext(t.ctx, pid)
		if err != nil {
			continue
		}
		ppid, _ := p.PpidWithContext(t.ctx)

		return process.Entry{PID: uint32(pid), ParentPID: uint32(ppid), Name: entryName(t.ctx, p)}, true
	}
	return process.Entry{}, false
}

// entryName prefers the base of the executable path, which is what Resolve
// reports, over the possibly truncated process name.
func entryName(ctx context.Context, p *ps.Process) string {
	if exe, err := p.ExeWithContext(ctx); err == nil && exe != "" {
		if base := process.BaseName(exe, separators()); base != exe {
			return base
		}
	}
	name, _ := p.NameWithContext(ctx)
	return name
}

func (t *table) Close() error {
	t.pids = nil
	return nil
}

type handle struct {
	ctx  context.Context
	proc *ps.Process
}

func (h *handle) StartTimeNanos() (uint64, error) {
	ms, err := h.proc.CreateTimeWithContext(h.ctx)
	if err != nil {
		return 0, err
	}
	if ms < 0 {
		return 0, fmt.Errorf("negative creation time %d", ms)
	}
	return uint64(ms) * 1_000_000, nil
}

func (h *handle) ImagePath() (string, error) {
	return h.proc.ExeWithContext(h.ctx)
}

func (h *handle) Close() error {
	return nil
}
