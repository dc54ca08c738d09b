// Package daemon manages the PID file of a background tracker. The file
// holds the "<pid>-<startTimeNanos>" identity of the owning process, so a
// pid reused by an unrelated program is recognised as stale.
package daemon

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/procsense/procsense/pkg/process"
)

// Daemon owns one PID file.
type Daemon struct {
	pidFile string
	source  process.Source
}

// New returns a Daemon for pidFile that checks liveness through source.
func New(pidFile string, source process.Source) *Daemon {
	return &Daemon{pidFile: pidFile, source: source}
}

// WritePID records the identity of the current process.
func (d *Daemon) WritePID() error {
	rec := process.Resolve(d.source, uint32(os.Getpid()))
	return os.WriteFile(d.pidFile, []byte(rec.UniqueKey()), 0644)
}

// ReadPID returns the identity stored in the PID file, or the zero Identity
// when there is no file.
func (d *Daemon) ReadPID() (process.Identity, error) {
	data, err := os.ReadFile(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return process.Identity{}, nil
		}
		return process.Identity{}, fmt.Errorf("failed to read PID file: %w", err)
	}

	id, err := ParseIdentity(strings.TrimSpace(string(data)))
	if err != nil {
		return process.Identity{}, fmt.Errorf("invalid PID file: %w", err)
	}
	return id, nil
}

// RemovePID deletes the PID file. A missing file is not an error.
func (d *Daemon) RemovePID() error {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning reports whether the process named by the PID file is alive. A
// recorded start time that no longer matches the live process means the pid
// was reused; the file is then removed as stale.
func (d *Daemon) IsRunning() (bool, process.Identity, error) {
	id, err := d.ReadPID()
	if err != nil {
		return false, process.Identity{}, err
	}
	if id.PID == 0 {
		return false, process.Identity{}, nil
	}

	rec := process.Resolve(d.source, id.PID)
	alive := rec.Name != "" || rec.StartTimeNanos != 0
	if alive && id.StartTimeNanos != 0 && rec.StartTimeNanos != 0 {
		alive = rec.StartTimeNanos == id.StartTimeNanos
	}

	if !alive {
		_ = d.RemovePID()
		return false, process.Identity{}, nil
	}
	return true, id, nil
}

// Stop terminates the running tracker and removes the PID file.
func (d *Daemon) Stop() error {
	running, id, err := d.IsRunning()
	if err != nil {
		return fmt.Errorf("error checking daemon status: %w", err)
	}
	if !running {
		return fmt.Errorf("daemon is not running or PID file is stale")
	}

	proc, err := os.FindProcess(int(id.PID))
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := terminate(proc); err != nil {
		if err == os.ErrProcessDone {
			_ = d.RemovePID()
			return fmt.Errorf("daemon process already terminated")
		}
		return fmt.Errorf("failed to stop process %d: %w", id.PID, err)
	}

	return d.RemovePID()
}

// ParseIdentity parses a "<pid>-<startTimeNanos>" key. A bare pid is
// accepted with an unknown start time.
func ParseIdentity(s string) (process.Identity, error) {
	pidPart, startPart, hasStart := strings.Cut(s, "-")

	pid, err := strconv.ParseUint(pidPart, 10, 32)
	if err != nil {
		return process.Identity{}, fmt.Errorf("bad pid %q: %w", pidPart, err)
	}
	id := process.Identity{PID: uint32(pid)}

	if hasStart {
		start, err := strconv.ParseUint(startPart, 10, 64)
		if err != nil {
			return process.Identity{}, fmt.Errorf("bad start time %q: %w", startPart, err)
		}
		id.StartTimeNanos = start
	}
	return id, nil
}

// Windows cannot deliver SIGTERM.
func terminate(proc *os.Process) error {
	if runtime.GOOS == "windows" {
		return proc.Kill()
	}
	return proc.Signal(syscall.SIGTERM)
}
