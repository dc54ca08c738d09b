// Package procfs reads the process table from a Linux /proc mount.
package procfs

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// userHZ is the tick rate /proc reports times in. The kernel fixes it at 100
// for userspace on every architecture Go supports.
const userHZ = 100

const nanosPerTick = uint64(time.Second) / userHZ

// stat is the subset of /proc/<pid>/stat the sensing layer uses.
type stat struct {
	PID        uint32
	PPID       uint32
	Comm       string
	StartTicks uint64
}

// parseStat parses the contents of /proc/<pid>/stat. The command name sits
// between the first '(' and the last ')' and may itself contain spaces and
// parentheses.
func parseStat(data []byte) (stat, error) {
	open := bytes.IndexByte(data, '(')
	closing := bytes.LastIndexByte(data, ')')
	if open < 1 || closing < open {
		return stat{}, fmt.Errorf("malformed stat: missing command name")
	}

	pid, err := strconv.ParseUint(string(bytes.TrimSpace(data[:open])), 10, 32)
	if err != nil {
		return stat{}, fmt.Errorf("malformed stat pid: %w", err)
	}

	// fields[0] is the state, field 3 of the file
	fields := bytes.Fields(data[closing+1:])
	if len(fields) < 20 {
		return stat{}, fmt.Errorf("malformed stat: %d fields after command name", len(fields))
	}

	ppid, err := strconv.ParseUint(string(fields[1]), 10, 32)
	if err != nil {
		return stat{}, fmt.Errorf("malformed stat ppid: %w", err)
	}

	start, err := strconv.ParseUint(string(fields[19]), 10, 64)
	if err != nil {
		return stat{}, fmt.Errorf("malformed stat starttime: %w", err)
	}

	return stat{
		PID:        uint32(pid),
		PPID:       uint32(ppid),
		Comm:       string(data[open+1 : closing]),
		StartTicks: start,
	}, nil
}

// startNanos converts a starttime in clock ticks since boot to nanoseconds
// since the Unix epoch.
func startNanos(bootNanos, ticks uint64) uint64 {
	return bootNanos + ticks*nanosPerTick
}
