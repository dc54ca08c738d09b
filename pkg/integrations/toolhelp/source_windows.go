//go:build windows

package toolhelp

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/procsense/procsense/pkg/fixedtext"
	"github.com/procsense/procsense/pkg/process"
)

// longPathUnits is the maximum length of an extended-length path.
const longPathUnits = 32768

// Source implements process.Source with the Toolhelp32 API.
type Source struct{}

// NewSource creates a Toolhelp32 source.
func NewSource() *Source {
	return &Source{}
}

// OpenTable takes a Toolhelp32 process snapshot.
func (s *Source) OpenTable() (process.Table, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	return &table{snap: snap}, nil
}

// OpenProcess opens pid with PROCESS_QUERY_LIMITED_INFORMATION only.
func (s *Source) OpenProcess(pid uint32) (process.Handle, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return nil, fmt.Errorf("OpenProcess %d: %w", pid, err)
	}
	return &handle{h: h}, nil
}

// Separators returns both Windows path separators.
func (s *Source) Separators() string {
	return `\/`
}

type table struct {
	snap    windows.Handle
	entry   windows.ProcessEntry32
	rewound bool
	pending bool
}

func (t *table) Rewind() bool {
	t.entry = windows.ProcessEntry32{}
	t.entry.Size = uint32(unsafe.Sizeof(t.entry))
	if err := windows.Process32First(t.snap, &t.entry); err != nil {
		t.rewound = false
		return false
	}
	t.rewound = true
	t.pending = true
	return true
}

func (t *table) Next() (process.Entry, bool) {
	if !t.rewound {
		return process.Entry{}, false
	}
	if t.pending {
		t.pending = false
		return t.current(), true
	}
	if err := windows.Process32Next(t.snap, &t.entry); err != nil {
		// ERROR_NO_MORE_FILES ends the walk
		t.rewound = false
		return process.Entry{}, false
	}
	return t.current(), true
}

func (t *table) current() process.Entry {
	return process.Entry{
		PID:       t.entry.ProcessID,
		ParentPID: t.entry.ParentProcessID,
		Name:      fixedtext.UTF16(t.entry.ExeFile[:], fixedtext.NameCapacity),
	}
}

func (t *table) Close() error {
	return windows.CloseHandle(t.snap)
}

type handle struct {
	h      windows.Handle
	closed bool
}

// StartTimeNanos converts the FILETIME creation time, in 100ns ticks since
// 1601, to nanoseconds.
func (h *handle) StartTimeNanos() (uint64, error) {
	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h.h, &creation, &exit, &kernel, &user); err != nil {
		return 0, fmt.Errorf("GetProcessTimes: %w", err)
	}
	ticks := uint64(creation.HighDateTime)<<32 | uint64(creation.LowDateTime)
	return ticks * 100, nil
}

func (h *handle) ImagePath() (string, error) {
	buf := make([]uint16, fixedtext.PathCapacity)
	size := uint32(len(buf))
	err := windows.QueryFullProcessImageName(h.h, 0, &buf[0], &size)
	if errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) {
		buf = make([]uint16, longPathUnits)
		size = uint32(len(buf))
		err = windows.QueryFullProcessImageName(h.h, 0, &buf[0], &size)
	}
	if err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName: %w", err)
	}
	return fixedtext.UTF16(buf[:size], fixedtext.PathCapacity), nil
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return windows.CloseHandle(h.h)
}
