//go:build linux

package procfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sys/unix"

	"github.com/procsense/procsense/pkg/process"
)

const readDirBatch = 64

// commLen is the longest command name the kernel keeps in stat; longer names
// are cut to it.
const commLen = 15

// Source implements process.Source over a /proc mount.
type Source struct {
	root      string
	bootNanos uint64
}

// NewSource returns a source for /proc. Start times are anchored to the
// system boot time.
func NewSource() (*Source, error) {
	return NewSourceAt("/proc")
}

// NewSourceAt returns a source for a procfs mounted at root.
func NewSourceAt(root string) (*Source, error) {
	boot, err := host.BootTime()
	if err != nil {
		return nil, fmt.Errorf("failed to read boot time: %w", err)
	}
	return &Source{root: root, bootNanos: boot * uint64(time.Second)}, nil
}

// OpenTable opens the /proc directory as an enumeration cursor.
func (s *Source) OpenTable() (process.Table, error) {
	dir, err := os.Open(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.root, err)
	}
	return &table{src: s, dir: dir}, nil
}

// OpenProcess pins /proc/<pid> with a directory descriptor. Reads through
// it fail once the process exits, even if the pid is reused.
func (s *Source) OpenProcess(pid uint32) (process.Handle, error) {
	return s.open(strconv.FormatUint(uint64(pid), 10))
}

func (s *Source) open(dir string) (*handle, error) {
	path := filepath.Join(s.root, dir)
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &handle{src: s, fd: fd}, nil
}

// Separators returns "/".
func (s *Source) Separators() string {
	return "/"
}

type table struct {
	src     *Source
	dir     *os.File
	pending []os.DirEntry
	done    bool
	rewound bool
}

func (t *table) Rewind() bool {
	if _, err := t.dir.Seek(0, io.SeekStart); err != nil {
		return false
	}
	t.pending = nil
	t.done = false
	t.rewound = true
	return true
}

func (t *table) Next() (process.Entry, bool) {
	if !t.rewound {
		return process.Entry{}, false
	}
	for {
		if len(t.pending) == 0 {
			if t.done {
				return process.Entry{}, false
			}
			entries, err := t.dir.ReadDir(readDirBatch)
			if err != nil {
				t.done = true
			}
			if len(entries) == 0 {
				return process.Entry{}, false
			}
			t.pending = entries
		}

		name := t.pending[0].Name()
		t.pending = t.pending[1:]

		if _, err := strconv.ParseUint(name, 10, 32); err != nil {
			continue
		}

		if entry, ok := t.read(name); ok {
			return entry, true
		}
	}
}

// read builds the entry for /proc/<dir>. It is false when the process
// exited since the directory was listed.
func (t *table) read(dir string) (process.Entry, bool) {
	h, err := t.src.open(dir)
	if err != nil {
		return process.Entry{}, false
	}
	defer h.Close()

	data, err := h.readFile("stat")
	if err != nil {
		return process.Entry{}, false
	}
	st, err := parseStat(data)
	if err != nil {
		return process.Entry{}, false
	}

	return process.Entry{PID: st.PID, ParentPID: st.PPID, Name: h.name(st.Comm)}, true
}

func (t *table) Close() error {
	return t.dir.Close()
}

type handle struct {
	src *Source
	fd  int
}

func (h *handle) StartTimeNanos() (uint64, error) {
	data, err := h.readFile("stat")
	if err != nil {
		return 0, err
	}
	st, err := parseStat(data)
	if err != nil {
		return 0, err
	}
	return startNanos(h.src.bootNanos, st.StartTicks), nil
}

func (h *handle) ImagePath() (string, error) {
	if h.fd < 0 {
		return "", os.ErrClosed
	}
	buf := make([]byte, unix.PathMax)
	n, err := unix.Readlinkat(h.fd, "exe", buf)
	if err != nil {
		return "", fmt.Errorf("failed to read exe link: %w", err)
	}
	return strings.TrimSuffix(string(buf[:n]), " (deleted)"), nil
}

// name returns the executable file name. It is the base of the exe link,
// matching what Resolve reports; without access to the link a comm cut to
// commLen is completed from argv[0].
func (h *handle) name(comm string) string {
	if path, err := h.ImagePath(); err == nil && path != "" {
		if base := process.BaseName(path, "/"); base != "" && base != path {
			return base
		}
	}
	if len(comm) < commLen {
		return comm
	}

	cmdline, err := h.readFile("cmdline")
	if err != nil {
		return comm
	}
	argv0, _, _ := strings.Cut(string(cmdline), "\x00")
	if base := process.BaseName(argv0, "/"); strings.HasPrefix(base, comm) {
		return base
	}
	return comm
}

func (h *handle) readFile(name string) ([]byte, error) {
	if h.fd < 0 {
		return nil, os.ErrClosed
	}
	fd, err := unix.Openat(h.fd, name, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, errors.New("process has exited")
	}
	return data, nil
}

func (h *handle) Close() error {
	if h.fd < 0 {
		return nil
	}
	err := unix.Close(h.fd)
	h.fd = -1
	return err
}
