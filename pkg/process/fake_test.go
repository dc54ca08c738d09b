package process

import (
	"errors"
	"sync"
	"sync/atomic"
)

var errDenied = errors.New("access denied")

type fakeProc struct {
	start uint64
	path  string
}

// fakeSource serves a scripted process table. Each Rewind advances to the
// next entry list in passes, so the table can grow or shrink between the
// count and fill passes.
type fakeSource struct {
	mu     sync.Mutex
	passes [][]Entry
	procs  map[uint32]fakeProc
	denied map[uint32]bool
	seps   string

	openTableErr error
	rewindFails  bool

	tablesOpen  atomic.Int64
	handlesOpen atomic.Int64
	handleCalls atomic.Int64
}

func newFakeSource(entries ...Entry) *fakeSource {
	return &fakeSource{
		passes: [][]Entry{entries},
		procs:  make(map[uint32]fakeProc),
		denied: make(map[uint32]bool),
		seps:   `\`,
	}
}

func (s *fakeSource) OpenTable() (Table, error) {
	if s.openTableErr != nil {
		return nil, s.openTableErr
	}
	s.tablesOpen.Add(1)
	return &fakeTable{src: s}, nil
}

func (s *fakeSource) OpenProcess(pid uint32) (Handle, error) {
	s.handleCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denied[pid] {
		return nil, errDenied
	}
	p, ok := s.procs[pid]
	if !ok {
		return nil, errors.New("no such process")
	}
	s.handlesOpen.Add(1)
	return &fakeHandle{src: s, proc: p}, nil
}

func (s *fakeSource) Separators() string { return s.seps }

func (s *fakeSource) pass(n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= len(s.passes) {
		n = len(s.passes) - 1
	}
	out := make([]Entry, len(s.passes[n]))
	copy(out, s.passes[n])
	return out
}

type fakeTable struct {
	src     *fakeSource
	rewinds int
	entries []Entry
	pos     int
	closed  bool
}

func (t *fakeTable) Rewind() bool {
	if t.src.rewindFails {
		return false
	}
	t.entries = t.src.pass(t.rewinds)
	t.rewinds++
	t.pos = 0
	return true
}

func (t *fakeTable) Next() (Entry, bool) {
	if t.pos >= len(t.entries) {
		return Entry{}, false
	}
	e := t.entries[t.pos]
	t.pos++
	return e, true
}

func (t *fakeTable) Close() error {
	if !t.closed {
		t.closed = true
		t.src.tablesOpen.Add(-1)
	}
	return nil
}

type fakeHandle struct {
	src    *fakeSource
	proc   fakeProc
	closed bool
}

func (h *fakeHandle) StartTimeNanos() (uint64, error) { return h.proc.start, nil }

func (h *fakeHandle) ImagePath() (string, error) {
	if h.proc.path == "" {
		return "", errDenied
	}
	return h.proc.path, nil
}

func (h *fakeHandle) Close() error {
	if !h.closed {
		h.closed = true
		h.src.handlesOpen.Add(-1)
	}
	return nil
}
