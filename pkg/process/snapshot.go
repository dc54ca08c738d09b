package process

import (
	"sync"

	"github.com/procsense/procsense/pkg/fixedtext"
)

// Snapshot is every process visible to the caller at one observation. It is
// best-effort: the table keeps changing while it is read, so two snapshots
// taken back to back need not agree on count or membership.
type Snapshot struct {
	mu       sync.Mutex
	records  []Record
	capacity int
	released bool
}

// Records returns the captured records in enumeration order, or nil once the
// snapshot has been released. The slice must not be modified.
func (s *Snapshot) Records() []Record {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// Len is the number of records.
func (s *Snapshot) Len() int {
	return len(s.Records())
}

// Capacity is the number of slots allocated after the count pass.
func (s *Snapshot) Capacity() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// Lookup finds the record for pid, if the snapshot has one.
func (s *Snapshot) Lookup(pid uint32) (Record, bool) {
	for _, r := range s.Records() {
		if r.PID == pid {
			return r, true
		}
	}
	return Record{}, false
}

// Identities returns the set of identity keys in the snapshot.
func (s *Snapshot) Identities() map[Identity]struct{} {
	records := s.Records()
	ids := make(map[Identity]struct{}, len(records))
	for _, r := range records {
		ids[r.Key()] = struct{}{}
	}
	return ids
}

// Release drops the snapshot's records. Later calls to Records return nil and
// releasing again is a no-op.
func (s *Snapshot) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.capacity = 0
	s.released = true
}

// Released reports whether Release has been called.
func (s *Snapshot) Released() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Capture reads the whole process table from src.
//
// The table is walked twice: once to count entries and once to fill exactly
// that many records. Processes that start between the passes are missed and
// processes that exit shorten the result; the fill pass stops at whichever
// bound comes first. A table that cannot be opened yields an empty snapshot.
func Capture(src Source) *Snapshot {
	table, err := src.OpenTable()
	if err != nil || table == nil {
		return &Snapshot{}
	}
	defer table.Close()

	n := countEntries(table)
	if n == 0 {
		return &Snapshot{}
	}

	records := make([]Record, n)
	i := 0
	if table.Rewind() {
		for i < n {
			entry, ok := table.Next()
			if !ok {
				break
			}
			if entry.PID == 0 {
				continue
			}
			records[i] = fill(src, entry)
			i++
		}
	}

	return &Snapshot{records: records[:i:i], capacity: n}
}

func countEntries(table Table) int {
	if !table.Rewind() {
		return 0
	}
	n := 0
	for {
		entry, ok := table.Next()
		if !ok {
			return n
		}
		if entry.PID != 0 {
			n++
		}
	}
}

func fill(src Source, entry Entry) Record {
	rec := Record{
		PID:       entry.PID,
		ParentPID: entry.ParentPID,
		Name:      fixedtext.String(entry.Name, fixedtext.NameCapacity),
	}
	h, err := src.OpenProcess(entry.PID)
	if err != nil || h == nil {
		return rec
	}
	defer h.Close()

	rec.StartTimeNanos, _ = h.StartTimeNanos()
	if path, err := h.ImagePath(); err == nil {
		rec.ExePath = fixedtext.String(path, fixedtext.PathCapacity)
	}
	return rec
}
