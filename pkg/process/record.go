// Package process captures process metadata with a pid-reuse-safe identity.
//
// A process is identified by the pair (PID, StartTimeNanos): the operating
// system recycles pids, so a pid alone names different processes over time.
// Capture enumerates the whole live table in two passes and Resolve looks up
// a single pid; both degrade to partial records instead of failing when the
// OS denies access.
package process

import "fmt"

// Record is one process's metadata at the instant it was observed.
type Record struct {
	PID       uint32 `json:"pid"`
	ParentPID uint32 `json:"parent_pid"`
	// StartTimeNanos is the creation time in nanoseconds, 0 when unknown.
	StartTimeNanos uint64 `json:"start_time_nanos"`
	Name           string `json:"name"`
	// ExePath is empty when the OS refused to resolve the image path.
	ExePath string `json:"exe_path"`
}

// Identity is the key that tells process instances apart across samples.
type Identity struct {
	PID            uint32
	StartTimeNanos uint64
}

// Key returns the record's identity.
func (r Record) Key() Identity {
	return Identity{PID: r.PID, StartTimeNanos: r.StartTimeNanos}
}

// UniqueKey returns the identity as "pid-startTimeNanos".
func (r Record) UniqueKey() string {
	return r.Key().String()
}

// Partial reports whether timing and path data were unavailable.
func (r Record) Partial() bool {
	return r.StartTimeNanos == 0 && r.ExePath == ""
}

func (id Identity) String() string {
	return fmt.Sprintf("%d-%d", id.PID, id.StartTimeNanos)
}
