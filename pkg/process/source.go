package process

// Entry is what the enumeration facility itself reports for one process.
type Entry struct {
	PID       uint32
	ParentPID uint32
	Name      string
}

// Table is an open cursor over the live process table. It is not safe for
// concurrent use and must be closed by whoever opened it.
type Table interface {
	// Rewind positions the cursor before the first entry. It returns false
	// when the table cannot be read from the start.
	Rewind() bool
	// Next returns the next entry, or false once the table is exhausted.
	Next() (Entry, bool)
	Close() error
}

// Handle is a narrow-privilege reference to one process, opened only to
// query metadata.
type Handle interface {
	// StartTimeNanos returns the process creation time in nanoseconds.
	StartTimeNanos() (uint64, error)
	// ImagePath returns the full path of the executable image.
	ImagePath() (string, error)
	Close() error
}

// Source is a platform's process facility.
type Source interface {
	OpenTable() (Table, error)
	OpenProcess(pid uint32) (Handle, error)
	// Separators lists the path separators of the platform's image paths.
	Separators() string
}
