package domain

import "context"

// SnapshotSource provides the full process-table enumeration plus the
// system-wide readings for one tick.
// Implementation: uses gopsutil for cross-platform support.
type SnapshotSource interface {
	// Snapshot enumerates all processes and reads the per-core
	// counters, memory, load, and host state at one instant.
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// ProcessController delivers signals and priority changes to live
// processes. The registry depends only on this interface so tests can
// substitute a mock adapter.
type ProcessController interface {
	// Signal sends the OS signal for kind to pid. Single attempt, no
	// retry; the error is surfaced verbatim to the caller.
	Signal(pid int32, kind SignalKind) error

	// SetPriority sets the niceness of pid. Range validation happens
	// before this is called.
	SetPriority(pid int32, nice int) error
}

// Predicate is the active inclusion rule deciding which records are
// visible. Implementations: the structural mode/value filter and the
// compiled rule expression.
type Predicate interface {
	// Include reports whether the record belongs in the filtered view.
	// Evaluation failures count as exclusion, never as an error.
	Include(r ProcessRecord) bool
}

// ExitSink receives exit records as they are detected. Write-only
// export; the in-memory lifecycle log stays authoritative and sinks
// are never read back.
type ExitSink interface {
	// Record appends one exit record to the sink.
	Record(r ExitRecord) error

	// Close releases resources (e.g. database connection).
	Close() error
}

// KeyProvider abstracts the source of the audit database encryption
// key. Implementation: file-based key generated on first use.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
