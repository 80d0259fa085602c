// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"time"
)

// ProcessStatus is the scheduler state of a process at snapshot time.
type ProcessStatus string

const (
	StatusRunning  ProcessStatus = "running"
	StatusSleeping ProcessStatus = "sleeping"
	StatusStopped  ProcessStatus = "stopped"
	StatusZombie   ProcessStatus = "zombie"
	StatusOther    ProcessStatus = "other"
)

// Nice value bounds accepted by SetPriority.
const (
	NiceMin = -20
	NiceMax = 19
)

// ProcessRecord is one process as observed at one snapshot instant.
// Records are built fresh on every refresh and never mutated in place;
// a PID may be recycled by the OS, so it is not a durable identity
// across exit and restart.
type ProcessRecord struct {
	PID         int32
	Name        string
	CPUPercent  float64 // instantaneous since the previous sample
	MemoryBytes uint64  // resident set size
	ParentPID   int32   // 0 when unknown
	StartSecs   uint64  // seconds since boot
	StartClock  string  // wall-clock start formatted as HH:MM:SS
	Status      ProcessStatus
	User        string // empty when unresolved
	Nice        int
}

// MemoryMB returns resident memory in megabytes, the unit rule
// expressions bind as `mem`.
func (r ProcessRecord) MemoryMB() float64 {
	return float64(r.MemoryBytes) / 1024 / 1024
}

// CoreCounters is one per-core read of the kernel's cumulative time
// counters. Both values grow monotonically; usage is derived from
// deltas between consecutive reads.
type CoreCounters struct {
	Idle  float64
	Total float64
}

// MemoryInfo is the system-wide memory view taken with a snapshot.
type MemoryInfo struct {
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	UsedPercent    float64
	SwapTotalBytes uint64
	SwapUsedBytes  uint64
}

// LoadInfo is the load average triple taken with a snapshot.
type LoadInfo struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

// HostInfo describes the sampled host. Filled once per snapshot; the
// uptime field is the only one expected to change between ticks.
type HostInfo struct {
	Hostname      string
	OS            string
	Platform      string
	KernelVersion string
	UptimeSecs    uint64
}

// Snapshot is one full enumeration of the process table plus the
// system-wide readings taken at the same instant.
type Snapshot struct {
	TakenAt   time.Time
	Processes []ProcessRecord
	Cores     []CoreCounters
	Memory    MemoryInfo
	Load      LoadInfo
	Host      HostInfo
}

// PIDSet returns the set of PIDs present in the snapshot.
func (s *Snapshot) PIDSet() map[int32]struct{} {
	set := make(map[int32]struct{}, len(s.Processes))
	for _, p := range s.Processes {
		set[p.PID] = struct{}{}
	}
	return set
}

// ByPID returns a PID-keyed index of the snapshot's records.
func (s *Snapshot) ByPID() map[int32]ProcessRecord {
	idx := make(map[int32]ProcessRecord, len(s.Processes))
	for _, p := range s.Processes {
		idx[p.PID] = p
	}
	return idx
}

// ExitRecord is the audit entry for a process that disappeared between
// two snapshots. Immutable once appended to the lifecycle log.
type ExitRecord struct {
	PID        int32
	Name       string
	User       string
	StartClock string    // formatted start time carried from the last known record
	ExitTime   time.Time // wall clock at detection
	UptimeSecs uint64    // derived from ExitTime minus parsed StartClock, 0 when unparseable
}

// SortKey selects the column the visible process list is ordered by.
type SortKey string

const (
	SortPID   SortKey = "pid"
	SortCPU   SortKey = "cpu"
	SortMem   SortKey = "mem"
	SortPPID  SortKey = "ppid"
	SortNice  SortKey = "nice"
	SortStart SortKey = "start"
)

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortPID, SortCPU, SortMem, SortPPID, SortNice, SortStart:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", ErrInvalidInput, s)
}

// FilterMode selects which field a structural filter matches against.
// Name and user match case-insensitively; pid and ppid match as
// substring containment on the decimal string, not numeric equality.
type FilterMode string

const (
	FilterName FilterMode = "name"
	FilterUser FilterMode = "user"
	FilterPID  FilterMode = "pid"
	FilterPPID FilterMode = "ppid"
)

// ParseFilterMode validates a user-supplied filter mode.
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(s) {
	case FilterName, FilterUser, FilterPID, FilterPPID:
		return FilterMode(s), nil
	}
	return "", fmt.Errorf("%w: unknown filter mode %q", ErrInvalidInput, s)
}

// SignalKind is one of the process signals the registry can deliver.
type SignalKind string

const (
	SignalKill      SignalKind = "kill"
	SignalStop      SignalKind = "stop"
	SignalContinue  SignalKind = "continue"
	SignalTerminate SignalKind = "terminate"
)

// ParseSignalKind validates a user-supplied signal name.
func ParseSignalKind(s string) (SignalKind, error) {
	switch SignalKind(s) {
	case SignalKill, SignalStop, SignalContinue, SignalTerminate:
		return SignalKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown signal %q", ErrInvalidInput, s)
}
