package history

import (
	"time"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// GlobalSample is one system-wide observation: CPU percent summed
// across all processes and their resident memory in megabytes.
type GlobalSample struct {
	CPUPercent float64
	MemoryMB   float64
}

// ProcessSample is one per-process observation.
type ProcessSample struct {
	CPUPercent  float64
	MemoryBytes uint64
}

// Store holds the three bounded histories: one global, one per
// detected CPU core, and one per live PID. Observations arriving
// faster than the configured interval are dropped, not queued.
type Store struct {
	capacity int
	interval time.Duration
	last     time.Time

	global   *Series[GlobalSample]
	cores    []*Series[float64]
	usage    []float64
	counters []domain.CoreCounters

	perProcess map[int32]*Series[ProcessSample]
}

// NewStore creates a store retaining capacity points per series and
// accepting at most one observation per interval.
func NewStore(capacity int, interval time.Duration) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity:   capacity,
		interval:   interval,
		global:     NewSeries[GlobalSample](capacity),
		perProcess: make(map[int32]*Series[ProcessSample]),
	}
}

// Observe ingests one snapshot into all three histories. Calls
// arriving before the interval has elapsed since the last accepted
// observation are no-ops and return false.
func (s *Store) Observe(now time.Time, snap *domain.Snapshot) bool {
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now

	s.observeGlobal(snap)
	s.observeCores(snap.Cores)
	s.observeProcesses(snap)
	return true
}

func (s *Store) observeGlobal(snap *domain.Snapshot) {
	var sample GlobalSample
	for _, p := range snap.Processes {
		sample.CPUPercent += p.CPUPercent
		sample.MemoryMB += p.MemoryMB()
	}
	s.global.Push(sample)
}

// observeCores derives per-core usage from counter deltas. A core
// whose total counter did not advance keeps its previous usage rather
// than dividing by zero. The core count is fixed by the first
// observation.
func (s *Store) observeCores(cores []domain.CoreCounters) {
	if s.counters == nil {
		s.counters = make([]domain.CoreCounters, len(cores))
		s.usage = make([]float64, len(cores))
		s.cores = make([]*Series[float64], len(cores))
		for i := range s.cores {
			s.cores[i] = NewSeries[float64](s.capacity)
		}
	}
	for i := range s.counters {
		if i >= len(cores) {
			break
		}
		c := cores[i]
		idleDelta := c.Idle - s.counters[i].Idle
		totalDelta := c.Total - s.counters[i].Total
		if totalDelta > 0 {
			s.usage[i] = 100 * (1 - idleDelta/totalDelta)
		}
		s.counters[i] = c
		s.cores[i].Push(s.usage[i])
	}
}

// observeProcesses appends per-PID samples and prunes any series whose
// owner is absent from the snapshot. Pruning is tied to snapshot
// membership, not a TTL.
func (s *Store) observeProcesses(snap *domain.Snapshot) {
	live := snap.PIDSet()
	for pid := range s.perProcess {
		if _, ok := live[pid]; !ok {
			delete(s.perProcess, pid)
		}
	}
	for _, p := range snap.Processes {
		series, ok := s.perProcess[p.PID]
		if !ok {
			series = NewSeries[ProcessSample](s.capacity)
			s.perProcess[p.PID] = series
		}
		series.Push(ProcessSample{CPUPercent: p.CPUPercent, MemoryBytes: p.MemoryBytes})
	}
}

// GlobalHistory returns the retained global samples, oldest first.
func (s *Store) GlobalHistory() []GlobalSample {
	return s.global.Values()
}

// CoreHistories returns one usage sequence per core, oldest first.
func (s *Store) CoreHistories() [][]float64 {
	out := make([][]float64, len(s.cores))
	for i, c := range s.cores {
		out[i] = c.Values()
	}
	return out
}

// CoreUsage returns the latest derived usage per core.
func (s *Store) CoreUsage() []float64 {
	out := make([]float64, len(s.usage))
	copy(out, s.usage)
	return out
}

// ProcessHistory returns the retained samples for pid, oldest first.
// The second return is false when the pid has no live series.
func (s *Store) ProcessHistory(pid int32) ([]ProcessSample, bool) {
	series, ok := s.perProcess[pid]
	if !ok {
		return nil, false
	}
	return series.Values(), true
}

// TrackedProcesses returns the number of PIDs with a live series.
func (s *Store) TrackedProcesses() int {
	return len(s.perProcess)
}
